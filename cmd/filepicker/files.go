package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
)

func newFilesCommand(a *app) *cobra.Command {
	var itemID int64
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the files in a draft item, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			files, err := store.Files(cmd.Context(), a.scope(), draft.ItemID(itemID), draft.NewestFirst)
			if err != nil {
				return fmt.Errorf("list draft item %d: %w", itemID, err)
			}
			if len(files) == 0 {
				fmt.Fprintf(a.out, "draft item %d is empty\n", itemID)
				return nil
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSIZE\tTYPE\tCREATED")
			for _, file := range files {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					file.ID, file.Name, humanize.IBytes(uint64(file.Size)), file.MimeType, humanize.Time(file.Created))
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&itemID, "itemid", 0, "draft item to list")
	_ = cmd.MarkFlagRequired("itemid")
	return cmd
}

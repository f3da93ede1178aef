package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/picker"
)

func newFinalizeCommand(a *app) *cobra.Command {
	var (
		itemID   int64
		name     string
		maxBytes int64
	)
	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Reduce a draft item to its newest acceptable file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			field, err := a.newField(store, name, name, picker.WithMaxBytes(maxBytes))
			if err != nil {
				return err
			}
			field.SetValue(draft.ItemID(itemID))

			result, err := field.Finalize(cmd.Context(), a.renderContext(""), nil)
			printFinalizeResult(a, result)
			return err
		},
	}
	cmd.Flags().Int64Var(&itemID, "itemid", 0, "draft item to finalize")
	cmd.Flags().StringVar(&name, "name", "attachment", "form element name")
	cmd.Flags().Int64Var(&maxBytes, "maxbytes", 0, "maximum file size, 0 or -1 keeps any size")
	_ = cmd.MarkFlagRequired("itemid")
	return cmd
}

func printFinalizeResult(a *app, result picker.FinalizeResult) {
	if result.Kept != nil {
		fmt.Fprintf(a.out, "kept %s (%s)\n", result.Kept.Name, humanize.IBytes(uint64(result.Kept.Size)))
	} else {
		fmt.Fprintln(a.out, "kept nothing")
	}
	for _, d := range result.Discarded {
		fmt.Fprintf(a.out, "discarded %s (%s)\n", d.File.Name, d.Reason)
	}
}

package main

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	filepicker "github.com/goliatone/go-omerofilepicker"
	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/picker"
)

type renderFlags struct {
	name     string
	label    string
	itemID   int64
	maxBytes int64
	accept   []string
	env      string
	frozen   bool
	sessKey  string
	output   string
	scripts  bool
}

func newRenderCommand(a *app) *cobra.Command {
	flags := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the file picker field markup.",
		Long: `render prints the picker markup for a field. Without --itemid a fresh
draft item is allocated in the configured store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.render(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.name, "name", "attachment", "form element name")
	cmd.Flags().StringVar(&flags.label, "label", "Image", "form element label")
	cmd.Flags().Int64Var(&flags.itemID, "itemid", 0, "bind the field to an existing draft item")
	cmd.Flags().Int64Var(&flags.maxBytes, "maxbytes", 0, "maximum file size, 0 uses the site limit, -1 is unlimited")
	cmd.Flags().StringSliceVar(&flags.accept, "accept", nil, "accepted extensions or mime types")
	cmd.Flags().StringVar(&flags.env, "env", picker.EnvFilePicker, "picker environment (filepicker or url)")
	cmd.Flags().BoolVar(&flags.frozen, "frozen", false, "render the read-only form")
	cmd.Flags().StringVar(&flags.sessKey, "sesskey", "", "session key embedded in the no-script manager link")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the markup to a file instead of stdout")
	cmd.Flags().BoolVar(&flags.scripts, "scripts", true, "append the widget boot scripts")
	return cmd
}

func (a *app) render(cmd *cobra.Command, flags *renderFlags) error {
	store, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	options := []picker.Option{
		picker.WithMaxBytes(flags.maxBytes),
		picker.WithEnv(flags.env),
	}
	if len(flags.accept) > 0 {
		options = append(options, picker.WithAcceptedTypes(flags.accept...))
	}
	field, err := a.newField(store, flags.name, flags.label, options...)
	if err != nil {
		return err
	}
	if flags.itemID > 0 {
		field.SetValue(draft.ItemID(flags.itemID))
	}
	if flags.frozen {
		field.Freeze()
	}

	rc := a.renderContext(flags.sessKey)
	var markup string
	if flags.scripts {
		markup, err = filepicker.RenderWithScripts(cmd.Context(), field, rc)
	} else {
		markup, err = field.Render(cmd.Context(), rc)
	}
	if err != nil {
		return err
	}
	a.logger.Info("rendered file picker", "field", field.Name(), "item", field.Value(), "frozen", field.Frozen())

	if flags.output == "" {
		_, err = io.WriteString(a.out, markup)
		return err
	}
	if err := afero.WriteFile(a.fs, flags.output, []byte(markup), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", flags.output, err)
	}
	return nil
}

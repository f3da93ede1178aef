package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
)

type uploadFlags struct {
	itemID int64
	name   string
	accept []string
	yes    bool
}

func newUploadCommand(a *app) *cobra.Command {
	flags := &uploadFlags{}
	cmd := &cobra.Command{
		Use:   "upload [path]",
		Short: "Store a local file in a draft item.",
		Long: `upload copies a local file into a draft item owned by the configured
user. The path is prompted for when omitted. Without --itemid a new draft
item is allocated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return a.upload(cmd.Context(), path, flags)
		},
	}
	cmd.Flags().Int64Var(&flags.itemID, "itemid", 0, "target draft item")
	cmd.Flags().StringVar(&flags.name, "name", "", "stored file name, defaults to the base name of path")
	cmd.Flags().StringSliceVar(&flags.accept, "accept", nil, "reject files outside these extensions or mime types")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (a *app) upload(ctx context.Context, path string, flags *uploadFlags) error {
	path = strings.TrimSpace(path)
	if path == "" {
		answer, err := a.prompter.Input(ctx, InputConfig{
			Message: "File to upload",
			Help:    "Path of a local file to store in the draft item.",
			Validator: func(value string) error {
				ok, err := afero.Exists(a.fs, strings.TrimSpace(value))
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s does not exist", value)
				}
				return nil
			},
		})
		if err != nil {
			return err
		}
		path = strings.TrimSpace(answer)
	}

	f, err := a.fs.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return fmt.Errorf("detect type of %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", path, err)
	}

	name := strings.TrimSpace(flags.name)
	if name == "" {
		name = filepath.Base(path)
	}
	if accepted := draft.NormalizeAcceptedTypes(flags.accept); !accepted.Allows(name, detected.String()) {
		return fmt.Errorf("%s (%s) is not an accepted type", name, detected.String())
	}

	if !flags.yes {
		ok, err := a.prompter.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Upload %s (%s)?", name, humanize.IBytes(uint64(info.Size()))),
			Default: true,
		})
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	store, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	scope := a.scope()
	item := draft.ItemID(flags.itemID)
	if item == draft.NoItem {
		if item, err = store.Allocate(ctx, scope); err != nil {
			return fmt.Errorf("allocate draft item: %w", err)
		}
	}

	file, err := store.Put(ctx, scope, item, name, detected.String(), f)
	if err != nil {
		if errors.Is(err, draft.ErrNotOwner) {
			return fmt.Errorf("draft item %d belongs to another user: %w", item, err)
		}
		return fmt.Errorf("store %s: %w", name, err)
	}
	a.logger.Info("stored draft file", "item", item, "file", file.Name, "size", file.Size)
	fmt.Fprintf(a.out, "stored %s (%s, %s) in draft item %d\n",
		file.Name, humanize.IBytes(uint64(file.Size)), file.MimeType, item)
	return nil
}

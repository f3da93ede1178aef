package main

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	filepicker "github.com/goliatone/go-omerofilepicker"
	"github.com/goliatone/go-omerofilepicker/pkg/config"
	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/logging"
)

// storeFactory opens the draft store for a command run. The returned close
// function is always non-nil.
type storeFactory func(cfg config.Config, fs afero.Fs) (draft.Store, func() error, error)

type app struct {
	fs       afero.Fs
	out      io.Writer
	errOut   io.Writer
	prompter Prompter
	stores   storeFactory

	configPath string
	envFile    string
	debug      bool

	cfg    config.Config
	logger *logging.Logger
}

func newApp(fs afero.Fs, out, errOut io.Writer, prompter Prompter) *app {
	return &app{
		fs:       fs,
		out:      out,
		errOut:   errOut,
		prompter: prompter,
		stores:   openSQLiteStore,
		logger:   logging.Nop(),
	}
}

func openSQLiteStore(cfg config.Config, fs afero.Fs) (draft.Store, func() error, error) {
	store, err := filepicker.OpenSQLiteStore(cfg.Database, fs, cfg.BlobDir)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func newRootCommand(a *app) *cobra.Command {
	cobra.EnableCommandSorting = false
	root := &cobra.Command{
		Use:   "filepicker",
		Short: "Omero draft file picker tooling.",
		Long: `filepicker renders the Omero draft file picker field, manages the draft
file areas behind it and serves a small demo host with the no-script
draft file manager.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", config.DefaultDotEnv, "dotenv file with FILEPICKER_* overrides")
	root.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "enable debug logging")
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(newServeCommand(a))
	root.AddCommand(newRenderCommand(a))
	root.AddCommand(newUploadCommand(a))
	root.AddCommand(newFilesCommand(a))
	root.AddCommand(newFinalizeCommand(a))
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.fs, a.configPath, a.envFile)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Debug = true
	}
	a.cfg = cfg
	a.logger = logging.New(a.errOut, logging.Options{Debug: cfg.Debug})
	return nil
}

func (a *app) openStore() (draft.Store, func() error, error) {
	store, closeFn, err := a.stores(a.cfg, a.fs)
	if err != nil {
		return nil, nil, fmt.Errorf("open draft store: %w", err)
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return store, closeFn, nil
}

func (a *app) scope() draft.Scope {
	return draft.Scope{UserID: a.cfg.UserID}
}

func (a *app) renderContext(sessKey string) filepicker.RenderContext {
	return filepicker.RenderContext{
		UserID:       a.cfg.UserID,
		CourseID:     a.cfg.CourseID,
		ContextID:    a.cfg.ContextID,
		SiteMaxBytes: a.cfg.SiteMaxBytes,
		SessKey:      sessKey,
		Locale:       a.cfg.Locale,
		WWWRoot:      a.cfg.WWWRoot,
	}
}

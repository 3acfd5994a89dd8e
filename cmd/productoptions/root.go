package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-productoptions/internal/catalog"
	"github.com/goliatone/go-productoptions/internal/config"
	"github.com/goliatone/go-productoptions/internal/logging"
	"github.com/goliatone/go-productoptions/pkg/model"
)

// app holds what every subcommand shares once flags are parsed.
type app struct {
	configPath string
	catalogDir string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "productoptions",
		Short:         "Evaluate, lint and serve product option groups",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.catalogDir, "catalog", "", "directory of catalog documents (overrides the config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newServeCmd(a),
		newLintCmd(a),
		newEvalCmd(a),
		newPreviewCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(a.catalogDir) != "" {
		cfg.Catalog = a.catalogDir
	}
	if strings.TrimSpace(a.logLevel) != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = logging.New(logging.Config{
		Level:   cfg.Log.Level,
		JSON:    cfg.Log.JSON,
		Service: "productoptions",
		Output:  cmd.ErrOrStderr(),
	})
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) catalog() (*catalog.Store, error) {
	if strings.TrimSpace(a.cfg.Catalog) == "" {
		return nil, fmt.Errorf("no catalog directory: pass --catalog or set %s", config.EnvCatalog)
	}
	store, err := catalog.LoadFS(os.DirFS(a.cfg.Catalog))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("catalog loaded", "dir", a.cfg.Catalog, "items", len(store.Items()))
	return store, nil
}

func (a *app) context(role model.Role) (model.EvaluationContext, error) {
	return a.cfg.Store.EvaluationContext(role)
}

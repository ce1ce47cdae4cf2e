package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leofalp/replyparse/core/alias"
	"github.com/leofalp/replyparse/core/parser"
	"github.com/leofalp/replyparse/internal/config"
	"github.com/leofalp/replyparse/providers/aliasstore"
	"github.com/leofalp/replyparse/providers/aliasstore/filestore"
	"github.com/leofalp/replyparse/providers/aliasstore/sqlitestore"
	"github.com/leofalp/replyparse/providers/observability"
	"github.com/leofalp/replyparse/providers/observability/slogobs"
)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	cfgFile      string
	outputFormat string
	aliasBackend string
	aliasPath    string

	manager  *config.Manager
	observer *slogobs.Observer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "replyparse",
		Short: "Normalize and parse structured LLM responses",
		Long: `replyparse turns raw language-model responses into typed records.

Responses are cleaned (fences, prose, broken unicode), their keys are mapped
to canonical field names through an alias table, and anything that still
fails to decode is recovered field by field or replaced by a default record.

Record kinds:
  analysis       replySuggestion, strategyAnalysis, riskLevel
  safety-check   isSafe, triggeredRisks, suggestion
  extraction     facts, redTags, greenTags`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	rootCmd.SetVersionTemplate("replyparse {{.Version}}\n")
	rootCmd.Version = version()

	rootCmd.PersistentFlags().StringVar(
		&a.cfgFile, "config", "", "config file (default: ./replyparse.yaml or ~/.replyparse/replyparse.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&a.outputFormat, "output", "o", "json", "output format: json or yaml",
	)
	rootCmd.PersistentFlags().StringVar(
		&a.aliasBackend, "alias-store", "", "alias store backend: none, file or sqlite (overrides config)",
	)
	rootCmd.PersistentFlags().StringVar(
		&a.aliasPath, "alias-path", "", "alias file or database path (overrides config)",
	)

	rootCmd.AddCommand(
		newParseCmd(a),
		newBatchCmd(a),
		newAliasesCmd(a),
		newSchemaCmd(a),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	if a.outputFormat != "json" && a.outputFormat != "yaml" {
		return fmt.Errorf("unknown output format %q (want json or yaml)", a.outputFormat)
	}

	mgr, err := config.NewManager(a.cfgFile)
	if err != nil {
		return err
	}
	if a.aliasBackend != "" {
		if err := mgr.Set("aliases.backend", a.aliasBackend); err != nil {
			return err
		}
	}
	if a.aliasPath != "" {
		if err := mgr.Set("aliases.path", a.aliasPath); err != nil {
			return err
		}
	}
	a.manager = mgr

	cfg := mgr.Get()
	a.observer = slogobs.New(
		slogobs.WithOutput(cmd.ErrOrStderr()),
		slogobs.WithLevel(cfg.LogLevel()),
		slogobs.WithFormat(cfg.LogFormat()),
		slogobs.WithColors(isTerminal(cmd.ErrOrStderr())),
		slogobs.WithComponent("replyparse"),
	)
	return nil
}

// setFlag copies a flag into the config when the user set it explicitly.
func (a *app) setFlag(cmd *cobra.Command, flag, key string, value any) error {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return a.manager.Set(key, value)
}

// openStore opens the configured alias store. close is never nil.
func (a *app) openStore(ctx context.Context) (aliasstore.Store, func() error, error) {
	cfg := a.manager.Get()
	noop := func() error { return nil }

	switch cfg.Aliases.Backend {
	case config.BackendFile:
		s, err := filestore.New(cfg.Aliases.Path, filestore.WithObserver(a.observer))
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case config.BackendSQLite:
		s, err := sqlitestore.Open(ctx, cfg.Aliases.Path, sqlitestore.WithObserver(a.observer))
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, nil
	}
}

// restore merges the stored table into r. Aliases that conflict with the
// built-in table are skipped with a warning.
func (a *app) restore(ctx context.Context, store aliasstore.Store, r *alias.Registry) error {
	if store == nil {
		return nil
	}
	err := aliasstore.Restore(ctx, store, r)
	if errors.Is(err, alias.ErrAliasConflict) {
		a.observer.Warn(ctx, "Stored aliases skipped", observability.Error(err))
		return nil
	}
	return err
}

// newParser builds a parser from the config, with its registry restored
// from the alias store.
func (a *app) newParser(ctx context.Context, store aliasstore.Store) (*parser.Parser, error) {
	cfg := a.manager.Get()
	registry := alias.NewRegistry(alias.WithObserver(a.observer))
	if err := a.restore(ctx, store, registry); err != nil {
		return nil, err
	}
	opts := append(cfg.ParserOptions(),
		parser.WithRegistry(registry),
		parser.WithObserver(a.observer),
	)
	return parser.New(opts...), nil
}

// persist saves learned aliases back to the store.
func (a *app) persist(ctx context.Context, store aliasstore.Store, r *alias.Registry) {
	if store == nil || r.Stats().Learned == 0 {
		return
	}
	err := aliasstore.Persist(ctx, store, r)
	if err != nil && !errors.Is(err, alias.ErrAliasConflict) {
		a.observer.Error(ctx, "Learned aliases not saved", observability.Error(err))
		return
	}
	a.observer.Info(ctx, "Learned aliases saved",
		observability.Int(observability.AttrAliasLearned, r.Stats().Learned))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leofalp/replyparse/core/alias"
	"github.com/leofalp/replyparse/providers/aliasstore"
)

var errNoStore = errors.New("no alias store configured (set aliases.backend or --alias-store)")

func newAliasesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "Inspect and extend the alias table",
	}
	cmd.AddCommand(
		newAliasesListCmd(a),
		newAliasesAddCmd(a),
		newAliasesLookupCmd(a),
		newAliasesStatsCmd(a),
	)
	return cmd
}

// loadRegistry returns the built-in table merged with the configured store.
func (a *app) loadRegistry(cmd *cobra.Command) (*alias.Registry, aliasstore.Store, func() error, error) {
	store, closeStore, err := a.openStore(cmd.Context())
	if err != nil {
		return nil, nil, closeStore, err
	}
	r := alias.NewRegistry(alias.WithObserver(a.observer))
	if err := a.restore(cmd.Context(), store, r); err != nil {
		return nil, nil, closeStore, err
	}
	return r, store, closeStore, nil
}

func newAliasesListCmd(a *app) *cobra.Command {
	var storedOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the alias table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if storedOnly {
				store, closeStore, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer closeStore() //nolint:errcheck
				if store == nil {
					return errNoStore
				}
				t, err := store.Load(cmd.Context())
				if err != nil {
					return err
				}
				return a.write(cmd.OutOrStdout(), t)
			}

			r, _, closeStore, err := a.loadRegistry(cmd)
			defer closeStore() //nolint:errcheck
			if err != nil {
				return err
			}
			return a.write(cmd.OutOrStdout(), r.Mappings())
		},
	}
	cmd.Flags().BoolVar(&storedOnly, "stored", false, "print only the stored table, without the built-in aliases")
	return cmd
}

func newAliasesAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "add <canonical> <alias>...",
		Short:   "Add aliases for a canonical field and save them",
		Example: `  replyparse aliases add replySuggestion 答复内容 answer_text --alias-store file --alias-path aliases.yaml`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, store, closeStore, err := a.loadRegistry(cmd)
			defer closeStore() //nolint:errcheck
			if err != nil {
				return err
			}
			if store == nil {
				return errNoStore
			}
			if err := r.AddMapping(args[0], args[1:]...); err != nil {
				return err
			}
			if err := aliasstore.Persist(cmd.Context(), store, r); err != nil {
				return err
			}
			e, _ := r.Mappings().Lookup(args[0])
			return a.write(cmd.OutOrStdout(), e)
		},
	}
}

// lookupResult is the printed form of a key resolution.
type lookupResult struct {
	Key        string  `json:"key"`
	Normalized string  `json:"normalized"`
	Canonical  string  `json:"canonical,omitempty"`
	Alias      string  `json:"alias,omitempty"`
	Match      string  `json:"match"`
	Score      float64 `json:"score,omitempty"`
}

func newAliasesLookupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <key>...",
		Short: "Show which canonical field each key maps to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, closeStore, err := a.loadRegistry(cmd)
			defer closeStore() //nolint:errcheck
			if err != nil {
				return err
			}
			opts := a.manager.Get().MappingOptions()

			results := make([]lookupResult, 0, len(args))
			for _, key := range args {
				res := lookupResult{Key: key, Normalized: alias.Normalize(key), Match: "none"}
				if m, ok := r.Resolve(key, opts); ok {
					res.Canonical, res.Alias, res.Score = m.Canonical, m.Alias, m.Score
					res.Match = "exact"
					if m.Fuzzy {
						res.Match = "fuzzy"
					}
				}
				results = append(results, res)
			}
			return a.write(cmd.OutOrStdout(), results)
		},
	}
}

func newAliasesStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print alias table statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, closeStore, err := a.loadRegistry(cmd)
			defer closeStore() //nolint:errcheck
			if err != nil {
				return err
			}
			s := r.Stats()
			return a.write(cmd.OutOrStdout(), map[string]any{
				"canonicals":      s.Canonicals,
				"aliases":         s.Aliases,
				"averagePerField": fmt.Sprintf("%.2f", s.AveragePerField()),
			})
		},
	}
}

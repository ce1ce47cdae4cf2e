package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leofalp/replyparse/core/parser"
	"github.com/leofalp/replyparse/core/record"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [kind]",
		Short: "Print the JSON Schema of a record kind",
		Long: `Print the JSON Schema of a record kind, for use as a format hint in a
prompt. Without a kind, the schemas of every kind are printed by name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := record.Kinds()
			if len(args) == 1 {
				k, err := record.ParseKind(args[0])
				if err != nil {
					return err
				}
				kinds = []record.Kind{k}
			}

			schemas := make(map[string]json.RawMessage, len(kinds))
			for _, k := range kinds {
				s, err := parser.Schema(k)
				if err != nil {
					return fmt.Errorf("schema for %s: %w", k, err)
				}
				if len(args) == 1 {
					return a.write(cmd.OutOrStdout(), s)
				}
				schemas[k.String()] = s
			}
			return a.write(cmd.OutOrStdout(), schemas)
		},
	}
}

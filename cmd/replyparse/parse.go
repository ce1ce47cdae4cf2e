package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leofalp/replyparse/core/parser"
	"github.com/leofalp/replyparse/core/record"
)

type parseFlags struct {
	kind      string
	strategy  string
	model     string
	operation string
	infer     bool
	detailed  bool
}

func newParseCmd(a *app) *cobra.Command {
	f := &parseFlags{}

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse one response read from a file or stdin",
		Long: `Parse one raw model response into a record and print it.

The response is read from the given file, or from stdin when no file is
given or the file is "-". The command fails only under the direct strategy,
when the response does not decode.`,
		Example: `  echo '{"回复建议": "好的", "风险等级": "低"}' | replyparse parse --kind analysis
  replyparse parse response.txt --kind safety-check --strategy resilient --infer`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, a, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.kind, "kind", "k", "analysis", "record kind: analysis, safety-check or extraction")
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "", "parsing strategy: direct, resilient or adaptive (default from config)")
	cmd.Flags().StringVar(&f.model, "model", "", "model that produced the response, for logs")
	cmd.Flags().StringVar(&f.operation, "operation", "", "calling operation type, for logs")
	cmd.Flags().BoolVar(&f.infer, "infer", false, "infer missing fields from free text")
	cmd.Flags().BoolVar(&f.detailed, "detailed", false, "log every pipeline stage at debug level")
	return cmd
}

// apply copies explicitly set flags into the config.
func (f *parseFlags) apply(cmd *cobra.Command, a *app) error {
	if err := a.setFlag(cmd, "strategy", "parser.strategy", f.strategy); err != nil {
		return err
	}
	if err := a.setFlag(cmd, "infer", "parser.inference", f.infer); err != nil {
		return err
	}
	return a.setFlag(cmd, "detailed", "parser.detailed_logging", f.detailed)
}

func runParse(cmd *cobra.Command, a *app, f *parseFlags, args []string) error {
	ctx := cmd.Context()

	kind, err := record.ParseKind(f.kind)
	if err != nil {
		return err
	}
	if err := f.apply(cmd, a); err != nil {
		return err
	}

	raw, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck

	p, err := a.newParser(ctx, store)
	if err != nil {
		return err
	}

	cfg := a.manager.Get()
	out := p.ParseKind(ctx, kind, raw, parser.Context{
		ModelName:       f.model,
		OperationType:   f.operation,
		Strategy:        cfg.Strategy(),
		DetailedLogging: cfg.Parser.DetailedLogging,
	})
	a.persist(ctx, store, p.Registry())

	if err := a.write(cmd.OutOrStdout(), newResult("", kind, out)); err != nil {
		return err
	}
	return out.Err
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

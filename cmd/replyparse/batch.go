package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leofalp/replyparse/core/parser"
	"github.com/leofalp/replyparse/core/record"
	"github.com/leofalp/replyparse/internal/config"
	"github.com/leofalp/replyparse/internal/utils"
	"github.com/leofalp/replyparse/providers/aliasstore/filestore"
	"github.com/leofalp/replyparse/providers/observability"
)

const maxLineSize = 4 * 1024 * 1024

// batchItem is one input line. A line that is not an object with a "text"
// member is parsed as a response on its own.
type batchItem struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Model string `json:"model"`
	Text  string `json:"text"`
}

type batchFlags struct {
	parseFlags
	workers int
	summary bool
}

// batchSummary is printed to stderr when a batch finishes.
type batchSummary struct {
	Items        int     `json:"items"`
	Failed       int     `json:"failed"`
	Recovered    int     `json:"recovered"`
	Fallbacks    int64   `json:"fallbacks"`
	Learned      int64   `json:"aliasesLearned"`
	MeanDuration float64 `json:"meanDurationMs"`
}

func newBatchCmd(a *app) *cobra.Command {
	f := &batchFlags{}

	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Parse newline-delimited responses concurrently",
		Long: `Parse one response per input line and print one result per line, in
input order.

A line may be an object {"id": ..., "kind": ..., "model": ..., "text": ...}
or the raw response itself. Aliases learned along the way are shared by all
workers and saved to the alias store at the end. With aliases.watch set and
a file store, edits to the alias file are merged while the batch runs; edits
to the config file change the strategy of lines not yet parsed.`,
		Example: `  replyparse batch captured.ndjson --kind analysis --workers 8 > parsed.ndjson`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, a, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.kind, "kind", "k", "analysis", "default record kind for lines that do not name one")
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "", "parsing strategy: direct, resilient or adaptive (default from config)")
	cmd.Flags().StringVar(&f.model, "model", "", "default model name for lines that do not name one")
	cmd.Flags().StringVar(&f.operation, "operation", "batch", "calling operation type, for logs")
	cmd.Flags().BoolVar(&f.infer, "infer", false, "infer missing fields from free text")
	cmd.Flags().BoolVar(&f.detailed, "detailed", false, "log every pipeline stage at debug level")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "number of concurrent parses (default from config)")
	cmd.Flags().BoolVar(&f.summary, "summary", true, "print a summary to stderr")
	return cmd
}

func runBatch(cmd *cobra.Command, a *app, f *batchFlags, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	defaultKind, err := record.ParseKind(f.kind)
	if err != nil {
		return err
	}
	if err := f.apply(cmd, a); err != nil {
		return err
	}
	if err := a.setFlag(cmd, "workers", "batch.workers", f.workers); err != nil {
		return err
	}

	items, err := readBatch(cmd, args)
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

	var current atomic.Pointer[config.Config]
	current.Store(a.manager.Get())
	a.manager.OnChange(func(cfg *config.Config) {
		current.Store(cfg)
		a.observer.Info(ctx, "Config reloaded",
			observability.String(observability.AttrStrategy, cfg.Strategy().String()))
	})
	a.manager.OnError(func(err error) {
		a.observer.Warn(ctx, "Config reload failed", observability.Error(err))
	})
	a.manager.WatchConfig()

	if fs, ok := store.(*filestore.Store); ok && current.Load().Aliases.Watch {
		if err := fs.Watch(ctx, p.Registry(), nil); err != nil {
			return err
		}
	}

	results := make([]result, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(current.Load().Batch.Workers)
	for i, it := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			kind := defaultKind
			if it.Kind != "" {
				k, err := record.ParseKind(it.Kind)
				if err != nil {
					results[i] = result{ID: it.ID, Kind: it.Kind, Error: err.Error()}
					return nil
				}
				kind = k
			}
			model := it.Model
			if model == "" {
				model = f.model
			}

			cfg := current.Load()
			out := p.ParseKind(gctx, kind, it.Text, parser.Context{
				OperationID:     it.ID,
				ModelName:       model,
				OperationType:   f.operation,
				Strategy:        cfg.Strategy(),
				DetailedLogging: cfg.Parser.DetailedLogging,
			})
			results[i] = newResult(it.ID, kind, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	a.persist(ctx, store, p.Registry())

	if err := a.writeBatch(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if f.summary {
		s := a.summarize(results)
		fmt.Fprintln(cmd.ErrOrStderr(), utils.JSONToString(s))
	}
	return nil
}

func (a *app) writeBatch(w io.Writer, results []result) error {
	if a.outputFormat == "yaml" {
		return a.write(w, results)
	}
	bw := bufio.NewWriter(w)
	for _, r := range results {
		if _, err := fmt.Fprintln(bw, utils.JSONToString(r)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (a *app) summarize(results []result) batchSummary {
	snap := a.observer.Snapshot()
	s := batchSummary{
		Items:        len(results),
		Fallbacks:    snap.Counters[observability.MetricFallbackCount],
		Learned:      snap.Counters[observability.MetricAliasLearnedCount],
		MeanDuration: snap.Histograms[observability.MetricParseDuration].Mean(),
	}
	for _, r := range results {
		switch {
		case r.Error != "":
			s.Failed++
		case r.Source != record.SourceDecoded.String():
			s.Recovered++
		}
	}
	return s
}

func readBatch(cmd *cobra.Command, args []string) ([]batchItem, error) {
	var in io.Reader = cmd.InOrStdin()
	name := "stdin"
	if len(args) == 1 && args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer file.Close()
		in, name = file, args[0]
	}

	var items []batchItem
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		items = append(items, decodeItem(text, line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return items, nil
}

func decodeItem(line string, n int) batchItem {
	var it batchItem
	if err := json.Unmarshal([]byte(line), &it); err != nil || it.Text == "" {
		it = batchItem{Text: line}
	}
	if it.ID == "" {
		it.ID = fmt.Sprintf("line-%d", n)
	}
	return it
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/labelscore/internal/model"
	"github.com/sells-group/labelscore/internal/pipeline"
)

var (
	batchConcurrency int
	batchRemote      bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Score every URL listed in a file",
	Long:  "Reads one URL per line (blank lines and # comments skipped) and runs the client pipeline for each, writing one JSON line per URL to stdout.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "batch: open %s", args[0])
		}
		defer f.Close() //nolint:errcheck

		urls, err := readURLs(f)
		if err != nil {
			return err
		}

		concurrency := batchConcurrency
		if concurrency == 0 {
			concurrency = cfg.Batch.Concurrency
		}

		env, err := buildClient(ctx, cfg, batchRemote)
		if err != nil {
			return err
		}
		defer env.Close()

		return processBatch(ctx, cmd.OutOrStdout(), urls, concurrency, env.Pipeline.Run)
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max URLs in flight (default from config)")
	batchCmd.Flags().BoolVar(&batchRemote, "remote", false, "invoke the hosted extract and score functions")
	rootCmd.AddCommand(batchCmd)
}

// readURLs returns the distinct URLs of r in file order.
func readURLs(r io.Reader) ([]string, error) {
	seen := make(map[string]bool)
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "batch: read urls")
	}
	return urls, nil
}

// runFunc is the callback signature for one pipeline run.
type runFunc func(ctx context.Context, rawURL string) (*model.ChainResult, error)

// batchLine is one line of batch output. Status is set to rate_limited when
// the local token bucket refused the URL, so callers can retry it later.
type batchLine struct {
	URL    string             `json:"url"`
	Status model.Status       `json:"status,omitempty"`
	Result *model.ChainResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// processBatch runs urls concurrently and writes one JSON line per URL to
// w. Individual failures, rate limiting included, are reported in the line
// and never abort the batch.
func processBatch(ctx context.Context, w io.Writer, urls []string, concurrency int, run runFunc) error {
	if len(urls) == 0 {
		zap.L().Info("no urls to process")
		return nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("urls", len(urls)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	enc := json.NewEncoder(w)
	var succeeded, failed atomic.Int64

	for _, u := range urls {
		g.Go(func() error {
			line := batchLine{URL: u}
			result, err := run(gctx, u)
			if err != nil {
				failed.Add(1)
				line.Error = err.Error()
				if errors.Is(err, pipeline.ErrRateLimited) {
					line.Status = model.StatusRateLimited
				}
				zap.L().Warn("batch: run failed", zap.String("url", u), zap.Error(err))
			} else {
				succeeded.Add(1)
				line.Result = result
			}

			mu.Lock()
			defer mu.Unlock()
			if err := enc.Encode(line); err != nil {
				return eris.Wrap(err, "batch: write result")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

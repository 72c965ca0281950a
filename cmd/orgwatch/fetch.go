package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/orgwatch/internal/adapters/reddit"
	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/pkg/logger"
)

var (
	fetchConcurrency int
	fetchSeparate    bool
	fetchSummaryOnly bool
	fetchTimeout     time.Duration
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>...",
	Short: "Fetch reddit threads or listings and run the pipeline over them",
	Long: "Fetches every URL (a thread, subreddit or search page; .json is appended) with retries. " +
		"All items form one batch unless --separate runs one batch per URL.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := reddit.NewClient(
			reddit.WithUserAgent(cfg.RedditUserAgent),
			reddit.WithAttempts(uint(cfg.RedditAttempts)),
			reddit.WithLogger(logger.Get().Named("reddit")),
		)

		batches := make([][]model.RawItem, len(args))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(fetchConcurrency, 1))
		for i, raw := range args {
			g.Go(func() error {
				target, err := reddit.ListingURL(raw)
				if err != nil {
					return err
				}
				fctx, cancel := context.WithTimeout(gctx, fetchTimeout)
				defer cancel()
				items, err := client.Fetch(fctx, target)
				if err != nil {
					return err
				}
				logger.Get().Info(gctx, "fetched listing", logger.String("url", target), logger.Int("items", len(items)))
				batches[i] = items
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		if !fetchSeparate {
			var all []model.RawItem
			for _, b := range batches {
				all = append(all, b...)
			}
			return writeResult(cmd.OutOrStdout(), p.Run(all, nil), fetchSummaryOnly)
		}

		results, err := p.RunBatches(ctx, batches, nil, fetchConcurrency)
		if err != nil {
			return err
		}
		for _, res := range results {
			if err := writeResult(cmd.OutOrStdout(), res, fetchSummaryOnly); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().IntVar(&fetchConcurrency, "concurrency", 4, "max concurrent fetches and batch runs")
	fetchCmd.Flags().BoolVar(&fetchSeparate, "separate", false, "run one batch per URL")
	fetchCmd.Flags().BoolVar(&fetchSummaryOnly, "summary", false, "print only the run summaries")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 30*time.Second, "timeout per URL, retries included")
	rootCmd.AddCommand(fetchCmd)
}

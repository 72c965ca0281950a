package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/okian/orgwatch/internal/adapters/reddit"
	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/internal/domain/pipeline"
	"github.com/okian/orgwatch/pkg/logger"
)

var (
	runFormat      string
	runSummaryOnly bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run the pipeline over a file of items ('-' reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		items, err := readItems(cmd.InOrStdin(), args[0], runFormat)
		if err != nil {
			return err
		}
		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}

		res := p.Run(items, nil)
		logger.Get().Info(ctx, "pipeline run finished",
			logger.Int("items", len(items)),
			logger.Int("entities", res.Summary.TotalEntities),
			logger.Int("published", res.Summary.PublishedCount))
		return writeResult(cmd.OutOrStdout(), res, runSummaryOnly)
	},
}

func init() {
	runCmd.Flags().StringVar(&runFormat, "format", "items", "input format: items (JSON array of raw items) or listing (reddit listing JSON)")
	runCmd.Flags().BoolVar(&runSummaryOnly, "summary", false, "print only the run summary")
	rootCmd.AddCommand(runCmd)
}

// newPipeline builds a pipeline from the loaded configuration.
func newPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	pc, err := cfg.PipelineConfig(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pc)
}

func readItems(stdin io.Reader, path, format string) ([]model.RawItem, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	switch format {
	case "items":
		var items []model.RawItem
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, eris.Wrapf(err, "decode items from %s", path)
		}
		return items, nil
	case "listing":
		return reddit.ParseListing(data)
	default:
		return nil, eris.Errorf("unknown input format %q", format)
	}
}

func writeResult(w io.Writer, res pipeline.Result, summaryOnly bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if summaryOnly {
		return enc.Encode(res.Summary)
	}
	return enc.Encode(res)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/risk-sentinel/internal/job"
	"github.com/jonathan/risk-sentinel/internal/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one collection and assessment job to completion",
	Long: `Collects content from the named sources, scores every item with the rule
engine, enriches borderline items through the configured oracles, and prints
each assessment as it completes.`,
	RunE: runScan,
}

var (
	scanConfigPath  string
	scanSources     []string
	scanLimit       int
	scanKeywords    []string
	scanWindow      string
	scanUseOracle   bool
	scanForceOracle bool
	scanJSON        bool
)

func init() {
	scanCmd.Flags().StringVar(&scanConfigPath, "config", "", "Path to config.json file")
	scanCmd.Flags().StringSliceVarP(&scanSources, "source", "s", []string{"synthetic"}, "Source id to collect from (repeatable)")
	scanCmd.Flags().IntVarP(&scanLimit, "limit", "l", 50, "Maximum items per source")
	scanCmd.Flags().StringSliceVarP(&scanKeywords, "keyword", "k", nil, "Keyword filter for collection (repeatable)")
	scanCmd.Flags().StringVar(&scanWindow, "window", "", "Time window hint passed to sources (e.g. 24h)")
	scanCmd.Flags().BoolVar(&scanUseOracle, "oracle", false, "Consult the oracle for triage-band items")
	scanCmd.Flags().BoolVar(&scanForceOracle, "force-oracle", false, "Consult the oracle for every item")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Emit events as JSON lines")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(scanConfigPath)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("oracle") {
		scanUseOracle = cfg.OracleEnabled
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	j, err := a.store.Create(job.Params{
		Sources:     scanSources,
		Limit:       scanLimit,
		Keywords:    scanKeywords,
		TimeWindow:  scanWindow,
		UseOracle:   scanUseOracle,
		ForceOracle: scanForceOracle,
	})
	if err != nil {
		return err
	}

	events, cancel := j.Dispatcher().Subscribe()
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- a.runner.Run(ctx, j) }()

	for ev := range events {
		printEvent(ev)
	}

	if err := <-errCh; err != nil {
		return err
	}

	snap, err := a.store.Get(j.ID())
	if err != nil {
		return err
	}
	if snap.Status != job.StatusCompleted {
		return fmt.Errorf("job %s finished with status %s", snap.ID, snap.Status)
	}
	return nil
}

func printEvent(ev job.Event) {
	if scanJSON {
		line, err := json.Marshal(ev)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to encode event: %v\n", err)
			return
		}
		fmt.Println(string(line))
		return
	}

	switch ev.Type {
	case job.EventItem:
		if res, ok := ev.Data.(types.ItemResult); ok {
			fmt.Printf("[%s] %.2f %-8s %s\n",
				res.Item.Source,
				res.Assessment.FinalScore,
				res.Assessment.FinalLevel,
				truncateLine(res.Item.Text, 100))
			return
		}
		fmt.Printf("item: %v\n", ev.Data)
	case job.EventError:
		fmt.Fprintf(os.Stderr, "error: %v\n", ev.Data)
	case job.EventComplete:
		fmt.Printf("complete: %v\n", ev.Data)
	default:
		fmt.Printf("%s: %v\n", ev.Type, ev.Data)
	}
}

func truncateLine(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

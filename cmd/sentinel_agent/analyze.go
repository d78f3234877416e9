package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/risk-sentinel/internal/enrich"
	"github.com/jonathan/risk-sentinel/internal/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Score a single piece of text",
	Long: `Scores the given text with the rule engine and prints the fused
assessment. With --oracle the configured oracles are consulted when the rule
score falls in the triage band. Text is read from stdin when no argument is
given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeConfigPath string
	analyzeUseOracle  bool
	analyzeForce      bool
	analyzeJSON       bool
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeConfigPath, "config", "", "Path to config.json file")
	analyzeCmd.Flags().BoolVar(&analyzeUseOracle, "oracle", false, "Consult the oracle for triage-band scores")
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force-oracle", false, "Consult the oracle regardless of score")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the full assessment as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	text, err := analyzeInput(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(analyzeConfigPath)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("oracle") {
		analyzeUseOracle = cfg.OracleEnabled
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	item := types.ContentItem{ID: uuid.New().String(), Text: text, Source: "adhoc"}
	sig := a.engine.Score(text)

	opts := a.gateOptions()
	opts.OracleEnabled = analyzeUseOracle && len(a.oracles) > 0
	opts.Force = analyzeForce

	gate := enrich.NewGate(a.fusion, a.oracles, opts)
	results := gate.Run(ctx, []enrich.ScoredItem{{Item: item, Signal: sig}}, func() bool { return false })
	res, ok := <-results
	if !ok {
		return fmt.Errorf("analysis produced no result")
	}

	if analyzeJSON {
		out, err := json.MarshalIndent(res.Assessment, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	as := res.Assessment
	fmt.Printf("score:      %.2f (%s)\n", as.FinalScore, as.FinalLevel)
	fmt.Printf("rule score: %.2f\n", as.BaseScore)
	fmt.Printf("provenance: %s\n", as.Provenance)
	if len(as.Signal.Flags) > 0 {
		fmt.Printf("flags:      %s\n", strings.Join(as.Signal.Flags, ", "))
	}
	for _, c := range as.Contributions {
		fmt.Printf("oracle %s: adjustment %+.2f\n", c.Source, c.Applied)
	}
	return nil
}

func analyzeInput(args []string) (string, error) {
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	data, err := readAllStdin()
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no text provided: pass an argument or pipe to stdin")
	}
	return text, nil
}

func readAllStdin() ([]byte, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return nil, fmt.Errorf("no text provided: pass an argument or pipe to stdin")
	}
	return io.ReadAll(os.Stdin)
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"ArbBoard/internal/di"
	"ArbBoard/internal/domain/models"
	"ArbBoard/internal/usecase"

	"github.com/spf13/cobra"
)

var (
	signalPair   string
	signalWindow int
	signalK      float64
)

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Compute one signal snapshot and the K sensitivity grid",
	Long: `Fetch both legs of a pair, compute the rolling channel and print the
latest snapshot with its classification at five multipliers.

Window and k default to the pair's own settings when omitted.`,
	RunE: runSignal,
}

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "List configured pairs",
	RunE:  runPairs,
}

func init() {
	rootCmd.AddCommand(signalCmd, pairsCmd)

	signalCmd.Flags().StringVar(&signalPair, "pair", "", "Pair name (see 'arbboard pairs')")
	signalCmd.Flags().IntVar(&signalWindow, "window", 0, "Rolling window in trading days")
	signalCmd.Flags().Float64Var(&signalK, "k", 0, "Channel width multiplier")
	_ = signalCmd.MarkFlagRequired("pair")
}

func runSignal(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, cleanup, err := di.InitializeSignalService(cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer cleanup()

	res, err := svc.Compute(background(cmd), usecase.SignalParams{Pair: signalPair, Window: signalWindow, K: signalK})
	if err != nil {
		return err
	}
	return renderSignal(cmd.OutOrStdout(), res)
}

func runPairs(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, cleanup, err := di.InitializeSignalService(cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer cleanup()
	return renderPairs(cmd.OutOrStdout(), svc.Pairs())
}

// renderSignal prints leg prices to one decimal, spread and Z to two, and
// sensitivity bounds rounded to integers.
func renderSignal(w io.Writer, res *models.SignalResult) error {
	s := res.Snapshot
	p := res.Pair
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Description)
	fmt.Fprintf(tw, "date\t%s\n", s.Date.Format("2006-01-02"))
	fmt.Fprintf(tw, "window / k\t%d / %g\n", res.Window, res.K)
	fmt.Fprintf(tw, "%s (%s)\t%.1f\n", legName(p.NameA, p.SymbolA), p.SymbolA, s.PriceA)
	fmt.Fprintf(tw, "%s (%s)\t%.1f\n", legName(p.NameB, p.SymbolB), p.SymbolB, s.PriceB)
	fmt.Fprintf(tw, "spread\t%.2f\n", s.Spread)
	fmt.Fprintf(tw, "z\t%.2f\t%s\n", s.ZScore, s.Classification)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "K\tstatus\tbounds")
	for _, e := range res.Sensitivity {
		fmt.Fprintf(tw, "%.1f\t%s\t[%.0f, %.0f]\n", e.K, e.Classification, e.Lower, e.Upper)
	}
	return tw.Flush()
}

func renderPairs(w io.Writer, pairs []models.PairDefinition) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLEGS\tFORMULA\tWINDOW\tK")
	for _, p := range pairs {
		fmt.Fprintf(tw, "%s\t%s/%s\t%g*A %+g*B\t%d\t%g\n", p.Name, p.SymbolA, p.SymbolB, p.CoeffA, p.CoeffB, p.DefaultWindow, p.DefaultK)
	}
	return tw.Flush()
}

func legName(name, symbol string) string {
	if name == "" {
		return symbol
	}
	return name
}

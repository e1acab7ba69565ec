package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"timereport/internal/report"
)

var (
	refreshForce bool
	refreshJSON  bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <report>",
	Short: "Regenerate one report snapshot",
	Long: `Regenerate the snapshot of the report identified by id or slug and
print a short summary. A refresh inside the debounce window returns the
current snapshot unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshForce, "force", false, "Skip the debounce window")
	refreshCmd.Flags().BoolVar(&refreshJSON, "json", false, "Print the full snapshot as JSON")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	snap, err := a.reports.Refresh(cmd.Context(), args[0], refreshForce)
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("report %s is already being refreshed", args[0])
	}

	if refreshJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	printSummary(snap)
	return nil
}

func printSummary(snap *report.Snapshot) {
	fmt.Printf("Generated:  %s\n", snap.GeneratedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Entries:    %d (%d live, %d archived)\n", snap.TotalEntries, snap.DataSources.API, snap.DataSources.Archives)
	fmt.Printf("Total:      %.2f h\n", float64(snap.TotalDuration)/3600)
	if hs := snap.HoursSummary; hs != nil {
		fmt.Printf("Budget:     %.2f / %.2f h (%.1f%%)\n", hs.Consumed, hs.Contracted, hs.ConsumedPercentage)
	}
	fmt.Printf("Rate:       %.1f h/week, trend %s\n", snap.Projections.ConsumptionRatePerWeek, snap.Projections.Trend)
	if len(snap.FailedAccounts) > 0 {
		fmt.Printf("Failed:     %v\n", snap.FailedAccounts)
	}
}

package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count stored profiles and posts",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	stats, err := a.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		return printJSON(out, stats)
	}

	names := make([]string, 0, len(stats.Namespaces))
	for name := range stats.Namespaces {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(out, "Store: %s (dimension %d)\n", cfg.Store.Backend, stats.Dimension)
	for _, name := range names {
		fmt.Fprintf(out, "  %-10s %d\n", name, stats.Namespaces[name])
	}
	fmt.Fprintf(out, "  %-10s %d\n", "total", stats.Total)
	return nil
}

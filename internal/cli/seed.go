package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"xcreator/internal/adapter/fs"
	"xcreator/internal/domain"
)

var (
	seedAutoCorrect    bool
	seedSkipValidation bool
	seedDryRun         bool
)

var seedCmd = &cobra.Command{
	Use:   "seed [path]",
	Short: "Bulk-ingest handles from seed files",
	Long: `Ingest every handle listed in the seed files under path (default: the
workspace directory). Files are selected by seed.includes / seed.excludes and
hold one "handle[,category]" per line; # starts a comment.

Failures are reported at the end and do not stop the run.

Examples:
  xcreator seed
  xcreator seed ./lists --auto-correct`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().BoolVar(&seedAutoCorrect, "auto-correct", false, "accept confident classifier corrections (default from config)")
	seedCmd.Flags().BoolVar(&seedSkipValidation, "skip-validation", false, "do not ask the classifier")
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "list the handles without ingesting")
}

func runSeed(cmd *cobra.Command, args []string) error {
	root := rootDir
	if len(args) == 1 {
		root = args[0]
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	entries, err := a.LoadSeeds(root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No seed handles found.")
		return nil
	}
	if seedDryRun {
		for _, e := range entries {
			fmt.Fprintf(out, "%s\t%s\t%s:%d\n", e.Handle, e.Category, e.Source, e.Line)
		}
		return nil
	}

	autoCorrect := cfg.Seed.AutoCorrect
	if cmd.Flags().Changed("auto-correct") {
		autoCorrect = seedAutoCorrect
	}

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Seeding[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)

	report, err := a.Seed(cmd.Context(), entries, domain.IngestOptions{
		SkipValidation: seedSkipValidation,
		AutoCorrect:    autoCorrect,
	}, func(e fs.SeedEntry, _ error) {
		bar.Describe(fmt.Sprintf("[cyan]@%s[reset]", e.Handle))
		bar.Add(1) //nolint:errcheck
	})

	fmt.Fprintf(out, "Ingested %d, already stored %d, failed %d\n", report.Ingested, report.Existing, len(report.Failed))
	for _, f := range report.Failed {
		fmt.Fprintf(out, "  %s\n", f)
	}
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d handles failed", len(report.Failed), len(entries))
	}
	return nil
}

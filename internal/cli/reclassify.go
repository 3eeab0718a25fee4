package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"xcreator/internal/domain"
)

var (
	reclassifyFrom string
	reclassifyTo   string
)

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify <handle>",
	Short: "Move a stored profile to the other category",
	Long: `Move a stored profile between organization and individual without
re-fetching or re-embedding it.

Examples:
  xcreator reclassify nike --from individual --to organization`,
	Args: cobra.ExactArgs(1),
	RunE: runReclassify,
}

func init() {
	rootCmd.AddCommand(reclassifyCmd)
	reclassifyCmd.Flags().StringVar(&reclassifyFrom, "from", "", "current category (required)")
	reclassifyCmd.Flags().StringVar(&reclassifyTo, "to", "", "new category (required)")
	reclassifyCmd.MarkFlagRequired("from") //nolint:errcheck
	reclassifyCmd.MarkFlagRequired("to")   //nolint:errcheck
}

func runReclassify(cmd *cobra.Command, args []string) error {
	from, err := domain.ParseCategory(reclassifyFrom)
	if err != nil {
		return err
	}
	to, err := domain.ParseCategory(reclassifyTo)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	profile, err := a.Reclassify(cmd.Context(), args[0], from, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Moved to %s\n", profile.Key)
	return nil
}

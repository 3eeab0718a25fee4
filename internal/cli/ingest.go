package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"xcreator/internal/domain"
)

var (
	ingestCategory       string
	ingestSkipValidation bool
	ingestAutoCorrect    bool
	ingestJSON           bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <handle>",
	Short: "Fetch, embed and store one X profile",
	Long: `Fetch a profile and its recent original posts, check the category with the
classifier, embed bio and posts, and store the profile and each post.

Examples:
  xcreator ingest nike -c brand
  xcreator ingest @MKBHD -c creator --auto-correct`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestCategory, "category", "c", "", "organization|brand or individual|creator (required)")
	ingestCmd.Flags().BoolVar(&ingestSkipValidation, "skip-validation", false, "do not ask the classifier")
	ingestCmd.Flags().BoolVar(&ingestAutoCorrect, "auto-correct", false, "store under the suggested category on a confident disagreement")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output as JSON")
	ingestCmd.MarkFlagRequired("category") //nolint:errcheck
}

func runIngest(cmd *cobra.Command, args []string) error {
	category, err := domain.ParseCategory(ingestCategory)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	result, err := a.Ingest(cmd.Context(), args[0], category, domain.IngestOptions{
		SkipValidation: ingestSkipValidation,
		AutoCorrect:    ingestAutoCorrect,
	})
	if err != nil {
		var mismatch *domain.ClassificationMismatchError
		if errors.As(err, &mismatch) {
			return fmt.Errorf("%w\nrerun with -c %s or --auto-correct to accept the suggestion", err, mismatch.Suggested)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if ingestJSON {
		return printJSON(out, result)
	}

	if result.Existed {
		fmt.Fprintf(out, "Already stored as %s\n", result.Key)
		return nil
	}
	fmt.Fprintf(out, "Stored %s with %d posts\n", result.Key, result.PostCount)
	if result.Correction != nil {
		fmt.Fprintf(out, "Category corrected from %s to %s: %s\n", result.Correction.From, result.Correction.To, result.Correction.Reasoning)
	}
	if result.Validation != "" {
		fmt.Fprintf(out, "Validation: %s\n", result.Validation)
	}
	return nil
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"xcreator/internal/domain"
)

var (
	matchCategory     string
	matchTopK         int
	matchMinFollowers int
	matchMaxFollowers int
	matchRerank       bool
	matchJSON         bool
)

var matchCmd = &cobra.Command{
	Use:   "match <handle>",
	Short: "Find the closest profiles of the opposite category",
	Long: `Find creators for a brand, or brands for a creator. A profile that is not
stored yet is ingested first.

Examples:
  xcreator match nike -c organization -k 5
  xcreator match mkbhd -c individual --min-followers 10000 --rerank`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().StringVarP(&matchCategory, "category", "c", "", "category of the query profile (required)")
	matchCmd.Flags().IntVarP(&matchTopK, "top-k", "k", 0, "number of matches (default from config)")
	matchCmd.Flags().IntVar(&matchMinFollowers, "min-followers", 0, "lower bound on candidate followers")
	matchCmd.Flags().IntVar(&matchMaxFollowers, "max-followers", 0, "upper bound on candidate followers")
	matchCmd.Flags().BoolVar(&matchRerank, "rerank", false, "re-order candidates with the LLM (default from config)")
	matchCmd.Flags().BoolVar(&matchJSON, "json", false, "output as JSON")
	matchCmd.MarkFlagRequired("category") //nolint:errcheck
}

func runMatch(cmd *cobra.Command, args []string) error {
	category, err := domain.ParseCategory(matchCategory)
	if err != nil {
		return err
	}

	req := domain.MatchRequest{
		Handle:   args[0],
		Category: category,
		TopK:     cfg.Match.TopK,
		Rerank:   cfg.Match.Rerank,
	}
	if matchTopK > 0 {
		req.TopK = matchTopK
	}
	if cmd.Flags().Changed("rerank") {
		req.Rerank = matchRerank
	}
	if cmd.Flags().Changed("min-followers") {
		req.MinFollowers = &matchMinFollowers
	}
	if cmd.Flags().Changed("max-followers") {
		req.MaxFollowers = &matchMaxFollowers
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	resp, err := a.Match(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if matchJSON {
		return printJSON(out, resp)
	}
	printMatches(out, resp)
	return nil
}

func printMatches(w io.Writer, resp *domain.MatchResponse) {
	if len(resp.Matches) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return
	}

	label := ""
	if resp.Reranked {
		label = " (reranked)"
	}
	fmt.Fprintf(w, "%d matches for %s%s\n\n", len(resp.Matches), resp.Query.Key, label)
	for i, m := range resp.Matches {
		fmt.Fprintf(w, "[%d] @%s  %s  score %.3f  followers %d\n",
			i+1,
			m.Metadata.StringValue("username"),
			m.Metadata.StringValue("name"),
			m.Score,
			m.Metadata.IntValue("follower_count"),
		)
		if bio := m.Metadata.StringValue("bio"); bio != "" {
			fmt.Fprintf(w, "    %s\n", bio)
		}
	}
}

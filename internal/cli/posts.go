package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	postsTopK int
	postsJSON bool
)

var postsCmd = &cobra.Command{
	Use:   "posts <searcher> <candidate>",
	Short: "Show the candidate's posts closest to the searcher's profile",
	Long: `Explain a match: rank the candidate's stored posts by similarity to the
searcher's profile vector.

Examples:
  xcreator posts nike mkbhd -k 3`,
	Args: cobra.ExactArgs(2),
	RunE: runPosts,
}

func init() {
	rootCmd.AddCommand(postsCmd)
	postsCmd.Flags().IntVarP(&postsTopK, "top-k", "k", 5, "number of posts")
	postsCmd.Flags().BoolVar(&postsJSON, "json", false, "output as JSON")
}

func runPosts(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	posts, err := a.Posts(cmd.Context(), args[0], args[1], postsTopK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if postsJSON {
		return printJSON(out, posts)
	}
	if len(posts) == 0 {
		fmt.Fprintf(out, "No stored posts for @%s.\n", args[1])
		return nil
	}
	for i, p := range posts {
		fmt.Fprintf(out, "[%d] score %.3f  %s\n    %s\n", i+1, p.Score, p.Key, p.Metadata.StringValue("text"))
	}
	return nil
}

package cli

import (
	"github.com/spf13/cobra"

	"xcreator/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Long: `Serve ingestion and matching over HTTP:

  POST /api/ingest       {"handle","category","skip_validation","auto_correct"}
  POST /api/match        {"handle","category","top_k","min_followers","max_followers","rerank"}
  GET  /api/posts        ?searcher=&candidate=&top_k=
  POST /api/reclassify   {"handle","from","to"}
  GET  /api/stats
  GET  /health`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	h := api.New(a, logger, cfg.Match.TopK, cfg.Match.Rerank)
	return api.Serve(cmd.Context(), addr, h.Routes(cfg.Server.CORSOrigins), logger)
}

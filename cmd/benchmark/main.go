package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"xcreator/config"
	"xcreator/internal/app"
	"xcreator/internal/domain"
)

func main() {
	dir := flag.String("dir", ".", "workspace directory")
	handles := flag.String("handles", "", "comma-separated handles to match")
	category := flag.String("c", "organization", "category of the query handles")
	topK := flag.Int("k", 10, "number of matches")
	rerank := flag.Bool("rerank", false, "re-order candidates with the LLM")
	flag.Parse()

	if *handles == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -handles nike,adidas -c organization")
		fmt.Println("\nReports per handle:")
		fmt.Println("  1. Match latency (store query, plus LLM when reranking)")
		fmt.Println("  2. Score spread (top, mean, last) of the returned matches")
		os.Exit(1)
	}

	cat, err := domain.ParseCategory(*category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	// Every request must reach the store.
	cfg.Match.CacheSize = 0

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	a, err := app.New(*dir, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer a.Close() //nolint:errcheck

	ctx := context.Background()
	stats, err := a.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("MATCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Store: %s, profiles %d, posts %d, dimension %d\n",
		cfg.Store.Backend, stats.Namespaces["profiles"], stats.Namespaces["tweets"], stats.Dimension)
	fmt.Printf("Model: %s (%s), rerank %v\n\n", cfg.Embedding.Model, cfg.Embedding.Provider, *rerank)

	var total time.Duration
	var runs int
	for _, h := range strings.Split(*handles, ",") {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}

		start := time.Now()
		resp, err := a.Match(ctx, domain.MatchRequest{Handle: h, Category: cat, TopK: *topK, Rerank: *rerank})
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("@%-16s error: %v\n", h, err)
			continue
		}
		total += elapsed
		runs++

		if len(resp.Matches) == 0 {
			fmt.Printf("@%-16s %8s  no matches\n", h, elapsed.Round(time.Millisecond))
			continue
		}

		var sum float64
		for _, m := range resp.Matches {
			sum += m.Score
		}
		fmt.Printf("@%-16s %8s  n=%-3d top %.3f  mean %.3f  last %.3f  reranked %v\n",
			h, elapsed.Round(time.Millisecond), len(resp.Matches),
			resp.Matches[0].Score, sum/float64(len(resp.Matches)), resp.Matches[len(resp.Matches)-1].Score,
			resp.Reranked)
	}

	fmt.Println(strings.Repeat("-", 70))
	if runs > 0 {
		fmt.Printf("Mean latency over %d handles: %s\n", runs, (total / time.Duration(runs)).Round(time.Millisecond))
	}
}

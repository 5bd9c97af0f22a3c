package main

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"pdfchat/internal/app"
	"pdfchat/internal/chunker"
	"pdfchat/internal/fetch"
	"pdfchat/internal/httputil"
	"pdfchat/internal/index"
	"pdfchat/internal/ingest"
	"pdfchat/internal/parser"
)

func main() {
	deps, err := app.BuildIngest(context.Background())
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("ingest worker starting")

	pipeline := ingest.NewPipeline(
		deps.Log,
		deps.Store,
		fetch.New(deps.Storage, deps.Log),
		parser.NewRegistry(chunker.Options{
			MaxTokens: deps.Config.ChunkMaxTokens,
			Overlap:   deps.Config.ChunkOverlap,
		}),
		deps.Embedder,
		index.NewPersister(deps.Storage, deps.Log),
		deps.Config.EmbeddingModel,
	)

	g, ctx := errgroup.WithContext(context.Background())

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, deps.Config.QueueSubject, pipeline.HandleJob)
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(deps.Log, deps.Config.Port)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("ingest worker stopped", "err", err)
	}
}

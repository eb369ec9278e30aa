// Command quorum-solver runs the two-round batch answering pipeline:
// it loads the questions file, samples answers for every question in
// one batched engine call, writes the transcripts, then re-queries the
// engine over each transcript for a consensus final answer and writes
// those too. Each pass is gated on an enter keypress and reloads the
// questions file from scratch.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	quorum "github.com/csabak/quorum"
	"github.com/csabak/quorum/recall"
	"github.com/csabak/quorum/solve"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := quorum.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := quorum.LoadProfiles(quorum.ProfilesPath(), cfg); err != nil {
		slog.Warn("ignoring run profiles", "error", err)
	}

	client := solve.NewClient(
		quorum.ResolveEngineBaseURL(cfg),
		quorum.ResolveEngineAPIKey(cfg),
		quorum.ResolveEngineModel(cfg),
	)
	engine := solve.NewEngine(client, cfg)

	var index *recall.Index
	if quorum.RecallEnabled(cfg) {
		embedder := recall.NewEmbedder(
			quorum.ResolveEmbeddingBaseURL(cfg),
			quorum.ResolveEmbeddingAPIKey(cfg),
			quorum.ResolveEmbeddingModel(cfg),
		)
		index = recall.NewIndex(embedder, time.Duration(cfg.Embedding.TTLMinutes)*time.Minute)
		defer index.Close()
		if err := index.LoadCache(quorum.RecallCachePath()); err != nil {
			slog.Debug("no recall cache loaded", "error", err)
		}
	}

	// First interrupt cancels at the next round boundary; a second one
	// terminates the process immediately.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	in := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Press enter to start answering questions...")
		if _, err := in.ReadString('\n'); err != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}

		// The previous pass's store is discarded; every pass starts from
		// a fresh read of the questions file.
		store, err := solve.LoadQuestions(cfg.Files.Questions)
		if err != nil {
			slog.Error("load questions", "error", err)
			os.Exit(1)
		}
		slog.Info("loaded questions", "count", store.Len(), "file", cfg.Files.Questions)

		if err := engine.Run(ctx, store, cfg.Files.Answers, cfg.Files.AnswersFinal); err != nil {
			if errors.Is(err, context.Canceled) {
				slog.Info("run cancelled")
				break
			}
			slog.Error("batch run failed", "error", err)
			os.Exit(1)
		}
		slog.Info("run complete", "answers", cfg.Files.Answers, "final", cfg.Files.AnswersFinal)

		if index != nil {
			indexResults(ctx, index, store)
		}
	}
}

// indexResults adds the finalized sessions to the recall index and
// persists the embedding cache. Failures are reported but never fail
// the run; recall is a convenience layer.
func indexResults(ctx context.Context, index *recall.Index, store *quorum.Store) {
	if err := index.AddSessions(ctx, store); err != nil {
		slog.Warn("recall indexing failed", "error", err)
		return
	}
	if err := os.MkdirAll(quorum.ConfigDir(), 0755); err != nil {
		slog.Warn("cannot create config dir", "error", err)
		return
	}
	if err := index.SaveCache(quorum.RecallCachePath()); err != nil {
		slog.Warn("failed to save recall cache", "error", err)
	}
}

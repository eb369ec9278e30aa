// Command quorum-chat is an interactive conversation REPL over the
// inference engine. A turn is multiline input terminated by a blank
// line. CLEAR anywhere in a turn resets the conversation, EXIT quits,
// and "RECALL <text>" looks up similar previously answered questions
// when an embedding endpoint is configured.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"

	quorum "github.com/csabak/quorum"
	"github.com/csabak/quorum/prompt"
	"github.com/csabak/quorum/recall"
	"github.com/csabak/quorum/solve"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg, err := quorum.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
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

	run(client, cfg, index)
}

func run(gen solve.Generator, cfg *quorum.Config, index *recall.Index) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	in := bufio.NewReader(os.Stdin)
	var users, bots []string

	fmt.Printf("quorum chat (model: %s)\n", quorum.ResolveEngineModel(cfg))
	fmt.Println("finish a turn with a blank line; CLEAR resets the conversation, EXIT quits")

	for {
		// Interrupts are consumed here, at the top of each turn, so a
		// stray Ctrl-C never tears down the conversation state.
		select {
		case <-sigCh:
			fmt.Println("\ninterrupt caught; type CLEAR to reset the conversation or EXIT to quit")
			continue
		default:
		}

		turn, err := readTurn(in, os.Stdout, userLabel(len(users)))
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			break
		}

		if strings.Contains(turn, "CLEAR") {
			users, bots = nil, nil
			fmt.Println("conversation cleared")
			continue
		}
		if strings.Contains(turn, "EXIT") {
			fmt.Println("exiting...")
			break
		}
		if query, ok := strings.CutPrefix(turn, "RECALL"); ok {
			printRecall(index, strings.TrimSpace(query))
			continue
		}
		if turn == "" {
			continue
		}

		// The user turn joins the history only after a reply arrives, so
		// a failed or interrupted generation leaves the history balanced.
		next := append(append([]string(nil), users...), turn)
		p, err := prompt.Build(next, bots)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		reply, err := generateOne(gen, p, cfg.Sampling.Chat, sigCh)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Println("\ngeneration interrupted; conversation unchanged")
			} else {
				fmt.Fprintf(os.Stderr, "generation error: %v\n", err)
			}
			continue
		}

		fmt.Printf("\n\n%s: %s\n", botLabel(len(bots)), reply)
		users = next
		bots = append(bots, reply)
	}
}

// generateOne issues a single-response generation request, cancelling
// the in-flight call if an interrupt arrives while it runs.
func generateOne(gen solve.Generator, p string, params quorum.Params, sigCh <-chan os.Signal) (string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-done:
		}
	}()

	replies, err := gen.Generate(ctx, []string{p}, params)
	if err != nil {
		return "", err
	}
	if len(replies) != 1 || len(replies[0]) == 0 {
		return "", fmt.Errorf("engine returned no candidates")
	}
	return replies[0][0], nil
}

func printRecall(index *recall.Index, query string) {
	if index == nil {
		fmt.Println("recall is not configured (set embedding.base_url)")
		return
	}
	if query == "" {
		fmt.Println("usage: RECALL <question text>")
		return
	}

	matches, err := index.Search(context.Background(), query, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recall error: %v\n", err)
		return
	}
	if len(matches) == 0 {
		fmt.Println("no similar answered questions")
		return
	}
	for _, m := range matches {
		fmt.Printf("\n[%s] %s\n%s\n", m.ID, m.Question, m.FinalAnswer)
	}
}

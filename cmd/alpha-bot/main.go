// Command alpha-bot runs the Alpha conversational gateway: it bridges a
// messaging transport to an LLM backend with engagement-based access
// control, human escalation, and voice-note transcription.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/lium-dot/alpha/internal/dotenv"
	"github.com/lium-dot/alpha/internal/logging"
	"github.com/lium-dot/alpha/pkg/bot/audio"
	"github.com/lium-dot/alpha/pkg/bot/config"
	"github.com/lium-dot/alpha/pkg/bot/engage"
	"github.com/lium-dot/alpha/pkg/bot/escalate"
	"github.com/lium-dot/alpha/pkg/bot/llm"
	"github.com/lium-dot/alpha/pkg/bot/permit"
	"github.com/lium-dot/alpha/pkg/bot/router"
	"github.com/lium-dot/alpha/pkg/bot/state"
	"github.com/lium-dot/alpha/pkg/bot/stt"
	"github.com/lium-dot/alpha/pkg/bot/transport"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	if err := dotenv.Load(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		return 1
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}

	logger := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Dir:    cfg.LogDir,
	})
	slog.SetDefault(logger)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("alpha exited", "error", err)
		return 1
	}
	return 0
}

// stores bundles the three state backends behind the router's contracts.
type stores struct {
	tracker router.Tracker
	permits router.PermissionStore
	queue   router.Queue
	close   func() error
}

// openStores picks the state backend: SQLite when ALPHA_STATE_DB is set,
// otherwise the JSON permissions file plus in-memory stores.
func openStores(cfg config.Config, logger *slog.Logger) (stores, error) {
	if cfg.StateDBPath != "" {
		db, err := state.Open(cfg.StateDBPath, logger)
		if err != nil {
			return stores{}, err
		}
		return stores{tracker: db, permits: db, queue: db, close: db.Close}, nil
	}
	return stores{
		tracker: engage.NewTracker(),
		permits: permit.NewFileStore(cfg.PermissionsFile),
		queue:   escalate.NewQueue(),
		close:   func() error { return nil },
	}, nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	st, err := openStores(cfg, logger)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer st.close()

	completer := llm.New(cfg.APIKey,
		llm.WithBaseURL(cfg.APIBaseURL),
		llm.WithModel(cfg.ChatModel),
	)
	transcriber := stt.New(cfg.APIKey,
		stt.WithBaseURL(cfg.APIBaseURL),
		stt.WithModel(cfg.STTModel),
	)
	pipeline := audio.NewPipeline(
		&audio.FFmpeg{Binary: cfg.FFmpegPath, TempDir: cfg.TempDir},
		transcriber,
		logger,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridge, err := transport.Dial(ctx, cfg.BridgeURL, logger)
	if err != nil {
		return fmt.Errorf("dial bridge: %w", err)
	}
	defer bridge.Close()

	rtr := router.New(
		router.Config{
			OperatorID: cfg.OperatorID,
			WakeWord:   cfg.WakeWord,
			Threshold:  cfg.ApprovalThreshold,
		},
		router.Deps{
			Tracker:    st.tracker,
			Permits:    st.permits,
			Queue:      st.queue,
			Completer:  completer,
			Audio:      pipeline,
			Downloader: bridge,
			Sender:     bridge,
			Logger:     logger,
		},
	)

	logger.Info("alpha ready", "bridge", cfg.BridgeURL, "wake_word", cfg.WakeWord, "threshold", cfg.ApprovalThreshold)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-bridge.Messages():
				if !ok {
					return errors.New("bridge session ended")
				}
				// Each handler invocation runs on its own goroutine so a
				// hung upstream call stalls only that invocation.
				go rtr.Handle(ctx, msg)
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		return bridge.Close()
	})
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("alpha stopped")
	return nil
}

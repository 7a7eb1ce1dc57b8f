// Command server hosts blockfall sessions over websockets. Each connection
// gets its own engine; clients send intents and receive frames.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hersh/blockfall/internal/game"
	"github.com/hersh/blockfall/internal/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

const (
	AppName = "blockfall-server"
	Version = "0.1.0"

	shutdownTimeout = 5 * time.Second
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	cmd := &cli.Command{
		Name:    AppName,
		Usage:   "serve blockfall games over websockets",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "",
				Usage:   "interface to listen on",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.StringFlag{
				Name:    "port",
				Value:   "8080",
				Usage:   "port to listen on",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.DurationFlag{
				Name:    "tick",
				Value:   game.DefaultNormalInterval,
				Usage:   "gravity interval",
				Sources: cli.EnvVars("BLOCKFALL_TICK"),
			},
			&cli.DurationFlag{
				Name:    "fast-tick",
				Value:   game.DefaultFastInterval,
				Usage:   "gravity interval while soft dropping",
				Sources: cli.EnvVars("BLOCKFALL_FAST_TICK"),
			},
			&cli.Int64Flag{
				Name:    "seed",
				Value:   0,
				Usage:   "piece sequence seed, 0 for time based",
				Sources: cli.EnvVars("BLOCKFALL_SEED"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "log file and line numbers",
				Sources: cli.EnvVars("BLOCKFALL_DEBUG"),
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	cfg := game.Config{
		NormalInterval: cmd.Duration("tick"),
		FastInterval:   cmd.Duration("fast-tick"),
		Seed:           cmd.Int64("seed"),
	}
	if cfg.NormalInterval <= 0 || cfg.FastInterval <= 0 {
		return fmt.Errorf("tick intervals must be positive (tick=%s, fast-tick=%s)",
			cfg.NormalInterval, cfg.FastInterval)
	}

	hub := server.NewHub(cfg)
	addr := cmd.String("host") + ":" + cmd.String("port")
	srv := &http.Server{
		Addr:    addr,
		Handler: hub.Handler(),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("%s v%s starting on %s", AppName, Version, addr)
		log.Printf("WebSocket endpoint: ws://localhost:%s/ws", cmd.String("port"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

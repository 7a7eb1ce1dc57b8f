package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hersh/blockfall/internal/game"
	"github.com/hersh/blockfall/internal/tui"
)

// This is the standalone local entry point.
// For remote play, use:
//   Server: go run ./cmd/server
//   Client: go run ./cmd/client --server ws://localhost:8080/ws --name YourName

func main() {
	tick := flag.Duration("tick", game.DefaultNormalInterval, "gravity interval")
	fastTick := flag.Duration("fast-tick", game.DefaultFastInterval, "gravity interval while soft dropping")
	seed := flag.Int64("seed", 0, "piece sequence seed, 0 for time based")
	flag.Parse()

	name := "Player"
	if flag.NArg() > 0 {
		name = flag.Arg(0)
	}

	cfg := game.DefaultConfig()
	cfg.NormalInterval = *tick
	cfg.FastInterval = *fastTick
	if *seed != 0 {
		cfg.Seed = *seed
	}

	// nil client = local engine, no network
	model := tui.NewModel(name, cfg, nil)

	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

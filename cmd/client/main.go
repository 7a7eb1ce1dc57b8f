package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hersh/blockfall/internal/game"
	"github.com/hersh/blockfall/internal/netclient"
	"github.com/hersh/blockfall/internal/tui"
)

func main() {
	serverAddr := flag.String("server", "ws://localhost:8080/ws", "WebSocket server address")
	playerName := flag.String("name", "", "Player name (defaults to OS username)")
	flag.Parse()

	name := *playerName
	if name == "" {
		if u, err := user.Current(); err == nil && u.Username != "" {
			name = u.Username
		} else {
			name = "Player"
		}
	}

	// Connect to server
	client, err := netclient.New(*serverAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to server at %s: %v\n", *serverAddr, err)
		fmt.Fprintf(os.Stderr, "Make sure the server is running (go run ./cmd/server)\n")
		os.Exit(1)
	}
	defer client.Close()

	// The server owns the engine; the config only seeds the empty board.
	model := tui.NewModel(name, game.DefaultConfig(), client)

	p := tea.NewProgram(model, tea.WithAltScreen())

	// Wire the program into the client so readPump can send tea.Msgs
	client.SetProgram(p)
	client.Start()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/cozmogo/cozmogo/internal/logger"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cozmogo",
	Short: "Conversational front-end for a Cozmo desk robot",
	Long: `cozmogo drives a Cozmo desk robot through a conversation loop: user
input and robot observations flow into an event log, a language model
turns them into robot API calls, and a dispatcher executes the calls
against the robot (or its built-in simulator).

Conversation history persists in embedded NATS JetStream, a small web
console serves typed input and the live transcript, and the robot's
action catalog can optionally be exposed over MCP.`,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resetCmd)
}

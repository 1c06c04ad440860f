package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored conversation history for a session",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&runFlags.session, "session", "n", "", "Session name (default from config)")
	historyCmd.Flags().StringVar(&runFlags.dataDir, "data-dir", "", "Data directory for NATS storage")
	historyCmd.Flags().StringVar(&runFlags.historyFile, "history-file", "", "Read history from a plain file instead of JetStream")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := validateSession(cfg.Session); err != nil {
		return err
	}

	store, cleanup, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer func() { _ = cleanup() }()

	entries, err := store.ReadAll(cmd.Context())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("No history for session %q.\n", cfg.Session)
		return nil
	}

	for _, e := range entries {
		fmt.Println(e.Text)
	}
	return nil
}

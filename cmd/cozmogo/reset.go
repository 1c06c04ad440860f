package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase the stored conversation history for a session",
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().StringVarP(&runFlags.session, "session", "n", "", "Session name (default from config)")
	resetCmd.Flags().StringVar(&runFlags.dataDir, "data-dir", "", "Data directory for NATS storage")
	resetCmd.Flags().StringVar(&runFlags.historyFile, "history-file", "", "Erase a plain-file history instead of JetStream")
	resetCmd.Flags().BoolVarP(&resetForce, "yes", "y", false, "Skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := validateSession(cfg.Session); err != nil {
		return err
	}

	if !resetForce {
		fmt.Printf("Erase all history for session %q? [y/N] ", cfg.Session)
		var answer string
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	store, cleanup, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer func() { _ = cleanup() }()

	if err := store.Truncate(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("History for session %q erased.\n", cfg.Session)
	return nil
}

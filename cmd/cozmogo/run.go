package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cozmogo/cozmogo/internal/actions"
	"github.com/cozmogo/cozmogo/internal/capability"
	"github.com/cozmogo/cozmogo/internal/completer"
	"github.com/cozmogo/cozmogo/internal/config"
	"github.com/cozmogo/cozmogo/internal/dispatch"
	ierr "github.com/cozmogo/cozmogo/internal/errors"
	"github.com/cozmogo/cozmogo/internal/events"
	"github.com/cozmogo/cozmogo/internal/logger"
	"github.com/cozmogo/cozmogo/internal/loop"
	"github.com/cozmogo/cozmogo/internal/mcpserver"
	"github.com/cozmogo/cozmogo/internal/memory"
	"github.com/cozmogo/cozmogo/internal/natsutil"
	"github.com/cozmogo/cozmogo/internal/transcript"
	"github.com/cozmogo/cozmogo/internal/voice"
	"github.com/cozmogo/cozmogo/internal/web"
)

const defaultPersona = `You are Cozmo, a playful little desk robot with a curious personality.
You interact with the user through the function calls listed below.
Respond with one function call per line and nothing else. Use cozmo_says
to talk to the user, and keep spoken sentences short and cheerful. When
the user asks for something physical, use the matching function. Lines
starting with "System message" describe things that happened in the
world; react to them when they matter. If a result line reports a
failure, tell the user what went wrong.`

var runFlags struct {
	session     string
	dataDir     string
	webAddr     string
	model       string
	useTools    bool
	enableMCP   bool
	historyFile string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a conversation session",
	Long: `Run a conversation session until the user says the stop keyword or
the process receives an interrupt. The web console serves typed input;
say "bye" to end the session.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.session, "session", "n", "", "Session name (default from config)")
	runCmd.Flags().StringVar(&runFlags.dataDir, "data-dir", "", "Data directory for NATS storage")
	runCmd.Flags().StringVar(&runFlags.webAddr, "web-addr", "", "Web console listen address")
	runCmd.Flags().StringVarP(&runFlags.model, "model", "m", "", "Model to use")
	runCmd.Flags().BoolVar(&runFlags.useTools, "use-tools", false, "Send structured tool declarations instead of the text grammar")
	runCmd.Flags().BoolVar(&runFlags.enableMCP, "mcp", false, "Expose the action catalog over MCP")
	runCmd.Flags().StringVar(&runFlags.historyFile, "history-file", "", "Persist history to a plain file instead of JetStream")
}

// loadConfig merges config sources with explicitly set flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("session") {
		cfg.Session = runFlags.session
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = runFlags.dataDir
	}
	if cmd.Flags().Changed("web-addr") {
		cfg.WebAddr = runFlags.webAddr
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = runFlags.model
	}
	if cmd.Flags().Changed("use-tools") {
		cfg.UseTools = runFlags.useTools
	}
	if cmd.Flags().Changed("mcp") {
		cfg.EnableMCP = runFlags.enableMCP
	}
	if cmd.Flags().Changed("history-file") {
		cfg.HistoryFile = runFlags.historyFile
	}

	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.Default.SetLevel(level)
	}
	return cfg, nil
}

func validateSession(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("session name too long (max 64 characters): %s", name)
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_') {
			return fmt.Errorf("invalid session name: %s (use only alphanumeric, hyphens, underscores)", name)
		}
	}
	return nil
}

// openStore opens the configured history store. The returned cleanup is
// safe to call once, even on partial failure paths.
func openStore(cfg *config.Config) (memory.Store, func() error, error) {
	if cfg.HistoryFile != "" {
		return memory.NewFileStore(cfg.HistoryFile), func() error { return nil }, nil
	}

	ns, err := natsutil.StartEmbedded(filepath.Join(cfg.DataDir, "nats"))
	if err != nil {
		return nil, nil, err
	}
	nc, js, err := natsutil.Connect(ns)
	if err != nil {
		ns.Shutdown()
		return nil, nil, err
	}
	stream, err := natsutil.SetupStream(context.Background(), js)
	if err != nil {
		_ = natsutil.Shutdown(nc, ns)
		return nil, nil, err
	}

	cleanup := func() error { return natsutil.Shutdown(nc, ns) }
	return memory.NewJetStreamStore(js, stream, cfg.Session), cleanup, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := validateSession(cfg.Session); err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key configured: set ANTHROPIC_API_KEY or api_key in cozmogo.yml")
	}

	store, cleanup, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}

	log := events.NewLog()
	sim := capability.NewSim(log)
	set, err := capability.NewSet(sim.Actions(), sim)
	if err != nil {
		_ = cleanup()
		return fmt.Errorf("building capability set: %w", err)
	}

	// Typed input through the web console stands in for speech capture:
	// a listen request just opens and closes the capture window.
	var source voice.Source = voice.SourceFunc(func() {
		log.Append(events.ListeningStarted, "")
		log.Append(events.ListeningFinished, "")
	})
	sim.SetListenFunc(source.Listen)

	backend, err := completer.NewAnthropic(cfg.APIKey, cfg.Model, cfg.MaxTokens)
	if err != nil {
		_ = cleanup()
		return err
	}

	persona := cfg.Persona
	if persona == "" {
		persona = defaultPersona
	}

	tr := transcript.New(store)
	dispatcher := dispatch.New(set, log)
	lp := loop.New(loop.Config{
		Log:        log,
		Monitor:    voice.NewMonitor(log),
		Transcript: tr,
		Completer:  backend,
		Parser:     actions.NewParser("cozmo_", transcript.ApiLabel),
		Dispatcher: dispatcher,
		Catalog:    set.Catalog(),
		History:    store,
		Persona:    persona,
		UseTools:   cfg.UseTools,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	console := web.New(log, tr, lp)
	go func() {
		if err := console.Serve(ctx, cfg.WebAddr); err != nil {
			logger.Error("web console: %v", err)
		}
	}()

	var mcp *mcpserver.Server
	if cfg.EnableMCP {
		mcp = mcpserver.New(dispatcher, set.Catalog())
		if _, err := mcp.Start(ctx); err != nil {
			_ = cleanup()
			return fmt.Errorf("starting mcp server: %w", err)
		}
		fmt.Printf("MCP endpoint: %s\n", mcp.URL())
	}

	fmt.Printf("Session %q running. Web console: http://%s\n", cfg.Session, cfg.WebAddr)
	runErr := lp.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	var merr ierr.MultiError
	merr.Append(runErr)
	if mcp != nil {
		merr.Append(mcp.Stop())
	}
	merr.Append(cleanup())
	return merr.ErrorOrNil()
}

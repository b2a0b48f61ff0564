package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/flowlog/internal/httpserver"
	"github.com/tinytelemetry/flowlog/internal/ingest"
	"github.com/tinytelemetry/flowlog/internal/logsource"
	"github.com/tinytelemetry/flowlog/internal/severity"
)

// runServer logs events from every enabled input until the inputs drain or
// the process is signalled.
func runServer(parent context.Context, cfg appConfig) error {
	diag, cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	logger := newFlowLogger(cfg, severity.NewSink(cfg.sinkConfig()), diag)
	processor, err := ingest.NewEnvelopeProcessor(cfg.Processor, logger, cfg.logOptions())
	if err != nil {
		return err
	}

	// Start HTTP API server if enabled
	if cfg.APIEnabled {
		// Both modes serve the intake, so health reports one processed count.
		intake, ok := processor.(httpserver.Intake)
		if !ok {
			return fmt.Errorf("processor %q cannot serve the HTTP API", processor.Name())
		}
		apiServer := httpserver.NewServer(cfg.APIAddr, intake, logger.Host())
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	sources := buildSources(ctx, buildInputPlugins(InputPluginConfig{
		TCPEnabled: cfg.TCPEnabled,
		TCPAddr:    cfg.TCPAddr,
		Logger:     diag,
	}), diag)

	inputs := logsource.Merge(ctx, cfg.MuxBufferSize, sources...)

	printStartupBanner(cfg, inputs.Names(), processor.Name(), logger.Host())

	g, gctx := errgroup.WithContext(ctx)

	// Ingestion loop
	if inputs.Len() > 0 {
		g.Go(func() error {
			for env := range inputs.Lines() {
				if result := processor.ProcessEnvelope(env); result != nil && result.Err != nil {
					diag.Warn("event rejected", "source", env.Source, "error", result.Err)
				}
			}
			return nil
		})
	}

	// Without an HTTP API there is nothing left to serve once inputs close.
	g.Go(func() error {
		if !cfg.APIEnabled && inputs.Len() > 0 {
			return nil
		}
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		diag.Error("errgroup exited with error", "error", err)
	}

	cancel()
	inputs.Stop()
	diag.Info("stopped", "processed", processor.Processed())
	return nil
}

// configureRuntimeLogger routes host diagnostics, including the standard
// library logger, to the flowlog state file.
func configureRuntimeLogger() (hclog.Logger, func()) {
	opts := &hclog.LoggerOptions{
		Name:   "flowlog",
		Level:  hclog.Info,
		Output: os.Stderr,
	}
	cleanup := func() {}

	if home, err := os.UserHomeDir(); err == nil {
		logDir := filepath.Join(home, ".local", "state", "flowlog")
		if err := os.MkdirAll(logDir, 0o755); err == nil {
			f, err := os.OpenFile(filepath.Join(logDir, "flowlog.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err == nil {
				opts.Output = f
				cleanup = func() { _ = f.Close() }
			}
		}
	}

	diag := hclog.New(opts)
	log.SetFlags(0)
	log.SetOutput(diag.StandardWriter(&hclog.StandardLoggerOptions{InferLevels: true}))
	return diag, cleanup
}

func printStartupBanner(cfg appConfig, sourceNames []string, processorName, host string) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╔═╗╦  ╔═╗╦ ╦╦  ╔═╗╔═╗
    ╠╣ ║  ║ ║║║║║  ║ ║║ ╦
    ╚  ╩═╝╚═╝╚╩╝╩═╝╚═╝╚═╝`)

	var lines []string
	lines = append(lines, "", logo, "    "+dim.Render("v"+version), "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	// Inputs
	lines = append(lines, bold.Render("    Inputs"), "")

	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	if contains(sourceNames, "tcp") {
		lines = append(lines, fmt.Sprintf("    %s  TCP Ingest     %s", check, cyan.Render(cfg.TCPAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  TCP Ingest     %s", dot, dim.Render("disabled")))
	}
	if contains(sourceNames, "stdin") {
		lines = append(lines, fmt.Sprintf("    %s  Stdin          %s", check, dim.Render("piped")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Stdin          %s", dot, dim.Render("not piped")))
	}
	lines = append(lines, "")

	// Sink
	lines = append(lines, bold.Render("    Sink"), "")
	lines = append(lines, fmt.Sprintf("    %s  Logger         %s", check, dim.Render(severity.SourceName)))
	lines = append(lines, fmt.Sprintf("    %s  Level          %s", check, dim.Render(strings.ToUpper(cfg.SinkLevel))))
	lines = append(lines, fmt.Sprintf("    %s  Host           %s", check, dim.Render(host)))
	lines = append(lines, fmt.Sprintf("    %s  Processor      %s", check, dim.Render(processorName)))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	// The sink may share stdout; keep the banner on stderr.
	fmt.Fprintln(os.Stderr, strings.Join(lines, "\n"))
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}

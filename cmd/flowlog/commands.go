package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/flowlog/internal/expr"
	"github.com/tinytelemetry/flowlog/internal/flowlog"
	"github.com/tinytelemetry/flowlog/internal/ingest"
	"github.com/tinytelemetry/flowlog/internal/severity"
)

// cli carries state shared by the subcommands.
type cli struct {
	configPath string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: newViper()}

	root := &cobra.Command{
		Use:   "flowlog",
		Short: "Flow event logger",
		Long: `flowlog renders flow events into single structured log lines.

Events arrive as JSON lines on stdin or TCP, or over the HTTP API, and are
written at the requested severity with an optional formatted payload.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s, %s)", version, commit, buildTime, goVersion),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default is $HOME/.config/flowlog/config.yml)")
	root.PersistentFlags().String("host", "", "host name stamped on every line (default: detected)")
	root.PersistentFlags().String("sink-level", "", "lowest severity written by the sink")
	root.PersistentFlags().String("sink-format", "", "sink output format: text or json")
	c.bind(root.PersistentFlags(), "host", "sink-level", "sink-format")

	root.AddCommand(c.serveCmd(), c.logCmd(), c.configCmd())
	return root
}

// bind lets explicitly set flags override config file and environment values.
func (c *cli) bind(flags *pflag.FlagSet, names ...string) {
	for _, name := range names {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}
}

func (c *cli) load() (appConfig, error) {
	return loadConfigWith(c.v, c.configPath)
}

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Log events read from stdin, TCP and HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.Bool("tcp-enabled", true, "accept event lines over TCP")
	f.Int("tcp-port", defaultTCPPort, "TCP listen port")
	f.Bool("api-enabled", true, "serve the HTTP API")
	f.Int("api-port", defaultAPIPort, "HTTP API listen port")
	f.String("processor", ingest.ProcessorModeParse, "line processor: parse or passthrough")
	c.bind(f, "tcp-enabled", "tcp-port", "api-enabled", "api-port", "processor")
	return cmd
}

func (c *cli) logCmd() *cobra.Command {
	var payload string
	var encoding string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log a single event",
		Example: `  flowlog log --message "Order received" --log-type entry
  flowlog log --payload '{"id": 7}' --payload-type json --log-payload
  echo '<a><b/></a>' | flowlog log --payload - --encoding xml --payload-type xml --log-payload`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if payload == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading payload: %w", err)
				}
				payload = strings.TrimRight(string(b), "\n")
			}
			return runLog(cfg, cmd.OutOrStdout(), payload, encoding)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&payload, "payload", "p", "", "event payload, - reads stdin")
	f.StringVar(&encoding, "encoding", ingest.EncodingText, "payload encoding: text, json, base64 or xml")
	f.StringP("message", "m", "", "message template, #[expr] placeholders are evaluated")
	f.String("level", severity.Default.String(), "severity: trace, debug, info, warn, error")
	f.String("log-type", "", "log type: entry, auxiliary, intermediate, audit, exit")
	f.String("payload-type", "", "payload type: text, json, xml")
	f.Bool("log-payload", false, "append the formatted payload")
	f.Bool("truncate-payload", false, "abbreviate long payloads")
	c.bind(f, "message", "level", "log-type", "payload-type", "log-payload", "truncate-payload")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

// runLog logs one event built from the command line and writes the sink
// output to out.
func runLog(cfg appConfig, out io.Writer, payload, encoding string) error {
	sinkCfg := cfg.sinkConfig()
	sinkCfg.Output = out
	logger := newFlowLogger(cfg, severity.NewSink(sinkCfg), hclog.NewNullLogger())

	line := &ingest.EventLine{PayloadEncoding: encoding}
	if payload != "" {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		line.Payload = raw
	}

	p := ingest.NewProcessor(logger, cfg.logOptions())
	result := p.HandleLine("cli", line)
	return result.Err
}

// newFlowLogger builds the flow log processor described by cfg. Expression
// support falls back to literal messages when the CEL environment cannot be
// built.
func newFlowLogger(cfg appConfig, sink severity.Sink, diag hclog.Logger) *flowlog.Processor {
	opts := []flowlog.Option{flowlog.WithHost(cfg.Host)}
	if cfg.Expressions {
		resolver, err := expr.NewCELResolver()
		if err != nil {
			diag.Warn("expressions disabled", "error", err)
		} else {
			opts = append(opts, flowlog.WithResolver(resolver))
		}
	}
	return flowlog.NewProcessor(sink, opts...)
}

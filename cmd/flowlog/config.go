package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/flowlog/internal/flowlog"
	"github.com/tinytelemetry/flowlog/internal/ingest"
	"github.com/tinytelemetry/flowlog/internal/logsource"
	"github.com/tinytelemetry/flowlog/internal/model"
	"github.com/tinytelemetry/flowlog/internal/severity"
)

const (
	envPrefix            = "FLOWLOG"
	defaultBindHost      = "127.0.0.1"
	defaultTCPPort       = 4100
	defaultAPIPort       = 3100
	defaultMuxBufferSize = logsource.DefaultMergeBuffer
	defaultSinkFormat    = "text"
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Host            string `mapstructure:"host" yaml:"host"`
	BindHost        string `mapstructure:"bind-host" yaml:"bind-host"`
	Processor       string `mapstructure:"processor" yaml:"processor"`
	SinkLevel       string `mapstructure:"sink-level" yaml:"sink-level"`
	SinkFormat      string `mapstructure:"sink-format" yaml:"sink-format"`
	SinkColor       bool   `mapstructure:"sink-color" yaml:"sink-color"`
	Level           string `mapstructure:"level" yaml:"level"`
	PayloadType     string `mapstructure:"payload-type" yaml:"payload-type"`
	LogType         string `mapstructure:"log-type" yaml:"log-type"`
	LogPayload      bool   `mapstructure:"log-payload" yaml:"log-payload"`
	TruncatePayload bool   `mapstructure:"truncate-payload" yaml:"truncate-payload"`
	Message         string `mapstructure:"message" yaml:"message"`
	Expressions     bool   `mapstructure:"expressions" yaml:"expressions"`
	TCPEnabled      bool   `mapstructure:"tcp-enabled" yaml:"tcp-enabled"`
	TCPPort         int    `mapstructure:"tcp-port" yaml:"tcp-port"`
	TCPAddr         string `mapstructure:"tcp-addr" yaml:"tcp-addr"`
	APIEnabled      bool   `mapstructure:"api-enabled" yaml:"api-enabled"`
	APIPort         int    `mapstructure:"api-port" yaml:"api-port"`
	APIAddr         string `mapstructure:"api-addr" yaml:"api-addr"`
	MuxBufferSize   int    `mapstructure:"mux-buffer-size" yaml:"mux-buffer-size"`
	ConfigPath      string `mapstructure:"-" yaml:"-"` // not from config file
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "flowlog", "config.yml"), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("host", "")
	v.SetDefault("bind-host", defaultBindHost)
	v.SetDefault("processor", ingest.ProcessorModeParse)
	v.SetDefault("sink-level", severity.Default.String())
	v.SetDefault("sink-format", defaultSinkFormat)
	v.SetDefault("sink-color", false)
	v.SetDefault("level", severity.Default.String())
	v.SetDefault("payload-type", model.DefaultPayloadType.String())
	v.SetDefault("log-type", model.DefaultLogType.String())
	v.SetDefault("log-payload", false)
	v.SetDefault("truncate-payload", false)
	v.SetDefault("message", "")
	v.SetDefault("expressions", true)
	v.SetDefault("tcp-enabled", true)
	v.SetDefault("tcp-port", defaultTCPPort)
	v.SetDefault("tcp-addr", "")
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("api-addr", "")
	v.SetDefault("mux-buffer-size", defaultMuxBufferSize)
	return v
}

// loadConfig reads defaults, the optional config file and FLOWLOG_*
// environment variables, in increasing precedence. A missing config file is
// not an error.
func loadConfig(configPath string) (appConfig, error) {
	return loadConfigWith(newViper(), configPath)
}

func loadConfigWith(v *viper.Viper, configPath string) (appConfig, error) {
	var cfg appConfig

	if configPath == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return cfg, err
		}
		configPath = p
	}
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	} else {
		cfg.ConfigPath = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	if cfg.TCPAddr == "" {
		cfg.TCPAddr = net.JoinHostPort(cfg.BindHost, strconv.Itoa(cfg.TCPPort))
	}
	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(cfg.BindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}

func (c appConfig) validate() error {
	if c.TCPPort <= 0 || c.TCPPort > 65535 {
		return fmt.Errorf("invalid tcp-port: %d", c.TCPPort)
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid api-port: %d", c.APIPort)
	}
	if _, err := severity.Parse(c.SinkLevel); err != nil {
		return fmt.Errorf("invalid sink-level: %w", err)
	}
	if _, err := severity.Parse(c.Level); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	if _, err := model.ParsePayloadType(c.PayloadType); err != nil {
		return fmt.Errorf("invalid payload-type: %w", err)
	}
	if _, err := model.ParseLogType(c.LogType); err != nil {
		return fmt.Errorf("invalid log-type: %w", err)
	}
	switch strings.ToLower(c.SinkFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid sink-format: %q", c.SinkFormat)
	}
	switch strings.ToLower(c.Processor) {
	case ingest.ProcessorModeParse, ingest.ProcessorModePassthrough:
	default:
		return fmt.Errorf("invalid processor: %q", c.Processor)
	}
	if c.MuxBufferSize < 0 {
		return fmt.Errorf("invalid mux-buffer-size: %d", c.MuxBufferSize)
	}
	return nil
}

// logOptions returns the per-event defaults. It assumes a validated config.
func (c appConfig) logOptions() flowlog.Options {
	level, _ := severity.Parse(c.Level)
	pt, _ := model.ParsePayloadType(c.PayloadType)
	lt, _ := model.ParseLogType(c.LogType)
	return flowlog.Options{
		Message:         c.Message,
		Level:           level,
		PayloadType:     pt,
		LogType:         lt,
		LogPayload:      c.LogPayload,
		TruncatePayload: c.TruncatePayload,
	}
}

func (c appConfig) sinkConfig() severity.SinkConfig {
	threshold, _ := severity.Parse(c.SinkLevel)
	return severity.SinkConfig{
		Threshold: threshold,
		Format:    c.SinkFormat,
		Output:    os.Stdout,
		Color:     c.SinkColor,
	}
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/e7canasta/orion-stream-health/internal/config"
)

const (
	defaultHTTPAddr      = "127.0.0.1:8700"
	defaultCameraDevice  = "/dev/video0"
	defaultScreenDisplay = ":0"
	defaultCaptureWidth  = 1280
	defaultCaptureHeight = 720
	defaultCaptureFPS    = 30.0
	defaultLogLevel      = "info"
)

// appConfig is the resolved runtime configuration: flags layered over an
// optional YAML config file, monitor settings handed off to the settings
// store.
type appConfig struct {
	HTTPAddr      string   `mapstructure:"http-addr"`
	CameraDevice  string   `mapstructure:"camera-device"`
	ScreenDisplay string   `mapstructure:"screen-display"`
	CaptureWidth  int      `mapstructure:"capture-width"`
	CaptureHeight int      `mapstructure:"capture-height"`
	CaptureFPS    float64  `mapstructure:"capture-fps"`
	Synthetic     bool     `mapstructure:"synthetic"`
	StartSources  []string `mapstructure:"start-sources"`
	LogLevel      string   `mapstructure:"log-level"`

	Settings *config.Settings `mapstructure:"-"`
}

func registerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "path to config file (YAML)")
	f.String("http-addr", defaultHTTPAddr, "HTTP API listen address")
	f.String("camera-device", defaultCameraDevice, "V4L2 device for the camera source")
	f.String("screen-display", defaultScreenDisplay, "X display for the screen source")
	f.Int("capture-width", defaultCaptureWidth, "capture width in pixels")
	f.Int("capture-height", defaultCaptureHeight, "capture height in pixels")
	f.Float64("capture-fps", defaultCaptureFPS, "target capture frame rate")
	f.Bool("synthetic", false, "use generated test sources instead of real capture")
	f.StringSlice("start-sources", []string{"camera", "screen"}, "sources to activate at startup (empty for none)")
	f.String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")
}

func loadConfig(cmd *cobra.Command) (*appConfig, error) {
	v := viper.New()
	config.SetDefaults(v)

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("STREAM_HEALTH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Settings = config.Load(v)

	if cfg.CaptureWidth <= 0 || cfg.CaptureHeight <= 0 {
		return nil, errors.New("capture dimensions must be positive")
	}
	if cfg.CaptureFPS <= 0 || cfg.CaptureFPS > 60 {
		return nil, fmt.Errorf("invalid capture fps %.2f (must be in (0, 60])", cfg.CaptureFPS)
	}

	return &cfg, nil
}

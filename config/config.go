// Package config loads the runtime configuration of the agrobot controller.
//
// Values come from DefaultConfig, then an optional YAML file, then
// AGROBOT_* environment variables, each overriding the previous.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v2"

	"github.com/bluefox/agrobot/activity"
	"github.com/bluefox/agrobot/actuator"
	"github.com/bluefox/agrobot/harvest"
	"github.com/bluefox/agrobot/motion"
)

type Config struct {
	Listen   string `yaml:"listen" env:"AGROBOT_LISTEN"`
	Database string `yaml:"database" env:"AGROBOT_DB"`

	Serial     actuator.Options `yaml:"serial"`
	Camera     Camera           `yaml:"camera"`
	Classifier Classifier       `yaml:"classifier"`
	Log        Log              `yaml:"log"`

	Harvest  harvest.Timings `yaml:"harvest"`
	Playback motion.Timings  `yaml:"playback"`

	// PollInterval is how often background activities check for cancellation.
	PollInterval time.Duration `yaml:"pollInterval" env:"AGROBOT_POLL_INTERVAL"`

	// HomeGap separates the moves of the return-home sequence.
	HomeGap time.Duration `yaml:"homeGap" env:"AGROBOT_HOME_GAP"`
}

type Camera struct {
	// Device is a capture device index ("0") or a file/stream URL.
	Device  string `yaml:"device" env:"AGROBOT_CAMERA_DEVICE"`
	Width   int    `yaml:"width" env:"AGROBOT_CAMERA_WIDTH"`
	Height  int    `yaml:"height" env:"AGROBOT_CAMERA_HEIGHT"`
	Quality int    `yaml:"quality" env:"AGROBOT_CAMERA_QUALITY"`
	Disable bool   `yaml:"disable" env:"AGROBOT_CAMERA_DISABLE"`
}

type Classifier struct {
	// URL of the inference server. Empty disables diagnosis.
	URL     string        `yaml:"url" env:"AGROBOT_CLASSIFIER_URL"`
	Timeout time.Duration `yaml:"timeout" env:"AGROBOT_CLASSIFIER_TIMEOUT"`
}

type Log struct {
	File     string `yaml:"file" env:"AGROBOT_LOG_FILE"`
	MaxBytes int    `yaml:"maxBytes" env:"AGROBOT_LOG_MAX_BYTES"`
	Backups  int    `yaml:"backups" env:"AGROBOT_LOG_BACKUPS"`
	Stdout   bool   `yaml:"stdout" env:"AGROBOT_LOG_STDOUT"`
}

// DefaultConfig returns the configuration of the stock robot.
func DefaultConfig() *Config {
	return &Config{
		Listen:   ":5000",
		Database: "agrobot.db",
		Serial: actuator.Options{
			Ports:           []string{"/dev/ttyACM0", "/dev/ttyUSB0"},
			Baud:            9600,
			ResetDelay:      2 * time.Second,
			DistanceTimeout: actuator.DefaultDistanceTimeout,
		},
		Camera: Camera{
			Device:  "0",
			Width:   320,
			Height:  240,
			Quality: 80,
		},
		Classifier: Classifier{Timeout: 10 * time.Second},
		Log: Log{
			MaxBytes: 5 * 1024 * 1024,
			Backups:  3,
			Stdout:   true,
		},
		Harvest:      harvest.DefaultTimings(),
		Playback:     motion.DefaultTimings(),
		PollInterval: activity.DefaultPollInterval,
		HomeGap:      200 * time.Millisecond,
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			log.Printf("config: %s not found, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

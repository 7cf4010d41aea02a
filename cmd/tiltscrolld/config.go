package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tiltscroll/internal/tilt"
)

// Config is the top-level YAML configuration for the tiltscrolld daemon.
//
// Keep defaults and validation centralized so the rest of the code can assume
// a well-formed config. Flags are small overrides on top of the file.
type Config struct {
	// Scroll tuning and start-up state
	Scroll ScrollConfig `yaml:"scroll"`

	// Orientation sources
	Sensors SensorsConfig `yaml:"sensors"`

	// MQTT pose source and decision publisher
	MQTT MQTTConfig `yaml:"mqtt"`

	// IPC configuration (tiltscroll-ctl, touch handlers, scripts)
	IPC IPCConfig `yaml:"ipc"`

	// State websocket / HTTP
	HTTP HTTPConfig `yaml:"http"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ScrollConfig maps 1:1 onto tilt.Config plus the host-side knobs.
// A zero estimator field means "use the stock value".
type ScrollConfig struct {
	DeadZoneDeg         int `yaml:"dead_zone_deg"`
	ForwardToleranceDeg int `yaml:"forward_tolerance_deg"`
	BaseIntervalMS      int `yaml:"base_interval_ms"`
	SpeedUpStepMS       int `yaml:"speed_up_step_ms"`
	IdleIntervalMS      int `yaml:"idle_interval_ms"`

	// MinTickMS floors the scroll timer so a 0 ms decision cannot spin the loop.
	MinTickMS int `yaml:"min_tick_ms"`

	// TiltToScroll is the initial value of the user preference.
	TiltToScroll bool `yaml:"tilt_to_scroll"`

	// EnableOnStart requests tilt scrolling as soon as sensors are reported.
	EnableOnStart bool `yaml:"enable_on_start"`

	// Rotation is the initial display rotation in degrees.
	Rotation int `yaml:"rotation"`
}

type SensorsConfig struct {
	// Mock enables the synthetic orientation source.
	Mock           bool `yaml:"mock"`
	MockIntervalMS int  `yaml:"mock_interval_ms"`

	// Devices lists evdev accelerometer nodes (e.g. /dev/input/by-path/...-event-accel).
	Devices []string `yaml:"devices,omitempty"`

	// IPC declares that an external process delivers attitude events over the
	// IPC socket, which counts as an orientation sensor.
	IPC bool `yaml:"ipc"`
}

type MQTTConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"client_id,omitempty"` // empty: derived from the session id
	PoseTopic     string `yaml:"pose_topic"`
	DecisionTopic string `yaml:"decision_topic"`
	QoS           int    `yaml:"qos"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen"` // empty disables the HTTP server
	WSPath string `yaml:"ws_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go and the tilt package defaults.
func DefaultConfig() Config {
	est := tilt.DefaultConfig()
	return Config{
		Scroll: ScrollConfig{
			DeadZoneDeg:         est.DeadZoneDeg,
			ForwardToleranceDeg: est.ForwardToleranceDeg,
			BaseIntervalMS:      est.BaseIntervalMS,
			SpeedUpStepMS:       est.SpeedUpStepMS,
			IdleIntervalMS:      est.IdleIntervalMS,
			MinTickMS:           defaultMinTickMS,
			TiltToScroll:        true,
			EnableOnStart:       false,
			Rotation:            0,
		},
		Sensors: SensorsConfig{
			Mock:           false,
			MockIntervalMS: defaultMockIntervalMS,
		},
		MQTT: MQTTConfig{
			Enabled:       false,
			Broker:        "tcp://localhost:1883",
			PoseTopic:     defaultMQTTPoseTopic,
			DecisionTopic: defaultMQTTDecisionTopic,
			QoS:           0,
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		HTTP: HTTPConfig{
			Listen: defaultHTTPListen,
			WSPath: defaultWSPath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logFormatText,
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
// Each override is only applied if its pointer is non-nil (i.e. the flag was set).
type FlagOverrides struct {
	DeadZoneDeg         *int
	ForwardToleranceDeg *int
	BaseIntervalMS      *int
	SpeedUpStepMS       *int
	IdleIntervalMS      *int
	MinTickMS           *int
	TiltToScroll        *bool
	EnableOnStart       *bool
	Rotation            *int

	Mock      *bool
	Devices   *string // comma separated
	IPCSensor *bool

	MQTTEnabled *bool
	MQTTBroker  *string

	IPCSocketPath *string
	HTTPListen    *string

	LogLevel  *string
	LogFormat *string
}

// Apply merges the overrides into cfg. A non-nil pointer is applied even if it
// holds the zero value.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.DeadZoneDeg != nil {
		cfg.Scroll.DeadZoneDeg = *o.DeadZoneDeg
	}
	if o.ForwardToleranceDeg != nil {
		cfg.Scroll.ForwardToleranceDeg = *o.ForwardToleranceDeg
	}
	if o.BaseIntervalMS != nil {
		cfg.Scroll.BaseIntervalMS = *o.BaseIntervalMS
	}
	if o.SpeedUpStepMS != nil {
		cfg.Scroll.SpeedUpStepMS = *o.SpeedUpStepMS
	}
	if o.IdleIntervalMS != nil {
		cfg.Scroll.IdleIntervalMS = *o.IdleIntervalMS
	}
	if o.MinTickMS != nil {
		cfg.Scroll.MinTickMS = *o.MinTickMS
	}
	if o.TiltToScroll != nil {
		cfg.Scroll.TiltToScroll = *o.TiltToScroll
	}
	if o.EnableOnStart != nil {
		cfg.Scroll.EnableOnStart = *o.EnableOnStart
	}
	if o.Rotation != nil {
		cfg.Scroll.Rotation = *o.Rotation
	}

	if o.Mock != nil {
		cfg.Sensors.Mock = *o.Mock
	}
	if o.Devices != nil {
		cfg.Sensors.Devices = splitList(*o.Devices)
	}
	if o.IPCSensor != nil {
		cfg.Sensors.IPC = *o.IPCSensor
	}

	if o.MQTTEnabled != nil {
		cfg.MQTT.Enabled = *o.MQTTEnabled
	}
	if o.MQTTBroker != nil {
		cfg.MQTT.Broker = *o.MQTTBroker
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPListen != nil {
		cfg.HTTP.Listen = *o.HTTPListen
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Scroll
	if err := c.ToEstimatorConfig().WithDefaults().Validate(); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	if c.Scroll.MinTickMS < 1 {
		return errors.New("scroll.min_tick_ms must be >= 1")
	}
	if _, err := tilt.ParseRotation(c.Scroll.Rotation); err != nil {
		return fmt.Errorf("scroll.rotation: %w", err)
	}

	// Sensors
	if c.Sensors.Mock && c.Sensors.MockIntervalMS <= 0 {
		return errors.New("sensors.mock_interval_ms must be > 0")
	}
	for i, dev := range c.Sensors.Devices {
		if dev == "" {
			return fmt.Errorf("sensors.devices[%d] is empty", i)
		}
	}

	// MQTT
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return errors.New("mqtt.enabled is true but mqtt.broker is empty")
		}
		if c.MQTT.PoseTopic == "" && c.MQTT.DecisionTopic == "" {
			return errors.New("mqtt.enabled is true but neither mqtt.pose_topic nor mqtt.decision_topic is set")
		}
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return errors.New("mqtt.qos must be 0, 1 or 2")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// HTTP
	if c.HTTP.Listen != "" && !strings.HasPrefix(c.HTTP.WSPath, "/") {
		return errors.New("http.ws_path must start with /")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if !validLogFormat(c.Logging.Format) {
		return fmt.Errorf("logging.format must be %q or %q", logFormatText, logFormatJSON)
	}

	return nil
}

// ToEstimatorConfig converts the file config into the estimator tuning.
func (c *Config) ToEstimatorConfig() tilt.Config {
	return tilt.Config{
		DeadZoneDeg:         c.Scroll.DeadZoneDeg,
		ForwardToleranceDeg: c.Scroll.ForwardToleranceDeg,
		BaseIntervalMS:      c.Scroll.BaseIntervalMS,
		SpeedUpStepMS:       c.Scroll.SpeedUpStepMS,
		IdleIntervalMS:      c.Scroll.IdleIntervalMS,
	}
}

// MinTick returns the scroll timer floor.
func (c *Config) MinTick() time.Duration {
	return time.Duration(c.Scroll.MinTickMS) * time.Millisecond
}

// HasSources reports whether any orientation source is configured.
func (c *Config) HasSources() bool {
	return c.Sensors.Mock || c.Sensors.IPC || len(c.Sensors.Devices) > 0 || (c.MQTT.Enabled && c.MQTT.PoseTopic != "")
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

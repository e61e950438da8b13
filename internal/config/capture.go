package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/motion.capture/internal/capture"
	"github.com/banshee-data/motion.capture/internal/exercise"
	"github.com/banshee-data/motion.capture/internal/transport"
)

// DefaultConfigPath is the path to the canonical capture defaults file.
const DefaultConfigPath = "config/capture.defaults.json"

// CaptureConfig holds the tunables of a capture run. Every field is
// optional; the Get* methods fall back to the built-in defaults, so partial
// configs are safe.
type CaptureConfig struct {
	// Error budget
	ErrorThreshold *int    `json:"error_threshold,omitempty"`
	AbortMessage   *string `json:"abort_message,omitempty"`

	// Producer loop
	PollInterval  *string `json:"poll_interval,omitempty"` // duration string like "100ms"
	ReadChunkSize *int    `json:"read_chunk_size,omitempty"`

	// Outbound events
	EventBuffer    *int    `json:"event_buffer,omitempty"`
	StatusInterval *string `json:"status_interval,omitempty"`

	// Persistence
	OutputDir   *string `json:"output_dir,omitempty"`
	JournalPath *string `json:"journal_path,omitempty"` // empty disables the journal

	// Ports maps a sensor role prefix ("right_hand", "ball", ...) to the
	// serial device bridging that sensor.
	Ports map[string]SensorPort `json:"ports,omitempty"`

	// Replay tunes dev-mode fixture playback.
	Replay *ReplayConfig `json:"replay,omitempty"`
}

// SensorPort locates one sensor's byte stream.
type SensorPort struct {
	Path string `json:"path"`
	transport.PortOptions
}

// ReplayConfig mirrors transport.ReplayOptions with a JSON friendly
// interval.
type ReplayConfig struct {
	MaxChunk *int    `json:"max_chunk,omitempty"`
	Interval *string `json:"interval,omitempty"`
	Loop     *bool   `json:"loop,omitempty"`
}

func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }
func ptrBool(v bool) *bool       { return &v }

// EmptyCaptureConfig returns a CaptureConfig with every field unset.
func EmptyCaptureConfig() *CaptureConfig {
	return &CaptureConfig{}
}

// DefaultCaptureConfig returns a CaptureConfig with every field set to its
// default.
func DefaultCaptureConfig() *CaptureConfig {
	return &CaptureConfig{
		ErrorThreshold: ptrInt(capture.DefaultErrorThreshold),
		AbortMessage:   ptrString(capture.DefaultAbortMessage),
		PollInterval:   ptrString("100ms"),
		ReadChunkSize:  ptrInt(capture.DefaultReadChunkSize),
		EventBuffer:    ptrInt(capture.DefaultEventBuffer),
		StatusInterval: ptrString("1s"),
		OutputDir:      ptrString("./data"),
		JournalPath:    ptrString(""),
		Ports:          map[string]SensorPort{},
		Replay: &ReplayConfig{
			MaxChunk: ptrInt(20),
			Interval: ptrString("10ms"),
			Loop:     ptrBool(false),
		},
	}
}

// LoadCaptureConfig loads a CaptureConfig from a JSON file. The file must
// have a .json extension and be under 1MB.
func LoadCaptureConfig(path string) (*CaptureConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyCaptureConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// current directory. It panics if the file cannot be loaded and is intended
// for test setup.
func MustLoadDefaultConfig() *CaptureConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/<pkg>/
		"../../../" + DefaultConfigPath, // from cmd/<tool>/ subdirectories
	}
	for _, path := range candidates {
		if cfg, err := LoadCaptureConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *CaptureConfig) Validate() error {
	if c.ErrorThreshold != nil && *c.ErrorThreshold < 1 {
		return fmt.Errorf("error_threshold must be at least 1, got %d", *c.ErrorThreshold)
	}
	if c.ReadChunkSize != nil && *c.ReadChunkSize < 1 {
		return fmt.Errorf("read_chunk_size must be positive, got %d", *c.ReadChunkSize)
	}
	if c.EventBuffer != nil && *c.EventBuffer < 1 {
		return fmt.Errorf("event_buffer must be positive, got %d", *c.EventBuffer)
	}

	for name, v := range map[string]*string{
		"poll_interval":   c.PollInterval,
		"status_interval": c.StatusInterval,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	for role, p := range c.Ports {
		if _, ok := sensorByPrefix(role); !ok {
			return fmt.Errorf("ports: unknown sensor role %q", role)
		}
		if p.Path == "" {
			return fmt.Errorf("ports: %s has no path", role)
		}
		if _, err := p.PortOptions.Normalise(); err != nil {
			return fmt.Errorf("ports: %s: %w", role, err)
		}
	}

	if c.Replay != nil {
		if c.Replay.MaxChunk != nil && *c.Replay.MaxChunk < 1 {
			return fmt.Errorf("replay.max_chunk must be positive, got %d", *c.Replay.MaxChunk)
		}
		if c.Replay.Interval != nil && *c.Replay.Interval != "" {
			if _, err := time.ParseDuration(*c.Replay.Interval); err != nil {
				return fmt.Errorf("invalid replay.interval '%s': %w", *c.Replay.Interval, err)
			}
		}
	}
	return nil
}

func sensorByPrefix(prefix string) (exercise.SensorID, bool) {
	for _, r := range exercise.Roles() {
		if r.Prefix == prefix {
			return r.ID, true
		}
	}
	return 0, false
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetErrorThreshold returns the error_threshold value or the default.
func (c *CaptureConfig) GetErrorThreshold() int {
	if c.ErrorThreshold == nil {
		return capture.DefaultErrorThreshold
	}
	return *c.ErrorThreshold
}

// GetAbortMessage returns the abort_message value or the default.
func (c *CaptureConfig) GetAbortMessage() string {
	if c.AbortMessage == nil || *c.AbortMessage == "" {
		return capture.DefaultAbortMessage
	}
	return *c.AbortMessage
}

// GetPollInterval parses and returns the PollInterval.
func (c *CaptureConfig) GetPollInterval() time.Duration {
	return durationOr(c.PollInterval, capture.DefaultPollInterval)
}

// GetReadChunkSize returns the read_chunk_size value or the default.
func (c *CaptureConfig) GetReadChunkSize() int {
	if c.ReadChunkSize == nil {
		return capture.DefaultReadChunkSize
	}
	return *c.ReadChunkSize
}

// GetEventBuffer returns the event_buffer value or the default.
func (c *CaptureConfig) GetEventBuffer() int {
	if c.EventBuffer == nil {
		return capture.DefaultEventBuffer
	}
	return *c.EventBuffer
}

// GetStatusInterval parses and returns the StatusInterval.
func (c *CaptureConfig) GetStatusInterval() time.Duration {
	return durationOr(c.StatusInterval, capture.DefaultStatusInterval)
}

// GetOutputDir returns the output_dir value or the default.
func (c *CaptureConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "./data"
	}
	return *c.OutputDir
}

// GetJournalPath returns the journal_path value; empty means no journal.
func (c *CaptureConfig) GetJournalPath() string {
	if c.JournalPath == nil {
		return ""
	}
	return *c.JournalPath
}

// GetPort returns the configured port for sensor id.
func (c *CaptureConfig) GetPort(id exercise.SensorID) (SensorPort, bool) {
	if !id.Valid() {
		return SensorPort{}, false
	}
	p, ok := c.Ports[id.Role().Prefix]
	if !ok {
		return SensorPort{}, false
	}
	if opts, err := p.PortOptions.Normalise(); err == nil {
		p.PortOptions = opts
	}
	return p, true
}

// GetReplayOptions returns the replay settings with defaults applied.
func (c *CaptureConfig) GetReplayOptions() transport.ReplayOptions {
	opts := transport.ReplayOptions{MaxChunk: 20, Interval: 10 * time.Millisecond}
	if c.Replay == nil {
		return opts
	}
	if c.Replay.MaxChunk != nil {
		opts.MaxChunk = *c.Replay.MaxChunk
	}
	opts.Interval = durationOr(c.Replay.Interval, opts.Interval)
	if c.Replay.Loop != nil {
		opts.Loop = *c.Replay.Loop
	}
	return opts
}

// SessionOptions converts the config into capture session options. The
// caller fills in the clock, journal and identity.
func (c *CaptureConfig) SessionOptions() capture.Options {
	return capture.Options{
		ErrorThreshold: c.GetErrorThreshold(),
		AbortMessage:   c.GetAbortMessage(),
		PollInterval:   c.GetPollInterval(),
		ReadChunkSize:  c.GetReadChunkSize(),
		EventBuffer:    c.GetEventBuffer(),
		StatusInterval: c.GetStatusInterval(),
	}
}

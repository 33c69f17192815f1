package config

import (
	"fmt"
	"strings"

	"tinygo.org/x/bluefruit"
)

// maxNotifyPayload is the notification payload at the largest ATT MTU.
const maxNotifyPayload = 244

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a
// *ValidationError listing every problem found.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateDevice(cfg, ve)
	validateAdapter(cfg, ve)
	validateUART(cfg, ve)
	validateThroughput(cfg, ve)
	validateLogger(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateDevice(cfg *Config, ve *ValidationError) {
	if cfg.Device.Name == "" {
		ve.Add("device.name is required")
	}
	if len(cfg.Device.Name) > 248 {
		ve.Add("device.name must be at most 248 bytes")
	}
	if cfg.Device.Address != "" {
		if _, err := bluefruit.ParseMAC(cfg.Device.Address); err != nil {
			ve.Add("device.address %q is not a MAC address", cfg.Device.Address)
		}
	}
}

func validateAdapter(cfg *Config, ve *ValidationError) {
	switch cfg.Adapter.Backend {
	case "bluez", "loopback":
	default:
		ve.Add("adapter.backend %q must be bluez or loopback", cfg.Adapter.Backend)
	}
}

func validateUART(cfg *Config, ve *ValidationError) {
	if cfg.UART.BufferSize <= 0 {
		ve.Add("uart.buffer_size must be > 0")
	}
	if cfg.UART.MaxPayload <= 0 || cfg.UART.MaxPayload > maxNotifyPayload {
		ve.Add("uart.max_payload must be between 1 and %d", maxNotifyPayload)
	}
	if cfg.UART.PollInterval <= 0 {
		ve.Add("uart.poll_interval must be > 0")
	}
}

func validateThroughput(cfg *Config, ve *ValidationError) {
	if cfg.Throughput.Rate < 0 {
		ve.Add("throughput.rate must be >= 0")
	}
	if cfg.Throughput.Burst < 1 {
		ve.Add("throughput.burst must be >= 1")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is unknown", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json":
	default:
		ve.Add("logger.format %q must be text or json", cfg.Logger.Format)
	}
}

// Package config loads the bridge configuration from YAML, with BLUEFRUIT_*
// environment variables taking precedence over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"tinygo.org/x/bluefruit"
)

// Config is the root configuration.
type Config struct {
	Device     DeviceConfig        `yaml:"device"`
	Adapter    AdapterConfig       `yaml:"adapter"`
	UART       UARTConfig          `yaml:"uart"`
	Throughput ThroughputConfig    `yaml:"throughput"`
	DIS        bluefruit.DISConfig `yaml:"dis"`
	Logger     LoggerConfig        `yaml:"logger"`
}

// DeviceConfig holds the identity the peripheral advertises.
type DeviceConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// AdapterConfig selects the host stack.
type AdapterConfig struct {
	// Backend is "bluez" or "loopback".
	Backend string `yaml:"backend"`
	// ID is the BlueZ adapter, for example hci0. Empty selects the default
	// adapter.
	ID string `yaml:"id"`
}

// UARTConfig holds the UART service settings.
type UARTConfig struct {
	BufferSize   int           `yaml:"buffer_size"`
	Overwritable bool          `yaml:"overwritable"`
	MaxPayload   int           `yaml:"max_payload"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ThroughputConfig paces the nustest command. A zero rate is unlimited.
type ThroughputConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Defaults returns the configuration of a stock Bluefruit board.
func Defaults() *Config {
	uart := bluefruit.DefaultUARTConfig()
	return &Config{
		Device: DeviceConfig{
			Name:    "Adafruit Bluefruit",
			Address: bluefruit.DefaultAddress.String(),
		},
		Adapter: AdapterConfig{
			Backend: "bluez",
		},
		UART: UARTConfig{
			BufferSize:   uart.BufferSize,
			Overwritable: uart.Overwritable,
			MaxPayload:   uart.MaxPayload,
			PollInterval: bluefruit.DefaultPollInterval,
		},
		Throughput: ThroughputConfig{
			Burst: 1,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// UARTOptions returns the UART section in the form NewUART takes.
func (c *Config) UARTOptions() bluefruit.UARTConfig {
	return bluefruit.UARTConfig{
		BufferSize:   c.UART.BufferSize,
		Overwritable: c.UART.Overwritable,
		MaxPayload:   c.UART.MaxPayload,
	}
}

// Load reads a YAML config file and applies env var overrides. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps BLUEFRUIT_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("BLUEFRUIT_DEVICE_NAME"); v != "" {
		cfg.Device.Name = v
	}
	if v := os.Getenv("BLUEFRUIT_DEVICE_ADDRESS"); v != "" {
		cfg.Device.Address = v
	}
	if v := os.Getenv("BLUEFRUIT_ADAPTER_BACKEND"); v != "" {
		cfg.Adapter.Backend = v
	}
	if v := os.Getenv("BLUEFRUIT_ADAPTER_ID"); v != "" {
		cfg.Adapter.ID = v
	}
	if v := os.Getenv("BLUEFRUIT_UART_BUFFER_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BLUEFRUIT_UART_BUFFER_SIZE: %w", err)
		}
		cfg.UART.BufferSize = n
	}
	if v := os.Getenv("BLUEFRUIT_UART_OVERWRITABLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BLUEFRUIT_UART_OVERWRITABLE: %w", err)
		}
		cfg.UART.Overwritable = b
	}
	if v := os.Getenv("BLUEFRUIT_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("BLUEFRUIT_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("BLUEFRUIT_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	return nil
}

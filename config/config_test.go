package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Device.Name != "Adafruit Bluefruit" {
		t.Errorf("Device.Name = %q, want %q", cfg.Device.Name, "Adafruit Bluefruit")
	}
	if cfg.Device.Address != "AF:AD:AF:AD:AF:AD" {
		t.Errorf("Device.Address = %q", cfg.Device.Address)
	}
	if !cfg.UART.Overwritable {
		t.Error("UART.Overwritable = false, want true")
	}
	if cfg.UART.MaxPayload != 20 {
		t.Errorf("UART.MaxPayload = %d, want 20", cfg.UART.MaxPayload)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UART.BufferSize != 128 {
		t.Errorf("expected defaults, got BufferSize=%d", cfg.UART.BufferSize)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bluefruit.yaml")
	content := `
device:
  name: "Feather Bridge"
adapter:
  backend: loopback
uart:
  buffer_size: 512
  overwritable: false
  poll_interval: 5ms
dis:
  model: "Feather52"
  manufacturer: "Adafruit Industries"
logger:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device.Name != "Feather Bridge" {
		t.Errorf("Device.Name = %q", cfg.Device.Name)
	}
	if cfg.Device.Address != "AF:AD:AF:AD:AF:AD" {
		t.Errorf("unset Device.Address should keep its default, got %q", cfg.Device.Address)
	}
	if cfg.Adapter.Backend != "loopback" {
		t.Errorf("Adapter.Backend = %q", cfg.Adapter.Backend)
	}
	if cfg.UART.BufferSize != 512 || cfg.UART.Overwritable {
		t.Errorf("UART = %+v", cfg.UART)
	}
	if cfg.UART.PollInterval != 5*time.Millisecond {
		t.Errorf("UART.PollInterval = %v", cfg.UART.PollInterval)
	}
	if cfg.DIS.Model != "Feather52" || cfg.DIS.Serial != "" {
		t.Errorf("DIS = %+v", cfg.DIS)
	}
	if cfg.Logger.Format != "json" {
		t.Errorf("Logger.Format = %q", cfg.Logger.Format)
	}

	uart := cfg.UARTOptions()
	if uart.BufferSize != 512 || uart.MaxPayload != 20 {
		t.Errorf("UARTOptions = %+v", uart)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("uart: [\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BLUEFRUIT_DEVICE_NAME", "env name")
	t.Setenv("BLUEFRUIT_ADAPTER_ID", "hci1")
	t.Setenv("BLUEFRUIT_UART_BUFFER_SIZE", "64")
	t.Setenv("BLUEFRUIT_UART_OVERWRITABLE", "false")
	t.Setenv("BLUEFRUIT_LOGGER_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device.Name != "env name" {
		t.Errorf("Device.Name = %q", cfg.Device.Name)
	}
	if cfg.Adapter.ID != "hci1" {
		t.Errorf("Adapter.ID = %q", cfg.Adapter.ID)
	}
	if cfg.UART.BufferSize != 64 || cfg.UART.Overwritable {
		t.Errorf("UART = %+v", cfg.UART)
	}
	if cfg.Logger.Level != "warn" {
		t.Errorf("Logger.Level = %q", cfg.Logger.Level)
	}
}

func TestEnvOverrideInvalidNumber(t *testing.T) {
	t.Setenv("BLUEFRUIT_UART_BUFFER_SIZE", "lots")
	if err := ApplyEnvOverrides(Defaults()); err == nil {
		t.Fatal("expected an error")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Device.Name = ""
	cfg.Device.Address = "not-a-mac"
	cfg.Adapter.Backend = "hci"
	cfg.UART.BufferSize = 0
	cfg.UART.MaxPayload = 245
	cfg.Throughput.Burst = 0
	cfg.Logger.Format = "xml"

	err := Validate(cfg)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(ve.Errors) != 7 {
		t.Errorf("got %d errors, want 7: %v", len(ve.Errors), ve.Errors)
	}
}

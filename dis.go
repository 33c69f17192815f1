package bluefruit

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// DISConfig holds the strings exposed by the Device Information service.
// Empty fields are left out of the service.
type DISConfig struct {
	Model        string `yaml:"model"`
	Serial       string `yaml:"serial"`
	FirmwareRev  string `yaml:"firmware_rev"`
	HardwareRev  string `yaml:"hardware_rev"`
	SoftwareRev  string `yaml:"software_rev"`
	Manufacturer string `yaml:"manufacturer"`
}

// Empty reports whether no field is set.
func (c DISConfig) Empty() bool {
	return c == DISConfig{}
}

// DISStats counts reads per characteristic.
type DISStats struct {
	Model        uint64
	Serial       uint64
	FirmwareRev  uint64
	HardwareRev  uint64
	SoftwareRev  uint64
	Manufacturer uint64
}

// DeviceInformation is the Device Information service (0x180A).
type DeviceInformation struct {
	cfg   DISConfig
	log   logrus.FieldLogger
	reads [6]uint64
}

// NewDeviceInformation returns a Device Information service exposing cfg.
func NewDeviceInformation(cfg DISConfig, log logrus.FieldLogger) *DeviceInformation {
	return &DeviceInformation{
		cfg: cfg,
		log: log.WithField("component", "dis"),
	}
}

// Service returns the GATT definition, or nil when the configuration is
// empty.
func (d *DeviceInformation) Service() *Service {
	fields := []struct {
		uuid  UUID
		value string
	}{
		{CharacteristicUUIDModelNumberString, d.cfg.Model},
		{CharacteristicUUIDSerialNumberString, d.cfg.Serial},
		{CharacteristicUUIDFirmwareRevision, d.cfg.FirmwareRev},
		{CharacteristicUUIDHardwareRevision, d.cfg.HardwareRev},
		{CharacteristicUUIDSoftwareRevision, d.cfg.SoftwareRev},
		{CharacteristicUUIDManufacturerNameString, d.cfg.Manufacturer},
	}

	var chars []CharacteristicConfig
	for i, f := range fields {
		if f.value == "" {
			continue
		}
		i, value := i, []byte(f.value)
		chars = append(chars, CharacteristicConfig{
			UUID:  f.uuid,
			Flags: CharacteristicReadPermission,
			Value: value,
			ReadEvent: func(client Connection) []byte {
				atomic.AddUint64(&d.reads[i], 1)
				return value
			},
		})
	}
	if len(chars) == 0 {
		return nil
	}
	return &Service{
		UUID:            ServiceUUIDDeviceInformation,
		Characteristics: chars,
	}
}

// Register adds the service to the adapter. Nothing is registered when the
// configuration is empty.
func (d *DeviceInformation) Register(a *Adapter) error {
	s := d.Service()
	if s == nil {
		d.log.Debug("no device information configured")
		return nil
	}
	return a.AddService(s)
}

// Stats returns the read counters.
func (d *DeviceInformation) Stats() DISStats {
	return DISStats{
		Model:        atomic.LoadUint64(&d.reads[0]),
		Serial:       atomic.LoadUint64(&d.reads[1]),
		FirmwareRev:  atomic.LoadUint64(&d.reads[2]),
		HardwareRev:  atomic.LoadUint64(&d.reads[3]),
		SoftwareRev:  atomic.LoadUint64(&d.reads[4]),
		Manufacturer: atomic.LoadUint64(&d.reads[5]),
	}
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial       SerialConfig       `yaml:"serial"`
	Site         int                `yaml:"site"`
	Acquisition  AcquisitionConfig  `yaml:"acquisition"`
	Calibration  CalibrationConfig  `yaml:"calibration"`
	Filter       FilterConfig       `yaml:"filter"`
	Channels     []ChannelConfig    `yaml:"channels"`
	Compensation CompensationConfig `yaml:"compensation"`
	Poll         PollConfig         `yaml:"poll"`
	Actuation    ActuationConfig    `yaml:"actuation"`
	Storage      StorageConfig      `yaml:"storage"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	NPK          NPKConfig          `yaml:"npk"`
	Mock         MockConfig         `yaml:"mock"`
}

// SerialConfig contains the MCU bridge serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// AcquisitionConfig contains raw ADC sampling parameters.
type AcquisitionConfig struct {
	Samples     int           `yaml:"samples"`      // Samples averaged per reading
	SampleDelay time.Duration `yaml:"sample_delay"` // Delay between samples
	MinADC      int           `yaml:"min_adc"`      // Below this the sensor is deemed disconnected
	MaxADC      int           `yaml:"max_adc"`      // Above this the sensor is deemed disconnected
}

// CalibrationConfig contains clean-air calibration parameters.
type CalibrationConfig struct {
	Samples     int           `yaml:"samples"`
	SampleDelay time.Duration `yaml:"sample_delay"`
	Warmup      time.Duration `yaml:"warmup"` // Heater warm-up before calibrating
}

// FilterConfig contains the smoothing filter parameters shared by all channels.
type FilterConfig struct {
	Alpha          float32 `yaml:"alpha"`           // EMA weight of the newest reading
	SpikeThreshold float32 `yaml:"spike_threshold"` // Reject readings above threshold * estimate
	NoiseFloor     float32 `yaml:"noise_floor"`     // Spike rejection only applies above this estimate
}

// ChannelConfig describes a single resistive gas sensor channel.
type ChannelConfig struct {
	Name          string  `yaml:"name"`            // Record tag, e.g. MQ4_CH4
	Channel       uint8   `yaml:"channel"`         // ADC channel index on the MCU
	LoadOhms      float32 `yaml:"load_ohms"`       // Load resistor of the voltage divider
	Slope         float32 `yaml:"slope"`           // Datasheet log-log slope (m)
	Intercept     float32 `yaml:"intercept"`       // Datasheet log-log intercept (b)
	CleanAirRatio float32 `yaml:"clean_air_ratio"` // Documented Rs/Ro in clean air
}

// CompensationConfig contains the temperature/humidity correction applied to
// one environmentally sensitive channel. The constants are empirically tuned
// per deployment locale, not a physical model.
type CompensationConfig struct {
	Sensor        string  `yaml:"sensor"` // Channel name the correction applies to
	RefTemp       float32 `yaml:"ref_temp"`
	RefHumidity   float32 `yaml:"ref_humidity"`
	TempSlope     float32 `yaml:"temp_slope"`     // Correction per degree C
	HumiditySlope float32 `yaml:"humidity_slope"` // Correction per % RH
	Baseline      float32 `yaml:"baseline"`       // Additive offset, ppm
	Min           float32 `yaml:"min"`            // Output clamp, ppm
	Max           float32 `yaml:"max"`
}

// PollConfig contains the main loop timing.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ActuationConfig contains the soil collection sequence timings.
type ActuationConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PlatformMove time.Duration `yaml:"platform_move"` // Platform travel pulse
	Drill        time.Duration `yaml:"drill"`         // Dwell with drill in soil
	Settle       time.Duration `yaml:"settle"`        // Pause between steps
}

// StorageConfig contains the sqlite reading log settings.
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig contains the Prometheus exporter settings.
type MetricsConfig struct {
	Listen string `yaml:"listen"` // Empty disables the exporter
}

// NPKConfig contains the RS-485 soil nutrient sensor settings.
type NPKConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	SlaveID  byte   `yaml:"slave_id"`
}

// MockConfig contains the simulated MCU configuration.
type MockConfig struct {
	Levels      []int   `yaml:"levels"` // Baseline ADC level per channel
	Noise       int     `yaml:"noise"`  // Peak-to-peak ADC noise, counts
	Temperature float32 `yaml:"temperature"`
	Humidity    float32 `yaml:"humidity"`
	Pressure    float32 `yaml:"pressure"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Site: 1,
		Acquisition: AcquisitionConfig{
			Samples:     8,
			SampleDelay: 5 * time.Millisecond,
			MinADC:      10,
			MaxADC:      1000,
		},
		Calibration: CalibrationConfig{
			Samples:     50,
			SampleDelay: 50 * time.Millisecond,
			Warmup:      120 * time.Second,
		},
		Filter: FilterConfig{
			Alpha:          0.1,
			SpikeThreshold: 10,
			NoiseFloor:     0.1,
		},
		Channels: []ChannelConfig{
			{Name: "MQ4_CH4", Channel: 0, LoadOhms: 25000, Slope: -0.36, Intercept: 1.10, CleanAirRatio: 4.4},
			{Name: "MQ136_H2S", Channel: 1, LoadOhms: 20000, Slope: -0.44, Intercept: 0.70, CleanAirRatio: 3.6},
			{Name: "MQ8_H2", Channel: 2, LoadOhms: 15000, Slope: -0.42, Intercept: 1.30, CleanAirRatio: 70.0},
			{Name: "MQ135_CO2", Channel: 3, LoadOhms: 15000, Slope: -0.42, Intercept: 0.30, CleanAirRatio: 3.6},
		},
		Compensation: CompensationConfig{
			Sensor:        "MQ135_CO2",
			RefTemp:       20.0,
			RefHumidity:   60.0,
			TempSlope:     0.02,
			HumiditySlope: 0.01,
			Baseline:      400.0,
			Min:           400.0,
			Max:           5000.0,
		},
		Poll: PollConfig{
			Interval: 2 * time.Second,
		},
		Actuation: ActuationConfig{
			Enabled:      false,
			PlatformMove: 3 * time.Second,
			Drill:        2 * time.Second,
			Settle:       500 * time.Millisecond,
		},
		Storage: StorageConfig{
			Enabled: false,
			Path:    "soilbox.sqlite",
		},
		Metrics: MetricsConfig{
			Listen: "",
		},
		NPK: NPKConfig{
			Enabled:  false,
			Port:     "/dev/ttyUSB0",
			BaudRate: 4800,
			SlaveID:  1,
		},
		Mock: MockConfig{
			Levels:      []int{500, 480, 520, 510},
			Noise:       12,
			Temperature: 23.95,
			Humidity:    57.46,
			Pressure:    1016.12,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Site == 0 {
		c.Site = def.Site
	}

	if c.Acquisition.Samples == 0 {
		c.Acquisition.Samples = def.Acquisition.Samples
	}
	if c.Acquisition.SampleDelay == 0 {
		c.Acquisition.SampleDelay = def.Acquisition.SampleDelay
	}
	if c.Acquisition.MinADC == 0 {
		c.Acquisition.MinADC = def.Acquisition.MinADC
	}
	if c.Acquisition.MaxADC == 0 {
		c.Acquisition.MaxADC = def.Acquisition.MaxADC
	}

	if c.Calibration.Samples == 0 {
		c.Calibration.Samples = def.Calibration.Samples
	}
	if c.Calibration.SampleDelay == 0 {
		c.Calibration.SampleDelay = def.Calibration.SampleDelay
	}
	if c.Calibration.Warmup == 0 {
		c.Calibration.Warmup = def.Calibration.Warmup
	}

	if c.Filter.Alpha == 0 {
		c.Filter.Alpha = def.Filter.Alpha
	}
	if c.Filter.SpikeThreshold == 0 {
		c.Filter.SpikeThreshold = def.Filter.SpikeThreshold
	}
	if c.Filter.NoiseFloor == 0 {
		c.Filter.NoiseFloor = def.Filter.NoiseFloor
	}

	if len(c.Channels) == 0 {
		c.Channels = def.Channels
	}

	if c.Compensation.Sensor == "" {
		c.Compensation = def.Compensation
	}

	if c.Poll.Interval == 0 {
		c.Poll.Interval = def.Poll.Interval
	}

	if c.Actuation.PlatformMove == 0 {
		c.Actuation.PlatformMove = def.Actuation.PlatformMove
	}
	if c.Actuation.Drill == 0 {
		c.Actuation.Drill = def.Actuation.Drill
	}
	if c.Actuation.Settle == 0 {
		c.Actuation.Settle = def.Actuation.Settle
	}

	if c.Storage.Path == "" {
		c.Storage.Path = def.Storage.Path
	}

	if c.NPK.Port == "" {
		c.NPK.Port = def.NPK.Port
	}
	if c.NPK.BaudRate == 0 {
		c.NPK.BaudRate = def.NPK.BaudRate
	}
	if c.NPK.SlaveID == 0 {
		c.NPK.SlaveID = def.NPK.SlaveID
	}

	if len(c.Mock.Levels) == 0 {
		c.Mock.Levels = def.Mock.Levels
	}
	if c.Mock.Temperature == 0 {
		c.Mock.Temperature = def.Mock.Temperature
	}
	if c.Mock.Humidity == 0 {
		c.Mock.Humidity = def.Mock.Humidity
	}
	if c.Mock.Pressure == 0 {
		c.Mock.Pressure = def.Mock.Pressure
	}
}

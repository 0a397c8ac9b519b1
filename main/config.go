package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"

	"github.com/b3nn0/i2csensors/sensors/bmp180"
	"github.com/b3nn0/i2csensors/sensors/mpu6050"
)

const defaultEnvFile = ".env"

// settingFlags mirror the environment keys. A flag that is set overrides the
// environment, which overrides the env file.
var settingFlags = []struct {
	name, env, usage, noOpt string
}{
	{"bus", "I2C_BUS", "I2C bus number", ""},
	{"bmp-addr", "BMP180_ADDR", "BMP180 address, e.g. 0x77", ""},
	{"mpu-addr", "MPU6050_ADDR", "MPU6050 address, e.g. 0x68", ""},
	{"bmp", "BMP_SENSOR_ENABLED", "poll the BMP180", "true"},
	{"imu", "IMU_SENSOR_ENABLED", "poll the MPU6050", "true"},
	{"sea-level", "SEA_LEVEL_PA", "sea level pressure in Pa for altitude", ""},
	{"interval", "POLL_INTERVAL", "time between printed rows, e.g. 500ms", ""},
	{"log-file", "LOG_FILE", "rotating log file, empty for stderr only", ""},
	{"metrics-addr", "METRICS_ADDR", "listen address for /metrics and status, e.g. :9977", ""},
	{"debug", "DEBUG", "debug logging", "true"},
}

func addSettingsFlags(f *pflag.FlagSet) {
	for _, sf := range settingFlags {
		f.String(sf.name, "", sf.usage+" ($"+sf.env+")")
		if sf.noOpt != "" {
			f.Lookup(sf.name).NoOptDefVal = sf.noOpt
		}
	}
}

// applyFlags exports the flags that were set on the command line into the
// environment so readSettings sees them.
func applyFlags(f *pflag.FlagSet) error {
	var err error
	for _, sf := range settingFlags {
		fl := f.Lookup(sf.name)
		if fl == nil || !fl.Changed {
			continue
		}
		if setErr := os.Setenv(sf.env, fl.Value.String()); setErr != nil && err == nil {
			err = errors.Wrapf(setErr, "can't apply --%s", sf.name)
		}
	}
	return err
}

type settings struct {
	I2CBus             byte
	BMP180Address      byte
	MPU6050Address     byte
	BMP_Sensor_Enabled bool
	IMU_Sensor_Enabled bool
	SeaLevelPressure   float64 // Pa
	PollInterval       time.Duration
	LogFile            string // empty logs to stderr only
	MetricsAddr        string // empty disables the HTTP endpoint
	DEBUG              bool
}

func defaultSettings() settings {
	return settings{
		I2CBus:             1,
		BMP180Address:      bmp180.Address,
		MPU6050Address:     mpu6050.Address,
		BMP_Sensor_Enabled: true,
		IMU_Sensor_Enabled: true,
		SeaLevelPressure:   bmp180.DefaultSeaLevelPressure,
		PollInterval:       time.Second,
	}
}

// readSettings starts from the defaults and applies environment variables,
// after loading envFile into the environment if it exists.
func readSettings(envFile string) (settings, error) {
	s := defaultSettings()
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return s, errors.Wrapf(err, "can't read settings %s", envFile)
		}
	}

	var err error
	if s.I2CBus, err = envOr("I2C_BUS", s.I2CBus, cast.ToUint8E); err != nil {
		return s, err
	}
	if s.BMP180Address, err = envOr("BMP180_ADDR", s.BMP180Address, cast.ToUint8E); err != nil {
		return s, err
	}
	if s.MPU6050Address, err = envOr("MPU6050_ADDR", s.MPU6050Address, cast.ToUint8E); err != nil {
		return s, err
	}
	if s.BMP_Sensor_Enabled, err = envOr("BMP_SENSOR_ENABLED", s.BMP_Sensor_Enabled, cast.ToBoolE); err != nil {
		return s, err
	}
	if s.IMU_Sensor_Enabled, err = envOr("IMU_SENSOR_ENABLED", s.IMU_Sensor_Enabled, cast.ToBoolE); err != nil {
		return s, err
	}
	if s.SeaLevelPressure, err = envOr("SEA_LEVEL_PA", s.SeaLevelPressure, cast.ToFloat64E); err != nil {
		return s, err
	}
	if s.PollInterval, err = envOr("POLL_INTERVAL", s.PollInterval, cast.ToDurationE); err != nil {
		return s, err
	}
	if s.LogFile, err = envOr("LOG_FILE", s.LogFile, cast.ToStringE); err != nil {
		return s, err
	}
	if s.MetricsAddr, err = envOr("METRICS_ADDR", s.MetricsAddr, cast.ToStringE); err != nil {
		return s, err
	}
	if s.DEBUG, err = envOr("DEBUG", s.DEBUG, cast.ToBoolE); err != nil {
		return s, err
	}
	return s, s.validate()
}

func envOr[T any](key string, def T, conv func(interface{}) (T, error)) (T, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := conv(raw)
	if err != nil {
		return def, errors.Wrapf(err, "invalid %s", key)
	}
	return v, nil
}

func (s settings) validate() error {
	if s.PollInterval <= 0 {
		return errors.Errorf("poll interval must be positive, got %s", s.PollInterval)
	}
	if s.SeaLevelPressure <= 0 {
		return errors.Errorf("sea level pressure must be positive, got %g Pa", s.SeaLevelPressure)
	}
	if s.BMP180Address > 0x7F || s.MPU6050Address > 0x7F {
		return errors.New("I2C addresses are 7 bit")
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	humanize "github.com/dustin/go-humanize"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/b3nn0/i2csensors/common"
	"github.com/b3nn0/i2csensors/sensors"
	"github.com/b3nn0/i2csensors/sensors/bmp180"
	"github.com/b3nn0/i2csensors/sensors/mpu6050"
)

const (
	reconnectInterval = 4 * time.Second
	sensorPollFreq    = 100 * time.Millisecond
)

// row is one line of output. A nil reading means the sensor is absent or
// its last read failed.
type row struct {
	Time time.Time
	Baro *bmp180.Reading
	IMU  *mpu6050.Reading
}

// station owns the sensors on one I2C bus and reconnects them when they drop.
type station struct {
	cfg     settings
	bus     common.RegisterBus
	clock   clock.Clock
	logger  golog.Logger
	metrics *metrics
	started time.Time

	mu   sync.Mutex
	baro *sensors.BMP180
	imu  *sensors.MPU6050
	last row
}

func newStation(cfg settings, bus common.RegisterBus, clk clock.Clock, logger golog.Logger, m *metrics) *station {
	return &station{
		cfg:     cfg,
		bus:     bus,
		clock:   clk,
		logger:  logger,
		metrics: m,
		started: clk.Now(),
	}
}

// connect tries every enabled sensor that is not currently connected.
func (st *station) connect() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.cfg.BMP_Sensor_Enabled && st.baro == nil {
		st.logger.Info("AHRS Info: attempting pressure sensor connection.")
		bmp, err := sensors.NewBMP180(st.bus, st.cfg.BMP180Address, sensorPollFreq, st.clock, st.logger)
		if err != nil {
			st.logger.Infof("AHRS Info: couldn't initialize BMP180: %s", err)
		} else {
			bmp.SetSeaLevelPressure(st.cfg.SeaLevelPressure)
			st.baro = bmp
			st.logger.Info("AHRS Info: Successfully initialized BMP180")
		}
		st.metrics.setConnected(sensorBMP180, st.baro != nil)
	}

	if st.cfg.IMU_Sensor_Enabled && st.imu == nil {
		st.logger.Info("AHRS Info: attempting IMU connection.")
		imu, err := sensors.NewMPU6050(st.bus, st.cfg.MPU6050Address, sensorPollFreq, st.clock, st.logger)
		if err != nil {
			st.logger.Infof("AHRS Info: couldn't initialize MPU6050: %s", err)
		} else {
			st.imu = imu
			st.logger.Info("AHRS Info: Successfully connected MPU6050")
		}
		st.metrics.setConnected(sensorMPU6050, st.imu != nil)
	}
}

// sample collects the latest reading of each connected sensor. A sensor
// whose poller gave up is closed so the next connect retries it.
func (st *station) sample() row {
	st.mu.Lock()
	defer st.mu.Unlock()

	r := row{Time: st.clock.Now()}
	if st.baro != nil {
		reading, err := st.baro.Reading()
		switch {
		case err == nil:
			r.Baro = &reading
			st.metrics.observeBaro(reading)
		case errors.Is(err, sensors.ErrNotRunning):
			st.metrics.readFailed(sensorBMP180)
			st.logger.Warnf("AHRS Error: BMP180 stopped, reconnecting later: %s", err)
			st.baro.Close()
			st.baro = nil
			st.metrics.setConnected(sensorBMP180, false)
		default:
			st.metrics.readFailed(sensorBMP180)
			st.logger.Debugf("AHRS Error: Couldn't read pressure from sensor: %s", err)
		}
	}

	if st.imu != nil {
		reading, _, err := st.imu.Reading()
		switch {
		case err == nil:
			r.IMU = &reading
			st.metrics.observeIMU(reading)
		case errors.Is(err, sensors.ErrNotRunning):
			st.metrics.readFailed(sensorMPU6050)
			st.logger.Warnf("AHRS Error: MPU6050 stopped, reconnecting later: %s", err)
			st.imu.Close()
			st.imu = nil
			st.metrics.setConnected(sensorMPU6050, false)
		default:
			st.metrics.readFailed(sensorMPU6050)
			st.logger.Debugf("AHRS Error: Couldn't read IMU: %s", err)
		}
	}

	st.last = r
	return r
}

// run prints a row every poll interval and retries missing sensors until
// ctx is done.
func (st *station) run(ctx context.Context, out io.Writer) error {
	st.connect()

	reconnect := st.clock.Ticker(reconnectInterval)
	defer reconnect.Stop()
	rows := st.clock.Ticker(st.cfg.PollInterval)
	defer rows.Stop()

	if _, err := fmt.Fprintln(out, rowHeader); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reconnect.C:
			st.connect()
		case <-rows.C:
			st.metrics.uptime.Add(st.cfg.PollInterval.Seconds())
			if _, err := fmt.Fprintln(out, formatRow(st.sample())); err != nil {
				return err
			}
		}
	}
}

// Close stops polling and puts the IMU to sleep.
func (st *station) Close() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.baro != nil {
		st.baro.Close()
		st.baro = nil
	}
	if st.imu != nil {
		st.imu.Close()
		st.imu = nil
	}
}

const rowHeader = "time      temp     pressure        altitude   accel (g)                gyro (°/s)"

func formatRow(r row) string {
	var b strings.Builder
	b.WriteString(r.Time.Format("15:04:05"))
	if r.Baro != nil {
		fmt.Fprintf(&b, "  %5.1f°C  %10s hPa  %7.1f m",
			r.Baro.Temperature, humanize.FormatFloat("#,###.##", r.Baro.Pressure/100), r.Baro.Altitude)
	} else {
		b.WriteString("  BMP180 n/a")
	}
	if r.IMU != nil {
		fmt.Fprintf(&b, "  %+.3f %+.3f %+.3f  %+8.2f %+8.2f %+8.2f",
			r.IMU.Ax, r.IMU.Ay, r.IMU.Az, r.IMU.Gx, r.IMU.Gy, r.IMU.Gz)
	} else {
		b.WriteString("  MPU6050 n/a")
	}
	return b.String()
}

type statusReport struct {
	Uptime       string
	BMPConnected bool
	IMUConnected bool
	LastReading  string           `json:",omitempty"`
	Baro         *bmp180.Reading  `json:",omitempty"`
	IMU          *mpu6050.Reading `json:",omitempty"`
}

func (st *station) status() statusReport {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.clock.Now()
	s := statusReport{
		Uptime:       strings.TrimSpace(humanize.RelTime(st.started, now, "", "")),
		BMPConnected: st.baro != nil,
		IMUConnected: st.imu != nil,
		Baro:         st.last.Baro,
		IMU:          st.last.IMU,
	}
	if !st.last.Time.IsZero() {
		s.LastReading = humanize.RelTime(st.last.Time, now, "ago", "from now")
	}
	return s
}

// handler serves the JSON status on / and prometheus metrics on /metrics.
func (st *station) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st.status()); err != nil {
			st.logger.Debugw("status request failed", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.HandlerFor(st.metrics.registry, promhttp.HandlerOpts{}))
	return mux
}

package sensors

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/b3nn0/i2csensors/sensors/mpu6050"
)

// MPU6050 represents an InvenSense MPU6050 attached to the I2C bus and satisfies
// the IMUReader interface.
type MPU6050 struct {
	sensor *mpu6050.MPU6050
	clock  clock.Clock
	logger golog.Logger
	poll   *poller

	mu      sync.Mutex
	data    mpu6050.Reading
	t       time.Time
	err     error // error from the latest read
	running bool
}

// NewMPU6050 wakes the MPU6050 at address, takes a first reading and then
// keeps reading it every freq. A nil clk uses the wall clock.
func NewMPU6050(i2cbus mpu6050.Bus, address byte, freq time.Duration, clk clock.Clock, logger golog.Logger) (*MPU6050, error) {
	if clk == nil {
		clk = clock.New()
	}
	logger.Infof("AHRS Info: Making new MPU6050 at 0x%02x", address)
	sensor, err := mpu6050.New(i2cbus, mpu6050.WithAddress(address), mpu6050.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	m := &MPU6050{sensor: sensor, clock: clk, logger: logger}
	if err := m.update(); err != nil {
		return nil, err
	}
	m.running = true
	logger.Info("AHRS Info: monitoring IMU")
	m.poll = startPoller(clk, freq, "MPU6050", logger, m.update, m.giveUp)
	return m, nil
}

func (m *MPU6050) update() error {
	r, err := m.sensor.Sample()
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	if err == nil {
		m.data, m.t = r, now
	}
	return err
}

func (m *MPU6050) giveUp(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.err = err
}

// Reading returns the last complete reading and when it was taken.
func (m *MPU6050) Reading() (mpu6050.Reading, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		if m.err != nil {
			return mpu6050.Reading{}, time.Time{}, errors.Wrap(ErrNotRunning, m.err.Error())
		}
		return mpu6050.Reading{}, time.Time{}, ErrNotRunning
	}
	if m.err != nil {
		return mpu6050.Reading{}, time.Time{}, m.err
	}
	return m.data, m.t, nil
}

// Read returns the time of the last reading, Gyro X-Y-Z, Accel X-Y-Z and
// the error from the last reading.
func (m *MPU6050) Read() (T int64, G1, G2, G3, A1, A2, A3 float64, GAError error) {
	r, t, err := m.Reading()
	if err != nil {
		return 0, 0, 0, 0, 0, 0, 0, err
	}
	return t.UnixNano(), r.Gx, r.Gy, r.Gz, r.Ax, r.Ay, r.Az, nil
}

// Close stops reading the MPU and puts it to sleep.
func (m *MPU6050) Close() {
	m.poll.stop()
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	if err := m.sensor.Close(); err != nil {
		m.logger.Errorf("AHRS Error: couldn't put MPU6050 to sleep: %s", err)
	}
}

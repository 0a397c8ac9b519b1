package sensors

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/b3nn0/i2csensors/sensors/bmp180"
)

var errNotBMP180 = errors.New("BMP180 Error: chip id mismatch, not a BMP180")

// BMP180 represents a BMP180 sensor and implements the PressureReader interface.
type BMP180 struct {
	sensor *bmp180.BMP180
	poll   *poller

	mu       sync.Mutex
	data     bmp180.Reading
	seaLevel float64
	err      error // error from the latest read
	running  bool
}

// NewBMP180 connects to a BMP180 at address on the I2C bus, takes a first
// reading and then keeps reading it every freq. A nil clk uses the wall clock.
func NewBMP180(i2cbus bmp180.Bus, address byte, freq time.Duration, clk clock.Clock, logger golog.Logger) (*BMP180, error) {
	if clk == nil {
		clk = clock.New()
	}
	sensor, err := bmp180.New(i2cbus, bmp180.WithAddress(address), bmp180.WithClock(clk), bmp180.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if !sensor.Connected() {
		return nil, errNotBMP180
	}

	newbmp := &BMP180{sensor: sensor, seaLevel: bmp180.DefaultSeaLevelPressure}
	if err := newbmp.update(); err != nil {
		return nil, err
	}
	newbmp.running = true
	newbmp.poll = startPoller(clk, freq, "BMP180", logger, newbmp.update, newbmp.giveUp)
	return newbmp, nil
}

func (bmp *BMP180) update() error {
	bmp.mu.Lock()
	seaLevel := bmp.seaLevel
	bmp.mu.Unlock()

	r, err := bmp.sensor.Sample(seaLevel)

	bmp.mu.Lock()
	defer bmp.mu.Unlock()
	bmp.err = err
	if err == nil {
		bmp.data = r
	}
	return err
}

func (bmp *BMP180) giveUp(err error) {
	bmp.mu.Lock()
	defer bmp.mu.Unlock()
	bmp.running = false
	bmp.err = err
}

// SetSeaLevelPressure sets the altitude reference, in Pa, for the next readings.
func (bmp *BMP180) SetSeaLevelPressure(pa float64) {
	bmp.mu.Lock()
	defer bmp.mu.Unlock()
	bmp.seaLevel = pa
}

// Reading returns the last complete reading.
func (bmp *BMP180) Reading() (bmp180.Reading, error) {
	bmp.mu.Lock()
	defer bmp.mu.Unlock()
	if !bmp.running {
		if bmp.err != nil {
			return bmp180.Reading{}, errors.Wrap(ErrNotRunning, bmp.err.Error())
		}
		return bmp180.Reading{}, ErrNotRunning
	}
	if bmp.err != nil {
		return bmp180.Reading{}, bmp.err
	}
	return bmp.data, nil
}

// Temperature returns the current temperature in degrees C measured by the BMP180.
func (bmp *BMP180) Temperature() (float64, error) {
	r, err := bmp.Reading()
	return r.Temperature, err
}

// Pressure returns the current pressure in mbar measured by the BMP180.
func (bmp *BMP180) Pressure() (float64, error) {
	r, err := bmp.Reading()
	return r.Pressure / 100, err
}

// Altitude returns the current pressure altitude in meters.
func (bmp *BMP180) Altitude() (float64, error) {
	r, err := bmp.Reading()
	return r.Altitude, err
}

// Close stops the measurements of the BMP180.
func (bmp *BMP180) Close() {
	bmp.poll.stop()
	bmp.mu.Lock()
	defer bmp.mu.Unlock()
	bmp.running = false
}

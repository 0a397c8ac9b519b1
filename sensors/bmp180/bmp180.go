package bmp180

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/b3nn0/i2csensors/common"
)

// ErrNotCalibrated is returned by Sample when the calibration coefficients
// have not been loaded.
var ErrNotCalibrated = errors.New("bmp180: calibration not loaded")

// Both conversions take at most 4.5 ms at oss=0.
const conversionDelay = 5 * time.Millisecond

const device = "bmp180"

// Bus is the part of an I2C bus the driver uses. embd.I2CBus satisfies it.
type Bus = common.RegisterBus

// Reading is one compensated sample.
type Reading struct {
	Temperature float64 // °C, 0.1 resolution
	Pressure    float64 // Pa
	Altitude    float64 // m
}

// BMP180 wraps the I2C connection and calibration values for the BMP180.
// It is not safe for concurrent use.
type BMP180 struct {
	bus     Bus
	address byte
	clock   clock.Clock
	logger  golog.Logger

	cal    Calibration
	calErr error // nil once cal is loaded
}

// Option configures a BMP180.
type Option func(*BMP180)

// WithAddress overrides the default I2C address.
func WithAddress(address byte) Option {
	return func(d *BMP180) { d.address = address }
}

// WithClock sets the clock used to wait for conversions.
func WithClock(c clock.Clock) Option {
	return func(d *BMP180) { d.clock = c }
}

// WithLogger sets the logger.
func WithLogger(logger golog.Logger) Option {
	return func(d *BMP180) { d.logger = logger }
}

// New returns a BMP180 handle and loads its calibration. If the calibration
// can't be read the handle is still returned, along with the error; Sample
// fails with ErrNotCalibrated until LoadCalibration succeeds.
func New(bus Bus, opts ...Option) (*BMP180, error) {
	d := &BMP180{
		bus:     bus,
		address: Address,
		clock:   clock.New(),
		logger:  zap.NewNop().Sugar(),
		calErr:  ErrNotCalibrated,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.LoadCalibration(); err != nil {
		d.logger.Errorf("AHRS Error: couldn't read BMP180 calibration at 0x%02x: %s", d.address, err)
		return d, err
	}
	return d, nil
}

// LoadCalibration reads the 11 calibration coefficients. On failure the
// handle is left uncalibrated.
func (d *BMP180) LoadCalibration() error {
	// AC1 through MD are consecutive big-endian words.
	var w [11][2]byte
	for i := range w {
		hi, lo, err := d.readPair(RegAC1 + byte(2*i))
		if err != nil {
			d.cal, d.calErr = Calibration{}, errors.Wrap(ErrNotCalibrated, err.Error())
			return err
		}
		w[i] = [2]byte{hi, lo}
	}

	signed := func(i int) int16 { return int16(DecodeSigned(w[i][0], w[i][1])) }
	unsigned := func(i int) uint16 { return uint16(decodeUnsigned(w[i][0], w[i][1])) }
	cal := Calibration{
		AC1: signed(0),
		AC2: signed(1),
		AC3: signed(2),
		AC4: unsigned(3),
		AC5: unsigned(4),
		AC6: unsigned(5),
		B1:  signed(6),
		B2:  signed(7),
		MB:  signed(8),
		MC:  signed(9),
		MD:  signed(10),
	}

	d.cal, d.calErr = cal, nil
	d.logger.Debugf("AHRS Info: BMP180 calibration %+v", cal)
	return nil
}

// Calibration returns the loaded coefficients.
func (d *BMP180) Calibration() (Calibration, error) {
	return d.cal, d.calErr
}

// Connected reports whether the chip id register answers as a BMP180.
func (d *BMP180) Connected() bool {
	id, err := d.readByte(RegChipId)
	return err == nil && id == ChipId
}

// SampleDefault is Sample against the standard sea level pressure.
func (d *BMP180) SampleDefault() (Reading, error) {
	return d.Sample(DefaultSeaLevelPressure)
}

// Sample triggers a temperature and a pressure conversion and returns the
// compensated reading. seaLevelPressure (Pa) is the altitude reference.
func (d *BMP180) Sample(seaLevelPressure float64) (Reading, error) {
	if d.calErr != nil {
		return Reading{}, d.calErr
	}

	ut, err := d.readRawTemperature()
	if err != nil {
		return Reading{}, err
	}
	b5, tenths, err := d.cal.Temperature(ut)
	if err != nil {
		return Reading{}, err
	}

	up, err := d.readRawPressure()
	if err != nil {
		return Reading{}, err
	}
	p, err := d.cal.Pressure(b5, up)
	if err != nil {
		return Reading{}, err
	}

	pressure := float64(p)
	return Reading{
		Temperature: float64(tenths) / 10.0,
		Pressure:    pressure,
		Altitude:    Altitude(pressure, seaLevelPressure),
	}, nil
}

func (d *BMP180) readRawTemperature() (int32, error) {
	if err := d.writeByte(RegCtrl, CmdTemperature); err != nil {
		return 0, err
	}
	d.clock.Sleep(conversionDelay)
	hi, lo, err := d.readPair(RegOutMSB)
	if err != nil {
		return 0, err
	}
	return decodeUnsigned(hi, lo), nil
}

func (d *BMP180) readRawPressure() (int32, error) {
	if err := d.writeByte(RegCtrl, CmdPressure+byte(Oversampling<<6)); err != nil {
		return 0, err
	}
	d.clock.Sleep(conversionDelay)
	msb, err := d.readByte(RegOutMSB)
	if err != nil {
		return 0, err
	}
	lsb, err := d.readByte(RegOutLSB)
	if err != nil {
		return 0, err
	}
	xlsb, err := d.readByte(RegOutXLSB)
	if err != nil {
		return 0, err
	}
	return (int32(msb)<<16 | int32(lsb)<<8 | int32(xlsb)) >> pressureShift, nil
}

func (d *BMP180) readPair(register byte) (hi, lo byte, err error) {
	if hi, err = d.readByte(register); err != nil {
		return
	}
	lo, err = d.readByte(register + 1)
	return
}

func (d *BMP180) readByte(register byte) (byte, error) {
	return common.ReadRegister(d.bus, device, d.address, register)
}

func (d *BMP180) writeByte(register, value byte) error {
	return common.WriteRegister(d.bus, device, d.address, register, value)
}

package mpu6050

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/b3nn0/i2csensors/common"
)

const device = "mpu6050"

// Bus is the part of an I2C bus the driver uses. embd.I2CBus satisfies it.
type Bus = common.RegisterBus

// Reading holds one scaled sample: acceleration in g, angular rate in º/s.
type Reading struct {
	Ax, Ay, Az float64
	Gx, Gy, Gz float64
}

// Map returns the reading keyed Ax, Ay, Az, Gx, Gy, Gz.
func (r Reading) Map() map[string]float64 {
	return map[string]float64{
		"Ax": r.Ax,
		"Ay": r.Ay,
		"Az": r.Az,
		"Gx": r.Gx,
		"Gy": r.Gy,
		"Gz": r.Gz,
	}
}

// MPU6050 represents an InvenSense MPU6050 sensor that has been woken up.
// It is not safe for concurrent use.
type MPU6050 struct {
	bus     Bus
	address byte
	logger  golog.Logger
}

// Option configures an MPU6050.
type Option func(*MPU6050)

// WithAddress overrides the default I2C address.
func WithAddress(address byte) Option {
	return func(d *MPU6050) { d.address = address }
}

// WithLogger sets the logger.
func WithLogger(logger golog.Logger) Option {
	return func(d *MPU6050) { d.logger = logger }
}

// New returns a handle to an MPU6050 sensor. The chip powers up asleep, so
// New clears PWR_MGMT_1 before returning.
func New(bus Bus, opts ...Option) (*MPU6050, error) {
	d := &MPU6050{bus: bus, address: Address, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.writeByte(PWR_MGMT_1, 0); err != nil {
		return nil, errors.Wrap(err, "mpu6050: couldn't wake device")
	}
	d.logger.Debugf("AHRS Info: MPU6050 at 0x%02x awake", d.address)
	return d, nil
}

// Connected reports whether WHO_AM_I answers with the default address.
func (d *MPU6050) Connected() bool {
	id, err := d.readByte(WHO_AM_I)
	return err == nil && id == Address
}

// Sample reads the accelerometer and gyroscope registers and scales them.
// Any bus error aborts the sample.
func (d *MPU6050) Sample() (Reading, error) {
	var (
		raw [6]int32
		err error
	)
	regs := [6]byte{ACCEL_XOUT_H, ACCEL_YOUT_H, ACCEL_ZOUT_H, GYRO_XOUT_H, GYRO_YOUT_H, GYRO_ZOUT_H}
	for i, reg := range regs {
		if raw[i], err = d.readWord(reg); err != nil {
			return Reading{}, err
		}
	}

	return Reading{
		Ax: ScaleAccel(raw[0]),
		Ay: ScaleAccel(raw[1]),
		Az: ScaleAccel(raw[2]),
		Gx: ScaleGyro(raw[3]),
		Gy: ScaleGyro(raw[4]),
		Gz: ScaleGyro(raw[5]),
	}, nil
}

// Close puts the chip back to sleep.
func (d *MPU6050) Close() error {
	return d.writeByte(PWR_MGMT_1, SLEEP)
}

// DecodeSigned combines a high and low register byte. Values above 32768
// wrap negative; 32768 itself is kept positive.
func DecodeSigned(high, low byte) int32 {
	v := int32(high)<<8 | int32(low)
	if v > 32768 {
		v -= 65536
	}
	return v
}

// ScaleAccel converts a raw accelerometer count to g.
func ScaleAccel(raw int32) float64 { return float64(raw) / ACCEL_SCALE }

// ScaleGyro converts a raw gyroscope count to º/s.
func ScaleGyro(raw int32) float64 { return float64(raw) / GYRO_SCALE }

func (d *MPU6050) readWord(register byte) (int32, error) {
	high, err := d.readByte(register)
	if err != nil {
		return 0, err
	}
	low, err := d.readByte(register + 1)
	if err != nil {
		return 0, err
	}
	return DecodeSigned(high, low), nil
}

func (d *MPU6050) readByte(register byte) (byte, error) {
	return common.ReadRegister(d.bus, device, d.address, register)
}

func (d *MPU6050) writeByte(register, value byte) error {
	return common.WriteRegister(d.bus, device, d.address, register, value)
}

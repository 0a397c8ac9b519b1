package bmp180

import (
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrDegenerateTemperature is returned when X1 + MD is zero and the
	// temperature compensation would divide by zero.
	ErrDegenerateTemperature = errors.New("bmp180: degenerate temperature compensation (X1 + MD == 0)")
	// ErrDegeneratePressure is returned when B4 is zero.
	ErrDegeneratePressure = errors.New("bmp180: degenerate pressure compensation (B4 == 0)")
)

// Calibration holds the factory-programmed compensation coefficients read
// from the sensor EEPROM. Field names follow the datasheet.
type Calibration struct {
	AC1 int16
	AC2 int16
	AC3 int16
	AC4 uint16
	AC5 uint16
	AC6 uint16
	B1  int16
	B2  int16
	MB  int16
	MC  int16
	MD  int16
}

// Temperature runs the datasheet temperature compensation on the raw
// reading ut. It returns B5, which the pressure compensation needs, and the
// temperature in 0.1 °C.
func (c Calibration) Temperature(ut int32) (b5, tenths int32, err error) {
	// (UT - AC6) * AC5 can exceed 31 bits for out of range raw values.
	x1 := int32((int64(ut) - int64(c.AC6)) * int64(c.AC5) >> 15)
	den := x1 + int32(c.MD)
	if den == 0 {
		return 0, 0, ErrDegenerateTemperature
	}
	x2 := int32(c.MC) << 11 / den
	b5 = x1 + x2
	return b5, (b5 + 8) >> 4, nil
}

// Pressure runs the datasheet pressure compensation on the raw reading up
// and returns the pressure in Pa. Arithmetic mirrors the reference C code:
// 32 bit signed intermediates, truncating division, and unsigned B4/B7.
func (c Calibration) Pressure(b5, up int32) (int32, error) {
	b6 := b5 - 4000
	x1 := int32(c.B2) * (b6 * b6 >> 12) >> 11
	x2 := int32(c.AC2) * b6 >> 11
	x3 := x1 + x2
	b3 := ((int32(c.AC1)*4+x3)<<Oversampling + 2) >> 2

	x1 = int32(c.AC3) * b6 >> 13
	x2 = int32(c.B1) * (b6 * b6 >> 12) >> 16
	x3 = (x1 + x2 + 2) >> 2
	b4 := uint32(c.AC4) * uint32(x3+32768) >> 15
	if b4 == 0 {
		return 0, ErrDegeneratePressure
	}
	b7 := uint32(up-b3) * (50000 >> Oversampling)

	var p int32
	if b7 < 0x80000000 {
		p = int32(b7 * 2 / b4)
	} else {
		p = int32(b7 / b4 * 2)
	}

	x1 = (p >> 8) * (p >> 8)
	x1 = x1 * 3038 >> 16
	x2 = -7357 * p >> 16
	return p + (x1+x2+3791)>>4, nil
}

// Altitude returns the barometric altitude in meters for pressure measured
// against seaLevelPressure, both in Pa.
func Altitude(pressure, seaLevelPressure float64) float64 {
	return 44330.0 * (1.0 - math.Pow(pressure/seaLevelPressure, 1/5.255))
}

// DecodeSigned combines a big-endian register pair into a two's-complement
// 16 bit value.
func DecodeSigned(high, low byte) int32 {
	v := decodeUnsigned(high, low)
	if v >= 0x8000 {
		v -= 65536
	}
	return v
}

func decodeUnsigned(high, low byte) int32 {
	return int32(high)<<8 | int32(low)
}

// Package inject provides injectable fakes of the bus interfaces the sensor
// drivers consume.
package inject

import (
	"github.com/pkg/errors"

	"github.com/b3nn0/i2csensors/common"
)

// RegisterBus is an injected common.RegisterBus.
type RegisterBus struct {
	common.RegisterBus
	ReadByteFromRegFunc func(addr, reg byte) (byte, error)
	WriteByteToRegFunc  func(addr, reg, value byte) error
}

// ReadByteFromReg calls the injected ReadByteFromReg or the real version.
func (b *RegisterBus) ReadByteFromReg(addr, reg byte) (byte, error) {
	if b.ReadByteFromRegFunc == nil {
		if b.RegisterBus == nil {
			return 0, errors.New("ReadByteFromReg not injected")
		}
		return b.RegisterBus.ReadByteFromReg(addr, reg)
	}
	return b.ReadByteFromRegFunc(addr, reg)
}

// WriteByteToReg calls the injected WriteByteToReg or the real version.
func (b *RegisterBus) WriteByteToReg(addr, reg, value byte) error {
	if b.WriteByteToRegFunc == nil {
		if b.RegisterBus == nil {
			return errors.New("WriteByteToReg not injected")
		}
		return b.RegisterBus.WriteByteToReg(addr, reg, value)
	}
	return b.WriteByteToRegFunc(addr, reg, value)
}

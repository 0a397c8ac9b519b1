package common

import "fmt"

// RegisterBus is the byte-wide register access the sensor drivers need.
// embd.I2CBus satisfies it.
type RegisterBus interface {
	ReadByteFromReg(addr, reg byte) (byte, error)
	WriteByteToReg(addr, reg, value byte) error
}

// TransportError reports a failed register access on the I2C bus.
type TransportError struct {
	Device   string
	Op       string // "read" or "write"
	Address  byte
	Register byte
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: i2c %s at 0x%02x reg 0x%02x: %v", e.Device, e.Op, e.Address, e.Register, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ReadRegister reads one byte, wrapping any failure in a *TransportError.
func ReadRegister(bus RegisterBus, device string, addr, reg byte) (byte, error) {
	v, err := bus.ReadByteFromReg(addr, reg)
	if err != nil {
		return 0, &TransportError{Device: device, Op: "read", Address: addr, Register: reg, Err: err}
	}
	return v, nil
}

// WriteRegister writes one byte, wrapping any failure in a *TransportError.
func WriteRegister(bus RegisterBus, device string, addr, reg, value byte) error {
	if err := bus.WriteByteToReg(addr, reg, value); err != nil {
		return &TransportError{Device: device, Op: "write", Address: addr, Register: reg, Err: err}
	}
	return nil
}

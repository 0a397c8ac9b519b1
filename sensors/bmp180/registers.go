// Package bmp180 provides a driver for Bosch's BMP180 digital temperature & pressure sensor.
// The datasheet can be found here: https://cdn-shop.adafruit.com/datasheets/BST-BMP180-DS000-09.pdf
package bmp180

const Address byte = 0x77 // default I2C address

// Calibration EEPROM, one big-endian word per coefficient.
const (
	RegAC1 byte = 0xAA
	RegAC2 byte = 0xAC
	RegAC3 byte = 0xAE
	RegAC4 byte = 0xB0
	RegAC5 byte = 0xB2
	RegAC6 byte = 0xB4
	RegB1  byte = 0xB6
	RegB2  byte = 0xB8
	RegMB  byte = 0xBA
	RegMC  byte = 0xBC
	RegMD  byte = 0xBE
)

const (
	RegChipId  byte = 0xD0 // useful for checking the connection
	RegCtrl    byte = 0xF4 // measurement control
	RegOutMSB  byte = 0xF6 // start of conversion result registers
	RegOutLSB  byte = 0xF7
	RegOutXLSB byte = 0xF8
)

const (
	ChipId          byte = 0x55 // correct response if reading from chip id register
	CmdTemperature  byte = 0x2E // start temperature conversion
	CmdPressure     byte = 0x34 // start pressure conversion, oss in bits 6-7
	Oversampling    uint = 0    // ultra low power; fixed
	pressureShift        = 8 - Oversampling
)

// DefaultSeaLevelPressure is the ISA standard atmosphere at sea level, in Pa.
const DefaultSeaLevelPressure = 101325.0

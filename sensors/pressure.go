// Package sensors provides a stratux interface to sensors used for AHRS calculations.
package sensors

// PressureReader provides an interface to a sensor reading pressure and
// temperature, like the BMP180.
type PressureReader interface {
	Temperature() (temp float64, tempError error) // Temperature returns the temperature in degrees C.
	Pressure() (press float64, pressError error)  // Pressure returns the atmospheric pressure in mBar.
	Altitude() (alt float64, altError error)      // Altitude returns the pressure altitude in meters.
	Close()                                       // Close stops reading from the sensor.
}

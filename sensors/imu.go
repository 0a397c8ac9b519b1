package sensors

// IMUReader provides an interface to 6-axis Inertial Measurement Unit sensors
// such as the InvenSense MPU6050.
type IMUReader interface {
	// Read returns the time of the last reading, Gyro X-Y-Z (º/s), Accel X-Y-Z (g), and the error from the last reading.
	Read() (T int64, G1, G2, G3, A1, A2, A3 float64, GAError error)
	// Close stops reading the IMU.
	Close()
}

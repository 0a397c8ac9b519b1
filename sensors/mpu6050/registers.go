// Package mpu6050 allows interfacing with the InvenSense MPU-6050 6-axis
// accelerometer and gyroscope. Only the default full-scale ranges (±2 g,
// ±250 º/s) are supported.
package mpu6050

//https://www.olimex.com/Products/Modules/Sensors/MOD-MPU6050/resources/RM-MPU-60xxA_rev_4.pdf
const (
	Address byte = 0x68 // AD0 low; 0x69 with AD0 high

	ACCEL_XOUT_H byte = 0x3B
	ACCEL_YOUT_H byte = 0x3D
	ACCEL_ZOUT_H byte = 0x3F

	GYRO_XOUT_H byte = 0x43
	GYRO_YOUT_H byte = 0x45
	GYRO_ZOUT_H byte = 0x47

	PWR_MGMT_1 byte = 0x6B
	WHO_AM_I   byte = 0x75

	SLEEP byte = 1 << 6 // PWR_MGMT_1 sleep bit

	ACCEL_SCALE = 16384.0 // LSB/g, AFS_SEL = 0.
	GYRO_SCALE  = 131.0   // LSB/(º/s), FS_SEL = 0.
)

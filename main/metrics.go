package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/b3nn0/i2csensors/sensors/bmp180"
	"github.com/b3nn0/i2csensors/sensors/mpu6050"
)

const (
	sensorBMP180  = "bmp180"
	sensorMPU6050 = "mpu6050"
)

type metrics struct {
	registry *prometheus.Registry

	temperature prometheus.Gauge
	pressure    prometheus.Gauge
	altitude    prometheus.Gauge
	accel       *prometheus.GaugeVec
	gyro        *prometheus.GaugeVec
	connected   *prometheus.GaugeVec
	readErrors  *prometheus.CounterVec
	cpuTemp     prometheus.Gauge
	uptime      prometheus.Counter
}

// newMetrics registers the sensortest metrics on a private registry.
func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bmp180_temperature_celsius",
			Help: "Last BMP180 temperature.",
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bmp180_pressure_pascals",
			Help: "Last BMP180 pressure.",
		}),
		altitude: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bmp180_altitude_meters",
			Help: "Pressure altitude from the last BMP180 reading.",
		}),
		accel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mpu6050_acceleration_g",
			Help: "Last MPU6050 acceleration per axis.",
		}, []string{"axis"}),
		gyro: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mpu6050_rotation_degrees_per_second",
			Help: "Last MPU6050 angular rate per axis.",
		}, []string{"axis"}),
		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sensor_connected",
			Help: "1 while the sensor is connected and polled.",
		}, []string{"sensor"}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensor_read_errors_total",
			Help: "Failed sensor reads.",
		}, []string{"sensor"}),
		cpuTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpu_temperature_celsius",
			Help: "Current CPU temp.",
		}),
		uptime: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uptime_seconds_total",
			Help: "Total uptime.",
		}),
	}
	m.registry.MustRegister(m.temperature, m.pressure, m.altitude, m.accel, m.gyro,
		m.connected, m.readErrors, m.cpuTemp, m.uptime)
	return m
}

func (m *metrics) observeBaro(r bmp180.Reading) {
	m.temperature.Set(r.Temperature)
	m.pressure.Set(r.Pressure)
	m.altitude.Set(r.Altitude)
}

func (m *metrics) observeIMU(r mpu6050.Reading) {
	m.accel.WithLabelValues("x").Set(r.Ax)
	m.accel.WithLabelValues("y").Set(r.Ay)
	m.accel.WithLabelValues("z").Set(r.Az)
	m.gyro.WithLabelValues("x").Set(r.Gx)
	m.gyro.WithLabelValues("y").Set(r.Gy)
	m.gyro.WithLabelValues("z").Set(r.Gz)
}

func (m *metrics) setConnected(sensor string, ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	m.connected.WithLabelValues(sensor).Set(v)
}

func (m *metrics) readFailed(sensor string) {
	m.readErrors.WithLabelValues(sensor).Inc()
}

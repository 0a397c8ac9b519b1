package common

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

const (
	InvalidCpuTemp = float32(-99.0)

	// CPUTempPath is where the Raspberry Pi kernel reports the SoC temperature.
	CPUTempPath = "/sys/class/thermal/thermal_zone0/temp"
)

type CpuTempUpdateFunc func(cpuTemp float32)

// ReadCPUTemp reads a thermal zone file. Values above 1000 are millidegrees.
func ReadCPUTemp(path string) (float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return InvalidCpuTemp, err
	}
	tInt, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return InvalidCpuTemp, errors.Wrapf(err, "bad temperature in %s", path)
	}
	if tInt > 1000 {
		return float32(tInt) / float32(1000.0), nil
	}
	return float32(tInt), nil // case where Temp is returned as simple integer
}

/* CPUTempMonitor reads the board temperature every second and calls a
callback until ctx is done. Run it in its own goroutine: reading the RPi
thermal zone sometimes hangs for quite some time. */
func CPUTempMonitor(ctx context.Context, clk clock.Clock, path string, updater CpuTempUpdateFunc) {
	timer := clk.Ticker(1 * time.Second)
	defer timer.Stop()
	for {
		if t, err := ReadCPUTemp(path); err == nil && IsCPUTempValid(t) {
			updater(t)
		}
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// Check if CPU temperature is valid. Assume <= 0 is invalid.
func IsCPUTempValid(cpuTemp float32) bool {
	return cpuTemp > 0
}

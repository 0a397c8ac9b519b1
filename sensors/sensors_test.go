package sensors

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/b3nn0/i2csensors/common"
	"github.com/b3nn0/i2csensors/sensors/bmp180"
	"github.com/b3nn0/i2csensors/sensors/mpu6050"
	"github.com/b3nn0/i2csensors/testutils/inject"
)

var (
	_ PressureReader = (*BMP180)(nil)
	_ IMUReader      = (*MPU6050)(nil)
)

var errBus = errors.New("remote I/O error")

const pollFreq = 100 * time.Millisecond

// fakeBus serves both chips from register maps. Writing a conversion
// command to the BMP180 latches ut or up into its output registers.
type fakeBus struct {
	mu       sync.Mutex
	regs     map[byte]map[byte]byte
	ut, up   int32
	failRead bool
	writes   map[byte][][2]byte
}

func newFakeBus() *fakeBus {
	b := &fakeBus{
		regs: map[byte]map[byte]byte{
			bmp180.Address:  {bmp180.RegChipId: bmp180.ChipId},
			mpu6050.Address: {mpu6050.WHO_AM_I: 0x68},
		},
		ut:     27898,
		up:     23843,
		writes: map[byte][][2]byte{},
	}
	// Datasheet calibration: AC1..MD.
	words := []uint16{0x0198, 0xFFB8, 0xC7D1, 0x7FE5, 0x7FF5, 0x5A71, 0x182E, 0x0004, 0x8000, 0xDDF9, 0x0B34}
	for i, w := range words {
		b.regs[bmp180.Address][bmp180.RegAC1+byte(2*i)] = byte(w >> 8)
		b.regs[bmp180.Address][bmp180.RegAC1+byte(2*i)+1] = byte(w)
	}
	b.setIMU(16384, 0, -16384, 131, 0, -262)
	return b
}

func (b *fakeBus) setIMU(raw ...int16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, v := range raw {
		reg := mpu6050.ACCEL_XOUT_H + byte(2*i)
		if i >= 3 {
			reg = mpu6050.GYRO_XOUT_H + byte(2*(i-3))
		}
		b.regs[mpu6050.Address][reg] = byte(uint16(v) >> 8)
		b.regs[mpu6050.Address][reg+1] = byte(uint16(v))
	}
}

func (b *fakeBus) setUT(ut int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ut = ut
}

func (b *fakeBus) setFailRead(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRead = fail
}

func (b *fakeBus) writesTo(addr byte) [][2]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][2]byte(nil), b.writes[addr]...)
}

func (b *fakeBus) injected() *inject.RegisterBus {
	return &inject.RegisterBus{
		ReadByteFromRegFunc: func(addr, reg byte) (byte, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			regs, ok := b.regs[addr]
			if !ok || b.failRead {
				return 0, errBus
			}
			return regs[reg], nil
		},
		WriteByteToRegFunc: func(addr, reg, value byte) error {
			b.mu.Lock()
			defer b.mu.Unlock()
			regs, ok := b.regs[addr]
			if !ok {
				return errBus
			}
			b.writes[addr] = append(b.writes[addr], [2]byte{reg, value})
			if addr == bmp180.Address && reg == bmp180.RegCtrl {
				switch value {
				case bmp180.CmdTemperature:
					regs[bmp180.RegOutMSB], regs[bmp180.RegOutLSB] = byte(b.ut>>8), byte(b.ut)
				case bmp180.CmdPressure:
					raw := b.up << 8
					regs[bmp180.RegOutMSB], regs[bmp180.RegOutLSB], regs[bmp180.RegOutXLSB] = byte(raw>>16), byte(raw>>8), byte(raw)
				}
			}
			return nil
		},
	}
}

// testClock is a mock clock whose Sleep returns immediately.
type testClock struct {
	*clock.Mock
}

func (testClock) Sleep(time.Duration) {}

// tickUntil advances the clock one poll period at a time until cond holds.
func tickUntil(t *testing.T, clk testClock, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if cond() {
			return
		}
		clk.Add(pollFreq)
	}
	t.Fatal("condition not reached")
}

func TestBMP180Reader(t *testing.T) {
	logger := golog.NewTestLogger(t)

	t.Run("first reading is available immediately", func(t *testing.T) {
		bus := newFakeBus()
		bmp, err := NewBMP180(bus.injected(), bmp180.Address, pollFreq, testClock{clock.NewMock()}, logger)
		test.That(t, err, test.ShouldBeNil)
		defer bmp.Close()

		temp, err := bmp.Temperature()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, temp, test.ShouldEqual, 15.0)

		press, err := bmp.Pressure()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, press, test.ShouldAlmostEqual, 699.64, 1e-9)

		alt, err := bmp.Altitude()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, alt, test.ShouldAlmostEqual, 3016.659, 0.001)
	})

	t.Run("polls on every tick", func(t *testing.T) {
		bus := newFakeBus()
		clk := testClock{clock.NewMock()}
		bmp, err := NewBMP180(bus.injected(), bmp180.Address, pollFreq, clk, logger)
		test.That(t, err, test.ShouldBeNil)
		defer bmp.Close()

		bmp.SetSeaLevelPressure(69964)
		bus.setUT(0x7000)
		tickUntil(t, clk, func() bool {
			r, err := bmp.Reading()
			return err == nil && r.Temperature != 15.0
		})
		r, err := bmp.Reading()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, r.Temperature, test.ShouldBeGreaterThan, 15.0)
	})

	t.Run("sea level reference", func(t *testing.T) {
		bus := newFakeBus()
		bmp, err := NewBMP180(bus.injected(), bmp180.Address, pollFreq, testClock{clock.NewMock()}, logger)
		test.That(t, err, test.ShouldBeNil)
		defer bmp.Close()

		bmp.SetSeaLevelPressure(69964)
		test.That(t, bmp.update(), test.ShouldBeNil)
		alt, err := bmp.Altitude()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, alt, test.ShouldEqual, 0.0)
	})

	t.Run("a failed read is reported, not zeroed", func(t *testing.T) {
		bus := newFakeBus()
		bmp, err := NewBMP180(bus.injected(), bmp180.Address, pollFreq, testClock{clock.NewMock()}, logger)
		test.That(t, err, test.ShouldBeNil)
		defer bmp.Close()

		bus.setFailRead(true)
		test.That(t, bmp.update(), test.ShouldNotBeNil)
		_, err = bmp.Temperature()
		var terr *common.TransportError
		test.That(t, errors.As(err, &terr), test.ShouldBeTrue)

		bus.setFailRead(false)
		test.That(t, bmp.update(), test.ShouldBeNil)
		temp, err := bmp.Temperature()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, temp, test.ShouldEqual, 15.0)
	})

	t.Run("gives up after repeated failures", func(t *testing.T) {
		bus := newFakeBus()
		clk := testClock{clock.NewMock()}
		bmp, err := NewBMP180(bus.injected(), bmp180.Address, pollFreq, clk, logger)
		test.That(t, err, test.ShouldBeNil)
		defer bmp.Close()

		bus.setFailRead(true)
		tickUntil(t, clk, func() bool {
			_, err := bmp.Pressure()
			return errors.Is(err, ErrNotRunning)
		})
		_, err = bmp.Pressure()
		test.That(t, err.Error(), test.ShouldContainSubstring, errBus.Error())
	})

	t.Run("close", func(t *testing.T) {
		bus := newFakeBus()
		bmp, err := NewBMP180(bus.injected(), bmp180.Address, pollFreq, testClock{clock.NewMock()}, logger)
		test.That(t, err, test.ShouldBeNil)
		bmp.Close()
		_, err = bmp.Temperature()
		test.That(t, errors.Is(err, ErrNotRunning), test.ShouldBeTrue)
	})

	t.Run("wrong chip", func(t *testing.T) {
		bus := newFakeBus()
		bus.regs[bmp180.Address][bmp180.RegChipId] = 0x58
		_, err := NewBMP180(bus.injected(), bmp180.Address, pollFreq, testClock{clock.NewMock()}, logger)
		test.That(t, err, test.ShouldEqual, errNotBMP180)
	})

	t.Run("missing chip", func(t *testing.T) {
		bus := newFakeBus()
		_, err := NewBMP180(bus.injected(), 0x76, pollFreq, testClock{clock.NewMock()}, logger)
		var terr *common.TransportError
		test.That(t, errors.As(err, &terr), test.ShouldBeTrue)
	})
}

func TestMPU6050Reader(t *testing.T) {
	logger := golog.NewTestLogger(t)

	t.Run("read", func(t *testing.T) {
		bus := newFakeBus()
		clk := testClock{clock.NewMock()}
		clk.Add(time.Second)
		m, err := NewMPU6050(bus.injected(), mpu6050.Address, pollFreq, clk, logger)
		test.That(t, err, test.ShouldBeNil)
		defer m.Close()

		T, g1, g2, g3, a1, a2, a3, err := m.Read()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, T, test.ShouldEqual, time.Unix(1, 0).UnixNano())
		test.That(t, []float64{g1, g2, g3}, test.ShouldResemble, []float64{1, 0, -2})
		test.That(t, []float64{a1, a2, a3}, test.ShouldResemble, []float64{1, 0, -1})
		test.That(t, bus.writesTo(mpu6050.Address), test.ShouldResemble, [][2]byte{{mpu6050.PWR_MGMT_1, 0}})
	})

	t.Run("polls on every tick", func(t *testing.T) {
		bus := newFakeBus()
		clk := testClock{clock.NewMock()}
		m, err := NewMPU6050(bus.injected(), mpu6050.Address, pollFreq, clk, logger)
		test.That(t, err, test.ShouldBeNil)
		defer m.Close()

		bus.setIMU(0, 0, 16384, 0, 0, 0)
		tickUntil(t, clk, func() bool {
			r, _, err := m.Reading()
			return err == nil && r.Az == 1
		})
		r, ts, err := m.Reading()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, r, test.ShouldResemble, mpu6050.Reading{Az: 1})
		test.That(t, ts.After(time.Unix(0, 0)), test.ShouldBeTrue)
	})

	t.Run("close puts the chip to sleep", func(t *testing.T) {
		bus := newFakeBus()
		m, err := NewMPU6050(bus.injected(), mpu6050.Address, pollFreq, testClock{clock.NewMock()}, logger)
		test.That(t, err, test.ShouldBeNil)
		m.Close()

		test.That(t, bus.writesTo(mpu6050.Address), test.ShouldResemble,
			[][2]byte{{mpu6050.PWR_MGMT_1, 0}, {mpu6050.PWR_MGMT_1, mpu6050.SLEEP}})
		_, _, _, _, _, _, _, err = m.Read()
		test.That(t, errors.Is(err, ErrNotRunning), test.ShouldBeTrue)
	})

	t.Run("missing chip", func(t *testing.T) {
		bus := newFakeBus()
		_, err := NewMPU6050(bus.injected(), 0x69, pollFreq, testClock{clock.NewMock()}, logger)
		var terr *common.TransportError
		test.That(t, errors.As(err, &terr), test.ShouldBeTrue)
		test.That(t, terr.Op, test.ShouldEqual, "write")
	})
}

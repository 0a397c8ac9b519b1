package sensors

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// numRetries is how many consecutive failed reads a poller tolerates
// before giving up on the sensor.
const numRetries uint8 = 5

// ErrNotRunning is returned by readers whose sensor was closed or dropped
// after too many failed reads.
var ErrNotRunning = errors.New("sensors: sensor is not running")

// poller is the single goroutine that talks to a sensor after construction.
type poller struct {
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// startPoller calls update on every tick until stop is called or update
// fails more than numRetries times in a row, in which case giveUp gets the
// last error.
func startPoller(clk clock.Clock, freq time.Duration, name string, logger golog.Logger,
	update func() error, giveUp func(error),
) *poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{cancel: cancel}
	ticker := clk.Ticker(freq)

	p.workers.Add(1)
	go func() {
		defer p.workers.Done()
		defer ticker.Stop()

		var failnum uint8
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			err := update()
			if err == nil {
				failnum = 0
				continue
			}
			failnum++
			logger.Warnf("AHRS Error: Couldn't read %s: %s", name, err)
			if failnum > numRetries {
				logger.Errorf("AHRS Error: Couldn't read %s %d times, closing: %s", name, failnum, err)
				giveUp(err)
				return
			}
		}
	}()
	return p
}

func (p *poller) stop() {
	p.cancel()
	p.workers.Wait()
}

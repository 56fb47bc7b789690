// Author:  Niels A.D.
// Project: lsdents (https://github.com/nielsAD/lsdents)
// License: Mozilla Public License, v2.0

package dents

import (
	"context"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const (
	throttleKey      = "fill"
	minThrottleSleep = 10 * time.Millisecond
)

// throttle paces fills to a fixed number per second. A nil throttle never
// blocks.
type throttle struct {
	lim *limiter.Limiter
}

func newThrottle(perSecond int64) *throttle {
	if perSecond <= 0 {
		return nil
	}
	return &throttle{lim: limiter.New(memory.NewStore(), limiter.Rate{Period: time.Second, Limit: perSecond})}
}

// wait blocks until another fill is allowed.
func (t *throttle) wait(ctx context.Context) error {
	if t == nil {
		return nil
	}

	for {
		lc, err := t.lim.Get(ctx, throttleKey)
		if err != nil {
			return err
		}
		if !lc.Reached {
			return nil
		}

		// Reset has a resolution of one second.
		d := time.Until(time.Unix(lc.Reset, 0))
		if d < minThrottleSleep {
			d = minThrottleSleep
		}
		time.Sleep(d)
	}
}

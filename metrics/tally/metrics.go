package tally

import (
	"github.com/dgonzalezf/cdcbox/metrics"
	tally "github.com/uber-go/tally/v4"
)

// tally implementation of metrics.Counter interface.
type Counter struct {
	Counter tally.Counter
}

var _ metrics.Counter = (*Counter)(nil)

func (c *Counter) Inc(delta int64) {
	c.Counter.Inc(delta)
}

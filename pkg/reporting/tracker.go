package reporting

import (
	"sync/atomic"

	errsys "github.com/NexTeck/ExceptionHandler/pkg/errors"
)

// SeverityTracker holds the worst severity seen. It only ever rises.
type SeverityTracker struct {
	v atomic.Int32
}

// Raise records s and returns the resulting high-water mark
func (t *SeverityTracker) Raise(s errsys.Severity) errsys.Severity {
	for {
		cur := t.v.Load()
		if int32(s) <= cur {
			return errsys.Severity(cur)
		}
		if t.v.CompareAndSwap(cur, int32(s)) {
			return s
		}
	}
}

// Peek returns the current high-water mark
func (t *SeverityTracker) Peek() errsys.Severity {
	return errsys.Severity(t.v.Load())
}

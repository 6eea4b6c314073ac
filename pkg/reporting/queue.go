package reporting

import (
	"sync/atomic"

	"github.com/NexTeck/ExceptionHandler/pkg/errorlog"
)

type node struct {
	report errorlog.Report
	next   *node
}

// Queue is an unbounded lock-free FIFO of pending reports. Any number of
// goroutines may enqueue; DrainAll takes everything present in one atomic
// step.
type Queue struct {
	head atomic.Pointer[node]
	size atomic.Int64
}

// Enqueue adds r to the queue. It never blocks and never fails.
func (q *Queue) Enqueue(r errorlog.Report) {
	n := &node{report: r}
	for {
		old := q.head.Load()
		n.next = old
		if q.head.CompareAndSwap(old, n) {
			q.size.Add(1)
			return
		}
	}
}

// DrainAll removes and returns every queued report in enqueue order.
// Reports enqueued after the swap stay queued for the next drain.
func (q *Queue) DrainAll() []errorlog.Report {
	top := q.head.Swap(nil)
	if top == nil {
		return nil
	}

	var out []errorlog.Report
	for n := top; n != nil; n = n.next {
		out = append(out, n.report)
	}
	q.size.Add(-int64(len(out)))

	// The stack holds newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Len returns the approximate number of queued reports
func (q *Queue) Len() int {
	n := q.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Empty reports whether nothing is queued
func (q *Queue) Empty() bool {
	return q.head.Load() == nil
}

package reporting

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errsys "github.com/NexTeck/ExceptionHandler/pkg/errors"
	"github.com/NexTeck/ExceptionHandler/pkg/errorlog"
)

func report(msg string) errorlog.Report {
	return errorlog.NewReport(errsys.New(errsys.CodeUnclassified, msg), errsys.SeveritySevere, time.Now())
}

func TestQueue_FIFO(t *testing.T) {
	var q Queue
	assert.True(t, q.Empty())
	assert.Nil(t, q.DrainAll())

	for i := 0; i < 5; i++ {
		q.Enqueue(report(fmt.Sprintf("r%d", i)))
	}
	assert.Equal(t, 5, q.Len())
	assert.False(t, q.Empty())

	got := q.DrainAll()
	require.Len(t, got, 5)
	for i, r := range got {
		assert.Equal(t, fmt.Sprintf("r%d", i), r.Failure.Message)
	}
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_ConcurrentEnqueueAndDrain(t *testing.T) {
	const producers = 8
	const perProducer = 500

	var q Queue
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(report(fmt.Sprintf("%d:%d", p, i)))
			}
		}(p)
	}

	done := make(chan struct{})
	var drained []errorlog.Report
	go func() {
		defer close(done)
		for len(drained) < producers*perProducer {
			drained = append(drained, q.DrainAll()...)
		}
	}()

	wg.Wait()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("drain did not collect every report")
	}

	require.Len(t, drained, producers*perProducer)
	assert.True(t, q.Empty())

	// Each producer's reports come out in the order it enqueued them
	next := make([]int, producers)
	for _, r := range drained {
		var p, i int
		_, err := fmt.Sscanf(r.Failure.Message, "%d:%d", &p, &i)
		require.NoError(t, err)
		assert.Equal(t, next[p], i, "producer %d out of order", p)
		next[p] = i + 1
	}
}

func TestSeverityTracker_Monotonic(t *testing.T) {
	var tr SeverityTracker
	assert.Equal(t, errsys.SeveritySimple, tr.Peek())

	tr.Raise(errsys.SeveritySimple)
	assert.Equal(t, errsys.SeverityFatal, tr.Raise(errsys.SeverityFatal))
	assert.Equal(t, errsys.SeverityFatal, tr.Raise(errsys.SeveritySimple))
	assert.Equal(t, errsys.SeverityFatal, tr.Peek())
}

func TestSeverityTracker_ConcurrentRaise(t *testing.T) {
	var tr SeverityTracker
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Raise(errsys.Severity(i % 3))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, errsys.SeverityFatal, tr.Peek())
}

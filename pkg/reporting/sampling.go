package reporting

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	errsys "github.com/NexTeck/ExceptionHandler/pkg/errors"
)

// SampleRecord tracks notifications for one failure code
type SampleRecord struct {
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	Count      int       `json:"count"`
	Suppressed int       `json:"suppressed"` // since the last delivered notification
	TraceID    string    `json:"trace_id"`
}

type sampleEntry struct {
	SampleRecord
	limiter *rate.Limiter
}

// SamplingRegistry rate limits operator notifications per failure code:
//   - Fatal: always notify
//   - First occurrence of a code: notify
//   - Repeat within the window: skip, just count
//   - Repeat after the window: notify with the accumulated count
type SamplingRegistry struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]*sampleEntry
}

// SamplingStats holds registry statistics
type SamplingStats struct {
	UniqueCodes      int           `json:"unique_codes"`
	TotalOccurrences int           `json:"total_occurrences"`
	Suppressed       int           `json:"suppressed"`
	Window           time.Duration `json:"window"`
}

// NewSamplingRegistry creates a registry allowing one notification per code
// per window. It returns nil when window is not positive, and a nil registry
// lets every notification through.
func NewSamplingRegistry(window time.Duration) *SamplingRegistry {
	if window <= 0 {
		return nil
	}
	return &SamplingRegistry{
		window: window,
		seen:   make(map[string]*sampleEntry),
	}
}

// Allow decides whether a notification for f should be delivered at time at.
// When it is, repeats is the number of notifications suppressed before it.
func (r *SamplingRegistry) Allow(f *errsys.Failure, sev errsys.Severity, at time.Time) (ok bool, repeats int) {
	if r == nil {
		return true, 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.seen[f.Code]
	if !exists {
		e = &sampleEntry{
			SampleRecord: SampleRecord{FirstSeen: at},
			limiter:      rate.NewLimiter(rate.Every(r.window), 1),
		}
		r.seen[f.Code] = e
	}
	e.Count++
	e.LastSeen = at
	e.TraceID = f.TraceID

	// The limiter is consumed even for fatal reports so the window restarts
	allowed := e.limiter.AllowN(at, 1)
	if !allowed && sev < errsys.SeverityFatal {
		e.Suppressed++
		return false, 0
	}

	repeats = e.Suppressed
	e.Suppressed = 0
	return true, repeats
}

// Record returns a copy of the record for code
func (r *SamplingRegistry) Record(code string) (SampleRecord, bool) {
	if r == nil {
		return SampleRecord{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.seen[code]
	if !ok {
		return SampleRecord{}, false
	}
	return e.SampleRecord, true
}

// Clear forgets every code
func (r *SamplingRegistry) Clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = make(map[string]*sampleEntry)
}

// Stats returns statistics about the registry
func (r *SamplingRegistry) Stats() SamplingStats {
	if r == nil {
		return SamplingStats{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := SamplingStats{UniqueCodes: len(r.seen), Window: r.window}
	for _, e := range r.seen {
		stats.TotalOccurrences += e.Count
		stats.Suppressed += e.Suppressed
	}
	return stats
}

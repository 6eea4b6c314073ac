// Package errorlog holds the persisted record of reported failures.
package errorlog

import (
	"time"

	"github.com/google/uuid"

	errsys "github.com/NexTeck/ExceptionHandler/pkg/errors"
)

// StoreKey is the configstore key the error log is saved under
const StoreKey = "ErrorLog"

// now is replaced in tests
var now = time.Now

// Report is one captured failure together with the moment it was reported
type Report struct {
	ID         string
	Failure    errsys.Failure
	Severity   errsys.Severity
	CapturedAt time.Time
}

// NewReport snapshots f into a report. A nil failure yields an
// unclassified placeholder so the record is never empty.
func NewReport(f *errsys.Failure, sev errsys.Severity, at time.Time) Report {
	if f == nil {
		f = errsys.New(errsys.CodeUnclassified, "nil failure reported")
	}
	return Report{
		ID:         uuid.NewString(),
		Failure:    *f,
		Severity:   sev,
		CapturedAt: at,
	}
}

// Log is the ordered list of persisted reports, oldest first
type Log struct {
	Records []Report
}

// New returns an empty log
func New() *Log {
	l := &Log{}
	l.SetDefaults()
	return l
}

// NewWith returns a log seeded with one failure
func NewWith(f *errsys.Failure) *Log {
	l := New()
	l.Append(f)
	return l
}

// SetDefaults resets the log to its empty state
func (l *Log) SetDefaults() {
	l.Records = []Report{}
}

// Append records f with the current time
func (l *Log) Append(f *errsys.Failure) {
	l.Records = append(l.Records, NewReport(f, errsys.SeveritySevere, now()))
}

// AppendAll records every failure in order, all stamped with the same time
func (l *Log) AppendAll(fs []*errsys.Failure) {
	at := now()
	for _, f := range fs {
		l.Records = append(l.Records, NewReport(f, errsys.SeveritySevere, at))
	}
}

// AppendReports adds already-timestamped reports in order
func (l *Log) AppendReports(rs ...Report) {
	l.Records = append(l.Records, rs...)
}

// Len returns the number of records
func (l *Log) Len() int {
	return len(l.Records)
}

// Last returns up to n most recent records, oldest first
func (l *Log) Last(n int) []Report {
	if n <= 0 || n >= len(l.Records) {
		return l.Records
	}
	return l.Records[len(l.Records)-n:]
}

// Filter returns the records at or above min, preserving order
func (l *Log) Filter(min errsys.Severity) []Report {
	var out []Report
	for _, r := range l.Records {
		if r.Severity >= min {
			out = append(out, r)
		}
	}
	return out
}

// Counts returns the number of records per severity
func (l *Log) Counts() map[errsys.Severity]int {
	counts := make(map[errsys.Severity]int)
	for _, r := range l.Records {
		counts[r.Severity]++
	}
	return counts
}

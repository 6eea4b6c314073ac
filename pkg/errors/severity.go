package errors

import (
	"fmt"
	"strings"
)

// Severity is the ordered escalation level of a report.
type Severity int32

const (
	// SeveritySimple needs no interruption and is not persisted
	SeveritySimple Severity = iota
	// SeveritySevere is persisted to the error log
	SeveritySevere
	// SeverityFatal is persisted, then the process is restarted
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeveritySimple:
		return "simple"
	case SeveritySevere:
		return "severe"
	case SeverityFatal:
		return "fatal"
	default:
		return fmt.Sprintf("severity(%d)", int32(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity parses a severity name, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simple":
		return SeveritySimple, nil
	case "severe", "":
		return SeveritySevere, nil
	case "fatal":
		return SeverityFatal, nil
	default:
		return SeveritySimple, fmt.Errorf("unknown severity %q", s)
	}
}

// Package errors provides the failure model for the exhandler fault-reporting
// pipeline.
//
// # Overview
//
// A Failure is an immutable snapshot of an error taken at the moment it is
// reported:
//   - a structured code (GEN-001, RUN-001, STO-003, ...) derived from the
//     error's origin
//   - the error message plus its ordered cause chain, root cause last
//   - the capture location and a trimmed call stack
//   - a trace ID that identifies the record in the persisted error log
//
// # Quick Start
//
//	f := errors.Capture(err)               // classify by origin
//	f := errors.Wrap(errors.CodeStoreIO, err)
//	f := errors.NewBuilder("STO-002").
//	    Wrap(err).
//	    WithFunction("LoadSettings").
//	    Build()
//
// Inside a deferred recover:
//
//	if v := recover(); v != nil {
//	    f := errors.FromPanic(v)
//	}
//
// # Error Codes
//
// Codes follow the format CATEGORY-NUMBER:
//   - GEN: unclassified
//   - RUN: panics, failed tasks, deadlines
//   - STO: configuration store
//   - REP: the reporting pipeline itself
//   - SYS: operating system
//   - CFG: configuration
//
// Errors that know their own code implement Coder. Applications add codes
// with Register.
//
// # Severity Levels
//
//   - Simple: shown (if a message is supplied) but never persisted
//   - Severe: persisted to the error log
//   - Fatal: persisted, then the process restarts
//
// # Support Codes
//
// When programmer detail is hidden, operators see SupportCode(f), the failure
// code plus a trace prefix, instead of the raw message.
package errors

package errors

import (
	"sort"
	"sync"
)

// Registered codes used by the reporting pipeline itself
const (
	CodeUnclassified = "GEN-001"
	CodePanic        = "RUN-001"
	CodeTaskFailed   = "RUN-002"
	CodeDeadline     = "RUN-003"
	CodeNotFound     = "STO-001"
	CodeCorrupt      = "STO-002"
	CodeStoreIO      = "STO-003"
	CodePersist      = "REP-001"
	CodeRestart      = "REP-002"
	CodeFileNotFound = "SYS-001"
	CodePermission   = "SYS-002"
	CodeConfigLoad   = "CFG-001"
)

// Definition defines an error code's properties
type Definition struct {
	Code     string `json:"code"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Help     string `json:"help"`
}

var (
	registry   = make(map[string]Definition)
	registryMu sync.RWMutex
)

var defaultCodes = map[string]Definition{
	CodeUnclassified: {
		Code:     CodeUnclassified,
		Category: "general",
		Message:  "unclassified failure",
		Help:     "The failure did not carry a known origin; inspect the cause chain",
	},

	// Runtime (RUN-001+)
	CodePanic: {
		Code:     CodePanic,
		Category: "runtime",
		Message:  "panic recovered",
		Help:     "A goroutine panicked; the stack identifies the panic site",
	},
	CodeTaskFailed: {
		Code:     CodeTaskFailed,
		Category: "runtime",
		Message:  "background task failed",
		Help:     "A supervised task returned an error",
	},
	CodeDeadline: {
		Code:     CodeDeadline,
		Category: "runtime",
		Message:  "operation canceled or timed out",
		Help:     "Check upstream timeouts and cancellation",
	},

	// Configuration store (STO-001+)
	CodeNotFound: {
		Code:     CodeNotFound,
		Category: "store",
		Message:  "configuration entry not found",
		Help:     "A default entry is created on the next load-or-create",
	},
	CodeCorrupt: {
		Code:     CodeCorrupt,
		Category: "store",
		Message:  "configuration entry corrupt",
		Help:     "The stored bytes could not be decoded; the entry is replaced by its default",
	},
	CodeStoreIO: {
		Code:     CodeStoreIO,
		Category: "store",
		Message:  "configuration store I/O failure",
		Help:     "Check disk space and permissions on the store location",
	},

	// Reporting pipeline (REP-001+)
	CodePersist: {
		Code:     CodePersist,
		Category: "reporting",
		Message:  "error log persist failed",
		Help:     "Reports from this drain cycle were lost; check the store location",
	},
	CodeRestart: {
		Code:     CodeRestart,
		Category: "reporting",
		Message:  "process restart failed",
		Help:     "Restart the program manually",
	},

	// System (SYS-001+)
	CodeFileNotFound: {
		Code:     CodeFileNotFound,
		Category: "system",
		Message:  "file not found",
		Help:     "Verify the path exists",
	},
	CodePermission: {
		Code:     CodePermission,
		Category: "system",
		Message:  "permission denied",
		Help:     "Check file ownership and mode",
	},

	// Configuration (CFG-001+)
	CodeConfigLoad: {
		Code:     CodeConfigLoad,
		Category: "config",
		Message:  "configuration load failed",
		Help:     "Check config file syntax and file permissions",
	},
}

func init() {
	for code, def := range defaultCodes {
		registry[code] = def
	}
}

// Register adds a new error code to the registry
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[def.Code] = def
}

// Lookup retrieves an error code definition
func Lookup(code string) Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if def, ok := registry[code]; ok {
		return def
	}

	return Definition{
		Code:     code,
		Category: "unknown",
		Message:  "unknown error",
		Help:     "No additional help available for this error code",
	}
}

// AllCodes returns all registered codes sorted by code
func AllCodes() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Definition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result
}

// CodesByCategory returns all codes in a given category
func CodesByCategory(category string) []Definition {
	var result []Definition
	for _, def := range AllCodes() {
		if def.Category == category {
			result = append(result, def)
		}
	}
	return result
}

// SupportCode returns the operator-facing code shown instead of programmer
// detail: the failure code followed by the first eight characters of its
// trace ID, e.g. "STO-003-1a2b3c4d". The suffix locates the exact record in
// the persisted error log.
func SupportCode(f *Failure) string {
	if f == nil {
		return CodeUnclassified
	}
	code := f.Code
	if code == "" {
		code = CodeUnclassified
	}
	id := f.TraceID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		return code
	}
	return code + "-" + id
}

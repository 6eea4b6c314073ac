package errors

import "testing"

func TestLookup_Registered(t *testing.T) {
	def := Lookup(CodeStoreIO)
	if def.Category != "store" {
		t.Errorf("Category = %q, want store", def.Category)
	}
	if def.Help == "" {
		t.Error("Help should be set")
	}
}

func TestLookup_Unknown(t *testing.T) {
	def := Lookup("XYZ-999")
	if def.Code != "XYZ-999" {
		t.Errorf("Code = %q, want XYZ-999", def.Code)
	}
	if def.Category != "unknown" {
		t.Errorf("Category = %q, want unknown", def.Category)
	}
}

func TestRegister(t *testing.T) {
	Register(Definition{Code: "APP-001", Category: "app", Message: "app failure"})

	if got := Lookup("APP-001").Message; got != "app failure" {
		t.Errorf("Lookup().Message = %q", got)
	}
	if len(CodesByCategory("app")) != 1 {
		t.Error("CodesByCategory(app) should return the registered code")
	}
}

func TestAllCodes_Sorted(t *testing.T) {
	codes := AllCodes()
	if len(codes) < len(defaultCodes) {
		t.Fatalf("AllCodes() returned %d codes, want at least %d", len(codes), len(defaultCodes))
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1].Code > codes[i].Code {
			t.Fatalf("codes not sorted at %d: %s > %s", i, codes[i-1].Code, codes[i].Code)
		}
	}
}

func TestSupportCode(t *testing.T) {
	tests := []struct {
		name string
		f    *Failure
		want string
	}{
		{"nil", nil, CodeUnclassified},
		{"full", &Failure{Code: "STO-003", TraceID: "1a2b3c4d-5e6f"}, "STO-003-1a2b3c4d"},
		{"short trace", &Failure{Code: "RUN-001", TraceID: "abc"}, "RUN-001-abc"},
		{"no trace", &Failure{Code: "RUN-001"}, "RUN-001"},
		{"no code", &Failure{TraceID: "1a2b3c4d"}, "GEN-001-1a2b3c4d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SupportCode(tt.f); got != tt.want {
				t.Errorf("SupportCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

package validation

import (
	"strings"
	"testing"
)

func TestValidateTierName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"minute", false},
		{"tier0", false},
		{"half-hour", false},
		{"raw_1m", false},
		{"", true},
		{"two words", true},
		{"a.b", true},
		{"tab\there", true},
		{"x=1", true},
		{strings.Repeat("a", 32), false},
		{strings.Repeat("a", 33), true},
	}

	for _, tt := range tests {
		err := ValidateTierName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTierName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestValidateNameWithDots(t *testing.T) {
	rules := TierNameRules()
	rules.AllowDots = true

	if err := ValidateName("a.b", rules); err != nil {
		t.Errorf("expected dots to be allowed: %v", err)
	}
}

func TestValidateOID(t *testing.T) {
	tests := []struct {
		oid     string
		wantErr bool
	}{
		{"1.3.6.1.2.1.1.3.0", false},
		{".1.3.6.1.4.1.2021.13.16.2.1.3.1", false},
		{"", true},
		{".", true},
		{"1", true},
		{"1..3", true},
		{"1.3.x", true},
		{"1.3.6.", true},
		{"7.1", true},
		{"sysUpTime.0", true},
	}

	for _, tt := range tests {
		err := ValidateOID(tt.oid)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateOID(%q) error = %v, wantErr %v", tt.oid, err, tt.wantErr)
		}
	}
}

func TestValidateSocketPath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"/tmp/sensorlog.sock", false},
		{"sensorlog.sock", false},
		{"", true},
		{"/run/sensorlog/", true},
		{"/tmp/" + strings.Repeat("s", 120), true},
		{"/tmp/a\x00b", true},
	}

	for _, tt := range tests {
		err := ValidateSocketPath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSocketPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
	}
}

func BenchmarkValidateOID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ValidateOID(".1.3.6.1.4.1.2021.13.16.2.1.3.1")
	}
}

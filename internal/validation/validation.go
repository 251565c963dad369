// Package validation provides centralized input validation for sensorlog.
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for names.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowDots    bool
	AllowHyphens bool
	AllowUnders  bool
}

// TierNameRules returns the rules for retention tier names. Tier names
// appear unquoted in the stats log line.
func TierNameRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    32,
		AllowDots:    false,
		AllowHyphens: true,
		AllowUnders:  true,
	}
}

// ValidateName validates a name according to the given rules.
func ValidateName(name string, rules NameRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("name too short: minimum %d characters required", rules.MinLength)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("name too long: maximum %d characters allowed", rules.MaxLength)
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("name cannot contain control characters at position %d", i)
		}
		if !isAllowedNameChar(r, rules) {
			return fmt.Errorf("invalid character '%c' at position %d", r, i)
		}
	}

	return nil
}

func isAllowedNameChar(r rune, rules NameRules) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '.':
		return rules.AllowDots
	case '-':
		return rules.AllowHyphens
	case '_':
		return rules.AllowUnders
	}
	return false
}

// ValidateTierName validates a tier name with TierNameRules.
func ValidateTierName(name string) error {
	return ValidateName(name, TierNameRules())
}

// =============================================================================
// OID Validation
// =============================================================================

// ValidateOID checks a numeric SNMP object identifier such as
// "1.3.6.1.4.1.2021.13.16.2.1.3.1". A leading dot is accepted.
func ValidateOID(oid string) error {
	s := strings.TrimPrefix(oid, ".")
	if s == "" {
		return fmt.Errorf("OID cannot be empty")
	}

	arcs := strings.Split(s, ".")
	if len(arcs) < 2 {
		return fmt.Errorf("OID %q needs at least two arcs", oid)
	}

	for i, arc := range arcs {
		if arc == "" {
			return fmt.Errorf("OID %q has an empty arc at position %d", oid, i)
		}
		if _, err := strconv.ParseUint(arc, 10, 32); err != nil {
			return fmt.Errorf("OID %q: arc %q is not a number", oid, arc)
		}
	}

	if first := arcs[0]; first != "0" && first != "1" && first != "2" {
		return fmt.Errorf("OID %q must start with 0, 1 or 2", oid)
	}

	return nil
}

// =============================================================================
// Socket Path Validation
// =============================================================================

// MaxSocketPath is the longest unix socket path the kernel accepts,
// sun_path minus the terminating NUL.
const MaxSocketPath = 107

// ValidateSocketPath checks a filesystem path for a unix socket.
func ValidateSocketPath(path string) error {
	if path == "" {
		return fmt.Errorf("socket path cannot be empty")
	}
	if len(path) > MaxSocketPath {
		return fmt.Errorf("socket path too long: %d bytes, maximum %d", len(path), MaxSocketPath)
	}
	if strings.HasSuffix(path, "/") {
		return fmt.Errorf("socket path %q names a directory", path)
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("socket path cannot contain NUL")
	}
	return nil
}

package procedure

import (
	"fmt"
	"strings"
	"unicode"
)

const maxNameParts = 3

// ValidateProcedureName accepts a plain or delimited identifier, optionally qualified
// (db.schema.proc). The name ends up inside call text, so nothing else is allowed.
func ValidateProcedureName(name string) error {
	s := strings.TrimSpace(name)
	if s == "" {
		return ValidationError{Field: "param1", Reason: "procedure name is empty", Err: ErrEmptyProcedureName}
	}

	parts, err := splitQualified(s)
	if err != nil {
		return ValidationError{Field: "param1", Reason: err.Error()}
	}
	if len(parts) > maxNameParts {
		return ValidationError{Field: "param1", Reason: fmt.Sprintf("procedure %q has too many name parts", s)}
	}
	for _, p := range parts {
		if err := validateNamePart(p); err != nil {
			return ValidationError{Field: "param1", Reason: err.Error()}
		}
	}
	return nil
}

// splitQualified splits on dots outside [..] and "..".
func splitQualified(s string) ([]string, error) {
	var (
		parts  []string
		start  int
		closer rune
	)
	for i, r := range s {
		switch {
		case closer != 0:
			if r == closer {
				closer = 0
			}
		case r == '[':
			closer = ']'
		case r == '"':
			closer = '"'
		case r == '.':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	if closer != 0 {
		return nil, fmt.Errorf("procedure %q has an unterminated delimiter", s)
	}
	return append(parts, s[start:]), nil
}

func validateNamePart(p string) error {
	if p == "" {
		return fmt.Errorf("procedure name has an empty part")
	}

	if delimited(p, '[', ']') || delimited(p, '"', '"') {
		inner := p[1 : len(p)-1]
		if inner == "" {
			return fmt.Errorf("procedure name has an empty part")
		}
		for _, r := range inner {
			if unicode.IsControl(r) || r == ';' {
				return fmt.Errorf("procedure name part %s has invalid char", p)
			}
		}
		return nil
	}

	for i, r := range p {
		if i == 0 {
			if !(unicode.IsLetter(r) || r == '_' || r == '#') {
				return fmt.Errorf("procedure name part %q must start with letter/_/#", p)
			}
			continue
		}
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' || r == '#') {
			return fmt.Errorf("procedure name part %q has invalid char", p)
		}
	}
	return nil
}

func delimited(p string, open, end byte) bool {
	if len(p) < 2 || p[0] != open || p[len(p)-1] != end {
		return false
	}
	return !strings.ContainsRune(p[1:len(p)-1], rune(end))
}

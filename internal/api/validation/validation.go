package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxNameLength    = 255
	maxPhoneLength   = 50
	maxAddressLength = 500
	// Timezone is free text ("Europe/Berlin", "IST", "GMT+5:30").
	maxTimezoneLength = 100
)

var (
	// EmailRegex validates email format
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// Credentials checks a register or login body.
func Credentials(email, password string) []FieldError {
	var errs []FieldError
	if email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "Email is required"})
	} else if !IsValidEmail(email) {
		errs = append(errs, FieldError{Field: "email", Message: "Valid email is required"})
	}
	if password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "Password is required"})
	}
	return errs
}

// Contact checks the editable contact fields. Optional fields are only
// checked when present.
func Contact(name, email string, phone, address, timezone *string) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "Name is required"})
	} else if utf8.RuneCountInString(name) > maxNameLength {
		errs = append(errs, FieldError{Field: "name", Message: "Name is too long"})
	}

	if !IsValidEmail(email) {
		errs = append(errs, FieldError{Field: "email", Message: "Valid email is required"})
	}

	if phone != nil && utf8.RuneCountInString(*phone) > maxPhoneLength {
		errs = append(errs, FieldError{Field: "phone", Message: "Phone is too long"})
	}
	if address != nil && utf8.RuneCountInString(*address) > maxAddressLength {
		errs = append(errs, FieldError{Field: "address", Message: "Address is too long"})
	}
	if timezone != nil && utf8.RuneCountInString(*timezone) > maxTimezoneLength {
		errs = append(errs, FieldError{Field: "timezone", Message: "Timezone is too long"})
	}

	return errs
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Remove control characters except newlines and tabs
	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// OptionalString trims and sanitizes an optional value; blank becomes nil.
func OptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(SanitizeString(*s))
	if v == "" {
		return nil
	}
	return &v
}

// form.go validates dynamic form submissions against a form's field
// definitions. Validation is a pure function over the definitions and the
// submitted responses; it touches no storage and collects every error rather
// than stopping at the first, so the caller can surface the full list at once.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/societyhub/societyhub/internal/db/models"
)

// FieldError reports one validation failure against a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateResponses checks submitted responses against the form's field
// definitions. It iterates the definitions (not the submissions) so a
// required field that was simply omitted is still caught, then flags any
// submitted label that matches no definition. Returns nil when valid.
func ValidateResponses(fields models.FieldList, responses models.ResponseList) []FieldError {
	var errs []FieldError

	byLabel := make(map[string]models.FieldResponse, len(responses))
	for _, resp := range responses {
		byLabel[resp.FieldLabel] = resp
	}

	declared := make(map[string]bool, len(fields))
	for _, field := range fields {
		declared[field.Label] = true

		resp, submitted := byLabel[field.Label]
		if !submitted || isEmpty(resp.Value) {
			if field.IsRequired {
				errs = append(errs, FieldError{Field: field.Label, Message: field.Label + " is required"})
			}
			continue
		}

		if msg := checkType(field, resp.Value); msg != "" {
			errs = append(errs, FieldError{Field: field.Label, Message: msg})
		}
	}

	for _, resp := range responses {
		if !declared[resp.FieldLabel] {
			errs = append(errs, FieldError{Field: resp.FieldLabel, Message: "Unknown field"})
		}
	}

	return errs
}

// checkType validates a non-empty value against the field's declared type.
// Returns an empty string when the value is acceptable.
func checkType(field models.FormField, value any) string {
	switch field.FieldType {
	case models.FieldEmail:
		s, ok := value.(string)
		if !ok || !emailShape(s) {
			return field.Label + " must be a valid email address"
		}
	case models.FieldNumber:
		if !numeric(value) {
			return field.Label + " must be a number"
		}
	case models.FieldDropdown:
		s, ok := value.(string)
		if !ok {
			return field.Label + " must be one of the listed options"
		}
		for _, opt := range field.Options {
			if s == opt {
				return ""
			}
		}
		return field.Label + " must be one of the listed options"
	case models.FieldCheckbox:
		if _, ok := value.(bool); !ok {
			return field.Label + " must be true or false"
		}
	case models.FieldText, models.FieldTextarea, models.FieldPhone:
		if _, ok := value.(string); !ok {
			return field.Label + " must be text"
		}
	case models.FieldDate:
		s, ok := value.(string)
		if !ok || !dateShape(s) {
			return field.Label + " must be a valid date"
		}
	case models.FieldFile:
		// File contents are checked by the upload pipeline before
		// validation runs; nothing to do here.
	}
	return ""
}

// isEmpty treats nil, the empty string and a whitespace-only string as an
// absent answer. Zero numbers and false booleans are real answers.
func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// numeric accepts JSON number types and strings that parse as a number.
func numeric(value any) bool {
	switch v := value.(type) {
	case float64, float32, int, int32, int64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return err == nil
	default:
		return false
	}
}

// emailShape is a deliberately loose local@domain.tld check; deliverability
// is only proven by the OTP round trip.
func emailShape(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 || at != strings.LastIndex(s, "@") {
		return false
	}
	domain := s[at+1:]
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	return !strings.ContainsAny(s, " \t\n")
}

// dateShape accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func dateShape(s string) bool {
	if len(s) < 10 {
		return false
	}
	date := s[:10]
	if date[4] != '-' || date[7] != '-' {
		return false
	}
	for i, c := range date {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	month, _ := strconv.Atoi(date[5:7])
	day, _ := strconv.Atoi(date[8:10])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	if len(s) == 10 {
		return true
	}
	return s[10] == 'T'
}

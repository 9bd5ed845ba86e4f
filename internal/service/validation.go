package service

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/accomplishment-service/internal/domain"
)

// Validation rule identifiers carried by ValidationError.
const (
	RuleEmployeeIDFormat = "employee_id_format"
	RulePasswordLength   = "password_length"
	RulePasswordDigits   = "password_digits"
	RulePasswordLetters  = "password_letters"
	RuleRole             = "role"
	RuleRequired         = "required"
)

// Password policy.
const (
	MinPasswordLength  = 5
	MinPasswordDigits  = 3
	MinPasswordLetters = 2
)

var employeeIDPattern = regexp.MustCompile(`^\d+$`)

// ValidateEmployeeID checks that id is made of digits only.
func ValidateEmployeeID(id string) error {
	if !employeeIDPattern.MatchString(id) {
		return &ValidationError{Rule: RuleEmployeeIDFormat, Message: "Employee ID must be a valid number."}
	}
	return nil
}

// ValidatePassword applies the length, digit and letter minimums. The digit
// and letter counts are independent minimums over the same string.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ValidationError{Rule: RulePasswordLength, Message: "Password must be at least 5 characters long."}
	}

	digits, letters := 0, 0
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			letters++
		}
	}
	if digits < MinPasswordDigits {
		return &ValidationError{Rule: RulePasswordDigits, Message: "Password must contain at least 3 numbers."}
	}
	if letters < MinPasswordLetters {
		return &ValidationError{Rule: RulePasswordLetters, Message: "Password must contain at least 2 letters."}
	}
	return nil
}

// resolveRole defaults an empty role to employee.
func resolveRole(raw string) (domain.Role, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.RoleEmployee, nil
	}
	role := domain.Role(strings.ToLower(raw))
	if !role.Valid() {
		return "", &ValidationError{Rule: RuleRole, Message: "Role must be admin or employee."}
	}
	return role, nil
}

func requireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{Rule: RuleRequired, Message: "All fields are required, missing: " + strings.Join(missing, ", ")}
	}
	return nil
}

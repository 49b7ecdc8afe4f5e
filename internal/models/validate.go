package models

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
)

var (
	nameRe  = regexp.MustCompile(`^[\p{L} ]{2,50}$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const (
	minPasswordLen    = 8
	passwordSpecials  = "@$!%*?&"
	fieldErrSeparator = "; "
)

// FieldError describes one invalid registration field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects field errors. It matches common.ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", common.ErrValidation, strings.Join(parts, fieldErrSeparator))
}

func (e *ValidationError) Is(target error) bool {
	return target == common.ErrValidation
}

// Validate checks the registration form rules. It returns a *ValidationError
// or nil.
func (in RegisterInput) Validate() error {
	var fields []FieldError
	add := func(field, msg string) {
		fields = append(fields, FieldError{Field: field, Message: msg})
	}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		add("name", "name is required")
	case !nameRe.MatchString(name):
		add("name", "name must be 2-50 letters or spaces")
	}

	email := strings.TrimSpace(in.Email)
	switch {
	case email == "":
		add("email", "email is required")
	case !emailRe.MatchString(email):
		add("email", "email is not valid")
	}

	if msg := checkPassword(in.Password); msg != "" {
		add("password", msg)
	}

	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		add("confirmPassword", "passwords do not match")
	}

	if in.Role != RoleNone && !in.Role.Valid() {
		add("role", fmt.Sprintf("unknown role %q", in.Role))
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func checkPassword(p string) string {
	if p == "" {
		return "password is required"
	}
	if len(p) < minPasswordLen {
		return fmt.Sprintf("password must be at least %d characters", minPasswordLen)
	}
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return "password must contain upper and lower case letters, a digit and one of " + passwordSpecials
	}
	return ""
}

// Validate checks that both login fields are present.
func (c Credentials) Validate() error {
	var fields []FieldError
	if strings.TrimSpace(c.Email) == "" {
		fields = append(fields, FieldError{Field: "email", Message: "email is required"})
	}
	if c.Password == "" {
		fields = append(fields, FieldError{Field: "password", Message: "password is required"})
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

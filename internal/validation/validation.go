// Package validation checks learner-supplied profile fields
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	userNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)
)

const (
	MinPasswordLength = 4
	MinAge            = 5
	MaxAge            = 120
)

// Genders accepted at registration
var Genders = []string{"male", "female", "other"}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	return nil
}

// ValidateName checks a full name. Any script is allowed; Devanagari
// vowel signs are combining marks.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "fullName", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) < 2 {
		return ValidationError{Field: "fullName", Message: "name must be at least 2 characters"}
	}
	if utf8.RuneCountInString(name) > 100 {
		return ValidationError{Field: "fullName", Message: "name must be at most 100 characters"}
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.Is(unicode.M, r) && r != ' ' && r != '-' && r != '\'' && r != '.' {
			return ValidationError{Field: "fullName", Message: "name contains invalid characters"}
		}
	}
	return nil
}

// ValidateUserName checks a login name
func ValidateUserName(userName string) error {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return ValidationError{Field: "userName", Message: "user name is required"}
	}
	if len(userName) < 3 || len(userName) > 30 {
		return ValidationError{Field: "userName", Message: "user name must be 3 to 30 characters"}
	}
	if !userNameRegex.MatchString(userName) {
		return ValidationError{Field: "userName", Message: "user name may only contain letters, digits, '.', '_' and '-'"}
	}
	return nil
}

// ValidateAge checks an age in years
func ValidateAge(age int) error {
	if age < MinAge || age > MaxAge {
		return ValidationError{Field: "age", Message: fmt.Sprintf("age must be between %d and %d", MinAge, MaxAge)}
	}
	return nil
}

// ValidateGender accepts one of Genders, case-insensitively
func ValidateGender(gender string) error {
	g := strings.ToLower(strings.TrimSpace(gender))
	for _, ok := range Genders {
		if g == ok {
			return nil
		}
	}
	return ValidationError{Field: "gender", Message: "gender must be male, female or other"}
}

// ValidateState checks the state or union territory
func ValidateState(state string) error {
	state = strings.TrimSpace(state)
	if state == "" {
		return ValidationError{Field: "stateOrUnionTerritory", Message: "state or union territory is required"}
	}
	if utf8.RuneCountInString(state) > 100 {
		return ValidationError{Field: "stateOrUnionTerritory", Message: "state or union territory is too long"}
	}
	return nil
}

package service

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"todoReminder/internal/models/task"
)

const (
	maxTitleLen        = 200
	maxDescriptionLen  = 2000
	minUsernameLen     = 3
	maxUsernameLen     = 32
	minPasswordLen     = 8
	maxPasswordLen     = 128
	maxBroadcastMsgLen = 2000

	passwordSymbols = "!@$%&*()-_+="
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_]+$`)

func isPasswordSymbol(r rune) bool {
	return strings.ContainsRune(passwordSymbols, r)
}

func isPasswordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || isPasswordSymbol(r)
}

// normalizeUsername strips surrounding whitespace and checks the rest is
// lowercase letters, digits and underscores.
func normalizeUsername(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", NewValidationError("username", "Username is required")
	}
	if strings.IndexFunc(candidate, unicode.IsSpace) >= 0 {
		return "", NewValidationError("username",
			"Username must not contain spaces. Use lowercase letters, digits and underscore only.")
	}
	if candidate != strings.ToLower(candidate) {
		return "", NewValidationError("username", "Username must be lowercase only (no uppercase letters).")
	}
	if !usernameRe.MatchString(candidate) {
		return "", NewValidationError("username",
			"Username may contain only lowercase letters (a-z), digits (0-9) and underscore (_).")
	}
	if len(candidate) < minUsernameLen || len(candidate) > maxUsernameLen {
		return "", NewValidationError("username", "Username must be between 3 and 32 characters.")
	}
	return candidate, nil
}

// validatePassword reports every failed rule in one message.
func validatePassword(password string) error {
	if password == "" {
		return NewValidationError("password", "Password is required")
	}
	if utf8.RuneCountInString(password) > maxPasswordLen {
		return NewValidationError("password", "Password must be at most 128 characters.")
	}

	var failed []string
	if utf8.RuneCountInString(password) < minPasswordLen {
		failed = append(failed, "at least 8 characters")
	}
	if !strings.ContainsAny(password, "0123456789") {
		failed = append(failed, "at least one digit")
	}
	if strings.IndexFunc(password, func(r rune) bool { return r >= 'A' && r <= 'Z' }) < 0 {
		failed = append(failed, "at least one uppercase letter")
	}
	if strings.IndexFunc(password, func(r rune) bool { return r >= 'a' && r <= 'z' }) < 0 {
		failed = append(failed, "at least one lowercase letter")
	}
	if strings.IndexFunc(password, isPasswordSymbol) < 0 {
		failed = append(failed, "at least one symbol from this set: "+passwordSymbols)
	}
	if strings.IndexFunc(password, func(r rune) bool { return !isPasswordRune(r) }) >= 0 {
		failed = append(failed, "password contains invalid character(s). Allowed symbols: "+passwordSymbols)
	}

	if len(failed) > 0 {
		return NewBusinessError(CodeValidation, "Password must contain "+strings.Join(failed, ", ")+".",
			ToDetail("field", "password"),
			ToDetail("rules", failed),
		)
	}
	return nil
}

func validateTitle(field, title string) error {
	if strings.TrimSpace(title) == "" {
		return NewValidationError(field, "Title must not be empty.")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return NewValidationError(field, "Title must be at most 200 characters.")
	}
	return nil
}

func validateDescription(description *string) error {
	if description != nil && utf8.RuneCountInString(*description) > maxDescriptionLen {
		return NewValidationError("description", "Description must be at most 2000 characters.")
	}
	return nil
}

func validatePatch(p task.Patch) error {
	if p.Title.Set {
		if !p.Title.Valid {
			return NewValidationError("title", "Title cannot be null.")
		}
		if err := validateTitle("title", p.Title.Value); err != nil {
			return err
		}
	}
	if p.Completed.Set && !p.Completed.Valid {
		return NewValidationError("completed", "Completed cannot be null.")
	}
	if p.Description.Set {
		return validateDescription(p.Description.Ptr())
	}
	return nil
}

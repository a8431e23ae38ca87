package validator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vedran77/agora/internal/domain"
)

// ValidationErrors maps a field name to a human readable problem.
type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var (
	userIDRegex   = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	nicknameRegex = regexp.MustCompile(`^[a-zA-Z0-9가-힣\x{4e00}-\x{9fa5}]+$`)
)

const passwordSymbols = "!@#$%^&*"

type SignupInput struct {
	UserID   string
	Password string
	Nickname string
	Language domain.Language
}

// ValidateSignup checks the signup form field by field and returns the first
// failure. Duplicate checks need the database and are left to the caller.
func ValidateSignup(in SignupInput, forbidden []string) error {
	if n := utf8.RuneCountInString(in.UserID); n < 2 || n > 16 {
		return domain.ErrUserIDNotValid
	}
	if !userIDRegex.MatchString(in.UserID) {
		return domain.ErrUserIDNotAllowed
	}
	if ContainsForbiddenWord(in.UserID, forbidden) {
		return domain.ErrForbiddenWord
	}
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}
	if err := validateNickname(in.Nickname, forbidden); err != nil {
		return err
	}
	if !in.Language.Valid() {
		return domain.ErrLanguageNotValid
	}
	return nil
}

// ValidateProfileUpdate checks only the fields being changed; nil means
// "leave as is".
func ValidateProfileUpdate(nickname *string, language *domain.Language, forbidden []string) error {
	if nickname != nil {
		if err := validateNickname(*nickname, forbidden); err != nil {
			return err
		}
	}
	if language != nil && !language.Valid() {
		return domain.ErrLanguageNotValid
	}
	return nil
}

// ValidatePassword requires 8 to 20 characters including one of !@#$%^&*.
func ValidatePassword(password string) error {
	if n := utf8.RuneCountInString(password); n < 8 || n > 20 {
		return domain.ErrPasswordNotValid
	}
	if !strings.ContainsAny(password, passwordSymbols) {
		return domain.ErrPasswordNoSymbol
	}
	return nil
}

// ContainsForbiddenWord reports whether text contains any of words,
// ignoring case.
func ContainsForbiddenWord(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func validateNickname(nickname string, forbidden []string) error {
	if n := utf8.RuneCountInString(nickname); n < 2 || n > 20 {
		return domain.ErrNicknameNotValid
	}
	if !nicknameRegex.MatchString(nickname) {
		return domain.ErrNicknameNotAllowed
	}
	if ContainsForbiddenWord(nickname, forbidden) {
		return domain.ErrForbiddenWord
	}
	return nil
}

package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vedran77/agora/internal/domain"
)

func validSignup() SignupInput {
	return SignupInput{
		UserID:   "user123",
		Password: "passw0rd!",
		Nickname: "닉네임",
		Language: domain.LanguageKorean,
	}
}

func TestValidateSignupAccepts(t *testing.T) {
	assert.NoError(t, ValidateSignup(validSignup(), nil))
}

func TestUserIDRules(t *testing.T) {
	tests := []struct {
		userID string
		want   error
	}{
		{"a", domain.ErrUserIDNotValid},
		{strings.Repeat("a", 17), domain.ErrUserIDNotValid},
		{"ab", nil},
		{strings.Repeat("a", 16), nil},
		{"user_1", domain.ErrUserIDNotAllowed},
		{"유저아이디", domain.ErrUserIDNotAllowed},
		{"user 1", domain.ErrUserIDNotAllowed},
	}
	for _, tt := range tests {
		in := validSignup()
		in.UserID = tt.userID
		err := ValidateSignup(in, nil)
		if tt.want == nil {
			assert.NoError(t, err, tt.userID)
		} else {
			assert.ErrorIs(t, err, tt.want, tt.userID)
		}
	}
}

func TestPasswordRules(t *testing.T) {
	tests := []struct {
		password string
		want     error
	}{
		{"a!b", domain.ErrPasswordNotValid},
		{"abcdefg!", nil},
		{strings.Repeat("a", 20) + "!", domain.ErrPasswordNotValid},
		{"abcdefgh", domain.ErrPasswordNoSymbol},
		{"abcdefg?", domain.ErrPasswordNoSymbol},
		{"abcdefg&", nil},
	}
	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if tt.want == nil {
			assert.NoError(t, err, tt.password)
		} else {
			assert.ErrorIs(t, err, tt.want, tt.password)
		}

		in := validSignup()
		in.Password = tt.password
		assert.Equal(t, err, ValidateSignup(in, nil), "signup applies the same rule")
	}
}

func TestNicknameRules(t *testing.T) {
	tests := []struct {
		nickname string
		want     error
	}{
		{"가", domain.ErrNicknameNotValid},
		{strings.Repeat("가", 21), domain.ErrNicknameNotValid},
		{strings.Repeat("가", 20), nil},
		{"Nick12", nil},
		{"中文名字", nil},
		{"nick_name", domain.ErrNicknameNotAllowed},
		{"nick😀", domain.ErrNicknameNotAllowed},
		{"ニック", domain.ErrNicknameNotAllowed},
	}
	for _, tt := range tests {
		in := validSignup()
		in.Nickname = tt.nickname
		err := ValidateSignup(in, nil)
		if tt.want == nil {
			assert.NoError(t, err, tt.nickname)
		} else {
			assert.ErrorIs(t, err, tt.want, tt.nickname)
		}
	}
}

func TestForbiddenWords(t *testing.T) {
	forbidden := []string{"admin"}

	in := validSignup()
	in.UserID = "admin123"
	assert.ErrorIs(t, ValidateSignup(in, forbidden), domain.ErrForbiddenWord)

	in.UserID = "user123"
	assert.NoError(t, ValidateSignup(in, forbidden))

	in.Nickname = "SuperAdmin"
	assert.ErrorIs(t, ValidateSignup(in, forbidden), domain.ErrForbiddenWord)
}

func TestSignupCheckOrder(t *testing.T) {
	in := SignupInput{UserID: "x", Password: "short", Nickname: "!", Language: "KLINGON"}
	assert.ErrorIs(t, ValidateSignup(in, nil), domain.ErrUserIDNotValid)

	in.UserID = "validid"
	assert.ErrorIs(t, ValidateSignup(in, nil), domain.ErrPasswordNotValid)

	in.Password = "longenough!"
	assert.ErrorIs(t, ValidateSignup(in, nil), domain.ErrNicknameNotValid)

	in.Nickname = "nickname"
	assert.ErrorIs(t, ValidateSignup(in, nil), domain.ErrLanguageNotValid)
}

func TestValidateProfileUpdate(t *testing.T) {
	assert.NoError(t, ValidateProfileUpdate(nil, nil, nil))

	bad := "x"
	assert.ErrorIs(t, ValidateProfileUpdate(&bad, nil, nil), domain.ErrNicknameNotValid)

	lang := domain.Language("LATIN")
	assert.ErrorIs(t, ValidateProfileUpdate(nil, &lang, nil), domain.ErrLanguageNotValid)

	ok := "newnick"
	en := domain.LanguageEnglish
	assert.NoError(t, ValidateProfileUpdate(&ok, &en, []string{"admin"}))
}

type postForm struct {
	Title     string `json:"title" validate:"required,max=20"`
	Content   string `json:"content" validate:"required"`
	BoardType string `json:"boardType" validate:"required,oneof=FREE INFO QUESTION"`
}

func TestStruct(t *testing.T) {
	errs := Struct(postForm{Title: strings.Repeat("제", 21), BoardType: "NEWS"})
	assert.True(t, errs.HasErrors())
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "content")
	assert.Contains(t, errs, "boardType")

	errs = Struct(postForm{Title: strings.Repeat("제", 20), Content: "body", BoardType: "FREE"})
	assert.False(t, errs.HasErrors())
}

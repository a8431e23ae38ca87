package domain

import "time"

type Language string

const (
	LanguageKorean   Language = "KOREAN"
	LanguageEnglish  Language = "ENGLISH"
	LanguageChinese  Language = "CHINESE"
	LanguageJapanese Language = "JAPANESE"
)

var languages = []Language{LanguageKorean, LanguageEnglish, LanguageChinese, LanguageJapanese}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	for _, lang := range languages {
		if l == lang {
			return true
		}
	}
	return false
}

type User struct {
	ID           int64      `json:"id"`
	UserID       string     `json:"userId"`
	Nickname     string     `json:"nickname"`
	PasswordHash string     `json:"-"`
	Language     Language   `json:"language"`
	ProfileImage string     `json:"-"`
	IsDeleted    bool       `json:"-"`
	DeletedAt    *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// PasswordHistory is one entry of the append-only log of a user's password hashes.
type PasswordHistory struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

package domain

import (
	"time"
)

type BoardType string

const (
	BoardFree     BoardType = "FREE"
	BoardInfo     BoardType = "INFO"
	BoardQuestion BoardType = "QUESTION"
)

// BoardTypes lists every board in display order.
var BoardTypes = []BoardType{BoardFree, BoardInfo, BoardQuestion}

func (b BoardType) Valid() bool {
	for _, t := range BoardTypes {
		if b == t {
			return true
		}
	}
	return false
}

type Post struct {
	ID        int64      `json:"id"`
	AuthorID  int64      `json:"authorId"`
	BoardType BoardType  `json:"boardType"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	ImageKeys []string   `json:"-"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	// Joined fields
	AuthorNickname string `json:"authorNickname,omitempty"`
}

type Comment struct {
	ID        int64      `json:"id"`
	PostID    int64      `json:"postId"`
	AuthorID  int64      `json:"authorId"`
	Content   string     `json:"content"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	// Joined fields
	AuthorNickname string `json:"authorNickname,omitempty"`
}

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

func NewPage[T any](items []T, page, size int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{Items: items, Page: page, Size: size, TotalItems: total, TotalPages: pages}
}

package handlers

import (
	"context"
	"net/http"

	"github.com/vedran77/agora/internal/domain"
	"github.com/vedran77/agora/internal/service"
	"github.com/vedran77/agora/internal/storage"
	"github.com/vedran77/agora/internal/transport/http/middleware"
	"github.com/vedran77/agora/pkg/validator"
)

type CommunityService interface {
	CreatePost(ctx context.Context, userID int64, input service.PostInput) (*domain.Post, error)
	GetPost(ctx context.Context, postID int64) (*service.PostDetail, error)
	UpdatePost(ctx context.Context, userID, postID int64, input service.PostInput) (*domain.Post, error)
	DeletePost(ctx context.Context, userID, postID int64) error
	ListPosts(ctx context.Context, board domain.BoardType, page, size int) (domain.Page[domain.Post], error)
	SearchPosts(ctx context.Context, keyword string, page, size int) (domain.Page[domain.Post], error)
	MainPage(ctx context.Context) (map[domain.BoardType][]domain.Post, error)
	AttachImages(ctx context.Context, userID, postID int64, files []storage.File) ([]string, error)

	CreateComment(ctx context.Context, userID, postID int64, content string) (*domain.Comment, error)
	UpdateComment(ctx context.Context, userID, commentID int64, content string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, userID, commentID int64) error

	OpenRoom(ctx context.Context, userID, postID int64) (*domain.ChatRoom, error)
	SendMessage(ctx context.Context, userID, roomID int64, content string) (*domain.Message, error)
	RoomMessages(ctx context.Context, userID, roomID int64) (*service.RoomMessages, error)
	ListRooms(ctx context.Context, userID int64) ([]domain.RoomSummary, error)
}

type CommunityHandler struct {
	community CommunityService
}

func NewCommunityHandler(community CommunityService) *CommunityHandler {
	return &CommunityHandler{community: community}
}

func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decodeJSON(w, r, dst) {
		return false
	}
	if errs := validator.Struct(dst); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return false
	}
	return true
}

// Posts

func (h *CommunityHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var input service.PostInput
	if !decodeValid(w, r, &input) {
		return
	}

	post, err := h.community.CreatePost(r.Context(), middleware.GetUserID(r.Context()), input)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *CommunityHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	post, err := h.community.GetPost(r.Context(), postID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *CommunityHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var input service.PostInput
	if !decodeValid(w, r, &input) {
		return
	}

	post, err := h.community.UpdatePost(r.Context(), middleware.GetUserID(r.Context()), postID, input)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *CommunityHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.community.DeletePost(r.Context(), middleware.GetUserID(r.Context()), postID); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CommunityHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	board := domain.BoardType(r.URL.Query().Get("boardType"))
	page, err := h.community.ListPosts(r.Context(), board, queryInt(r, "page", 0), queryInt(r, "size", 0))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *CommunityHandler) SearchPosts(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		writeValidationErrors(w, validator.ValidationErrors{"keyword": "is required"})
		return
	}

	page, err := h.community.SearchPosts(r.Context(), keyword, queryInt(r, "page", 0), queryInt(r, "size", 0))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *CommunityHandler) MainPage(w http.ResponseWriter, r *http.Request) {
	boards, err := h.community.MainPage(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

func (h *CommunityHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r) {
		return
	}
	postID, ok := parseID(w, r.FormValue("postId"), "postId")
	if !ok {
		return
	}
	files, err := formFiles(r, "images")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid image upload")
		return
	}
	defer closeFiles(files...)
	if len(files) == 0 {
		writeValidationErrors(w, validator.ValidationErrors{"images": "is required"})
		return
	}

	urls, err := h.community.AttachImages(r.Context(), middleware.GetUserID(r.Context()), postID, files)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string][]string{"imageUrls": urls})
}

// Comments

func (h *CommunityHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var input service.ContentInput
	if !decodeValid(w, r, &input) {
		return
	}

	comment, err := h.community.CreateComment(r.Context(), middleware.GetUserID(r.Context()), postID, input.Content)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *CommunityHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	commentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var input service.ContentInput
	if !decodeValid(w, r, &input) {
		return
	}

	comment, err := h.community.UpdateComment(r.Context(), middleware.GetUserID(r.Context()), commentID, input.Content)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *CommunityHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.community.DeleteComment(r.Context(), middleware.GetUserID(r.Context()), commentID); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Chat

func (h *CommunityHandler) OpenRoom(w http.ResponseWriter, r *http.Request) {
	postID, ok := queryID(w, r, "postId")
	if !ok {
		return
	}

	room, err := h.community.OpenRoom(r.Context(), middleware.GetUserID(r.Context()), postID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *CommunityHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var input service.ContentInput
	if !decodeValid(w, r, &input) {
		return
	}

	msg, err := h.community.SendMessage(r.Context(), middleware.GetUserID(r.Context()), roomID, input.Content)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *CommunityHandler) RoomMessages(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	conv, err := h.community.RoomMessages(r.Context(), middleware.GetUserID(r.Context()), roomID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *CommunityHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.community.ListRooms(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

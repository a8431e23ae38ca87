package handlers

import (
	"context"
	"net/http"

	"github.com/vedran77/agora/internal/auth"
	"github.com/vedran77/agora/internal/domain"
	"github.com/vedran77/agora/internal/service"
	"github.com/vedran77/agora/internal/transport/http/middleware"
	"github.com/vedran77/agora/pkg/validator"
)

type UserService interface {
	Signup(ctx context.Context, input service.SignupInput) (*auth.Tokens, error)
	Login(ctx context.Context, userID, password string) (*auth.Tokens, error)
	Reissue(ctx context.Context, refreshToken string) (*auth.Tokens, error)
	CheckNickname(ctx context.Context, nickname string) error
	CheckUserID(ctx context.Context, userID string) error
	Detail(ctx context.Context, userID int64) (*service.UserDetail, error)
	Profile(ctx context.Context, userID int64) (*service.UserProfile, error)
	UpdateProfile(ctx context.Context, userID int64, input service.UpdateProfileInput) (*service.UserDetail, error)
	SelectProfileImage(ctx context.Context, userID int64, n int) (*service.UserDetail, error)
	UpdatePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
	UpdateLanguage(ctx context.Context, userID int64, language domain.Language) error
	Language(ctx context.Context, userID int64) (domain.Language, error)
	PartnerLanguage(ctx context.Context, targetID int64) (domain.Language, error)
	Delete(ctx context.Context, userID int64) error
}

type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

type loginRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type reissueRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r) {
		return
	}
	image, err := formFile(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid image upload")
		return
	}
	if image != nil {
		defer closeFiles(*image)
	}

	tokens, err := h.users.Signup(r.Context(), service.SignupInput{
		UserID:   r.FormValue("userId"),
		Password: r.FormValue("password"),
		Nickname: r.FormValue("nickname"),
		Language: domain.Language(r.FormValue("language")),
		Image:    image,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, tokens)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	tokens, err := h.users.Login(r.Context(), input.UserID, input.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (h *UserHandler) Reissue(w http.ResponseWriter, r *http.Request) {
	var input reissueRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	tokens, err := h.users.Reissue(r.Context(), input.RefreshToken)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (h *UserHandler) CheckNickname(w http.ResponseWriter, r *http.Request) {
	if err := h.users.CheckNickname(r.Context(), r.URL.Query().Get("nickname")); err != nil {
		handleError(w, r, err)
		return
	}
	writeMessage(w, "available")
}

func (h *UserHandler) CheckUserID(w http.ResponseWriter, r *http.Request) {
	if err := h.users.CheckUserID(r.Context(), r.URL.Query().Get("userId")); err != nil {
		handleError(w, r, err)
		return
	}
	writeMessage(w, "available")
}

func (h *UserHandler) Detail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.users.Detail(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.Profile(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) ID(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{"id": middleware.GetUserID(r.Context())})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r) {
		return
	}
	image, err := formFile(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid image upload")
		return
	}
	if image != nil {
		defer closeFiles(*image)
	}

	input := service.UpdateProfileInput{
		Nickname:    formValue(r, "nickname"),
		Image:       image,
		DeleteImage: r.FormValue("deleteImage") == "true",
	}
	if lang := formValue(r, "language"); lang != nil {
		l := domain.Language(*lang)
		input.Language = &l
	}

	detail, err := h.users.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), input)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var input passwordRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	err := h.users.UpdatePassword(r.Context(), middleware.GetUserID(r.Context()), input.CurrentPassword, input.NewPassword)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeMessage(w, "password updated")
}

func (h *UserHandler) UpdateLanguage(w http.ResponseWriter, r *http.Request) {
	lang := domain.Language(r.URL.Query().Get("language"))
	if err := h.users.UpdateLanguage(r.Context(), middleware.GetUserID(r.Context()), lang); err != nil {
		handleError(w, r, err)
		return
	}
	writeMessage(w, "language updated")
}

func (h *UserHandler) Language(w http.ResponseWriter, r *http.Request) {
	lang, err := h.users.Language(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.Language{"language": lang})
}

// PartnerLanguage serves GET /notifications/language/{userId}.
func (h *UserHandler) PartnerLanguage(w http.ResponseWriter, r *http.Request) {
	targetID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	lang, err := h.users.PartnerLanguage(r.Context(), targetID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.Language{"language": lang})
}

func (h *UserHandler) SelectProfileImage(w http.ResponseWriter, r *http.Request) {
	n, ok := queryID(w, r, "profileImage")
	if !ok {
		return
	}
	detail, err := h.users.SelectProfileImage(r.Context(), middleware.GetUserID(r.Context()), int(n))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		handleError(w, r, err)
		return
	}
	writeMessage(w, "user deleted")
}

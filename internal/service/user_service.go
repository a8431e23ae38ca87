package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vedran77/agora/internal/auth"
	"github.com/vedran77/agora/internal/domain"
	"github.com/vedran77/agora/internal/logging"
	"github.com/vedran77/agora/internal/repository"
	"github.com/vedran77/agora/internal/storage"
	"github.com/vedran77/agora/pkg/validator"
)

// passwordReuseMonths is how long an old password stays blocked.
const passwordReuseMonths = 6

type ForbiddenWordSource interface {
	ForbiddenWords(ctx context.Context) ([]string, error)
}

type TokenIssuer interface {
	Issue(ctx context.Context, userID int64) (*auth.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Tokens, error)
	Revoke(ctx context.Context, userID int64) error
}

type ProfileImages interface {
	UploadProfile(ctx context.Context, userID int64, file *storage.File, existingKey string) (string, error)
	URL(ctx context.Context, key string) (string, error)
	DefaultProfileKey() string
	PresetProfileKey(n int) (string, error)
}

type UserService struct {
	tx     repository.TxManager
	repos  repository.Repos
	words  ForbiddenWordSource
	images ProfileImages
	tokens TokenIssuer
	now    func() time.Time
}

func NewUserService(
	tx repository.TxManager,
	repos repository.Repos,
	words ForbiddenWordSource,
	images ProfileImages,
	tokens TokenIssuer,
) *UserService {
	return &UserService{
		tx:     tx,
		repos:  repos,
		words:  words,
		images: images,
		tokens: tokens,
		now:    time.Now,
	}
}

type SignupInput struct {
	UserID   string
	Password string
	Nickname string
	Language domain.Language
	Image    *storage.File
}

type UpdateProfileInput struct {
	// Nil fields are left unchanged.
	Nickname    *string
	Language    *domain.Language
	Image       *storage.File
	DeleteImage bool
}

type UserDetail struct {
	ProfileImageURL string `json:"profileImageUrl"`
	Nickname        string `json:"nickname"`
}

type UserProfile struct {
	ProfileImageURL string          `json:"profileImageUrl"`
	Nickname        string          `json:"nickname"`
	UserID          string          `json:"userId"`
	Language        domain.Language `json:"language"`
}

func (s *UserService) Signup(ctx context.Context, input SignupInput) (*auth.Tokens, error) {
	words, err := s.words.ForbiddenWords(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading forbidden words: %w", err)
	}

	if err := validator.ValidateSignup(validator.SignupInput{
		UserID:   input.UserID,
		Password: input.Password,
		Nickname: input.Nickname,
		Language: input.Language,
	}, words); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	var tokens *auth.Tokens
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		if err := checkUserIDFree(ctx, repos, input.UserID); err != nil {
			return err
		}
		if err := checkNicknameFree(ctx, repos, input.Nickname, 0); err != nil {
			return err
		}

		now := s.now()
		user := &domain.User{
			UserID:       input.UserID,
			Nickname:     input.Nickname,
			PasswordHash: hash,
			Language:     input.Language,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repos.Users.Create(ctx, user); err != nil {
			return fmt.Errorf("creating user: %w", err)
		}

		key, err := s.images.UploadProfile(ctx, user.ID, input.Image, "")
		if err != nil {
			return err
		}
		user.ProfileImage = key
		if err := repos.Users.Update(ctx, user); err != nil {
			return fmt.Errorf("saving profile image: %w", err)
		}

		if err := repos.Passwords.Append(ctx, &domain.PasswordHistory{
			UserID:       user.ID,
			PasswordHash: hash,
			CreatedAt:    now,
		}); err != nil {
			return fmt.Errorf("recording password history: %w", err)
		}

		tokens, err = s.tokens.Issue(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("user_id", input.UserID).Msg("user signed up")
	return tokens, nil
}

func (s *UserService) Login(ctx context.Context, userID, password string) (*auth.Tokens, error) {
	user, err := s.repos.Users.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return s.tokens.Issue(ctx, user.ID)
}

func (s *UserService) Reissue(ctx context.Context, refreshToken string) (*auth.Tokens, error) {
	return s.tokens.Refresh(ctx, refreshToken)
}

// CheckNickname fails with ErrNicknameDuplicate when a live user holds nickname.
func (s *UserService) CheckNickname(ctx context.Context, nickname string) error {
	return checkNicknameFree(ctx, s.repos, nickname, 0)
}

// CheckUserID fails with ErrUserIDDuplicate when a live user holds userID.
func (s *UserService) CheckUserID(ctx context.Context, userID string) error {
	return checkUserIDFree(ctx, s.repos, userID)
}

func (s *UserService) Detail(ctx context.Context, userID int64) (*UserDetail, error) {
	user, err := currentUser(ctx, s.repos, userID)
	if err != nil {
		return nil, err
	}
	url, err := s.images.URL(ctx, user.ProfileImage)
	if err != nil {
		return nil, err
	}
	return &UserDetail{ProfileImageURL: url, Nickname: user.Nickname}, nil
}

func (s *UserService) Profile(ctx context.Context, userID int64) (*UserProfile, error) {
	user, err := currentUser(ctx, s.repos, userID)
	if err != nil {
		return nil, err
	}
	url, err := s.images.URL(ctx, user.ProfileImage)
	if err != nil {
		return nil, err
	}
	return &UserProfile{
		ProfileImageURL: url,
		Nickname:        user.Nickname,
		UserID:          user.UserID,
		Language:        user.Language,
	}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*UserDetail, error) {
	words, err := s.words.ForbiddenWords(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading forbidden words: %w", err)
	}
	if err := validator.ValidateProfileUpdate(input.Nickname, input.Language, words); err != nil {
		return nil, err
	}

	var user *domain.User
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		user, err = currentUser(ctx, repos, userID)
		if err != nil {
			return err
		}

		if input.Nickname != nil && *input.Nickname != user.Nickname {
			if err := checkNicknameFree(ctx, repos, *input.Nickname, user.ID); err != nil {
				return err
			}
			user.Nickname = *input.Nickname
		}
		if input.Language != nil {
			user.Language = *input.Language
		}

		if input.DeleteImage {
			user.ProfileImage = s.images.DefaultProfileKey()
		} else {
			key, err := s.images.UploadProfile(ctx, user.ID, input.Image, user.ProfileImage)
			if err != nil {
				return err
			}
			user.ProfileImage = key
		}

		user.UpdatedAt = s.now()
		return repos.Users.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	url, err := s.images.URL(ctx, user.ProfileImage)
	if err != nil {
		return nil, err
	}
	return &UserDetail{ProfileImageURL: url, Nickname: user.Nickname}, nil
}

// SelectProfileImage switches the caller to stock picture n.
func (s *UserService) SelectProfileImage(ctx context.Context, userID int64, n int) (*UserDetail, error) {
	key, err := s.images.PresetProfileKey(n)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		user, err = currentUser(ctx, repos, userID)
		if err != nil {
			return err
		}
		user.ProfileImage = key
		user.UpdatedAt = s.now()
		return repos.Users.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	url, err := s.images.URL(ctx, key)
	if err != nil {
		return nil, err
	}
	return &UserDetail{ProfileImageURL: url, Nickname: user.Nickname}, nil
}

// UpdatePassword rotates the password. The new one must pass the password
// rules and must not match any password used in the last six months.
func (s *UserService) UpdatePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		user, err := currentUser(ctx, repos, userID)
		if err != nil {
			return err
		}

		if !auth.VerifyPassword(currentPassword, user.PasswordHash) {
			return domain.ErrPasswordMismatch
		}
		if err := validator.ValidatePassword(newPassword); err != nil {
			return err
		}

		histories, err := repos.Passwords.ListByUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("loading password history: %w", err)
		}
		now := s.now()
		cutoff := now.AddDate(0, -passwordReuseMonths, 0)
		for _, h := range histories {
			if h.CreatedAt.After(cutoff) && auth.VerifyPassword(newPassword, h.PasswordHash) {
				return domain.ErrPasswordReused
			}
		}

		hash, err := auth.HashPassword(newPassword)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		if err := repos.Passwords.Append(ctx, &domain.PasswordHistory{
			UserID:       user.ID,
			PasswordHash: hash,
			CreatedAt:    now,
		}); err != nil {
			return fmt.Errorf("recording password history: %w", err)
		}

		user.PasswordHash = hash
		user.UpdatedAt = now
		return repos.Users.Update(ctx, user)
	})
}

func (s *UserService) UpdateLanguage(ctx context.Context, userID int64, language domain.Language) error {
	if !language.Valid() {
		return domain.ErrLanguageNotValid
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		user, err := currentUser(ctx, repos, userID)
		if err != nil {
			return err
		}
		user.Language = language
		user.UpdatedAt = s.now()
		return repos.Users.Update(ctx, user)
	})
}

func (s *UserService) Language(ctx context.Context, userID int64) (domain.Language, error) {
	user, err := currentUser(ctx, s.repos, userID)
	if err != nil {
		return "", err
	}
	return user.Language, nil
}

// PartnerLanguage returns another user's language so a chat client can pick
// a translation target. Deleted users are not found.
func (s *UserService) PartnerLanguage(ctx context.Context, targetID int64) (domain.Language, error) {
	user, err := s.repos.Users.GetByID(ctx, targetID)
	if err != nil {
		return "", err
	}
	if user == nil || user.IsDeleted {
		return "", domain.ErrUserNotFound
	}
	return user.Language, nil
}

// Delete soft-deletes the caller and drops their refresh token.
func (s *UserService) Delete(ctx context.Context, userID int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		user, err := repos.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}
		if user.IsDeleted {
			return domain.ErrUserAlreadyDeleted
		}
		return repos.Users.SoftDelete(ctx, userID)
	})
	if err != nil {
		return err
	}

	if err := s.tokens.Revoke(ctx, userID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("user", userID).Msg("failed to revoke refresh token")
	}
	return nil
}

// currentUser loads the caller. Deleted accounts are treated as logged out.
func currentUser(ctx context.Context, repos repository.Repos, userID int64) (*domain.User, error) {
	user, err := repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if user.IsDeleted {
		return nil, domain.ErrNotAuthenticated
	}
	return user, nil
}

func checkUserIDFree(ctx context.Context, repos repository.Repos, userID string) error {
	existing, err := repos.Users.GetActiveByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrUserIDDuplicate
	}
	return nil
}

// checkNicknameFree ignores the user identified by self.
func checkNicknameFree(ctx context.Context, repos repository.Repos, nickname string, self int64) error {
	existing, err := repos.Users.GetActiveByNickname(ctx, nickname)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return domain.ErrNicknameDuplicate
	}
	return nil
}

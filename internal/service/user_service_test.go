package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/agora/internal/auth"
	"github.com/vedran77/agora/internal/domain"
	"github.com/vedran77/agora/internal/storage"
)

type userFixture struct {
	db     *memDB
	images *fakeImages
	tokens *fakeTokens
	svc    *UserService
	now    time.Time
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	db := newMemDB()
	f := &userFixture{
		db:     db,
		images: &fakeImages{},
		tokens: &fakeTokens{},
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewUserService(db, db.Repos(), staticWords{"admin"}, f.images, f.tokens)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func validSignup(userID, nickname string) SignupInput {
	return SignupInput{
		UserID:   userID,
		Password: "password1!",
		Nickname: nickname,
		Language: domain.LanguageEnglish,
	}
}

func (f *userFixture) signup(t *testing.T, userID, nickname string) int64 {
	t.Helper()
	_, err := f.svc.Signup(context.Background(), validSignup(userID, nickname))
	require.NoError(t, err)
	u, err := f.db.Repos().Users.GetActiveByUserID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u.ID
}

func TestSignup(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	tokens, err := f.svc.Signup(ctx, validSignup("user123", "alice"))
	require.NoError(t, err)
	assert.Equal(t, "access", tokens.AccessToken)

	u, err := f.db.Repos().Users.GetActiveByUserID(ctx, "user123")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "alice", u.Nickname)
	assert.Equal(t, "profileImg/default.png", u.ProfileImage)
	assert.True(t, auth.VerifyPassword("password1!", u.PasswordHash))

	hist, err := f.db.Repos().Passwords.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, f.now, hist[0].CreatedAt)
	assert.Equal(t, []int64{u.ID}, f.tokens.issued)
}

func TestSignupDuplicates(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.signup(t, "user123", "alice")

	_, err := f.svc.Signup(ctx, validSignup("user123", "bob"))
	assert.ErrorIs(t, err, domain.ErrUserIDDuplicate)

	_, err = f.svc.Signup(ctx, validSignup("user456", "alice"))
	assert.ErrorIs(t, err, domain.ErrNicknameDuplicate)
}

func TestSignupAfterSoftDelete(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	id := f.signup(t, "user123", "alice")
	require.NoError(t, f.svc.Delete(ctx, id))

	_, err := f.svc.Signup(ctx, validSignup("user123", "alice"))
	require.NoError(t, err)

	u, err := f.db.Repos().Users.GetActiveByUserID(ctx, "user123")
	require.NoError(t, err)
	assert.NotEqual(t, id, u.ID)
}

func TestSignupForbiddenWord(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.Signup(context.Background(), validSignup("admin123", "alice"))
	assert.ErrorIs(t, err, domain.ErrForbiddenWord)

	_, err = f.svc.Signup(context.Background(), validSignup("user123", "SuperAdmin"))
	assert.ErrorIs(t, err, domain.ErrForbiddenWord)
}

func TestSignupRollsBackOnUploadFailure(t *testing.T) {
	f := newUserFixture(t)
	f.images.failNext = true

	in := validSignup("user123", "alice")
	in.Image = &storage.File{Filename: "me.png", Size: 10, Body: strings.NewReader("x")}
	_, err := f.svc.Signup(context.Background(), in)
	require.ErrorIs(t, err, errStorageDown)

	u, err := f.db.Repos().Users.GetActiveByUserID(context.Background(), "user123")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Empty(t, f.db.histories)
	assert.Empty(t, f.tokens.issued)
}

func TestSignupRejectsExtension(t *testing.T) {
	f := newUserFixture(t)

	in := validSignup("user123", "alice")
	in.Image = &storage.File{Filename: "run.exe", Size: 10, Body: strings.NewReader("x")}
	_, err := f.svc.Signup(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrExtensionNotAllowed)
	assert.Empty(t, f.db.users)
}

func TestLogin(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	id := f.signup(t, "user123", "alice")

	_, err := f.svc.Login(ctx, "user123", "password1!")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "user123", "wrong-pass1!")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody", "password1!")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, f.svc.Delete(ctx, id))
	_, err = f.svc.Login(ctx, "user123", "password1!")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestCheckAvailability(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.signup(t, "user123", "alice")

	assert.ErrorIs(t, f.svc.CheckUserID(ctx, "user123"), domain.ErrUserIDDuplicate)
	assert.NoError(t, f.svc.CheckUserID(ctx, "user456"))
	assert.ErrorIs(t, f.svc.CheckNickname(ctx, "alice"), domain.ErrNicknameDuplicate)
	assert.NoError(t, f.svc.CheckNickname(ctx, "bob"))
}

func TestUpdatePasswordReuseWindow(t *testing.T) {
	tests := []struct {
		name    string
		age     int
		wantErr error
	}{
		{"five months old", 5, domain.ErrPasswordReused},
		{"seven months old", 7, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture(t)
			ctx := context.Background()
			id := f.signup(t, "user123", "alice")

			// Rotate away from the signup password, then age the signup entry.
			f.now = f.now.AddDate(0, tt.age, 0)
			require.NoError(t, f.svc.UpdatePassword(ctx, id, "password1!", "another1!"))

			err := f.svc.UpdatePassword(ctx, id, "another1!", "password1!")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			_, err = f.svc.Login(ctx, "user123", "password1!")
			assert.NoError(t, err)
		})
	}
}

func TestUpdatePasswordMismatch(t *testing.T) {
	f := newUserFixture(t)
	id := f.signup(t, "user123", "alice")

	err := f.svc.UpdatePassword(context.Background(), id, "not-mine1!", "another1!")
	assert.ErrorIs(t, err, domain.ErrPasswordMismatch)
}

func TestUpdatePasswordRules(t *testing.T) {
	f := newUserFixture(t)
	id := f.signup(t, "user123", "alice")

	err := f.svc.UpdatePassword(context.Background(), id, "password1!", "nosymbol12")
	assert.ErrorIs(t, err, domain.ErrPasswordNoSymbol)
	assert.Len(t, f.db.histories, 1)
}

func TestUpdateProfile(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	id := f.signup(t, "user123", "alice")
	f.signup(t, "user456", "bob")

	same := "alice"
	detail, err := f.svc.UpdateProfile(ctx, id, UpdateProfileInput{Nickname: &same})
	require.NoError(t, err)
	assert.Equal(t, "alice", detail.Nickname)

	taken := "bob"
	_, err = f.svc.UpdateProfile(ctx, id, UpdateProfileInput{Nickname: &taken})
	assert.ErrorIs(t, err, domain.ErrNicknameDuplicate)

	lang := domain.LanguageKorean
	nick := "carol"
	detail, err = f.svc.UpdateProfile(ctx, id, UpdateProfileInput{
		Nickname: &nick,
		Language: &lang,
		Image:    &storage.File{Filename: "me.jpg", Size: 10, Body: strings.NewReader("x")},
	})
	require.NoError(t, err)
	assert.Equal(t, "carol", detail.Nickname)
	assert.Equal(t, "https://signed/profileImg/1.jpg", detail.ProfileImageURL)

	profile, err := f.svc.Profile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageKorean, profile.Language)
	assert.Equal(t, "user123", profile.UserID)

	detail, err = f.svc.UpdateProfile(ctx, id, UpdateProfileInput{DeleteImage: true})
	require.NoError(t, err)
	assert.Equal(t, "https://signed/profileImg/default.png", detail.ProfileImageURL)
}

func TestUpdateLanguage(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	id := f.signup(t, "user123", "alice")

	assert.ErrorIs(t, f.svc.UpdateLanguage(ctx, id, "KLINGON"), domain.ErrLanguageNotValid)
	require.NoError(t, f.svc.UpdateLanguage(ctx, id, domain.LanguageJapanese))

	lang, err := f.svc.Language(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageJapanese, lang)
}

func TestSelectProfileImage(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	id := f.signup(t, "user123", "alice")

	detail, err := f.svc.SelectProfileImage(ctx, id, 4)
	require.NoError(t, err)
	assert.Equal(t, "https://signed/profileImg/4.png", detail.ProfileImageURL)
	assert.Equal(t, "alice", detail.Nickname)

	u, err := f.db.Repos().Users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "profileImg/4.png", u.ProfileImage)

	_, err = f.svc.SelectProfileImage(ctx, id, 7)
	assert.ErrorIs(t, err, domain.ErrProfilePreset)
	_, err = f.svc.SelectProfileImage(ctx, 999, 1)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestPartnerLanguage(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	me := f.signup(t, "user123", "alice")
	partner := f.signup(t, "user456", "bob")
	require.NoError(t, f.svc.UpdateLanguage(ctx, partner, domain.LanguageJapanese))

	lang, err := f.svc.PartnerLanguage(ctx, partner)
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageJapanese, lang)

	require.NoError(t, f.svc.Delete(ctx, partner))
	_, err = f.svc.PartnerLanguage(ctx, partner)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	lang, err = f.svc.PartnerLanguage(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageEnglish, lang)
}

func TestDeleteTwice(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	id := f.signup(t, "user123", "alice")

	require.NoError(t, f.svc.Delete(ctx, id))
	assert.Equal(t, []int64{id}, f.tokens.revoked)

	err := f.svc.Delete(ctx, id)
	assert.ErrorIs(t, err, domain.ErrUserAlreadyDeleted)

	_, err = f.svc.Detail(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	_, err = f.svc.Detail(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

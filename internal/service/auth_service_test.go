package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube/api/internal/apperr"
)

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := validRegistration()
	input.Username = "  Alice "
	input.Email = "A@X.com"
	input.CoverImagePath = "tmp/cover.png"

	user, err := f.auth.Register(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "https://cdn.test/tmp/avatar.png", user.AvatarURL)
	assert.Equal(t, "https://cdn.test/tmp/cover.png", user.CoverImageURL)
	assert.Equal(t, []string{"tmp/avatar.png", "tmp/cover.png"}, f.uploader.uploaded)

	stored, err := f.store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "p1", string(stored.PasswordHash))
	assert.Nil(t, stored.RefreshToken)
}

func TestRegisterBlankFields(t *testing.T) {
	blanks := map[string]func(*RegisterInput){
		"fullName": func(in *RegisterInput) { in.FullName = "   " },
		"email":    func(in *RegisterInput) { in.Email = "" },
		"username": func(in *RegisterInput) { in.Username = "\t" },
		"password": func(in *RegisterInput) { in.Password = " " },
	}
	for name, blank := range blanks {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			input := validRegistration()
			blank(&input)

			_, err := f.auth.Register(context.Background(), input)
			requireKind(t, err, apperr.KindValidation)
			assert.Zero(t, f.store.count())
			assert.Empty(t, f.uploader.uploaded)
		})
	}
}

func TestRegisterRejectsMarkupOnlyNameAndBadEmail(t *testing.T) {
	f := newFixture(t)

	input := validRegistration()
	input.FullName = "<script></script>"
	_, err := f.auth.Register(context.Background(), input)
	requireKind(t, err, apperr.KindValidation)

	input = validRegistration()
	input.Email = "not-an-email"
	_, err = f.auth.Register(context.Background(), input)
	requireKind(t, err, apperr.KindValidation)
	assert.Zero(t, f.store.count())
}

func TestRegisterKeepsPlainNames(t *testing.T) {
	f := newFixture(t)
	input := validRegistration()
	input.FullName = "Conan O'Brien <b>bold</b>"

	user, err := f.auth.Register(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "Conan O'Brien bold", user.FullName)
}

func TestRegisterRejectsEntityEncodedMarkup(t *testing.T) {
	names := []string{
		"&lt;img src=x onerror=alert(1)&gt;",
		"&amp;lt;img src=x onerror=alert(1)&amp;gt;",
		"&#60;script&#62;alert(1)&#60;/script&#62;",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			input := validRegistration()
			input.FullName = name

			_, err := f.auth.Register(context.Background(), input)
			requireKind(t, err, apperr.KindValidation)
			assert.Zero(t, f.store.count())
		})
	}
}

func TestRegisterStripsEntityEncodedTags(t *testing.T) {
	f := newFixture(t)
	input := validRegistration()
	input.FullName = "&lt;b&gt;Alice&lt;/b&gt; &amp;lt;i&amp;gt;Liddell"

	user, err := f.auth.Register(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", user.FullName)
	assert.NotContains(t, user.FullName, "<")
}

func TestRegisterDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, validRegistration())
	require.NoError(t, err)

	sameUsername := validRegistration()
	sameUsername.Email = "other@x.com"
	_, err = f.auth.Register(ctx, sameUsername)
	requireKind(t, err, apperr.KindConflict)

	sameEmail := validRegistration()
	sameEmail.Username = "bob"
	_, err = f.auth.Register(ctx, sameEmail)
	requireKind(t, err, apperr.KindConflict)

	assert.Equal(t, 1, f.store.count())
}

func TestRegisterAvatarRequired(t *testing.T) {
	f := newFixture(t)
	input := validRegistration()
	input.AvatarPath = ""

	_, err := f.auth.Register(context.Background(), input)
	requireKind(t, err, apperr.KindValidation)
	assert.Zero(t, f.store.count())
}

func TestRegisterAvatarUploadFailure(t *testing.T) {
	f := newFixture(t)
	f.uploader.fail["tmp/avatar.png"] = true

	_, err := f.auth.Register(context.Background(), validRegistration())
	requireKind(t, err, apperr.KindUpload)
	assert.Zero(t, f.store.count())

	f = newFixture(t)
	f.uploader.noURL = true
	_, err = f.auth.Register(context.Background(), validRegistration())
	requireKind(t, err, apperr.KindUpload)
	assert.Zero(t, f.store.count())
}

func TestRegisterCoverUploadFailureIsTolerated(t *testing.T) {
	f := newFixture(t)
	f.uploader.fail["tmp/cover.png"] = true
	input := validRegistration()
	input.CoverImagePath = "tmp/cover.png"

	user, err := f.auth.Register(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, user.CoverImageURL)
	assert.NotEmpty(t, user.AvatarURL)
}

func TestRegisterUsesCoverImageOwnPath(t *testing.T) {
	f := newFixture(t)
	input := validRegistration()
	input.CoverImagePath = "tmp/cover.png"

	user, err := f.auth.Register(context.Background(), input)
	require.NoError(t, err)
	assert.NotEqual(t, user.AvatarURL, user.CoverImageURL)
	assert.Equal(t, "https://cdn.test/tmp/cover.png", user.CoverImageURL)
}

func registerAlice(t *testing.T, f *fixture) {
	t.Helper()
	_, err := f.auth.Register(context.Background(), validRegistration())
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	registerAlice(t, f)
	ctx := context.Background()

	byUsername, err := f.auth.Login(ctx, LoginInput{Username: "ALICE", Password: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", byUsername.User.Username)
	assert.NotEmpty(t, byUsername.Tokens.AccessToken)
	assert.NotEmpty(t, byUsername.Tokens.RefreshToken)

	stored, err := f.store.GetByID(ctx, byUsername.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasRefreshToken(byUsername.Tokens.RefreshToken))

	byEmail, err := f.auth.Login(ctx, LoginInput{Email: "a@x.com", Password: "p1"})
	require.NoError(t, err)
	assert.NotEqual(t, byUsername.Tokens.RefreshToken, byEmail.Tokens.RefreshToken)
}

func TestLoginErrors(t *testing.T) {
	f := newFixture(t)
	registerAlice(t, f)
	ctx := context.Background()

	_, err := f.auth.Login(ctx, LoginInput{Password: "p1"})
	requireKind(t, err, apperr.KindValidation)

	_, err = f.auth.Login(ctx, LoginInput{Username: "nobody", Password: "p1"})
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.auth.Login(ctx, LoginInput{Username: "alice", Password: "wrong"})
	requireKind(t, err, apperr.KindAuth)
}

func TestLoginTokenFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	registerAlice(t, f)
	auth := NewAuthService(f.store, failingTokens{}, f.uploader, zerolog.Nop())

	_, err := auth.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	requireKind(t, err, apperr.KindInternal)
}

func TestRefreshRotatesPair(t *testing.T) {
	f := newFixture(t)
	registerAlice(t, f)
	ctx := context.Background()

	login, err := f.auth.Login(ctx, LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	pair, err := f.auth.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.AccessToken, pair.AccessToken)
	assert.NotEqual(t, login.Tokens.RefreshToken, pair.RefreshToken)

	stored, err := f.store.GetByID(ctx, login.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasRefreshToken(pair.RefreshToken))
}

func TestRefreshRejectsSupersededToken(t *testing.T) {
	f := newFixture(t)
	registerAlice(t, f)
	ctx := context.Background()

	first, err := f.auth.Login(ctx, LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	rotated, err := f.auth.Refresh(ctx, first.Tokens.RefreshToken)
	require.NoError(t, err)

	_, err = f.auth.Refresh(ctx, first.Tokens.RefreshToken)
	requireKind(t, err, apperr.KindAuth)

	second, err := f.auth.Login(ctx, LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)
	_, err = f.auth.Refresh(ctx, rotated.RefreshToken)
	requireKind(t, err, apperr.KindAuth)

	stored, err := f.store.GetByID(ctx, first.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasRefreshToken(second.Tokens.RefreshToken), "rejected refresh leaves state unchanged")
}

func TestRefreshAfterLogout(t *testing.T) {
	f := newFixture(t)
	registerAlice(t, f)
	ctx := context.Background()

	login, err := f.auth.Login(ctx, LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, login.User.ID))

	stored, err := f.store.GetByID(ctx, login.User.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshToken)

	_, err = f.auth.Refresh(ctx, login.Tokens.RefreshToken)
	requireKind(t, err, apperr.KindAuth)
}

func TestRefreshInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Refresh(ctx, "")
	requireKind(t, err, apperr.KindAuth)

	_, err = f.auth.Refresh(ctx, "garbage")
	requireKind(t, err, apperr.KindAuth)

	orphan, err := newTestIssuer().IssuePair(identityOf(validUserModel()))
	require.NoError(t, err)
	_, err = f.auth.Refresh(ctx, orphan.RefreshToken)
	requireKind(t, err, apperr.KindAuth)
}

func TestLogoutUnknownUser(t *testing.T) {
	f := newFixture(t)
	err := f.auth.Logout(context.Background(), "ghost")
	requireKind(t, err, apperr.KindAuth)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	registerAlice(t, f)
	ctx := context.Background()

	login, err := f.auth.Login(ctx, LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	err = f.auth.ChangePassword(ctx, login.User.ID, "wrong", "p2")
	requireKind(t, err, apperr.KindAuth)

	err = f.auth.ChangePassword(ctx, login.User.ID, "p1", "  ")
	requireKind(t, err, apperr.KindValidation)

	require.NoError(t, f.auth.ChangePassword(ctx, login.User.ID, "p1", "p2"))

	_, err = f.auth.Login(ctx, LoginInput{Username: "alice", Password: "p2"})
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, LoginInput{Username: "alice", Password: "p1"})
	requireKind(t, err, apperr.KindAuth)
}

func TestLoginStoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	registerAlice(t, f)
	f.store.failWrite = errors.New("connection reset")

	_, err := f.auth.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	requireKind(t, err, apperr.KindInternal)
}

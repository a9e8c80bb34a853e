package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"videotube/api/internal/ids"
	"videotube/api/internal/models"
	"videotube/api/internal/repository"
	"videotube/api/internal/security"
	"videotube/api/internal/storage"
)

var fastHash = security.NewHasher(security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})

// memStore mirrors the repository's semantics in memory: unique username and
// email, hashing on save, a single refresh token slot.
type memStore struct {
	mu        sync.Mutex
	users     map[string]models.User
	failWrite error
}

func newMemStore() *memStore {
	return &memStore{users: map[string]models.User{}}
}

func (m *memStore) Create(ctx context.Context, input repository.NewUser) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == input.Username || u.Email == input.Email {
			return models.User{}, repository.ErrUserExists
		}
	}
	hash, err := fastHash(input.Password)
	if err != nil {
		return models.User{}, err
	}
	now := time.Now()
	user := models.User{
		ID:            ids.New(),
		Username:      input.Username,
		Email:         input.Email,
		FullName:      input.FullName,
		AvatarURL:     input.AvatarURL,
		CoverImageURL: input.CoverImageURL,
		PasswordHash:  hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) FindByLogin(ctx context.Context, username string, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memStore) ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SetRefreshToken(ctx context.Context, id string, token *string) error {
	if m.failWrite != nil {
		return m.failWrite
	}
	return m.update(id, func(u *models.User) error {
		if token == nil {
			u.RefreshToken = nil
			return nil
		}
		v := *token
		u.RefreshToken = &v
		return nil
	})
}

func (m *memStore) UpdatePassword(ctx context.Context, id string, password string) error {
	hash, err := fastHash(password)
	if err != nil {
		return err
	}
	return m.update(id, func(u *models.User) error {
		u.PasswordHash = hash
		return nil
	})
}

func (m *memStore) UpdateDetails(ctx context.Context, id string, fullName string, email string) (models.User, error) {
	m.mu.Lock()
	for otherID, u := range m.users {
		if otherID != id && u.Email == email {
			m.mu.Unlock()
			return models.User{}, repository.ErrUserExists
		}
	}
	m.mu.Unlock()
	err := m.update(id, func(u *models.User) error {
		u.FullName = fullName
		u.Email = email
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return m.GetByID(ctx, id)
}

func (m *memStore) UpdateAvatar(ctx context.Context, id string, url string) (models.User, error) {
	if err := m.update(id, func(u *models.User) error { u.AvatarURL = url; return nil }); err != nil {
		return models.User{}, err
	}
	return m.GetByID(ctx, id)
}

func (m *memStore) UpdateCoverImage(ctx context.Context, id string, url string) (models.User, error) {
	if err := m.update(id, func(u *models.User) error { u.CoverImageURL = url; return nil }); err != nil {
		return models.User{}, err
	}
	return m.GetByID(ctx, id)
}

func (m *memStore) update(id string, fn func(*models.User) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// fakeUploader maps local paths to URLs; paths listed in fail error out.
type fakeUploader struct {
	uploaded []string
	fail     map[string]bool
	noURL    bool
}

func (f *fakeUploader) Upload(ctx context.Context, localPath string) (storage.UploadedMedia, error) {
	if f.fail[localPath] {
		return storage.UploadedMedia{}, errors.New("media host unavailable")
	}
	f.uploaded = append(f.uploaded, localPath)
	if f.noURL {
		return storage.UploadedMedia{}, nil
	}
	return storage.UploadedMedia{URL: "https://cdn.test/" + localPath, Key: localPath}, nil
}

type fakeInvalidator struct {
	ids []string
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, id string) error {
	f.ids = append(f.ids, id)
	return nil
}

type failingTokens struct{}

func (failingTokens) IssuePair(security.Identity) (security.TokenPair, error) {
	return security.TokenPair{}, errors.New("signer unavailable")
}

func (failingTokens) ParseRefreshToken(string) (*security.RefreshClaims, error) {
	return nil, security.ErrInvalidToken
}

func newTestIssuer() *security.TokenIssuer {
	return security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
}

type fixture struct {
	store    *memStore
	uploader *fakeUploader
	cache    *fakeInvalidator
	auth     *AuthService
	account  *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	uploader := &fakeUploader{fail: map[string]bool{}}
	cache := &fakeInvalidator{}
	log := zerolog.Nop()
	return &fixture{
		store:    store,
		uploader: uploader,
		cache:    cache,
		auth:     NewAuthService(store, newTestIssuer(), uploader, log),
		account:  NewAccountService(store, uploader, cache, log),
	}
}

func validRegistration() RegisterInput {
	return RegisterInput{
		FullName:   "Alice Liddell",
		Email:      "a@x.com",
		Username:   "alice",
		Password:   "p1",
		AvatarPath: "tmp/avatar.png",
	}
}

func validUserModel() models.User {
	return models.User{
		ID:       "orphan",
		Username: "ghost",
		Email:    "ghost@x.com",
		FullName: "Ghost",
	}
}

package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// --- helpers ---

func newTestService(t *testing.T, kind string, repo repository.UserRepository, opts ...auth.TokenOption) *AuthService {
	t.Helper()
	secrets, err := auth.NewStaticSecret("test-secret")
	require.NoError(t, err)

	svc, err := NewAuthService(config.AuthConfig{BcryptCost: config.MinBcryptCost, IdentifierKind: kind},
		AuthDependencies{UserRepo: repo, Secrets: secrets, TokenOptions: opts})
	require.NoError(t, err)
	return svc
}

func validInput() RegisterInput {
	return RegisterInput{
		Identifier:     "a@x.com",
		Name:           "A",
		Phone:          "1234567890",
		NIC:            "123456789012",
		PaymentAccount: "acct1",
		Password:       "pw",
	}
}

func requireDomainErr(t *testing.T, err error, status int) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de), "want DomainError, got %T: %v", err, err)
	assert.Equal(t, status, de.HTTPStatus)
	return de
}

type failingRepo struct {
	err error
}

func (f failingRepo) Create(context.Context, *domain.User) error { return f.err }
func (f failingRepo) GetByID(context.Context, string) (*domain.User, error) {
	return nil, f.err
}
func (f failingRepo) FindByIdentifier(context.Context, domain.IdentifierKind, string) (*domain.User, error) {
	return nil, f.err
}

// --- construction ---

func TestNewAuthService_RejectsBadConfig(t *testing.T) {
	secrets, _ := auth.NewStaticSecret("k")

	_, err := NewAuthService(config.AuthConfig{IdentifierKind: "phone"},
		AuthDependencies{UserRepo: repository.NewMemoryUserRepository(), Secrets: secrets})
	assert.Error(t, err)

	_, err = NewAuthService(config.AuthConfig{IdentifierKind: config.IdentifierEmail},
		AuthDependencies{UserRepo: repository.NewMemoryUserRepository()})
	assert.Error(t, err)
}

// --- registration ---

func TestRegister_ThenLogin(t *testing.T) {
	svc := newTestService(t, config.IdentifierEmail, repository.NewMemoryUserRepository())
	ctx := context.Background()

	user, err := svc.Register(ctx, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Empty(t, user.PasswordHash, "registration must not return the hash")

	res, err := svc.Login(ctx, LoginInput{Identifier: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token.Value)
	assert.Equal(t, user.ID, res.User.ID)
	assert.Empty(t, res.User.PasswordHash)
}

func TestRegister_StoresHashNotPassword(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	svc := newTestService(t, config.IdentifierEmail, repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	stored, err := repo.FindByIdentifier(ctx, domain.IdentifierEmail, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", stored.PasswordHash)
	assert.NoError(t, auth.ComparePassword(stored.PasswordHash, "pw"))
	assert.ErrorIs(t, auth.ComparePassword(stored.PasswordHash, "pwx"), auth.ErrPasswordMismatch)
}

func TestRegister_DuplicateIdentifier(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	svc := newTestService(t, config.IdentifierEmail, repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	again := validInput()
	again.Name = "B"
	_, err = svc.Register(ctx, again)
	de := requireDomainErr(t, err, http.StatusConflict)
	assert.Equal(t, ReasonIdentifierTaken, de.Details["reason"])

	stored, err := repo.FindByIdentifier(ctx, domain.IdentifierEmail, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "A", stored.Name)
}

func TestRegister_ConcurrentDuplicatesYieldOneUser(t *testing.T) {
	svc := newTestService(t, config.IdentifierEmail, repository.NewMemoryUserRepository())

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(context.Background(), validInput())
		}(i)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		if apperrors.ToDomainError(err).HTTPStatus == http.StatusConflict {
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestRegister_MissingFieldsListed(t *testing.T) {
	svc := newTestService(t, config.IdentifierEmail, repository.NewMemoryUserRepository())

	_, err := svc.Register(context.Background(), RegisterInput{Name: "A", Phone: "12"})
	de := requireDomainErr(t, err, http.StatusBadRequest)
	assert.Equal(t, ReasonMissingField, de.Details["reason"])
	assert.Equal(t, []string{"email", "nic", "paymentAccount", "password"}, de.Details["missing"])
}

func TestRegister_BadFormat(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*RegisterInput)
		field string
	}{
		{"phone too short", func(in *RegisterInput) { in.Phone = "12345" }, "phone"},
		{"phone too long", func(in *RegisterInput) { in.Phone = "12345678901" }, "phone"},
		{"phone letters", func(in *RegisterInput) { in.Phone = "12345abcde" }, "phone"},
		{"phone signed", func(in *RegisterInput) { in.Phone = "+123456789" }, "phone"},
		{"nic too short", func(in *RegisterInput) { in.NIC = "12345678901" }, "nic"},
		{"nic too long", func(in *RegisterInput) { in.NIC = "1234567890123" }, "nic"},
		{"nic letters", func(in *RegisterInput) { in.NIC = "12345678901V" }, "nic"},
		{"email shape", func(in *RegisterInput) { in.Identifier = "not-an-email" }, "email"},
		{"password beyond bcrypt limit", func(in *RegisterInput) {
			in.Password = string(make([]byte, 73))
		}, "password"},
	}

	svc := newTestService(t, config.IdentifierEmail, repository.NewMemoryUserRepository())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mut(&in)

			_, err := svc.Register(context.Background(), in)
			de := requireDomainErr(t, err, http.StatusBadRequest)
			assert.Equal(t, ReasonBadFormat, de.Details["reason"])
			assert.Equal(t, tc.field, de.Details["field"])
		})
	}
}

func TestRegister_UsernameKind(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	svc := newTestService(t, config.IdentifierUsername, repo)
	ctx := context.Background()

	in := validInput()
	in.Identifier = "alice"
	user, err := svc.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.Email)

	in.Identifier = "a b"
	_, err = svc.Register(ctx, in)
	de := requireDomainErr(t, err, http.StatusBadRequest)
	assert.Equal(t, "username", de.Details["field"])

	res, err := svc.Login(ctx, LoginInput{Identifier: "alice", Password: "pw"})
	require.NoError(t, err)
	claims, err := svc.TokenManager().ParseToken(res.Token.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Identifier)
	assert.Equal(t, domain.IdentifierUsername, claims.IdentifierKind)
}

func TestRegister_StoreFailureIsInternal(t *testing.T) {
	svc := newTestService(t, config.IdentifierEmail, failingRepo{err: errors.New("connection reset")})

	_, err := svc.Register(context.Background(), validInput())
	de := requireDomainErr(t, err, http.StatusInternalServerError)
	assert.Equal(t, "internal server error", de.Message)
}

// --- login ---

func TestLogin_MissingFields(t *testing.T) {
	svc := newTestService(t, config.IdentifierEmail, repository.NewMemoryUserRepository())

	_, err := svc.Login(context.Background(), LoginInput{})
	de := requireDomainErr(t, err, http.StatusBadRequest)
	assert.Equal(t, []string{"email", "password"}, de.Details["missing"])
}

func TestLogin_UnknownIdentifier(t *testing.T) {
	svc := newTestService(t, config.IdentifierEmail, repository.NewMemoryUserRepository())

	res, err := svc.Login(context.Background(), LoginInput{Identifier: "ghost@x.com", Password: "pw"})
	assert.Nil(t, res)
	de := requireDomainErr(t, err, http.StatusNotFound)
	assert.Equal(t, ReasonUnknownIdentifier, de.Details["reason"])
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestService(t, config.IdentifierEmail, repository.NewMemoryUserRepository())
	ctx := context.Background()
	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	res, err := svc.Login(ctx, LoginInput{Identifier: "a@x.com", Password: "wrong"})
	assert.Nil(t, res)
	de := requireDomainErr(t, err, http.StatusUnauthorized)
	assert.Equal(t, ReasonInvalidCredentials, de.Details["reason"])
}

func TestLogin_StoreFailureIsInternal(t *testing.T) {
	svc := newTestService(t, config.IdentifierEmail, failingRepo{err: errors.New("db down")})

	_, err := svc.Login(context.Background(), LoginInput{Identifier: "a@x.com", Password: "pw"})
	requireDomainErr(t, err, http.StatusInternalServerError)
}

func TestLogin_TokenExpiresAfterOneHour(t *testing.T) {
	issued := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	now := issued
	svc := newTestService(t, config.IdentifierEmail, repository.NewMemoryUserRepository(),
		auth.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	user, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	res, err := svc.Login(ctx, LoginInput{Identifier: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, issued.Add(time.Hour), res.Token.ExpiresAt)

	claims, err := svc.TokenManager().ParseToken(res.Token.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "a@x.com", claims.Identifier)

	now = issued.Add(time.Hour + time.Second)
	_, err = svc.TokenManager().ParseToken(res.Token.Value)
	assert.Error(t, err)
}

func TestLogin_PublishesEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	var seen []events.Event
	for _, et := range []events.EventType{events.EventUserRegistered, events.EventLoginSucceeded, events.EventLoginFailed} {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			seen = append(seen, e)
			return nil
		})
	}

	secrets, _ := auth.NewStaticSecret("k")
	svc, err := NewAuthService(config.AuthConfig{BcryptCost: 10, IdentifierKind: config.IdentifierEmail},
		AuthDependencies{UserRepo: repository.NewMemoryUserRepository(), Secrets: secrets, Dispatcher: dispatcher})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Register(ctx, validInput())
	require.NoError(t, err)
	_, _ = svc.Login(ctx, LoginInput{Identifier: "a@x.com", Password: "nope"})
	_, _ = svc.Login(ctx, LoginInput{Identifier: "b@x.com", Password: "pw"})
	_, err = svc.Login(ctx, LoginInput{Identifier: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	require.Len(t, seen, 4)
	assert.Equal(t, events.EventUserRegistered, seen[0].Type)
	assert.Equal(t, events.LoginFailedPayload{Reason: events.ReasonInvalidCredentials}, seen[1].Payload)
	assert.Equal(t, events.LoginFailedPayload{Reason: events.ReasonUnknownIdentifier}, seen[2].Payload)
	assert.Equal(t, events.EventLoginSucceeded, seen[3].Type)
}

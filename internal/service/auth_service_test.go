package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tumainiaid/reporting-api/internal/models"
	"github.com/tumainiaid/reporting-api/pkg/config"
	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
)

type userRepoStub struct {
	users      map[string]*models.User
	lastLogins map[string]time.Time
	logs       []*models.AuditLog
}

func newUserRepoStub(users ...*models.User) *userRepoStub {
	stub := &userRepoStub{
		users:      make(map[string]*models.User),
		lastLogins: make(map[string]time.Time),
	}
	for _, u := range users {
		stub.users[u.ID] = u
	}
	return stub
}

func (r *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	r.lastLogins[id] = ts
	return nil
}

func (r *userRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "reporting-api-test",
	}
}

func seedUser(t *testing.T, role models.UserRole, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "officer@tumainiaid.org",
		PasswordHash: string(hash),
		FullName:     "Amina Njoroge",
		Role:         role,
		Active:       active,
	}
}

func TestLoginIssuesToken(t *testing.T) {
	repo := newUserRepoStub(seedUser(t, models.RoleFieldOfficer, true))
	svc := NewAuthService(repo, nil, nil, testJWTConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "officer@tumainiaid.org",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotNil(t, resp.User)
	require.Len(t, repo.logs, 1)
	require.Contains(t, repo.lastLogins, "user-1")

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, models.RoleFieldOfficer, claims.Role)
	require.Equal(t, "reporting-api-test", claims.Issuer)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newUserRepoStub(seedUser(t, models.RoleFieldOfficer, true))
	svc := NewAuthService(repo, nil, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "officer@tumainiaid.org",
		Password: "wrong",
	})
	require.Equal(t, "INVALID_CREDENTIALS", appErrors.FromError(err).Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(newUserRepoStub(), nil, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@tumainiaid.org",
		Password: "whatever",
	})
	require.Equal(t, "INVALID_CREDENTIALS", appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := newUserRepoStub(seedUser(t, models.RoleFieldOfficer, false))
	svc := NewAuthService(repo, nil, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "officer@tumainiaid.org",
		Password: "correct horse",
	})
	require.Equal(t, "ACCOUNT_INACTIVE", appErrors.FromError(err).Code)
}

func TestLoginValidatesPayload(t *testing.T) {
	svc := NewAuthService(newUserRepoStub(), nil, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "x"})
	require.Equal(t, "INVALID_ARGS", appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(newUserRepoStub(), nil, nil, testJWTConfig())

	_, err := svc.ValidateToken("not.a.token")
	require.Equal(t, "UNAUTHORIZED", appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Expiration = -time.Hour
	repo := newUserRepoStub(seedUser(t, models.RoleFieldOfficer, true))
	svc := NewAuthService(repo, nil, nil, cfg)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "officer@tumainiaid.org",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken)
	require.Equal(t, "UNAUTHORIZED", appErrors.FromError(err).Code)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"clinic-appointment-service/config"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/pkg/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type authFixture struct {
	usecase    AuthUsecase
	jwtService *jwt.JWTService
	redis      *miniredis.Miniredis
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	jwtService := jwt.NewJWTService(config.JWTConfig{
		Secret:        "test-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
	})

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cretpass"), bcrypt.MinCost)
	require.NoError(t, err)

	doctorRepo := &stubDoctorRepo{doctors: map[int64]*entity.Doctor{
		1: {ID: 1, Name: "Dr. Siti", Email: "siti@clinic.test", Password: string(hash)},
	}}
	patientRepo := &stubPatientRepo{patients: map[int64]*entity.Patient{}}

	return &authFixture{
		usecase:    NewAuthUsecase(log, doctorRepo, patientRepo, jwtService, client),
		jwtService: jwtService,
		redis:      mr,
	}
}

func (f *authFixture) login(t *testing.T) *dto.TokenResponse {
	t.Helper()
	tokens, err := f.usecase.Login(context.Background(), &dto.LoginRequest{
		Email:    "siti@clinic.test",
		Password: "s3cretpass",
	})
	require.NoError(t, err)
	return tokens
}

func TestLogoutRevokesBothTokens(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.login(t)

	accessClaims, err := f.jwtService.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	refreshClaims, err := f.jwtService.ValidateToken(tokens.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, f.usecase.Logout(context.Background(), accessClaims.TokenID, tokens.RefreshToken))

	assert.True(t, f.redis.Exists(RevokedTokenKeyPrefix+accessClaims.TokenID))
	assert.True(t, f.redis.Exists(RevokedTokenKeyPrefix+refreshClaims.TokenID))
}

func TestRefreshRejectedAfterLogout(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.login(t)

	accessClaims, err := f.jwtService.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.usecase.Logout(context.Background(), accessClaims.TokenID, tokens.RefreshToken))

	_, err = f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: tokens.RefreshToken,
	})
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestLogoutWithoutRefreshTokenRevokesAccessOnly(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.login(t)

	accessClaims, err := f.jwtService.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.usecase.Logout(context.Background(), accessClaims.TokenID, ""))

	assert.True(t, f.redis.Exists(RevokedTokenKeyPrefix+accessClaims.TokenID))

	// The refresh token stays usable.
	_, err = f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: tokens.RefreshToken,
	})
	assert.NoError(t, err)
}

func TestLogoutRejectsAccessTokenAsRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.login(t)

	accessClaims, err := f.jwtService.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)

	err = f.usecase.Logout(context.Background(), accessClaims.TokenID, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRotatesOldToken(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.login(t)

	_, err := f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: tokens.RefreshToken,
	})
	require.NoError(t, err)

	_, err = f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: tokens.RefreshToken,
	})
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestIsDuplicateKeyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique violation", fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505"}), true},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"unrelated error", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDuplicateKeyError(tt.err))
		})
	}
}

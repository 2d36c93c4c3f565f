package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinic-appointment-service/internal/converter"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"
	"clinic-appointment-service/pkg/jwt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// RevokedTokenKeyPrefix marks token IDs that were logged out before expiry.
const RevokedTokenKeyPrefix = "auth:revoked:"

type AuthUsecase interface {
	RegisterPatient(ctx context.Context, req *dto.RegisterPatientRequest) (*dto.PatientResponse, error)
	RegisterDoctor(ctx context.Context, req *dto.RegisterDoctorRequest) (*dto.DoctorResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, accessTokenID, refreshToken string) error
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
}

type authUsecase struct {
	log         *logrus.Logger
	doctorRepo  repository.DoctorRepository
	patientRepo repository.PatientRepository
	jwtService  *jwt.JWTService
	redisClient *redis.Client
}

func NewAuthUsecase(
	log *logrus.Logger,
	doctorRepo repository.DoctorRepository,
	patientRepo repository.PatientRepository,
	jwtService *jwt.JWTService,
	redisClient *redis.Client,
) AuthUsecase {
	return &authUsecase{
		log:         log,
		doctorRepo:  doctorRepo,
		patientRepo: patientRepo,
		jwtService:  jwtService,
		redisClient: redisClient,
	}
}

func (u *authUsecase) RegisterPatient(ctx context.Context, req *dto.RegisterPatientRequest) (*dto.PatientResponse, error) {
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	patient := &entity.Patient{
		Name:        req.Name,
		Email:       strings.ToLower(req.Email),
		Password:    string(hashedPassword),
		PhoneNumber: req.PhoneNumber,
		DateOfBirth: dob,
		Gender:      req.Gender,
		Address:     req.Address,
	}

	if err := u.patientRepo.Create(ctx, patient); err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create patient: %+v", err)
		return nil, err
	}

	return converter.PatientToResponse(patient), nil
}

func (u *authUsecase) RegisterDoctor(ctx context.Context, req *dto.RegisterDoctorRequest) (*dto.DoctorResponse, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	doctor := &entity.Doctor{
		Name:           req.Name,
		Email:          strings.ToLower(req.Email),
		Password:       string(hashedPassword),
		PhoneNumber:    req.PhoneNumber,
		Specialization: req.Specialization,
		Biography:      req.Biography,
	}

	if err := u.doctorRepo.Create(ctx, doctor); err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create doctor: %+v", err)
		return nil, err
	}

	return converter.DoctorToResponse(doctor), nil
}

// Login authenticates against doctors first, then patients. Both account
// kinds share the same token shape, the role claim tells them apart.
func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	email := strings.ToLower(req.Email)

	doctor, err := u.doctorRepo.FindByEmail(ctx, email)
	if err != nil {
		u.log.Warnf("Failed to find doctor by email: %+v", err)
		return nil, err
	}
	if doctor != nil {
		if bcrypt.CompareHashAndPassword([]byte(doctor.Password), []byte(req.Password)) != nil {
			return nil, ErrInvalidCredentials
		}
		return u.issueTokens(doctor.ID, doctor.Email, jwt.RoleDoctor)
	}

	patient, err := u.patientRepo.FindByEmail(ctx, email)
	if err != nil {
		u.log.Warnf("Failed to find patient by email: %+v", err)
		return nil, err
	}
	if patient != nil {
		if bcrypt.CompareHashAndPassword([]byte(patient.Password), []byte(req.Password)) != nil {
			return nil, ErrInvalidCredentials
		}
		return u.issueTokens(patient.ID, patient.Email, jwt.RolePatient)
	}

	return nil, ErrInvalidCredentials
}

// Logout revokes the presented access token and, when the client sends its
// refresh token along, that one too. Revoking only the access token would
// leave the refresh token free to mint fresh pairs.
func (u *authUsecase) Logout(ctx context.Context, accessTokenID, refreshToken string) error {
	if err := u.revokeToken(ctx, accessTokenID, u.jwtService.GetAccessExpiry()); err != nil {
		return err
	}

	if refreshToken == "" {
		return nil
	}
	claims, err := u.jwtService.ValidateToken(refreshToken)
	if err != nil || claims.TokenType != jwt.RefreshToken {
		return ErrInvalidToken
	}
	return u.revokeToken(ctx, claims.TokenID, u.jwtService.GetRefreshExpiry())
}

func (u *authUsecase) revokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	key := RevokedTokenKeyPrefix + tokenID
	if err := u.redisClient.Set(ctx, key, "1", ttl).Err(); err != nil {
		u.log.Warnf("Failed to revoke token %s: %+v", tokenID, err)
		return err
	}
	return nil
}

func (u *authUsecase) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := u.jwtService.ValidateToken(req.RefreshToken)
	if err != nil || claims.TokenType != jwt.RefreshToken {
		return nil, ErrInvalidToken
	}

	revoked, err := u.redisClient.Exists(ctx, RevokedTokenKeyPrefix+claims.TokenID).Result()
	if err != nil {
		u.log.Warnf("Failed to check token revocation: %+v", err)
		return nil, err
	}
	if revoked > 0 {
		return nil, ErrTokenRevoked
	}

	// Rotate: the old refresh token is revoked for its remaining lifetime.
	if err := u.revokeToken(ctx, claims.TokenID, u.jwtService.GetRefreshExpiry()); err != nil {
		return nil, err
	}

	return u.issueTokens(claims.UserID, claims.Email, claims.Role)
}

func (u *authUsecase) issueTokens(userID int64, email string, role jwt.Role) (*dto.TokenResponse, error) {
	accessToken, _, err := u.jwtService.GenerateAccessToken(userID, email, role)
	if err != nil {
		u.log.Warnf("Failed to generate access token: %+v", err)
		return nil, err
	}

	refreshToken, _, err := u.jwtService.GenerateRefreshToken(userID, email, role)
	if err != nil {
		u.log.Warnf("Failed to generate refresh token: %+v", err)
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(u.jwtService.GetAccessExpiry().Seconds()),
	}, nil
}

// isDuplicateKeyError reports whether err is a postgres unique constraint
// violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

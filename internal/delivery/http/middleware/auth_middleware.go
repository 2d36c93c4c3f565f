package middleware

import (
	"context"
	"net/http"
	"strings"

	"clinic-appointment-service/pkg/jwt"
	"clinic-appointment-service/pkg/response"

	"github.com/redis/go-redis/v9"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	UserRoleKey  contextKey = "user_role"
	TokenIDKey   contextKey = "token_id"
)

// revokedTokenKeyPrefix mirrors the prefix the auth usecase writes on logout.
const revokedTokenKeyPrefix = "auth:revoked:"

type AuthMiddleware struct {
	jwtService  *jwt.JWTService
	redisClient *redis.Client
}

func NewAuthMiddleware(jwtService *jwt.JWTService, redisClient *redis.Client) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtService,
		redisClient: redisClient,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil || claims.TokenType != jwt.AccessToken {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		revoked, err := m.redisClient.Exists(r.Context(), revokedTokenKeyPrefix+claims.TokenID).Result()
		if err != nil {
			response.InternalServerError(w, "Failed to verify token")
			return
		}
		if revoked > 0 {
			response.Unauthorized(w, "Token has been revoked")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
		ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
		ctx = context.WithValue(ctx, TokenIDKey, claims.TokenID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext returns the authenticated account's ID.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

// GetUserRoleFromContext returns the authenticated account's role.
func GetUserRoleFromContext(ctx context.Context) (jwt.Role, bool) {
	role, ok := ctx.Value(UserRoleKey).(jwt.Role)
	return role, ok
}

// GetTokenIDFromContext returns the ID of the presented access token.
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(TokenIDKey).(string)
	return tokenID, ok
}

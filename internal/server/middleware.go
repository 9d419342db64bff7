package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/reelfolio/reelfolio/internal/auth"
	"github.com/reelfolio/reelfolio/internal/guard"
	"github.com/reelfolio/reelfolio/internal/models"
	"github.com/reelfolio/reelfolio/internal/session"
)

const (
	bearerPrefix = "Bearer "
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenRevoked      = errors.New("token revoked")
	ErrUserNotFound      = errors.New("user not found")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// JWTAuthMiddleware validates bearer tokens, rejects revoked ones and resolves
// the caller's admin role from the role table
func JWTAuthMiddleware(db *gorm.DB, signer *auth.Signer, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			var message string
			switch err {
			case ErrMissingAuthHeader:
				message = "Missing authorization header"
			case ErrInvalidAuthFormat:
				message = "Invalid authorization header format"
			case ErrEmptyToken:
				message = "Empty token"
			}
			respondWithError(c, log, http.StatusUnauthorized, err, message)
			return
		}

		claims, err := signer.ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to validate JWT token")
			respondWithError(c, log, http.StatusUnauthorized, ErrInvalidToken, "Invalid or expired token")
			return
		}

		var revoked int64
		if err := db.Model(&models.RevokedToken{}).Where("token_id = ?", claims.ID).Count(&revoked).Error; err != nil {
			log.Error().Err(err).Msg("Failed to check token revocation")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}
		if revoked > 0 {
			respondWithError(c, log, http.StatusUnauthorized, ErrTokenRevoked, "Invalid or expired token")
			return
		}

		var user models.User
		if err := db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondWithError(c, log.With().Str("user_id", claims.UserID).Logger(), http.StatusUnauthorized, ErrUserNotFound, "User not found")
				return
			}
			log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to load user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}

		isAdmin, err := models.HasRole(db, user.ID, models.RoleAdmin)
		if err != nil {
			// Same rule as the client: a failed lookup means non-admin
			log.Warn().Err(err).Str("user_id", user.ID).Msg("Role lookup failed, treating user as non-admin")
			isAdmin = false
		}

		sessionData := &auth.SessionData{
			UserID:    user.ID,
			Email:     user.Email,
			IsAdmin:   isAdmin,
			TokenID:   claims.ID,
			ExpiresAt: claims.ExpiresAt.Time,
		}
		setSession(c, sessionData)

		c.Next()
	}
}

// RequireRoute gates a route group with the same decision the CLI makes
// before navigating to path. A sign-in redirect becomes 401 and a
// not-authorized redirect becomes 403.
func RequireRoute(path string, log zerolog.Logger) gin.HandlerFunc {
	requirement := guard.RequirementFor(path)

	return func(c *gin.Context) {
		snap := session.Snapshot{}
		if sessionData, ok := GetSessionData(c); ok {
			snap.User = &session.User{ID: sessionData.UserID, Email: sessionData.Email}
			snap.IsAdmin = sessionData.IsAdmin
		}

		decision := guard.Decide(snap, requirement)
		if decision.Outcome != guard.Redirect {
			c.Next()
			return
		}

		switch decision.Target {
		case guard.SignInPath:
			respondWithError(c, log, http.StatusUnauthorized, errors.New("no session"), "Unauthorized")
		default:
			respondWithError(c, log, http.StatusForbidden, errors.New("not admin"), "Admin access required")
		}
	}
}

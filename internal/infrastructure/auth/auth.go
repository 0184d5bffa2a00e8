package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/bigsoczeq/ai-chatbot2/internal/config"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
)

const identityKey = "auth_identity"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID string
	Class  chat.UserClass
}

// Validator validates JWTs using JWKS. With auth disabled it falls back to
// header-based identities so local development needs no identity provider.
type Validator struct {
	cfg  *config.Config
	log  zerolog.Logger
	jwks *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	if !cfg.AuthEnabled {
		return &Validator{cfg: cfg, log: log}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{
		cfg:  cfg,
		log:  log,
		jwks: jwks,
	}, nil
}

// Middleware resolves the caller's identity. With auth enabled it enforces a
// valid JWT; otherwise the X-User-ID and X-User-Class headers are trusted,
// defaulting to an anonymous guest.
func (v *Validator) Middleware() gin.HandlerFunc {
	if v == nil || !v.cfg.AuthEnabled {
		return func(c *gin.Context) {
			c.Set(identityKey, headerIdentity(c))
			c.Next()
		}
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		token, err := jwt.Parse(tokenString, v.jwks.Keyfunc,
			jwt.WithIssuer(v.cfg.AuthIssuer),
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		)
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid token claims")
			return
		}

		if audience := strings.TrimSpace(v.cfg.AuthAudience); audience != "" {
			if !audienceMatches(claims, audience) {
				abortUnauthorized(c, "invalid token audience")
				return
			}
		}

		subject, _ := claims["sub"].(string)
		if subject == "" {
			abortUnauthorized(c, "token has no subject")
			return
		}

		c.Set(identityKey, Identity{
			UserID: subject,
			Class:  classFromClaims(claims),
		})
		c.Next()
	}
}

// IdentityFromContext returns the identity the middleware attached.
func IdentityFromContext(c *gin.Context) Identity {
	if val, ok := c.Get(identityKey); ok {
		if identity, ok := val.(Identity); ok {
			return identity
		}
	}
	return Identity{UserID: "guest", Class: chat.ClassGuest}
}

// Ready indicates if the validator is prepared.
func (v *Validator) Ready() bool {
	if v == nil || !v.cfg.AuthEnabled {
		return true
	}
	return v.jwks != nil
}

func headerIdentity(c *gin.Context) Identity {
	identity := Identity{
		UserID: strings.TrimSpace(c.GetHeader("X-User-ID")),
		Class:  chat.ClassGuest,
	}
	if identity.UserID == "" {
		identity.UserID = "guest"
	}
	if strings.EqualFold(c.GetHeader("X-User-Class"), string(chat.ClassRegular)) {
		identity.Class = chat.ClassRegular
	}
	return identity
}

func classFromClaims(claims jwt.MapClaims) chat.UserClass {
	if userType, _ := claims["user_type"].(string); userType == string(chat.ClassGuest) {
		return chat.ClassGuest
	}
	return chat.ClassRegular
}

func audienceMatches(claims jwt.MapClaims, audience string) bool {
	audClaim, hasAud := claims["aud"]
	if !hasAud {
		return true
	}
	switch aud := audClaim.(type) {
	case string:
		return aud == audience
	case []any:
		for _, entry := range aud {
			if s, ok := entry.(string); ok && s == audience {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}

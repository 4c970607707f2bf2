package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"helpdesk/internal/service"
	"helpdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// PrincipalResolver turns an access token into the calling user
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, accessToken string) (service.Principal, error)
}

// CookieOptions controls the auth cookies. Secure switches to SameSite=None
// for cross-origin production frontends.
type CookieOptions struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, opts CookieOptions, accessToken, refreshToken string) {
	setSameSite(c, opts)
	c.SetCookie("access_token", accessToken, int(opts.AccessTTL.Seconds()), "/", "", opts.Secure, true)
	c.SetCookie("refresh_token", refreshToken, int(opts.RefreshTTL.Seconds()), "/", "", opts.Secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context, opts CookieOptions) {
	setSameSite(c, opts)
	c.SetCookie("access_token", "", -1, "/", "", opts.Secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", opts.Secure, true)
}

func setSameSite(c *gin.Context, opts CookieOptions) {
	if opts.Secure {
		c.SetSameSite(http.SameSiteNoneMode)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
}

// Authenticate reads the access token from the cookie or the Bearer header and
// stores the resolved principal on the context.
func Authenticate(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, cookieErr := c.Cookie("access_token")
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		p, err := resolver.ResolvePrincipal(c.Request.Context(), tokenString)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify token"))
			return
		}

		c.Set(principalKey, p)
		c.Set("userID", p.UserID)
		c.Set("userRole", p.Role)

		c.Next()
	}
}

// RequireRole must run after Authenticate
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		for _, role := range allowedRoles {
			if p.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// GetPrincipal returns the authenticated caller set by Authenticate
func GetPrincipal(c *gin.Context) (service.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return service.Principal{}, false
	}
	p, ok := v.(service.Principal)
	return p, ok
}

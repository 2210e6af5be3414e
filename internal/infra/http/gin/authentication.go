package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"akwa/internal/app/handlers/penalties"
	"akwa/internal/app/middleware"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRoles = "X-User-Roles"
	HeaderAdminKey  = "X-Admin-Key"

	principalContextKey = "akwa.principal"
	adminPrincipalID    = "admin-key"
)

// GatewayIdentity trusts the user id and roles forwarded by the API gateway.
// Requests without a user id continue anonymously.
func GatewayIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if id == "" {
			c.Next()
			return
		}
		setPrincipal(c, middleware.Principal{ID: id, Roles: splitRoles(c.GetHeader(HeaderUserRoles))})
		c.Next()
	}
}

// AdminKey grants the admin role to requests carrying a key that matches the
// configured bcrypt hash.
type AdminKey struct {
	Hash   []byte
	Logger *slog.Logger
}

func (a AdminKey) Handle(c *gin.Context) {
	key := c.GetHeader(HeaderAdminKey)
	if key == "" || len(a.Hash) == 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "admin key required"})
		return
	}
	if err := bcrypt.CompareHashAndPassword(a.Hash, []byte(key)); err != nil {
		if a.Logger != nil {
			a.Logger.Warn("admin key rejected", "path", c.FullPath(), "client_ip", c.ClientIP())
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "invalid admin key"})
		return
	}
	p, ok := currentPrincipal(c)
	if !ok {
		p = middleware.Principal{ID: adminPrincipalID}
	}
	if !p.HasRole(penalties.RoleAdmin) {
		p.Roles = append(p.Roles, penalties.RoleAdmin)
	}
	setPrincipal(c, p)
	c.Next()
}

// setPrincipal stores p on the gin context and on the request context the
// buses see.
func setPrincipal(c *gin.Context, p middleware.Principal) {
	c.Set(principalContextKey, p)
	c.Request = c.Request.WithContext(middleware.WithPrincipal(c.Request.Context(), p))
}

func currentPrincipal(c *gin.Context) (middleware.Principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return middleware.Principal{}, false
	}
	p, ok := val.(middleware.Principal)
	return p, ok
}

func requirePrincipal(c *gin.Context) (middleware.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "auth required"})
		return middleware.Principal{}, false
	}
	return p, true
}

func splitRoles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

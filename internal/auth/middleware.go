package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/taskforge/task-manager/internal/domain"
	apperrors "github.com/taskforge/task-manager/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectID int64
	Role      domain.Role
}

// IsAdmin reports whether the principal holds the administrator role.
func (p Principal) IsAdmin() bool {
	return p.Role == domain.RoleAdmin
}

// Gate validates bearer tokens on every request outside its public
// allow-list and stores the resulting Principal in request locals.
type Gate struct {
	tokens *TokenService
	logger *zap.Logger
	public map[string]struct{}
}

// NewGate constructs the gate. publicPaths are served without a token.
func NewGate(tokens *TokenService, logger *zap.Logger, publicPaths ...string) *Gate {
	public := make(map[string]struct{}, len(publicPaths))
	for _, path := range publicPaths {
		public[routeKey(path)] = struct{}{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, logger: logger, public: public}
}

// Handle enforces authentication.
func (g *Gate) Handle(c *fiber.Ctx) error {
	if _, ok := g.public[routeKey(c.Path())]; ok {
		return c.Next()
	}

	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return apperrors.NewUnauthorized("missing bearer token")
	}

	principal, err := g.tokens.Verify(token)
	if err != nil {
		g.logger.Debug("token rejected", zap.String("path", c.Path()), zap.Error(err))
		c.Set(fiber.HeaderWWWAuthenticate, `Bearer error="invalid_token"`)
		return apperrors.NewUnauthorized("invalid or expired token")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// routeKey folds a path the way fiber's default router matches it: case
// insensitive and without trailing slashes.
func routeKey(path string) string {
	path = strings.ToLower(path)
	if trimmed := strings.TrimRight(path, "/"); trimmed != "" {
		return trimmed
	}
	return "/"
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (Principal, bool) {
	principal, ok := c.Locals(principalKey).(Principal)
	return principal, ok
}

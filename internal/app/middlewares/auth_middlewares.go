package middlewares

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
)

// UserResolver turns a bearer token into the Connect user it belongs to.
type UserResolver interface {
	GetCurrentUser(ctx context.Context, accessToken string) (*models.ConnectUser, error)
}

type AuthMiddleware struct {
	resolver UserResolver
}

func NewAuthMiddleware(resolver UserResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

func (m *AuthMiddleware) AuthConnect(c *fiber.Ctx) error {
	token := c.Get("Authorization")
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(models.WebResponse[any]{
			Success: false,
			Message: "Unauthorized",
		})
	}

	token = strings.Replace(token, "Bearer ", "", 1)

	connectUser, err := m.resolver.GetCurrentUser(c.UserContext(), token)
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewUnauthorizedError(err.Error()))
	}

	c.Locals("connect_user", connectUser)

	return c.Next()
}

// AuthAdmin must run after AuthConnect.
func (m *AuthMiddleware) AuthAdmin(c *fiber.Ctx) error {
	connectUser, ok := c.Locals("connect_user").(*models.ConnectUser)
	if !ok || connectUser == nil {
		return pkg.ErrorResponse(c, errors.NewUnauthorizedError("User is not authenticated"))
	}

	if !connectUser.IsAdmin() {
		return pkg.ErrorResponse(c, errors.NewForbiddenError("Admin access required"))
	}

	return c.Next()
}

// CurrentUser returns the user stored by AuthConnect.
func CurrentUser(c *fiber.Ctx) *models.ConnectUser {
	connectUser, _ := c.Locals("connect_user").(*models.ConnectUser)
	return connectUser
}

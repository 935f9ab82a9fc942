package middleware

import (
	"strings"

	"go-meatflow/internal/repository"
	"go-meatflow/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(401).JSON(fiber.Map{"error": msg})
}

func forbidden(c *fiber.Ctx, msg string) error {
	return c.Status(403).JSON(fiber.Map{"error": msg})
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return header[7:]
	}
	return ""
}

// RequireAuth validates the bearer token, re-checks the account against the
// database and stashes the caller's identity in locals. Token version must
// match the stored one, so a password reset kills every issued token.
func RequireAuth(userRepo repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return unauthorized(c, "Missing or malformed authorization header")
		}

		claims, err := jwt.ValidateToken(token)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		user, err := userRepo.FindByID(claims.UserID)
		if err != nil {
			return unauthorized(c, "User not found")
		}
		if !user.IsActive {
			return unauthorized(c, "Account is disabled")
		}
		if user.TokenVersion != claims.TokenVersion {
			return unauthorized(c, "Session expired (logged in on another device)")
		}

		c.Locals("user_id", claims.UserID.String())
		c.Locals("organization_id", user.OrganizationID.String())
		c.Locals("user_email", claims.Email)
		c.Locals("user_name", claims.Name)
		c.Locals("user_privileges", claims.Privileges)

		return c.Next()
	}
}

func hasPrivilege(c *fiber.Ctx, code string) bool {
	privileges, ok := c.Locals("user_privileges").([]string)
	if !ok {
		return false
	}
	for _, p := range privileges {
		if p == code {
			return true
		}
	}
	return false
}

// RequirePrivilege gates a route on a single privilege code.
func RequirePrivilege(code string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hasPrivilege(c, code) {
			return c.Next()
		}
		return forbidden(c, "Forbidden: requires '"+code+"' privilege")
	}
}

// RequireAnyPrivilege gates a route on holding at least one of the codes.
func RequireAnyPrivilege(codes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, code := range codes {
			if hasPrivilege(c, code) {
				return c.Next()
			}
		}
		return forbidden(c, "Forbidden: requires one of "+strings.Join(codes, ", "))
	}
}

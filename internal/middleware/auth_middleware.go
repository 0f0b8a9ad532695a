package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/obmenka-app/obmenka-api/internal/utils"
)

// AuthMiddleware проверяет Bearer-токен и кладет ID пользователя в Locals
func AuthMiddleware(jwtService *utils.JWTService) fiber.Handler {
	return func(c fiber.Ctx) error {
		tokenString, found := strings.CutPrefix(c.Get("Authorization"), "Bearer ")
		if !found || tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Отсутствует или некорректен заголовок авторизации",
			})
		}

		userID, err := jwtService.ExtractUserID(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Невалидный или просроченный токен",
			})
		}

		c.Locals("userID", userID.String())
		return c.Next()
	}
}

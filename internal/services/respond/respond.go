// Package respond отображает ошибки доменного слоя на HTTP-ответы Fiber.
package respond

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/obmenka-app/obmenka-api/internal/apperr"
)

// Error отправляет клиенту JSON с текстом ошибки и подходящим статусом.
// Внутренние ошибки логируются, клиенту уходит только общее сообщение.
func Error(c fiber.Ctx, err error) error {
	if apperr.KindOf(err) == apperr.KindInternal {
		log.Printf("Внутренняя ошибка: %v", err)
	}
	return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{"error": apperr.Message(err)})
}

// UserID извлекает идентификатор пользователя, положенный middleware
// авторизации, и проверяет его формат
func UserID(c fiber.Ctx) (uuid.UUID, error) {
	raw, _ := c.Locals("userID").(string)
	if raw == "" {
		return uuid.Nil, apperr.Unauthenticated("Пользователь не авторизован")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.InvalidArgument("Неверный формат ID пользователя")
	}
	return id, nil
}

package notification

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/obmenka-app/obmenka-api/internal/config"
	"github.com/obmenka-app/obmenka-api/internal/services/respond"
	"github.com/obmenka-app/obmenka-api/internal/storage"
	"github.com/obmenka-app/obmenka-api/internal/utils"
)

// NotificationService представляет сервис для работы с уведомлениями
type NotificationService struct {
	store      *storage.NotificationStore
	jwtService *utils.JWTService
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(cfg *config.Config, store *storage.NotificationStore) *NotificationService {
	return &NotificationService{
		store:      store,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// GetNotifications возвращает последние уведомления пользователя
func (s *NotificationService) GetNotifications(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	notifications, err := s.store.ListByUser(c.Context(), userID, 50)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"notifications": notifications})
}

// MarkRead отмечает уведомление прочитанным
func (s *NotificationService) MarkRead(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	notificationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID уведомления"})
	}

	if err := s.store.MarkRead(c.Context(), notificationID, userID); err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"message": "Уведомление прочитано"})
}

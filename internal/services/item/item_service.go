package item

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/obmenka-app/obmenka-api/internal/config"
	"github.com/obmenka-app/obmenka-api/internal/models"
	"github.com/obmenka-app/obmenka-api/internal/services/respond"
	"github.com/obmenka-app/obmenka-api/internal/storage"
	"github.com/obmenka-app/obmenka-api/internal/utils"
)

// ItemService представляет сервис для работы с вещами
type ItemService struct {
	items      *storage.ItemStore
	exchanges  *storage.ExchangeStore
	jwtService *utils.JWTService
}

// NewItemService создает новый экземпляр ItemService
func NewItemService(cfg *config.Config, items *storage.ItemStore, exchanges *storage.ExchangeStore) *ItemService {
	return &ItemService{
		items:      items,
		exchanges:  exchanges,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// CreateItem создает новую вещь
func (s *ItemService) CreateItem(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	var requestData struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		ExchangeType string `json:"exchange_type"`
		ImageURL     string `json:"image_url"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	requestData.Title = strings.TrimSpace(requestData.Title)
	if requestData.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Необходимо указать название вещи"})
	}

	exchangeType := models.ExchangeType(requestData.ExchangeType)
	if !exchangeType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный тип обмена"})
	}

	item := &models.Item{
		ID:           uuid.New(),
		OwnerID:      userID,
		Title:        requestData.Title,
		Description:  requestData.Description,
		ExchangeType: exchangeType,
		Status:       models.ItemAvailable,
		ImageURL:     requestData.ImageURL,
		CreatedAt:    time.Now(),
	}
	if err := s.items.Create(c.Context(), item); err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Вещь добавлена",
		"item":    item,
	})
}

// GetMyItems возвращает вещи пользователя
func (s *ItemService) GetMyItems(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	items, err := s.items.ListByOwner(c.Context(), userID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"items": items})
}

// GetItem возвращает вещь по ID
func (s *ItemService) GetItem(c fiber.Ctx) error {
	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи"})
	}

	item, err := s.items.Get(c.Context(), itemID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Вещь не найдена"})
		}
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"item": item})
}

// DeleteItem удаляет вещь. Вещь с незавершенной заявкой удалить нельзя.
func (s *ItemService) DeleteItem(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи"})
	}

	item, err := s.items.Get(c.Context(), itemID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Вещь не найдена"})
		}
		return respond.Error(c, err)
	}
	if item.OwnerID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Нельзя удалить чужую вещь"})
	}

	active, err := s.exchanges.HasActiveRequestForItem(c.Context(), itemID)
	if err != nil {
		return respond.Error(c, err)
	}
	if active {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "По этой вещи есть незавершенная заявка"})
	}

	if err := s.items.Delete(c.Context(), itemID); err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"message": "Вещь удалена"})
}

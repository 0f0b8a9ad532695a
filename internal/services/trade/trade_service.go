package trade

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/obmenka-app/obmenka-api/internal/config"
	"github.com/obmenka-app/obmenka-api/internal/exchange"
	"github.com/obmenka-app/obmenka-api/internal/models"
	"github.com/obmenka-app/obmenka-api/internal/services/respond"
	"github.com/obmenka-app/obmenka-api/internal/storage"
	"github.com/obmenka-app/obmenka-api/internal/utils"
)

// TradeService представляет сервис для работы с обменами
type TradeService struct {
	engine     *exchange.Engine
	store      *storage.ExchangeStore
	jwtService *utils.JWTService
}

// NewTradeService создает новый экземпляр TradeService
func NewTradeService(cfg *config.Config, engine *exchange.Engine, store *storage.ExchangeStore) *TradeService {
	return &TradeService{
		engine:     engine,
		store:      store,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// CreateTrade создает новое предложение обмена
func (s *TradeService) CreateTrade(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	// Извлекаем данные из запроса
	var requestData struct {
		FromItemID string `json:"from_item_id"`
		ToItemID   string `json:"to_item_id"`
		Message    string `json:"message"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	// Проверка обязательных полей
	if requestData.FromItemID == "" || requestData.ToItemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Необходимо указать ID вещей для обмена"})
	}

	// Преобразуем ID в UUID
	fromItemID, err := uuid.Parse(requestData.FromItemID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вашей вещи"})
	}
	toItemID, err := uuid.Parse(requestData.ToItemID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи получателя"})
	}

	req, err := s.engine.CreateTrade(c.Context(), userID, exchange.CreateTradeInput{
		FromItemID: fromItemID,
		ToItemID:   toItemID,
		Message:    requestData.Message,
	})
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Предложение обмена создано",
		"trade":   req,
	})
}

// GetMyTrades возвращает список предложений обмена пользователя
func (s *TradeService) GetMyTrades(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	trades, err := s.store.ListByUser(c.Context(), userID, models.VariantTrade)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"trades": trades})
}

// AcceptTrade принимает предложение обмена
func (s *TradeService) AcceptTrade(c fiber.Ctx) error {
	return s.transition(c, s.engine.AcceptTrade, "Предложение обмена принято")
}

// RejectTrade отклоняет предложение обмена
func (s *TradeService) RejectTrade(c fiber.Ctx) error {
	return s.transition(c, s.engine.RejectTrade, "Предложение обмена отклонено")
}

// CompleteTrade завершает принятый обмен: вещи меняются владельцами
func (s *TradeService) CompleteTrade(c fiber.Ctx) error {
	return s.transition(c, s.engine.CompleteTrade, "Обмен завершен")
}

// transition — общий каркас обработчиков смены статуса
func (s *TradeService) transition(c fiber.Ctx, op func(ctx context.Context, tradeID, actorID uuid.UUID) (*models.ExchangeRequest, error), message string) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	tradeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID обмена"})
	}

	req, err := op(c.Context(), tradeID, userID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"message": message,
		"trade":   req,
	})
}

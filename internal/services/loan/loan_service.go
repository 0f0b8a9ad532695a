package loan

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

// LoanService представляет сервис для работы с займами
type LoanService struct {
	engine     *exchange.Engine
	store      *storage.ExchangeStore
	jwtService *utils.JWTService
}

// NewLoanService создает новый экземпляр LoanService
func NewLoanService(cfg *config.Config, engine *exchange.Engine, store *storage.ExchangeStore) *LoanService {
	return &LoanService{
		engine:     engine,
		store:      store,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// CreateLoan создает открытый запрос на заем
func (s *LoanService) CreateLoan(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	var requestData struct {
		ItemName string `json:"item_name"`
		Message  string `json:"message"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	req, err := s.engine.CreateLoan(c.Context(), userID, requestData.ItemName, requestData.Message)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Запрос на заем опубликован",
		"loan":    req,
	})
}

// GetMyLoans возвращает запросы на заем с участием пользователя
func (s *LoanService) GetMyLoans(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	loans, err := s.store.ListByUser(c.Context(), userID, models.VariantLoan)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"loans": loans})
}

// OfferLoan откликается на запрос: заимодавец предлагает свою вещь
func (s *LoanService) OfferLoan(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	loanID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID запроса"})
	}

	var requestData struct {
		ItemID string `json:"item_id"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}
	if requestData.ItemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Необходимо указать ID вещи"})
	}

	itemID, err := uuid.Parse(requestData.ItemID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи"})
	}

	req, err := s.engine.OfferLoan(c.Context(), loanID, userID, itemID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Предложение отправлено",
		"loan":    req,
	})
}

// AcceptLoan принимает отклик заимодавца
func (s *LoanService) AcceptLoan(c fiber.Ctx) error {
	return s.transition(c, s.engine.AcceptLoan, "Предложение принято")
}

// ConfirmLoan отмечает подтверждение передачи вещи одной из сторон
func (s *LoanService) ConfirmLoan(c fiber.Ctx) error {
	return s.transition(c, s.engine.ConfirmLoan, "Подтверждение сохранено")
}

// CancelLoan отменяет запрос на заем
func (s *LoanService) CancelLoan(c fiber.Ctx) error {
	return s.transition(c, s.engine.CancelLoan, "Запрос отменен")
}

// transition — общий каркас обработчиков смены статуса
func (s *LoanService) transition(c fiber.Ctx, op func(ctx context.Context, loanID, actorID uuid.UUID) (*models.ExchangeRequest, error), message string) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	loanID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID запроса"})
	}

	req, err := op(c.Context(), loanID, userID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"message": message,
		"loan":    req,
	})
}

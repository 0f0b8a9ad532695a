package donation

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

// DonationService представляет сервис для работы с дарениями
type DonationService struct {
	engine     *exchange.Engine
	store      *storage.ExchangeStore
	jwtService *utils.JWTService
}

// NewDonationService создает новый экземпляр DonationService
func NewDonationService(cfg *config.Config, engine *exchange.Engine, store *storage.ExchangeStore) *DonationService {
	return &DonationService{
		engine:     engine,
		store:      store,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// CreateDonation создает заявку на получение вещи в дар
func (s *DonationService) CreateDonation(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	var requestData struct {
		ItemID  string `json:"item_id"`
		Message string `json:"message"`
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

	req, err := s.engine.CreateDonation(c.Context(), userID, itemID, requestData.Message)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Заявка отправлена владельцу",
		"donation": req,
	})
}

// GetMyDonations возвращает заявки на дарение с участием пользователя
func (s *DonationService) GetMyDonations(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	donations, err := s.store.ListByUser(c.Context(), userID, models.VariantDonation)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"donations": donations})
}

// AcceptDonation принимает заявку на дарение
func (s *DonationService) AcceptDonation(c fiber.Ctx) error {
	return s.transition(c, s.engine.AcceptDonation, "Заявка принята")
}

// RejectDonation отклоняет заявку на дарение
func (s *DonationService) RejectDonation(c fiber.Ctx) error {
	return s.transition(c, s.engine.RejectDonation, "Заявка отклонена")
}

// ConfirmDonation подтверждает получение вещи просителем
func (s *DonationService) ConfirmDonation(c fiber.Ctx) error {
	return s.transition(c, s.engine.ConfirmDonation, "Получение подтверждено")
}

// transition — общий каркас обработчиков смены статуса
func (s *DonationService) transition(c fiber.Ctx, op func(ctx context.Context, donationID, actorID uuid.UUID) (*models.ExchangeRequest, error), message string) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	donationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID заявки"})
	}

	req, err := op(c.Context(), donationID, userID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  message,
		"donation": req,
	})
}

package donation

import (
	"github.com/gofiber/fiber/v3"

	"github.com/obmenka-app/obmenka-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API дарений
func (s *DonationService) SetupRoutes(app *fiber.App) {
	// Группа для API дарений
	api := app.Group("/api/donations")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания заявки на дарение
	api.Post("/", s.CreateDonation)

	// Маршрут для получения заявок пользователя
	api.Get("/", s.GetMyDonations)

	// Маршруты переходов жизненного цикла
	api.Post("/:id/accept", s.AcceptDonation)
	api.Post("/:id/reject", s.RejectDonation)
	api.Post("/:id/confirm-received", s.ConfirmDonation)
}

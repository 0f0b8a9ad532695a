package loan

import (
	"github.com/gofiber/fiber/v3"

	"github.com/obmenka-app/obmenka-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API займов
func (s *LoanService) SetupRoutes(app *fiber.App) {
	// Группа для API займов
	api := app.Group("/api/loans")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для публикации запроса на заем
	api.Post("/request", s.CreateLoan)

	// Маршрут для получения запросов пользователя
	api.Get("/", s.GetMyLoans)

	// Маршруты переходов жизненного цикла
	api.Post("/:id/offer", s.OfferLoan)
	api.Post("/:id/accept", s.AcceptLoan)
	api.Post("/:id/confirm", s.ConfirmLoan)
	api.Post("/:id/confirm-received", s.ConfirmLoan)
	api.Post("/:id/cancel", s.CancelLoan)
}

package trade

import (
	"github.com/gofiber/fiber/v3"

	"github.com/obmenka-app/obmenka-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API обменов
func (s *TradeService) SetupRoutes(app *fiber.App) {
	// Группа для API обменов
	api := app.Group("/api/trades")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания предложения обмена
	api.Post("/", s.CreateTrade)

	// Маршрут для получения списка предложений обмена
	api.Get("/", s.GetMyTrades)

	// Маршруты переходов жизненного цикла
	api.Post("/:id/accept", s.AcceptTrade)
	api.Post("/:id/reject", s.RejectTrade)
	api.Post("/:id/complete", s.CompleteTrade)
}

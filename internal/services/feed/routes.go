package feed

import (
	"github.com/gofiber/fiber/v3"

	"github.com/obmenka-app/obmenka-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API ленты
func (s *FeedService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для получения ленты
	api.Get("/feed", s.GetFeed)

	// Старый путь клиента, отдает ту же ленту
	api.Get("/products", s.GetFeed)
}

package item

import (
	"github.com/gofiber/fiber/v3"

	"github.com/obmenka-app/obmenka-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API вещей
func (s *ItemService) SetupRoutes(app *fiber.App) {
	// Группа для API вещей
	api := app.Group("/api/items")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для добавления вещи
	api.Post("/", s.CreateItem)

	// Маршрут для получения своих вещей
	api.Get("/my", s.GetMyItems)

	// Маршрут для получения вещи по ID
	api.Get("/:id", s.GetItem)

	// Маршрут для удаления вещи
	api.Delete("/:id", s.DeleteItem)
}

package post

import (
	"github.com/gofiber/fiber/v3"

	"github.com/obmenka-app/obmenka-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API постов
func (s *PostService) SetupRoutes(app *fiber.App) {
	// Группа для API постов
	api := app.Group("/api/posts")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для публикации поста
	api.Post("/", s.CreatePost)

	// Маршрут для отметки поста просмотренным
	api.Post("/:id/seen", s.MarkSeen)

	// Маршрут для удаления поста
	api.Delete("/:id", s.DeletePost)
}

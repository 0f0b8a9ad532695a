package cloudinary

import (
	"github.com/gofiber/fiber/v3"

	"github.com/obmenka-app/obmenka-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API загрузки изображений
func (s *CloudinaryService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Защищенные маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для получения параметров загрузки
	protected.Get("/upload/params", s.GenerateUploadParams)
}

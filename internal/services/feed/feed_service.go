package feed

import (
	"github.com/gofiber/fiber/v3"

	"github.com/obmenka-app/obmenka-api/internal/config"
	"github.com/obmenka-app/obmenka-api/internal/feed"
	"github.com/obmenka-app/obmenka-api/internal/services/respond"
	"github.com/obmenka-app/obmenka-api/internal/utils"
)

// FeedService представляет сервис для выдачи ленты
type FeedService struct {
	composer   *feed.Composer
	jwtService *utils.JWTService
}

// NewFeedService создает новый экземпляр FeedService
func NewFeedService(cfg *config.Config, composer *feed.Composer) *FeedService {
	return &FeedService{
		composer:   composer,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// GetFeed собирает и возвращает ленту пользователя.
// Лента перемешивается на каждый запрос, поэтому ответ запрещено кешировать.
func (s *FeedService) GetFeed(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	items, err := s.composer.Compose(c.Context(), userID)
	if err != nil {
		return respond.Error(c, err)
	}

	c.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Set("Pragma", "no-cache")
	c.Set("Expires", "0")

	return c.JSON(fiber.Map{
		"items": items,
		"count": len(items),
	})
}

package post

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/obmenka-app/obmenka-api/internal/config"
	"github.com/obmenka-app/obmenka-api/internal/models"
	"github.com/obmenka-app/obmenka-api/internal/services/respond"
	"github.com/obmenka-app/obmenka-api/internal/storage"
	"github.com/obmenka-app/obmenka-api/internal/utils"
)

// PostService представляет сервис для работы с постами
type PostService struct {
	posts      *storage.PostStore
	postTTL    time.Duration
	jwtService *utils.JWTService
}

// NewPostService создает новый экземпляр PostService
func NewPostService(cfg *config.Config, posts *storage.PostStore) *PostService {
	return &PostService{
		posts:      posts,
		postTTL:    cfg.FeedConfig.PostTTL,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// CreatePost создает новый пост. Время жизни поста ограничено,
// по истечении он удаляется при первом же чтении ленты.
func (s *PostService) CreatePost(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	var requestData struct {
		Text     string `json:"text"`
		ImageURL string `json:"image_url"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}
	requestData.Text = strings.TrimSpace(requestData.Text)
	if requestData.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Пост не может быть пустым"})
	}

	now := time.Now()
	post := &models.Post{
		ID:        uuid.New(),
		UserID:    userID,
		Text:      requestData.Text,
		ImageURL:  requestData.ImageURL,
		CreatedAt: now,
		ExpiresAt: now.Add(s.postTTL),
	}
	if err := s.posts.Create(c.Context(), post); err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Пост опубликован",
		"post":    post,
	})
}

// MarkSeen отмечает пост просмотренным пользователем
func (s *PostService) MarkSeen(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	postID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID поста"})
	}

	if err := s.posts.MarkSeen(c.Context(), postID, userID); err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"message": "Пост отмечен просмотренным"})
}

// DeletePost удаляет пост. Удалить пост может только его автор.
func (s *PostService) DeletePost(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	postID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID поста"})
	}

	ownerID, err := s.posts.GetOwner(c.Context(), postID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Пост не найден"})
		}
		return respond.Error(c, err)
	}
	if ownerID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Нельзя удалить чужой пост"})
	}

	if err := s.posts.Delete(c.Context(), postID); err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"message": "Пост удален"})
}

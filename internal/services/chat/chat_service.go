package chat

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/obmenka-app/obmenka-api/internal/config"
	"github.com/obmenka-app/obmenka-api/internal/models"
	"github.com/obmenka-app/obmenka-api/internal/services/respond"
	"github.com/obmenka-app/obmenka-api/internal/storage"
	"github.com/obmenka-app/obmenka-api/internal/utils"
	"github.com/obmenka-app/obmenka-api/internal/websocket"
)

// ChatService представляет сервис для работы с чатами
type ChatService struct {
	chats      *storage.ChatStore
	exchanges  *storage.ExchangeStore
	hub        *websocket.Manager
	jwtService *utils.JWTService
}

// NewChatService создает новый экземпляр ChatService
func NewChatService(cfg *config.Config, chats *storage.ChatStore, exchanges *storage.ExchangeStore, hub *websocket.Manager) *ChatService {
	return &ChatService{
		chats:      chats,
		exchanges:  exchanges,
		hub:        hub,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// GetChats возвращает список чатов пользователя
func (s *ChatService) GetChats(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	chats, err := s.chats.ListByUser(c.Context(), userID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"chats": chats})
}

// GetChatByRequest возвращает чат, открытый по заявке
func (s *ChatService) GetChatByRequest(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID заявки"})
	}

	chat, err := s.chats.GetByRequest(c.Context(), requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Чат не найден"})
		}
		return respond.Error(c, err)
	}
	if chat.SenderID != userID && chat.ReceiverID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому чату"})
	}

	return c.JSON(fiber.Map{"chat": chat})
}

// GetChatMessages возвращает сообщения чата
func (s *ChatService) GetChatMessages(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	chat, err := s.memberChat(c, userID)
	if err != nil {
		return respond.Error(c, err)
	}
	if chat == nil {
		return nil // ответ уже отправлен
	}

	// Пагинация: сообщения старше указанного
	var before *uuid.UUID
	if raw := c.Query("before"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат параметра before"})
		}
		before = &id
	}

	messages, err := s.chats.Messages(c.Context(), chat.ID, before, 50)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"messages": messages})
}

// SendMessage отправляет сообщение в чат. Переписка доступна только
// после принятия заявки, по которой открыт чат.
func (s *ChatService) SendMessage(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	chat, err := s.memberChat(c, userID)
	if err != nil {
		return respond.Error(c, err)
	}
	if chat == nil {
		return nil
	}

	var requestData struct {
		Text string `json:"text"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}
	requestData.Text = strings.TrimSpace(requestData.Text)
	if requestData.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Сообщение не может быть пустым"})
	}

	// Переписка открыта только по принятой заявке
	req, err := s.exchanges.Get(c.Context(), chat.RequestID)
	if err != nil {
		return respond.Error(c, err)
	}
	if !req.ChatAllowed() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Переписка недоступна, пока заявка не принята"})
	}

	message := &models.Message{
		ID:        uuid.New(),
		ChatID:    chat.ID,
		SenderID:  userID,
		Text:      requestData.Text,
		CreatedAt: time.Now(),
	}
	if err := s.chats.AppendMessage(c.Context(), message); err != nil {
		return respond.Error(c, err)
	}

	// Уведомляем собеседника через WebSocket
	receiverID := chat.SenderID
	if userID == chat.SenderID {
		receiverID = chat.ReceiverID
	}
	if payload, err := json.Marshal(message); err == nil {
		s.hub.SendToUser(receiverID.String(), websocket.Event{
			Type:      websocket.EventNewMessage,
			ChatID:    chat.ID.String(),
			UserID:    userID.String(),
			Timestamp: time.Now(),
			Payload:   payload,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Сообщение отправлено",
		"data":    message,
	})
}

// MarkRead отмечает сообщения чата прочитанными
func (s *ChatService) MarkRead(c fiber.Ctx) error {
	userID, err := respond.UserID(c)
	if err != nil {
		return respond.Error(c, err)
	}

	chat, err := s.memberChat(c, userID)
	if err != nil {
		return respond.Error(c, err)
	}
	if chat == nil {
		return nil
	}

	if err := s.chats.MarkRead(c.Context(), chat.ID, userID); err != nil {
		return respond.Error(c, err)
	}

	// Сообщаем собеседнику о прочтении
	otherID := chat.SenderID
	if userID == chat.SenderID {
		otherID = chat.ReceiverID
	}
	s.hub.SendToUser(otherID.String(), websocket.Event{
		Type:      websocket.EventMessageRead,
		ChatID:    chat.ID.String(),
		UserID:    userID.String(),
		Timestamp: time.Now(),
	})

	return c.JSON(fiber.Map{"message": "Сообщения отмечены прочитанными"})
}

// memberChat возвращает чат из параметра маршрута, если пользователь —
// его участник. При ошибке формата или доступа ответ отправляется сразу,
// и возвращается nil, nil.
func (s *ChatService) memberChat(c fiber.Ctx, userID uuid.UUID) (*models.Chat, error) {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		if err := c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"}); err != nil {
			log.Printf("Ошибка отправки ответа: %v", err)
		}
		return nil, nil
	}

	chat, err := s.chats.Get(c.Context(), chatID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if err := c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Чат не найден"}); err != nil {
				log.Printf("Ошибка отправки ответа: %v", err)
			}
			return nil, nil
		}
		return nil, err
	}
	if chat.SenderID != userID && chat.ReceiverID != userID {
		if err := c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому чату"}); err != nil {
			log.Printf("Ошибка отправки ответа: %v", err)
		}
		return nil, nil
	}
	return chat, nil
}

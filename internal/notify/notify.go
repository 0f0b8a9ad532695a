// Package notify доставляет уведомления о событиях жизненного цикла обменов.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/obmenka-app/obmenka-api/internal/models"
	"github.com/obmenka-app/obmenka-api/internal/storage"
	"github.com/obmenka-app/obmenka-api/internal/websocket"
)

// Sink сохраняет уведомление и пробует доставить его онлайн-клиентам.
// Доставка — fire-and-forget: ошибки здесь не должны ронять операцию,
// которая породила событие.
type Sink struct {
	store *storage.NotificationStore
	hub   *websocket.Manager
}

// NewSink создает новый экземпляр Sink
func NewSink(store *storage.NotificationStore, hub *websocket.Manager) *Sink {
	return &Sink{store: store, hub: hub}
}

// Emit сохраняет уведомление и отправляет его по WebSocket
func (s *Sink) Emit(ctx context.Context, n models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	if err := s.store.Insert(ctx, &n); err != nil {
		return fmt.Errorf("ошибка при сохранении уведомления: %w", err)
	}

	// Онлайн-доставка необязательна: оффлайн-пользователь увидит
	// уведомление при следующем запросе списка
	payload, err := json.Marshal(n)
	if err == nil {
		s.hub.SendToUser(n.ToUserID.String(), websocket.Event{
			Type:      websocket.EventNotification,
			Timestamp: n.CreatedAt,
			Payload:   payload,
		})
	}
	return nil
}

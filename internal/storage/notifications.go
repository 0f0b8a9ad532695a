package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obmenka-app/obmenka-api/internal/models"
)

// NotificationStore — хранилище уведомлений
type NotificationStore struct {
	pool *pgxpool.Pool
}

// NewNotificationStore создает новый экземпляр NotificationStore
func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

// Insert сохраняет уведомление
func (s *NotificationStore) Insert(ctx context.Context, n *models.Notification) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO notifications (id, to_user_id, from_user_id, kind, title, body, related_id, is_read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
    `, n.ID, n.ToUserID, n.FromUserID, n.Kind, n.Title, nullIfEmpty(n.Body), n.RelatedID, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении уведомления: %w", err)
	}
	return nil
}

// ListByUser возвращает уведомления пользователя, новые первыми
func (s *NotificationStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, to_user_id, from_user_id, kind, title, body, related_id, is_read, created_at
        FROM notifications
        WHERE to_user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе уведомлений: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var body *string
		err := rows.Scan(&n.ID, &n.ToUserID, &n.FromUserID, &n.Kind, &n.Title, &body, &n.RelatedID, &n.IsRead, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании уведомления: %w", err)
		}
		if body != nil {
			n.Body = *body
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead помечает уведомление прочитанным
func (s *NotificationStore) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
        UPDATE notifications SET is_read = true WHERE id = $1 AND to_user_id = $2
    `, id, userID)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении уведомления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obmenka-app/obmenka-api/internal/models"
)

// ChatStore — хранилище чатов и сообщений
type ChatStore struct {
	pool *pgxpool.Pool
}

// NewChatStore создает новый экземпляр ChatStore
func NewChatStore(pool *pgxpool.Pool) *ChatStore {
	return &ChatStore{pool: pool}
}

// CreateWithMessage создает чат вместе с первым сообщением в одной транзакции
func (s *ChatStore) CreateWithMessage(ctx context.Context, chat *models.Chat, message *models.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO chats (id, request_id, sender_id, receiver_id, created_at, updated_at, last_message_text, last_message_time, is_active)
        VALUES ($1, $2, $3, $4, $5, $5, $6, $5, true)
    `, chat.ID, chat.RequestID, chat.SenderID, chat.ReceiverID, chat.CreatedAt, message.Text)
	if err != nil {
		return fmt.Errorf("ошибка при создании чата: %w", err)
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO messages (id, chat_id, sender_id, text, is_read, created_at, updated_at)
        VALUES ($1, $2, $3, $4, false, $5, $5)
    `, message.ID, chat.ID, message.SenderID, message.Text, message.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка при создании сообщения: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}
	return nil
}

// Get возвращает чат по ID
func (s *ChatStore) Get(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	var lastText *string
	err := s.pool.QueryRow(ctx, `
        SELECT id, request_id, sender_id, receiver_id, created_at, updated_at,
               last_message_text, last_message_time, is_active
        FROM chats WHERE id = $1
    `, id).Scan(
		&chat.ID, &chat.RequestID, &chat.SenderID, &chat.ReceiverID,
		&chat.CreatedAt, &chat.UpdatedAt, &lastText, &chat.LastMessageTime, &chat.IsActive,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при запросе чата: %w", err)
	}
	if lastText != nil {
		chat.LastMessageText = *lastText
	}
	return &chat, nil
}

// GetByRequest возвращает чат, привязанный к заявке
func (s *ChatStore) GetByRequest(ctx context.Context, requestID uuid.UUID) (*models.Chat, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
        SELECT id FROM chats WHERE request_id = $1 LIMIT 1
    `, requestID).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при запросе чата заявки: %w", err)
	}
	return s.Get(ctx, id)
}

// ListByUser возвращает чаты пользователя с количеством непрочитанных
func (s *ChatStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT c.id, c.request_id, c.sender_id, c.receiver_id, c.created_at, c.updated_at,
               c.last_message_text, c.last_message_time, c.is_active,
               COUNT(m.id) FILTER (WHERE m.sender_id != $1 AND m.is_read = false) AS unread_count
        FROM chats c
        LEFT JOIN messages m ON c.id = m.chat_id
        WHERE c.sender_id = $1 OR c.receiver_id = $1
        GROUP BY c.id
        ORDER BY c.last_message_time DESC NULLS LAST, c.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе чатов: %w", err)
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var chat models.Chat
		var lastText *string
		err := rows.Scan(
			&chat.ID, &chat.RequestID, &chat.SenderID, &chat.ReceiverID,
			&chat.CreatedAt, &chat.UpdatedAt, &lastText, &chat.LastMessageTime,
			&chat.IsActive, &chat.UnreadCount,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании чата: %w", err)
		}
		if lastText != nil {
			chat.LastMessageText = *lastText
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// Messages возвращает сообщения чата, новые первыми
func (s *ChatStore) Messages(ctx context.Context, chatID uuid.UUID, before *uuid.UUID, limit int) ([]models.Message, error) {
	var rows pgx.Rows
	var err error
	if before != nil {
		rows, err = s.pool.Query(ctx, `
            SELECT id, chat_id, sender_id, text, is_read, created_at, updated_at
            FROM messages
            WHERE chat_id = $1 AND id < $2
            ORDER BY created_at DESC
            LIMIT $3
        `, chatID, *before, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
            SELECT id, chat_id, sender_id, text, is_read, created_at, updated_at
            FROM messages
            WHERE chat_id = $1
            ORDER BY created_at DESC
            LIMIT $2
        `, chatID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе сообщений: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Text, &msg.IsRead, &msg.CreatedAt, &msg.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании сообщения: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// AppendMessage добавляет сообщение и обновляет сводку чата в одной транзакции
func (s *ChatStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO messages (id, chat_id, sender_id, text, is_read, created_at, updated_at)
        VALUES ($1, $2, $3, $4, false, $5, $5)
    `, msg.ID, msg.ChatID, msg.SenderID, msg.Text, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка при создании сообщения: %w", err)
	}

	_, err = tx.Exec(ctx, `
        UPDATE chats
        SET last_message_text = $1, last_message_time = $2, updated_at = $2
        WHERE id = $3
    `, msg.Text, msg.CreatedAt, msg.ChatID)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении сводки чата: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}
	return nil
}

// MarkRead помечает прочитанными сообщения собеседника
func (s *ChatStore) MarkRead(ctx context.Context, chatID, readerID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
        UPDATE messages
        SET is_read = true
        WHERE chat_id = $1 AND sender_id != $2 AND is_read = false
    `, chatID, readerID)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении статуса прочтения: %w", err)
	}
	return nil
}

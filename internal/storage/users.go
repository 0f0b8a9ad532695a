package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obmenka-app/obmenka-api/internal/models"
)

// UserStore — хранилище пользователей и связей дружбы
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore создает новый экземпляр UserStore
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// CreateOrUpdateTelegramUser создает пользователя через Telegram или обновляет существующего
func (s *UserStore) CreateOrUpdateTelegramUser(ctx context.Context, telegramID int64, username, firstName, lastName, photoURL string) (*models.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Проверяем, существует ли пользователь Telegram
	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
        SELECT user_id FROM telegram_users WHERE telegram_id = $1
    `, telegramID).Scan(&userID)

	if err == pgx.ErrNoRows {
		// Создаем нового пользователя
		err = tx.QueryRow(ctx, `
            INSERT INTO users (username, first_name, last_name, avatar_url, last_login_at)
            VALUES ($1, $2, $3, $4, NOW())
            RETURNING id
        `, username, firstName, lastName, photoURL).Scan(&userID)
		if err != nil {
			return nil, fmt.Errorf("ошибка при создании пользователя: %w", err)
		}

		_, err = tx.Exec(ctx, `
            INSERT INTO telegram_users (user_id, telegram_id, username, first_name, last_name, photo_url)
            VALUES ($1, $2, $3, $4, $5, $6)
        `, userID, telegramID, username, firstName, lastName, photoURL)
		if err != nil {
			return nil, fmt.Errorf("ошибка при создании Telegram-пользователя: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("ошибка при поиске Telegram-пользователя: %w", err)
	} else {
		// Обновляем данные существующего пользователя
		_, err = tx.Exec(ctx, `
            UPDATE users
            SET username = $1, first_name = $2, last_name = $3, avatar_url = $4,
                last_login_at = NOW(), updated_at = NOW()
            WHERE id = $5
        `, username, firstName, lastName, photoURL, userID)
		if err != nil {
			return nil, fmt.Errorf("ошибка при обновлении пользователя: %w", err)
		}

		_, err = tx.Exec(ctx, `
            UPDATE telegram_users
            SET username = $1, first_name = $2, last_name = $3, photo_url = $4, updated_at = NOW()
            WHERE telegram_id = $5
        `, username, firstName, lastName, photoURL, telegramID)
		if err != nil {
			return nil, fmt.Errorf("ошибка при обновлении Telegram-пользователя: %w", err)
		}
	}

	user, err := getUserTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}
	return user, nil
}

func getUserTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.User, error) {
	var user models.User
	var username, firstName, lastName, avatarURL *string
	err := tx.QueryRow(ctx, `
        SELECT id, username, first_name, last_name, avatar_url, is_public, created_at, updated_at
        FROM users WHERE id = $1
    `, userID).Scan(
		&user.ID, &username, &firstName, &lastName, &avatarURL, &user.IsPublic,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе пользователя: %w", err)
	}
	fillUserStrings(&user, username, firstName, lastName, avatarURL)
	return &user, nil
}

// Get возвращает пользователя по ID
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	var username, firstName, lastName, avatarURL *string
	err := s.pool.QueryRow(ctx, `
        SELECT id, username, first_name, last_name, avatar_url, is_public, created_at, updated_at
        FROM users WHERE id = $1
    `, userID).Scan(
		&user.ID, &username, &firstName, &lastName, &avatarURL, &user.IsPublic,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при запросе пользователя: %w", err)
	}
	fillUserStrings(&user, username, firstName, lastName, avatarURL)
	return &user, nil
}

// FriendIDs возвращает идентификаторы друзей пользователя
func (s *UserStore) FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT friend_id FROM friendships WHERE user_id = $1
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе друзей: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании друга: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func fillUserStrings(user *models.User, username, firstName, lastName, avatarURL *string) {
	if username != nil {
		user.Username = *username
	}
	if firstName != nil {
		user.FirstName = *firstName
	}
	if lastName != nil {
		user.LastName = *lastName
	}
	if avatarURL != nil {
		user.AvatarURL = *avatarURL
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obmenka-app/obmenka-api/internal/models"
)

// ErrNotFound возвращается, когда запись не найдена
var ErrNotFound = errors.New("запись не найдена")

// ItemStore — хранилище вещей
type ItemStore struct {
	pool *pgxpool.Pool
}

// NewItemStore создает новый экземпляр ItemStore
func NewItemStore(pool *pgxpool.Pool) *ItemStore {
	return &ItemStore{pool: pool}
}

const itemColumns = `id, owner_id, title, description, exchange_type, status, image_url,
       exchanged_with_name, exchanged_item_title, exchanged_at, created_at, updated_at`

func scanItem(row pgx.Row) (*models.Item, error) {
	var item models.Item
	var description, imageURL, withName, itemTitle *string
	err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.Title,
		&description,
		&item.ExchangeType,
		&item.Status,
		&imageURL,
		&withName,
		&itemTitle,
		&item.ExchangedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description != nil {
		item.Description = *description
	}
	if imageURL != nil {
		item.ImageURL = *imageURL
	}
	if withName != nil {
		item.ExchangedWithName = *withName
	}
	if itemTitle != nil {
		item.ExchangedItemTitle = *itemTitle
	}
	return &item, nil
}

// Create сохраняет новую вещь
func (s *ItemStore) Create(ctx context.Context, item *models.Item) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO items (id, owner_id, title, description, exchange_type, status, image_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
    `, item.ID, item.OwnerID, item.Title, item.Description, item.ExchangeType, item.Status, item.ImageURL, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка при создании вещи: %w", err)
	}
	return nil
}

// Get возвращает вещь по ID
func (s *ItemStore) Get(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := scanItem(s.pool.QueryRow(ctx, `
        SELECT `+itemColumns+` FROM items WHERE id = $1
    `, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при запросе вещи: %w", err)
	}
	return item, nil
}

// ListByOwner возвращает вещи пользователя
func (s *ItemStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Item, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+itemColumns+` FROM items WHERE owner_id = $1 ORDER BY created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе вещей: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании вещи: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateStatus устанавливает статус вещи
func (s *ItemStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ItemStatus) error {
	tag, err := s.pool.Exec(ctx, `
        UPDATE items SET status = $1, updated_at = NOW() WHERE id = $2
    `, status, id)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении статуса вещи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatusIf условно переводит вещь из ожидаемого статуса в новый.
// Возвращает false, если вещь уже не в ожидаемом статусе.
func (s *ItemStore) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next models.ItemStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
        UPDATE items SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3
    `, next, id, expected)
	if err != nil {
		return false, fmt.Errorf("ошибка при условном обновлении статуса вещи: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetExchangeResult помечает вещь завершенной с аннотацией для ленты
func (s *ItemStore) SetExchangeResult(ctx context.Context, id uuid.UUID, status models.ItemStatus, withName, itemTitle string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
        UPDATE items
        SET status = $1, exchanged_with_name = $2, exchanged_item_title = $3, exchanged_at = $4, updated_at = NOW()
        WHERE id = $5
    `, status, withName, itemTitle, at, id)
	if err != nil {
		return fmt.Errorf("ошибка при завершении обмена вещи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет вещь
func (s *ItemStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка при удалении вещи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FeedCandidates возвращает кандидатов для ленты: вещи зрителя, друзей,
// публичных пользователей и вещи в исторических статусах. Владелец
// подгружается сразу — лента показывает имя и аватар.
func (s *ItemStore) FeedCandidates(ctx context.Context, viewerID uuid.UUID, friendIDs []uuid.UUID) ([]models.Item, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT i.id, i.owner_id, i.title, i.description, i.exchange_type, i.status, i.image_url,
               i.exchanged_with_name, i.exchanged_item_title, i.exchanged_at, i.created_at, i.updated_at,
               u.username, u.first_name, u.last_name, u.avatar_url, u.is_public
        FROM items i
        JOIN users u ON u.id = i.owner_id
        WHERE i.owner_id = $1
           OR i.owner_id = ANY($2)
           OR u.is_public = true
           OR i.status IN ('traded', 'donated', 'loaned', 'donation_accepted', 'loan_accepted')
        ORDER BY i.created_at DESC
    `, viewerID, friendIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе кандидатов ленты: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		var owner models.User
		var description, imageURL, withName, itemTitle *string
		var username, firstName, lastName, avatarURL *string
		err := rows.Scan(
			&item.ID, &item.OwnerID, &item.Title, &description, &item.ExchangeType, &item.Status, &imageURL,
			&withName, &itemTitle, &item.ExchangedAt, &item.CreatedAt, &item.UpdatedAt,
			&username, &firstName, &lastName, &avatarURL, &owner.IsPublic,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании кандидата ленты: %w", err)
		}
		if description != nil {
			item.Description = *description
		}
		if imageURL != nil {
			item.ImageURL = *imageURL
		}
		if withName != nil {
			item.ExchangedWithName = *withName
		}
		if itemTitle != nil {
			item.ExchangedItemTitle = *itemTitle
		}
		owner.ID = item.OwnerID
		if username != nil {
			owner.Username = *username
		}
		if firstName != nil {
			owner.FirstName = *firstName
		}
		if lastName != nil {
			owner.LastName = *lastName
		}
		if avatarURL != nil {
			owner.AvatarURL = *avatarURL
		}
		item.Owner = &owner
		items = append(items, item)
	}
	return items, rows.Err()
}

package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obmenka-app/obmenka-api/internal/models"
)

// PostStore — хранилище постов ленты
type PostStore struct {
	pool *pgxpool.Pool
}

// NewPostStore создает новый экземпляр PostStore
func NewPostStore(pool *pgxpool.Pool) *PostStore {
	return &PostStore{pool: pool}
}

// Create сохраняет новый пост
func (s *PostStore) Create(ctx context.Context, post *models.Post) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO posts (id, user_id, text, image_url, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, post.ID, post.UserID, post.Text, nullIfEmpty(post.ImageURL), post.CreatedAt, post.ExpiresAt)
	if err != nil {
		return fmt.Errorf("ошибка при создании поста: %w", err)
	}
	return nil
}

// ListByUsers возвращает посты указанных пользователей вместе с авторами.
// Просроченные посты не отфильтровываются: ленивое удаление — забота читателя.
func (s *PostStore) ListByUsers(ctx context.Context, userIDs []uuid.UUID) ([]models.Post, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT p.id, p.user_id, p.text, p.image_url, p.created_at, p.expires_at,
               u.username, u.first_name, u.last_name, u.avatar_url
        FROM posts p
        JOIN users u ON u.id = p.user_id
        WHERE p.user_id = ANY($1)
        ORDER BY p.created_at DESC
    `, userIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе постов: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		var author models.User
		var imageURL, username, firstName, lastName, avatarURL *string
		err := rows.Scan(
			&post.ID, &post.UserID, &post.Text, &imageURL, &post.CreatedAt, &post.ExpiresAt,
			&username, &firstName, &lastName, &avatarURL,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании поста: %w", err)
		}
		if imageURL != nil {
			post.ImageURL = *imageURL
		}
		author.ID = post.UserID
		if username != nil {
			author.Username = *username
		}
		if firstName != nil {
			author.FirstName = *firstName
		}
		if lastName != nil {
			author.LastName = *lastName
		}
		if avatarURL != nil {
			author.AvatarURL = *avatarURL
		}
		post.Author = &author
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// Delete удаляет пост. Идемпотентно: удаление уже удаленного поста не ошибка,
// два конкурирующих чтения ленты могут попытаться удалить один просроченный пост.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка при удалении поста: %w", err)
	}
	return nil
}

// SeenPostIDs возвращает множество постов, просмотренных пользователем
func (s *PostStore) SeenPostIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT post_id FROM post_views WHERE user_id = $1
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе просмотров: %w", err)
	}
	defer rows.Close()

	seen := make(map[uuid.UUID]bool)
	for rows.Next() {
		var postID uuid.UUID
		if err := rows.Scan(&postID); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании просмотра: %w", err)
		}
		seen[postID] = true
	}
	return seen, rows.Err()
}

// MarkSeen идемпотентно отмечает пост просмотренным
func (s *PostStore) MarkSeen(ctx context.Context, postID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO post_views (post_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (post_id, user_id) DO NOTHING
    `, postID, userID)
	if err != nil {
		return fmt.Errorf("ошибка при отметке просмотра: %w", err)
	}
	return nil
}

// GetOwner возвращает автора поста
func (s *PostStore) GetOwner(ctx context.Context, postID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT user_id FROM posts WHERE id = $1`, postID).Scan(&ownerID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("ошибка при запросе поста: %w", err)
	}
	return ownerID, nil
}

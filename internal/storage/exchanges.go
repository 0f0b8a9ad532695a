package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obmenka-app/obmenka-api/internal/models"
)

// ExchangeStore — хранилище заявок на обмен
type ExchangeStore struct {
	pool *pgxpool.Pool
}

// NewExchangeStore создает новый экземпляр ExchangeStore
func NewExchangeStore(pool *pgxpool.Pool) *ExchangeStore {
	return &ExchangeStore{pool: pool}
}

const requestColumns = `id, variant, status, from_user_id, to_user_id, from_item_id, to_item_id,
       item_name, message, confirmed_by_requester, confirmed_by_lender, created_at, updated_at`

func scanRequest(row pgx.Row) (*models.ExchangeRequest, error) {
	var req models.ExchangeRequest
	var itemName, message *string
	err := row.Scan(
		&req.ID,
		&req.Variant,
		&req.Status,
		&req.FromUserID,
		&req.ToUserID,
		&req.FromItemID,
		&req.ToItemID,
		&itemName,
		&message,
		&req.ConfirmedByRequester,
		&req.ConfirmedByLender,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if itemName != nil {
		req.ItemName = *itemName
	}
	if message != nil {
		req.Message = *message
	}
	return &req, nil
}

// Create сохраняет новую заявку
func (s *ExchangeStore) Create(ctx context.Context, req *models.ExchangeRequest) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO exchange_requests
            (id, variant, status, from_user_id, to_user_id, from_item_id, to_item_id,
             item_name, message, confirmed_by_requester, confirmed_by_lender, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
    `, req.ID, req.Variant, req.Status, req.FromUserID, req.ToUserID, req.FromItemID, req.ToItemID,
		nullIfEmpty(req.ItemName), nullIfEmpty(req.Message),
		req.ConfirmedByRequester, req.ConfirmedByLender, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка при создании заявки: %w", err)
	}
	return nil
}

// Get возвращает заявку по ID
func (s *ExchangeStore) Get(ctx context.Context, id uuid.UUID) (*models.ExchangeRequest, error) {
	req, err := scanRequest(s.pool.QueryRow(ctx, `
        SELECT `+requestColumns+` FROM exchange_requests WHERE id = $1
    `, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при запросе заявки: %w", err)
	}
	return req, nil
}

// UpdateStatusIf условно переводит заявку из ожидаемого статуса в новый.
// Две конкурирующие попытки принять одну заявку разрешаются здесь:
// выигрывает ровно одна.
func (s *ExchangeStore) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next models.RequestStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
        UPDATE exchange_requests SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3
    `, next, id, expected)
	if err != nil {
		return false, fmt.Errorf("ошибка при условном обновлении статуса заявки: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// BindLoanOfferIf привязывает кредитора и его вещь к pending-заявке на займ
func (s *ExchangeStore) BindLoanOfferIf(ctx context.Context, id, lenderID, itemID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
        UPDATE exchange_requests
        SET status = $1, to_user_id = $2, from_item_id = $3, updated_at = NOW()
        WHERE id = $4 AND variant = 'loan' AND status = $5
    `, models.StatusOffered, lenderID, itemID, id, models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("ошибка при привязке оффера к займу: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetLoanConfirmFlag идемпотентно выставляет флаг подтверждения одной стороны
// и возвращает актуальное состояние заявки
func (s *ExchangeStore) SetLoanConfirmFlag(ctx context.Context, id uuid.UUID, byRequester bool) (*models.ExchangeRequest, error) {
	column := "confirmed_by_lender"
	if byRequester {
		column = "confirmed_by_requester"
	}
	req, err := scanRequest(s.pool.QueryRow(ctx, `
        UPDATE exchange_requests
        SET `+column+` = true, updated_at = NOW()
        WHERE id = $1
        RETURNING `+requestColumns+`
    `, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при подтверждении займа: %w", err)
	}
	return req, nil
}

// CompleteTrade завершает обмен: переводит заявку accepted → completed и меняет
// владельцев обеих вещей в одной транзакции. Возвращает false, если заявка
// уже не в статусе accepted или одна из вещей успела сменить владельца либо
// получить терминальный статус в другом обмене.
func (s *ExchangeStore) CompleteTrade(ctx context.Context, trade *models.ExchangeRequest, fromItem, toItem *models.Item, fromName, toName string, at time.Time) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Условный перевод статуса: повторное завершение не проходит
	tag, err := tx.Exec(ctx, `
        UPDATE exchange_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4
    `, models.StatusCompleted, at, trade.ID, models.StatusAccepted)
	if err != nil {
		return false, fmt.Errorf("ошибка при завершении заявки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	// Вещь инициатора уходит получателю. Условие на владельца и статус
	// отсекает устаревшее завершение, если вещь уже ушла в другом обмене
	tag, err = tx.Exec(ctx, `
        UPDATE items
        SET owner_id = $1, status = $2, exchanged_with_name = $3, exchanged_item_title = $4, exchanged_at = $5, updated_at = $5
        WHERE id = $6 AND owner_id = $7 AND status NOT IN ('traded', 'donated', 'loaned')
    `, toItem.OwnerID, models.ItemTraded, toName, toItem.Title, at, fromItem.ID, fromItem.OwnerID)
	if err != nil {
		return false, fmt.Errorf("ошибка при передаче вещи инициатора: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	// Вещь получателя уходит инициатору
	tag, err = tx.Exec(ctx, `
        UPDATE items
        SET owner_id = $1, status = $2, exchanged_with_name = $3, exchanged_item_title = $4, exchanged_at = $5, updated_at = $5
        WHERE id = $6 AND owner_id = $7 AND status NOT IN ('traded', 'donated', 'loaned')
    `, fromItem.OwnerID, models.ItemTraded, fromName, fromItem.Title, at, toItem.ID, toItem.OwnerID)
	if err != nil {
		return false, fmt.Errorf("ошибка при передаче вещи получателя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}
	return true, nil
}

// HasPendingTrade проверяет, существует ли уже такое же ожидающее предложение обмена
func (s *ExchangeStore) HasPendingTrade(ctx context.Context, fromItemID, toItemID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
        SELECT EXISTS(
            SELECT 1 FROM exchange_requests
            WHERE variant = 'trade' AND from_item_id = $1 AND to_item_id = $2 AND status = 'pending'
        )
    `, fromItemID, toItemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке существующих предложений: %w", err)
	}
	return exists, nil
}

// CountPendingDonations возвращает количество ожидающих заявок на дарение вещи
func (s *ExchangeStore) CountPendingDonations(ctx context.Context, itemID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM exchange_requests
        WHERE variant = 'donation' AND to_item_id = $1 AND status = 'pending'
    `, itemID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка при подсчете заявок на дарение: %w", err)
	}
	return count, nil
}

// HasPendingDonationFrom проверяет, есть ли у пользователя ожидающая заявка на вещь
func (s *ExchangeStore) HasPendingDonationFrom(ctx context.Context, itemID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
        SELECT EXISTS(
            SELECT 1 FROM exchange_requests
            WHERE variant = 'donation' AND to_item_id = $1 AND from_user_id = $2 AND status = 'pending'
        )
    `, itemID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке заявки на дарение: %w", err)
	}
	return exists, nil
}

// HasAcceptedDonation проверяет, принята ли уже какая-то заявка на вещь
func (s *ExchangeStore) HasAcceptedDonation(ctx context.Context, itemID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
        SELECT EXISTS(
            SELECT 1 FROM exchange_requests
            WHERE variant = 'donation' AND to_item_id = $1 AND status = 'accepted'
        )
    `, itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке принятой заявки: %w", err)
	}
	return exists, nil
}

// HasActiveOfferForItem проверяет, предложена ли вещь в незавершенной заявке.
// Одна вещь может стоять на предлагающей стороне только одной живой заявки
func (s *ExchangeStore) HasActiveOfferForItem(ctx context.Context, itemID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
        SELECT EXISTS(
            SELECT 1 FROM exchange_requests
            WHERE from_item_id = $1
              AND status NOT IN ('rejected', 'confirmed', 'completed', 'cancelled')
        )
    `, itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке предложенной вещи: %w", err)
	}
	return exists, nil
}

// HasActiveRequestForItem проверяет, упоминается ли вещь в незавершенной заявке
func (s *ExchangeStore) HasActiveRequestForItem(ctx context.Context, itemID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
        SELECT EXISTS(
            SELECT 1 FROM exchange_requests
            WHERE (from_item_id = $1 OR to_item_id = $1)
              AND status NOT IN ('rejected', 'confirmed', 'completed', 'cancelled')
        )
    `, itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке активных заявок: %w", err)
	}
	return exists, nil
}

// ListByUser возвращает заявки пользователя указанной разновидности
func (s *ExchangeStore) ListByUser(ctx context.Context, userID uuid.UUID, variant models.Variant) ([]models.ExchangeRequest, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+requestColumns+` FROM exchange_requests
        WHERE variant = $1 AND (from_user_id = $2 OR to_user_id = $2)
        ORDER BY created_at DESC
    `, variant, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе заявок: %w", err)
	}
	defer rows.Close()

	var requests []models.ExchangeRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании заявки: %w", err)
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// PendingLoanCallouts возвращает открытые заявки на займ без кредитора
func (s *ExchangeStore) PendingLoanCallouts(ctx context.Context) ([]models.ExchangeRequest, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+requestColumns+` FROM exchange_requests
        WHERE variant = 'loan' AND status = 'pending' AND to_user_id IS NULL
        ORDER BY created_at DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе заявок на займ: %w", err)
	}
	defer rows.Close()

	var requests []models.ExchangeRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании заявки на займ: %w", err)
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// AcceptedTradeItemIDs возвращает вещи, задействованные в принятых,
// но еще не завершенных обменах
func (s *ExchangeStore) AcceptedTradeItemIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT from_item_id, to_item_id FROM exchange_requests
        WHERE variant = 'trade' AND status = 'accepted'
    `)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе занятых вещей: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var fromItemID, toItemID *uuid.UUID
		if err := rows.Scan(&fromItemID, &toItemID); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании занятых вещей: %w", err)
		}
		if fromItemID != nil {
			ids = append(ids, *fromItemID)
		}
		if toItemID != nil {
			ids = append(ids, *toItemID)
		}
	}
	return ids, rows.Err()
}

// nullIfEmpty возвращает nil для пустой строки, чтобы в БД попал NULL
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

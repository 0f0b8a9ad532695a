package exchange

import (
	"context"

	"github.com/google/uuid"

	"github.com/obmenka-app/obmenka-api/internal/apperr"
	"github.com/obmenka-app/obmenka-api/internal/models"
)

// CreateTradeInput — данные нового предложения обмена
type CreateTradeInput struct {
	FromItemID uuid.UUID
	ToItemID   uuid.UUID
	Message    string
}

// CreateTrade создает предложение обмена вещи инициатора на вещь получателя
func (e *Engine) CreateTrade(ctx context.Context, fromUserID uuid.UUID, in CreateTradeInput) (*models.ExchangeRequest, error) {
	// Вещь инициатора должна существовать и принадлежать ему
	fromItem, err := e.getItem(ctx, in.FromItemID)
	if err != nil {
		return nil, err
	}
	if fromItem.OwnerID != fromUserID {
		return nil, apperr.Forbidden("Нельзя предложить чужую вещь для обмена")
	}
	if fromItem.Status != models.ItemAvailable {
		return nil, apperr.Conflict("Вещь недоступна для обмена")
	}

	// Вещь получателя должна существовать и принадлежать другому пользователю
	toItem, err := e.getItem(ctx, in.ToItemID)
	if err != nil {
		return nil, err
	}
	if toItem.OwnerID == fromUserID {
		return nil, apperr.InvalidArgument("Нельзя предложить обмен самому себе")
	}
	if toItem.Status != models.ItemAvailable {
		return nil, apperr.Conflict("Вещь получателя недоступна для обмена")
	}

	// Не допускаем дубликат ожидающего предложения с теми же вещами
	exists, err := e.requests.HasPendingTrade(ctx, in.FromItemID, in.ToItemID)
	if err != nil {
		return nil, apperr.Internal("Ошибка проверки существующих обменов", err)
	}
	if exists {
		return nil, apperr.Conflict("Такое предложение обмена уже существует")
	}

	// Одна вещь может быть предложена только в одной незавершенной заявке
	busy, err := e.requests.HasActiveOfferForItem(ctx, in.FromItemID)
	if err != nil {
		return nil, apperr.Internal("Ошибка проверки существующих обменов", err)
	}
	if busy {
		return nil, apperr.Conflict("Эта вещь уже участвует в незавершенном обмене")
	}

	toUserID := toItem.OwnerID
	req := &models.ExchangeRequest{
		ID:         uuid.New(),
		Variant:    models.VariantTrade,
		Status:     models.StatusPending,
		FromUserID: fromUserID,
		ToUserID:   &toUserID,
		FromItemID: &fromItem.ID,
		ToItemID:   &toItem.ID,
		Message:    in.Message,
		CreatedAt:  e.now(),
	}
	if err := e.requests.Create(ctx, req); err != nil {
		return nil, apperr.Internal("Ошибка сохранения предложения обмена", err)
	}

	e.notify(ctx, models.Notification{
		ToUserID:   toUserID,
		FromUserID: &fromUserID,
		Kind:       models.NotifyTradeRequested,
		Title:      "Новое предложение обмена",
		Body:       e.displayName(ctx, fromUserID) + " предлагает обменять «" + fromItem.Title + "» на вашу «" + toItem.Title + "»",
		RelatedID:  &req.ID,
	})
	return req, nil
}

// AcceptTrade принимает предложение обмена. Принять может любая из сторон —
// поведение исходной системы сохранено намеренно.
func (e *Engine) AcceptTrade(ctx context.Context, tradeID, actorID uuid.UUID) (*models.ExchangeRequest, error) {
	req, err := e.getRequest(ctx, tradeID, models.VariantTrade)
	if err != nil {
		return nil, err
	}
	if !req.IsParty(actorID) {
		return nil, apperr.Forbidden("Вы не участвуете в этом обмене")
	}

	if err := e.transition(ctx, req.ID, models.StatusPending, models.StatusAccepted); err != nil {
		return nil, err
	}
	req.Status = models.StatusAccepted

	// Открываем переписку сторон
	e.openChat(ctx, req, actorID, "Обмен принят. Вы можете обсудить детали здесь.")

	other := req.FromUserID
	if actorID == req.FromUserID {
		other = *req.ToUserID
	}
	e.notify(ctx, models.Notification{
		ToUserID:   other,
		FromUserID: &actorID,
		Kind:       models.NotifyTradeAccepted,
		Title:      "Предложение обмена принято",
		Body:       e.displayName(ctx, actorID) + " принял(а) предложение обмена",
		RelatedID:  &req.ID,
	})
	return req, nil
}

// RejectTrade отклоняет ожидающее предложение обмена
func (e *Engine) RejectTrade(ctx context.Context, tradeID, actorID uuid.UUID) (*models.ExchangeRequest, error) {
	req, err := e.getRequest(ctx, tradeID, models.VariantTrade)
	if err != nil {
		return nil, err
	}
	if !req.IsParty(actorID) {
		return nil, apperr.Forbidden("Вы не участвуете в этом обмене")
	}

	if err := e.transition(ctx, req.ID, models.StatusPending, models.StatusRejected); err != nil {
		return nil, err
	}
	req.Status = models.StatusRejected
	return req, nil
}

// CompleteTrade завершает принятый обмен: вещи меняются владельцами,
// обе получают терминальный статус traded с аннотацией для ленты.
// Смена статуса заявки и обе записи вещей применяются в одной транзакции
// хранилища; повторное завершение отклоняется как Conflict.
func (e *Engine) CompleteTrade(ctx context.Context, tradeID, actorID uuid.UUID) (*models.ExchangeRequest, error) {
	req, err := e.getRequest(ctx, tradeID, models.VariantTrade)
	if err != nil {
		return nil, err
	}
	if !req.IsParty(actorID) {
		return nil, apperr.Forbidden("Вы не участвуете в этом обмене")
	}
	if req.Status != models.StatusAccepted {
		return nil, apperr.Conflict("Завершить можно только принятый обмен")
	}

	fromItem, err := e.getItem(ctx, *req.FromItemID)
	if err != nil {
		return nil, err
	}
	toItem, err := e.getItem(ctx, *req.ToItemID)
	if err != nil {
		return nil, err
	}

	fromName := e.displayName(ctx, req.FromUserID)
	toName := e.displayName(ctx, *req.ToUserID)

	ok, err := e.requests.CompleteTrade(ctx, req, fromItem, toItem, fromName, toName, e.now())
	if err != nil {
		return nil, apperr.Internal("Ошибка завершения обмена", err)
	}
	if !ok {
		return nil, apperr.Conflict("Обмен уже завершен")
	}
	req.Status = models.StatusCompleted

	other := req.FromUserID
	if actorID == req.FromUserID {
		other = *req.ToUserID
	}
	e.notify(ctx, models.Notification{
		ToUserID:   other,
		FromUserID: &actorID,
		Kind:       models.NotifyTradeCompleted,
		Title:      "Обмен завершен",
		Body:       "«" + fromItem.Title + "» и «" + toItem.Title + "» поменяли владельцев",
		RelatedID:  &req.ID,
	})
	return req, nil
}

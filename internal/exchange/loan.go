package exchange

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/obmenka-app/obmenka-api/internal/apperr"
	"github.com/obmenka-app/obmenka-api/internal/models"
)

// CreateLoan создает открытый запрос на заем: проситель называет нужную вещь
// текстом, конкретная вещь и заимодавец появятся позже, с оффером
func (e *Engine) CreateLoan(ctx context.Context, requesterID uuid.UUID, itemName, message string) (*models.ExchangeRequest, error) {
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return nil, apperr.InvalidArgument("Укажите, какая вещь вам нужна")
	}

	req := &models.ExchangeRequest{
		ID:         uuid.New(),
		Variant:    models.VariantLoan,
		Status:     models.StatusPending,
		FromUserID: requesterID,
		ItemName:   itemName,
		Message:    message,
		CreatedAt:  e.now(),
	}
	if err := e.requests.Create(ctx, req); err != nil {
		return nil, apperr.Internal("Ошибка сохранения запроса на заем", err)
	}
	return req, nil
}

// OfferLoan откликается на открытый запрос: заимодавец предлагает свою вещь.
// Привязка оффера условная, из конкурирующих откликов выигрывает один.
func (e *Engine) OfferLoan(ctx context.Context, loanID, lenderID, itemID uuid.UUID) (*models.ExchangeRequest, error) {
	req, err := e.getRequest(ctx, loanID, models.VariantLoan)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusPending {
		return nil, apperr.Conflict("На этот запрос уже откликнулись")
	}
	if req.FromUserID == lenderID {
		return nil, apperr.InvalidArgument("Нельзя откликнуться на собственный запрос")
	}

	item, err := e.getItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != lenderID {
		return nil, apperr.Forbidden("Нельзя предложить чужую вещь")
	}
	if item.Status != models.ItemAvailable {
		return nil, apperr.Conflict("Вещь уже недоступна")
	}

	// Одна вещь может быть предложена только в одной незавершенной заявке
	busy, err := e.requests.HasActiveOfferForItem(ctx, item.ID)
	if err != nil {
		return nil, apperr.Internal("Ошибка проверки существующих откликов", err)
	}
	if busy {
		return nil, apperr.Conflict("Эта вещь уже участвует в незавершенном обмене")
	}

	ok, err := e.requests.BindLoanOfferIf(ctx, req.ID, lenderID, item.ID)
	if err != nil {
		return nil, apperr.Internal("Ошибка привязки отклика", err)
	}
	if !ok {
		return nil, apperr.Conflict("На этот запрос уже откликнулись")
	}
	req.Status = models.StatusOffered
	req.ToUserID = &lenderID
	req.FromItemID = &item.ID

	e.notify(ctx, models.Notification{
		ToUserID:   req.FromUserID,
		FromUserID: &lenderID,
		Kind:       models.NotifyLoanOffered,
		Title:      "Предложение по вашему запросу",
		Body:       e.displayName(ctx, lenderID) + " предлагает вам «" + item.Title + "»",
		RelatedID:  &req.ID,
	})
	return req, nil
}

// AcceptLoan принимает отклик заимодавца. Принять может только проситель.
func (e *Engine) AcceptLoan(ctx context.Context, loanID, actorID uuid.UUID) (*models.ExchangeRequest, error) {
	req, err := e.getRequest(ctx, loanID, models.VariantLoan)
	if err != nil {
		return nil, err
	}
	if req.FromUserID != actorID {
		return nil, apperr.Forbidden("Принять отклик может только автор запроса")
	}
	if req.ToUserID == nil || req.FromItemID == nil {
		return nil, apperr.Conflict("На этот запрос еще не откликнулись")
	}

	if err := e.transition(ctx, req.ID, models.StatusOffered, models.StatusAccepted); err != nil {
		return nil, err
	}
	req.Status = models.StatusAccepted

	// Вещь резервируется под передачу
	if err := e.items.UpdateStatus(ctx, *req.FromItemID, models.ItemLoanAccepted); err != nil {
		return nil, apperr.Internal("Ошибка резервирования вещи", err)
	}

	// Открываем переписку от имени просителя
	e.openChat(ctx, req, actorID, "Предложение принято. Договоритесь о передаче вещи здесь.")

	e.notify(ctx, models.Notification{
		ToUserID:   *req.ToUserID,
		FromUserID: &actorID,
		Kind:       models.NotifyLoanAccepted,
		Title:      "Ваше предложение принято",
		Body:       e.displayName(ctx, actorID) + " принял(а) ваше предложение",
		RelatedID:  &req.ID,
	})
	return req, nil
}

// ConfirmLoan отмечает подтверждение передачи одной из сторон. Заем считается
// состоявшимся, когда подтвердили обе стороны; повторное подтверждение той же
// стороны безвредно.
func (e *Engine) ConfirmLoan(ctx context.Context, loanID, actorID uuid.UUID) (*models.ExchangeRequest, error) {
	req, err := e.getRequest(ctx, loanID, models.VariantLoan)
	if err != nil {
		return nil, err
	}
	if !req.IsParty(actorID) {
		return nil, apperr.Forbidden("Вы не участвуете в этом займе")
	}
	switch req.Status {
	case models.StatusPending, models.StatusOffered:
		return nil, apperr.Conflict("Заем еще не принят")
	case models.StatusAccepted:
	default:
		if req.Status == models.StatusConfirmed {
			return req, nil
		}
		return nil, apperr.Conflict("Заявка уже не в ожидаемом статусе")
	}

	byRequester := actorID == req.FromUserID
	req, err = e.requests.SetLoanConfirmFlag(ctx, req.ID, byRequester)
	if err != nil {
		return nil, apperr.Internal("Ошибка сохранения подтверждения", err)
	}

	if !req.ConfirmedByRequester || !req.ConfirmedByLender {
		return req, nil
	}

	// Обе стороны подтвердили: завершаем заем. Проигравший из двух
	// одновременных последних подтверждений увидит уже завершенную заявку.
	if err := e.transition(ctx, req.ID, models.StatusAccepted, models.StatusConfirmed); err != nil {
		if apperr.IsConflict(err) {
			return e.getRequest(ctx, req.ID, models.VariantLoan)
		}
		return nil, err
	}
	req.Status = models.StatusConfirmed

	requesterName := e.displayName(ctx, req.FromUserID)
	if err := e.items.SetExchangeResult(ctx, *req.FromItemID, models.ItemLoaned, requesterName, "", e.now()); err != nil {
		return nil, apperr.Internal("Ошибка обновления вещи", err)
	}

	lenderID := *req.ToUserID
	e.notify(ctx, models.Notification{
		ToUserID:   req.FromUserID,
		FromUserID: &lenderID,
		Kind:       models.NotifyLoanConfirmed,
		Title:      "Заем состоялся",
		Body:       "Обе стороны подтвердили передачу вещи",
		RelatedID:  &req.ID,
	})
	e.notify(ctx, models.Notification{
		ToUserID:   lenderID,
		FromUserID: &req.FromUserID,
		Kind:       models.NotifyLoanConfirmed,
		Title:      "Заем состоялся",
		Body:       "Обе стороны подтвердили передачу вещи",
		RelatedID:  &req.ID,
	})
	return req, nil
}

// CancelLoan отменяет запрос на заем. Отменить может только автор запроса
// и только до завершения; зарезервированная вещь возвращается в available.
func (e *Engine) CancelLoan(ctx context.Context, loanID, actorID uuid.UUID) (*models.ExchangeRequest, error) {
	req, err := e.getRequest(ctx, loanID, models.VariantLoan)
	if err != nil {
		return nil, err
	}
	if req.FromUserID != actorID {
		return nil, apperr.Forbidden("Отменить запрос может только его автор")
	}
	if req.Status.Terminal() {
		return nil, apperr.Conflict("Запрос уже завершен")
	}

	wasAccepted := req.Status == models.StatusAccepted
	if err := e.transition(ctx, req.ID, req.Status, models.StatusCancelled); err != nil {
		return nil, err
	}
	req.Status = models.StatusCancelled

	// Снимаем резерв с вещи заимодавца
	if wasAccepted && req.FromItemID != nil {
		if _, err := e.items.UpdateStatusIf(ctx, *req.FromItemID, models.ItemLoanAccepted, models.ItemAvailable); err != nil {
			return nil, apperr.Internal("Ошибка снятия резерва с вещи", err)
		}
	}
	return req, nil
}

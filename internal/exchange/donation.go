package exchange

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/obmenka-app/obmenka-api/internal/apperr"
	"github.com/obmenka-app/obmenka-api/internal/models"
)

// CreateDonation создает заявку на получение вещи в дар
func (e *Engine) CreateDonation(ctx context.Context, requesterID, itemID uuid.UUID, message string) (*models.ExchangeRequest, error) {
	item, err := e.getItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.ExchangeType != models.ExchangeTypeDonation {
		return nil, apperr.InvalidArgument("Эта вещь не отдается в дар")
	}
	if item.OwnerID == requesterID {
		return nil, apperr.InvalidArgument("Нельзя просить в дар свою вещь")
	}
	if item.Status != models.ItemAvailable {
		return nil, apperr.Conflict("Вещь уже недоступна")
	}

	// Повторная заявка того же просителя не допускается
	dup, err := e.requests.HasPendingDonationFrom(ctx, itemID, requesterID)
	if err != nil {
		return nil, apperr.Internal("Ошибка проверки существующих заявок", err)
	}
	if dup {
		return nil, apperr.Conflict("Вы уже оставили заявку на эту вещь")
	}

	// Если владелец уже кого-то выбрал, новые заявки не принимаются
	accepted, err := e.requests.HasAcceptedDonation(ctx, itemID)
	if err != nil {
		return nil, apperr.Internal("Ошибка проверки принятых заявок", err)
	}
	if accepted {
		return nil, apperr.Conflict("Владелец уже выбрал получателя")
	}

	// Лимит одновременных заявок на одну вещь
	count, err := e.requests.CountPendingDonations(ctx, itemID)
	if err != nil {
		return nil, apperr.Internal("Ошибка подсчета заявок", err)
	}
	if count >= e.donationLimit {
		return nil, apperr.Conflict("На эту вещь уже слишком много заявок")
	}

	ownerID := item.OwnerID
	req := &models.ExchangeRequest{
		ID:         uuid.New(),
		Variant:    models.VariantDonation,
		Status:     models.StatusPending,
		FromUserID: requesterID,
		ToUserID:   &ownerID,
		ToItemID:   &item.ID,
		Message:    message,
		CreatedAt:  e.now(),
	}
	if err := e.requests.Create(ctx, req); err != nil {
		return nil, apperr.Internal("Ошибка сохранения заявки", err)
	}

	e.notify(ctx, models.Notification{
		ToUserID:   ownerID,
		FromUserID: &requesterID,
		Kind:       models.NotifyDonationRequested,
		Title:      "Новая заявка на вещь",
		Body:       e.displayName(ctx, requesterID) + " хочет получить «" + item.Title + "» в дар",
		RelatedID:  &req.ID,
	})
	return req, nil
}

// AcceptDonation принимает заявку на дарение. Принять может только владелец
// вещи; из конкурирующих принятий выигрывает ровно одно.
func (e *Engine) AcceptDonation(ctx context.Context, donationID, actorID uuid.UUID) (*models.ExchangeRequest, error) {
	req, err := e.getRequest(ctx, donationID, models.VariantDonation)
	if err != nil {
		return nil, err
	}
	if req.ToUserID == nil || *req.ToUserID != actorID {
		return nil, apperr.Forbidden("Принять заявку может только владелец вещи")
	}

	// Сначала резервируем вещь условным обновлением: из конкурирующих
	// принятий разных заявок на одну вещь резервирование пройдет у одного
	reserved, err := e.items.UpdateStatusIf(ctx, *req.ToItemID, models.ItemAvailable, models.ItemDonationAccepted)
	if err != nil {
		return nil, apperr.Internal("Ошибка резервирования вещи", err)
	}
	if !reserved {
		return nil, apperr.Conflict("Вещь уже зарезервирована за другим получателем")
	}

	if err := e.transition(ctx, req.ID, models.StatusPending, models.StatusAccepted); err != nil {
		// Заявка уже не ожидает: снимаем резерв
		if _, rbErr := e.items.UpdateStatusIf(ctx, *req.ToItemID, models.ItemDonationAccepted, models.ItemAvailable); rbErr != nil {
			log.Printf("Ошибка снятия резерва с вещи %s: %v", *req.ToItemID, rbErr)
		}
		return nil, err
	}
	req.Status = models.StatusAccepted

	// Открываем переписку от имени владельца
	e.openChat(ctx, req, actorID, "Заявка принята. Договоритесь о передаче вещи здесь.")

	e.notify(ctx, models.Notification{
		ToUserID:   req.FromUserID,
		FromUserID: &actorID,
		Kind:       models.NotifyDonationAccepted,
		Title:      "Ваша заявка принята",
		Body:       e.displayName(ctx, actorID) + " готов(а) передать вам вещь",
		RelatedID:  &req.ID,
	})
	return req, nil
}

// RejectDonation отклоняет ожидающую заявку на дарение
func (e *Engine) RejectDonation(ctx context.Context, donationID, actorID uuid.UUID) (*models.ExchangeRequest, error) {
	req, err := e.getRequest(ctx, donationID, models.VariantDonation)
	if err != nil {
		return nil, err
	}
	if req.ToUserID == nil || *req.ToUserID != actorID {
		return nil, apperr.Forbidden("Отклонить заявку может только владелец вещи")
	}

	if err := e.transition(ctx, req.ID, models.StatusPending, models.StatusRejected); err != nil {
		return nil, err
	}
	req.Status = models.StatusRejected
	return req, nil
}

// ConfirmDonation подтверждает получение вещи. Подтвердить может только
// проситель и только из статуса accepted.
func (e *Engine) ConfirmDonation(ctx context.Context, donationID, actorID uuid.UUID) (*models.ExchangeRequest, error) {
	req, err := e.getRequest(ctx, donationID, models.VariantDonation)
	if err != nil {
		return nil, err
	}
	if req.FromUserID != actorID {
		return nil, apperr.Forbidden("Подтвердить получение может только проситель")
	}

	if err := e.transition(ctx, req.ID, models.StatusAccepted, models.StatusConfirmed); err != nil {
		return nil, err
	}
	req.Status = models.StatusConfirmed

	// Вещь подарена
	requesterName := e.displayName(ctx, req.FromUserID)
	if err := e.items.SetExchangeResult(ctx, *req.ToItemID, models.ItemDonated, requesterName, "", e.now()); err != nil {
		return nil, apperr.Internal("Ошибка обновления вещи", err)
	}

	ownerID := *req.ToUserID
	e.notify(ctx, models.Notification{
		ToUserID:   ownerID,
		FromUserID: &actorID,
		Kind:       models.NotifyDonationConfirmed,
		Title:      "Вещь передана",
		Body:       requesterName + " подтвердил(а) получение вещи",
		RelatedID:  &req.ID,
	})
	e.notify(ctx, models.Notification{
		ToUserID:   req.FromUserID,
		FromUserID: &ownerID,
		Kind:       models.NotifyDonationConfirmed,
		Title:      "Дарение завершено",
		Body:       "Вы подтвердили получение вещи",
		RelatedID:  &req.ID,
	})
	return req, nil
}

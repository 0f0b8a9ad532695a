// Package exchange реализует жизненный цикл заявок на обмен: трех параллельных
// конечных автоматов для обмена, дарения и займа. Все проверки выполняются до
// первой записи; смена статуса — всегда условное обновление, так что из двух
// конкурирующих переходов выигрывает ровно один.
package exchange

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/obmenka-app/obmenka-api/internal/apperr"
	"github.com/obmenka-app/obmenka-api/internal/models"
	"github.com/obmenka-app/obmenka-api/internal/storage"
)

// ItemStore — операции над вещами, нужные движку
type ItemStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Item, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ItemStatus) error
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next models.ItemStatus) (bool, error)
	SetExchangeResult(ctx context.Context, id uuid.UUID, status models.ItemStatus, withName, itemTitle string, at time.Time) error
}

// RequestStore — операции над заявками, нужные движку
type RequestStore interface {
	Create(ctx context.Context, req *models.ExchangeRequest) error
	Get(ctx context.Context, id uuid.UUID) (*models.ExchangeRequest, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next models.RequestStatus) (bool, error)
	BindLoanOfferIf(ctx context.Context, id, lenderID, itemID uuid.UUID) (bool, error)
	SetLoanConfirmFlag(ctx context.Context, id uuid.UUID, byRequester bool) (*models.ExchangeRequest, error)
	CompleteTrade(ctx context.Context, trade *models.ExchangeRequest, fromItem, toItem *models.Item, fromName, toName string, at time.Time) (bool, error)
	HasPendingTrade(ctx context.Context, fromItemID, toItemID uuid.UUID) (bool, error)
	HasActiveOfferForItem(ctx context.Context, itemID uuid.UUID) (bool, error)
	CountPendingDonations(ctx context.Context, itemID uuid.UUID) (int, error)
	HasPendingDonationFrom(ctx context.Context, itemID, userID uuid.UUID) (bool, error)
	HasAcceptedDonation(ctx context.Context, itemID uuid.UUID) (bool, error)
}

// ChatStore — создание чата при принятии заявки
type ChatStore interface {
	CreateWithMessage(ctx context.Context, chat *models.Chat, message *models.Message) error
}

// UserStore — чтение пользователей для имен в уведомлениях и аннотациях
type UserStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier доставляет уведомления о событиях жизненного цикла.
// Ошибки доставки не роняют породившую их операцию.
type Notifier interface {
	Emit(ctx context.Context, n models.Notification) error
}

// Engine — движок жизненного цикла обменов
type Engine struct {
	items    ItemStore
	requests RequestStore
	chats    ChatStore
	users    UserStore
	notifier Notifier

	donationLimit int
	now           func() time.Time
}

// Config — зависимости и настройки движка
type Config struct {
	Items         ItemStore
	Requests      RequestStore
	Chats         ChatStore
	Users         UserStore
	Notifier      Notifier
	DonationLimit int
	Now           func() time.Time
}

// NewEngine создает новый экземпляр Engine
func NewEngine(cfg Config) *Engine {
	if cfg.DonationLimit <= 0 {
		cfg.DonationLimit = 10
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		items:         cfg.Items,
		requests:      cfg.Requests,
		chats:         cfg.Chats,
		users:         cfg.Users,
		notifier:      cfg.Notifier,
		donationLimit: cfg.DonationLimit,
		now:           cfg.Now,
	}
}

// getRequest возвращает заявку нужной разновидности
func (e *Engine) getRequest(ctx context.Context, id uuid.UUID, variant models.Variant) (*models.ExchangeRequest, error) {
	req, err := e.requests.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("Заявка не найдена")
		}
		return nil, apperr.Internal("Ошибка получения заявки", err)
	}
	if req.Variant != variant {
		return nil, apperr.NotFound("Заявка не найдена")
	}
	return req, nil
}

// getItem возвращает вещь или NotFound
func (e *Engine) getItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := e.items.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("Вещь не найдена")
		}
		return nil, apperr.Internal("Ошибка получения вещи", err)
	}
	return item, nil
}

// transition выполняет условный переход статуса заявки
func (e *Engine) transition(ctx context.Context, id uuid.UUID, from, to models.RequestStatus) error {
	ok, err := e.requests.UpdateStatusIf(ctx, id, from, to)
	if err != nil {
		return apperr.Internal("Ошибка обновления статуса заявки", err)
	}
	if !ok {
		return apperr.Conflict("Заявка уже не в ожидаемом статусе")
	}
	return nil
}

// displayName возвращает имя пользователя для уведомлений и аннотаций
func (e *Engine) displayName(ctx context.Context, id uuid.UUID) string {
	user, err := e.users.Get(ctx, id)
	if err != nil {
		log.Printf("Ошибка получения пользователя %s: %v", id, err)
		return "Пользователь"
	}
	return user.DisplayName()
}

// notify отправляет уведомление, ошибки доставки только логируются
func (e *Engine) notify(ctx context.Context, n models.Notification) {
	if err := e.notifier.Emit(ctx, n); err != nil {
		log.Printf("Ошибка доставки уведомления %s: %v", n.Kind, err)
	}
}

// openChat создает чат по заявке с первым сообщением.
// Сбой не роняет операцию: переписку можно открыть позже вручную.
func (e *Engine) openChat(ctx context.Context, req *models.ExchangeRequest, authorID uuid.UUID, text string) {
	now := e.now()
	chat := &models.Chat{
		ID:         uuid.New(),
		RequestID:  req.ID,
		SenderID:   req.FromUserID,
		ReceiverID: *req.ToUserID,
		CreatedAt:  now,
		IsActive:   true,
	}
	message := &models.Message{
		ID:        uuid.New(),
		ChatID:    chat.ID,
		SenderID:  authorID,
		Text:      text,
		CreatedAt: now,
	}
	if err := e.chats.CreateWithMessage(ctx, chat, message); err != nil {
		log.Printf("Ошибка создания чата для заявки %s: %v", req.ID, err)
	}
}

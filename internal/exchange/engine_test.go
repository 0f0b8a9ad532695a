package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obmenka-app/obmenka-api/internal/models"
	"github.com/obmenka-app/obmenka-api/internal/storage"
)

// fakeItemStore — хранилище вещей в памяти для тестов движка
type fakeItemStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Item
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: make(map[uuid.UUID]*models.Item)}
}

func (f *fakeItemStore) put(item *models.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = item
}

func (f *fakeItemStore) Get(_ context.Context, id uuid.UUID) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (f *fakeItemStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.ItemStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return storage.ErrNotFound
	}
	item.Status = status
	return nil
}

func (f *fakeItemStore) UpdateStatusIf(_ context.Context, id uuid.UUID, expected, next models.ItemStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok || item.Status != expected {
		return false, nil
	}
	item.Status = next
	return true, nil
}

func (f *fakeItemStore) SetExchangeResult(_ context.Context, id uuid.UUID, status models.ItemStatus, withName, itemTitle string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return storage.ErrNotFound
	}
	item.Status = status
	item.ExchangedWithName = withName
	item.ExchangedItemTitle = itemTitle
	item.ExchangedAt = &at
	return nil
}

// fakeRequestStore — хранилище заявок в памяти
type fakeRequestStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.ExchangeRequest
	items    *fakeItemStore
}

func newFakeRequestStore(items *fakeItemStore) *fakeRequestStore {
	return &fakeRequestStore{
		requests: make(map[uuid.UUID]*models.ExchangeRequest),
		items:    items,
	}
}

func (f *fakeRequestStore) Create(_ context.Context, req *models.ExchangeRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *req
	f.requests[req.ID] = &clone
	return nil
}

func (f *fakeRequestStore) Get(_ context.Context, id uuid.UUID) (*models.ExchangeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *req
	return &clone, nil
}

func (f *fakeRequestStore) UpdateStatusIf(_ context.Context, id uuid.UUID, expected, next models.RequestStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok || req.Status != expected {
		return false, nil
	}
	req.Status = next
	return true, nil
}

func (f *fakeRequestStore) BindLoanOfferIf(_ context.Context, id, lenderID, itemID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok || req.Status != models.StatusPending || req.ToUserID != nil {
		return false, nil
	}
	req.Status = models.StatusOffered
	req.ToUserID = &lenderID
	req.FromItemID = &itemID
	return true, nil
}

func (f *fakeRequestStore) SetLoanConfirmFlag(_ context.Context, id uuid.UUID, byRequester bool) (*models.ExchangeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if byRequester {
		req.ConfirmedByRequester = true
	} else {
		req.ConfirmedByLender = true
	}
	clone := *req
	return &clone, nil
}

func (f *fakeRequestStore) CompleteTrade(_ context.Context, trade *models.ExchangeRequest, fromItem, toItem *models.Item, fromName, toName string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[trade.ID]
	if !ok || req.Status != models.StatusAccepted {
		return false, nil
	}
	f.items.mu.Lock()
	defer f.items.mu.Unlock()
	a := f.items.items[fromItem.ID]
	b := f.items.items[toItem.ID]
	if a.OwnerID != fromItem.OwnerID || b.OwnerID != toItem.OwnerID ||
		itemGone(a.Status) || itemGone(b.Status) {
		return false, nil
	}
	req.Status = models.StatusCompleted
	a.OwnerID, b.OwnerID = b.OwnerID, a.OwnerID
	a.Status = models.ItemTraded
	b.Status = models.ItemTraded
	a.ExchangedWithName, b.ExchangedWithName = toName, fromName
	a.ExchangedItemTitle, b.ExchangedItemTitle = toItem.Title, fromItem.Title
	a.ExchangedAt, b.ExchangedAt = &at, &at
	return true, nil
}

// itemGone повторяет условие хранилища: вещь с итоговым статусом обмена
// больше не участвует в передачах
func itemGone(s models.ItemStatus) bool {
	return s == models.ItemTraded || s == models.ItemDonated || s == models.ItemLoaned
}

func (f *fakeRequestStore) HasActiveOfferForItem(_ context.Context, itemID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.FromItemID != nil && *req.FromItemID == itemID && !req.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestStore) HasPendingTrade(_ context.Context, fromItemID, toItemID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.Variant == models.VariantTrade && req.Status == models.StatusPending &&
			req.FromItemID != nil && *req.FromItemID == fromItemID &&
			req.ToItemID != nil && *req.ToItemID == toItemID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestStore) CountPendingDonations(_ context.Context, itemID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, req := range f.requests {
		if req.Variant == models.VariantDonation && req.Status == models.StatusPending &&
			req.ToItemID != nil && *req.ToItemID == itemID {
			count++
		}
	}
	return count, nil
}

func (f *fakeRequestStore) HasPendingDonationFrom(_ context.Context, itemID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.Variant == models.VariantDonation && req.Status == models.StatusPending &&
			req.ToItemID != nil && *req.ToItemID == itemID && req.FromUserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestStore) HasAcceptedDonation(_ context.Context, itemID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.Variant == models.VariantDonation && req.Status == models.StatusAccepted &&
			req.ToItemID != nil && *req.ToItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

// fakeChatStore записывает созданные чаты и их первые сообщения
type fakeChatStore struct {
	mu       sync.Mutex
	chats    []*models.Chat
	messages []*models.Message
}

func (f *fakeChatStore) CreateWithMessage(_ context.Context, chat *models.Chat, message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, chat)
	f.messages = append(f.messages, message)
	return nil
}

// fakeUserStore отдает заранее заведенных пользователей
type fakeUserStore struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserStore) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

// fakeNotifier записывает отправленные уведомления
type fakeNotifier struct {
	mu     sync.Mutex
	events []models.Notification
}

func (f *fakeNotifier) Emit(_ context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, n)
	return nil
}

func (f *fakeNotifier) byKind(kind models.NotificationKind) []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.events {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// testEnv собирает движок с фейковыми хранилищами
type testEnv struct {
	engine   *Engine
	items    *fakeItemStore
	requests *fakeRequestStore
	chats    *fakeChatStore
	users    *fakeUserStore
	notifier *fakeNotifier
}

func newTestEnv() *testEnv {
	items := newFakeItemStore()
	requests := newFakeRequestStore(items)
	chats := &fakeChatStore{}
	users := &fakeUserStore{users: make(map[uuid.UUID]*models.User)}
	notifier := &fakeNotifier{}
	engine := NewEngine(Config{
		Items:         items,
		Requests:      requests,
		Chats:         chats,
		Users:         users,
		Notifier:      notifier,
		DonationLimit: 10,
	})
	return &testEnv{engine: engine, items: items, requests: requests, chats: chats, users: users, notifier: notifier}
}

func (env *testEnv) addUser(name string) uuid.UUID {
	id := uuid.New()
	env.users.users[id] = &models.User{ID: id, FirstName: name}
	return id
}

func (env *testEnv) addItem(ownerID uuid.UUID, title string, exchangeType models.ExchangeType) *models.Item {
	item := &models.Item{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Title:        title,
		ExchangeType: exchangeType,
		Status:       models.ItemAvailable,
	}
	env.items.put(item)
	return item
}

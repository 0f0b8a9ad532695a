// Package feed собирает персональную ленту: вещи, посты и открытые запросы
// на заем в одной перемешанной последовательности. Пакет только читает данные;
// единственная запись — ленивое удаление истекших постов.
package feed

import (
	"context"
	"log"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/obmenka-app/obmenka-api/internal/apperr"
	"github.com/obmenka-app/obmenka-api/internal/models"
)

// FriendSource отдает список друзей зрителя
type FriendSource interface {
	FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ItemSource отдает вещи, потенциально видимые зрителю
type ItemSource interface {
	FeedCandidates(ctx context.Context, viewerID uuid.UUID, friendIDs []uuid.UUID) ([]models.Item, error)
}

// PostSource отдает посты и отметки просмотра; Delete используется
// для ленивого удаления истекших постов и должен быть идемпотентным
type PostSource interface {
	ListByUsers(ctx context.Context, userIDs []uuid.UUID) ([]models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SeenPostIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
}

// ExchangeSource отдает данные заявок, влияющие на состав ленты
type ExchangeSource interface {
	PendingLoanCallouts(ctx context.Context) ([]models.ExchangeRequest, error)
	AcceptedTradeItemIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Composer собирает ленту для конкретного зрителя
type Composer struct {
	friends   FriendSource
	items     ItemSource
	posts     PostSource
	exchanges ExchangeSource

	freshWindow time.Duration
	now         func() time.Time
	shuffle     func(n int, swap func(i, j int))
}

// Config — зависимости и настройки Composer
type Config struct {
	Friends   FriendSource
	Items     ItemSource
	Posts     PostSource
	Exchanges ExchangeSource

	// FreshWindow — возраст, в пределах которого пост считается новым
	FreshWindow time.Duration
	Now         func() time.Time
	Shuffle     func(n int, swap func(i, j int))
}

// NewComposer создает новый экземпляр Composer
func NewComposer(cfg Config) *Composer {
	if cfg.FreshWindow <= 0 {
		cfg.FreshWindow = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Shuffle == nil {
		cfg.Shuffle = rand.Shuffle
	}
	return &Composer{
		friends:     cfg.Friends,
		items:       cfg.Items,
		posts:       cfg.Posts,
		exchanges:   cfg.Exchanges,
		freshWindow: cfg.FreshWindow,
		now:         cfg.Now,
		shuffle:     cfg.Shuffle,
	}
}

// Compose собирает ленту зрителя. Результат не кешируется:
// каждый вызов перемешивает ленту заново.
func (c *Composer) Compose(ctx context.Context, viewerID uuid.UUID) ([]models.FeedItem, error) {
	now := c.now()

	friendIDs, err := c.friends.FriendIDs(ctx, viewerID)
	if err != nil {
		return nil, apperr.Internal("Ошибка получения списка друзей", err)
	}

	items, err := c.visibleItems(ctx, viewerID, friendIDs)
	if err != nil {
		return nil, err
	}
	posts, err := c.livePosts(ctx, viewerID, friendIDs, now)
	if err != nil {
		return nil, err
	}
	callouts, err := c.exchanges.PendingLoanCallouts(ctx)
	if err != nil {
		return nil, apperr.Internal("Ошибка получения запросов на заем", err)
	}
	seen, err := c.posts.SeenPostIDs(ctx, viewerID)
	if err != nil {
		return nil, apperr.Internal("Ошибка получения просмотренных постов", err)
	}

	// Свежесть учитывается только для постов: вещи и запросы на заем
	// всегда попадают в общую перемешиваемую часть
	var newUnseen, rest []models.FeedItem
	for i := range posts {
		post := &posts[i]
		entry := models.FeedItem{
			ItemType: models.FeedItemPost,
			Post:     post,
			IsNew:    now.Sub(post.CreatedAt) < c.freshWindow,
			IsSeen:   seen[post.ID],
		}
		if entry.IsNew && !entry.IsSeen {
			newUnseen = append(newUnseen, entry)
		} else {
			rest = append(rest, entry)
		}
	}
	for i := range items {
		rest = append(rest, models.FeedItem{
			ItemType: models.FeedItemProduct,
			Item:     &items[i],
		})
	}
	for i := range callouts {
		rest = append(rest, models.FeedItem{
			ItemType:    models.FeedItemLoanRequest,
			LoanRequest: &callouts[i],
		})
	}

	// Закрепляем ровно один самый свежий непросмотренный пост,
	// остальные уходят в общую перемешиваемую часть
	var pinned *models.FeedItem
	if len(newUnseen) > 0 {
		newest := 0
		for i := 1; i < len(newUnseen); i++ {
			if newUnseen[i].Post.CreatedAt.After(newUnseen[newest].Post.CreatedAt) {
				newest = i
			}
		}
		pinned = &newUnseen[newest]
		for i := range newUnseen {
			if i != newest {
				rest = append(rest, newUnseen[i])
			}
		}
	}

	c.shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})

	if pinned == nil {
		return rest, nil
	}
	result := make([]models.FeedItem, 0, len(rest)+1)
	result = append(result, *pinned)
	return append(result, rest...), nil
}

// visibleItems возвращает вещи, видимые зрителю, без вещей,
// уже обещанных в принятом, но не завершенном обмене
func (c *Composer) visibleItems(ctx context.Context, viewerID uuid.UUID, friendIDs []uuid.UUID) ([]models.Item, error) {
	candidates, err := c.items.FeedCandidates(ctx, viewerID, friendIDs)
	if err != nil {
		return nil, apperr.Internal("Ошибка получения вещей для ленты", err)
	}
	committed := map[uuid.UUID]bool{}
	ids, err := c.exchanges.AcceptedTradeItemIDs(ctx)
	if err != nil {
		return nil, apperr.Internal("Ошибка получения принятых обменов", err)
	}
	for _, id := range ids {
		committed[id] = true
	}

	out := candidates[:0]
	for _, item := range candidates {
		if committed[item.ID] && !item.Status.Historical() {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// livePosts возвращает непросроченные посты зрителя и его друзей.
// Истекший пост удаляется прямо во время чтения, которое его обнаружило;
// удаление идемпотентно, гонка двух одновременных чтений безопасна.
func (c *Composer) livePosts(ctx context.Context, viewerID uuid.UUID, friendIDs []uuid.UUID, now time.Time) ([]models.Post, error) {
	authors := append([]uuid.UUID{viewerID}, friendIDs...)
	posts, err := c.posts.ListByUsers(ctx, authors)
	if err != nil {
		return nil, apperr.Internal("Ошибка получения постов", err)
	}

	live := posts[:0]
	for _, post := range posts {
		if post.Expired(now) {
			if err := c.posts.Delete(ctx, post.ID); err != nil {
				log.Printf("Ошибка удаления истекшего поста %s: %v", post.ID, err)
			}
			continue
		}
		live = append(live, post)
	}
	return live, nil
}

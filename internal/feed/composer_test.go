package feed

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obmenka-app/obmenka-api/internal/models"
)

type fakeFriendSource struct {
	friends map[uuid.UUID][]uuid.UUID
}

func (f *fakeFriendSource) FriendIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return f.friends[userID], nil
}

// fakeItemSource повторяет предикат видимости хранилища: свои вещи, вещи
// друзей, вещи публичных пользователей и вещи с историческим статусом
type fakeItemSource struct {
	items  []models.Item
	public map[uuid.UUID]bool
}

func (f *fakeItemSource) FeedCandidates(_ context.Context, viewerID uuid.UUID, friendIDs []uuid.UUID) ([]models.Item, error) {
	friends := map[uuid.UUID]bool{}
	for _, id := range friendIDs {
		friends[id] = true
	}
	var out []models.Item
	for _, item := range f.items {
		switch {
		case item.OwnerID == viewerID, friends[item.OwnerID], f.public[item.OwnerID], item.Status.Historical():
			out = append(out, item)
		}
	}
	return out, nil
}

type fakePostSource struct {
	posts   []models.Post
	seen    map[uuid.UUID]bool
	deleted []uuid.UUID
}

func (f *fakePostSource) ListByUsers(_ context.Context, userIDs []uuid.UUID) ([]models.Post, error) {
	authors := map[uuid.UUID]bool{}
	for _, id := range userIDs {
		authors[id] = true
	}
	var out []models.Post
	for _, post := range f.posts {
		if authors[post.UserID] {
			out = append(out, post)
		}
	}
	return out, nil
}

func (f *fakePostSource) Delete(_ context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePostSource) SeenPostIDs(_ context.Context, _ uuid.UUID) (map[uuid.UUID]bool, error) {
	if f.seen == nil {
		return map[uuid.UUID]bool{}, nil
	}
	return f.seen, nil
}

type fakeExchangeSource struct {
	callouts      []models.ExchangeRequest
	acceptedItems []uuid.UUID
}

func (f *fakeExchangeSource) PendingLoanCallouts(_ context.Context) ([]models.ExchangeRequest, error) {
	return f.callouts, nil
}

func (f *fakeExchangeSource) AcceptedTradeItemIDs(_ context.Context) ([]uuid.UUID, error) {
	return f.acceptedItems, nil
}

// noShuffle сохраняет порядок, чтобы проверки не зависели от случайности
func noShuffle(int, func(i, j int)) {}

func newComposer(friends *fakeFriendSource, items *fakeItemSource, posts *fakePostSource, exchanges *fakeExchangeSource, now time.Time) *Composer {
	return NewComposer(Config{
		Friends:   friends,
		Items:     items,
		Posts:     posts,
		Exchanges: exchanges,
		Now:       func() time.Time { return now },
		Shuffle:   noShuffle,
	})
}

func TestComposeShowsPublicStrangerItem(t *testing.T) {
	now := time.Now()
	viewer := uuid.New()
	stranger := uuid.New()

	items := &fakeItemSource{
		items: []models.Item{{
			ID:      uuid.New(),
			OwnerID: stranger,
			Title:   "Велосипед",
			Status:  models.ItemAvailable,
		}},
		public: map[uuid.UUID]bool{stranger: true},
	}
	c := newComposer(&fakeFriendSource{}, items, &fakePostSource{}, &fakeExchangeSource{}, now)

	// У зрителя нет ни друзей, ни своих вещей, но публичная вещь видна
	feed, err := c.Compose(context.Background(), viewer)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, models.FeedItemProduct, feed[0].ItemType)
	assert.Equal(t, "Велосипед", feed[0].Item.Title)
}

func TestComposeHidesPrivateStrangerItem(t *testing.T) {
	now := time.Now()
	viewer := uuid.New()
	stranger := uuid.New()

	items := &fakeItemSource{
		items: []models.Item{{
			ID:      uuid.New(),
			OwnerID: stranger,
			Status:  models.ItemAvailable,
		}},
	}
	c := newComposer(&fakeFriendSource{}, items, &fakePostSource{}, &fakeExchangeSource{}, now)

	feed, err := c.Compose(context.Background(), viewer)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestComposeShowsHistoricalItemRegardlessOfVisibility(t *testing.T) {
	now := time.Now()
	viewer := uuid.New()
	stranger := uuid.New()

	items := &fakeItemSource{
		items: []models.Item{{
			ID:      uuid.New(),
			OwnerID: stranger,
			Status:  models.ItemTraded,
		}},
	}
	c := newComposer(&fakeFriendSource{}, items, &fakePostSource{}, &fakeExchangeSource{}, now)

	feed, err := c.Compose(context.Background(), viewer)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, models.ItemTraded, feed[0].Item.Status)
}

func TestComposeExcludesItemsInAcceptedTrade(t *testing.T) {
	now := time.Now()
	viewer := uuid.New()
	friend := uuid.New()
	committed := uuid.New()
	free := uuid.New()

	items := &fakeItemSource{
		items: []models.Item{
			{ID: committed, OwnerID: friend, Status: models.ItemAvailable},
			{ID: free, OwnerID: friend, Status: models.ItemAvailable},
		},
	}
	friends := &fakeFriendSource{friends: map[uuid.UUID][]uuid.UUID{viewer: {friend}}}
	exchanges := &fakeExchangeSource{acceptedItems: []uuid.UUID{committed}}
	c := newComposer(friends, items, &fakePostSource{}, exchanges, now)

	feed, err := c.Compose(context.Background(), viewer)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, free, feed[0].Item.ID)
}

func TestComposeDeletesExpiredPosts(t *testing.T) {
	now := time.Now()
	viewer := uuid.New()

	expired := models.Post{
		ID:        uuid.New(),
		UserID:    viewer,
		Text:      "Старый пост",
		CreatedAt: now.Add(-31 * 24 * time.Hour),
		ExpiresAt: now.Add(-24 * time.Hour),
	}
	live := models.Post{
		ID:        uuid.New(),
		UserID:    viewer,
		Text:      "Свежий пост",
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(29 * 24 * time.Hour),
	}
	posts := &fakePostSource{posts: []models.Post{expired, live}}
	c := newComposer(&fakeFriendSource{}, &fakeItemSource{}, posts, &fakeExchangeSource{}, now)

	feed, err := c.Compose(context.Background(), viewer)
	require.NoError(t, err)

	// Истекший пост не попал в ленту и был удален при чтении
	require.Len(t, feed, 1)
	assert.Equal(t, live.ID, feed[0].Post.ID)
	assert.Equal(t, []uuid.UUID{expired.ID}, posts.deleted)
}

func TestComposePinsNewestUnseenPost(t *testing.T) {
	now := time.Now()
	viewer := uuid.New()
	friend := uuid.New()

	older := models.Post{
		ID:        uuid.New(),
		UserID:    friend,
		Text:      "Постарше",
		CreatedAt: now.Add(-10 * time.Hour),
		ExpiresAt: now.Add(24 * time.Hour),
	}
	newest := models.Post{
		ID:        uuid.New(),
		UserID:    friend,
		Text:      "Самый свежий",
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(24 * time.Hour),
	}
	seenNew := models.Post{
		ID:        uuid.New(),
		UserID:    friend,
		Text:      "Свежий, но просмотренный",
		CreatedAt: now.Add(-30 * time.Minute),
		ExpiresAt: now.Add(24 * time.Hour),
	}
	posts := &fakePostSource{
		posts: []models.Post{older, newest, seenNew},
		seen:  map[uuid.UUID]bool{seenNew.ID: true},
	}
	friends := &fakeFriendSource{friends: map[uuid.UUID][]uuid.UUID{viewer: {friend}}}
	items := &fakeItemSource{items: []models.Item{{ID: uuid.New(), OwnerID: friend, Status: models.ItemAvailable}}}
	c := newComposer(friends, items, posts, &fakeExchangeSource{}, now)

	feed, err := c.Compose(context.Background(), viewer)
	require.NoError(t, err)
	require.Len(t, feed, 4)

	// Первым идет самый свежий непросмотренный пост, даже если
	// просмотренный создан позже него
	assert.Equal(t, models.FeedItemPost, feed[0].ItemType)
	assert.Equal(t, newest.ID, feed[0].Post.ID)
	assert.True(t, feed[0].IsNew)
	assert.False(t, feed[0].IsSeen)
}

func TestComposeNoPinWhenAllSeen(t *testing.T) {
	now := time.Now()
	viewer := uuid.New()

	post := models.Post{
		ID:        uuid.New(),
		UserID:    viewer,
		Text:      "Просмотренный",
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(24 * time.Hour),
	}
	posts := &fakePostSource{
		posts: []models.Post{post},
		seen:  map[uuid.UUID]bool{post.ID: true},
	}
	c := newComposer(&fakeFriendSource{}, &fakeItemSource{}, posts, &fakeExchangeSource{}, now)

	feed, err := c.Compose(context.Background(), viewer)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.True(t, feed[0].IsSeen)
}

func TestComposeIncludesLoanCallouts(t *testing.T) {
	now := time.Now()
	viewer := uuid.New()

	callout := models.ExchangeRequest{
		ID:       uuid.New(),
		Variant:  models.VariantLoan,
		Status:   models.StatusPending,
		ItemName: "Дрель",
	}
	exchanges := &fakeExchangeSource{callouts: []models.ExchangeRequest{callout}}
	c := newComposer(&fakeFriendSource{}, &fakeItemSource{}, &fakePostSource{}, exchanges, now)

	feed, err := c.Compose(context.Background(), viewer)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, models.FeedItemLoanRequest, feed[0].ItemType)
	assert.Equal(t, "Дрель", feed[0].LoanRequest.ItemName)
}

func TestComposeReshufflesEveryRequest(t *testing.T) {
	now := time.Now()
	viewer := uuid.New()

	items := &fakeItemSource{public: map[uuid.UUID]bool{}}
	for i := 0; i < 20; i++ {
		owner := uuid.New()
		items.public[owner] = true
		items.items = append(items.items, models.Item{ID: uuid.New(), OwnerID: owner, Status: models.ItemAvailable})
	}

	calls := 0
	c := NewComposer(Config{
		Friends:   &fakeFriendSource{},
		Items:     items,
		Posts:     &fakePostSource{},
		Exchanges: &fakeExchangeSource{},
		Now:       func() time.Time { return now },
		Shuffle: func(n int, swap func(i, j int)) {
			calls++
			// разворачиваем порядок, имитируя перестановку
			for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
				swap(i, j)
			}
		},
	})

	_, err := c.Compose(context.Background(), viewer)
	require.NoError(t, err)
	_, err = c.Compose(context.Background(), viewer)
	require.NoError(t, err)

	// Перемешивание выполняется на каждый запрос ровно один раз
	assert.Equal(t, 2, calls)
}

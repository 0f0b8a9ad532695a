package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obmenka-app/obmenka-api/internal/apperr"
	"github.com/obmenka-app/obmenka-api/internal/models"
)

func TestCreateTrade(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := env.addUser("Алиса")
	bob := env.addUser("Боб")
	p1 := env.addItem(alice, "Книга", models.ExchangeTypeTrade)
	p2 := env.addItem(bob, "Лампа", models.ExchangeTypeTrade)

	req, err := env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p2.ID})
	require.NoError(t, err)
	assert.Equal(t, models.VariantTrade, req.Variant)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, alice, req.FromUserID)
	assert.Equal(t, bob, *req.ToUserID)

	// Владелец второй вещи получает уведомление
	events := env.notifier.byKind(models.NotifyTradeRequested)
	require.Len(t, events, 1)
	assert.Equal(t, bob, events[0].ToUserID)
}

func TestCreateTradeRejectsForeignItem(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := env.addUser("Алиса")
	bob := env.addUser("Боб")
	p1 := env.addItem(bob, "Книга", models.ExchangeTypeTrade)
	p2 := env.addItem(bob, "Лампа", models.ExchangeTypeTrade)

	_, err := env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p2.ID})
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestCreateTradeRejectsSelfTrade(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := env.addUser("Алиса")
	p1 := env.addItem(alice, "Книга", models.ExchangeTypeTrade)
	p2 := env.addItem(alice, "Лампа", models.ExchangeTypeTrade)

	_, err := env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p2.ID})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
}

func TestCreateTradeRejectsDuplicatePending(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := env.addUser("Алиса")
	bob := env.addUser("Боб")
	p1 := env.addItem(alice, "Книга", models.ExchangeTypeTrade)
	p2 := env.addItem(bob, "Лампа", models.ExchangeTypeTrade)

	_, err := env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p2.ID})
	require.NoError(t, err)

	_, err = env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p2.ID})
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestCreateTradeRejectsItemAlreadyOffered(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := env.addUser("Алиса")
	bob := env.addUser("Боб")
	carol := env.addUser("Вера")
	p1 := env.addItem(alice, "Книга", models.ExchangeTypeTrade)
	p2 := env.addItem(bob, "Лампа", models.ExchangeTypeTrade)
	p3 := env.addItem(carol, "Ваза", models.ExchangeTypeTrade)

	_, err := env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p2.ID})
	require.NoError(t, err)

	// Та же вещь не может быть предложена во второй живой заявке
	_, err = env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p3.ID})
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestCompleteTradeStaleSecondTrade(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := env.addUser("Алиса")
	bob := env.addUser("Боб")
	carol := env.addUser("Вера")
	p1 := env.addItem(alice, "Книга", models.ExchangeTypeTrade)
	p2 := env.addItem(bob, "Лампа", models.ExchangeTypeTrade)
	p3 := env.addItem(carol, "Ваза", models.ExchangeTypeTrade)

	// Две заявки на одну и ту же вещь Алисы, обе приняты
	first, err := env.engine.CreateTrade(ctx, bob, CreateTradeInput{FromItemID: p2.ID, ToItemID: p1.ID})
	require.NoError(t, err)
	second, err := env.engine.CreateTrade(ctx, carol, CreateTradeInput{FromItemID: p3.ID, ToItemID: p1.ID})
	require.NoError(t, err)
	_, err = env.engine.AcceptTrade(ctx, first.ID, alice)
	require.NoError(t, err)
	_, err = env.engine.AcceptTrade(ctx, second.ID, alice)
	require.NoError(t, err)

	_, err = env.engine.CompleteTrade(ctx, first.ID, bob)
	require.NoError(t, err)

	// Вещь уже ушла в первом обмене, второй завершить нельзя
	_, err = env.engine.CompleteTrade(ctx, second.ID, carol)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	got1, err := env.items.Get(ctx, p1.ID)
	require.NoError(t, err)
	got3, err := env.items.Get(ctx, p3.ID)
	require.NoError(t, err)
	assert.Equal(t, bob, got1.OwnerID)
	assert.Equal(t, carol, got3.OwnerID)
	assert.Equal(t, models.ItemAvailable, got3.Status)
}

func TestAcceptTradeEitherParty(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := env.addUser("Алиса")
	bob := env.addUser("Боб")
	p1 := env.addItem(alice, "Книга", models.ExchangeTypeTrade)
	p2 := env.addItem(bob, "Лампа", models.ExchangeTypeTrade)

	req, err := env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p2.ID})
	require.NoError(t, err)

	// Принять может в том числе и сам инициатор
	accepted, err := env.engine.AcceptTrade(ctx, req.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)

	// После принятия открыт чат
	require.Len(t, env.chats.chats, 1)
	assert.Equal(t, req.ID, env.chats.chats[0].RequestID)
}

func TestAcceptTradeRejectsOutsider(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := env.addUser("Алиса")
	bob := env.addUser("Боб")
	eve := env.addUser("Ева")
	p1 := env.addItem(alice, "Книга", models.ExchangeTypeTrade)
	p2 := env.addItem(bob, "Лампа", models.ExchangeTypeTrade)

	req, err := env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p2.ID})
	require.NoError(t, err)

	_, err = env.engine.AcceptTrade(ctx, req.ID, eve)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestAcceptTradeSecondAttemptConflicts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := env.addUser("Алиса")
	bob := env.addUser("Боб")
	p1 := env.addItem(alice, "Книга", models.ExchangeTypeTrade)
	p2 := env.addItem(bob, "Лампа", models.ExchangeTypeTrade)

	req, err := env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p2.ID})
	require.NoError(t, err)

	_, err = env.engine.AcceptTrade(ctx, req.ID, bob)
	require.NoError(t, err)

	// Повторное принятие не проходит условный переход
	_, err = env.engine.AcceptTrade(ctx, req.ID, alice)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestCompleteTradeSwapsOwners(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := env.addUser("Алиса")
	bob := env.addUser("Боб")
	p1 := env.addItem(alice, "Книга", models.ExchangeTypeTrade)
	p2 := env.addItem(bob, "Лампа", models.ExchangeTypeTrade)

	req, err := env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p2.ID})
	require.NoError(t, err)
	_, err = env.engine.AcceptTrade(ctx, req.ID, bob)
	require.NoError(t, err)

	completed, err := env.engine.CompleteTrade(ctx, req.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	// Вещи поменяли владельцев и получили терминальный статус с аннотацией
	got1, err := env.items.Get(ctx, p1.ID)
	require.NoError(t, err)
	got2, err := env.items.Get(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, bob, got1.OwnerID)
	assert.Equal(t, alice, got2.OwnerID)
	assert.Equal(t, models.ItemTraded, got1.Status)
	assert.Equal(t, models.ItemTraded, got2.Status)
	assert.Equal(t, "Боб", got1.ExchangedWithName)
	assert.Equal(t, "Лампа", got1.ExchangedItemTitle)
	assert.Equal(t, "Алиса", got2.ExchangedWithName)
	assert.Equal(t, "Книга", got2.ExchangedItemTitle)
}

func TestCompleteTradeIsNotReapplied(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := env.addUser("Алиса")
	bob := env.addUser("Боб")
	p1 := env.addItem(alice, "Книга", models.ExchangeTypeTrade)
	p2 := env.addItem(bob, "Лампа", models.ExchangeTypeTrade)

	req, err := env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p2.ID})
	require.NoError(t, err)
	_, err = env.engine.AcceptTrade(ctx, req.ID, bob)
	require.NoError(t, err)
	_, err = env.engine.CompleteTrade(ctx, req.ID, bob)
	require.NoError(t, err)

	// Повторное завершение отклоняется и не меняет владельцев еще раз
	_, err = env.engine.CompleteTrade(ctx, req.ID, alice)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	got1, err := env.items.Get(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, bob, got1.OwnerID)
}

func TestCompleteTradeRequiresAccepted(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := env.addUser("Алиса")
	bob := env.addUser("Боб")
	p1 := env.addItem(alice, "Книга", models.ExchangeTypeTrade)
	p2 := env.addItem(bob, "Лампа", models.ExchangeTypeTrade)

	req, err := env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p2.ID})
	require.NoError(t, err)

	_, err = env.engine.CompleteTrade(ctx, req.ID, bob)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestRejectTradeOnlyFromPending(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := env.addUser("Алиса")
	bob := env.addUser("Боб")
	p1 := env.addItem(alice, "Книга", models.ExchangeTypeTrade)
	p2 := env.addItem(bob, "Лампа", models.ExchangeTypeTrade)

	req, err := env.engine.CreateTrade(ctx, alice, CreateTradeInput{FromItemID: p1.ID, ToItemID: p2.ID})
	require.NoError(t, err)
	_, err = env.engine.AcceptTrade(ctx, req.ID, bob)
	require.NoError(t, err)

	_, err = env.engine.RejectTrade(ctx, req.ID, bob)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obmenka-app/obmenka-api/internal/apperr"
	"github.com/obmenka-app/obmenka-api/internal/models"
)

func TestCreateLoanRequiresItemName(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addUser("Алиса")

	_, err := env.engine.CreateLoan(ctx, requester, "  ", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	req, err := env.engine.CreateLoan(ctx, requester, "Дрель", "На выходные")
	require.NoError(t, err)
	assert.Equal(t, models.VariantLoan, req.Variant)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Nil(t, req.ToUserID)
	assert.Equal(t, "Дрель", req.ItemName)
}

func TestOfferLoanBindsLender(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addUser("Алиса")
	lender := env.addUser("Боб")
	item := env.addItem(lender, "Дрель", models.ExchangeTypeLoan)

	req, err := env.engine.CreateLoan(ctx, requester, "Дрель", "")
	require.NoError(t, err)

	offered, err := env.engine.OfferLoan(ctx, req.ID, lender, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOffered, offered.Status)
	assert.Equal(t, lender, *offered.ToUserID)
	assert.Equal(t, item.ID, *offered.FromItemID)

	events := env.notifier.byKind(models.NotifyLoanOffered)
	require.Len(t, events, 1)
	assert.Equal(t, requester, events[0].ToUserID)
}

func TestOfferLoanRejectsOwnRequest(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addUser("Алиса")
	item := env.addItem(requester, "Дрель", models.ExchangeTypeLoan)

	req, err := env.engine.CreateLoan(ctx, requester, "Дрель", "")
	require.NoError(t, err)

	_, err = env.engine.OfferLoan(ctx, req.ID, requester, item.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
}

func TestOfferLoanSingleWinner(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addUser("Алиса")
	first := env.addUser("Боб")
	second := env.addUser("Ева")
	firstItem := env.addItem(first, "Дрель", models.ExchangeTypeLoan)
	secondItem := env.addItem(second, "Дрель получше", models.ExchangeTypeLoan)

	req, err := env.engine.CreateLoan(ctx, requester, "Дрель", "")
	require.NoError(t, err)

	_, err = env.engine.OfferLoan(ctx, req.ID, first, firstItem.ID)
	require.NoError(t, err)

	// Второй отклик на уже связанный запрос отклоняется
	_, err = env.engine.OfferLoan(ctx, req.ID, second, secondItem.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestAcceptLoanOnlyRequester(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addUser("Алиса")
	lender := env.addUser("Боб")
	item := env.addItem(lender, "Дрель", models.ExchangeTypeLoan)

	req, err := env.engine.CreateLoan(ctx, requester, "Дрель", "")
	require.NoError(t, err)
	_, err = env.engine.OfferLoan(ctx, req.ID, lender, item.ID)
	require.NoError(t, err)

	_, err = env.engine.AcceptLoan(ctx, req.ID, lender)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	accepted, err := env.engine.AcceptLoan(ctx, req.ID, requester)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)

	// Вещь зарезервирована, чат открыт
	got, err := env.items.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemLoanAccepted, got.Status)
	require.Len(t, env.chats.chats, 1)
}

func TestConfirmLoanNeedsBothParties(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addUser("Алиса")
	lender := env.addUser("Боб")
	item := env.addItem(lender, "Дрель", models.ExchangeTypeLoan)

	req, err := env.engine.CreateLoan(ctx, requester, "Дрель", "")
	require.NoError(t, err)
	_, err = env.engine.OfferLoan(ctx, req.ID, lender, item.ID)
	require.NoError(t, err)
	_, err = env.engine.AcceptLoan(ctx, req.ID, requester)
	require.NoError(t, err)

	// Подтверждение одной стороны не завершает заем
	after, err := env.engine.ConfirmLoan(ctx, req.ID, requester)
	require.NoError(t, err)
	assert.True(t, after.ConfirmedByRequester)
	assert.False(t, after.ConfirmedByLender)
	assert.Equal(t, models.StatusAccepted, after.Status)

	// Повторное подтверждение той же стороны идемпотентно
	again, err := env.engine.ConfirmLoan(ctx, req.ID, requester)
	require.NoError(t, err)
	assert.True(t, again.ConfirmedByRequester)
	assert.Equal(t, models.StatusAccepted, again.Status)

	// Вторая сторона завершает заем
	done, err := env.engine.ConfirmLoan(ctx, req.ID, lender)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, done.Status)

	got, err := env.items.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemLoaned, got.Status)
	assert.Equal(t, "Алиса", got.ExchangedWithName)

	events := env.notifier.byKind(models.NotifyLoanConfirmed)
	assert.Len(t, events, 2)
}

func TestConfirmLoanBeforeAcceptConflicts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addUser("Алиса")
	lender := env.addUser("Боб")
	item := env.addItem(lender, "Дрель", models.ExchangeTypeLoan)

	req, err := env.engine.CreateLoan(ctx, requester, "Дрель", "")
	require.NoError(t, err)

	_, err = env.engine.ConfirmLoan(ctx, req.ID, requester)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	_, err = env.engine.OfferLoan(ctx, req.ID, lender, item.ID)
	require.NoError(t, err)

	_, err = env.engine.ConfirmLoan(ctx, req.ID, lender)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestCancelLoanReleasesItem(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	requester := env.addUser("Алиса")
	lender := env.addUser("Боб")
	item := env.addItem(lender, "Дрель", models.ExchangeTypeLoan)

	req, err := env.engine.CreateLoan(ctx, requester, "Дрель", "")
	require.NoError(t, err)
	_, err = env.engine.OfferLoan(ctx, req.ID, lender, item.ID)
	require.NoError(t, err)
	_, err = env.engine.AcceptLoan(ctx, req.ID, requester)
	require.NoError(t, err)

	// Отменить может только автор запроса
	_, err = env.engine.CancelLoan(ctx, req.ID, lender)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	cancelled, err := env.engine.CancelLoan(ctx, req.ID, requester)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// Резерв с вещи снят
	got, err := env.items.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemAvailable, got.Status)

	// Завершенный запрос отменить нельзя
	_, err = env.engine.CancelLoan(ctx, req.ID, requester)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"hackportal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLedger(t *testing.T, notifier Notifier) (*gorm.DB, *Ledger, *models.Team) {
	t.Helper()
	db := newTestDB(t)
	owner := newTestUser(t, db, "owner@example.com", models.RoleParticipant)
	team := newApprovedTeam(t, db, owner, "Solder Squad")
	return db, NewLedger(db, testBudget, notifier), team
}

func TestLedger_PurchaseDecrementsStockAndRecordsCost(t *testing.T) {
	ctx := context.Background()
	db, ledger, team := setupLedger(t, nil)
	item := newTestItem(t, db, "Raspberry Pi", 75, 20)

	purchase, err := ledger.Purchase(ctx, team.ID, item.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, int64(3), purchase.Quantity)
	assert.Equal(t, int64(75), purchase.UnitCost)
	assert.Equal(t, int64(225), purchase.TotalCost)
	assert.False(t, purchase.Fulfilled)
	assert.Equal(t, int64(17), stockOf(t, db, item.ID))

	budget, err := ledger.TeamBudget(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(775), budget.Remaining)
}

func TestLedger_PurchaseValidation(t *testing.T) {
	ctx := context.Background()
	db, ledger, team := setupLedger(t, nil)
	item := newTestItem(t, db, "Camera Kit", 35, 2)

	tests := []struct {
		name     string
		itemID   uint
		quantity int64
		kind     Kind
		msg      string
	}{
		{"zero quantity", item.ID, 0, KindBadRequest, ""},
		{"negative quantity", item.ID, -1, KindBadRequest, ""},
		{"above line cap", item.ID, MaxLineQuantity + 1, KindBadRequest, ""},
		{"unknown item", item.ID + 100, 1, KindNotFound, MsgItemNotFound},
		{"more than stock", item.ID, 3, KindConflict, MsgInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Purchase(ctx, team.ID, tt.itemID, tt.quantity)
			requireKind(t, err, tt.kind, tt.msg)
		})
	}

	assert.Equal(t, int64(2), stockOf(t, db, item.ID))
	assert.Zero(t, purchaseCount(t, db, team.ID))
}

func TestLedger_PurchaseRejectedOverBudget(t *testing.T) {
	ctx := context.Background()
	db, ledger, team := setupLedger(t, nil)
	big := newTestItem(t, db, "Oscilloscope", 950, 1)
	servo := newTestItem(t, db, "Servo", 30, 10)

	_, err := ledger.Purchase(ctx, team.ID, big.ID, 1)
	require.NoError(t, err)

	before, err := ledger.TeamBudget(ctx, team.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50), before.Remaining)

	_, err = ledger.Purchase(ctx, team.ID, servo.ID, 2)
	requireKind(t, err, KindConflict, MsgInsufficientBudget)

	after, err := ledger.TeamBudget(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, int64(10), stockOf(t, db, servo.ID))
	assert.Equal(t, int64(1), purchaseCount(t, db, team.ID))
}

func TestLedger_PurchaseRequiresApprovedTeam(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := newTestUser(t, db, "owner@example.com", models.RoleParticipant)
	team, err := newDirectory(db).CreateTeam(ctx, owner, "Pending", "secret")
	require.NoError(t, err)
	item := newTestItem(t, db, "Elegoo Kit", 50, 40)

	_, err = NewLedger(db, testBudget, nil).Purchase(ctx, team.ID, item.ID, 1)
	requireKind(t, err, KindForbidden, MsgTeamNotApproved)
	assert.Equal(t, int64(40), stockOf(t, db, item.ID))
}

func TestLedger_PurchaseUnknownTeam(t *testing.T) {
	db, ledger, _ := setupLedger(t, nil)
	item := newTestItem(t, db, "Elegoo Kit", 50, 40)

	_, err := ledger.Purchase(context.Background(), 9999, item.ID, 1)
	requireKind(t, err, KindNotFound, MsgTeamNotFound)
}

func TestLedger_ConcurrentPurchasesDoNotOversell(t *testing.T) {
	ctx := context.Background()
	db, ledger, team := setupLedger(t, nil)
	item := newTestItem(t, db, "Stepper Motor", 10, 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Purchase(ctx, team.ID, item.ID, 3)
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case KindOf(err) == KindConflict && err.Error() == MsgInsufficientStock:
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)
	assert.Equal(t, int64(2), stockOf(t, db, item.ID))
	assert.Equal(t, int64(1), purchaseCount(t, db, team.ID))
}

func TestLedger_ConcurrentPurchasesDoNotOverspend(t *testing.T) {
	ctx := context.Background()
	db, ledger, team := setupLedger(t, nil)
	item := newTestItem(t, db, "Dev Board", 600, 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Purchase(ctx, team.ID, item.ID, 1)
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			requireKind(t, err, KindConflict, MsgInsufficientBudget)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, int64(9), stockOf(t, db, item.ID))
}

func TestLedger_UndoRestoresStockExactlyOnce(t *testing.T) {
	ctx := context.Background()
	db, ledger, team := setupLedger(t, nil)
	item := newTestItem(t, db, "Motion Detection Kit", 25, 10)

	purchase, err := ledger.Purchase(ctx, team.ID, item.ID, 4)
	require.NoError(t, err)
	require.Equal(t, int64(6), stockOf(t, db, item.ID))

	result, err := ledger.UndoPurchase(ctx, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.RestoredQuantity)
	assert.Equal(t, int64(10), stockOf(t, db, item.ID))
	assert.Zero(t, purchaseCount(t, db, team.ID))

	_, err = ledger.UndoPurchase(ctx, purchase.ID)
	requireKind(t, err, KindNotFound, MsgPurchaseNotFound)
	assert.Equal(t, int64(10), stockOf(t, db, item.ID))

	budget, err := ledger.TeamBudget(ctx, team.ID)
	require.NoError(t, err)
	assert.Zero(t, budget.TotalSpent)
}

func TestLedger_ConcurrentUndoRestoresOnce(t *testing.T) {
	ctx := context.Background()
	db, ledger, team := setupLedger(t, nil)
	item := newTestItem(t, db, "Ultrasonic Sensor", 8, 10)

	purchase, err := ledger.Purchase(ctx, team.ID, item.ID, 3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.UndoPurchase(ctx, purchase.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireKind(t, err, KindNotFound, MsgPurchaseNotFound)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(10), stockOf(t, db, item.ID))
	assert.Zero(t, purchaseCount(t, db, team.ID))
}

func TestLedger_BatchRejectsOverflowingQuantities(t *testing.T) {
	ctx := context.Background()
	db, ledger, team := setupLedger(t, nil)
	item := newTestItem(t, db, "Jumper Wires", 1, 5)

	_, err := ledger.PurchaseBatch(ctx, team.ID, []LineItem{
		{ItemID: item.ID, Quantity: 1 << 62},
		{ItemID: item.ID, Quantity: 1 << 62},
	})
	requireKind(t, err, KindBadRequest, "")

	// Lines under the cap still add up against stock.
	_, err = ledger.PurchaseBatch(ctx, team.ID, []LineItem{
		{ItemID: item.ID, Quantity: MaxLineQuantity},
		{ItemID: item.ID, Quantity: MaxLineQuantity},
	})
	requireKind(t, err, KindConflict, MsgInsufficientStock)

	assert.Equal(t, int64(5), stockOf(t, db, item.ID))
	assert.Zero(t, purchaseCount(t, db, team.ID))
}

func TestLedger_PurchaseRejectsOverflowingTotal(t *testing.T) {
	ctx := context.Background()
	db, ledger, team := setupLedger(t, nil)
	item := newTestItem(t, db, "Gold Plated Oscilloscope", 1<<62, 10)

	_, err := ledger.Purchase(ctx, team.ID, item.ID, 4)
	requireKind(t, err, KindConflict, MsgInsufficientBudget)

	assert.Equal(t, int64(10), stockOf(t, db, item.ID))
	assert.Zero(t, purchaseCount(t, db, team.ID))
}

func TestLedger_UndoUnknownPurchase(t *testing.T) {
	_, ledger, _ := setupLedger(t, nil)

	_, err := ledger.UndoPurchase(context.Background(), 4242)
	requireKind(t, err, KindNotFound, MsgPurchaseNotFound)
}

func TestLedger_BatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	db, ledger, team := setupLedger(t, nil)
	first := newTestItem(t, db, "Audio Kit", 30, 15)
	second := newTestItem(t, db, "Camera Kit", 35, 1)

	t.Run("unknown item", func(t *testing.T) {
		_, err := ledger.PurchaseBatch(ctx, team.ID, []LineItem{
			{ItemID: first.ID, Quantity: 2},
			{ItemID: 9999, Quantity: 1},
		})
		requireKind(t, err, KindNotFound, MsgItemNotFound)
	})

	t.Run("second line out of stock", func(t *testing.T) {
		_, err := ledger.PurchaseBatch(ctx, team.ID, []LineItem{
			{ItemID: first.ID, Quantity: 2},
			{ItemID: second.ID, Quantity: 2},
		})
		requireKind(t, err, KindConflict, MsgInsufficientStock)
	})

	t.Run("invalid quantity on a later line", func(t *testing.T) {
		_, err := ledger.PurchaseBatch(ctx, team.ID, []LineItem{
			{ItemID: first.ID, Quantity: 15},
			{ItemID: second.ID, Quantity: 1},
			{ItemID: first.ID, Quantity: 0},
		})
		requireKind(t, err, KindBadRequest, "")
	})

	assert.Equal(t, int64(15), stockOf(t, db, first.ID))
	assert.Equal(t, int64(1), stockOf(t, db, second.ID))
	assert.Zero(t, purchaseCount(t, db, team.ID))
}

func TestLedger_BatchChecksCombinedQuantityAndBudget(t *testing.T) {
	ctx := context.Background()
	db, ledger, team := setupLedger(t, nil)
	kit := newTestItem(t, db, "Sensor Kit", 100, 8)
	board := newTestItem(t, db, "Board", 300, 5)

	// Two lines for the same item together exceed its stock.
	_, err := ledger.PurchaseBatch(ctx, team.ID, []LineItem{
		{ItemID: kit.ID, Quantity: 5},
		{ItemID: kit.ID, Quantity: 4},
	})
	requireKind(t, err, KindConflict, MsgInsufficientStock)

	// 3*100 + 3*300 = 1200 > 1000, though each line alone fits.
	_, err = ledger.PurchaseBatch(ctx, team.ID, []LineItem{
		{ItemID: kit.ID, Quantity: 3},
		{ItemID: board.ID, Quantity: 3},
	})
	requireKind(t, err, KindConflict, MsgInsufficientBudget)

	purchases, err := ledger.PurchaseBatch(ctx, team.ID, []LineItem{
		{ItemID: kit.ID, Quantity: 2},
		{ItemID: board.ID, Quantity: 2},
		{ItemID: kit.ID, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, purchases, 3)
	assert.Equal(t, int64(5), stockOf(t, db, kit.ID))
	assert.Equal(t, int64(3), stockOf(t, db, board.ID))

	budget, err := ledger.TeamBudget(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), budget.TotalSpent)
}

func TestLedger_EmptyBatch(t *testing.T) {
	_, ledger, team := setupLedger(t, nil)

	_, err := ledger.PurchaseBatch(context.Background(), team.ID, nil)
	requireKind(t, err, KindBadRequest, "")
}

func TestLedger_MarkFulfilledReportsMissingIDs(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	db, ledger, team := setupLedger(t, notifier)
	item := newTestItem(t, db, "Brushed DC Motors", 20, 20)

	first, err := ledger.Purchase(ctx, team.ID, item.ID, 1)
	require.NoError(t, err)
	second, err := ledger.Purchase(ctx, team.ID, item.ID, 2)
	require.NoError(t, err)
	undone, err := ledger.Purchase(ctx, team.ID, item.ID, 1)
	require.NoError(t, err)
	_, err = ledger.UndoPurchase(ctx, undone.ID)
	require.NoError(t, err)

	result, err := ledger.MarkFulfilled(ctx, []uint{first.ID, 777, second.ID, undone.ID}, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{first.ID, second.ID}, result.Updated)
	assert.ElementsMatch(t, []uint{777, undone.ID}, result.Missing)

	views, err := ledger.TeamPurchases(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, view := range views {
		assert.True(t, view.Fulfilled)
		assert.NotNil(t, view.FulfilledAt)
		assert.Equal(t, "Brushed DC Motors", view.ItemName)
	}

	require.Len(t, notifier.notices, 1)
	notice := notifier.notices[0]
	assert.Equal(t, "Solder Squad", notice.TeamName)
	assert.Equal(t, []string{"owner@example.com"}, notice.Recipients)
	assert.Len(t, notice.Lines, 2)

	result, err = ledger.MarkFulfilled(ctx, []uint{first.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, []uint{first.ID}, result.Updated)

	var reverted models.Purchase
	require.NoError(t, db.First(&reverted, first.ID).Error)
	assert.False(t, reverted.Fulfilled)
	assert.Nil(t, reverted.FulfilledAt)
	assert.Len(t, notifier.notices, 1)
}

func TestLedger_MarkFulfilledSurvivesNotifierFailure(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	db, ledger, team := setupLedger(t, notifier)
	item := newTestItem(t, db, "Elegoo Kit", 50, 40)

	purchase, err := ledger.Purchase(ctx, team.ID, item.ID, 1)
	require.NoError(t, err)

	result, err := ledger.MarkFulfilled(ctx, []uint{purchase.ID}, true)
	require.NoError(t, err)
	assert.Equal(t, []uint{purchase.ID}, result.Updated)
	assert.Len(t, notifier.notices, 1)
}

func TestLedger_TeamPurchasesNewestFirst(t *testing.T) {
	ctx := context.Background()
	db, ledger, team := setupLedger(t, nil)
	item := newTestItem(t, db, "Elegoo Kit", 50, 40)

	first, err := ledger.Purchase(ctx, team.ID, item.ID, 1)
	require.NoError(t, err)
	second, err := ledger.Purchase(ctx, team.ID, item.ID, 2)
	require.NoError(t, err)

	views, err := ledger.TeamPurchases(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].ID)
	assert.Equal(t, first.ID, views[1].ID)
}

func TestLedger_StockNeverNegative(t *testing.T) {
	ctx := context.Background()
	db, ledger, team := setupLedger(t, nil)
	item := newTestItem(t, db, "Servo Motors", 5, 4)

	var ids []uint
	for _, qty := range []int64{3, 2, 1, 1} {
		purchase, err := ledger.Purchase(ctx, team.ID, item.ID, qty)
		if err == nil {
			ids = append(ids, purchase.ID)
		} else {
			requireKind(t, err, KindConflict, MsgInsufficientStock)
		}
		assert.GreaterOrEqual(t, stockOf(t, db, item.ID), int64(0))
	}
	assert.Equal(t, int64(0), stockOf(t, db, item.ID))

	for _, id := range ids {
		_, err := ledger.UndoPurchase(ctx, id)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, stockOf(t, db, item.ID), int64(0))
	}
	assert.Equal(t, int64(4), stockOf(t, db, item.ID))
}

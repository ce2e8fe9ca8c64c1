package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"hackportal/models"
	"hackportal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxLineQuantity caps a single checkout line.
const MaxLineQuantity = 1000

// LineItem is one row of a checkout.
type LineItem struct {
	ItemID   uint  `json:"itemId" validate:"required"`
	Quantity int64 `json:"quantity" validate:"required,min=1,max=1000"`
}

// UndoResult reports how much stock an undo put back.
type UndoResult struct {
	RestoredQuantity int64 `json:"restoredQuantity"`
}

// FulfillmentResult lists which ids were updated and which did not exist.
type FulfillmentResult struct {
	Updated []uint `json:"updated"`
	Missing []uint `json:"missing"`
}

// PurchaseView is a team's purchase with the item's display name.
type PurchaseView struct {
	ID          uint       `json:"id"`
	ItemID      uint       `json:"itemId"`
	ItemName    string     `json:"itemName"`
	Quantity    int64      `json:"quantity"`
	UnitCost    int64      `json:"unitCost"`
	TotalCost   int64      `json:"totalCost"`
	PurchasedAt time.Time  `json:"purchasedAt"`
	Fulfilled   bool       `json:"fulfilled"`
	FulfilledAt *time.Time `json:"fulfilledAt"`
}

// Ledger records purchases and is the only writer of catalog stock.
type Ledger struct {
	db       *gorm.DB
	budget   BudgetEngine
	notifier Notifier
}

// NewLedger builds a Ledger. notifier may be nil.
func NewLedger(db *gorm.DB, budget BudgetEngine, notifier Notifier) *Ledger {
	return &Ledger{db: db, budget: budget, notifier: notifier}
}

// Purchase buys quantity units of one item for the team.
func (l *Ledger) Purchase(ctx context.Context, teamID, itemID uint, quantity int64) (*models.Purchase, error) {
	purchases, err := l.PurchaseBatch(ctx, teamID, []LineItem{{ItemID: itemID, Quantity: quantity}})
	if err != nil {
		return nil, err
	}
	return &purchases[0], nil
}

// PurchaseBatch commits every line or none of them. Stock and budget are
// checked against the combined quantities and total.
func (l *Ledger) PurchaseBatch(ctx context.Context, teamID uint, lines []LineItem) ([]models.Purchase, error) {
	if len(lines) == 0 {
		return nil, BadRequest("no items to purchase")
	}
	wanted := make(map[uint]int64, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, BadRequest("quantity must be at least 1")
		}
		if line.Quantity > MaxLineQuantity {
			return nil, BadRequest(fmt.Sprintf("quantity must be at most %d", MaxLineQuantity))
		}
		if wanted[line.ItemID] > math.MaxInt64-line.Quantity {
			return nil, BadRequest("quantity too large")
		}
		wanted[line.ItemID] += line.Quantity
	}

	var purchases []models.Purchase
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialises purchases by the same team so the budget read below
		// cannot be overtaken by a concurrent commit.
		var team models.Team
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&team, teamID).Error; err != nil {
			return storageError(err, MsgTeamNotFound, "")
		}
		if !team.Approved {
			return Forbidden(MsgTeamNotApproved)
		}

		itemIDs := make([]uint, 0, len(wanted))
		for id := range wanted {
			itemIDs = append(itemIDs, id)
		}
		// Fixed order keeps two batches over the same items from deadlocking.
		sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })

		var items []models.HardwareItem
		if err := tx.Where("id IN ?", itemIDs).Order("id ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) != len(itemIDs) {
			return NotFound(MsgItemNotFound)
		}
		byID := make(map[uint]models.HardwareItem, len(items))
		for _, item := range items {
			byID[item.ID] = item
		}

		var total int64
		for _, item := range items {
			if item.Stock < wanted[item.ID] {
				return Conflict(MsgInsufficientStock)
			}
			// A total that cannot be represented is over any budget.
			if item.Cost > 0 && wanted[item.ID] > (math.MaxInt64-total)/item.Cost {
				return Conflict(MsgInsufficientBudget)
			}
			total += item.Cost * wanted[item.ID]
		}

		budget, err := l.budget.Compute(ctx, tx, teamID)
		if err != nil {
			return err
		}
		if total > budget.Remaining {
			return Conflict(MsgInsufficientBudget)
		}

		for _, id := range itemIDs {
			res := tx.Model(&models.HardwareItem{}).
				Where("id = ? AND stock >= ?", id, wanted[id]).
				Update("stock", gorm.Expr("stock - ?", wanted[id]))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return Conflict(MsgInsufficientStock)
			}
		}

		now := time.Now()
		purchases = make([]models.Purchase, 0, len(lines))
		for _, line := range lines {
			item := byID[line.ItemID]
			purchases = append(purchases, models.Purchase{
				TeamID:      teamID,
				ItemID:      item.ID,
				Quantity:    line.Quantity,
				UnitCost:    item.Cost,
				TotalCost:   item.Cost * line.Quantity,
				PurchasedAt: now,
			})
		}
		return tx.Create(&purchases).Error
	})
	if err != nil {
		return nil, storageError(err, "", "")
	}

	utils.LogEvent("purchase_committed", map[string]interface{}{
		"team_id":  teamID,
		"lines":    len(purchases),
		"item_ids": fmt.Sprint(keys(wanted)),
	})
	return purchases, nil
}

// UndoPurchase voids a purchase and restores its stock. A second undo of
// the same id finds nothing to void and fails with NotFound.
func (l *Ledger) UndoPurchase(ctx context.Context, purchaseID uint) (UndoResult, error) {
	var result UndoResult
	var purchase models.Purchase
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&purchase, purchaseID).Error; err != nil {
			return storageError(err, MsgPurchaseNotFound, "")
		}

		res := tx.Where("id = ?", purchaseID).Delete(&models.Purchase{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NotFound(MsgPurchaseNotFound)
		}

		if err := tx.Model(&models.HardwareItem{}).
			Where("id = ?", purchase.ItemID).
			Update("stock", gorm.Expr("stock + ?", purchase.Quantity)).Error; err != nil {
			return err
		}
		result.RestoredQuantity = purchase.Quantity
		return nil
	})
	if err != nil {
		return UndoResult{}, storageError(err, "", "")
	}

	utils.LogEvent("purchase_undone", map[string]interface{}{
		"purchase_id": purchaseID,
		"team_id":     purchase.TeamID,
		"item_id":     purchase.ItemID,
		"restored":    result.RestoredQuantity,
	})
	return result, nil
}

// MarkFulfilled sets the fulfilled flag on every existing id. Unknown or
// undone ids are skipped and reported in Missing.
func (l *Ledger) MarkFulfilled(ctx context.Context, ids []uint, fulfilled bool) (FulfillmentResult, error) {
	result := FulfillmentResult{Updated: []uint{}, Missing: []uint{}}
	if len(ids) == 0 {
		return result, BadRequest("no purchases given")
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found []uint
		if err := tx.Model(&models.Purchase{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
			return err
		}
		present := make(map[uint]bool, len(found))
		for _, id := range found {
			present[id] = true
		}
		for _, id := range ids {
			if present[id] {
				result.Updated = append(result.Updated, id)
			} else {
				result.Missing = append(result.Missing, id)
			}
		}
		if len(result.Updated) == 0 {
			return nil
		}

		var fulfilledAt *time.Time
		if fulfilled {
			now := time.Now()
			fulfilledAt = &now
		}
		return tx.Model(&models.Purchase{}).
			Where("id IN ?", result.Updated).
			Updates(map[string]interface{}{"fulfilled": fulfilled, "fulfilled_at": fulfilledAt}).Error
	})
	if err != nil {
		return FulfillmentResult{}, storageError(err, "", "")
	}

	utils.LogEvent("orders_fulfillment_changed", map[string]interface{}{
		"fulfilled": fulfilled,
		"updated":   len(result.Updated),
		"missing":   len(result.Missing),
	})

	if fulfilled && len(result.Updated) > 0 {
		l.notifyFulfilled(ctx, result.Updated)
	}
	return result, nil
}

// TeamBudget computes the team's budget outside any purchase.
func (l *Ledger) TeamBudget(ctx context.Context, teamID uint) (Budget, error) {
	return l.budget.Compute(ctx, l.db, teamID)
}

// TeamPurchases lists a team's live purchases, newest first.
func (l *Ledger) TeamPurchases(ctx context.Context, teamID uint) ([]PurchaseView, error) {
	var views []PurchaseView
	err := l.db.WithContext(ctx).Model(&models.Purchase{}).
		Select("purchases.id, purchases.item_id, hardware_items.name AS item_name, purchases.quantity, " +
			"purchases.unit_cost, purchases.total_cost, purchases.purchased_at, purchases.fulfilled, purchases.fulfilled_at").
		Joins("JOIN hardware_items ON hardware_items.id = purchases.item_id").
		Where("purchases.team_id = ?", teamID).
		Order("purchases.purchased_at DESC").Order("purchases.id DESC").
		Scan(&views).Error
	if err != nil {
		return nil, storageError(err, "", "")
	}
	return views, nil
}

// notifyFulfilled mails each affected team. Failures are logged only; the
// fulfillment itself has already committed.
func (l *Ledger) notifyFulfilled(ctx context.Context, ids []uint) {
	if l.notifier == nil {
		return
	}

	var rows []struct {
		TeamID   uint
		TeamName string
		ItemName string
		Quantity int64
	}
	err := l.db.WithContext(ctx).Model(&models.Purchase{}).
		Select("purchases.team_id, teams.name AS team_name, hardware_items.name AS item_name, purchases.quantity").
		Joins("JOIN teams ON teams.id = purchases.team_id").
		Joins("JOIN hardware_items ON hardware_items.id = purchases.item_id").
		Where("purchases.id IN ?", ids).
		Order("purchases.team_id ASC").
		Scan(&rows).Error
	if err != nil {
		utils.LogError("fulfillment_notice_lookup", err, nil)
		return
	}

	notices := make(map[uint]*utils.FulfillmentNotice)
	var order []uint
	for _, row := range rows {
		notice, ok := notices[row.TeamID]
		if !ok {
			notice = &utils.FulfillmentNotice{TeamName: row.TeamName}
			notices[row.TeamID] = notice
			order = append(order, row.TeamID)
		}
		notice.Lines = append(notice.Lines, utils.FulfilledLine{ItemName: row.ItemName, Quantity: row.Quantity})
	}

	for _, teamID := range order {
		notice := notices[teamID]
		if err := l.db.WithContext(ctx).Model(&models.TeamMember{}).
			Joins("JOIN users ON users.id = team_members.user_id").
			Where("team_members.team_id = ?", teamID).
			Pluck("users.email", &notice.Recipients).Error; err != nil {
			utils.LogError("fulfillment_notice_lookup", err, map[string]interface{}{"team_id": teamID})
			continue
		}
		if len(notice.Recipients) == 0 {
			continue
		}
		if err := l.notifier.OrdersFulfilled(ctx, *notice); err != nil {
			utils.LogError("fulfillment_notice_send", err, map[string]interface{}{"team_id": teamID})
		}
	}
}

func keys(m map[uint]int64) []uint {
	out := make([]uint, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

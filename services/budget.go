package services

import (
	"context"

	"hackportal/models"

	"gorm.io/gorm"
)

// Budget is a team's spending position, derived on every call.
type Budget struct {
	MaxBudget   int64 `json:"maxBudget"`
	TotalSpent  int64 `json:"totalSpent"`
	Remaining   int64 `json:"remaining"`
	MemberCount int   `json:"memberCount"`
}

// BudgetEngine derives budgets from membership and purchase history.
type BudgetEngine struct {
	BaseRate  int64 // dollars per member
	MemberCap int   // members beyond this add nothing
}

// MaxBudget is BaseRate * min(members, MemberCap).
func (e BudgetEngine) MaxBudget(members int) int64 {
	if members < 0 {
		members = 0
	}
	if members > e.MemberCap {
		members = e.MemberCap
	}
	return e.BaseRate * int64(members)
}

// Compute reads membership and non-undone spend through db. Inside a
// purchase transaction db is the transaction, so the figures are the
// ones the commit will be checked against.
func (e BudgetEngine) Compute(ctx context.Context, db *gorm.DB, teamID uint) (Budget, error) {
	var members int64
	if err := db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("team_id = ?", teamID).
		Count(&members).Error; err != nil {
		return Budget{}, storageError(err, "", "")
	}

	var spent int64
	if err := db.WithContext(ctx).Model(&models.Purchase{}).
		Where("team_id = ?", teamID).
		Select("COALESCE(SUM(total_cost), 0)").
		Scan(&spent).Error; err != nil {
		return Budget{}, storageError(err, "", "")
	}

	maxBudget := e.MaxBudget(int(members))
	return Budget{
		MaxBudget:   maxBudget,
		TotalSpent:  spent,
		Remaining:   maxBudget - spent,
		MemberCount: int(members),
	}, nil
}

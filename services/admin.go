package services

import (
	"context"
	"time"

	"hackportal/models"

	"gorm.io/gorm"
)

// OrderView is a purchase joined with its team and item for the admin
// order list.
type OrderView struct {
	ID           uint       `json:"id"`
	TeamID       uint       `json:"teamId"`
	TeamName     string     `json:"teamName"`
	ItemID       uint       `json:"itemId"`
	ItemName     string     `json:"itemName"`
	ItemCategory string     `json:"itemCategory"`
	Quantity     int64      `json:"quantity"`
	TotalCost    int64      `json:"totalCost"`
	PurchasedAt  time.Time  `json:"purchasedAt"`
	Fulfilled    bool       `json:"fulfilled"`
	FulfilledAt  *time.Time `json:"fulfilledAt"`
}

// TeamSummary is one row of the admin team list.
type TeamSummary struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Approved    bool      `json:"approved"`
	CreatedAt   time.Time `json:"createdAt"`
	MemberCount int       `json:"memberCount"`
	TotalSpent  int64     `json:"totalSpent"`
	MaxBudget   int64     `json:"maxBudget"`
}

// Stats backs the admin dashboard.
type Stats struct {
	TotalUsers            int64   `json:"totalUsers"`
	TotalSaves            int64   `json:"totalSaves"`
	UsersWithProfiles     int64   `json:"usersWithProfiles"`
	ProfileCompletionRate float64 `json:"profileCompletionRate"`
	RecentUsers           int64   `json:"recentUsers"`
	RecentSaves           int64   `json:"recentSaves"`
}

// SaveView is a profile save with both parties' names.
type SaveView struct {
	ID         uint      `json:"id"`
	ViewerName string    `json:"viewerName"`
	ViewerUUID string    `json:"viewerUuid"`
	ViewedName string    `json:"viewedName"`
	ViewedUUID string    `json:"viewedUuid"`
	SavedAt    time.Time `json:"savedAt"`
}

const recentWindow = 7 * 24 * time.Hour

// AdminOversight holds the admin-only reads. Writes go through
// TeamDirectory and Ledger; callers check the allow-list first.
type AdminOversight struct {
	db     *gorm.DB
	budget BudgetEngine
}

func NewAdminOversight(db *gorm.DB, budget BudgetEngine) *AdminOversight {
	return &AdminOversight{db: db, budget: budget}
}

// ListOrders returns every live purchase, newest first.
func (a *AdminOversight) ListOrders(ctx context.Context) ([]OrderView, error) {
	var orders []OrderView
	err := a.db.WithContext(ctx).Model(&models.Purchase{}).
		Select("purchases.id, purchases.team_id, teams.name AS team_name, purchases.item_id, " +
			"hardware_items.name AS item_name, hardware_items.category AS item_category, purchases.quantity, " +
			"purchases.total_cost, purchases.purchased_at, purchases.fulfilled, purchases.fulfilled_at").
		Joins("JOIN teams ON teams.id = purchases.team_id").
		Joins("JOIN hardware_items ON hardware_items.id = purchases.item_id").
		Order("purchases.purchased_at DESC").Order("purchases.id DESC").
		Scan(&orders).Error
	if err != nil {
		return nil, storageError(err, "", "")
	}
	return orders, nil
}

// ListTeams returns every team, including empty ones, by creation time.
func (a *AdminOversight) ListTeams(ctx context.Context) ([]TeamSummary, error) {
	var teams []TeamSummary
	err := a.db.WithContext(ctx).Model(&models.Team{}).
		Select("teams.id, teams.name, teams.approved, teams.created_at, " +
			"(SELECT COUNT(*) FROM team_members WHERE team_members.team_id = teams.id) AS member_count, " +
			"(SELECT COALESCE(SUM(total_cost), 0) FROM purchases WHERE purchases.team_id = teams.id AND purchases.deleted_at IS NULL) AS total_spent").
		Order("teams.created_at DESC").Order("teams.id DESC").
		Scan(&teams).Error
	if err != nil {
		return nil, storageError(err, "", "")
	}
	for i := range teams {
		teams[i].MaxBudget = a.budget.MaxBudget(teams[i].MemberCount)
	}
	return teams, nil
}

func (a *AdminOversight) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	db := a.db.WithContext(ctx)
	since := time.Now().Add(-recentWindow)

	if err := db.Model(&models.User{}).Count(&s.TotalUsers).Error; err != nil {
		return Stats{}, storageError(err, "", "")
	}
	if err := db.Model(&models.ProfileSave{}).Count(&s.TotalSaves).Error; err != nil {
		return Stats{}, storageError(err, "", "")
	}
	if err := db.Model(&models.User{}).Where("resume_ref <> ''").Count(&s.UsersWithProfiles).Error; err != nil {
		return Stats{}, storageError(err, "", "")
	}
	if err := db.Model(&models.User{}).Where("created_at >= ?", since).Count(&s.RecentUsers).Error; err != nil {
		return Stats{}, storageError(err, "", "")
	}
	if err := db.Model(&models.ProfileSave{}).Where("saved_at >= ?", since).Count(&s.RecentSaves).Error; err != nil {
		return Stats{}, storageError(err, "", "")
	}

	if s.TotalUsers > 0 {
		s.ProfileCompletionRate = float64(s.UsersWithProfiles) / float64(s.TotalUsers) * 100
	}
	return s, nil
}

// RecentUsers returns the newest sign-ups.
func (a *AdminOversight) RecentUsers(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	if err := a.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, storageError(err, "", "")
	}
	return users, nil
}

// RecentSaves returns the newest profile saves across all users.
func (a *AdminOversight) RecentSaves(ctx context.Context, limit int) ([]SaveView, error) {
	var saves []SaveView
	err := a.db.WithContext(ctx).Model(&models.ProfileSave{}).
		Select("profile_saves.id, viewer.name AS viewer_name, viewer.uuid AS viewer_uuid, " +
			"viewed.name AS viewed_name, viewed.uuid AS viewed_uuid, profile_saves.saved_at").
		Joins("JOIN users AS viewer ON viewer.id = profile_saves.viewer_user_id").
		Joins("JOIN users AS viewed ON viewed.id = profile_saves.viewed_user_id").
		Order("profile_saves.saved_at DESC").Order("profile_saves.id DESC").
		Limit(limit).
		Scan(&saves).Error
	if err != nil {
		return nil, storageError(err, "", "")
	}
	return saves, nil
}

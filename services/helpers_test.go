package services

import (
	"context"
	"path/filepath"
	"testing"

	"hackportal/models"
	"hackportal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testBudget = BudgetEngine{BaseRate: 1000, MemberCap: 4}

// newTestDB opens a migrated sqlite database in a temp dir. A single
// connection serialises transactions the way row locks do in postgres.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "portal.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: email, UUID: uuid.NewString(), Role: role}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTestItem(t *testing.T, db *gorm.DB, name string, cost, stock int64) *models.HardwareItem {
	t.Helper()
	item := &models.HardwareItem{Name: name, Cost: cost, Stock: stock, Category: "Test"}
	require.NoError(t, db.Create(item).Error)
	return item
}

func newDirectory(db *gorm.DB) *TeamDirectory {
	return NewTeamDirectory(db, BcryptHasher{Cost: bcrypt.MinCost})
}

// newApprovedTeam creates an approved team whose only member is owner.
func newApprovedTeam(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.Team {
	t.Helper()
	dir := newDirectory(db)
	team, err := dir.CreateTeam(context.Background(), owner, name, "secret")
	require.NoError(t, err)
	require.NoError(t, dir.ApproveTeam(context.Background(), team.ID, true))
	return team
}

func stockOf(t *testing.T, db *gorm.DB, itemID uint) int64 {
	t.Helper()
	var item models.HardwareItem
	require.NoError(t, db.First(&item, itemID).Error)
	return item.Stock
}

func purchaseCount(t *testing.T, db *gorm.DB, teamID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Purchase{}).Where("team_id = ?", teamID).Count(&count).Error)
	return count
}

func requireKind(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
	if msg != "" {
		require.Equal(t, msg, err.Error())
	}
}

type recordingNotifier struct {
	notices []utils.FulfillmentNotice
	err     error
}

func (r *recordingNotifier) OrdersFulfilled(_ context.Context, notice utils.FulfillmentNotice) error {
	r.notices = append(r.notices, notice)
	return r.err
}

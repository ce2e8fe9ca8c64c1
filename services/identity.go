package services

import (
	"context"
	"strings"

	"hackportal/models"
	"hackportal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdentityResolver maps identity-provider logins onto local users.
type IdentityResolver struct {
	db *gorm.DB
}

func NewIdentityResolver(db *gorm.DB) *IdentityResolver {
	return &IdentityResolver{db: db}
}

// ResolveIdentity returns the user with email, creating it with an unset
// role on first login. Emails are matched exactly.
func (r *IdentityResolver) ResolveIdentity(ctx context.Context, email, displayName string) (*models.User, error) {
	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}

	candidate := models.User{
		Email: email,
		Name:  displayName,
		UUID:  uuid.NewString(),
		Role:  models.RoleUnset,
	}

	// Concurrent first logins for one email both land here; the loser's
	// insert is a no-op and it reads the winner's row.
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&candidate)
	if res.Error != nil {
		return nil, storageError(res.Error, "", "")
	}

	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, storageError(err, "", "")
	}

	if res.RowsAffected == 1 {
		utils.LogEvent("identity_created", map[string]interface{}{
			"user_id": user.ID,
			"email":   user.Email,
		})
	}
	return &user, nil
}

// UserByID is the session boundary's lookup.
func (r *IdentityResolver) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, storageError(err, "user not found", "")
	}
	return &user, nil
}

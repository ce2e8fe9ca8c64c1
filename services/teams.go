package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"hackportal/models"
	"hackportal/utils"

	"gorm.io/gorm"
)

// TeamDirectory owns team creation and membership.
type TeamDirectory struct {
	db     *gorm.DB
	hasher PasswordHasher
}

func NewTeamDirectory(db *gorm.DB, hasher PasswordHasher) *TeamDirectory {
	return &TeamDirectory{db: db, hasher: hasher}
}

// TeamMemberView is a member as shown on the team page.
type TeamMemberView struct {
	ID       uint      `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	UUID     string    `json:"uuid"`
	JoinedAt time.Time `json:"joined_at"`
}

func requireParticipant(user *models.User) error {
	if user == nil {
		return Unauthorized("not authenticated")
	}
	if user.Role != models.RoleParticipant {
		return Forbidden(MsgParticipantsOnly)
	}
	return nil
}

// CreateTeam creates a team with user as its first member. The team is
// never visible without that member.
func (d *TeamDirectory) CreateTeam(ctx context.Context, user *models.User, name, password string) (*models.Team, error) {
	if err := requireParticipant(user); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, BadRequest("team name and password are required")
	}

	hash, err := d.hasher.Hash(password)
	if err != nil {
		return nil, storageError(err, "", "")
	}

	team := &models.Team{
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNoMembership(tx, user.ID); err != nil {
			return err
		}

		var taken int64
		if err := tx.Model(&models.Team{}).Where("name = ?", name).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return Conflict(MsgTeamNameTaken)
		}

		if err := tx.Create(team).Error; err != nil {
			return storageError(err, "", MsgTeamNameTaken)
		}

		member := &models.TeamMember{
			TeamID:   team.ID,
			UserID:   user.ID,
			JoinedAt: time.Now(),
		}
		return storageError(tx.Create(member).Error, "", MsgAlreadyInTeam)
	})
	if err != nil {
		return nil, storageError(err, "", "")
	}

	utils.LogEvent("team_created", map[string]interface{}{
		"team_id": team.ID,
		"name":    team.Name,
		"user_id": user.ID,
	})
	return team, nil
}

// JoinTeam adds user to the team called name if password matches.
func (d *TeamDirectory) JoinTeam(ctx context.Context, user *models.User, name, password string) (*models.Team, error) {
	if err := requireParticipant(user); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, BadRequest("team name and password are required")
	}

	if err := ensureNoMembership(d.db.WithContext(ctx), user.ID); err != nil {
		return nil, storageError(err, "", "")
	}

	var team models.Team
	if err := d.db.WithContext(ctx).Where("name = ?", name).First(&team).Error; err != nil {
		return nil, storageError(err, MsgTeamNotFound, "")
	}

	if !d.hasher.Matches(team.PasswordHash, password) {
		return nil, Unauthorized(MsgIncorrectPassword)
	}

	member := &models.TeamMember{
		TeamID:   team.ID,
		UserID:   user.ID,
		JoinedAt: time.Now(),
	}
	// The unique index on user_id settles a race with a concurrent join.
	if err := d.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, storageError(err, "", MsgAlreadyInTeam)
	}

	utils.LogEvent("team_joined", map[string]interface{}{
		"team_id": team.ID,
		"user_id": user.ID,
	})
	return &team, nil
}

// LeaveTeam removes user's membership. The team itself stays, with its
// name reserved and its purchase history intact.
func (d *TeamDirectory) LeaveTeam(ctx context.Context, user *models.User) error {
	if user == nil {
		return Unauthorized("not authenticated")
	}
	res := d.db.WithContext(ctx).Where("user_id = ?", user.ID).Delete(&models.TeamMember{})
	if res.Error != nil {
		return storageError(res.Error, "", "")
	}
	if res.RowsAffected == 0 {
		return NotFound(MsgNotInTeam)
	}

	utils.LogEvent("team_left", map[string]interface{}{
		"user_id": user.ID,
	})
	return nil
}

// TeamForUser returns the user's team, or nil when they have none.
func (d *TeamDirectory) TeamForUser(ctx context.Context, user *models.User) (*models.Team, error) {
	if user == nil {
		return nil, nil
	}
	var team models.Team
	err := d.db.WithContext(ctx).
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", user.ID).
		First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(err, "", "")
	}
	return &team, nil
}

// Members lists a team's members in join order.
func (d *TeamDirectory) Members(ctx context.Context, teamID uint) ([]TeamMemberView, error) {
	var members []TeamMemberView
	err := d.db.WithContext(ctx).Model(&models.TeamMember{}).
		Select("users.id, users.name, users.email, users.uuid, team_members.joined_at").
		Joins("JOIN users ON users.id = team_members.user_id").
		Where("team_members.team_id = ?", teamID).
		Order("team_members.joined_at ASC").
		Scan(&members).Error
	if err != nil {
		return nil, storageError(err, "", "")
	}
	return members, nil
}

// ApproveTeam sets the approval flag. Setting the current value succeeds.
func (d *TeamDirectory) ApproveTeam(ctx context.Context, teamID uint, approved bool) error {
	var team models.Team
	if err := d.db.WithContext(ctx).First(&team, teamID).Error; err != nil {
		return storageError(err, MsgTeamNotFound, "")
	}
	if team.Approved == approved {
		return nil
	}
	if err := d.db.WithContext(ctx).Model(&team).Update("approved", approved).Error; err != nil {
		return storageError(err, "", "")
	}

	utils.LogEvent("team_approval_changed", map[string]interface{}{
		"team_id":  team.ID,
		"approved": approved,
	})
	return nil
}

func ensureNoMembership(db *gorm.DB, userID uint) error {
	var count int64
	if err := db.Model(&models.TeamMember{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return Conflict(MsgAlreadyInTeam)
	}
	return nil
}

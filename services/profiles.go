package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"hackportal/models"
	"hackportal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxResumeSize caps resume uploads.
const MaxResumeSize = 5 << 20

// ResumeUpload is a resume file taken from a multipart form.
type ResumeUpload struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// ProfileUpdate carries the optional fields of a profile edit.
type ProfileUpdate struct {
	Name   string
	Resume *ResumeUpload
}

// Profiles owns role selection, profile edits and profile saves.
type Profiles struct {
	db      *gorm.DB
	resumes ResumeStore
}

// NewProfiles builds Profiles. resumes may be nil, in which case uploads
// are rejected.
func NewProfiles(db *gorm.DB, resumes ResumeStore) *Profiles {
	return &Profiles{db: db, resumes: resumes}
}

// SelectRole sets the user's role. A role can be chosen only once.
func (p *Profiles) SelectRole(ctx context.Context, user *models.User, role models.Role) (*models.User, error) {
	if user == nil {
		return nil, Unauthorized("not authenticated")
	}
	if !role.Valid() {
		return nil, BadRequest("role must be participant or sponsor")
	}

	res := p.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND role = ?", user.ID, models.RoleUnset).
		Update("role", role)
	if res.Error != nil {
		return nil, storageError(res.Error, "", "")
	}
	if res.RowsAffected == 0 {
		return nil, Conflict("role already selected")
	}

	user.Role = role
	return user, nil
}

// UpdateProfile applies the name and stores a new resume, if given.
func (p *Profiles) UpdateProfile(ctx context.Context, user *models.User, update ProfileUpdate) (*models.User, error) {
	if user == nil {
		return nil, Unauthorized("not authenticated")
	}

	fields := map[string]interface{}{}
	if name := strings.TrimSpace(update.Name); name != "" {
		fields["name"] = name
	}

	if update.Resume != nil {
		if p.resumes == nil {
			return nil, BadRequest("resume uploads are not available")
		}
		if update.Resume.ContentType != "application/pdf" {
			return nil, BadRequest("resume must be a PDF")
		}
		if update.Resume.Size <= 0 || update.Resume.Size > MaxResumeSize {
			return nil, BadRequest("resume must be smaller than 5MB")
		}

		key := fmt.Sprintf("resumes/%s/%d.pdf", user.UUID, time.Now().Unix())
		if err := p.resumes.Put(ctx, key, update.Resume.ContentType, update.Resume.Body, update.Resume.Size); err != nil {
			return nil, fmt.Errorf("%w: store resume: %v", ErrInternal, err)
		}
		fields["resume_ref"] = key
	}

	if len(fields) == 0 {
		return user, nil
	}
	if err := p.db.WithContext(ctx).Model(user).Updates(fields).Error; err != nil {
		return nil, storageError(err, "", "")
	}
	return user, nil
}

// ProfileByUUID looks a user up by their public profile id.
func (p *Profiles) ProfileByUUID(ctx context.Context, uuid string) (*models.User, error) {
	var user models.User
	if err := p.db.WithContext(ctx).Where("uuid = ?", uuid).First(&user).Error; err != nil {
		return nil, storageError(err, "profile not found", "")
	}
	return &user, nil
}

// SaveProfile bookmarks the profile with uuid for viewer. Saving twice is
// not an error.
func (p *Profiles) SaveProfile(ctx context.Context, viewer *models.User, uuid string) error {
	if viewer == nil {
		return Unauthorized("not authenticated")
	}
	viewed, err := p.ProfileByUUID(ctx, uuid)
	if err != nil {
		return err
	}
	if viewed.ID == viewer.ID {
		return BadRequest("cannot save your own profile")
	}

	save := models.ProfileSave{
		ViewerUserID: viewer.ID,
		ViewedUserID: viewed.ID,
		SavedAt:      time.Now(),
	}
	err = p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "viewer_user_id"}, {Name: "viewed_user_id"}},
			DoNothing: true,
		}).
		Create(&save).Error
	return storageError(err, "", "")
}

// ListSaves returns the profiles viewer has saved, newest first.
func (p *Profiles) ListSaves(ctx context.Context, viewer *models.User) ([]SaveView, error) {
	var saves []SaveView
	err := p.db.WithContext(ctx).Model(&models.ProfileSave{}).
		Select("profile_saves.id, viewer.name AS viewer_name, viewer.uuid AS viewer_uuid, " +
			"viewed.name AS viewed_name, viewed.uuid AS viewed_uuid, profile_saves.saved_at").
		Joins("JOIN users AS viewer ON viewer.id = profile_saves.viewer_user_id").
		Joins("JOIN users AS viewed ON viewed.id = profile_saves.viewed_user_id").
		Where("profile_saves.viewer_user_id = ?", viewer.ID).
		Order("profile_saves.saved_at DESC").Order("profile_saves.id DESC").
		Scan(&saves).Error
	if err != nil {
		return nil, storageError(err, "", "")
	}
	return saves, nil
}

// CanSave reports whether viewer may still save viewed: logged in, not
// themselves, and not saved already.
func (p *Profiles) CanSave(ctx context.Context, viewer, viewed *models.User) (bool, error) {
	if viewer == nil || viewed == nil || viewer.ID == viewed.ID {
		return false, nil
	}
	var count int64
	err := p.db.WithContext(ctx).Model(&models.ProfileSave{}).
		Where("viewer_user_id = ? AND viewed_user_id = ?", viewer.ID, viewed.ID).
		Count(&count).Error
	if err != nil {
		return false, storageError(err, "", "")
	}
	return count == 0, nil
}

// ResumeURL returns a short-lived download link for a user's resume.
func (p *Profiles) ResumeURL(ctx context.Context, uuid string) (string, error) {
	user, err := p.ProfileByUUID(ctx, uuid)
	if err != nil {
		return "", err
	}
	if user.ResumeRef == "" || p.resumes == nil {
		return "", NotFound("resume not found")
	}
	url, err := p.resumes.URL(ctx, user.ResumeRef)
	if err != nil {
		utils.LogError("resume_url", err, map[string]interface{}{"uuid": uuid})
		return "", fmt.Errorf("%w: resume url: %v", ErrInternal, err)
	}
	return url, nil
}

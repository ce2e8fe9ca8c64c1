package services

import (
	"context"
	"io"
	"strings"

	"hackportal/models"
	"hackportal/utils"

	"golang.org/x/crypto/bcrypt"
)

// AdminAllowList is the configured set of admin emails.
type AdminAllowList map[string]struct{}

// NewAdminAllowList normalises emails (trimmed, lower case) and drops blanks.
func NewAdminAllowList(emails []string) AdminAllowList {
	list := make(AdminAllowList, len(emails))
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		list[email] = struct{}{}
	}
	return list
}

// IsAdmin reports whether user's email is on the list.
func (l AdminAllowList) IsAdmin(user *models.User) bool {
	if user == nil {
		return false
	}
	_, ok := l[strings.ToLower(strings.TrimSpace(user.Email))]
	return ok
}

// PasswordHasher turns team passwords into one-way hashes and checks
// candidates against them.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Matches(hash, candidate string) bool
}

// BcryptHasher is the production PasswordHasher.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h BcryptHasher) Matches(hash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

// Notifier tells teams their orders are ready. Delivery is best effort.
type Notifier interface {
	OrdersFulfilled(ctx context.Context, notice utils.FulfillmentNotice) error
}

// ResumeStore keeps uploaded resumes outside the database.
type ResumeStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	URL(ctx context.Context, key string) (string, error)
}

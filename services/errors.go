package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind classifies a failed core operation so callers can branch on it.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is returned by every core operation that fails for a reason the
// caller can act on. Message is safe to show to the user verbatim.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func BadRequest(msg string) error   { return &Error{Kind: KindBadRequest, Message: msg} }
func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Message: msg} }
func Forbidden(msg string) error    { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) error     { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) error     { return &Error{Kind: KindConflict, Message: msg} }

// ErrInternal wraps storage failures. Its message is never shown to users.
var ErrInternal = errors.New("internal error")

// Messages shared between operations and asserted on by tests.
const (
	MsgInsufficientStock  = "insufficient stock"
	MsgInsufficientBudget = "insufficient budget"
	MsgAlreadyInTeam      = "you are already in a team, leave your current team first"
	MsgTeamNameTaken      = "team name already taken"
	MsgTeamNotFound       = "team not found"
	MsgIncorrectPassword  = "incorrect team password"
	MsgNotInTeam          = "you are not in a team"
	MsgItemNotFound       = "item not found"
	MsgPurchaseNotFound   = "purchase not found"
	MsgTeamNotApproved    = "your team is pending admin approval"
	MsgParticipantsOnly   = "only participants can form teams"
)

// KindOf returns the kind of err, KindInternal for anything untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// storageError maps gorm failures onto the taxonomy. Lost races on unique
// indexes come back as duplicate keys and surface as conflicts.
func storageError(err error, notFoundMsg, conflictMsg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFoundMsg != "" {
		return NotFound(notFoundMsg)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) && conflictMsg != "" {
		return Conflict(conflictMsg)
	}
	return fmt.Errorf("%w: %v", ErrInternal, err)
}

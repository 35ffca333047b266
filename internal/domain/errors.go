package domain

import (
	"errors"
	"fmt"
)

// RejectReason classifies an expected, user-facing refusal of an operation.
type RejectReason int

const (
	ReasonBelowFloor RejectReason = iota + 1
	ReasonInvalidAmount
	ReasonSessionEnded
	ReasonNotOwner
	ReasonNotFound
	ReasonUnknownSession
	ReasonInvalidBidder
)

func (r RejectReason) String() string {
	switch r {
	case ReasonBelowFloor:
		return "below_floor"
	case ReasonInvalidAmount:
		return "invalid_amount"
	case ReasonSessionEnded:
		return "session_ended"
	case ReasonNotOwner:
		return "not_owner"
	case ReasonNotFound:
		return "not_found"
	case ReasonUnknownSession:
		return "unknown_session"
	case ReasonInvalidBidder:
		return "invalid_bidder"
	default:
		return "unknown"
	}
}

func (r RejectReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

var defaultMessages = map[RejectReason]string{
	ReasonBelowFloor:     "Bid must be greater than the cash offer",
	ReasonInvalidAmount:  "Bid amount must be a positive number",
	ReasonSessionEnded:   "This auction has ended",
	ReasonNotOwner:       "You can only withdraw your own bid",
	ReasonNotFound:       "No live bid found",
	ReasonUnknownSession: "Auction session not found",
	ReasonInvalidBidder:  "Dealer id is required",
}

// Rejection is returned when an operation is refused for a business reason.
// It is a normal outcome to show the dealer, not a fault.
type Rejection struct {
	Reason RejectReason
	Detail string
}

func Reject(reason RejectReason, format string, args ...interface{}) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return "rejected: " + r.Reason.String()
	}
	return fmt.Sprintf("rejected: %s: %s", r.Reason, r.Detail)
}

// Message is the text shown to the dealer.
func (r *Rejection) Message() string {
	if r.Detail != "" {
		return r.Detail
	}
	return defaultMessages[r.Reason]
}

// Is matches any rejection with the same reason, so the sentinels below work
// with errors.Is regardless of detail text.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

var (
	ErrBelowFloor      = &Rejection{Reason: ReasonBelowFloor}
	ErrInvalidAmount   = &Rejection{Reason: ReasonInvalidAmount}
	ErrSessionEnded    = &Rejection{Reason: ReasonSessionEnded}
	ErrNotOwner        = &Rejection{Reason: ReasonNotOwner}
	ErrBidNotFound     = &Rejection{Reason: ReasonNotFound}
	ErrSessionNotFound = &Rejection{Reason: ReasonUnknownSession}
	ErrInvalidBidder   = &Rejection{Reason: ReasonInvalidBidder}
)

// AsRejection unwraps err to a *Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// Infrastructure errors
var (
	ErrSessionExists  = errors.New("session already exists")
	ErrRecordNotFound = errors.New("record not found")
)

// PersistenceError reports a storage write that failed after the in-memory
// state already committed. The committed state stands; the write is retried.
type PersistenceError struct {
	Op    string
	BidID string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s for bid %s: %v", e.Op, e.BidID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

package domain

import (
	"fmt"
	"strings"
)

type SessionMode int

const (
	ModeForward SessionMode = iota + 1
	ModeReverse
)

func (m SessionMode) String() string {
	switch m {
	case ModeForward:
		return "forward"
	case ModeReverse:
		return "reverse"
	default:
		return "unknown"
	}
}

func ParseSessionMode(s string) (SessionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward":
		return ModeForward, nil
	case "reverse":
		return ModeReverse, nil
	default:
		return 0, fmt.Errorf("unknown session mode %q", s)
	}
}

func (m SessionMode) MarshalText() ([]byte, error) {
	if m != ModeForward && m != ModeReverse {
		return nil, fmt.Errorf("invalid session mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *SessionMode) UnmarshalText(text []byte) error {
	parsed, err := ParseSessionMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

type SessionStatus int

const (
	SessionActive SessionStatus = iota + 1
	SessionEnded
)

func (s SessionStatus) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionEnded:
		return "ended"
	default:
		return "unknown"
	}
}

func (s SessionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SessionStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "active":
		*s = SessionActive
	case "ended":
		*s = SessionEnded
	default:
		return fmt.Errorf("unknown session status %q", string(text))
	}
	return nil
}

type BidStatus int

const (
	BidLive BidStatus = iota + 1
	BidWithdrawn
	// BidAccepted and BidRejected are assigned by the acceptance workflow
	// after a session ends, never by the engine.
	BidAccepted
	BidRejected
)

func (s BidStatus) String() string {
	switch s {
	case BidLive:
		return "live"
	case BidWithdrawn:
		return "withdrawn"
	case BidAccepted:
		return "accepted"
	case BidRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

func ParseBidStatus(s string) (BidStatus, error) {
	switch s {
	case "live":
		return BidLive, nil
	case "withdrawn":
		return BidWithdrawn, nil
	case "accepted":
		return BidAccepted, nil
	case "rejected":
		return BidRejected, nil
	default:
		return 0, fmt.Errorf("unknown bid status %q", s)
	}
}

func (s BidStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *BidStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseBidStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"auction-system/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	monetaryPrecision int32 = 2 // cents

	// MaxPerksLength caps the free-text perks of a reverse-mode offer, in characters.
	MaxPerksLength = 500
)

// NormalizeAmount rounds a currency amount to cents.
func NormalizeAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(monetaryPrecision)
}

// ParseAmount parses a user-supplied amount. "$7,726.00" and "7726" are both
// accepted; anything unparseable is an InvalidAmount rejection.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero, domain.Reject(domain.ReasonInvalidAmount, "Bid amount is required")
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, domain.Reject(domain.ReasonInvalidAmount, "Bid amount %q is not a number", raw)
	}
	return amount, nil
}

// BidValidator decides whether a proposed bid is admissible. It never
// compares against other bids: forward mode checks the floor only and reverse
// mode leaves competitiveness to the ranking.
type BidValidator struct{}

func NewBidValidator() *BidValidator {
	return &BidValidator{}
}

// Validate returns nil or a *domain.Rejection. It does not mutate session.
func (v *BidValidator) Validate(session *domain.Session, bidderID string, amount decimal.Decimal, now time.Time) error {
	if strings.TrimSpace(bidderID) == "" {
		return domain.ErrInvalidBidder
	}

	if session.Status == domain.SessionEnded || !now.Before(session.Deadline) {
		return domain.ErrSessionEnded
	}

	amount = NormalizeAmount(amount)
	if !amount.IsPositive() {
		return domain.Reject(domain.ReasonInvalidAmount, "Bid amount must be a positive number")
	}

	if session.Mode == domain.ModeForward {
		floor := NormalizeAmount(session.FloorPrice)
		if amount.LessThanOrEqual(floor) {
			return domain.Reject(domain.ReasonBelowFloor,
				"Bid must be greater than the cash offer of $%s", floor.StringFixed(monetaryPrecision))
		}
	}

	return nil
}

// ValidatePerks rejects perks text longer than MaxPerksLength.
func (v *BidValidator) ValidatePerks(perks string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(perks)); n > MaxPerksLength {
		return domain.Reject(domain.ReasonInvalidAmount,
			"Perks must be at most %d characters, got %d", MaxPerksLength, n)
	}
	return nil
}

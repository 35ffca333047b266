package services

import (
	"context"
	"sync"
	"time"

	"auction-system/internal/domain"
	"auction-system/pkg/logger"

	"github.com/shopspring/decimal"
)

var t0 = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testSession(mode domain.SessionMode, floor string, deadline time.Time) domain.Session {
	return domain.Session{
		ID: "session_test",
		Listing: domain.Listing{
			ID:    "listing_1",
			Title: "2019 Honda Civic EX",
			Year:  2019,
			Make:  "Honda",
			Model: "Civic",
			Price: dec(floor),
		},
		Mode:       mode,
		FloorPrice: dec(floor),
		Deadline:   deadline,
		Status:     domain.SessionActive,
		CreatedAt:  t0,
	}
}

func newForward(floor string) *AuctionSession {
	return NewAuctionSession(testSession(domain.ModeForward, floor, t0.Add(time.Hour)), NewBidValidator())
}

func newReverse(price string) *AuctionSession {
	return NewAuctionSession(testSession(domain.ModeReverse, price, t0.Add(time.Hour)), NewBidValidator())
}

// recordingSink counts session-ended notifications.
type recordingSink struct {
	mu     sync.Mutex
	events []*domain.AuctionEvent
	err    error
}

func (s *recordingSink) SessionEnded(_ context.Context, event *domain.AuctionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// recordingLogger keeps every message so tests can assert on them.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
	fields   [][]interface{}
}

func (l *recordingLogger) record(msg string, kv []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
	l.fields = append(l.fields, kv)
}

func (l *recordingLogger) Info(msg string, kv ...interface{})  { l.record(msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...interface{}) { l.record(msg, kv) }
func (l *recordingLogger) Debug(msg string, kv ...interface{}) { l.record(msg, kv) }
func (l *recordingLogger) Warn(msg string, kv ...interface{})  { l.record(msg, kv) }
func (l *recordingLogger) Fatal(msg string, kv ...interface{}) { l.record(msg, kv) }
func (l *recordingLogger) With(...interface{}) logger.Logger   { return l }
func (l *recordingLogger) Sync() error                         { return nil }

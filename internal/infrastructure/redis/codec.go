package redis

import (
	"encoding/json"
	"fmt"

	"auction-system/internal/domain"
)

func encodeEvent(event *domain.AuctionEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	return data, nil
}

func decodeEvent(payload string) (*domain.AuctionEvent, error) {
	var event domain.AuctionEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}
	if event.SessionID == "" || event.Type == "" {
		return nil, fmt.Errorf("invalid event payload: missing session id or type")
	}
	return &event, nil
}

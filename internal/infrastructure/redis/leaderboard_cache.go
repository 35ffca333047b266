package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"auction-system/internal/domain"

	"github.com/go-redis/redis/v8"
)

// The leaderboard is written only if its version is newer than the cached
// one, so concurrent writers from racing commits cannot regress it.
var setLeaderboardScript = redis.NewScript(`
	local current = redis.call('HGET', KEYS[1], 'version')
	if current ~= false and tonumber(current) >= tonumber(ARGV[1]) then
		return 0
	end
	redis.call('HSET', KEYS[1], 'version', ARGV[1], 'board', ARGV[2])
	return 1
`)

type RedisLeaderboardCache struct {
	client *redis.Client
}

func NewRedisLeaderboardCache(client *redis.Client) *RedisLeaderboardCache {
	return &RedisLeaderboardCache{client: client}
}

func leaderboardKey(sessionID string) string {
	return fmt.Sprintf("session:%s:leaderboard", sessionID)
}

func statusKey(sessionID string) string {
	return fmt.Sprintf("session:%s:status", sessionID)
}

func (r *RedisLeaderboardCache) SetLeaderboard(ctx context.Context, board *domain.Leaderboard) error {
	data, err := json.Marshal(board)
	if err != nil {
		return err
	}

	return setLeaderboardScript.Run(ctx, r.client, []string{leaderboardKey(board.SessionID)},
		strconv.FormatInt(board.Version, 10), data).Err()
}

func (r *RedisLeaderboardCache) GetLeaderboard(ctx context.Context, sessionID string) (*domain.Leaderboard, error) {
	data, err := r.client.HGet(ctx, leaderboardKey(sessionID), "board").Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var board domain.Leaderboard
	if err := json.Unmarshal(data, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *RedisLeaderboardCache) SetSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	return r.client.Set(ctx, statusKey(sessionID), int(status), 0).Err()
}

func (r *RedisLeaderboardCache) GetSessionStatus(ctx context.Context, sessionID string) (domain.SessionStatus, error) {
	result, err := r.client.Get(ctx, statusKey(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, domain.ErrSessionNotFound
		}
		return 0, err
	}

	status, err := strconv.Atoi(result)
	if err != nil {
		return 0, err
	}

	return domain.SessionStatus(status), nil
}

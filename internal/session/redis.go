package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// RedisKV はセッションをRedisに保存するKV実装です。
// 複数プロセスでセッションを共有する場合に使います。
type RedisKV struct {
	rdb *redis.Client
}

// NewRedisKV は RedisKV を作成します。
func NewRedisKV(rdb *redis.Client) *RedisKV {
	return &RedisKV{rdb: rdb}
}

// Get はセッションデータを取得します。
func (s *RedisKV) Get(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Set はセッションデータをTTL付きで保存します。
func (s *RedisKV) Set(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	return s.rdb.Set(ctx, sessionKey(id), data, ttl).Err()
}

// Delete はセッションデータを削除します。
func (s *RedisKV) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

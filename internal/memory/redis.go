package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "conversation:"

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) History(ctx context.Context, sessionID string) ([]Message, error) {
	items, err := s.client.LRange(ctx, sessionKeyPrefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(items))
	for _, item := range items {
		m, err := decodeMessage(item)
		if err != nil {
			return nil, fmt.Errorf("corrupt message in session %s: %w", sessionID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := encodeMessage(m)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	return s.client.RPush(ctx, sessionKeyPrefix+sessionID, values...).Err()
}

// encodeMessage and decodeMessage fix the wire form of a stored message.
// Every list element in Redis is one JSON-encoded Message.
func encodeMessage(m Message) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeMessage(item string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(item), &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

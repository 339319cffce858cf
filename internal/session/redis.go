package session

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/cwbudde/algo-keytune/internal/metrics"
)

const (
	redisBackend = "redis"
	keyPrefix    = "keytune:session:"
)

// RedisStore keeps snappy-compressed gob entries in redis so several
// server instances can share sessions.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to addr and checks the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 10 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "session: redis ping")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Put(ctx context.Context, e *Entry) error {
	data, err := encodeEntry(e)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+e.Token, data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "session: redis set")
	}
	metrics.SessionsStored.With(prometheus.Labels{"backend": redisBackend}).Inc()
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Entry, error) {
	data, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "session: redis get")
	}
	return decodeEntry(data)
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, keyPrefix+token).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeEntry(e *Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, errors.Wrap(err, "session: encoding entry")
	}
	return snappy.Encode(nil, buf.Bytes()), nil
}

func decodeEntry(data []byte) (*Entry, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrap(err, "session: decompressing entry")
	}
	e := &Entry{}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(e); err != nil {
		return nil, errors.Wrap(err, "session: decoding entry")
	}
	return e, nil
}

package redis

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/callstore"
	goredis "github.com/redis/go-redis/v9"
)

// Config holds the Redis settings of the transcript sink
type Config struct {
	Addr      string `json:"addr" env:"REDIS_ADDR"`
	Password  string `json:"password" env:"REDIS_PASSWORD"`
	DB        int    `json:"db" env:"REDIS_DB"`
	KeyPrefix string `json:"key_prefix" env:"REDIS_KEY_PREFIX"`
	TTLSec    int    `json:"ttl_sec" env:"REDIS_TTL_SEC"`
	MaxRecent int    `json:"max_recent" env:"REDIS_MAX_RECENT"`
}

type commands interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	LPush(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *goredis.StatusCmd
}

// TranscriptStore keeps the record of recent calls in Redis: one key per
// call holding the JSON record, and a list of the most recent call ids
type TranscriptStore struct {
	rdb  commands
	conf Config
}

// NewClient connects to Redis and checks the connection
func NewClient(ctx context.Context, conf Config) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// NewTranscriptStore returns a store on rdb
func NewTranscriptStore(rdb *goredis.Client, conf Config) *TranscriptStore {
	return newTranscriptStore(rdb, conf)
}

func newTranscriptStore(rdb commands, conf Config) *TranscriptStore {
	if conf.KeyPrefix == "" {
		conf.KeyPrefix = "voice:"
	}
	if conf.MaxRecent <= 0 {
		conf.MaxRecent = 1000
	}
	return &TranscriptStore{rdb: rdb, conf: conf}
}

// CallKey is the key holding the record of callID
func (s *TranscriptStore) CallKey(callID string) string {
	return s.conf.KeyPrefix + "call:" + callID
}

// RecentKey is the list of the most recent call ids, newest first
func (s *TranscriptStore) RecentKey() string {
	return s.conf.KeyPrefix + "calls:recent"
}

// Name identifies the sink in logs
func (s *TranscriptStore) Name() string { return "redis" }

// Store writes the record and pushes the call id on the recent list
func (s *TranscriptStore) Store(ctx context.Context, rec *callstore.CallRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := time.Duration(s.conf.TTLSec) * time.Second
	if err := s.rdb.Set(ctx, s.CallKey(rec.CallID), data, ttl).Err(); err != nil {
		return err
	}
	if err := s.rdb.LPush(ctx, s.RecentKey(), rec.CallID).Err(); err != nil {
		return err
	}
	return s.rdb.LTrim(ctx, s.RecentKey(), 0, int64(s.conf.MaxRecent-1)).Err()
}

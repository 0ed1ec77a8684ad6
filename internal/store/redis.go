package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/metrics"
)

const (
	roomSeqKey  = "darkroom:room_seq"
	roomsSetKey = "darkroom:rooms"
	disbandsKey = "darkroom:disbands"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps rooms as JSON strings, the id sequence as a counter and
// disband deadlines in a sorted set scored by unix millis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func roomKey(id domain.RoomID) string {
	return fmt.Sprintf("darkroom:room:%s", id)
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) NextRoomSeq(ctx context.Context) (int64, error) {
	defer observe(time.Now())
	n, err := s.client.Incr(ctx, roomSeqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("next room seq: %w", err)
	}
	return n, nil
}

func (s *RedisStore) SaveRoom(ctx context.Context, room domain.Room) error {
	defer observe(time.Now())
	room.MemberCount = 0
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, roomKey(room.ID), data, 0)
		pipe.SAdd(ctx, roomsSetKey, string(room.ID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("save room %s: %w", room.ID, err)
	}
	return nil
}

func (s *RedisStore) DeleteRoom(ctx context.Context, id domain.RoomID) error {
	defer observe(time.Now())
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, roomKey(id))
		pipe.SRem(ctx, roomsSetKey, string(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete room %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) LoadRooms(ctx context.Context) ([]domain.Room, error) {
	defer observe(time.Now())
	ids, err := s.client.SMembers(ctx, roomsSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load room ids: %w", err)
	}
	rooms := make([]domain.Room, 0, len(ids))
	for _, id := range ids {
		data, err := s.client.Get(ctx, roomKey(domain.RoomID(id))).Bytes()
		if errors.Is(err, redis.Nil) {
			// Set member without a body; drop it so the set heals.
			s.client.SRem(ctx, roomsSetKey, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load room %s: %w", id, err)
		}
		var r domain.Room
		if err := json.Unmarshal(data, &r); err != nil {
			log.Error().Err(err).Str("module", "store.redis").Str("room", id).Msg("skipping corrupt room")
			continue
		}
		rooms = append(rooms, r)
	}
	return rooms, nil
}

func (s *RedisStore) ScheduleDisband(ctx context.Context, id domain.RoomID, at time.Time) error {
	defer observe(time.Now())
	err := s.client.ZAdd(ctx, disbandsKey, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: string(id),
	}).Err()
	if err != nil {
		return fmt.Errorf("schedule disband %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) RemoveDisband(ctx context.Context, id domain.RoomID) error {
	defer observe(time.Now())
	if err := s.client.ZRem(ctx, disbandsKey, string(id)).Err(); err != nil {
		return fmt.Errorf("remove disband %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) PendingDisbands(ctx context.Context) ([]Disband, error) {
	defer observe(time.Now())
	zs, err := s.client.ZRangeWithScores(ctx, disbandsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("pending disbands: %w", err)
	}
	out := make([]Disband, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, Disband{RoomID: domain.RoomID(id), At: time.UnixMilli(int64(z.Score))})
	}
	return out, nil
}

func observe(start time.Time) {
	metrics.StoreLatency.Observe(time.Since(start).Seconds())
}

package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "receptionist:"

// Each booking is a hash {prefix}booking:{id} with a JSON "data" field and a
// separate "status" field; {prefix}bookings:order lists ids in insertion order.
var (
	createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'data', ARGV[2], 'status', ARGV[3])
redis.call('RPUSH', KEYS[2], ARGV[1])
return 1
`)

	updateStatusScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
redis.call('HSET', KEYS[1], 'status', ARGV[1])
return redis.call('HMGET', KEYS[1], 'data', 'status')
`)

	listScript = redis.NewScript(`
local ids = redis.call('LRANGE', KEYS[1], 0, -1)
local out = {}
for _, id in ipairs(ids) do
  local v = redis.call('HMGET', ARGV[1] .. id, 'data', 'status')
  if v[1] then
    table.insert(out, v[1])
    table.insert(out, v[2])
  end
end
return out
`)
)

type redisRecord struct {
	ID              string    `json:"id"`
	GuestName       string    `json:"guestName"`
	PhoneNumber     string    `json:"phoneNumber"`
	Email           string    `json:"email,omitempty"`
	Service         string    `json:"service"`
	Notes           string    `json:"notes,omitempty"`
	StartTime       time.Time `json:"startTime"`
	StartZone       string    `json:"startZone"`
	DurationMinutes int       `json:"durationMinutes"`
	CreatedAt       time.Time `json:"createdAt"`
}

// RedisStore persists bookings in Redis. Every operation runs as a single
// script so writes are atomic and List sees a consistent snapshot.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisStoreWithClient(client, defaultRedisPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client. The store takes ownership
// and closes the client on Close.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) bookingKey(id string) string { return s.prefix + "booking:" + id }
func (s *RedisStore) orderKey() string          { return s.prefix + "bookings:order" }

func (s *RedisStore) Create(ctx context.Context, draft Draft) (Booking, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return Booking{}, err
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		record := newBooking(uuid.NewString(), draft, time.Now().UTC())
		data, err := json.Marshal(toRedisRecord(record))
		if err != nil {
			return Booking{}, fmt.Errorf("encode booking: %w", err)
		}
		created, err := createScript.Run(ctx, s.client,
			[]string{s.bookingKey(record.ID), s.orderKey()},
			record.ID, string(data), string(record.Status),
		).Int()
		if err != nil {
			return Booking{}, fmt.Errorf("insert booking: %w", err)
		}
		if created == 1 {
			return record, nil
		}
	}
	return Booking{}, fmt.Errorf("insert booking: no free id after %d attempts", maxIDAttempts)
}

func (s *RedisStore) List(ctx context.Context) ([]Booking, error) {
	flat, err := listScript.Run(ctx, s.client, []string{s.orderKey()}, s.prefix+"booking:").StringSlice()
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out := make([]Booking, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		record, err := decodeRedisBooking(flat[i], flat[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Booking, bool, error) {
	vals, err := s.client.HMGet(ctx, s.bookingKey(id), "data", "status").Result()
	if err != nil {
		return Booking{}, false, fmt.Errorf("get booking: %w", err)
	}
	data, ok := vals[0].(string)
	if !ok {
		return Booking{}, false, nil
	}
	status, _ := vals[1].(string)
	record, err := decodeRedisBooking(data, status)
	if err != nil {
		return Booking{}, false, err
	}
	return record, true, nil
}

func (s *RedisStore) UpdateStatus(ctx context.Context, id string, status Status) (Booking, bool, error) {
	if !status.Valid() {
		return Booking{}, false, &ValidationError{Fields: []FieldError{{Field: "status", Rule: "oneof"}}}
	}
	vals, err := updateStatusScript.Run(ctx, s.client, []string{s.bookingKey(id)}, string(status)).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Booking{}, false, nil
		}
		return Booking{}, false, fmt.Errorf("update booking status: %w", err)
	}
	if len(vals) != 2 {
		return Booking{}, false, fmt.Errorf("update booking status: unexpected reply length %d", len(vals))
	}
	record, err := decodeRedisBooking(vals[0], vals[1])
	if err != nil {
		return Booking{}, false, err
	}
	return record, true, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func toRedisRecord(b Booking) redisRecord {
	return redisRecord{
		ID:              b.ID,
		GuestName:       b.GuestName,
		PhoneNumber:     b.PhoneNumber,
		Email:           b.Email,
		Service:         b.Service,
		Notes:           b.Notes,
		StartTime:       b.StartTime,
		StartZone:       b.StartTime.Location().String(),
		DurationMinutes: b.DurationMinutes,
		CreatedAt:       b.CreatedAt,
	}
}

func decodeRedisBooking(data, status string) (Booking, error) {
	var rec redisRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return Booking{}, fmt.Errorf("decode booking: %w", err)
	}
	_, offset := rec.StartTime.Zone()
	return Booking{
		ID:              rec.ID,
		GuestName:       rec.GuestName,
		PhoneNumber:     rec.PhoneNumber,
		Email:           rec.Email,
		Service:         rec.Service,
		Notes:           rec.Notes,
		StartTime:       restoreZone(rec.StartTime, rec.StartZone, offset),
		DurationMinutes: rec.DurationMinutes,
		Status:          Status(status),
		CreatedAt:       rec.CreatedAt,
	}, nil
}

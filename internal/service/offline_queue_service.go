package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"kbr-hospital-backend/internal/domain/entity"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// OfflineQueueKey is the redis list holding bookings awaiting replay
const OfflineQueueKey = "offline:bookings"

// rotateScript atomically pops the head entry and pushes its updated payload
// (attempt counter bumped) to the tail. A plain LPOP+RPUSH pair would drop
// the entry if the process died between the two calls.
//
// The Redis Go client automatically uses EVALSHA after the first call.
var rotateScript = redis.NewScript(`
	local head = redis.call('LPOP', KEYS[1])
	if head then
		redis.call('RPUSH', KEYS[1], ARGV[1])
	end
	return head
`)

// OfflineQueue is the durable FIFO buffer of bookings made without
// connectivity. Entries stay queued until SyncPending replays them through
// the authoritative store.
type OfflineQueue interface {
	Enqueue(ctx context.Context, booking *entity.OfflineBooking) error
	Peek(ctx context.Context) (*entity.OfflineBooking, error)
	PopHead(ctx context.Context) error
	RotateHead(ctx context.Context, updated *entity.OfflineBooking) error
	Len(ctx context.Context) (int64, error)
	Pending(ctx context.Context) ([]entity.OfflineBooking, error)
}

type offlineQueueService struct {
	redisClient *redis.Client
	log         *logrus.Logger
}

func NewOfflineQueueService(redisClient *redis.Client, log *logrus.Logger) OfflineQueue {
	return &offlineQueueService{
		redisClient: redisClient,
		log:         log,
	}
}

func (s *offlineQueueService) Enqueue(ctx context.Context, booking *entity.OfflineBooking) error {
	payload, err := json.Marshal(booking)
	if err != nil {
		return fmt.Errorf("marshal offline booking: %w", err)
	}

	if err := s.redisClient.RPush(ctx, OfflineQueueKey, payload).Err(); err != nil {
		s.log.Warnf("Failed to enqueue offline booking %s: %+v", booking.ClientRef, err)
		return fmt.Errorf("enqueue offline booking: %w", err)
	}

	s.log.Infof("Offline booking queued: client_ref=%s, token=%s", booking.ClientRef, booking.FallbackToken)
	return nil
}

func (s *offlineQueueService) Peek(ctx context.Context) (*entity.OfflineBooking, error) {
	payload, err := s.redisClient.LIndex(ctx, OfflineQueueKey, 0).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("peek offline queue: %w", err)
	}

	var booking entity.OfflineBooking
	if err := json.Unmarshal([]byte(payload), &booking); err != nil {
		return nil, fmt.Errorf("unmarshal offline booking: %w", err)
	}
	return &booking, nil
}

func (s *offlineQueueService) PopHead(ctx context.Context) error {
	if err := s.redisClient.LPop(ctx, OfflineQueueKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("pop offline queue head: %w", err)
	}
	return nil
}

// RotateHead moves the head entry to the tail so the rest of the batch can
// proceed while the failed entry waits for the next replay.
func (s *offlineQueueService) RotateHead(ctx context.Context, updated *entity.OfflineBooking) error {
	payload, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("marshal offline booking: %w", err)
	}

	if err := rotateScript.Run(ctx, s.redisClient, []string{OfflineQueueKey}, payload).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warnf("Failed to rotate offline queue head: %+v", err)
		return fmt.Errorf("rotate offline queue head: %w", err)
	}
	return nil
}

func (s *offlineQueueService) Len(ctx context.Context) (int64, error) {
	n, err := s.redisClient.LLen(ctx, OfflineQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("offline queue length: %w", err)
	}
	return n, nil
}

func (s *offlineQueueService) Pending(ctx context.Context) ([]entity.OfflineBooking, error) {
	payloads, err := s.redisClient.LRange(ctx, OfflineQueueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list offline queue: %w", err)
	}

	bookings := make([]entity.OfflineBooking, 0, len(payloads))
	for _, payload := range payloads {
		var booking entity.OfflineBooking
		if err := json.Unmarshal([]byte(payload), &booking); err != nil {
			s.log.Warnf("Skipping malformed offline queue entry: %+v", err)
			continue
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

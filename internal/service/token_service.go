package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"kbr-hospital-backend/config"
	"kbr-hospital-backend/internal/domain/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SequenceCounterID is the single shared counter record backing all
// appointment tokens
const SequenceCounterID = "appointment_tokens"

// counterSeedRetries bounds retries when two first-ever allocations race to
// create the counter row
const counterSeedRetries = 3

// TokenService issues appointment token numbers from the shared persisted
// counter. Only the counter requires serialized mutation; everything else in
// the system is partitioned by identity.
type TokenService struct {
	db        *gorm.DB
	log       *logrus.Logger
	tokenRepo repository.TokenRepository
	cfg       config.TokenConfig
}

func NewTokenService(db *gorm.DB, log *logrus.Logger, tokenRepo repository.TokenRepository, cfg config.TokenConfig) *TokenService {
	return &TokenService{
		db:        db,
		log:       log,
		tokenRepo: tokenRepo,
		cfg:       cfg,
	}
}

// NextToken allocates the next token number against the authoritative
// counter. Safe under concurrent callers: the increment and read-back run in
// one transaction, so no two calls ever observe the same value. Callers that
// must not fail the booking use FallbackToken when this returns an error.
func (s *TokenService) NextToken(ctx context.Context) (string, error) {
	var err error
	for attempt := 0; attempt < counterSeedRetries; attempt++ {
		var value int64
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			v, bumpErr := s.tokenRepo.BumpCounter(tx, SequenceCounterID)
			if bumpErr != nil {
				return bumpErr
			}
			value = v
			return nil
		})
		if err == nil {
			return s.Format(value), nil
		}
		if !isDuplicateKeyError(err) {
			break
		}
		// Lost the race to seed the counter row; the row exists now, retry
	}

	s.log.Warnf("Failed to allocate token from counter %s: %+v", SequenceCounterID, err)
	return "", fmt.Errorf("next token: %w", err)
}

// Format renders a counter value as a token number, e.g. 1 -> "KBR-001"
func (s *TokenService) Format(value int64) string {
	return fmt.Sprintf("%s-%0*d", s.cfg.Prefix, s.cfg.Pad, value)
}

// FallbackToken mints an offline placeholder token from low-order timestamp
// digits plus a random two-digit suffix. The "-OFF-" segment keeps the format
// disjoint from the online sequence; the placeholder is discarded when the
// booking is replayed through the authoritative counter.
func (s *TokenService) FallbackToken() string {
	millis := time.Now().UnixMilli() % 1000000

	b := make([]byte, 1)
	rand.Read(b)
	suffix := int(b[0]) % 100

	return fmt.Sprintf("%s-OFF-%06d%02d", s.cfg.Prefix, millis, suffix)
}

// IsFallbackToken reports whether a token number came from the offline
// fallback format rather than the authoritative sequence
func (s *TokenService) IsFallbackToken(tokenNumber string) bool {
	prefix := s.cfg.Prefix + "-OFF-"
	return len(tokenNumber) > len(prefix) && tokenNumber[:len(prefix)] == prefix
}

// isDuplicateKeyError checks if the error is a unique constraint violation.
// Covers both raw PostgreSQL errors and gorm's translated sentinel, since
// tests run against sqlite.
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const probeTimeout = 2 * time.Second

// ConnectivityProbe answers whether the authoritative store is reachable
// right now. Booking never blocks on connectivity: a negative answer routes
// the booking through the offline buffer instead of failing it.
type ConnectivityProbe interface {
	Online(ctx context.Context) bool
}

type dbProbe struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewDBProbe(db *gorm.DB, log *logrus.Logger) ConnectivityProbe {
	return &dbProbe{db: db, log: log}
}

func (p *dbProbe) Online(ctx context.Context) bool {
	sqlDB, err := p.db.DB()
	if err != nil {
		return false
	}

	pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		p.log.Warnf("Storage unreachable, routing bookings offline: %+v", err)
		return false
	}
	return true
}

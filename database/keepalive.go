package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultKeepAliveSchedule is short enough to beat the idle reaper of
// managed Postgres hosts.
const DefaultKeepAliveSchedule = "@every 4m"

// KeepAlive periodically runs a no-op query so pooled connections are not
// reclaimed while the API is idle. Failures are logged and never stop the
// schedule.
type KeepAlive struct {
	db      *sql.DB
	cron    *cron.Cron
	timeout time.Duration
	logger  zerolog.Logger
}

func NewKeepAlive(db *sql.DB, schedule string) (*KeepAlive, error) {
	k := &KeepAlive{
		db:      db,
		cron:    cron.New(),
		timeout: 10 * time.Second,
		logger:  log.With().Str("component", "keepAlive").Logger(),
	}

	if _, err := k.cron.AddFunc(schedule, k.run); err != nil {
		return nil, fmt.Errorf("schedule keep-alive %q: %w", schedule, err)
	}
	return k, nil
}

func (k *KeepAlive) run() {
	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()

	if err := k.Ping(ctx); err != nil {
		k.logger.Warn().Err(err).Msg("database keep-alive failed")
		return
	}
	k.logger.Debug().Msg("database keep-alive ok")
}

func (k *KeepAlive) Ping(ctx context.Context) error {
	_, err := k.db.ExecContext(ctx, "SELECT 1")
	return err
}

func (k *KeepAlive) Start() {
	k.cron.Start()
}

// Stop halts the schedule and waits for a running ping to finish.
func (k *KeepAlive) Stop() {
	<-k.cron.Stop().Done()
}

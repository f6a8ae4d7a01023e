// jobs.go
//
// LUVNEST, a love page builder and viewer service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of luvnest.
// luvnest is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// luvnest is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with luvnest.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package jobs runs the periodic maintenance tasks of the server.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron"
	"github.com/rs/zerolog"
)

// Schedules for the maintenance jobs.
const (
	EvictSchedule = "@every 1m"
	PruneSchedule = "@daily"
)

// attemptRetention is how long password attempts are kept.
const attemptRetention = 24 * time.Hour

// jobTimeout bounds a single job run.
const jobTimeout = time.Minute

// SessionEvicter closes builder sessions idle for longer than idle.
type SessionEvicter interface {
	EvictIdle(ctx context.Context, idle time.Duration) int
}

// AttemptPruner deletes old password attempts.
type AttemptPruner interface {
	Prune(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Runner owns the cron scheduler.
type Runner struct {
	cron     *cron.Cron
	sessions SessionEvicter
	attempts AttemptPruner
	idle     time.Duration
	log      zerolog.Logger
}

// New registers the jobs. Nothing runs until Start.
func New(sessions SessionEvicter, attempts AttemptPruner, idle time.Duration, log zerolog.Logger) (*Runner, error) {
	r := &Runner{
		cron:     cron.NewWithLocation(time.UTC),
		sessions: sessions,
		attempts: attempts,
		idle:     idle,
		log:      log.With().Str("component", "jobs").Logger(),
	}
	if err := r.cron.AddFunc(EvictSchedule, r.EvictSessions); err != nil {
		return nil, fmt.Errorf("failed to schedule session eviction: %w", err)
	}
	if err := r.cron.AddFunc(PruneSchedule, r.PruneAttempts); err != nil {
		return nil, fmt.Errorf("failed to schedule attempt pruning: %w", err)
	}
	return r, nil
}

// Start runs the scheduler in the background.
func (r *Runner) Start() {
	r.cron.Start()
	r.log.Info().Int("jobs", len(r.cron.Entries())).Msg("jobs started")
}

// Stop halts the scheduler. Running jobs are not interrupted.
func (r *Runner) Stop() {
	r.cron.Stop()
}

// EvictSessions closes idle builder sessions.
func (r *Runner) EvictSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if n := r.sessions.EvictIdle(ctx, r.idle); n > 0 {
		r.log.Info().Int("sessions", n).Msg("evicted idle builder sessions")
	}
}

// PruneAttempts removes password attempts past retention.
func (r *Runner) PruneAttempts() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := r.attempts.Prune(ctx, attemptRetention)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to prune password attempts")
		return
	}
	r.log.Info().Int64("attempts", n).Msg("pruned password attempts")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pdiddy/pack-sync/internal/notify"
	"github.com/pdiddy/pack-sync/internal/runlock"
)

// stopTimeout bounds how long Schedule waits for a running tick on exit.
const stopTimeout = 30 * time.Second

// Job is one scheduled sync.
type Job func(ctx context.Context)

// ParseSchedule validates a cron spec: five standard fields or a
// descriptor such as "@hourly" or "@every 30m".
func ParseSchedule(spec string) (cron.Schedule, error) {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Schedule runs job on every tick of spec until ctx is done. A tick that
// finds guard held by another run is skipped with a warning.
func Schedule(ctx context.Context, spec string, guard *runlock.Guard, r notify.Reporter, job Job) error {
	if r == nil {
		r = notify.Discard
	}
	sched, err := ParseSchedule(spec)
	if err != nil {
		return err
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(printfReporter{r}))))
	c.Schedule(sched, cron.FuncJob(Guarded(ctx, guard, r, job)))
	c.Start()
	r.Infof("scheduled sync %q; next run at %s", spec, sched.Next(time.Now()).Format(time.RFC3339))

	<-ctx.Done()
	r.Infof("stopping scheduler")
	select {
	case <-c.Stop().Done():
	case <-time.After(stopTimeout):
		r.Warnf("scheduler stop timed out after %v", stopTimeout)
	}
	return nil
}

// Guarded wraps job so that it only runs while holding guard.
func Guarded(ctx context.Context, guard *runlock.Guard, r notify.Reporter, job Job) func() {
	return func() {
		release, err := guard.TryAcquire("scheduled")
		if errors.Is(err, runlock.ErrAlreadyRunning) {
			r.Warnf("skipping scheduled sync: %v", err)
			return
		}
		if err != nil {
			r.Errorf("scheduled sync: %v", err)
			return
		}
		defer release()
		job(ctx)
	}
}

// printfReporter lets cron report recovered panics through a Reporter.
type printfReporter struct{ r notify.Reporter }

func (p printfReporter) Printf(format string, args ...any) { p.r.Errorf(format, args...) }

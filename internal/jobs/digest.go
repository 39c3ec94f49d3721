// Package jobs runs scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crewcall/internal/domain"

	"github.com/robfig/cron/v3"
)

const digestTimeout = time.Minute

// VacancyDigest mails the list of open crew slots on a cron schedule.
type VacancyDigest struct {
	vacancies domain.VacancyService
	notifier  domain.NotificationService
	to        string
	logger    *slog.Logger
	cron      *cron.Cron
}

// NewVacancyDigest schedules the digest. spec is a standard five-field cron expression evaluated in loc.
func NewVacancyDigest(spec, to string, loc *time.Location,
	vacancies domain.VacancyService,
	notifier domain.NotificationService,
	logger *slog.Logger,
) (*VacancyDigest, error) {
	if to == "" {
		return nil, fmt.Errorf("%w: vacancy digest needs a recipient", domain.ErrInvalidInput)
	}
	d := &VacancyDigest{
		vacancies: vacancies,
		notifier:  notifier,
		to:        to,
		logger:    logger,
		cron:      cron.New(cron.WithLocation(loc)),
	}
	if _, err := d.cron.AddFunc(spec, func() { _ = d.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("%w: vacancy digest schedule %q: %w", domain.ErrInvalidInput, spec, err)
	}
	return d, nil
}

// Start runs the scheduler in its own goroutine.
func (d *VacancyDigest) Start() {
	d.cron.Start()
}

// Stop halts the scheduler and waits for a running digest to finish or ctx to end.
func (d *VacancyDigest) Stop(ctx context.Context) {
	select {
	case <-d.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce builds and sends one digest. Failures are logged and returned; an empty result sends nothing.
func (d *VacancyDigest) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, digestTimeout)
	defer cancel()

	result, err := d.vacancies.ListVacantEvents(ctx, nil, 0, 0, false)
	if err != nil {
		d.logger.WarnContext(ctx, "vacancy digest query failed", "err", err)
		return err
	}
	if result.VacantSlotCount == 0 {
		d.logger.InfoContext(ctx, "vacancy digest skipped, no open slots")
		return nil
	}
	if err := d.notifier.SendVacancyDigest(ctx, d.to, result); err != nil {
		d.logger.WarnContext(ctx, "vacancy digest send failed", "to", d.to, "err", err)
		return err
	}
	d.logger.InfoContext(ctx, "vacancy digest sent", "to", d.to, "events", len(result.Events), "slots", result.VacantSlotCount)
	return nil
}

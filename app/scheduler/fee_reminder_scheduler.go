// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	businessflow "github.com/kwameosei/shulegate/business_flow"
	"github.com/kwameosei/shulegate/repository"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// FeeReminder describes one guardian to nudge about an outstanding balance
type FeeReminder struct {
	GuardianName  string
	GuardianPhone string
	StudentName   string
	AmountDue     uint64 // cents
	DueDate       string
}

// ReminderSource yields the due fee reminders for a tenant. Schools plug in
// their own finance backend here; the scheduler only cares about the list.
type ReminderSource interface {
	DueReminders(ctx context.Context, tenantID uint) ([]FeeReminder, error)
}

// FeeReminderScheduler periodically fans out fee reminders for every active
// tenant through the dispatch pipeline. Each reminder goes through the full
// policy and balance checks, so a school that disabled fee_reminders or ran
// out of credit is skipped or failed per message, never crashed.
type FeeReminderScheduler struct {
	tenantRepo repository.TenantRepository
	source     ReminderSource
	triggers   *businessflow.Triggers
	logger     *log.Logger
	interval   time.Duration
	workers    int
}

func NewFeeReminderScheduler(
	tenantRepo repository.TenantRepository,
	source ReminderSource,
	triggers *businessflow.Triggers,
	interval time.Duration,
	workers int,
) *FeeReminderScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if workers <= 0 {
		workers = 8
	}

	s := &FeeReminderScheduler{
		tenantRepo: tenantRepo,
		source:     source,
		triggers:   triggers,
		interval:   interval,
		workers:    workers,
	}
	s.initSchedulerLogger()
	return s
}

// initSchedulerLogger configures a logger that writes to both stdout and a rotating file under data/
func (s *FeeReminderScheduler) initSchedulerLogger() {
	rotating := &lumberjack.Logger{
		Filename:   filepath.Join("data", "fee_reminder_scheduler.log"),
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	mw := io.MultiWriter(os.Stdout, rotating)
	s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *FeeReminderScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *FeeReminderScheduler) runOnce(ctx context.Context) {
	// Pick up a fresh export on sources that cache between ticks
	if r, ok := s.source.(interface{ Reset() }); ok {
		r.Reset()
	}

	const pageSize = 100
	for offset := 0; ; offset += pageSize {
		tenants, err := s.tenantRepo.ListActiveTenants(ctx, pageSize, offset)
		if err != nil {
			s.logger.Printf("scheduler: list active tenants failed: %v", err)
			return
		}
		if len(tenants) == 0 {
			return
		}
		s.logger.Printf("scheduler: running fee reminders for %d active tenants", len(tenants))

		for _, tenant := range tenants {
			t := tenant
			if err := s.remindTenant(ctx, t.ID, t.Slug); err != nil {
				s.logger.Printf("scheduler: tenant=%s fee reminders failed: %v", t.Slug, err)
			}
		}
		if len(tenants) < pageSize {
			return
		}
	}
}

// remindTenant fans out one tenant's reminders over a bounded worker pool.
// The whole batch waits before the next tenant starts so one large school
// cannot starve the others of transport throughput.
func (s *FeeReminderScheduler) remindTenant(ctx context.Context, tenantID uint, slug string) error {
	reminders, err := s.source.DueReminders(ctx, tenantID)
	if err != nil {
		return err
	}
	if len(reminders) == 0 {
		return nil
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		sem     = make(chan struct{}, s.workers)
		sent    int
		skipped int
		failed  int
	)

	for _, reminder := range reminders {
		if ctx.Err() != nil {
			break
		}
		r := reminder
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			resp, err := s.triggers.FeeReminder(ctx, tenantID, r.GuardianName, r.GuardianPhone, r.StudentName, r.AmountDue, r.DueDate)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failed++
				s.logger.Printf("scheduler: tenant=%s reminder to %s failed: %v", slug, r.GuardianPhone, err)
			case resp.Status == "sent":
				sent++
			case resp.Status == "skipped":
				skipped++
			default:
				failed++
			}
		}()
	}
	wg.Wait()

	s.logger.Printf("scheduler: tenant=%s reminders done sent=%d skipped=%d failed=%d total=%d",
		slug, sent, skipped, failed, len(reminders))
	return nil
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	ledgerapp "github.com/debtflow/backend/internal/application/ledger"
)

// cronTickerInterval is the interval at which the cron loop checks for execution
const cronTickerInterval = 1 * time.Minute

// RecalculationRunner executes a full payment-score recalculation pass.
// resumeAfter restarts an interrupted run from its checkpoint.
type RecalculationRunner interface {
	RecalculateAll(ctx context.Context, resumeAfter *uuid.UUID, asOf time.Time) (*ledgerapp.RecalculationSummary, error)
}

// RecalculationSchedulerConfig holds configuration for the nightly score recalculation
type RecalculationSchedulerConfig struct {
	// Enabled indicates if the cron scheduler is enabled
	Enabled bool
	// CronHour is the hour (0-23) to run the nightly recalculation
	CronHour int
	// CronMinute is the minute (0-59) to run the nightly recalculation
	CronMinute int
	// DailyCronSchedule is the cron expression (parsed to extract hour/minute)
	DailyCronSchedule string
	// JobTimeout is the maximum time a single recalculation run can take
	JobTimeout time.Duration
}

// DefaultRecalculationSchedulerConfig returns the default configuration.
// Defaults to running at 2:00 AM daily.
func DefaultRecalculationSchedulerConfig() RecalculationSchedulerConfig {
	return RecalculationSchedulerConfig{
		Enabled:           true,
		CronHour:          2,
		CronMinute:        0,
		DailyCronSchedule: "0 2 * * *",
		JobTimeout:        30 * time.Minute,
	}
}

// ParseCronSchedule parses a cron expression "minute hour * * *" to extract hour and minute.
// Returns defaults (2:00) if parsing fails or expression is empty.
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	hour = 2
	minute = 0

	if cronExpr == "" {
		return hour, minute, nil
	}

	parts := strings.Fields(cronExpr)
	if len(parts) < 2 {
		return hour, minute, nil
	}

	if parts[0] != "*" {
		if val, parseErr := parseIntOrDefault(parts[0], 0); parseErr == nil {
			minute = val
		}
	}
	if parts[1] != "*" {
		if val, parseErr := parseIntOrDefault(parts[1], 2); parseErr == nil {
			hour = val
		}
	}

	if minute < 0 || minute > 59 {
		return 2, 0, fmt.Errorf("minute must be 0-59, got %d", minute)
	}
	if hour < 0 || hour > 23 {
		return 2, 0, fmt.Errorf("hour must be 0-23, got %d", hour)
	}

	return hour, minute, nil
}

// parseIntOrDefault parses an int string or returns default
func parseIntOrDefault(s string, defaultVal int) (int, error) {
	if s == "" || s == "*" {
		return defaultVal, nil
	}
	var val int
	for _, c := range s {
		if c < '0' || c > '9' {
			return defaultVal, ErrInvalidConfig
		}
		val = val*10 + int(c-'0')
	}
	return val, nil
}

// RunStatus represents the status of a recalculation run
type RunStatus string

const (
	RunStatusRunning     RunStatus = "RUNNING"
	RunStatusSuccess     RunStatus = "SUCCESS"
	RunStatusInterrupted RunStatus = "INTERRUPTED"
	RunStatusFailed      RunStatus = "FAILED"
)

// RecalculationRunRecord represents a persisted record of one recalculation run
type RecalculationRunRecord struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Status      string     `gorm:"column:status;size:20;not null"`
	TriggeredBy string     `gorm:"column:triggered_by;size:20;not null"`
	Processed   int        `gorm:"column:processed"`
	Skipped     int        `gorm:"column:skipped"`
	Checkpoint  *uuid.UUID `gorm:"column:checkpoint;type:uuid"`
	Error       string     `gorm:"column:error;type:text"`
	StartedAt   time.Time  `gorm:"column:started_at;not null"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (RecalculationRunRecord) TableName() string {
	return "recalculation_runs"
}

// RecalculationRunRepository handles persistence of recalculation run records
type RecalculationRunRepository struct {
	db *gorm.DB
}

// NewRecalculationRunRepository creates a new RecalculationRunRepository
func NewRecalculationRunRepository(db *gorm.DB) *RecalculationRunRepository {
	return &RecalculationRunRepository{db: db}
}

// RecordRunStart records the start of a recalculation run
func (r *RecalculationRunRepository) RecordRunStart(ctx context.Context, trigger string) (uuid.UUID, error) {
	now := time.Now()
	record := &RecalculationRunRecord{
		ID:          uuid.New(),
		Status:      string(RunStatusRunning),
		TriggeredBy: trigger,
		StartedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return uuid.Nil, err
	}
	return record.ID, nil
}

// RecordRunComplete records the outcome of a recalculation run
func (r *RecalculationRunRepository) RecordRunComplete(ctx context.Context, runID uuid.UUID, status RunStatus, summary *ledgerapp.RecalculationSummary, errMsg string) error {
	now := time.Now()
	updates := map[string]any{
		"status":       string(status),
		"error":        errMsg,
		"completed_at": now,
		"updated_at":   now,
	}
	if summary != nil {
		updates["processed"] = summary.Processed
		updates["skipped"] = len(summary.Skipped)
		updates["checkpoint"] = summary.Checkpoint
	}
	return r.db.WithContext(ctx).
		Model(&RecalculationRunRecord{}).
		Where("id = ?", runID).
		Updates(updates).Error
}

// GetLastRun returns the most recent run record, or nil when none exists
func (r *RecalculationRunRepository) GetLastRun(ctx context.Context) (*RecalculationRunRecord, error) {
	var record RecalculationRunRecord
	err := r.db.WithContext(ctx).Order("started_at DESC").First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// RecalculationCronScheduler runs the nightly payment-score recalculation.
// At most one run executes at a time; an interrupted run leaves a checkpoint
// that the next run resumes from.
type RecalculationCronScheduler struct {
	config  RecalculationSchedulerConfig
	runner  RecalculationRunner
	runRepo *RecalculationRunRepository
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  bool

	lastRunAt  *time.Time
	nextRunAt  *time.Time
	checkpoint *uuid.UUID
}

// NewRecalculationCronScheduler creates a new cron-based recalculation scheduler
func NewRecalculationCronScheduler(
	config RecalculationSchedulerConfig,
	runner RecalculationRunner,
	runRepo *RecalculationRunRepository,
	logger *zap.Logger,
) *RecalculationCronScheduler {
	return &RecalculationCronScheduler{
		config:  config,
		runner:  runner,
		runRepo: runRepo,
		logger:  logger,
	}
}

// Start starts the cron scheduler
func (s *RecalculationCronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.calculateNextRunTime()

	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Recalculation scheduler started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.Timep("next_run_at", s.nextRunAt),
	)

	return nil
}

// Stop stops the cron scheduler
func (s *RecalculationCronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Recalculation scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Recalculation scheduler stop timed out")
		return ctx.Err()
	}
}

// cronLoop runs the main cron loop
func (s *RecalculationCronScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(cronTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runRecalculation(ctx, "cron")
				s.calculateNextRunTime()
			}
		}
	}
}

// shouldRun checks if the cron should run at the given time
func (s *RecalculationCronScheduler) shouldRun(now time.Time) bool {
	return now.Hour() == s.config.CronHour && now.Minute() == s.config.CronMinute
}

// calculateNextRunTime calculates the next run time
func (s *RecalculationCronScheduler) calculateNextRunTime() {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.CronHour, s.config.CronMinute, 0, 0, now.Location())

	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// runRecalculation executes one full recalculation pass
func (s *RecalculationCronScheduler) runRecalculation(ctx context.Context, trigger string) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		s.logger.Warn("Skipping recalculation run, previous run still in progress")
		return
	}
	s.inFlight = true
	now := time.Now()
	s.lastRunAt = &now
	resumeAfter := s.checkpoint
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	s.logger.Info("Starting payment score recalculation",
		zap.String("trigger", trigger),
		zap.Bool("resuming", resumeAfter != nil),
	)

	var runID uuid.UUID
	if s.runRepo != nil {
		var err error
		runID, err = s.runRepo.RecordRunStart(ctx, trigger)
		if err != nil {
			s.logger.Warn("Failed to record recalculation run start", zap.Error(err))
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	summary, err := s.runner.RecalculateAll(runCtx, resumeAfter, now)

	status := RunStatusSuccess
	errMsg := ""
	switch {
	case err == nil:
		s.mu.Lock()
		s.checkpoint = nil
		s.mu.Unlock()
	case errors.Is(err, ledgerapp.ErrRecalculationInterrupted):
		status = RunStatusInterrupted
		errMsg = err.Error()
		// Keep the checkpoint so the next run resumes where this one stopped.
		s.mu.Lock()
		if summary != nil {
			s.checkpoint = summary.Checkpoint
		}
		s.mu.Unlock()
		s.logger.Warn("Recalculation run interrupted",
			zap.Int("processed", summaryProcessed(summary)))
	default:
		status = RunStatusFailed
		errMsg = err.Error()
		s.logger.Error("Recalculation run failed", zap.Error(err))
	}

	if s.runRepo != nil && runID != uuid.Nil {
		if recErr := s.runRepo.RecordRunComplete(ctx, runID, status, summary, errMsg); recErr != nil {
			s.logger.Warn("Failed to record recalculation run outcome", zap.Error(recErr))
		}
	}

	if err == nil {
		s.logger.Info("Payment score recalculation finished",
			zap.Int("processed", summary.Processed),
			zap.Int("skipped", len(summary.Skipped)),
		)
	}
}

func summaryProcessed(summary *ledgerapp.RecalculationSummary) int {
	if summary == nil {
		return 0
	}
	return summary.Processed
}

// TriggerManualRun triggers a recalculation run outside the cron schedule.
// Uses a background context so the run survives the HTTP request that asked for it.
func (s *RecalculationCronScheduler) TriggerManualRun(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrRunAlreadyInProgress
	}
	s.mu.Unlock()

	go s.runRecalculation(context.Background(), "manual")
	return nil
}

// GetStatus returns the current status of the cron scheduler
func (s *RecalculationCronScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":        s.config.Enabled,
		"is_running":     s.isRunning,
		"in_flight":      s.inFlight,
		"cron_hour":      s.config.CronHour,
		"cron_minute":    s.config.CronMinute,
		"last_run_at":    s.lastRunAt,
		"next_run_at":    s.nextRunAt,
		"has_checkpoint": s.checkpoint != nil,
	}
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *RecalculationCronScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *RecalculationCronScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}

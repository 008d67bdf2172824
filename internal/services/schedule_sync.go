package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"bbb-schedule-sync/internal/models"
)

type snapshotBuilder interface {
	Build(ctx context.Context, now int64) (models.Snapshot, error)
}

type fingerprintStore interface {
	Path() string
	Prepare() error
	Matches(candidate []byte) (bool, error)
	Save(candidate []byte) error
}

type payloadTransmitter interface {
	BodyHash(payload []byte) string
	Send(ctx context.Context, payload []byte) (*TransmitResult, error)
}

// SyncConfig holds the settings read once at construction.
type SyncConfig struct {
	Enabled bool
}

// ScheduleSync runs the flag check, build, compare and transmit sequence.
// Only one run executes at a time per process; across processes the caller
// must hold a RunLock or guarantee single-flight itself.
type ScheduleSync struct {
	cfg         SyncConfig
	builder     snapshotBuilder
	store       fingerprintStore
	transmitter payloadTransmitter
	now         func() time.Time
	mu          sync.Mutex
}

func NewScheduleSync(cfg SyncConfig, builder snapshotBuilder, store fingerprintStore, transmitter payloadTransmitter) *ScheduleSync {
	return &ScheduleSync{
		cfg:         cfg,
		builder:     builder,
		store:       store,
		transmitter: transmitter,
		now:         time.Now,
	}
}

// Run performs one synchronization. The returned run is never nil; err is
// non-nil exactly when the run ended in the failed state.
func (s *ScheduleSync) Run(ctx context.Context, trigger string) (*models.SyncRun, error) {
	run := models.NewSyncRun(trigger, s.now().UTC())

	if !s.mu.TryLock() {
		return s.fail(run, ErrRunInProgress)
	}
	defer s.mu.Unlock()

	run.State = models.StateFlagCheck
	if !s.cfg.Enabled {
		log.Printf("transferschedule_enabled is disabled by config")
		run.Finish(models.StateDone, models.OutcomeDisabled, nil, s.now().UTC())
		return run, nil
	}

	run.State = models.StateBuilding
	snapshot, err := s.builder.Build(ctx, run.StartedAt.Unix())
	if err != nil {
		return s.fail(run, err)
	}
	run.ItemCount = len(snapshot.Items)

	run.State = models.StateComparing
	payload, err := snapshot.Canonical()
	if err != nil {
		return s.fail(run, err)
	}
	if err := s.store.Prepare(); err != nil {
		return s.fail(run, &StorageError{Op: "prepare", Err: err})
	}
	log.Printf("Cache-File: %s", s.store.Path())
	log.Printf("Content: %s", payload)

	unchanged, err := s.store.Matches(payload)
	if err != nil {
		return s.fail(run, &StorageError{Op: "compare", Err: err})
	}
	if unchanged {
		log.Printf("No updated scheduled bigbluebutton meetings found.")
		run.Finish(models.StateDone, models.OutcomeUnchanged, nil, s.now().UTC())
		return run, nil
	}

	run.State = models.StateTransmitting
	run.BodyHash = s.transmitter.BodyHash(payload)
	result, err := s.transmitter.Send(ctx, payload)
	if err != nil {
		var txErr *TransmissionError
		if errors.As(err, &txErr) {
			run.StatusCode = txErr.StatusCode
		}
		return s.fail(run, err)
	}
	run.StatusCode = result.StatusCode

	// Remember for next time
	if err := s.store.Save(payload); err != nil {
		return s.fail(run, &StorageError{Op: "save", Err: err})
	}

	log.Printf("Schedule transmitted: %d items, bodyhash %s", run.ItemCount, run.BodyHash)
	run.Finish(models.StateDone, models.OutcomeTransmitted, nil, s.now().UTC())
	return run, nil
}

// Preview builds and compares without sending or writing anything.
func (s *ScheduleSync) Preview(ctx context.Context) (*models.Preview, error) {
	snapshot, err := s.builder.Build(ctx, s.now().UTC().Unix())
	if err != nil {
		return nil, err
	}

	payload, err := snapshot.Canonical()
	if err != nil {
		return nil, err
	}

	unchanged, err := s.store.Matches(payload)
	if err != nil {
		return nil, &StorageError{Op: "compare", Err: err}
	}

	items := snapshot.Items
	if items == nil {
		items = []models.ScheduledItem{}
	}

	return &models.Preview{
		ItemCount: len(items),
		BodyHash:  s.transmitter.BodyHash(payload),
		Changed:   !unchanged,
		Items:     items,
		Payload:   string(payload),
	}, nil
}

func (s *ScheduleSync) fail(run *models.SyncRun, err error) (*models.SyncRun, error) {
	log.Printf("Schedule sync failed in %s: %v", run.State, err)
	run.Finish(models.StateFailed, models.OutcomeFailed, err, s.now().UTC())
	return run, err
}

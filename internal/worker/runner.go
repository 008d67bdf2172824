package worker

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"bbb-schedule-sync/internal/models"
)

// maxSleepCap bounds a single sleep so clock steps and host suspend delay
// a tick by at most this long.
const maxSleepCap = 60 * time.Second

type syncRunner interface {
	Run(ctx context.Context, trigger string) (*models.SyncRun, error)
}

type runLocker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

type runRecorder interface {
	Save(ctx context.Context, run *models.SyncRun) error
}

type eventPublisher interface {
	Publish(ctx context.Context, msg models.WSMessage) error
}

// Runner invokes the schedule sync on a cron expression. Lock, recorder
// and publisher are optional; pass nil to run without Redis.
type Runner struct {
	sync       syncRunner
	lock       runLocker
	runs       runRecorder
	events     eventPublisher
	schedule   string
	runOnStart bool
	now        func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

func NewRunner(
	scheduleSync syncRunner,
	lock runLocker,
	runs runRecorder,
	events eventPublisher,
	schedule string,
	runOnStart bool,
) (*Runner, error) {
	if err := ValidateSchedule(schedule); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		sync:       scheduleSync,
		lock:       lock,
		runs:       runs,
		events:     events,
		schedule:   schedule,
		runOnStart: runOnStart,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}, nil
}

// ValidateSchedule accepts standard 5-field cron expressions only.
func ValidateSchedule(expr string) error {
	if len(strings.Fields(expr)) != 5 {
		return fmt.Errorf("invalid cron expression %q, expected 5-field format (minute hour day-of-month month day-of-week)", expr)
	}
	if !gronx.IsValid(expr) {
		return fmt.Errorf("invalid cron expression %q", expr)
	}
	return nil
}

// NextRun returns the first tick strictly after from.
func NextRun(expr string, from time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, from, false)
}

func (r *Runner) Start() {
	go r.loop()
	log.Printf("Schedule sync runner started (schedule: %s)", r.schedule)
}

// Stop cancels an in-flight run and waits for the loop to exit.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		<-r.done
	})
}

func (r *Runner) loop() {
	defer close(r.done)

	if r.runOnStart {
		r.tick()
	}

	for {
		next, err := NextRun(r.schedule, r.now())
		if err != nil {
			log.Printf("Schedule sync runner stopped: %v", err)
			return
		}

		for {
			wait := next.Sub(r.now())
			if wait <= 0 {
				break
			}
			if wait > maxSleepCap {
				wait = maxSleepCap
			}

			select {
			case <-r.ctx.Done():
				log.Printf("Schedule sync runner shutting down")
				return
			case <-time.After(wait):
			}
		}

		r.tick()
	}
}

func (r *Runner) tick() {
	if _, err := r.RunOnce(r.ctx, models.TriggerCron); err != nil {
		// The next tick is the retry.
		log.Printf("Schedule sync tick failed: %v", err)
	}
}

// RunOnce executes one guarded, recorded run. A held lock is returned as
// an error without recording anything.
func (r *Runner) RunOnce(ctx context.Context, trigger string) (*models.SyncRun, error) {
	if r.lock != nil {
		release, err := r.lock.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	r.publish(ctx, models.WSMessage{
		Type:    models.EventRunStarted,
		Payload: map[string]string{"trigger": trigger},
	})

	run, runErr := r.sync.Run(ctx, trigger)

	// Recording must survive a cancelled run context.
	recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if r.runs != nil {
		if err := r.runs.Save(recordCtx, run); err != nil {
			log.Printf("failed to record run %s: %v", run.ID, err)
		}
	}
	r.publish(recordCtx, models.WSMessage{Type: models.EventRunFinished, Payload: run})

	return run, runErr
}

func (r *Runner) publish(ctx context.Context, msg models.WSMessage) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(ctx, msg); err != nil {
		log.Printf("failed to publish %s: %v", msg.Type, err)
	}
}

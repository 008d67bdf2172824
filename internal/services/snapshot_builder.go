package services

import (
	"context"
	"log"

	"bbb-schedule-sync/internal/models"
)

type activitySource interface {
	ListActive(ctx context.Context, now int64) ([]models.ScheduledItem, error)
}

type enrolmentCounter interface {
	CountEnrolled(ctx context.Context, courseModuleID int64, now int64) (int, error)
}

// SnapshotBuilder collects every BigBlueButton activity that has not closed
// yet, with its current participant count.
type SnapshotBuilder struct {
	activities activitySource
	enrolments enrolmentCounter
}

func NewSnapshotBuilder(activities activitySource, enrolments enrolmentCounter) *SnapshotBuilder {
	return &SnapshotBuilder{activities: activities, enrolments: enrolments}
}

func (b *SnapshotBuilder) Build(ctx context.Context, now int64) (models.Snapshot, error) {
	rows, err := b.activities.ListActive(ctx, now)
	if err != nil {
		return models.Snapshot{}, &SourceError{Op: "list activities", Err: err}
	}
	log.Printf("Number of activities: %d", len(rows))

	// Module context enrolment is course enrolment, so one lookup per course
	// is enough within a build.
	counts := make(map[int64]int)

	items := make([]models.ScheduledItem, 0, len(rows))
	for _, row := range rows {
		// Sources are not trusted to apply the closing-time predicate.
		if !row.OpenAt(now) {
			continue
		}

		count, seen := counts[row.CourseID]
		if !seen {
			count, err = b.enrolments.CountEnrolled(ctx, row.CourseModuleID, now)
			if err != nil {
				return models.Snapshot{}, &SourceError{Op: "count enrolled users", Err: err}
			}
			counts[row.CourseID] = count
		}
		log.Printf("Number of enrolled users: %d (course module %d)", count, row.CourseModuleID)

		row.Participants = count
		items = append(items, row)
	}

	return models.Snapshot{Items: items, BuiltAt: now}, nil
}

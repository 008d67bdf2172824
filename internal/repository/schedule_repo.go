package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bbb-schedule-sync/internal/models"
)

// ScheduleRepo reads BigBlueButton activities from the Moodle schema.
type ScheduleRepo struct {
	pool   *pgxpool.Pool
	prefix string
}

// NewScheduleRepo expects a prefix already validated by config.
func NewScheduleRepo(pool *pgxpool.Pool, prefix string) *ScheduleRepo {
	return &ScheduleRepo{pool: pool, prefix: prefix}
}

func (r *ScheduleRepo) ListActive(ctx context.Context, now int64) ([]models.ScheduledItem, error) {
	rows, err := r.pool.Query(ctx, activeScheduleQuery(r.prefix), now)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ScheduledItem, error) {
		var item models.ScheduledItem
		err := row.Scan(
			&item.CourseModuleID, &item.ModuleInstanceID, &item.CourseID, &item.Name,
			&item.MeetingID, &item.OpeningTime, &item.ClosingTime, &item.Participants, &item.UserLimit,
		)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read schedules: %w", err)
	}
	return items, nil
}

func activeScheduleQuery(prefix string) string {
	return fmt.Sprintf(`
		SELECT
			cm.id,
			m.id,
			m.course,
			m.name,
			m.meetingid,
			NULLIF(m.openingtime, 0),
			m.closingtime,
			0 AS participants, -- overwritten with the enrolment count
			m.userlimit
		FROM %[1]scourse_modules cm
			JOIN %[1]smodules md ON md.id = cm.module
			JOIN %[1]sbigbluebuttonbn m ON m.id = cm.instance
		WHERE md.name = 'bigbluebuttonbn'
		  AND (m.closingtime = 0 OR m.closingtime > $1)
		ORDER BY cm.id`, prefix)
}

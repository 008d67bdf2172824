package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnrolmentRepo counts users enrolled in the course that owns a course
// module, with the same filters as Moodle's get_enrolled_users for active
// enrolments only.
type EnrolmentRepo struct {
	pool    *pgxpool.Pool
	prefix  string
	guestID int64
}

func NewEnrolmentRepo(pool *pgxpool.Pool, prefix string, guestID int64) *EnrolmentRepo {
	return &EnrolmentRepo{pool: pool, prefix: prefix, guestID: guestID}
}

func (r *EnrolmentRepo) CountEnrolled(ctx context.Context, courseModuleID int64, now int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, enrolledCountQuery(r.prefix), courseModuleID, now, r.guestID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count enrolled users for course module %d: %w", courseModuleID, err)
	}
	return count, nil
}

func enrolledCountQuery(prefix string) string {
	return fmt.Sprintf(`
		SELECT COUNT(DISTINCT u.id)
		FROM %[1]scourse_modules cm
			JOIN %[1]senrol e ON e.courseid = cm.course AND e.status = 0
			JOIN %[1]suser_enrolments ue ON ue.enrolid = e.id AND ue.status = 0
				AND ue.timestart < $2 AND (ue.timeend = 0 OR ue.timeend > $2)
			JOIN %[1]suser u ON u.id = ue.userid AND u.deleted = 0
		WHERE cm.id = $1
		  AND u.id <> $3`, prefix)
}

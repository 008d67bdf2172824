package repository

import (
	"strings"
	"testing"
)

func TestActiveScheduleQuery_UsesPrefix(t *testing.T) {
	query := activeScheduleQuery("moodle_")

	for _, table := range []string{"moodle_course_modules", "moodle_modules", "moodle_bigbluebuttonbn"} {
		if !strings.Contains(query, table) {
			t.Errorf("expected query to reference %s", table)
		}
	}
	if strings.Contains(query, "mdl_") {
		t.Errorf("expected no default prefix in query")
	}
	if !strings.Contains(query, "m.closingtime = 0 OR m.closingtime > $1") {
		t.Errorf("expected closing time predicate in query")
	}
}

func TestActiveScheduleQuery_DeterministicShape(t *testing.T) {
	query := strings.TrimSpace(activeScheduleQuery("mdl_"))

	if !strings.HasSuffix(query, "ORDER BY cm.id") {
		t.Errorf("expected query to end with ORDER BY cm.id, got %q", query[max(0, len(query)-40):])
	}
	if !strings.Contains(query, "NULLIF(m.openingtime, 0)") {
		t.Errorf("expected openingtime 0 to be mapped to NULL")
	}
	if !strings.Contains(query, "md.name = 'bigbluebuttonbn'") {
		t.Errorf("expected module name filter in query")
	}
}

func TestEnrolledCountQuery_UsesPrefix(t *testing.T) {
	query := enrolledCountQuery("mdl_")

	for _, table := range []string{"mdl_course_modules", "mdl_enrol", "mdl_user_enrolments", "mdl_user "} {
		if !strings.Contains(query, table) {
			t.Errorf("expected query to reference %q", table)
		}
	}
	if !strings.Contains(query, "u.id <> $3") {
		t.Errorf("expected guest exclusion in query")
	}
}

func TestEnrolledCountQuery_ActiveEnrolmentFilters(t *testing.T) {
	query := enrolledCountQuery("mdl_")

	for _, clause := range []string{
		"ue.timestart < $2 AND (ue.timeend = 0 OR ue.timeend > $2)",
		"e.status = 0",
		"ue.status = 0",
		"u.deleted = 0",
		"COUNT(DISTINCT u.id)",
		"WHERE cm.id = $1",
	} {
		if !strings.Contains(query, clause) {
			t.Errorf("expected query to contain %q", clause)
		}
	}
}

package models

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSnapshotCanonical_EmptyEncodesAsArray(t *testing.T) {
	data, err := Snapshot{}.Canonical()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected [], got %s", data)
	}
}

func TestSnapshotCanonical_FieldNamesAndOrder(t *testing.T) {
	opening := int64(1700000000)
	snap := Snapshot{Items: []ScheduledItem{{
		CourseModuleID:   12,
		ModuleInstanceID: 3,
		CourseID:         7,
		Name:             "Weekly lecture",
		MeetingID:        "abc123",
		OpeningTime:      &opening,
		ClosingTime:      0,
		Participants:     25,
		UserLimit:        0,
	}}}

	data, err := snap.Canonical()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `[{"coursemoduleid":12,"moduleinstanceid":3,"courseid":7,"coursemodulename":"Weekly lecture","meetingid":"abc123","openingtime":1700000000,"closingtime":0,"participants":25,"userlimit":0}]`
	if string(data) != want {
		t.Fatalf("unexpected encoding:\n got %s\nwant %s", data, want)
	}
}

func TestSnapshotCanonical_NilOpeningTimeIsNull(t *testing.T) {
	data, err := Snapshot{Items: []ScheduledItem{{CourseModuleID: 1}}}.Canonical()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if v, ok := decoded[0]["openingtime"]; !ok || v != nil {
		t.Fatalf("expected openingtime null, got %v (present=%v)", v, ok)
	}
}

func TestOpenAt(t *testing.T) {
	now := int64(1_000_000)

	tests := []struct {
		name    string
		closing int64
		want    bool
	}{
		{"unbounded closing time", 0, true},
		{"closes in the future", now + 60, true},
		{"closes exactly now", now, false},
		{"closed in the past", now - 60, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			item := ScheduledItem{ClosingTime: tc.closing}
			if got := item.OpenAt(now); got != tc.want {
				t.Errorf("OpenAt(%d) with closing %d = %v, want %v", now, tc.closing, got, tc.want)
			}
		})
	}
}

func TestSnapshotCanonical_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	itemGen := gopter.CombineGens(
		gen.Int64Range(1, 1<<40),
		gen.AnyString(),
		gen.AlphaString(),
		gen.Int64Range(0, 1<<40),
		gen.IntRange(0, 10000),
		gen.IntRange(0, 500),
	).Map(func(values []interface{}) ScheduledItem {
		return ScheduledItem{
			CourseModuleID: values[0].(int64),
			Name:           values[1].(string),
			MeetingID:      values[2].(string),
			ClosingTime:    values[3].(int64),
			Participants:   values[4].(int),
			UserLimit:      values[5].(int),
		}
	})

	properties.Property("identical content encodes to identical bytes", prop.ForAll(
		func(items []ScheduledItem) bool {
			copied := make([]ScheduledItem, len(items))
			copy(copied, items)

			a, errA := Snapshot{Items: items}.Canonical()
			b, errB := Snapshot{Items: copied}.Canonical()
			return errA == nil && errB == nil && bytes.Equal(a, b)
		},
		gen.SliceOf(itemGen),
	))

	properties.Property("participant count change alters the encoding", prop.ForAll(
		func(item ScheduledItem) bool {
			changed := item
			changed.Participants++

			a, _ := Snapshot{Items: []ScheduledItem{item}}.Canonical()
			b, _ := Snapshot{Items: []ScheduledItem{changed}}.Canonical()
			return !bytes.Equal(a, b)
		},
		itemGen,
	))

	properties.TestingRun(t)
}

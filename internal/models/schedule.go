package models

import (
	"encoding/json"
	"fmt"
)

// ScheduledItem is one BigBlueButton activity as reported to the load
// balancer. Field order is part of the canonical encoding.
type ScheduledItem struct {
	CourseModuleID   int64  `json:"coursemoduleid"`
	ModuleInstanceID int64  `json:"moduleinstanceid"`
	CourseID         int64  `json:"courseid"`
	Name             string `json:"coursemodulename"`
	MeetingID        string `json:"meetingid"`
	OpeningTime      *int64 `json:"openingtime"` // nil = open since forever
	ClosingTime      int64  `json:"closingtime"` // 0 = never closes
	Participants     int    `json:"participants"`
	UserLimit        int    `json:"userlimit"` // 0 = unlimited
}

// OpenAt reports whether the item is still schedulable at the given epoch.
func (i ScheduledItem) OpenAt(now int64) bool {
	return i.ClosingTime == 0 || i.ClosingTime > now
}

// Snapshot is the full set of relevant items at one point in time, in
// source order.
type Snapshot struct {
	Items   []ScheduledItem
	BuiltAt int64
}

// Canonical returns the deterministic JSON encoding used both as the POST
// body and as the fingerprint. An empty snapshot encodes as [].
func (s Snapshot) Canonical() ([]byte, error) {
	items := s.Items
	if items == nil {
		items = []ScheduledItem{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

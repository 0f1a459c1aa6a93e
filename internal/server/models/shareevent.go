package models

import "time"

// ShareEvent is one accepted scan or link open. Rows are never updated.
type ShareEvent struct {
	ID                string
	TargetProfileID   string
	TargetShareCode   string
	ReferrerProfileID string
	ScannerProfileID  string
	Method            string
	OccurredAt        time.Time
	ReceivedAt        time.Time
}

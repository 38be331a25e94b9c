package utils

import (
	"fmt"
	"time"
)

const (
	SLANone      = "No SLA"
	SLAOverdue   = "Overdue"
	SLACompleted = "Completed"
)

// SLA states used for badge colours.
const (
	SLAStateNone      = "none"
	SLAStateOK        = "ok"
	SLAStateDueSoon   = "due_soon"
	SLAStateOverdue   = "overdue"
	SLAStateCompleted = "completed"
)

// SLALabel is the time-remaining text shown for a ticket.
func SLALabel(status string, due *time.Time, now time.Time) string {
	label, _ := SLA(status, due, now)
	return label
}

// SLA returns the label and state for a ticket's due date.
func SLA(status string, due *time.Time, now time.Time) (string, string) {
	if due == nil {
		return SLANone, SLAStateNone
	}
	if status == "resolved" || status == "closed" {
		return SLACompleted, SLAStateCompleted
	}
	left := due.Sub(now)
	if left <= 0 {
		return SLAOverdue, SLAStateOverdue
	}

	state := SLAStateOK
	if left < 24*time.Hour {
		state = SLAStateDueSoon
	}
	days := int(left.Hours()) / 24
	hours := int(left.Hours()) % 24
	mins := int(left.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh left", days, hours), state
	case hours > 0:
		return fmt.Sprintf("%dh %dm left", hours, mins), state
	}
	return fmt.Sprintf("%dm left", mins), state
}

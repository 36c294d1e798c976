package enums

import "fmt"

// JobOrderStatus maps to the job_order_status_enum column.
type JobOrderStatus string

const (
	JobOrderPlanned    JobOrderStatus = "PLANNED"
	JobOrderInProgress JobOrderStatus = "IN_PROGRESS"
	JobOrderCompleted  JobOrderStatus = "COMPLETED"
	JobOrderCancelled  JobOrderStatus = "CANCELLED"
)

var validJobOrderStatuses = []JobOrderStatus{
	JobOrderPlanned,
	JobOrderInProgress,
	JobOrderCompleted,
	JobOrderCancelled,
}

func (s JobOrderStatus) IsValid() bool {
	for _, candidate := range validJobOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further work may be recorded against the order.
func (s JobOrderStatus) IsTerminal() bool {
	return s == JobOrderCompleted || s == JobOrderCancelled
}

func ParseJobOrderStatus(value string) (JobOrderStatus, error) {
	for _, candidate := range validJobOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job order status %q", value)
}

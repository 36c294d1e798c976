package enums

import "fmt"

// InspectionStatus maps to the inspection_status_enum column.
type InspectionStatus string

const (
	InspectionPending  InspectionStatus = "PENDING"
	InspectionPassed   InspectionStatus = "PASSED"
	InspectionRejected InspectionStatus = "REJECTED"
)

var validInspectionStatuses = []InspectionStatus{
	InspectionPending,
	InspectionPassed,
	InspectionRejected,
}

func (s InspectionStatus) IsValid() bool {
	for _, candidate := range validInspectionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseInspectionStatus(value string) (InspectionStatus, error) {
	for _, candidate := range validInspectionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inspection status %q", value)
}

// HandlingMethod records what happens to goods that fail or deviate at inspection.
type HandlingMethod string

const (
	HandlingReturn     HandlingMethod = "RETURN"
	HandlingReplenish  HandlingMethod = "REPLENISH"
	HandlingConcession HandlingMethod = "CONCESSION"
	HandlingScrap      HandlingMethod = "SCRAP"
)

var validHandlingMethods = []HandlingMethod{
	HandlingReturn,
	HandlingReplenish,
	HandlingConcession,
	HandlingScrap,
}

func (h HandlingMethod) IsValid() bool {
	for _, candidate := range validHandlingMethods {
		if candidate == h {
			return true
		}
	}
	return false
}

func ParseHandlingMethod(value string) (HandlingMethod, error) {
	for _, candidate := range validHandlingMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid handling method %q", value)
}

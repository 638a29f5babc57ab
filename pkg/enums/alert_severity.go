package enums

import "fmt"

// AlertSeverity ranks how urgently an inventory alert needs attention.
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "low"
	AlertSeverityMedium   AlertSeverity = "medium"
	AlertSeverityHigh     AlertSeverity = "high"
	AlertSeverityCritical AlertSeverity = "critical"
)

var validAlertSeverities = []AlertSeverity{
	AlertSeverityLow,
	AlertSeverityMedium,
	AlertSeverityHigh,
	AlertSeverityCritical,
}

// IsValid reports whether the value matches the canonical severity enum.
func (s AlertSeverity) IsValid() bool {
	for _, candidate := range validAlertSeverities {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAlertSeverity converts the raw string to AlertSeverity.
func ParseAlertSeverity(value string) (AlertSeverity, error) {
	for _, candidate := range validAlertSeverities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid alert severity %q", value)
}

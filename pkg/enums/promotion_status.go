package enums

import "fmt"

// PromotionStatus tracks a promotion through its slot lifecycle.
type PromotionStatus string

const (
	PromotionStatusActive    PromotionStatus = "active"
	PromotionStatusQueued    PromotionStatus = "queued"
	PromotionStatusExpired   PromotionStatus = "expired"
	PromotionStatusCancelled PromotionStatus = "cancelled"
)

var validPromotionStatuses = []PromotionStatus{
	PromotionStatusActive,
	PromotionStatusQueued,
	PromotionStatusExpired,
	PromotionStatusCancelled,
}

// String implements fmt.Stringer.
func (p PromotionStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromotionStatus.
func (p PromotionStatus) IsValid() bool {
	for _, candidate := range validPromotionStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsLive reports whether the promotion still occupies queue capacity.
func (p PromotionStatus) IsLive() bool {
	return p == PromotionStatusActive || p == PromotionStatusQueued
}

// ParsePromotionStatus converts raw input into a PromotionStatus.
func ParsePromotionStatus(value string) (PromotionStatus, error) {
	for _, candidate := range validPromotionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion status %q", value)
}

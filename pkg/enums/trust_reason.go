package enums

import "fmt"

// TrustReason explains why a trust profile moved.
type TrustReason string

const (
	TrustReasonReviewReceived TrustReason = "review_received"
	TrustReasonMerchantReply  TrustReason = "merchant_reply"
	TrustReasonPolicyUpdate   TrustReason = "policy_update"
)

var validTrustReasons = []TrustReason{
	TrustReasonReviewReceived,
	TrustReasonMerchantReply,
	TrustReasonPolicyUpdate,
}

// String implements fmt.Stringer.
func (t TrustReason) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TrustReason.
func (t TrustReason) IsValid() bool {
	for _, candidate := range validTrustReasons {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTrustReason converts raw input into a TrustReason.
func ParseTrustReason(value string) (TrustReason, error) {
	for _, candidate := range validTrustReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trust reason %q", value)
}

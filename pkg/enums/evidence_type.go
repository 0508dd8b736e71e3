package enums

import "fmt"

// EvidenceType identifies which pre-purchase interaction a ledger row proves.
type EvidenceType string

const (
	EvidenceQuestionPosted          EvidenceType = "question_posted"
	EvidenceOfferMade               EvidenceType = "offer_made"
	EvidenceLookingForParticipation EvidenceType = "looking_for_participation"
)

var validEvidenceTypes = []EvidenceType{
	EvidenceQuestionPosted,
	EvidenceOfferMade,
	EvidenceLookingForParticipation,
}

// String implements fmt.Stringer.
func (e EvidenceType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EvidenceType.
func (e EvidenceType) IsValid() bool {
	for _, candidate := range validEvidenceTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEvidenceType converts raw input into an EvidenceType.
func ParseEvidenceType(value string) (EvidenceType, error) {
	for _, candidate := range validEvidenceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid evidence type %q", value)
}

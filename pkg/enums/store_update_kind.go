package enums

// StoreUpdateKind classifies the audited store update records sellers emit.
type StoreUpdateKind string

const (
	StoreUpdateKindPriceChange  StoreUpdateKind = "price_change"
	StoreUpdateKindRestock      StoreUpdateKind = "restock"
	StoreUpdateKindAnnouncement StoreUpdateKind = "announcement"
)

// String implements fmt.Stringer.
func (s StoreUpdateKind) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StoreUpdateKind.
func (s StoreUpdateKind) IsValid() bool {
	switch s {
	case StoreUpdateKindPriceChange, StoreUpdateKindRestock, StoreUpdateKindAnnouncement:
		return true
	}
	return false
}

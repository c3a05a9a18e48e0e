package enums

import "fmt"

// SequenceNamespace names a counter series.
type SequenceNamespace string

const (
	SequenceSeller  SequenceNamespace = "sellerNumber"
	SequenceProduct SequenceNamespace = "product"
	SequenceUser    SequenceNamespace = "userNumber"
	SequenceOrder   SequenceNamespace = "ORDER"
)

var validSequenceNamespaces = []SequenceNamespace{
	SequenceSeller,
	SequenceProduct,
	SequenceUser,
	SequenceOrder,
}

// String implements fmt.Stringer.
func (n SequenceNamespace) String() string {
	return string(n)
}

// IsValid reports whether the namespace is one of the known counters.
func (n SequenceNamespace) IsValid() bool {
	for _, candidate := range validSequenceNamespaces {
		if candidate == n {
			return true
		}
	}
	return false
}

// Format renders a counter value as the human readable identifier for the namespace.
func (n SequenceNamespace) Format(value int64) string {
	if n == SequenceOrder {
		return fmt.Sprintf("ORD-%06d", value)
	}
	return fmt.Sprintf("%06d", value)
}

// ParseSequenceNamespace converts raw input into a SequenceNamespace.
func ParseSequenceNamespace(value string) (SequenceNamespace, error) {
	for _, candidate := range validSequenceNamespaces {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sequence namespace %q", value)
}

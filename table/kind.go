package table

import "fmt"

// Kind tags a concrete table type.
type Kind uint8

const (
	KindDense Kind = iota + 1
	KindSparse
	KindMixed
	KindParameter
)

func (k Kind) String() string {
	switch k {
	case KindDense:
		return "dense"
	case KindSparse:
		return "sparse"
	case KindMixed:
		return "mixed"
	case KindParameter:
		return "parameter"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k >= KindDense && k <= KindParameter
}

// Family is a set of kinds a loader accepts.
type Family uint8

const (
	// FamilyData holds inputs that can be indexed: references and queries.
	FamilyData Family = iota + 1
	// FamilyParameters holds everything else an algorithm reads.
	FamilyParameters
	// FamilyAny accepts every kind.
	FamilyAny
)

func (f Family) String() string {
	switch f {
	case FamilyData:
		return "data"
	case FamilyParameters:
		return "parameters"
	case FamilyAny:
		return "any"
	default:
		return fmt.Sprintf("Family(%d)", uint8(f))
	}
}

// Kinds returns the kinds in the family.
func (f Family) Kinds() []Kind {
	switch f {
	case FamilyData:
		return []Kind{KindDense, KindSparse, KindMixed}
	case FamilyParameters:
		return []Kind{KindParameter, KindDense}
	case FamilyAny:
		return []Kind{KindDense, KindSparse, KindMixed, KindParameter}
	default:
		return nil
	}
}

// Contains reports whether k belongs to the family.
func (f Family) Contains(k Kind) bool {
	for _, m := range f.Kinds() {
		if m == k {
			return true
		}
	}
	return false
}

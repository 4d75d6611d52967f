package ir

import "fmt"

// IntrinsicType identifies one of the builtin Osiris value types.
type IntrinsicType uint32

// Intrinsic type IDs. Alias types map onto one of these.
const (
	TypeUnknown    IntrinsicType = 0
	TypeInteger    IntrinsicType = 1
	TypeInteger64  IntrinsicType = 2
	TypeFloat      IntrinsicType = 3
	TypeString     IntrinsicType = 4
	TypeGuidString IntrinsicType = 5
)

// MaxIntrinsicTypeID is the highest type ID reserved for intrinsic types.
// Alias type IDs start right after it.
const MaxIntrinsicTypeID = uint32(TypeGuidString)

// MaxTypeID is the highest type ID a story can hold.
const MaxTypeID = 255

var intrinsicNames = [...]string{
	TypeUnknown:    "None",
	TypeInteger:    "Integer",
	TypeInteger64:  "Integer64",
	TypeFloat:      "Float",
	TypeString:     "String",
	TypeGuidString: "GuidString",
}

// String returns the diagnostic name of the intrinsic type.
func (t IntrinsicType) String() string {
	if int(t) < len(intrinsicNames) {
		return intrinsicNames[t]
	}
	return fmt.Sprintf("IntrinsicType(%d)", uint32(t))
}

// IsValid reports whether t names a concrete intrinsic type (1..5).
func (t IntrinsicType) IsValid() bool {
	return t >= TypeInteger && t <= TypeGuidString
}

// IsNumeric reports whether t belongs to the Integer/Integer64/Float family.
func (t IntrinsicType) IsNumeric() bool {
	return t == TypeInteger || t == TypeInteger64 || t == TypeFloat
}

// IsStringLike reports whether t belongs to the String/GuidString family.
func (t IntrinsicType) IsStringLike() bool {
	return t == TypeString || t == TypeGuidString
}

// AreIntrinsicTypesCompatible reports whether values of the two intrinsic
// types can be compared or passed in place of each other.
// Compatible families: {Integer, Integer64, Float} and {String, GuidString}.
func AreIntrinsicTypesCompatible(a, b IntrinsicType) bool {
	if a == b {
		return true
	}
	return (a.IsNumeric() && b.IsNumeric()) || (a.IsStringLike() && b.IsStringLike())
}

// IsRiskyComparison reports whether comparing a and b is known to misbehave
// at runtime (String against GuidString).
func IsRiskyComparison(a, b IntrinsicType) bool {
	return (a == TypeString && b == TypeGuidString) || (a == TypeGuidString && b == TypeString)
}

// ValueType describes an intrinsic type or a user-declared alias of one.
type ValueType struct {
	TypeID          uint32        `json:"type_id"`
	IntrinsicTypeID IntrinsicType `json:"intrinsic_type_id"`
	Name            string        `json:"name"`
}

// IsAlias reports whether the type is a user alias of an intrinsic type.
func (t *ValueType) IsAlias() bool {
	return t.TypeID != uint32(t.IntrinsicTypeID)
}

// IsAliasOf reports whether t is a more specific alias of other: both share
// the same intrinsic type, t is an alias and other is the base type itself.
func (t *ValueType) IsAliasOf(other *ValueType) bool {
	if t == nil || other == nil {
		return false
	}
	return t.IntrinsicTypeID == other.IntrinsicTypeID &&
		t.TypeID != other.TypeID &&
		t.IsAlias() &&
		!other.IsAlias()
}

// IsGuidAlias reports whether t is an alias of GUIDSTRING.
func (t *ValueType) IsGuidAlias() bool {
	return t.IntrinsicTypeID == TypeGuidString && t.IsAlias()
}

// IsGuidAliasToAliasCast reports whether a value of type from is being used
// where a different GUID alias is expected. Casts to or from the base
// GUIDSTRING type are allowed.
func IsGuidAliasToAliasCast(from, to *ValueType) bool {
	if from == nil || to == nil {
		return false
	}
	return from.IsGuidAlias() && to.IsGuidAlias() && from.TypeID != to.TypeID
}

// String returns the type name.
func (t *ValueType) String() string {
	if t == nil {
		return "<untyped>"
	}
	return t.Name
}

package types

// Qualifier is a bitset of qualifiers applied to a type use.
type Qualifier uint32

const (
	// QualMut marks a use as mutable.
	QualMut Qualifier = 1 << 0
)

// Use represents the use of a type with possible qualifiers over it. Uses
// are by-value and compare by (type identity, qualifier bitset), so they can
// key interning pools directly.
type Use struct {
	Type  Type
	Quals Qualifier
}

// MakeUse returns an unqualified use of ty.
func MakeUse(ty Type) Use { return Use{Type: ty} }

// MakeMutUse returns a 'mut'-qualified use of ty.
func MakeMutUse(ty Type) Use { return Use{Type: ty, Quals: QualMut} }

// IsQualified reports whether any qualifier is set.
func (u Use) IsQualified() bool { return u.Quals != 0 }

// IsMut reports whether the use is 'mut'-qualified.
func (u Use) IsMut() bool { return u.Quals&QualMut != 0 }

// AsMut returns a copy of this use with the 'mut' qualifier set.
func (u Use) AsMut() Use {
	u.Quals |= QualMut
	return u
}

// Compare reports whether two uses denote the same type, ignoring
// qualifiers.
func (u Use) Compare(other Use) bool {
	if u.Type == other.Type {
		return true
	}
	if u.Type == nil || other.Type == nil {
		return false
	}
	return u.Type.Compare(other.Type)
}

// CanCast reports whether this use converts to other under the cast
// lattice. Casts never silently strip 'mut': an implicit conversion from an
// immutable use to a mutable one is rejected.
func (u Use) CanCast(other Use, implicit bool) bool {
	if u.Type == nil || other.Type == nil {
		return false
	}
	if implicit && !u.IsMut() && other.IsMut() {
		return false
	}
	return u.Type.CanCast(other.Type, implicit)
}

// String returns the source form of the use, qualifiers included.
func (u Use) String() string {
	if u.Type == nil {
		return "<nil>"
	}
	if u.IsMut() {
		return "mut " + u.Type.String()
	}
	return u.Type.String()
}

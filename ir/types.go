package ir

import "fmt"

// TypeKind is the category of a declared type.
type TypeKind uint8

const (
	Void TypeKind = iota
	Bool
	Int
	Float
	Char
	String
	Object
	Any
	Sequence
	Future
)

var typeKindNames = [...]string{
	Void:     "void",
	Bool:     "bool",
	Int:      "int",
	Float:    "float",
	Char:     "char",
	String:   "string",
	Object:   "object",
	Any:      "any",
	Sequence: "seq",
	Future:   "future",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return fmt.Sprintf("typekind(%d)", k)
}

// Type is a declared parameter, local or return type. Elem is set for the
// wrapped kinds Sequence and Future; a Future with no Elem is a void future.
type Type struct {
	Elem *Type
	Kind TypeKind
}

// T returns a plain type of the given kind.
func T(k TypeKind) Type { return Type{Kind: k} }

// SequenceOf returns seq<elem>.
func SequenceOf(elem Type) Type { return Type{Kind: Sequence, Elem: &elem} }

// FutureOf returns future<elem>.
func FutureOf(elem Type) Type { return Type{Kind: Future, Elem: &elem} }

// VoidFuture returns future<void>.
func VoidFuture() Type { return Type{Kind: Future} }

// IsVoid reports whether t is void.
func (t Type) IsVoid() bool { return t.Kind == Void }

// ElemType returns the wrapped element type, or void.
func (t Type) ElemType() Type {
	if t.Elem == nil {
		return Type{}
	}
	return *t.Elem
}

func (t Type) String() string {
	switch t.Kind {
	case Sequence, Future:
		if t.Elem == nil {
			return t.Kind.String()
		}
		return t.Kind.String() + "<" + t.Elem.String() + ">"
	}
	return t.Kind.String()
}

// Equal compares types structurally. future and future<void> are equal.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind != Sequence && t.Kind != Future {
		return true
	}
	return t.ElemType().Equal(o.ElemType())
}

// PassingMode is how a parameter's storage relates to the caller's variable.
type PassingMode uint8

const (
	ByValue PassingMode = iota
	In                  // read-only alias
	ByRef               // read-write alias
	Out                 // write-only, assigned on every return
)

var modeNames = [...]string{
	ByValue: "byval",
	In:      "in",
	ByRef:   "ref",
	Out:     "out",
}

func (m PassingMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", m)
}

// Valid reports whether m is one of the known passing modes.
func (m PassingMode) Valid() bool { return m <= Out }

// Aliased reports whether the parameter shares the caller's storage.
func (m PassingMode) Aliased() bool { return m == In || m == ByRef || m == Out }

// ParseMode parses the textual form produced by String.
func ParseMode(s string) (PassingMode, bool) {
	for i, n := range modeNames {
		if n == s {
			return PassingMode(i), true
		}
	}
	return 0, false
}

// Param is one formal parameter.
type Param struct {
	Name string
	Type Type
	Mode PassingMode
}

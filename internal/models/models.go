package models

import "fmt"

// Kind identifies which of the seven JSON value kinds a Node holds.
//
// RFC 8259 - Section 3.
type Kind int

const (
	KindObject Kind = iota
	KindArray
	KindNumber
	KindString
	KindNull
	KindTrue
	KindFalse
)

var kindNames = [...]string{
	KindObject: "object",
	KindArray:  "array",
	KindNumber: "number",
	KindString: "string",
	KindNull:   "null",
	KindTrue:   "true",
	KindFalse:  "false",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Composite reports whether values of this kind hold children.
func (k Kind) Composite() bool {
	return k == KindObject || k == KindArray
}

// Node is one value in a parsed JSON tree. The set of implementations is closed:
// *Object, *Array, Number, String, True, False and Null.
type Node interface {
	Kind() Kind
	node()
}

// Member is a named entry of an object.
type Member struct {
	Name  string
	Value Node
}

// Object holds its members in source order.
type Object struct {
	Members []Member
}

// Array holds its elements in source order.
type Array struct {
	Values []Node
}

type (
	Number float64
	String string
	True   struct{}
	False  struct{}
	Null   struct{}
)

func (*Object) Kind() Kind { return KindObject }
func (*Array) Kind() Kind  { return KindArray }
func (Number) Kind() Kind  { return KindNumber }
func (String) Kind() Kind  { return KindString }
func (True) Kind() Kind    { return KindTrue }
func (False) Kind() Kind   { return KindFalse }
func (Null) Kind() Kind    { return KindNull }

func (*Object) node() {}
func (*Array) node()  {}
func (Number) node()  {}
func (String) node()  {}
func (True) node()    {}
func (False) node()   {}
func (Null) node()    {}

// Bool returns the node for a boolean value.
func Bool(b bool) Node {
	if b {
		return True{}
	}
	return False{}
}

// Get returns the value of the first member named name.
func (o *Object) Get(name string) (Node, bool) {
	for _, m := range o.Members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return nil, false
}

// Len returns the number of children of a composite node and zero otherwise.
func Len(n Node) int {
	switch v := n.(type) {
	case *Object:
		return len(v.Members)
	case *Array:
		return len(v.Values)
	}
	return 0
}

// Equal compares two trees structurally. Member order is significant.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch av := a.(type) {
	case *Object:
		bv := b.(*Object)
		if len(av.Members) != len(bv.Members) {
			return false
		}
		for i := range av.Members {
			if av.Members[i].Name != bv.Members[i].Name {
				return false
			}
			if !Equal(av.Members[i].Value, bv.Members[i].Value) {
				return false
			}
		}
	case *Array:
		bv := b.(*Array)
		if len(av.Values) != len(bv.Values) {
			return false
		}
		for i := range av.Values {
			if !Equal(av.Values[i], bv.Values[i]) {
				return false
			}
		}
	case Number:
		return av == b.(Number)
	case String:
		return av == b.(String)
	}
	return true
}

package vm

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"

	"github.com/kleopatra999/pop/internal/errors"
)

// Kind tags a runtime value.
type Kind byte

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSymbol
	KindList
	KindDict
	KindSlice
	KindEnv
	KindObject
	KindFunc
)

var kindNames = [...]string{
	"Null", "Bool", "Int", "Float", "String", "Symbol",
	"List", "Dict", "Slice", "Env", "Object", "Func",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Value is a dynamically-typed runtime value. Values are shared by
// reference; the machine never deep-copies. Every value carries a mark
// bit reserved for a future tracing collector.
type Value interface {
	Kind() Kind
	Repr() string
	Truthy() bool
	Marked() bool
	SetMark()
	ClearMark()
}

type marker struct {
	mark bool
}

func (m *marker) Marked() bool { return m.mark }
func (m *marker) SetMark()     { m.mark = true }
func (m *marker) ClearMark()   { m.mark = false }

type Null struct {
	marker
}

func (*Null) Kind() Kind   { return KindNull }
func (*Null) Repr() string { return "Null" }
func (*Null) Truthy() bool { return false }

type Bool struct {
	marker
	Value bool
}

func (*Bool) Kind() Kind { return KindBool }

func (b *Bool) Repr() string {
	if b.Value {
		return "True"
	}
	return "False"
}

func (b *Bool) Truthy() bool { return b.Value }

type Int struct {
	marker
	Value int64
}

func (*Int) Kind() Kind     { return KindInt }
func (i *Int) Repr() string { return strconv.FormatInt(i.Value, 10) }
func (i *Int) Truthy() bool { return i.Value != 0 }

type Float struct {
	marker
	Value float64
}

func (*Float) Kind() Kind     { return KindFloat }
func (f *Float) Repr() string { return strconv.FormatFloat(f.Value, 'f', 6, 64) }
func (f *Float) Truthy() bool { return f.Value != 0.0 }

type String struct {
	marker
	Value string
}

func (*String) Kind() Kind     { return KindString }
func (s *String) Repr() string { return "'" + s.Value + "'" }
func (s *String) Truthy() bool { return s.Value != "" }

type Symbol struct {
	marker
	Name string
}

func (*Symbol) Kind() Kind     { return KindSymbol }
func (s *Symbol) Repr() string { return s.Name }
func (s *Symbol) Truthy() bool { return s.Name != "" }

type List struct {
	marker
	Elements []Value
}

func (*List) Kind() Kind { return KindList }

func (l *List) Repr() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, elem := range l.Elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(elem.Repr())
	}
	sb.WriteString("]")
	return sb.String()
}

func (l *List) Truthy() bool { return len(l.Elements) > 0 }

func (l *List) Append(v Value) {
	l.Elements = append(l.Elements, v)
}

type dictEntry struct {
	key   Value
	value Value
}

// Dict maps values to values, bucketed by the key's hash. Unhashable
// keys are rejected.
type Dict struct {
	marker
	buckets map[uint64][]dictEntry
	count   int
}

func NewDict() *Dict {
	return &Dict{buckets: make(map[uint64][]dictEntry)}
}

func (*Dict) Kind() Kind { return KindDict }

func (d *Dict) Repr() string {
	var sb strings.Builder
	sb.WriteString("{")
	first := true
	for _, bucket := range d.buckets {
		for _, entry := range bucket {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			sb.WriteString(entry.key.Repr())
			sb.WriteString(": ")
			sb.WriteString(entry.value.Repr())
		}
	}
	sb.WriteString("}")
	return sb.String()
}

func (d *Dict) Truthy() bool { return d.count > 0 }

func (d *Dict) Len() int { return d.count }

func (d *Dict) Get(key Value) (Value, bool, error) {
	h, err := Hash(key)
	if err != nil {
		return nil, false, err
	}
	for _, entry := range d.buckets[h] {
		if sameKey(entry.key, key) {
			return entry.value, true, nil
		}
	}
	return nil, false, nil
}

func (d *Dict) Set(key, value Value) error {
	h, err := Hash(key)
	if err != nil {
		return err
	}
	bucket := d.buckets[h]
	for i, entry := range bucket {
		if sameKey(entry.key, key) {
			bucket[i].value = value
			return nil
		}
	}
	d.buckets[h] = append(bucket, dictEntry{key: key, value: value})
	d.count++
	return nil
}

type Slice struct {
	marker
	Start Value
	Stop  Value
	Step  Value
}

func (*Slice) Kind() Kind { return KindSlice }

func (s *Slice) Repr() string {
	return fmt.Sprintf("<Slice start='%s' stop='%s' step='%s'>",
		s.Start.Repr(), s.Stop.Repr(), s.Step.Repr())
}

func (*Slice) Truthy() bool { return true }

// Object is an instance with named members and a defining environment.
type Object struct {
	marker
	Env     *Env
	Members map[string]Value
}

func NewObject(env *Env) *Object {
	return &Object{Env: NewEnv(env), Members: make(map[string]Value)}
}

func (*Object) Kind() Kind     { return KindObject }
func (o *Object) Repr() string { return fmt.Sprintf("<Object at='%p'>", o) }
func (*Object) Truthy() bool   { return true }

func (o *Object) GetAttr(name string) (Value, bool) {
	v, ok := o.Members[name]
	return v, ok
}

// Function is a code address plus the environment captured at its
// definition.
type Function struct {
	marker
	Addr uint32
	Env  *Env
}

func (*Function) Kind() Kind { return KindFunc }

func (f *Function) Repr() string {
	return fmt.Sprintf("<Function addr='0x%08X'>", f.Addr)
}

func (*Function) Truthy() bool { return true }

// Hash computes a value's hash: Int, Float, String and Symbol hash by
// value, List and Dict fail, everything else hashes by identity.
func Hash(v Value) (uint64, error) {
	switch v := v.(type) {
	case *Int:
		return uint64(v.Value), nil
	case *Float:
		return math.Float64bits(v.Value), nil
	case *String:
		return hashString(v.Value), nil
	case *Symbol:
		return hashString(v.Name), nil
	case *List, *Dict:
		return 0, errors.NewRuntimeError(
			fmt.Sprintf("value of type '%s' is not hashable", v.Kind()))
	default:
		return hashString(fmt.Sprintf("%p", v)), nil
	}
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// sameKey compares two dictionary keys without failing: the result of
// Equal, or false where Equal reports an error.
func sameKey(a, b Value) bool {
	eq, err := Equal(a, b)
	return err == nil && eq
}

// Equal implements the == operator: by value for two Nulls, Bools,
// Strings or Symbols, numeric across Int and Float, address equality
// for functions, identity for objects. List, Dict, Slice and Env values
// are not compared, even against their own kind: such a pair fails like
// any other cross-kind comparison.
func Equal(left, right Value) (bool, error) {
	switch l := left.(type) {
	case *Null:
		if _, ok := right.(*Null); ok {
			return true, nil
		}
	case *Bool:
		if r, ok := right.(*Bool); ok {
			return l.Value == r.Value, nil
		}
	case *Int:
		switch r := right.(type) {
		case *Int:
			return l.Value == r.Value, nil
		case *Float:
			return float64(l.Value) == r.Value, nil
		}
	case *Float:
		switch r := right.(type) {
		case *Int:
			return l.Value == float64(r.Value), nil
		case *Float:
			return l.Value == r.Value, nil
		}
	case *String:
		if r, ok := right.(*String); ok {
			return l.Value == r.Value, nil
		}
	case *Symbol:
		if r, ok := right.(*Symbol); ok {
			return l.Name == r.Name, nil
		}
	case *Function:
		if r, ok := right.(*Function); ok {
			return l.Addr == r.Addr, nil
		}
	case *Object:
		if r, ok := right.(*Object); ok {
			return l == r, nil
		}
	}
	return false, errors.NewRuntimeError(fmt.Sprintf(
		"cannot test equality of types '%s' and '%s'", left.Kind(), right.Kind()))
}

package vm

import (
	"testing"
)

func TestReprs(t *testing.T) {
	list := &List{Elements: []Value{&Int{Value: 1}, &String{Value: "a"}}}
	tests := []struct {
		value Value
		want  string
	}{
		{&Null{}, "Null"},
		{&Bool{Value: true}, "True"},
		{&Bool{Value: false}, "False"},
		{&Int{Value: -7}, "-7"},
		{&Float{Value: 3.14}, "3.140000"},
		{&String{Value: "abcd"}, "'abcd'"},
		{&Symbol{Name: "sym"}, "sym"},
		{list, "[1, 'a']"},
	}
	for _, test := range tests {
		if got := test.value.Repr(); got != test.want {
			t.Errorf("repr of %s is %q, want %q", test.value.Kind(), got, test.want)
		}
	}
}

func TestKindNames(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{&Null{}, "Null"},
		{&Bool{}, "Bool"},
		{&Int{}, "Int"},
		{&Float{}, "Float"},
		{&String{}, "String"},
		{&Symbol{}, "Symbol"},
		{&List{}, "List"},
		{NewDict(), "Dict"},
		{&Slice{}, "Slice"},
		{NewEnv(nil), "Env"},
		{NewObject(nil), "Object"},
		{&Function{}, "Func"},
	}
	for _, test := range tests {
		if got := test.value.Kind().String(); got != test.want {
			t.Errorf("kind name %q, want %q", got, test.want)
		}
	}
}

// truthy(v) == !falsy(v) for every value kind
func TestTruthiness(t *testing.T) {
	env := NewEnv(nil)
	env.Define("x", &Int{Value: 1})
	dict := NewDict()
	if err := dict.Set(&String{Value: "k"}, &Int{Value: 1}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		value Value
		want  bool
	}{
		{&Null{}, false},
		{&Bool{Value: true}, true},
		{&Bool{Value: false}, false},
		{&Int{Value: 0}, false},
		{&Int{Value: 3}, true},
		{&Float{Value: 0.0}, false},
		{&Float{Value: 0.1}, true},
		{&String{Value: ""}, false},
		{&String{Value: "x"}, true},
		{&List{}, false},
		{&List{Elements: []Value{&Null{}}}, true},
		{NewDict(), false},
		{dict, true},
		{NewEnv(nil), false},
		{env, true},
		{&Slice{Start: &Null{}, Stop: &Null{}, Step: &Null{}}, true},
		{NewObject(nil), true},
		{&Function{Addr: 5}, true},
	}
	for _, test := range tests {
		if got := test.value.Truthy(); got != test.want {
			t.Errorf("truthiness of %s (%s) is %v, want %v",
				test.value.Kind(), test.value.Repr(), got, test.want)
		}
	}
}

func TestEqualSemantics(t *testing.T) {
	mustEqual := func(a, b Value, want bool) {
		t.Helper()
		got, err := Equal(a, b)
		if err != nil {
			t.Fatalf("Equal(%s, %s): %v", a.Repr(), b.Repr(), err)
		}
		if got != want {
			t.Errorf("Equal(%s, %s) = %v, want %v", a.Repr(), b.Repr(), got, want)
		}
	}

	mustEqual(&Null{}, &Null{}, true)
	mustEqual(&Int{Value: 1}, &Int{Value: 1}, true)
	mustEqual(&Int{Value: 1}, &Float{Value: 1.0}, true)
	mustEqual(&Float{Value: 2.5}, &Int{Value: 2}, false)
	mustEqual(&String{Value: "a"}, &String{Value: "a"}, true)
	mustEqual(&Function{Addr: 5}, &Function{Addr: 5}, true)
	mustEqual(&Function{Addr: 5}, &Function{Addr: 9}, false)

	obj := NewObject(nil)
	mustEqual(obj, obj, true)
	mustEqual(obj, NewObject(nil), false)

	if _, err := Equal(&Int{Value: 1}, &String{Value: "1"}); err == nil {
		t.Error("expected cross-kind equality to fail")
	}
	if _, err := Equal(&Null{}, &Bool{}); err == nil {
		t.Error("expected Null == Bool to fail")
	}
}

func TestHashSemantics(t *testing.T) {
	h1, err := Hash(&Int{Value: 42})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Hash(&Int{Value: 42})
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("equal ints hash differently")
	}

	s1, _ := Hash(&String{Value: "abc"})
	s2, _ := Hash(&String{Value: "abc"})
	if s1 != s2 {
		t.Error("equal strings hash differently")
	}

	if _, err := Hash(&List{}); err == nil {
		t.Error("expected hashing a List to fail")
	}
	if _, err := Hash(NewDict()); err == nil {
		t.Error("expected hashing a Dict to fail")
	}

	// identity kinds are hashable
	if _, err := Hash(NewObject(nil)); err != nil {
		t.Errorf("hashing an Object failed: %v", err)
	}
}

func TestDictOperations(t *testing.T) {
	d := NewDict()
	if err := d.Set(&Int{Value: 1}, &String{Value: "one"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Set(&String{Value: "k"}, &Int{Value: 2}); err != nil {
		t.Fatal(err)
	}
	if err := d.Set(&Int{Value: 1}, &String{Value: "uno"}); err != nil {
		t.Fatal(err)
	}

	if d.Len() != 2 {
		t.Errorf("len %d, want 2", d.Len())
	}
	v, ok, err := d.Get(&Int{Value: 1})
	if err != nil || !ok {
		t.Fatalf("get failed: %v %v", ok, err)
	}
	if v.(*String).Value != "uno" {
		t.Errorf("value %s, want 'uno'", v.Repr())
	}

	if err := d.Set(&List{}, &Null{}); err == nil {
		t.Error("expected setting an unhashable key to fail")
	}
}

func TestEnvScoping(t *testing.T) {
	root := NewEnv(nil)
	root.Define("a", &Int{Value: 1})
	child := NewEnv(root)
	child.Define("b", &Int{Value: 2})

	if v, ok := child.Lookup("a", true); !ok || v.(*Int).Value != 1 {
		t.Error("lookup through the parent chain failed")
	}
	if _, ok := child.Lookup("a", false); ok {
		t.Error("local-only lookup should not find the parent's binding")
	}
	if _, ok := root.Lookup("b", true); ok {
		t.Error("parent sees the child's binding")
	}

	// a bind shadows, it does not overwrite the parent frame
	child.Define("a", &Int{Value: 99})
	if v, _ := root.Lookup("a", true); v.(*Int).Value != 1 {
		t.Error("child bind overwrote the parent frame")
	}
}

package vm

import (
	"fmt"

	"github.com/kleopatra999/pop/internal/errors"
)

// Index evaluates object[index]: integer indexing into lists and
// strings, key lookup in dicts, and slice values for sub-sequences.
func Index(object, index Value) (Value, error) {
	if s, ok := index.(*Slice); ok {
		return sliceIndex(object, s)
	}

	switch obj := object.(type) {
	case *List:
		i, err := indexInt(index, int64(len(obj.Elements)))
		if err != nil {
			return nil, err
		}
		return obj.Elements[i], nil
	case *String:
		i, err := indexInt(index, int64(len(obj.Value)))
		if err != nil {
			return nil, err
		}
		return &String{Value: obj.Value[i : i+1]}, nil
	case *Dict:
		v, ok, err := obj.Get(index)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.NewRuntimeError(
				fmt.Sprintf("key %s not found", index.Repr()))
		}
		return v, nil
	}
	return nil, errors.NewRuntimeError(
		fmt.Sprintf("value of type '%s' is not indexable", object.Kind()))
}

func indexInt(index Value, length int64) (int64, error) {
	i, ok := index.(*Int)
	if !ok {
		return 0, errors.NewRuntimeError(
			fmt.Sprintf("value of type '%s' is not a valid index", index.Kind()))
	}
	n := i.Value
	if n < 0 {
		n += length
	}
	if n < 0 || n >= length {
		return 0, errors.NewRuntimeError(
			fmt.Sprintf("index %d out of range", i.Value))
	}
	return n, nil
}

func sliceIndex(object Value, s *Slice) (Value, error) {
	switch obj := object.(type) {
	case *List:
		start, stop, step, err := sliceBounds(s, int64(len(obj.Elements)))
		if err != nil {
			return nil, err
		}
		out := &List{}
		for i := start; i < stop; i += step {
			out.Append(obj.Elements[i])
		}
		return out, nil
	case *String:
		start, stop, step, err := sliceBounds(s, int64(len(obj.Value)))
		if err != nil {
			return nil, err
		}
		var bytes []byte
		for i := start; i < stop; i += step {
			bytes = append(bytes, obj.Value[i])
		}
		return &String{Value: string(bytes)}, nil
	}
	return nil, errors.NewRuntimeError(
		fmt.Sprintf("value of type '%s' cannot be sliced", object.Kind()))
}

// sliceBounds resolves a slice's start, stop and step against a
// sequence length. Omitted components were lowered as Null.
func sliceBounds(s *Slice, length int64) (start, stop, step int64, err error) {
	start, err = sliceComponent(s.Start, 0, length)
	if err != nil {
		return
	}
	stop, err = sliceComponent(s.Stop, length, length)
	if err != nil {
		return
	}
	step = 1
	if _, isNull := s.Step.(*Null); s.Step != nil && !isNull {
		i, ok := s.Step.(*Int)
		if !ok || i.Value <= 0 {
			err = errors.NewRuntimeError("slice step must be a positive Int")
			return
		}
		step = i.Value
	}
	return
}

func sliceComponent(v Value, fallback, length int64) (int64, error) {
	if v == nil {
		return fallback, nil
	}
	if _, isNull := v.(*Null); isNull {
		return fallback, nil
	}
	i, ok := v.(*Int)
	if !ok {
		return 0, errors.NewRuntimeError(
			fmt.Sprintf("value of type '%s' is not a valid slice bound", v.Kind()))
	}
	n := i.Value
	if n < 0 {
		n += length
	}
	if n < 0 {
		n = 0
	}
	if n > length {
		n = length
	}
	return n, nil
}

// Member evaluates object.member for objects, dicts and environments.
func Member(object Value, name string) (Value, error) {
	switch obj := object.(type) {
	case *Object:
		if v, ok := obj.GetAttr(name); ok {
			return v, nil
		}
		if v, ok := obj.Env.Lookup(name, true); ok {
			return v, nil
		}
	case *Dict:
		v, ok, err := obj.Get(&String{Value: name})
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
	case *Env:
		if v, ok := obj.Lookup(name, true); ok {
			return v, nil
		}
	default:
		return nil, errors.NewRuntimeError(
			fmt.Sprintf("value of type '%s' has no members", object.Kind()))
	}
	return nil, errors.NewRuntimeError(
		fmt.Sprintf("no member named '%s'", name))
}

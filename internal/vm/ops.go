package vm

import (
	"fmt"
	"math"

	"github.com/kleopatra999/pop/internal/errors"
)

// Operator dispatch. Each operator is a single function matching on
// both operands' kinds; unsupported combinations fail with a runtime
// error naming both kinds.

func binopError(verb string, left, right Value) error {
	return errors.NewRuntimeError(fmt.Sprintf(
		"cannot %s types '%s' and '%s'", verb, left.Kind(), right.Kind()))
}

func unopError(verb string, v Value) error {
	return errors.NewRuntimeError(fmt.Sprintf("cannot %s type '%s'", verb, v.Kind()))
}

func Add(left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Int:
		switch r := right.(type) {
		case *Int:
			return &Int{Value: l.Value + r.Value}, nil
		case *Float:
			return &Float{Value: float64(l.Value) + r.Value}, nil
		}
	case *Float:
		switch r := right.(type) {
		case *Int:
			return &Float{Value: l.Value + float64(r.Value)}, nil
		case *Float:
			return &Float{Value: l.Value + r.Value}, nil
		}
	case *String:
		if r, ok := right.(*String); ok {
			return &String{Value: l.Value + r.Value}, nil
		}
	}
	return nil, binopError("add", left, right)
}

func Sub(left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Int:
		switch r := right.(type) {
		case *Int:
			return &Int{Value: l.Value - r.Value}, nil
		case *Float:
			return &Float{Value: float64(l.Value) - r.Value}, nil
		}
	case *Float:
		switch r := right.(type) {
		case *Int:
			return &Float{Value: l.Value - float64(r.Value)}, nil
		case *Float:
			return &Float{Value: l.Value - r.Value}, nil
		}
	}
	return nil, binopError("subtract", left, right)
}

func Mul(left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Int:
		switch r := right.(type) {
		case *Int:
			return &Int{Value: l.Value * r.Value}, nil
		case *Float:
			return &Float{Value: float64(l.Value) * r.Value}, nil
		}
	case *Float:
		switch r := right.(type) {
		case *Int:
			return &Float{Value: l.Value * float64(r.Value)}, nil
		case *Float:
			return &Float{Value: l.Value * r.Value}, nil
		}
	}
	return nil, binopError("multiply", left, right)
}

func Div(left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Int:
		switch r := right.(type) {
		case *Int:
			if r.Value == 0 {
				return nil, errors.NewRuntimeError("integer division by zero")
			}
			return &Int{Value: l.Value / r.Value}, nil
		case *Float:
			return &Float{Value: float64(l.Value) / r.Value}, nil
		}
	case *Float:
		switch r := right.(type) {
		case *Int:
			return &Float{Value: l.Value / float64(r.Value)}, nil
		case *Float:
			return &Float{Value: l.Value / r.Value}, nil
		}
	}
	return nil, binopError("divide", left, right)
}

func Mod(left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Int:
		switch r := right.(type) {
		case *Int:
			if r.Value == 0 {
				return nil, errors.NewRuntimeError("integer modulo by zero")
			}
			return &Int{Value: l.Value % r.Value}, nil
		case *Float:
			return &Float{Value: math.Mod(float64(l.Value), r.Value)}, nil
		}
	case *Float:
		switch r := right.(type) {
		case *Int:
			return &Float{Value: math.Mod(l.Value, float64(r.Value))}, nil
		case *Float:
			return &Float{Value: math.Mod(l.Value, r.Value)}, nil
		}
	}
	return nil, binopError("modulo", left, right)
}

func Pow(left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Int:
		switch r := right.(type) {
		case *Int:
			return &Int{Value: int64(math.Pow(float64(l.Value), float64(r.Value)))}, nil
		case *Float:
			return &Float{Value: math.Pow(float64(l.Value), r.Value)}, nil
		}
	case *Float:
		switch r := right.(type) {
		case *Int:
			return &Float{Value: math.Pow(l.Value, float64(r.Value))}, nil
		case *Float:
			return &Float{Value: math.Pow(l.Value, r.Value)}, nil
		}
	}
	return nil, binopError("raise", left, right)
}

func Pos(v Value) (Value, error) {
	switch v := v.(type) {
	case *Int:
		return &Int{Value: +v.Value}, nil
	case *Float:
		return &Float{Value: +v.Value}, nil
	}
	return nil, unopError("make positive", v)
}

func Neg(v Value) (Value, error) {
	switch v := v.(type) {
	case *Int:
		return &Int{Value: -v.Value}, nil
	case *Float:
		return &Float{Value: -v.Value}, nil
	}
	return nil, unopError("negate", v)
}

func LogAnd(left, right Value) (Value, error) {
	return &Bool{Value: left.Truthy() && right.Truthy()}, nil
}

func LogOr(left, right Value) (Value, error) {
	return &Bool{Value: left.Truthy() || right.Truthy()}, nil
}

func LogNot(v Value) (Value, error) {
	return &Bool{Value: !v.Truthy()}, nil
}

func bitPair(verb string, left, right Value) (*Int, *Int, error) {
	l, lok := left.(*Int)
	r, rok := right.(*Int)
	if !lok || !rok {
		return nil, nil, binopError(verb, left, right)
	}
	return l, r, nil
}

func BitAnd(left, right Value) (Value, error) {
	l, r, err := bitPair("bitwise-and", left, right)
	if err != nil {
		return nil, err
	}
	return &Int{Value: l.Value & r.Value}, nil
}

func BitOr(left, right Value) (Value, error) {
	l, r, err := bitPair("bitwise-or", left, right)
	if err != nil {
		return nil, err
	}
	return &Int{Value: l.Value | r.Value}, nil
}

func BitXor(left, right Value) (Value, error) {
	l, r, err := bitPair("bitwise-xor", left, right)
	if err != nil {
		return nil, err
	}
	return &Int{Value: l.Value ^ r.Value}, nil
}

func BitNot(v Value) (Value, error) {
	if i, ok := v.(*Int); ok {
		return &Int{Value: ^i.Value}, nil
	}
	return nil, unopError("complement", v)
}

func LeftShift(left, right Value) (Value, error) {
	l, r, err := bitPair("left-shift", left, right)
	if err != nil {
		return nil, err
	}
	return &Int{Value: l.Value << uint64(r.Value)}, nil
}

func RightShift(left, right Value) (Value, error) {
	l, r, err := bitPair("right-shift", left, right)
	if err != nil {
		return nil, err
	}
	return &Int{Value: l.Value >> uint64(r.Value)}, nil
}

// compareOrder orders two numeric or string values: -1, 0 or 1.
func compareOrder(left, right Value) (int, error) {
	switch l := left.(type) {
	case *Int:
		switch r := right.(type) {
		case *Int:
			return orderInt(l.Value, r.Value), nil
		case *Float:
			return orderFloat(float64(l.Value), r.Value), nil
		}
	case *Float:
		switch r := right.(type) {
		case *Int:
			return orderFloat(l.Value, float64(r.Value)), nil
		case *Float:
			return orderFloat(l.Value, r.Value), nil
		}
	case *String:
		if r, ok := right.(*String); ok {
			switch {
			case l.Value < r.Value:
				return -1, nil
			case l.Value > r.Value:
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, binopError("compare", left, right)
}

func orderInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func orderFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func Eq(left, right Value) (Value, error) {
	eq, err := Equal(left, right)
	if err != nil {
		return nil, err
	}
	return &Bool{Value: eq}, nil
}

func Ne(left, right Value) (Value, error) {
	eq, err := Equal(left, right)
	if err != nil {
		return nil, err
	}
	return &Bool{Value: !eq}, nil
}

func Gt(left, right Value) (Value, error) {
	ord, err := compareOrder(left, right)
	if err != nil {
		return nil, err
	}
	return &Bool{Value: ord > 0}, nil
}

func Ge(left, right Value) (Value, error) {
	ord, err := compareOrder(left, right)
	if err != nil {
		return nil, err
	}
	return &Bool{Value: ord >= 0}, nil
}

func Lt(left, right Value) (Value, error) {
	ord, err := compareOrder(left, right)
	if err != nil {
		return nil, err
	}
	return &Bool{Value: ord < 0}, nil
}

func Le(left, right Value) (Value, error) {
	ord, err := compareOrder(left, right)
	if err != nil {
		return nil, err
	}
	return &Bool{Value: ord <= 0}, nil
}

// In-place forms mutate the left operand where the type permits and
// yield the mutated value, so the shared binding observes the change.

func IPAdd(left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Int:
		switch r := right.(type) {
		case *Int:
			l.Value += r.Value
			return l, nil
		case *Float:
			l.Value += int64(r.Value)
			return l, nil
		}
	case *Float:
		switch r := right.(type) {
		case *Int:
			l.Value += float64(r.Value)
			return l, nil
		case *Float:
			l.Value += r.Value
			return l, nil
		}
	case *String:
		if r, ok := right.(*String); ok {
			l.Value += r.Value
			return l, nil
		}
	}
	return nil, binopError("in-place add", left, right)
}

func IPSub(left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Int:
		switch r := right.(type) {
		case *Int:
			l.Value -= r.Value
			return l, nil
		case *Float:
			l.Value -= int64(r.Value)
			return l, nil
		}
	case *Float:
		switch r := right.(type) {
		case *Int:
			l.Value -= float64(r.Value)
			return l, nil
		case *Float:
			l.Value -= r.Value
			return l, nil
		}
	}
	return nil, binopError("in-place subtract", left, right)
}

func IPMul(left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Int:
		switch r := right.(type) {
		case *Int:
			l.Value *= r.Value
			return l, nil
		case *Float:
			l.Value *= int64(r.Value)
			return l, nil
		}
	case *Float:
		switch r := right.(type) {
		case *Int:
			l.Value *= float64(r.Value)
			return l, nil
		case *Float:
			l.Value *= r.Value
			return l, nil
		}
	}
	return nil, binopError("in-place multiply", left, right)
}

func IPDiv(left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Int:
		switch r := right.(type) {
		case *Int:
			if r.Value == 0 {
				return nil, errors.NewRuntimeError("integer division by zero")
			}
			l.Value /= r.Value
			return l, nil
		case *Float:
			l.Value = int64(float64(l.Value) / r.Value)
			return l, nil
		}
	case *Float:
		switch r := right.(type) {
		case *Int:
			l.Value /= float64(r.Value)
			return l, nil
		case *Float:
			l.Value /= r.Value
			return l, nil
		}
	}
	return nil, binopError("in-place divide", left, right)
}

func IPMod(left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Int:
		switch r := right.(type) {
		case *Int:
			if r.Value == 0 {
				return nil, errors.NewRuntimeError("integer modulo by zero")
			}
			l.Value %= r.Value
			return l, nil
		case *Float:
			l.Value = int64(math.Mod(float64(l.Value), r.Value))
			return l, nil
		}
	case *Float:
		switch r := right.(type) {
		case *Int:
			l.Value = math.Mod(l.Value, float64(r.Value))
			return l, nil
		case *Float:
			l.Value = math.Mod(l.Value, r.Value)
			return l, nil
		}
	}
	return nil, binopError("in-place modulo", left, right)
}

func IPBitAnd(left, right Value) (Value, error) {
	l, r, err := bitPair("in-place bitwise-and", left, right)
	if err != nil {
		return nil, err
	}
	l.Value &= r.Value
	return l, nil
}

func IPBitOr(left, right Value) (Value, error) {
	l, r, err := bitPair("in-place bitwise-or", left, right)
	if err != nil {
		return nil, err
	}
	l.Value |= r.Value
	return l, nil
}

func IPBitXor(left, right Value) (Value, error) {
	l, r, err := bitPair("in-place bitwise-xor", left, right)
	if err != nil {
		return nil, err
	}
	l.Value ^= r.Value
	return l, nil
}

// IPBitNot rewrites the left operand with its own complement; the
// right operand only has to be an Int.
func IPBitNot(left, right Value) (Value, error) {
	l, _, err := bitPair("in-place complement", left, right)
	if err != nil {
		return nil, err
	}
	l.Value = ^l.Value
	return l, nil
}

func IPLeftShift(left, right Value) (Value, error) {
	l, r, err := bitPair("in-place left-shift", left, right)
	if err != nil {
		return nil, err
	}
	l.Value <<= uint64(r.Value)
	return l, nil
}

func IPRightShift(left, right Value) (Value, error) {
	l, r, err := bitPair("in-place right-shift", left, right)
	if err != nil {
		return nil, err
	}
	l.Value >>= uint64(r.Value)
	return l, nil
}

// IPAssign copies the right operand's payload into the left value so
// every binding sharing it observes the assignment. Only same-kind
// pairs can morph in place; for every other combination the machine
// rebuilds the binding instead (see the IP_ASSIGN dispatch).
func IPAssign(left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Bool:
		if r, ok := right.(*Bool); ok {
			l.Value = r.Value
			return l, nil
		}
	case *Int:
		if r, ok := right.(*Int); ok {
			l.Value = r.Value
			return l, nil
		}
	case *Float:
		if r, ok := right.(*Float); ok {
			l.Value = r.Value
			return l, nil
		}
	case *String:
		if r, ok := right.(*String); ok {
			l.Value = r.Value
			return l, nil
		}
	}
	return nil, binopError("assign", right, left)
}

func PreInc(v Value) (Value, error) {
	switch v := v.(type) {
	case *Int:
		v.Value++
		return v, nil
	case *Float:
		v.Value++
		return v, nil
	}
	return nil, unopError("pre-increment", v)
}

func PreDec(v Value) (Value, error) {
	switch v := v.(type) {
	case *Int:
		v.Value--
		return v, nil
	case *Float:
		v.Value--
		return v, nil
	}
	return nil, unopError("pre-decrement", v)
}

func PostInc(v Value) (Value, error) {
	switch v := v.(type) {
	case *Int:
		old := v.Value
		v.Value++
		return &Int{Value: old}, nil
	case *Float:
		old := v.Value
		v.Value++
		return &Float{Value: old}, nil
	}
	return nil, unopError("post-increment", v)
}

func PostDec(v Value) (Value, error) {
	switch v := v.(type) {
	case *Int:
		old := v.Value
		v.Value--
		return &Int{Value: old}, nil
	case *Float:
		old := v.Value
		v.Value--
		return &Float{Value: old}, nil
	}
	return nil, unopError("post-decrement", v)
}

// Package steprange provides a numeric range with a step, as used to describe
// the valid values of a device control or a frame dimension.
package steprange

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unsafe"
)

// ErrInvalidArgument is returned for malformed ranges (negative step, bad text).
var ErrInvalidArgument = errors.New("steprange: invalid argument")

// separator sits between min, step and max in the text form.
const separator = "..."

// floatTolerance is the relative tolerance used to decide whether a
// floating-point value lies on the step grid.
const floatTolerance = 1e-6

// Number is the set of types a StepRange can hold.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// StepRange represents [min .. (step) .. max]. Valid values are min,
// min+step, min+2*step, ... and max, even when max is not on the step grid.
// The zero value is [0 .. (0) .. 0].
type StepRange[T Number] struct {
	min, step, max T
}

// New creates a StepRange. It fails when step is negative.
func New[T Number](min, step, max T) (StepRange[T], error) {
	if step < 0 {
		return StepRange[T]{}, fmt.Errorf("%w: negative step %v", ErrInvalidArgument, step)
	}
	return StepRange[T]{min: min, step: step, max: max}, nil
}

// MustNew is like New but panics on error. Intended for package-level limits.
func MustNew[T Number](min, step, max T) StepRange[T] {
	r, err := New(min, step, max)
	if err != nil {
		panic(err)
	}
	return r
}

// Min returns the minimum value.
func (r StepRange[T]) Min() T { return r.min }

// Step returns the step value.
func (r StepRange[T]) Step() T { return r.step }

// Max returns the maximum value.
func (r StepRange[T]) Max() T { return r.max }

// Empty reports whether min == max.
func (r StepRange[T]) Empty() bool { return r.min == r.max }

// Equal reports whether both ranges have the same min, step and max.
func (r StepRange[T]) Equal(o StepRange[T]) bool { return r == o }

// IsValueValid reports whether v is max, or min + k*step for some integer k >= 0
// without exceeding max.
func (r StepRange[T]) IsValueValid(v T) bool {
	if v == r.max || v == r.min {
		return true
	}
	if v < r.min || v > r.max || r.step == 0 {
		return false
	}

	diff := v - r.min
	q := diff / r.step
	if !isFloat[T]() {
		return q*r.step == diff
	}

	k := math.Round(float64(q))
	return math.Abs(float64(q)-k) <= floatTolerance*math.Max(1, k)
}

// Clamp returns the valid value nearest to v.
func (r StepRange[T]) Clamp(v T) T {
	if v <= r.min {
		return r.min
	}
	if v >= r.max {
		return r.max
	}
	if r.step == 0 {
		if v-r.min < r.max-v {
			return r.min
		}
		return r.max
	}

	k := math.Round(float64(v-r.min) / float64(r.step))
	c := r.min + T(k)*r.step
	if c > r.max || r.max-v < absDiff(v, c) {
		return r.max
	}
	return c
}

// String formats the range as "min...step...max".
func (r StepRange[T]) String() string {
	return formatValue(r.min) + separator + formatValue(r.step) + separator + formatValue(r.max)
}

// MarshalText implements encoding.TextMarshaler. The zero range, which
// callers treat as unset, marshals to empty text.
func (r StepRange[T]) MarshalText() ([]byte, error) {
	if r == (StepRange[T]{}) {
		return []byte{}, nil
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text yields the
// zero range.
func (r *StepRange[T]) UnmarshalText(text []byte) error {
	if len(bytes.TrimSpace(text)) == 0 {
		*r = StepRange[T]{}
		return nil
	}
	parsed, err := Parse[T](string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Parse reads a range in the "min...step...max" form.
func Parse[T Number](s string) (StepRange[T], error) {
	parts := strings.Split(strings.TrimSpace(s), separator)
	if len(parts) != 3 {
		return StepRange[T]{}, fmt.Errorf("%w: expected min%sstep%smax, got %q", ErrInvalidArgument, separator, separator, s)
	}

	var vals [3]T
	for i, p := range parts {
		v, err := parseValue[T](strings.TrimSpace(p))
		if err != nil {
			return StepRange[T]{}, fmt.Errorf("%w: %q: %v", ErrInvalidArgument, s, err)
		}
		vals[i] = v
	}

	return New(vals[0], vals[1], vals[2])
}

// Convert returns r with each bound converted to T. Values outside T's range
// are clamped to it; floats are rounded to the nearest integer.
func Convert[T, U Number](r StepRange[U]) StepRange[T] {
	return StepRange[T]{
		min:  clampedConvert[T](r.min),
		step: clampedConvert[T](r.step),
		max:  clampedConvert[T](r.max),
	}
}

func clampedConvert[T, U Number](v U) T {
	if isFloat[T]() {
		f := float64(v)
		limit := math.MaxFloat64
		if isFloat32[T]() {
			limit = math.MaxFloat32
		}
		return T(math.Max(-limit, math.Min(limit, f)))
	}

	bits := int(unsafe.Sizeof(T(0))) * 8
	if isSigned[T]() {
		hi := int64(1)<<(bits-1) - 1
		lo := -hi - 1
		switch {
		case isFloat[U]():
			f := math.Round(float64(v))
			if f >= float64(hi) {
				return T(hi)
			}
			if f <= float64(lo) {
				return T(lo)
			}
			return T(int64(f))
		case isSigned[U]():
			return T(min(max(int64(v), lo), hi))
		default:
			return T(min(uint64(v), uint64(hi)))
		}
	}

	hi := uint64(1)<<bits - 1
	switch {
	case isFloat[U]():
		f := math.Round(float64(v))
		if f <= 0 {
			return 0
		}
		if f >= float64(hi) {
			return T(hi)
		}
		return T(uint64(f))
	case isSigned[U]():
		if int64(v) < 0 {
			return 0
		}
		return T(min(uint64(v), hi))
	default:
		return T(min(uint64(v), hi))
	}
}

func isFloat[T Number]() bool {
	one, two := T(1), T(2)
	return one/two != 0
}

func isFloat32[T Number]() bool {
	largest := math.MaxFloat32
	return isFloat[T]() && math.IsInf(float64(T(largest)*2), 1)
}

func isSigned[T Number]() bool {
	var zero T
	return zero-1 < zero
}

func formatValue[T Number](v T) string {
	switch {
	case isFloat[T]():
		bits := 64
		if isFloat32[T]() {
			bits = 32
		}
		return strconv.FormatFloat(float64(v), 'g', -1, bits)
	case isSigned[T]():
		return strconv.FormatInt(int64(v), 10)
	default:
		return strconv.FormatUint(uint64(v), 10)
	}
}

func parseValue[T Number](s string) (T, error) {
	switch {
	case isFloat[T]():
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return T(f), nil
	case isSigned[T]():
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, err
		}
		if int64(T(i)) != i {
			return 0, fmt.Errorf("value %s out of range", s)
		}
		return T(i), nil
	default:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, err
		}
		if uint64(T(u)) != u {
			return 0, fmt.Errorf("value %s out of range", s)
		}
		return T(u), nil
	}
}

func absDiff[T Number](a, b T) T {
	if a > b {
		return a - b
	}
	return b - a
}

package xmat

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// converter stores a non-null driver value into dst. dst is always addressable.
type converter func(dst reflect.Value, src any) error

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
)

// ---------------- Type classification ----------------

func implementsScanner(t reflect.Type) bool {
	return t.Implements(scannerType) || reflect.PointerTo(t).Implements(scannerType)
}

func derefPtr(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// isScalar reports whether t is materialized from a single field rather than
// member by member. Pointers to scalars are the nullable form.
func isScalar(t reflect.Type) bool {
	if t == timeType || implementsScanner(t) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	case reflect.Interface:
		return t.NumMethod() == 0
	case reflect.Pointer:
		return isScalar(t.Elem())
	}
	return false
}

// isComposite reports whether t is a struct built member by member.
func isComposite(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && !isScalar(t)
}

// ---------------- Conversion table ----------------

// converterFor picks, once per binding, how values declared as from are
// stored into a member of type to. from may be nil or an interface type when
// the driver does not declare one; the returned converter then dispatches on
// the dynamic value.
func converterFor(from, to reflect.Type) converter {
	// Nullable wrapper: convert into a fresh pointee, then point at it.
	if to.Kind() == reflect.Pointer && !to.Implements(scannerType) {
		elem := converterFor(from, to.Elem())
		return func(dst reflect.Value, src any) error {
			p := reflect.New(to.Elem())
			if err := elem(p.Elem(), src); err != nil {
				return err
			}
			if p.Type() != to {
				p = p.Convert(to)
			}
			dst.Set(p)
			return nil
		}
	}

	// The member decodes the raw value itself.
	if implementsScanner(to) {
		return scanInto
	}

	slow := kindConverter(to)
	if from == nil || from.Kind() == reflect.Interface || !from.AssignableTo(to) {
		return slow
	}
	return func(dst reflect.Value, src any) error {
		sv := reflect.ValueOf(src)
		if sv.Type() == from {
			dst.Set(sv)
			return nil
		}
		return slow(dst, src)
	}
}

func scanInto(dst reflect.Value, src any) error {
	if dst.Kind() == reflect.Pointer {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return dst.Interface().(sql.Scanner).Scan(src)
	}
	return dst.Addr().Interface().(sql.Scanner).Scan(src)
}

// kindConverter handles values whose dynamic type is not directly assignable.
// Numeric and boolean text is parsed; narrower integer and float members are
// range checked. Integers are never truncated or wrapped.
func kindConverter(to reflect.Type) converter {
	switch {
	case to == timeType:
		return func(dst reflect.Value, src any) error {
			t, err := cast.ToTimeE(textOf(src))
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(t))
			return nil
		}
	case to.Kind() == reflect.Interface:
		return func(dst reflect.Value, src any) error {
			sv := reflect.ValueOf(src)
			if !sv.Type().Implements(to) {
				return fmt.Errorf("%T does not implement %s", src, to)
			}
			dst.Set(sv)
			return nil
		}
	case to.Kind() == reflect.Slice && to.Elem().Kind() == reflect.Uint8:
		return func(dst reflect.Value, src any) error {
			var b []byte
			switch v := src.(type) {
			case []byte:
				b = append([]byte(nil), v...)
			case string:
				b = []byte(v)
			default:
				return fmt.Errorf("unsupported source %T", src)
			}
			dst.Set(reflect.ValueOf(b).Convert(to))
			return nil
		}
	}

	switch to.Kind() {
	case reflect.String:
		return func(dst reflect.Value, src any) error {
			s, err := cast.ToStringE(src)
			if err != nil {
				return err
			}
			dst.SetString(s)
			return nil
		}
	case reflect.Bool:
		return func(dst reflect.Value, src any) error {
			b, err := cast.ToBoolE(textOf(src))
			if err != nil {
				return err
			}
			dst.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(dst reflect.Value, src any) error {
			n, err := toInt64(src)
			if err != nil {
				return err
			}
			if dst.OverflowInt(n) {
				return fmt.Errorf("value %d overflows %s", n, dst.Type())
			}
			dst.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(dst reflect.Value, src any) error {
			n, err := toUint64(src)
			if err != nil {
				return err
			}
			if dst.OverflowUint(n) {
				return fmt.Errorf("value %d overflows %s", n, dst.Type())
			}
			dst.SetUint(n)
			return nil
		}
	case reflect.Float32, reflect.Float64:
		return func(dst reflect.Value, src any) error {
			f, err := cast.ToFloat64E(textOf(src))
			if err != nil {
				return err
			}
			if dst.OverflowFloat(f) {
				return fmt.Errorf("value %g overflows %s", f, dst.Type())
			}
			dst.SetFloat(f)
			return nil
		}
	}

	// Anything else (nested structs bound directly, arrays, named types):
	// accept values that reflect can convert.
	return func(dst reflect.Value, src any) error {
		sv := reflect.ValueOf(src)
		switch {
		case sv.Type().AssignableTo(to):
			dst.Set(sv)
		case sv.Type().ConvertibleTo(to):
			dst.Set(sv.Convert(to))
		default:
			return fmt.Errorf("unsupported source %T", src)
		}
		return nil
	}
}

// textOf turns driver byte slices into strings so they can be parsed.
func textOf(src any) any {
	if b, ok := src.([]byte); ok {
		return string(b)
	}
	return src
}

// Float bounds of the 64-bit integer ranges. 2^63 and 2^64 are exact in
// float64; the maxima themselves are not.
const (
	minInt64Float  = -(1 << 63)
	maxInt64Float  = 1 << 63
	maxUint64Float = 1 << 64
)

// toInt64 converts src without loss. Text is parsed as base 10; floats must
// be integral; unsigned values above math.MaxInt64 are rejected.
func toInt64(src any) (int64, error) {
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < minInt64Float || f >= maxInt64Float {
			return 0, fmt.Errorf("value %g is not an int64", f)
		}
		return int64(f), nil
	case reflect.String:
		return strconv.ParseInt(rv.String(), 10, 64)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return strconv.ParseInt(string(rv.Bytes()), 10, 64)
		}
	}
	return cast.ToInt64E(src)
}

// toUint64 is toInt64 for unsigned members; negative values are rejected.
func toUint64(src any) (uint64, error) {
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if n < 0 {
			return 0, fmt.Errorf("value %d is negative", n)
		}
		return uint64(n), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < 0 || f >= maxUint64Float {
			return 0, fmt.Errorf("value %g is not a uint64", f)
		}
		return uint64(f), nil
	case reflect.String:
		return strconv.ParseUint(rv.String(), 10, 64)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return strconv.ParseUint(string(rv.Bytes()), 10, 64)
		}
	}
	n, err := toInt64(src)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("value %d is negative", n)
	}
	return uint64(n), nil
}

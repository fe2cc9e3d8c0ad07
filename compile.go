package xmat

import (
	"reflect"
)

// Materializer converts rows of one shape into values of one type. It is
// built once by a Mapper and never modified afterwards, so any number of
// goroutines may call Apply concurrently (each with its own cursor).
type Materializer struct {
	typ      reflect.Type // requested type
	base     reflect.Type // struct constructed for composite targets
	scalar   bool
	bindings []binding
	dropped  []string
	width    int // highest bound ordinal + 1
}

// binding stores one field into one member path.
type binding struct {
	index int
	name  string
	path  []int // from the constructed struct; nil for scalars
	from  reflect.Type
	to    reflect.Type
	conv  converter
}

// compile builds the materializer for rt over shape. Scalars read field 0
// only. Composites bind each field by exact member name, then by flattened
// prefix; fields matching neither are dropped.
func (m *Mapper) compile(rt reflect.Type, shape RowShape) (*Materializer, error) {
	if len(shape) == 0 {
		return nil, ErrNoFields
	}
	mat := &Materializer{typ: rt}

	if isScalar(rt) {
		f := shape[0]
		mat.scalar = true
		mat.bindings = []binding{{index: f.Index, name: f.Name, from: f.Type, to: rt, conv: converterFor(f.Type, rt)}}
		mat.width = f.Index + 1
		return mat, nil
	}

	base := rt
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if !isComposite(base) {
		return nil, &ConstructionError{Type: rt}
	}
	mat.base = base

	ti := m.typeInfo(base)
	for _, f := range shape {
		path, to, ok := m.bind(ti, f.Name)
		if !ok {
			mat.dropped = append(mat.dropped, f.Name)
			continue
		}
		mat.bindings = append(mat.bindings, binding{
			index: f.Index,
			name:  f.Name,
			path:  path,
			from:  f.Type,
			to:    to,
			conv:  converterFor(f.Type, to),
		})
		if f.Index >= mat.width {
			mat.width = f.Index + 1
		}
	}
	return mat, nil
}

// bind finds the member a field is stored into. A member whose name equals
// the field name always wins over flattened candidates.
func (m *Mapper) bind(ti *typeInfo, name string) ([]int, reflect.Type, bool) {
	if mb, ok := ti.lookup(m.key(name)); ok {
		return mb.path, mb.typ, true
	}
	return m.resolve(ti.rt, name)
}

// Type is the type Apply produces.
func (mat *Materializer) Type() reflect.Type { return mat.typ }

// Dropped lists the fields that matched no member.
func (mat *Materializer) Dropped() []string {
	return append([]string(nil), mat.dropped...)
}

// Apply converts the cursor's current row. Null fields leave their member at
// its zero value; a value that cannot be converted aborts the row with a
// *ConversionError.
func (mat *Materializer) Apply(c Cursor) (reflect.Value, error) {
	if c.FieldCount() < mat.width {
		return reflect.Value{}, ErrShapeMismatch
	}

	if mat.scalar {
		out := reflect.New(mat.typ).Elem()
		b := &mat.bindings[0]
		if c.IsNull(b.index) {
			return out, nil
		}
		if err := b.store(out, c); err != nil {
			return reflect.Value{}, err
		}
		return out, nil
	}

	root := reflect.New(mat.base)
	obj := root.Elem()
	for i := range mat.bindings {
		b := &mat.bindings[i]
		if c.IsNull(b.index) {
			continue
		}
		if err := b.store(fieldByPathAlloc(obj, b.path), c); err != nil {
			return reflect.Value{}, err
		}
	}
	if mat.typ.Kind() == reflect.Pointer {
		if root.Type() != mat.typ {
			root = root.Convert(mat.typ)
		}
		return root, nil
	}
	return obj, nil
}

func (b *binding) store(dst reflect.Value, c Cursor) error {
	src := c.Value(b.index)
	if err := b.conv(dst, src); err != nil {
		return &ConversionError{Field: b.name, Index: b.index, From: reflect.TypeOf(src), To: b.to, Err: err}
	}
	return nil
}

// apply runs mat and hands the result back as T.
func apply[T any](mat *Materializer, c Cursor) (T, error) {
	var out T
	v, err := mat.Apply(c)
	if err != nil {
		return out, err
	}
	reflect.ValueOf(&out).Elem().Set(v)
	return out, nil
}

package xmat

import "reflect"

// Level consumes one subsequent result set and associates its rows with the
// value accumulated so far (the primary object for One, the primary list for
// List). Build levels with Children, ChildrenOf, Attach or Detail.
type Level[P any] interface {
	load(m *Mapper, c Cursor, fp Fingerprint, parent *P) error
}

type levelFunc[P any] func(m *Mapper, c Cursor, fp Fingerprint, parent *P) error

func (f levelFunc[P]) load(m *Mapper, c Cursor, fp Fingerprint, parent *P) error {
	return f(m, c, fp, parent)
}

// Children appends every row of the level to the list sel returns for the
// primary object, in row order.
//
//	order, err := xmat.One(m, c, fp,
//	    xmat.Children(func(o *Order) *[]Line { return &o.Lines }),
//	)
func Children[P, C any](sel func(parent *P) *[]C) Level[P] {
	return levelFunc[P](func(m *Mapper, c Cursor, fp Fingerprint, parent *P) error {
		return eachRow(m, c, fp, func(child C) error {
			if list := sel(parent); list != nil {
				*list = append(*list, child)
			}
			return nil
		})
	})
}

// ChildrenOf lets sel choose, per child row, which of the accumulated primary
// rows the child belongs to. Returning nil drops the child.
//
//	orders, err := xmat.List(m, c, fp,
//	    xmat.ChildrenOf(func(os []Order, l Line) *[]Line {
//	        for i := range os {
//	            if os[i].ID == l.OrderID {
//	                return &os[i].Lines
//	            }
//	        }
//	        return nil
//	    }),
//	)
func ChildrenOf[P, C any](sel func(parents []P, child C) *[]C) Level[[]P] {
	return levelFunc[[]P](func(m *Mapper, c Cursor, fp Fingerprint, parents *[]P) error {
		return eachRow(m, c, fp, func(child C) error {
			if list := sel(*parents, child); list != nil {
				*list = append(*list, child)
			}
			return nil
		})
	})
}

// Attach materializes every row of the level as C and hands it to fn.
func Attach[P, C any](fn func(parent *P, child C) error) Level[P] {
	return levelFunc[P](func(m *Mapper, c Cursor, fp Fingerprint, parent *P) error {
		return eachRow(m, c, fp, func(child C) error { return fn(parent, child) })
	})
}

// Detail calls fn once per row of the level with the cursor positioned on
// that row; nothing is materialized unless fn does it (see SingleRow).
func Detail[P any](fn func(c Cursor, parent *P) error) Level[P] {
	return levelFunc[P](func(_ *Mapper, c Cursor, _ Fingerprint, parent *P) error {
		for c.Next() {
			if err := fn(c, parent); err != nil {
				return err
			}
		}
		return c.Err()
	})
}

// One materializes the first row of the current result set as T, then walks
// one further result set per level. Without a row the zero value is
// returned; the levels' result sets are still stepped over but nothing is
// associated. A level whose result set is missing ends the walk without
// error.
func One[T any](m *Mapper, c Cursor, fp Fingerprint, levels ...Level[T]) (T, error) {
	var out, zero T
	found := c.Next()
	if found {
		v, err := SingleRow[T](m, c, fp)
		if err != nil {
			return zero, err
		}
		out = v
	}
	if err := c.Err(); err != nil {
		return zero, err
	}
	if err := walkLevels(m, c, fp, &out, found, levels); err != nil {
		return zero, err
	}
	return out, nil
}

// List materializes every row of the current result set as T, then walks one
// further result set per level.
func List[T any](m *Mapper, c Cursor, fp Fingerprint, levels ...Level[[]T]) ([]T, error) {
	var out []T
	err := eachRow(m, c, fp, func(v T) error {
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := walkLevels(m, c, fp, &out, true, levels); err != nil {
		return nil, err
	}
	return out, nil
}

func walkLevels[P any](m *Mapper, c Cursor, fp Fingerprint, parent *P, associate bool, levels []Level[P]) error {
	for _, lv := range levels {
		if !c.NextResultSet() {
			break
		}
		if !associate {
			continue
		}
		if err := lv.load(m, c, fp, parent); err != nil {
			return err
		}
	}
	return c.Err()
}

// SingleRow materializes the cursor's current row as T. It is the building
// block for custom association logic inside Detail.
func SingleRow[T any](m *Mapper, c Cursor, fp Fingerprint) (T, error) {
	mat, err := m.forCursor(typeFor[T](), fp, c)
	if err != nil {
		var zero T
		return zero, err
	}
	return apply[T](mat, c)
}

// Raw hands the cursor to fn untouched.
func Raw(c Cursor, fn func(Cursor) error) error {
	return fn(c)
}

// eachRow materializes the remaining rows of the current result set. The
// materializer is looked up once, on the first row.
func eachRow[T any](m *Mapper, c Cursor, fp Fingerprint, fn func(T) error) error {
	var mat *Materializer
	for c.Next() {
		if mat == nil {
			var err error
			if mat, err = m.forCursor(typeFor[T](), fp, c); err != nil {
				return err
			}
		}
		v, err := apply[T](mat, c)
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return c.Err()
}

func typeFor[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

package xmat

import (
	"reflect"
	"strings"
)

// resolve maps a flattened field name onto a nested member, e.g. the column
// "AddressCity" onto Address.City.
//
// Members whose name is a prefix of name are tried in declaration order. For
// each one, the rest of the name must either be a member of the candidate's
// struct type, or resolve the same way one level down. The first candidate
// that yields a path wins, so when several member names are prefixes of the
// same column the earlier declared member takes it, not the longer one.
//
// The returned path starts at rt and may cross struct pointers; the caller
// allocates them on assignment.
func (m *Mapper) resolve(rt reflect.Type, name string) ([]int, reflect.Type, bool) {
	ti := m.typeInfo(rt)
	key := m.key(name)
	for _, cand := range ti.members {
		if !strings.HasPrefix(key, m.key(cand.name)) {
			continue
		}
		rest := name[len(cand.name):]
		if rest == "" {
			// Whole-name matches are direct bindings, handled by the compiler.
			continue
		}
		sub := derefPtr(cand.typ)
		if !isComposite(sub) {
			continue
		}
		if leaf, ok := m.typeInfo(sub).lookup(m.key(rest)); ok {
			return joinPath(cand.path, leaf.path), leaf.typ, true
		}
		if path, typ, ok := m.resolve(sub, rest); ok {
			return joinPath(cand.path, path), typ, true
		}
	}
	return nil, nil, false
}

func joinPath(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

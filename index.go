package xmat

import "reflect"

// member is one settable field of a composite type, in declaration order.
// Fields of embedded structs are promoted with their full index path.
type member struct {
	name string
	path []int
	typ  reflect.Type
}

// typeInfo describes the members of a composite type.
type typeInfo struct {
	rt      reflect.Type
	members []member
	byName  map[string]int // matching key -> index into members
}

func (ti *typeInfo) lookup(key string) (member, bool) {
	i, ok := ti.byName[key]
	if !ok {
		return member{}, false
	}
	return ti.members[i], true
}

// buildTypeInfo walks rt's exported fields. A tag value names the member
// ("-" omits it); ",inline" and untagged anonymous structs are flattened.
// On duplicate names the first declared field wins.
func buildTypeInfo(rt reflect.Type, tagKey string, key func(string) string) *typeInfo {
	ti := &typeInfo{rt: rt, byName: make(map[string]int)}

	var walk func(t reflect.Type, base []int, forceInline bool)
	walk = func(t reflect.Type, base []int, forceInline bool) {
		t = derefPtr(t)
		if t.Kind() != reflect.Struct {
			return
		}
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() && !sf.Anonymous {
				continue
			}
			var tag string
			if tagKey != "" {
				tag = sf.Tag.Get(tagKey)
			}
			name, inline, omit := parseTag(tag)
			if omit {
				continue
			}
			ft := sf.Type
			path := append(append([]int(nil), base...), i)

			if inline || (sf.Anonymous && (forceInline || tag == "")) {
				if isComposite(derefPtr(ft)) {
					// Unexported embedded pointers cannot be allocated through reflect.
					if !sf.IsExported() && ft.Kind() == reflect.Pointer {
						continue
					}
					walk(ft, path, inline)
					continue
				}
			}
			if !sf.IsExported() {
				continue
			}
			if name == "" {
				name = sf.Name
			}
			k := key(name)
			if _, dup := ti.byName[k]; dup {
				continue
			}
			ti.byName[k] = len(ti.members)
			ti.members = append(ti.members, member{name: name, path: path, typ: ft})
		}
	}
	walk(rt, nil, false)
	return ti
}

// parseTag supports: "-", "col", ",inline", "col,inline", "inline,col".
func parseTag(tag string) (name string, inline bool, omit bool) {
	if tag == "-" {
		return "", false, true
	}
	if tag == "" {
		return "", false, false
	}
	start := 0
	for i := 0; i <= len(tag); i++ {
		if i == len(tag) || tag[i] == ',' {
			part := tag[start:i]
			if part == "inline" {
				inline = true
			} else if part != "" && name == "" {
				name = part
			}
			start = i + 1
		}
	}
	return name, inline, false
}

// fieldByPathAlloc walks fpath from root, allocating nil struct pointers on
// the way so the final field is addressable. The final field itself is left
// as is; converters allocate pointer members they fill.
func fieldByPathAlloc(root reflect.Value, fpath []int) reflect.Value {
	v := root
	for _, i := range fpath {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}

// toLowerASCII folds ASCII letters only, so byte lengths are preserved.
func toLowerASCII(s string) string {
	var need bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			need = true
			break
		}
	}
	if !need {
		return s
	}
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c = c + ('a' - 'A')
		}
		b[i] = c
	}
	return string(b)
}

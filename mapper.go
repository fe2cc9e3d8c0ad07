package xmat

import (
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Mapper owns the compiled materializers and per-type member indexes.
// Create one per application (or per test) with NewMapper and pass it to
// every call; it is safe for concurrent use.
type Mapper struct {
	mu       sync.Mutex // serializes compilation
	compiled sync.Map   // cacheKey -> *Materializer
	types    sync.Map   // reflect.Type -> *typeInfo

	compiles atomic.Int64

	log  *zap.Logger
	fold bool
	tag  string
	ph   Placeholder
}

type cacheKey struct {
	rt reflect.Type
	fp Fingerprint
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the logger used for compilation events.
func WithLogger(l *zap.Logger) Option {
	return func(m *Mapper) {
		if l != nil {
			m.log = l
		}
	}
}

// WithFoldCase makes field and member names match ASCII case-insensitively,
// for direct bindings and flattened prefixes alike.
func WithFoldCase(fold bool) Option {
	return func(m *Mapper) { m.fold = fold }
}

// WithTag sets the struct tag that renames members. The default is "db";
// an empty tag disables renaming.
func WithTag(tag string) Option {
	return func(m *Mapper) { m.tag = tag }
}

// WithPlaceholder sets the placeholder style Named writes. The default is
// PlaceholderQuestion.
func WithPlaceholder(ph Placeholder) Option {
	return func(m *Mapper) { m.ph = ph }
}

func NewMapper(opts ...Option) *Mapper {
	m := &Mapper{log: zap.NewNop(), tag: "db"}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCompile returns the materializer cached for (rt, fp), compiling it from
// shape on first use. Concurrent first callers for the same key block until
// one of them has compiled; all of them get the same *Materializer. Failed
// compilations are not cached.
func (m *Mapper) GetOrCompile(rt reflect.Type, fp Fingerprint, shape RowShape) (*Materializer, error) {
	key := cacheKey{rt: rt, fp: fp}
	if v, ok := m.compiled.Load(key); ok {
		return v.(*Materializer), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.compiled.Load(key); ok {
		return v.(*Materializer), nil
	}

	mat, err := m.compile(rt, shape)
	if err != nil {
		m.log.Warn("materializer compilation failed",
			zap.Stringer("type", rt),
			zap.Uint64("fingerprint", uint64(fp)),
			zap.Strings("fields", shape.Names()),
			zap.Error(err),
		)
		return nil, err
	}
	m.compiled.Store(key, mat)
	m.compiles.Add(1)

	m.log.Debug("materializer compiled",
		zap.Stringer("type", rt),
		zap.Uint64("fingerprint", uint64(fp)),
		zap.Bool("scalar", mat.scalar),
		zap.Strings("fields", shape.Names()),
		zap.Strings("dropped", mat.dropped),
	)
	return mat, nil
}

// forCursor skips describing the cursor when the key is already compiled.
func (m *Mapper) forCursor(rt reflect.Type, fp Fingerprint, c Cursor) (*Materializer, error) {
	if v, ok := m.compiled.Load(cacheKey{rt: rt, fp: fp}); ok {
		return v.(*Materializer), nil
	}
	return m.GetOrCompile(rt, fp, ReadShape(c))
}

// Compiles reports how many materializers this Mapper has compiled.
func (m *Mapper) Compiles() int64 { return m.compiles.Load() }

func (m *Mapper) typeInfo(rt reflect.Type) *typeInfo {
	if v, ok := m.types.Load(rt); ok {
		return v.(*typeInfo)
	}
	ti := buildTypeInfo(rt, m.tag, m.key)
	v, _ := m.types.LoadOrStore(rt, ti)
	return v.(*typeInfo)
}

// key normalizes a name for matching.
func (m *Mapper) key(name string) string {
	if m.fold {
		return toLowerASCII(name)
	}
	return name
}

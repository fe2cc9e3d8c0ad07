/*
Package xmat materializes typed Go values from tabular query results and
stitches several result sets of one query into an object graph. You write
plain SQL; xmat compiles, once per (type, query), the routine that turns a row
into a value and replays it for every later row.

# Overview

A query's first result set is the primary level; every further result set is
a child level. One and List read the primary level into a value or a slice,
then hand each child level to a Level: Children appends rows to a list on the
primary object, ChildrenOf lets a callback pick the parent row, Attach and
Detail give full control. Get and Query do the same straight from a
*sql.DB, *sql.Tx or *sql.Conn.

# Mapping rules

  - Scalars (bool, numbers, string, []byte, time.Time, sql.Scanner
    implementations, any, and pointers to them) are read from field 0; other
    fields are ignored.
  - Structs (or pointers to structs) are filled member by member. A field binds
    to the member with the same name: the `db:"name"` tag if present, else the
    Go field name. Matching is exact unless WithFoldCase is set.
  - A field with no same-named member may address a nested member by
    concatenated names: column "AddressCity" fills Address.City, and
    "AddressGeoLat" fills Address.Geo.Lat. When several members are prefixes
    of the column, the first declared one is tried first.
  - NULL leaves the member at its zero value. Pointer members are the nullable
    form: a non-null value is stored in a newly allocated pointee. Nested
    struct pointers are allocated the first time one of their members is set.
  - Columns that match nothing are dropped silently.
  - Values are converted to the member type: numeric text is parsed (base 10
    for integers), []byte becomes string. Integers are never truncated or
    wrapped: a fractional float, a value outside the member's range or a
    negative value for an unsigned member fails the row with a
    *ConversionError.

# Parameters

SQL passes positional arguments through. Mapper.Named binds :name
parameters from a struct or a map and writes placeholders in the style set
by WithPlaceholder:

	cmd, err := m.Named(`SELECT ID, CustomerName FROM orders WHERE ID IN (:ids)`,
		map[string]any{"ids": []int64{1, 2}})

Slices expand to one placeholder per element. Struct members are named as
for materialization, so `db:"-"` fields are never parameters.

# Caching

Compiled materializers are cached in a Mapper under (target type, query
fingerprint). The fingerprint is a hash of the query text only: one query text
must always return the same columns. Compilation happens once per key even
when many goroutines hit a new key at the same time, and entries are never
evicted; the set of (type, query) pairs is bounded by the program itself.

# Error handling

  - *ConstructionError: the target is neither a scalar nor a struct.
  - *ConversionError: a non-null value does not fit its member.
  - A missing child result set is not an error; the remaining levels stay
    empty.
  - Driver errors are returned as they are.
*/
package xmat

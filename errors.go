package xmat

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrConstruction matches every *ConstructionError.
	ErrConstruction = errors.New("xmat: no construction path")

	// ErrConversion matches every *ConversionError.
	ErrConversion = errors.New("xmat: conversion failed")

	// ErrNoFields is returned when a result set has no fields at all.
	ErrNoFields = errors.New("xmat: result set has zero fields")

	// ErrShapeMismatch is returned when a cached materializer reads a field
	// ordinal the current row does not have. It means one fingerprint was
	// used for queries returning different column lists.
	ErrShapeMismatch = errors.New("xmat: row has fewer fields than the cached materializer expects")
)

// ConstructionError reports a target type that cannot be built from a row:
// it is neither a scalar nor a struct (or pointer to struct).
type ConstructionError struct {
	Type reflect.Type
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("xmat: cannot construct %s from a row", e.Type)
}

func (e *ConstructionError) Is(target error) bool { return target == ErrConstruction }

// ConversionError reports a non-null field value that could not be converted
// to the type of the member it is bound to. The row is abandoned.
type ConversionError struct {
	Field string
	Index int
	From  reflect.Type
	To    reflect.Type
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("xmat: field %q (#%d): cannot convert %v to %v: %v", e.Field, e.Index, e.From, e.To, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

package datarecording

import (
	"fmt"
	"reflect"
)

type table struct {
	structType reflect.Type
	entries    []any
}

func isAllowedType(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// checkStructFields accepts flat structs of scalar fields only.
func checkStructFields(entry any) error {
	types := reflect.TypeOf(entry)
	if types == nil || types.Kind() != reflect.Struct {
		return fmt.Errorf("entry of type %T is not a struct", entry)
	}

	for i := 0; i < types.NumField(); i++ {
		field := types.Field(i)

		if !isAllowedType(field.Type.Kind()) {
			return fmt.Errorf("field %s of %T has unsupported type %s",
				field.Name, entry, field.Type)
		}
	}

	return nil
}

// fieldValues returns the fields of an entry in declaration order, widening
// int and uint to their 64-bit forms.
func fieldValues(entry any) []any {
	values := reflect.ValueOf(entry)
	v := make([]any, 0, values.NumField())

	for i := 0; i < values.NumField(); i++ {
		field := values.Field(i)

		switch field.Kind() {
		case reflect.Int:
			v = append(v, field.Int())
		case reflect.Uint:
			v = append(v, field.Uint())
		default:
			v = append(v, field.Interface())
		}
	}

	return v
}

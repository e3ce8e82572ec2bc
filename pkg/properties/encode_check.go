package properties

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	errCyclicValue      = errors.New("cyclic value")
	errUnencodableValue = errors.New("unencodable value")
	errValueTooDeep     = errors.New("value nests too deep")
)

// maxEncodeDepth bounds the walk for pathological non-cyclic nesting.
const maxEncodeDepth = 200

// checkEncodable walks a free-form value and rejects anything the YAML
// encoder would loop or panic on: cycles through maps, slices, and
// pointers, plus func/chan/unsafe values. seen tracks reference
// identities along the current path.
func checkEncodable(value any, seen map[uintptr]struct{}) error {
	return checkEncodableValue(reflect.ValueOf(value), seen, 0)
}

func checkEncodableValue(v reflect.Value, seen map[uintptr]struct{}, depth int) error {
	if !v.IsValid() {
		return nil // nil encodes as YAML null
	}

	if depth > maxEncodeDepth {
		return errValueTooDeep
	}

	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Errorf("%w: %s", errUnencodableValue, v.Kind())
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}

		return checkEncodableValue(v.Elem(), seen, depth)
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}

		return checkReference(v, v.Elem(), seen, depth)
	case reflect.Map:
		if v.IsNil() {
			return nil
		}

		release, err := markReference(v, seen)
		if err != nil {
			return err
		}

		defer release()

		iter := v.MapRange()
		for iter.Next() {
			if err := checkEncodableValue(iter.Value(), seen, depth+1); err != nil {
				return err
			}
		}

		return nil
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}

		release, err := markReference(v, seen)
		if err != nil {
			return err
		}

		defer release()

		return checkElements(v, seen, depth)
	case reflect.Array:
		return checkElements(v, seen, depth)
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			if !field.CanInterface() {
				continue
			}

			if err := checkEncodableValue(field, seen, depth+1); err != nil {
				return err
			}
		}

		return nil
	default:
		return nil
	}
}

func checkElements(v reflect.Value, seen map[uintptr]struct{}, depth int) error {
	for i := 0; i < v.Len(); i++ {
		if err := checkEncodableValue(v.Index(i), seen, depth+1); err != nil {
			return err
		}
	}

	return nil
}

func checkReference(ref, elem reflect.Value, seen map[uintptr]struct{}, depth int) error {
	release, err := markReference(ref, seen)
	if err != nil {
		return err
	}

	defer release()

	return checkEncodableValue(elem, seen, depth+1)
}

// markReference records a reference identity on the current path,
// returning a func that removes it again. Cycles show up as a repeat
// visit while the identity is still on the path.
func markReference(v reflect.Value, seen map[uintptr]struct{}) (func(), error) {
	ptr := v.Pointer()
	if _, onPath := seen[ptr]; onPath {
		return nil, errCyclicValue
	}

	seen[ptr] = struct{}{}

	return func() { delete(seen, ptr) }, nil
}

package reflect

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var typeNameCache sync.Map

func TypeName[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		t = reflect.TypeOf((*T)(nil)).Elem()
	}
	return t.String()
}

func TypeNameOf(v any) string {
	if v == nil {
		return "<nil>"
	}

	t := reflect.TypeOf(v)
	if cached, ok := typeNameCache.Load(t); ok {
		return cached.(string)
	}

	name := t.String()
	typeNameCache.Store(t, name)
	return name
}

func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// Same reports whether a and b are the same object. Reference kinds compare
// by address; comparable values compare with ==; anything else is never the
// same as another value.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}

	if ta.Comparable() {
		return a == b
	}
	return false
}

func Implements[T any](v any) bool {
	if v == nil {
		return false
	}
	_, ok := v.(T)
	return ok
}

// Field describes a struct field that receives a dependency.
type Field struct {
	Name       string
	Index      int
	Dependency string
	Optional   bool
}

// TaggedFields lists the fields of struct type t (or *t) carrying tagKey.
// An empty tag name falls back to the field name with a lower-case first
// letter.
func TaggedFields(t reflect.Type, tagKey string) ([]Field, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected a struct type, got %s", t.Kind())
	}

	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup(tagKey)
		if !ok || tag == "-" {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = lowerFirst(sf.Name)
		}

		fields = append(fields, Field{
			Name:       sf.Name,
			Index:      i,
			Dependency: name,
			Optional:   opts == "optional",
		})
	}
	return fields, nil
}

// AssignDependency sets the field of the struct behind target that receives
// dependency: first a field tagged with the dependency name, then an exported
// field whose name matches it case-insensitively.
func AssignDependency(target any, tagKey, dependency string, value any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("inject %s: target must be a non-nil pointer to a struct, got %T", dependency, target)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("inject %s: target must point to a struct, got %T", dependency, target)
	}

	fields, err := TaggedFields(rv.Type(), tagKey)
	if err != nil {
		return err
	}

	index := -1
	for _, f := range fields {
		if f.Dependency == dependency {
			index = f.Index
			break
		}
	}
	if index < 0 {
		for i := 0; i < rv.NumField(); i++ {
			sf := rv.Type().Field(i)
			if sf.IsExported() && strings.EqualFold(sf.Name, dependency) {
				index = i
				break
			}
		}
	}
	if index < 0 {
		return fmt.Errorf("inject %s: no field for dependency in %T", dependency, target)
	}

	field := rv.Field(index)
	name := rv.Type().Field(index).Name
	if !field.CanSet() {
		return fmt.Errorf("inject %s: cannot set field %s (unexported)", dependency, name)
	}

	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	val := reflect.ValueOf(value)
	if !val.Type().AssignableTo(field.Type()) {
		return fmt.Errorf(
			"inject %s: cannot assign %s to field %s of type %s",
			dependency, val.Type(), name, field.Type(),
		)
	}

	field.Set(val)
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// CallMethod calls the exported method of target called name. The method may
// take a context.Context and may return an error; nothing else is accepted.
func CallMethod(ctx context.Context, target any, name string) error {
	if target == nil {
		return fmt.Errorf("call %s: target is nil", name)
	}

	m := reflect.ValueOf(target).MethodByName(name)
	if !m.IsValid() {
		return fmt.Errorf("call %s: %T has no such method", name, target)
	}

	mt := m.Type()
	var args []reflect.Value
	switch {
	case mt.NumIn() == 0:
	case mt.NumIn() == 1 && mt.In(0) == contextType:
		args = []reflect.Value{reflect.ValueOf(ctx)}
	default:
		return fmt.Errorf("call %s: method must take no arguments or a context.Context", name)
	}

	switch {
	case mt.NumOut() == 0:
		m.Call(args)
		return nil
	case mt.NumOut() == 1 && mt.Out(0) == errorType:
		out := m.Call(args)
		if err, _ := out[0].Interface().(error); err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("call %s: method may only return an error", name)
	}
}

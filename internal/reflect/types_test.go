package reflect

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type greeter interface {
	Greet() string
}

type wife struct {
	Name    string
	Husband *husband `thimble:"husband"`
}

type husband struct {
	Name   string
	Wife   *wife   `thimble:""`
	Mother greeter `thimble:"mother,optional"`
	secret string  `thimble:"secret"`
	Ignore string  `thimble:"-"`
}

type mother struct{}

func (m *mother) Greet() string { return "hello" }

func TestTypeName(t *testing.T) {
	t.Parallel()

	if got := TypeName[*husband](); got != "*reflect.husband" {
		t.Errorf("unexpected type name %q", got)
	}
	if got := TypeName[greeter](); got != "reflect.greeter" {
		t.Errorf("unexpected interface name %q", got)
	}
	if got := TypeNameOf(nil); got != "<nil>" {
		t.Errorf("unexpected nil name %q", got)
	}
}

func TestIsNil(t *testing.T) {
	t.Parallel()

	var p *husband
	var m map[string]int

	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, true},
		{"typed nil pointer", p, true},
		{"nil map", m, true},
		{"value", 42, false},
		{"pointer", &husband{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsNil(tt.v); got != tt.want {
				t.Errorf("IsNil(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestSame(t *testing.T) {
	t.Parallel()

	h := &husband{Name: "h"}
	other := &husband{Name: "h"}
	m := map[string]int{"a": 1}
	s := []int{1, 2, 3}

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same pointer", h, h, true},
		{"equal but distinct pointers", h, other, false},
		{"same map", m, m, true},
		{"same slice", s, s, true},
		{"sub slice", s, s[:2], false},
		{"equal strings", "x", "x", true},
		{"different types", 1, int64(1), false},
		{"both nil", nil, nil, true},
		{"one nil", h, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Same(tt.a, tt.b); got != tt.want {
				t.Errorf("Same() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImplements(t *testing.T) {
	t.Parallel()

	if !Implements[greeter](&mother{}) {
		t.Error("*mother implements greeter")
	}
	if Implements[greeter](&husband{}) {
		t.Error("*husband does not implement greeter")
	}
	if Implements[greeter](nil) {
		t.Error("nil implements nothing")
	}
}

func TestTaggedFields(t *testing.T) {
	t.Parallel()

	fields, err := TaggedFields(reflect.TypeOf(&husband{}), "thimble")
	if err != nil {
		t.Fatalf("TaggedFields failed: %v", err)
	}

	got := map[string]Field{}
	for _, f := range fields {
		got[f.Dependency] = f
	}

	if _, ok := got["wife"]; !ok {
		t.Error("empty tag should default to the lower-cased field name")
	}
	if !got["mother"].Optional {
		t.Error("mother should be optional")
	}
	if _, ok := got["ignore"]; ok {
		t.Error("fields tagged - must be skipped")
	}
	if len(fields) != 3 {
		t.Errorf("expected 3 tagged fields, got %d", len(fields))
	}

	if _, err := TaggedFields(reflect.TypeOf(42), "thimble"); err == nil {
		t.Error("expected error for non-struct type")
	}
}

func TestAssignDependency(t *testing.T) {
	t.Parallel()

	h := &husband{}
	w := &wife{}

	if err := AssignDependency(h, "thimble", "wife", w); err != nil {
		t.Fatalf("assign wife: %v", err)
	}
	if h.Wife != w {
		t.Error("wife not injected")
	}

	if err := AssignDependency(w, "thimble", "husband", h); err != nil {
		t.Fatalf("assign husband: %v", err)
	}
	if w.Husband != h {
		t.Error("husband not injected")
	}

	if err := AssignDependency(h, "thimble", "mother", &mother{}); err != nil {
		t.Fatalf("assign interface field: %v", err)
	}

	if err := AssignDependency(w, "thimble", "name", "Alice"); err != nil {
		t.Fatalf("assign by field name: %v", err)
	}
	if w.Name != "Alice" {
		t.Errorf("expected name Alice, got %q", w.Name)
	}
}

func TestAssignDependency_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target any
		dep    string
		value  any
		want   string
	}{
		{"non pointer", husband{}, "wife", &wife{}, "non-nil pointer"},
		{"pointer to non struct", new(int), "wife", &wife{}, "point to a struct"},
		{"unknown dependency", &husband{}, "cousin", 1, "no field"},
		{"unexported field", &husband{}, "secret", "s", "unexported"},
		{"wrong type", &husband{}, "wife", "not a wife", "cannot assign"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := AssignDependency(tt.target, "thimble", tt.dep, tt.value)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

type lifecycle struct {
	opened bool
	closed bool
}

func (l *lifecycle) Open()                       { l.opened = true }
func (l *lifecycle) Close(context.Context) error { l.closed = true; return nil }
func (l *lifecycle) Fail() error                 { return errors.New("failed") }
func (l *lifecycle) Count(int) error             { return nil }
func (l *lifecycle) Value() int                  { return 1 }

func TestCallMethod(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := &lifecycle{}

	if err := CallMethod(ctx, l, "Open"); err != nil || !l.opened {
		t.Errorf("Open: err=%v opened=%v", err, l.opened)
	}
	if err := CallMethod(ctx, l, "Close"); err != nil || !l.closed {
		t.Errorf("Close: err=%v closed=%v", err, l.closed)
	}
	if err := CallMethod(ctx, l, "Fail"); err == nil || err.Error() != "failed" {
		t.Errorf("expected the method error, got %v", err)
	}

	for _, name := range []string{"Missing", "Count", "Value"} {
		if err := CallMethod(ctx, l, name); err == nil {
			t.Errorf("expected %s to be rejected", name)
		}
	}
	if err := CallMethod(ctx, nil, "Open"); err == nil {
		t.Error("expected a nil target to be rejected")
	}
}

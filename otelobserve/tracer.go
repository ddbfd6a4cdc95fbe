// Package otelobserve records container activity as OpenTelemetry spans.
package otelobserve

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danpasecinic/thimble"
)

const instrumentationName = "github.com/danpasecinic/thimble/otelobserve"

var (
	attrComponent = attribute.Key("thimble.component")
	attrContainer = attribute.Key("thimble.container")
	attrScope     = attribute.Key("thimble.scope")
)

// Tracer turns observer callbacks into spans. Observers run after the fact,
// so each span is back-dated by the reported duration.
type Tracer struct {
	tracer    trace.Tracer
	container string
}

type Option func(*Tracer)

// WithTracerProvider uses provider instead of the global one.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(t *Tracer) {
		t.tracer = provider.Tracer(instrumentationName)
	}
}

// WithContainerID adds the container id to every span.
func WithContainerID(id string) Option {
	return func(t *Tracer) {
		t.container = id
	}
}

func NewTracer(opts ...Option) *Tracer {
	t := &Tracer{
		tracer: otel.GetTracerProvider().Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracer) Options() []thimble.Option {
	return []thimble.Option{
		thimble.WithCreateObserver(t.ObserveCreate),
		thimble.WithDisposeObserver(t.ObserveDispose),
		thimble.WithDefineObserver(t.ObserveDefine),
	}
}

// Attach registers the tracer on an existing container and tags its spans
// with the container id.
func (t *Tracer) Attach(c *thimble.Container) {
	if t.container == "" {
		t.container = c.ID()
	}
	c.OnCreate(t.ObserveCreate)
	c.OnDispose(t.ObserveDispose)
	c.OnDefine(t.ObserveDefine)
}

func (t *Tracer) ObserveCreate(name string, duration time.Duration, err error) {
	t.record("thimble.create", name, duration, err)
}

func (t *Tracer) ObserveDispose(name string, duration time.Duration, err error) {
	t.record("thimble.dispose", name, duration, err)
}

// ObserveDefine records a zero-length span per definition.
func (t *Tracer) ObserveDefine(def thimble.Definition) {
	_, span := t.tracer.Start(context.Background(), "thimble.define",
		trace.WithAttributes(t.attributes(def.Name, attrScope.String(def.Scope.String()))...),
	)
	span.End()
}

func (t *Tracer) record(operation, name string, duration time.Duration, err error) {
	end := time.Now()
	_, span := t.tracer.Start(context.Background(), operation,
		trace.WithTimestamp(end.Add(-duration)),
		trace.WithAttributes(t.attributes(name)...),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(end))
}

func (t *Tracer) attributes(name string, extra ...attribute.KeyValue) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attrComponent.String(name)}
	if t.container != "" {
		attrs = append(attrs, attrContainer.String(t.container))
	}
	return append(attrs, extra...)
}

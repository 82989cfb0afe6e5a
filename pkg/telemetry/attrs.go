package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// SpanAttributes accumulates the gate-specific attributes attached to spans.
type SpanAttributes struct {
	targetName  string // fuzzgate.target.name
	projectName string // fuzzgate.project.name
	verdict     string // fuzzgate.crash.verdict

	extraAttributes map[string]any
}

func EmptySpanAttributes() *SpanAttributes {
	return &SpanAttributes{
		extraAttributes: make(map[string]any),
	}
}

// Merge copies values from other that are not already set locally.
func (o *SpanAttributes) Merge(other *SpanAttributes) {
	if other == nil {
		return
	}
	if o.targetName == "" {
		o.targetName = other.targetName
	}
	if o.projectName == "" {
		o.projectName = other.projectName
	}
	if o.verdict == "" {
		o.verdict = other.verdict
	}
	if o.extraAttributes == nil {
		o.extraAttributes = make(map[string]any)
	}
	for k, v := range other.extraAttributes {
		if _, exists := o.extraAttributes[k]; !exists {
			o.extraAttributes[k] = v
		}
	}
}

func (o *SpanAttributes) WithTargetName(val string) *SpanAttributes {
	o.targetName = val
	return o
}

func (o *SpanAttributes) WithProjectName(val string) *SpanAttributes {
	o.projectName = val
	return o
}

func (o *SpanAttributes) WithVerdict(val string) *SpanAttributes {
	o.verdict = val
	return o
}

func (o *SpanAttributes) WithExtraAttribute(key string, val any) *SpanAttributes {
	o.extraAttributes[key] = val
	return o
}

// Attributes flattens the accumulated values into otel attributes.
func (o *SpanAttributes) Attributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(o.extraAttributes)+3)
	if o.targetName != "" {
		attrs = append(attrs, attribute.String("fuzzgate.target.name", o.targetName))
	}
	if o.projectName != "" {
		attrs = append(attrs, attribute.String("fuzzgate.project.name", o.projectName))
	}
	if o.verdict != "" {
		attrs = append(attrs, attribute.String("fuzzgate.crash.verdict", o.verdict))
	}
	for key, val := range o.extraAttributes {
		attrs = append(attrs, anyAttribute(key, val))
	}
	return attrs
}

// EventAttributes are attached to point-in-time span events.
type EventAttributes []attribute.KeyValue

func NewEventAttributes(values map[string]string) EventAttributes {
	attrs := make(EventAttributes, 0, len(values))
	for key, val := range values {
		attrs = append(attrs, attribute.String(key, val))
	}
	return attrs
}

func anyAttribute(key string, val any) attribute.KeyValue {
	switch v := val.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}

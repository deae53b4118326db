// reflector.go converts a live Go value into a size-bounded, depth-bounded
// record.VariableNode tree. It is grounded on the teacher's truncate-with-marker
// discipline (scrubber.go's truncateWithMarker) generalized from "string
// field" to "arbitrary reflected value".

package agent

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/aivorynet/agent-php/pkg/agent/record"
)

const (
	maxScalarValueBytes    = 200
	maxExceptionFieldBytes = 500
	maxContainerChildren   = 10
)

// VariableReflector converts live values into record.VariableNode trees bounded by
// maxDepth.
type VariableReflector struct {
	maxDepth int
}

// NewVariableReflector returns a reflector bounded to maxDepth (0-10).
func NewVariableReflector(maxDepth int) *VariableReflector {
	return &VariableReflector{maxDepth: maxDepth}
}

// Reflect converts value into a record.VariableNode named name, starting at depth.
func (r *VariableReflector) Reflect(name string, value any, depth int) record.VariableNode {
	return r.reflectCapped(name, value, depth, maxScalarValueBytes)
}

// ReflectExceptionField reflects a value using the wider 500-byte cap
// reserved for an exception's own top-level fields (e.g. its message).
func (r *VariableReflector) ReflectExceptionField(name string, value any, depth int) record.VariableNode {
	return r.reflectCapped(name, value, depth, maxExceptionFieldBytes)
}

func (r *VariableReflector) reflectCapped(name string, value any, depth int, scalarCap int) (node record.VariableNode) {
	defer func() {
		if rec := recover(); rec != nil {
			node = record.VariableNode{Name: name, Type: "unknown", Value: fmt.Sprintf("[reflect failure: %v]", rec), HasValue: true}
		}
	}()

	if depth > r.maxDepth {
		return record.VariableNode{
			Name:        name,
			Type:        "truncated",
			Value:       "<max depth exceeded>",
			HasValue:    true,
			IsTruncated: true,
		}
	}

	if value == nil {
		return record.VariableNode{Name: name, Type: "null", Value: "null", HasValue: true, IsNull: true}
	}

	rv := reflect.ValueOf(value)
	return r.reflectValue(name, rv, depth, scalarCap)
}

func (r *VariableReflector) reflectValue(name string, rv reflect.Value, depth int, scalarCap int) record.VariableNode {
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return record.VariableNode{Name: name, Type: "null", Value: "null", HasValue: true, IsNull: true}
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Invalid:
		return record.VariableNode{Name: name, Type: "null", Value: "null", HasValue: true, IsNull: true}

	case reflect.Bool:
		v := "false"
		if rv.Bool() {
			v = "true"
		}
		return record.VariableNode{Name: name, Type: "bool", Value: v, HasValue: true}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return record.VariableNode{Name: name, Type: "int", Value: strconv.FormatInt(rv.Int(), 10), HasValue: true}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return record.VariableNode{Name: name, Type: "int", Value: strconv.FormatUint(rv.Uint(), 10), HasValue: true}

	case reflect.Float32, reflect.Float64:
		return record.VariableNode{Name: name, Type: "float", Value: strconv.FormatFloat(rv.Float(), 'g', -1, 64), HasValue: true}

	case reflect.String:
		return r.reflectString(name, rv.String(), scalarCap)

	case reflect.Slice, reflect.Array:
		return r.reflectSequence(name, rv, depth)

	case reflect.Map:
		return r.reflectMap(name, rv, depth)

	case reflect.Struct:
		typeName := rv.Type().String()
		return record.VariableNode{Name: name, Type: typeName, Value: typeName, HasValue: true}

	default:
		return record.VariableNode{Name: name, Type: rv.Kind().String(), Value: "[" + rv.Type().String() + "]", HasValue: true}
	}
}

func (r *VariableReflector) reflectString(name, s string, cap int) record.VariableNode {
	if len(s) <= cap {
		return record.VariableNode{Name: name, Type: "string", Value: s, HasValue: true}
	}
	truncated := s[:cap]
	if cap == maxScalarValueBytes {
		// Generic (non-exception-message) captures get an ellipsis suffix.
		if cap > 3 {
			truncated = s[:cap-3] + "..."
		}
	}
	return record.VariableNode{Name: name, Type: "string", Value: truncated, HasValue: true, IsTruncated: true}
}

func (r *VariableReflector) reflectSequence(name string, rv reflect.Value, depth int) record.VariableNode {
	n := rv.Len()
	node := record.VariableNode{
		Name:     name,
		Type:     "array",
		Value:    fmt.Sprintf("Array(%d)", n),
		HasValue: true,
	}
	if depth < r.maxDepth && n <= maxContainerChildren {
		children := make(map[string]record.VariableNode, n)
		for i := 0; i < n; i++ {
			key := fmt.Sprintf("arg%d", i)
			children[key] = r.reflectValue(key, rv.Index(i), depth+1, maxScalarValueBytes)
		}
		node.Children = children
		node.HasChildren = true
	}
	return node
}

func (r *VariableReflector) reflectMap(name string, rv reflect.Value, depth int) record.VariableNode {
	n := rv.Len()
	node := record.VariableNode{
		Name:     name,
		Type:     "array",
		Value:    fmt.Sprintf("Array(%d)", n),
		HasValue: true,
	}
	if depth < r.maxDepth && n <= maxContainerChildren {
		children := make(map[string]record.VariableNode, n)
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			children[key] = r.reflectValue(key, iter.Value(), depth+1, maxScalarValueBytes)
		}
		node.Children = children
		node.HasChildren = true
	}
	return node
}

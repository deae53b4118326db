package agent

import "testing"

func TestVariableReflector_Scalars(t *testing.T) {
	r := NewVariableReflector(5)

	tests := []struct {
		name     string
		value    any
		wantType string
		wantVal  string
	}{
		{"bool true", true, "bool", "true"},
		{"int", 42, "int", "42"},
		{"uint", uint(7), "int", "7"},
		{"float", 3.5, "float", "3.5"},
		{"string", "hello", "string", "hello"},
		{"nil", nil, "null", "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := r.Reflect(tt.name, tt.value, 0)
			if node.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", node.Type, tt.wantType)
			}
			if node.Value != tt.wantVal {
				t.Errorf("Value = %q, want %q", node.Value, tt.wantVal)
			}
		})
	}
}

func TestVariableReflector_NilPointer(t *testing.T) {
	r := NewVariableReflector(5)
	var p *int
	node := r.Reflect("p", p, 0)
	if !node.IsNull {
		t.Error("nil pointer should reflect as null")
	}
}

func TestVariableReflector_TruncatesLongStrings(t *testing.T) {
	r := NewVariableReflector(5)
	long := make([]byte, maxScalarValueBytes+50)
	for i := range long {
		long[i] = 'a'
	}
	node := r.Reflect("s", string(long), 0)
	if !node.IsTruncated {
		t.Error("long string should be marked truncated")
	}
	if len(node.Value) != maxScalarValueBytes {
		t.Errorf("truncated value length = %d, want %d", len(node.Value), maxScalarValueBytes)
	}
}

func TestVariableReflector_ExceptionFieldWiderCap(t *testing.T) {
	r := NewVariableReflector(5)
	msg := make([]byte, maxExceptionFieldBytes-1)
	for i := range msg {
		msg[i] = 'a'
	}
	node := r.ReflectExceptionField("message", string(msg), 0)
	if node.IsTruncated {
		t.Error("message under the exception-field cap should not be truncated")
	}
}

func TestVariableReflector_MaxDepthExceeded(t *testing.T) {
	r := NewVariableReflector(0)
	node := r.Reflect("v", 1, 1)
	if !node.IsTruncated || node.Type != "truncated" {
		t.Errorf("expected a truncated marker node, got %+v", node)
	}
}

func TestVariableReflector_SliceWithinBoundsHasChildren(t *testing.T) {
	r := NewVariableReflector(5)
	node := r.Reflect("arr", []int{1, 2, 3}, 0)
	if !node.HasChildren {
		t.Error("expected slice within bounds to have children")
	}
	if len(node.Children) != 3 {
		t.Errorf("expected 3 children, got %d", len(node.Children))
	}
}

func TestVariableReflector_SliceOverContainerBoundHasNoChildren(t *testing.T) {
	r := NewVariableReflector(5)
	big := make([]int, maxContainerChildren+1)
	node := r.Reflect("arr", big, 0)
	if node.HasChildren {
		t.Error("slice over the container bound should not attach children")
	}
}

func TestVariableReflector_MapReflectsChildren(t *testing.T) {
	r := NewVariableReflector(5)
	node := r.Reflect("m", map[string]int{"a": 1}, 0)
	if !node.HasChildren || len(node.Children) != 1 {
		t.Errorf("expected one child, got %+v", node.Children)
	}
}

func TestVariableReflector_StructWithUnexportedFieldsDoesNotPanic(t *testing.T) {
	r := NewVariableReflector(5)
	// This input does not reach the recover path: a struct is reported by
	// type name without walking its fields, so Reflect returns a named node.
	type opaque struct{ a int }
	node := r.Reflect("o", opaque{a: 1}, 0)
	if node.Name != "o" {
		t.Errorf("unexpected node: %+v", node)
	}
}

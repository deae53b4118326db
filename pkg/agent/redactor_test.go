package agent

import "testing"

func TestRedactor_RedactsSensitiveKeys(t *testing.T) {
	r := NewRedactor(RedactorConfig{})

	tests := []struct {
		key string
	}{
		{"password"}, {"api_key"}, {"Authorization"}, {"credit_card"},
		{"ssn"}, {"private_key"}, {"SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			out := r.Redact(map[string]any{tt.key: "sensitive-value"})
			if out[tt.key] != redactedPlaceholder {
				t.Errorf("Redact(%q) = %v, want %q", tt.key, out[tt.key], redactedPlaceholder)
			}
		})
	}
}

func TestRedactor_LeavesNonSensitiveKeysUntouched(t *testing.T) {
	r := NewRedactor(RedactorConfig{})
	out := r.Redact(map[string]any{"user_id": "42", "path": "/checkout"})
	if out["user_id"] != "42" || out["path"] != "/checkout" {
		t.Errorf("non-sensitive keys were modified: %+v", out)
	}
}

func TestRedactor_DescendsIntoNestedMaps(t *testing.T) {
	r := NewRedactor(RedactorConfig{})
	out := r.Redact(map[string]any{
		"user": map[string]any{
			"name":     "alice",
			"password": "hunter2",
		},
	})
	nested, ok := out["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map, got %T", out["user"])
	}
	if nested["password"] != redactedPlaceholder {
		t.Errorf("nested password not redacted: %v", nested["password"])
	}
	if nested["name"] != "alice" {
		t.Errorf("nested non-sensitive key modified: %v", nested["name"])
	}
}

func TestRedactor_DescendsIntoSlices(t *testing.T) {
	r := NewRedactor(RedactorConfig{})
	out := r.Redact(map[string]any{
		"items": []any{
			map[string]any{"token": "abc"},
			"plain",
		},
	})
	items, ok := out["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("unexpected items: %+v", out["items"])
	}
	item0, ok := items[0].(map[string]any)
	if !ok || item0["token"] != redactedPlaceholder {
		t.Errorf("token inside slice element not redacted: %+v", items[0])
	}
	if items[1] != "plain" {
		t.Errorf("non-map slice element modified: %v", items[1])
	}
}

func TestRedactor_ExtraPatternsUnionWithDefaults(t *testing.T) {
	r := NewRedactor(RedactorConfig{ExtraPatterns: []string{"internal_id"}})
	out := r.Redact(map[string]any{"internal_id": "x", "password": "y"})
	if out["internal_id"] != redactedPlaceholder {
		t.Error("extra pattern was not applied")
	}
	if out["password"] != redactedPlaceholder {
		t.Error("default pattern list was dropped instead of unioned")
	}
}

func TestRedactor_DoesNotMutateInput(t *testing.T) {
	r := NewRedactor(RedactorConfig{})
	in := map[string]any{"password": "hunter2"}
	r.Redact(in)
	if in["password"] != "hunter2" {
		t.Error("Redact mutated its input")
	}
}

func TestRedactor_NilMapReturnsNil(t *testing.T) {
	r := NewRedactor(RedactorConfig{})
	if out := r.Redact(nil); out != nil {
		t.Errorf("Redact(nil) = %v, want nil", out)
	}
}

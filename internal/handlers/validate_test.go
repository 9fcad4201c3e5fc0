package handlers

import (
	"reflect"
	"testing"
)

func TestStripUnknownPropertiesNoRestriction(t *testing.T) {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"path": map[string]interface{}{"type": "string"}},
	}
	args := map[string]interface{}{"path": "/tmp/x", "extra": 1}
	cleaned, stripped := stripUnknownProperties(schema, args)
	if len(stripped) != 0 {
		t.Fatalf("expected no stripping when additionalProperties is absent, got %v", stripped)
	}
	if !reflect.DeepEqual(cleaned, args) {
		t.Fatalf("expected args unchanged, got %v", cleaned)
	}
}

func TestStripUnknownPropertiesStripsExtras(t *testing.T) {
	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           map[string]interface{}{"path": map[string]interface{}{"type": "string"}},
		"additionalProperties": false,
	}
	args := map[string]interface{}{"path": "/tmp/x", "extra": 1, "another": "y"}
	cleaned, stripped := stripUnknownProperties(schema, args)
	if len(cleaned) != 1 || cleaned["path"] != "/tmp/x" {
		t.Fatalf("expected only path to survive, got %v", cleaned)
	}
	if !reflect.DeepEqual(stripped, []string{"another", "extra"}) {
		t.Fatalf("expected sorted stripped keys, got %v", stripped)
	}
}

func TestStripUnknownPropertiesTrueAllowsAll(t *testing.T) {
	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           map[string]interface{}{"path": map[string]interface{}{"type": "string"}},
		"additionalProperties": true,
	}
	args := map[string]interface{}{"path": "/tmp/x", "extra": 1}
	cleaned, stripped := stripUnknownProperties(schema, args)
	if len(stripped) != 0 {
		t.Fatalf("expected no stripping when additionalProperties=true, got %v", stripped)
	}
	if !reflect.DeepEqual(cleaned, args) {
		t.Fatalf("expected args unchanged, got %v", cleaned)
	}
}

package memory

import (
	"testing"
)

func TestTypeCollection(t *testing.T) {
	tests := []struct {
		memType  Type
		expected string
	}{
		{TypeRequirement, "requirements"},
		{TypeDesign, "design"},
		{TypeCodePattern, "code_pattern"},
		{TypeComponent, "component"},
		{TypeFunction, "function"},
		{TypeTestResult, "test_results"},
		{TypeSession, "sessions"},
	}

	for _, tt := range tests {
		t.Run(string(tt.memType), func(t *testing.T) {
			name, err := tt.memType.Collection()
			if err != nil {
				t.Fatalf("Collection() error = %v", err)
			}
			if name != tt.expected {
				t.Errorf("Collection() = %q, want %q", name, tt.expected)
			}
		})
	}
}

func TestTypeCollectionUnknown(t *testing.T) {
	_, err := Type("hologram").Collection()
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestTypeValid(t *testing.T) {
	if !TypeDesign.Valid() {
		t.Error("design should be valid")
	}
	if Type("nope").Valid() {
		t.Error("unknown type should be invalid")
	}
}

func TestTraceRelationships(t *testing.T) {
	want := map[Relationship]bool{RelImplements: true, RelSatisfies: true, RelTests: true}
	if len(TraceRelationships) != len(want) {
		t.Fatalf("TraceRelationships has %d entries, want %d", len(TraceRelationships), len(want))
	}
	for _, rel := range TraceRelationships {
		if !want[rel] {
			t.Errorf("unexpected trace relationship %q", rel)
		}
	}
}

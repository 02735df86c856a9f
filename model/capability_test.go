package model

import "testing"

func TestCapabilityIsValid(t *testing.T) {
	valid := []Capability{CapabilityBinding, CapabilityTiebreak, CapabilityExtraction, CapabilityFast}
	for _, c := range valid {
		if !c.IsValid() {
			t.Errorf("expected %s to be valid", c)
		}
	}

	if Capability("turbo").IsValid() {
		t.Error("expected unknown capability to be invalid")
	}
}

func TestParseCapability(t *testing.T) {
	if got := ParseCapability("binding"); got != CapabilityBinding {
		t.Errorf("expected binding, got %s", got)
	}
	if got := ParseCapability("nope"); got != "" {
		t.Errorf("expected empty for unknown, got %s", got)
	}
}

func TestCapabilityForStep(t *testing.T) {
	tests := []struct {
		step string
		want Capability
	}{
		{"plan-developer", CapabilityBinding},
		{"ambiguity-resolver", CapabilityTiebreak},
		{"field-extractor", CapabilityExtraction},
		{"unknown-step", CapabilityBinding},
	}

	for _, tt := range tests {
		if got := CapabilityForStep(tt.step); got != tt.want {
			t.Errorf("CapabilityForStep(%s) = %s, want %s", tt.step, got, tt.want)
		}
	}
}

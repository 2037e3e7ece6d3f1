package validation

import (
	"strings"
	"testing"
)

func TestNormalizeText(t *testing.T) {
	got := NormalizeText("  Покраска\x00 стен\n\tи потолка \x07 ")
	if got != "Покраска стен\n\tи потолка" {
		t.Fatalf("unexpected normalized text: %q", got)
	}
}

func TestValidateRequestDescription(t *testing.T) {
	if err := ValidateRequestDescription("Починить кран"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateRequestDescription(""); err == nil {
		t.Fatalf("expected error for empty description")
	}
	if err := ValidateRequestDescription(strings.Repeat("я", MaxRequestDescriptionLength+1)); err == nil {
		t.Fatalf("expected error for too long description")
	}
}

func TestValidateExternalRef(t *testing.T) {
	tests := map[string]bool{
		"gw_1":                        true,
		"":                            false,
		"   ":                         false,
		"gw 1":                        false,
		strings.Repeat("a", 129):      false,
		"pay_01HZX3K8Q4W5E6R7T8Y9U0I": true,
	}
	for ref, ok := range tests {
		err := ValidateExternalRef(ref)
		if ok && err != nil {
			t.Errorf("ref %q: unexpected error %v", ref, err)
		}
		if !ok && err == nil {
			t.Errorf("ref %q: expected error", ref)
		}
	}
}

package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeComment_Bounds(t *testing.T) {
	if _, err := NormalizeComment(strings.Repeat("a", 500)); err != nil {
		t.Fatalf("500 characters should be accepted: %v", err)
	}
	_, err := NormalizeComment(strings.Repeat("a", 501))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for 501 characters, got %v", err)
	}
	if _, err := NormalizeComment("   \n\t "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank content, got %v", err)
	}
}

func TestNormalizeComment_TrimsBeforeCounting(t *testing.T) {
	got, err := NormalizeComment("  " + strings.Repeat("b", 500) + "  ")
	if err != nil {
		t.Fatalf("padded 500 characters should be accepted: %v", err)
	}
	if len(got) != 500 {
		t.Fatalf("expected trimmed content, got length %d", len(got))
	}
}

func TestNormalizeComment_CountsRunes(t *testing.T) {
	if _, err := NormalizeComment(strings.Repeat("é", 500)); err != nil {
		t.Fatalf("500 multi-byte characters should be accepted: %v", err)
	}
}

func TestNormalizeUsername(t *testing.T) {
	for _, ok := range []string{"abc", "user_01", "ABCDEFGHIJ0123456789"} {
		if _, err := NormalizeUsername(ok); err != nil {
			t.Fatalf("%q should be valid: %v", ok, err)
		}
	}
	for _, bad := range []string{"ab", "has space", "dash-ed", strings.Repeat("x", 21)} {
		if _, err := NormalizeUsername(bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("%q should be invalid, got %v", bad, err)
		}
	}
}

func TestValidationErrorField(t *testing.T) {
	_, err := NormalizePrompt("")
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "prompt" {
		t.Fatalf("expected prompt validation error, got %v", err)
	}
}

func TestDimensions(t *testing.T) {
	if w, h := Dimensions("16:9"); w != 768 || h != 432 {
		t.Fatalf("16:9 -> %dx%d", w, h)
	}
	if w, h := Dimensions("9:16"); w != 432 || h != 768 {
		t.Fatalf("9:16 -> %dx%d", w, h)
	}
	if w, h := Dimensions("weird"); w != 512 || h != 512 {
		t.Fatalf("default -> %dx%d", w, h)
	}
}

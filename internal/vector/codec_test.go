package vector

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/hyperjump/miru/internal/apperr"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	vecs := [][]float32{
		{0.1, 0.2, 0.3},
		{-1, 0, 1},
		{0.000123, 1e20, -3.4e-12},
		{},
	}
	for _, vec := range vecs {
		text := Encode(vec)
		got, err := Decode(text)
		if err != nil {
			t.Fatalf("Decode(%q): %v", text, err)
		}
		if len(got) != len(vec) {
			t.Fatalf("length mismatch: %d vs %d", len(got), len(vec))
		}
		for i := range vec {
			if got[i] != vec[i] {
				t.Errorf("component %d: %v != %v", i, got[i], vec[i])
			}
		}
	}
}

func TestEncode_Format(t *testing.T) {
	text := Encode([]float32{0.5, -2})
	if text != "[0.5,-2]" {
		t.Errorf("unexpected text form: %s", text)
	}
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		t.Errorf("text form must be bracketed: %s", text)
	}
}

func TestDecode_ToleratesWhitespace(t *testing.T) {
	got, err := Decode(" [0.1, 0.2 ,0.3] ")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 components, got %d", len(got))
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, text := range []string{"", "0.1,0.2", "[0.1,0.2", "0.1,0.2]", "[0.1,abc]", "[0.1 0.2]"} {
		if _, err := Decode(text); !errors.Is(err, ErrFormat) {
			t.Errorf("Decode(%q): expected ErrFormat, got %v", text, err)
		}
	}
}

func TestDecode_Empty(t *testing.T) {
	got, err := Decode("[]")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty vector, got %d components", len(got))
	}
}

func TestValidateDimension(t *testing.T) {
	if err := ValidateDimension([]float32{1, 2, 3}, 3); err != nil {
		t.Errorf("valid vector rejected: %v", err)
	}
	if err := ValidateDimension(make([]float32, 512), 768); !errors.Is(err, apperr.ErrDimension) {
		t.Errorf("expected ErrDimension for wrong length, got %v", err)
	}
	if err := ValidateDimension([]float32{1, float32(math.NaN()), 3}, 3); !errors.Is(err, apperr.ErrDimension) {
		t.Errorf("expected ErrDimension for NaN, got %v", err)
	}
	if err := ValidateDimension([]float32{1, float32(math.Inf(1)), 3}, 3); !errors.Is(err, apperr.ErrDimension) {
		t.Errorf("expected ErrDimension for Inf, got %v", err)
	}
}

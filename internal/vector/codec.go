// Package vector provides embedding vector encoding and similarity math.
package vector

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hyperjump/miru/internal/apperr"
)

// ErrFormat indicates a persisted vector string that does not parse.
var ErrFormat = errors.New("malformed vector text")

// Encode renders vec in the bracketed text form "[v1,v2,...]" used for
// storage. Components use the shortest representation that round-trips
// at float32 precision.
func Encode(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// Decode parses the bracketed text form produced by Encode. Whitespace
// around the brackets and between components is tolerated.
func Decode(text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '[' || text[len(text)-1] != ']' {
		return nil, fmt.Errorf("%w: %q", ErrFormat, text)
	}
	inner := strings.TrimSpace(text[1 : len(text)-1])
	if inner == "" {
		return []float32{}, nil
	}
	parts := strings.Split(inner, ",")
	vec := make([]float32, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: component %d: %q", ErrFormat, i, part)
		}
		vec[i] = float32(v)
	}
	return vec, nil
}

// ValidateDimension checks that vec has exactly dims finite components.
func ValidateDimension(vec []float32, dims int) error {
	if len(vec) != dims {
		return fmt.Errorf("%w: got %d, expected %d", apperr.ErrDimension, len(vec), dims)
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is not finite", apperr.ErrDimension, i)
		}
	}
	return nil
}

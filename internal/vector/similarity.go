package vector

import "math"

// CosineSimilarity returns the cosine of the angle between a and b.
// Range is [-1,1]; 0 when the vectors differ in length or either has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CosineDistance returns 1 - CosineSimilarity(a, b). Range [0,2], 0 = identical direction.
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// ClampSimilarity clamps a similarity score into [0,1] for reporting.
func ClampSimilarity(s float64) float64 {
	return math.Max(0, math.Min(1, s))
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

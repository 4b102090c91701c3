package vectorstore

import "math"

// cosineDistance returns 1 - cos(a, b). Zero vectors are treated as
// orthogonal to everything.
func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// Rounding can push |sim| slightly past 1.
	sim = math.Max(-1, math.Min(1, sim))
	return 1 - sim
}

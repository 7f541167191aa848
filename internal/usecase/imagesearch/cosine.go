package imagesearch

import "math"

// cosine computes cosine similarity between two vectors. The dot product
// runs over the common prefix when dimensions differ; norms cover each full
// vector. A zero norm is substituted with 1.0, so an all-zero vector scores
// 0 against everything instead of dividing by zero.
func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}

	na := norm(a)
	if na == 0 {
		na = 1.0
	}
	nb := norm(b)
	if nb == 0 {
		nb = 1.0
	}
	return dot / (na * nb)
}

func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

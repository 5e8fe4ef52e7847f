package analytics

import "math"

// olsSlope computes the closed-form OLS slope of y against x:
// cov(x,y)/var(x). ok is false for fewer than two points, mismatched
// lengths, or zero variance in x.
func olsSlope(xs, ys []float64) (float64, bool) {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0, false
	}
	meanX := mean(xs)
	meanY := mean(ys)
	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		sxx += dx * dx
		sxy += dx * (ys[i] - meanY)
	}
	if sxx == 0 {
		return 0, false
	}
	return sxy / sxx, true
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// variance is the population variance. ok is false below two samples.
func variance(vs []float64) (float64, bool) {
	if len(vs) < 2 {
		return 0, false
	}
	m := mean(vs)
	var ss float64
	for _, v := range vs {
		d := v - m
		ss += d * d
	}
	return ss / float64(len(vs)), true
}

// stddev is the population standard deviation, matching the trailing-window
// shock rule's mean + k*sigma threshold. ok is false below two samples.
func stddev(vs []float64) (float64, bool) {
	v, ok := variance(vs)
	if !ok {
		return 0, false
	}
	return math.Sqrt(v), true
}

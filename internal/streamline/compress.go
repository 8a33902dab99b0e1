package streamline

// DefaultCompressionError is the maximum point-to-chord deviation (mm)
// tolerated by Compress when no explicit threshold is configured.
const DefaultCompressionError = 0.1

// Compress removes points whose deviation from the chord between their
// retained neighbours stays within maxError (mm). Endpoints are always
// kept. The reduction is the Ramer-Douglas-Peucker split: the farthest
// point from the current chord is retained if it deviates beyond the
// threshold, and both halves are reduced recursively.
func Compress(line Streamline, maxError float64) Streamline {
	if maxError <= 0 {
		maxError = DefaultCompressionError
	}
	if len(line) <= 2 {
		return line
	}

	keep := make([]bool, len(line))
	keep[0] = true
	keep[len(line)-1] = true
	compressRange(line, 0, len(line)-1, maxError, keep)

	out := make(Streamline, 0, len(line))
	for i, k := range keep {
		if k {
			out = append(out, line[i])
		}
	}
	return out
}

func compressRange(line Streamline, lo, hi int, maxError float64, keep []bool) {
	if hi-lo < 2 {
		return
	}
	maxDist := 0.0
	maxIdx := -1
	for i := lo + 1; i < hi; i++ {
		d := pointSegmentDistance(line[i], line[lo], line[hi])
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}
	if maxDist <= maxError {
		return
	}
	keep[maxIdx] = true
	compressRange(line, lo, maxIdx, maxError, keep)
	compressRange(line, maxIdx, hi, maxError, keep)
}

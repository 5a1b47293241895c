package stats

type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type Float interface {
	~float32 | ~float64
}

// Returns the mean of the given samples, or 0 for an empty slice.
func Mean[T Float | Integer](samples []T) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range samples {
		sum += float64(v)
	}
	return sum / float64(len(samples))
}

// Returns the largest sample, or 0 for an empty slice.
func Max[T Float | Integer](samples []T) T {
	var best T
	for i, v := range samples {
		if i == 0 || v > best {
			best = v
		}
	}
	return best
}

// Returns the smallest sample, or 0 for an empty slice.
func Min[T Float | Integer](samples []T) T {
	var best T
	for i, v := range samples {
		if i == 0 || v < best {
			best = v
		}
	}
	return best
}

package domain

// Move returns a copy of list with the element at from respliced to position
// to. A to index outside the post-removal range is clamped to the nearest
// end rather than rejected — drag-and-drop callers routinely overshoot.
// An out-of-range from returns the list unchanged. The input is never
// mutated; callers commit the result as the new collection.
func Move[T any](list []T, from, to int) []T {
	out := make([]T, len(list))
	copy(out, list)

	if from < 0 || from >= len(out) || from == to {
		return out
	}

	item := out[from]
	out = append(out[:from], out[from+1:]...)

	if to < 0 {
		to = 0
	}
	if to > len(out) {
		to = len(out)
	}

	out = append(out, item)
	copy(out[to+1:], out[to:])
	out[to] = item
	return out
}

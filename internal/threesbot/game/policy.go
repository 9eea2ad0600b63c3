package game

// KeepIndices picks which dice of a pending roll the automated opponent
// keeps. Threes cost nothing, so every 3 in the roll is kept; with no
// 3s it keeps the single lowest die (first occurrence on ties). The
// result is never empty for a non-empty roll, which satisfies the Keep
// precondition. Greedy, not globally optimal.
func KeepIndices(roll []int) []int {
	if len(roll) == 0 {
		return nil
	}

	var threes []int
	for i, v := range roll {
		if v == 3 {
			threes = append(threes, i)
		}
	}
	if len(threes) > 0 {
		return threes
	}

	minIdx := 0
	for i, v := range roll {
		if v < roll[minIdx] {
			minIdx = i
		}
	}

	return []int{minIdx}
}

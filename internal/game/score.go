package game

// Score implements the two-pass scoring algorithm.
//
// Pass 1 marks exact matches as Correct and consumes that answer letter.
// Pass 2 walks the remaining guess letters left to right; each one claims
// the first unconsumed occurrence of the same letter in the answer and
// becomes Present, otherwise Absent.
//
// The ordering decides which occurrence of a repeated letter wins Present,
// so "BABAT" against "BENUA" yields correct, present, absent, absent, absent.
func Score(guess, answer string) []LetterState {
	g := []rune(guess)
	pool := make([]rune, len([]rune(answer)))
	copy(pool, []rune(answer))

	res := make([]LetterState, len(g))
	// consumed answer slots are set to -1
	const used rune = -1

	for i := range g {
		if i < len(pool) && g[i] == pool[i] {
			res[i] = Correct
			pool[i] = used
		}
	}

	for i := range g {
		if res[i] == Correct {
			continue
		}
		res[i] = Absent
		for j := range pool {
			if pool[j] == g[i] {
				res[i] = Present
				pool[j] = used
				break
			}
		}
	}
	return res
}

// IsWin returns true if every state is Correct.
func IsWin(states []LetterState) bool {
	if len(states) == 0 {
		return false
	}
	for _, s := range states {
		if s != Correct {
			return false
		}
	}
	return true
}

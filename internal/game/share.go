package game

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

var (
	emojiByState = map[LetterState]string{Correct: "🟩", Present: "🟨", Absent: "⬛"}
	// high contrast swaps green/yellow for orange/blue
	contrastEmojiByState = map[LetterState]string{Correct: "🟧", Present: "🟦", Absent: "⬛"}
)

// ShareGrid renders one emoji row per completed guess.
func ShareGrid(h AttemptHistory, answer string, highContrast bool) string {
	palette := emojiByState
	if highContrast {
		palette = contrastEmojiByState
	}
	rows := lo.Map(h.Completed(), func(guess string, _ int) string {
		return strings.Join(lo.Map(Score(guess, answer), func(s LetterState, _ int) string {
			return palette[s]
		}), "")
	})
	return strings.Join(rows, "\n")
}

// ShareText is the spoiler-free result text players paste elsewhere.
func ShareText(num int, h AttemptHistory, answer string, highContrast bool, url string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Katla %d %d/%d\n\n", num, h.Attempt, MaxAttempts)
	sb.WriteString(ShareGrid(h, answer, highContrast))
	if url != "" {
		sb.WriteString("\n\n")
		sb.WriteString(url)
	}
	return sb.String()
}

// Package assets embeds the default word lists.
//
//   - answers.csv: daily answers in publication order, comma separated.
//   - words.txt:   allowed guesses, one per line.
package assets

import (
	"embed"
	"strings"
)

//go:embed answers.csv words.txt
var FS embed.FS

// splitWords splits on commas and newlines, dropping blanks and # comments.
func splitWords(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' }) {
		f = strings.TrimSpace(f)
		if f == "" || strings.HasPrefix(f, "#") {
			continue
		}
		out = append(out, strings.ToLower(f))
	}
	return out
}

func readList(name string) ([]string, error) {
	b, err := FS.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return splitWords(string(b)), nil
}

// AnswersList returns the embedded answers in order.
func AnswersList() ([]string, error) {
	return readList("answers.csv")
}

// AllowedList returns the embedded allowed guesses.
func AllowedList() ([]string, error) {
	return readList("words.txt")
}

// SplitWords parses a word list file in either format.
func SplitWords(s string) []string { return splitWords(s) }

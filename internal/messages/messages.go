// Package messages turns game results into player-facing text.
//
// Locale files are embedded JSON maps of key → fmt template. Lookups fall
// back to Indonesian, then to the key itself.
package messages

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/robalobadob/katla/internal/game"
)

const DefaultLang = "id"

//go:embed locales/*.json
var locales embed.FS

type Localizer struct {
	translations map[string]map[string]string
}

// Default loads the embedded locales.
func Default() (*Localizer, error) {
	sub, err := fs.Sub(locales, "locales")
	if err != nil {
		return nil, err
	}
	return New(sub)
}

// New loads every *.json file in fsys, named by language.
func New(fsys fs.FS) (*Localizer, error) {
	translations := make(map[string]map[string]string)

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		b, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		var langMap map[string]string
		if err := json.Unmarshal(b, &langMap); err != nil {
			return fmt.Errorf("locale %s: %w", path, err)
		}
		translations[strings.TrimSuffix(d.Name(), ".json")] = langMap
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load locales: %w", err)
	}
	return &Localizer{translations: translations}, nil
}

// Has reports whether lang was loaded.
func (l *Localizer) Has(lang string) bool {
	_, ok := l.translations[lang]
	return ok
}

// Get returns the raw template for key.
func (l *Localizer) Get(lang, key string) string {
	if v, ok := l.translations[lang][key]; ok {
		return v
	}
	if v, ok := l.translations[DefaultLang][key]; ok {
		return v
	}
	return key
}

// Format fills the template for key with args.
func (l *Localizer) Format(lang, key string, args ...any) string {
	if len(args) == 0 {
		return l.Get(lang, key)
	}
	return fmt.Sprintf(l.Get(lang, key), args...)
}

// ErrorKey maps a game error to its message key. Unknown errors map to
// "error.internal".
func ErrorKey(err error) string {
	var hm *game.HardModeError
	switch {
	case errors.Is(err, game.ErrNotEnoughLetters):
		return "error.not_enough_letters"
	case errors.Is(err, game.ErrNotInWordList):
		return "error.not_in_word_list"
	case errors.Is(err, game.ErrFinished):
		return "error.finished"
	case errors.Is(err, game.ErrAnimating):
		return "error.animating"
	case errors.As(err, &hm):
		if hm.Violation.Position > 0 {
			return "error.must_match"
		}
		return "error.must_use"
	}
	return "error.internal"
}

// Error renders err for lang. Hard mode violations name the letter in
// upper case, and the position when there is one.
func (l *Localizer) Error(lang string, err error) string {
	key := ErrorKey(err)
	var hm *game.HardModeError
	if errors.As(err, &hm) {
		letter := strings.ToUpper(hm.Violation.Letter)
		if hm.Violation.Position > 0 {
			return l.Format(lang, key, hm.Violation.Position, letter)
		}
		return l.Format(lang, key, letter)
	}
	return l.Get(lang, key)
}

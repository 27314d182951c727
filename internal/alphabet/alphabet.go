// Package alphabet holds the static letter/word table that every stage of the
// pipeline shares, and the filename convention that acts as the identity key
// between the generator, the coordinator and the poster assembler.
package alphabet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Pair is a single letter/word unit to be illustrated. Immutable once
// constructed: Letter is an uppercase single grapheme, Word is lowercase.
type Pair struct {
	Letter string `json:"letter" yaml:"letter"`
	Word   string `json:"word" yaml:"word"`
}

// defaultOrder fixes the Russian alphabet ordering used for batch iteration
// and poster layout. Layout position never depends on generation order.
var defaultOrder = []string{
	"А", "Б", "В", "Г", "Д", "Е", "Ё", "Ж", "З", "И", "Й",
	"К", "Л", "М", "Н", "О", "П", "Р", "С", "Т", "У", "Ф",
	"Х", "Ц", "Ч", "Ш", "Щ", "Ъ", "Ы", "Ь", "Э", "Ю", "Я",
}

var defaultWords = map[string]string{
	"А": "арбуз",
	"Б": "барабан",
	"В": "волк",
	"Г": "гриб",
	"Д": "дом",
	"Е": "ель",
	"Ё": "ёжик",
	"Ж": "жираф",
	"З": "зебра",
	"И": "игрушка",
	"Й": "йогурт",
	"К": "кот",
	"Л": "лев",
	"М": "медведь",
	"Н": "нос",
	"О": "облако",
	"П": "пингвин",
	"Р": "рыба",
	"С": "солнце",
	"Т": "тигр",
	"У": "утка",
	"Ф": "флаг",
	"Х": "хлеб",
	"Ц": "цветок",
	"Ч": "часы",
	"Ш": "шар",
	"Щ": "щенок",
	"Ъ": "съезд",
	"Ы": "сыр",
	"Ь": "конь",
	"Э": "экскаватор",
	"Ю": "юла",
	"Я": "яблоко",
}

// NewPair normalizes and validates a letter/word pair. In strict mode the
// word must begin with the letter case-insensitively; the default table keeps
// strict off because Ъ, Ы and Ь have no common word-initial examples.
func NewPair(letter, word string, strict bool) (Pair, error) {
	l := strings.ToUpper(strings.TrimSpace(letter))
	w := strings.ToLower(strings.TrimSpace(word))

	if l == "" || w == "" {
		return Pair{}, fmt.Errorf("letter and word cannot be empty")
	}
	if utf8.RuneCountInString(l) != 1 {
		return Pair{}, fmt.Errorf("letter must be a single character, got %q", letter)
	}
	r, _ := utf8.DecodeRuneInString(l)
	if !unicode.IsLetter(r) {
		return Pair{}, fmt.Errorf("letter must be alphabetic, got %q", letter)
	}
	if strict && !strings.HasPrefix(w, strings.ToLower(l)) {
		return Pair{}, fmt.Errorf("word %q must start with letter %q", word, letter)
	}
	return Pair{Letter: l, Word: w}, nil
}

// Default returns the full 33-entry Russian table in alphabet order.
func Default() []Pair {
	pairs := make([]Pair, 0, len(defaultOrder))
	for _, l := range defaultOrder {
		pairs = append(pairs, Pair{Letter: l, Word: defaultWords[l]})
	}
	return pairs
}

// Letters returns the alphabet ordering shared by every component.
func Letters() []string {
	out := make([]string, len(defaultOrder))
	copy(out, defaultOrder)
	return out
}

// WordFor looks up the default word for a letter.
func WordFor(letter string) (string, bool) {
	w, ok := defaultWords[strings.ToUpper(letter)]
	return w, ok
}

// LoadPairsFile reads a custom letter→word mapping from a YAML or JSON file.
// The file must cover exactly the default alphabet; missing or extra letters
// are an error naming them.
func LoadPairsFile(path string) ([]Pair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pairs file: %w", err)
	}

	m := map[string]string{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse pairs file %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse pairs file %s: %w", path, err)
		}
	}

	norm := make(map[string]string, len(m))
	for k, v := range m {
		p, err := NewPair(k, v, false)
		if err != nil {
			return nil, fmt.Errorf("pairs file %s: %w", path, err)
		}
		norm[p.Letter] = p.Word
	}

	var missing, extra []string
	for _, l := range defaultOrder {
		if _, ok := norm[l]; !ok {
			missing = append(missing, l)
		}
	}
	for l := range norm {
		if _, ok := defaultWords[l]; !ok {
			extra = append(extra, l)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(missing)
		sort.Strings(extra)
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, "missing letters: "+strings.Join(missing, ", "))
		}
		if len(extra) > 0 {
			parts = append(parts, "extra letters: "+strings.Join(extra, ", "))
		}
		return nil, fmt.Errorf("invalid pairs file %s: %s", path, strings.Join(parts, "; "))
	}

	pairs := make([]Pair, 0, len(defaultOrder))
	for _, l := range defaultOrder {
		pairs = append(pairs, Pair{Letter: l, Word: norm[l]})
	}
	return pairs, nil
}

// FileName is the canonical card image name, the cross-component identity key.
func (p Pair) FileName() string {
	return fmt.Sprintf("%s_%s.png", p.Letter, p.Word)
}

// MetadataFileName is the sidecar JSON written next to the card image.
func (p Pair) MetadataFileName() string {
	return fmt.Sprintf("%s_%s_metadata.json", p.Letter, p.Word)
}

// ParseFileName recovers the letter from a canonical card filename.
// Returns ok=false for files that do not follow the convention.
func ParseFileName(name string) (letter string, ok bool) {
	base := strings.TrimSuffix(filepath.Base(name), ".png")
	if base == filepath.Base(name) {
		return "", false
	}
	idx := strings.Index(base, "_")
	if idx <= 0 {
		return "", false
	}
	return strings.ToUpper(base[:idx]), true
}

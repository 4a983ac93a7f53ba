package game

import "ullas/internal/lang"

// GameType identifies a mini game and its progress bucket
type GameType string

const (
	Phonics    GameType = "phonics"
	Counting   GameType = "counting"
	ImageWord  GameType = "image-word"
	NumberOps  GameType = "number-ops"
	WordPuzzle GameType = "word-puzzle"
	Reading    GameType = "reading"
	Writing    GameType = "writing"
)

// Info describes a catalog entry
type Info struct {
	Type       GameType                 `json:"type"`
	Kind       Kind                     `json:"kind,omitempty"`
	Title      map[lang.Language]string `json:"title"`
	ComingSoon bool                     `json:"comingSoon"`
}

var catalog = []Info{
	{Type: Phonics, Kind: DiscreteChoice, Title: titles("Phonics Game", "ध्वनि खेल")},
	{Type: Counting, Kind: DiscreteChoice, Title: titles("Counting Game", "गिनती खेल")},
	{Type: ImageWord, Kind: DiscreteChoice, Title: titles("Image Word Match", "चित्र शब्द मिलान")},
	{Type: NumberOps, Kind: DiscreteChoice, Title: titles("Number Operations", "संख्या संक्रियाएँ")},
	{Type: WordPuzzle, Kind: SequenceBuild, Title: titles("Word Building Puzzle", "शब्द निर्माण पहेली")},
	{Type: Reading, Title: titles("Reading Game", "पढ़ने का खेल"), ComingSoon: true},
	{Type: Writing, Title: titles("Writing Game", "लिखने का खेल"), ComingSoon: true},
}

func titles(en, hi string) map[lang.Language]string {
	return map[lang.Language]string{lang.English: en, lang.Hindi: hi}
}

// Catalog lists every game type in display order
func Catalog() []Info {
	out := make([]Info, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for t
func Lookup(t GameType) (Info, bool) {
	for _, info := range catalog {
		if info.Type == t {
			return info, true
		}
	}
	return Info{}, false
}

// PlayableTypes lists the game types that have content, as strings for
// the progress store
func PlayableTypes() []string {
	var out []string
	for _, info := range catalog {
		if !info.ComingSoon {
			out = append(out, string(info.Type))
		}
	}
	return out
}

// TitleIn returns the title in l, falling back to English
func (i Info) TitleIn(l lang.Language) string {
	if t, ok := i.Title[l]; ok {
		return t
	}
	return i.Title[lang.English]
}

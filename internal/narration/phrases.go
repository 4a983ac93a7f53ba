package narration

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ullas/internal/lang"
)

const (
	keyInstructions = "narration.instructions"
	keyCorrect      = "narration.correct"
	keyCorrectWith  = "narration.correct_with"
	keyIncorrect    = "narration.incorrect"
	keyIncorrectFor = "narration.incorrect_for"
	keySummary      = "narration.summary"
	keyComingSoon   = "narration.coming_soon"
	keyVoiceOn      = "narration.voice_on"
)

func init() {
	set := func(tag language.Tag, key, msg string) {
		if err := message.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}

	set(language.English, keyInstructions, "%s. Instructions: %s")
	set(language.English, keyCorrect, "Correct!")
	set(language.English, keyCorrectWith, "Correct! %s")
	set(language.English, keyIncorrect, "Try Again")
	set(language.English, keyIncorrectFor, "Wrong! The correct answer is %s")
	set(language.English, keySummary, "Well Done! Score: %d")
	set(language.English, keyComingSoon, "Coming Soon")
	set(language.English, keyVoiceOn, "Voice guidance is on")

	set(language.Hindi, keyInstructions, "%s. निर्देश: %s")
	set(language.Hindi, keyCorrect, "सही जवाब है!")
	set(language.Hindi, keyCorrectWith, "सही जवाब है! %s")
	set(language.Hindi, keyIncorrect, "गलत जवाब है")
	set(language.Hindi, keyIncorrectFor, "गलत! सही उत्तर है %s")
	set(language.Hindi, keySummary, "बहुत अच्छा! स्कोर: %d")
	set(language.Hindi, keyComingSoon, "जल्द आ रहा है")
	set(language.Hindi, keyVoiceOn, "आवाज़ सहायता चालू है")
}

// Phrasebook renders the spoken feedback lines for one language
type Phrasebook struct {
	lang    lang.Language
	printer *message.Printer
}

// NewPhrasebook returns the phrasebook for l
func NewPhrasebook(l lang.Language) *Phrasebook {
	return &Phrasebook{lang: l, printer: message.NewPrinter(l.Tag())}
}

// Language returns the phrasebook's language
func (b *Phrasebook) Language() lang.Language {
	return b.lang
}

// Instructions introduces a game
func (b *Phrasebook) Instructions(title, how string) string {
	if how == "" {
		return title
	}
	return b.printer.Sprintf(keyInstructions, title, how)
}

// Correct is spoken when an answer is accepted. answer may be empty.
func (b *Phrasebook) Correct(answer string) string {
	if answer == "" {
		return b.printer.Sprintf(keyCorrect)
	}
	return b.printer.Sprintf(keyCorrectWith, lang.LocalizeDigits(answer, b.lang))
}

// Incorrect is spoken when an answer is rejected. expected may be empty.
func (b *Phrasebook) Incorrect(expected string) string {
	if expected == "" {
		return b.printer.Sprintf(keyIncorrect)
	}
	return b.printer.Sprintf(keyIncorrectFor, lang.LocalizeDigits(expected, b.lang))
}

// Summary is spoken when a session finalizes
func (b *Phrasebook) Summary(score int) string {
	return b.printer.Sprintf(keySummary, score)
}

// ComingSoon is spoken for games without content
func (b *Phrasebook) ComingSoon() string {
	return b.printer.Sprintf(keyComingSoon)
}

// VoiceOn confirms that narration was re-enabled
func (b *Phrasebook) VoiceOn() string {
	return b.printer.Sprintf(keyVoiceOn)
}

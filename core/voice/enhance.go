package voice

import (
	"regexp"
	"strings"
)

// Pause markup inserted into meditation scripts before synthesis. espeak-ng
// honors these break tags when run with markup enabled.
var enhancements = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	// Natural pauses at punctuation.
	{regexp.MustCompile(`\.\s`), `. <break time="2s"/> `},
	{regexp.MustCompile(`\?\s`), `? <break time="2s"/> `},
	{regexp.MustCompile(`!\s`), `! <break time="2s"/> `},
	{regexp.MustCompile(`,\s`), `, <break time="0.8s"/> `},
	{regexp.MustCompile(`:\s`), `: <break time="1.5s"/> `},
	{regexp.MustCompile(`;\s`), `; <break time="1.2s"/> `},

	// Phrases that carry their own silence in guided meditation.
	{regexp.MustCompile(`(?i)let us pray`), `<break time="3s"/> Let us pray. <break time="3s"/> `},
	{regexp.MustCompile(`(?i)amen`), `<break time="1.5s"/> Amen. <break time="2s"/> `},
	{regexp.MustCompile(`(?i)scripture says`), `<break time="2s"/> Scripture says: <break time="1.5s"/> `},
	{regexp.MustCompile(`(?i)breathe`), `<break time="1s"/> breathe <break time="2s"/> `},

	// Paragraph and line breaks.
	{regexp.MustCompile(`\n\s*\n`), ` <break time="3s"/> `},
	{regexp.MustCompile(`\n`), ` <break time="1.5s"/> `},
}

var collapseSpaces = regexp.MustCompile(`\s+`)

// EnhanceMeditationText inserts pause markup into a meditation script so the
// synthesized narration breathes like a guided session instead of reading
// straight through.
func EnhanceMeditationText(text string) string {
	for _, e := range enhancements {
		text = e.pattern.ReplaceAllString(text, e.replacement)
	}
	return strings.TrimSpace(collapseSpaces.ReplaceAllString(text, " "))
}

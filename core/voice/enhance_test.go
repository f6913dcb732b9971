package voice

import (
	"strings"
	"testing"
)

func TestEnhanceMeditationText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string // substrings that must appear
	}{
		{
			name: "sentence pauses",
			in:   "Close your eyes. Relax your shoulders.",
			want: []string{`. <break time="2s"/> Relax`},
		},
		{
			name: "comma and colon pauses",
			in:   "Slowly, gently: begin.",
			want: []string{`, <break time="0.8s"/> gently`, `: <break time="1.5s"/> begin`},
		},
		{
			name: "breathing cue gets surrounding silence",
			in:   "Now breathe deeply.",
			want: []string{`<break time="1s"/> breathe <break time="2s"/>`},
		},
		{
			name: "paragraph break becomes a long pause",
			in:   "First part.\n\nSecond part.",
			want: []string{`<break time="3s"/>`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnhanceMeditationText(tt.in)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("EnhanceMeditationText(%q) = %q, missing %q", tt.in, got, want)
				}
			}
			if strings.Contains(got, "  ") {
				t.Errorf("enhanced text contains double spaces: %q", got)
			}
		})
	}
}

func TestEstimateDuration(t *testing.T) {
	words := strings.Repeat("om ", 120) // 120 words

	if got := EstimateDuration(words, 1.0); got != 60 {
		t.Errorf("120 words at rate 1.0 = %ds, want 60", got)
	}
	if got := EstimateDuration(words, 0.5); got != 120 {
		t.Errorf("120 words at rate 0.5 = %ds, want 120", got)
	}
	if got := EstimateDuration("", 1.0); got != 0 {
		t.Errorf("empty text = %ds, want 0", got)
	}
	if got := EstimateDuration("peace", 1.0); got < 1 {
		t.Errorf("single word = %ds, want at least 1", got)
	}
}

func TestParseVoiceList(t *testing.T) {
	out := `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 2  en-gb           --/M      English_(Great_Britain) gmw/en
 2  en-us           --/M      English_(America)  gmw/en-US
`
	voices := parseVoiceList(out)
	if len(voices) != 3 {
		t.Fatalf("parsed %d voices, want 3", len(voices))
	}
	if voices[1].Language != "en-gb" {
		t.Errorf("voices[1].Language = %q, want en-gb", voices[1].Language)
	}
	if voices[2].Name != "English_(America)" {
		t.Errorf("voices[2].Name = %q", voices[2].Name)
	}
}

package voice

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"Bt1Zen/logger"
	"Bt1Zen/model"
)

// Meditation narration defaults. Rates are multiples of the backend's
// normal speaking speed; meditation scripts are read slowly.
const (
	defaultRate   = 0.7
	defaultPitch  = 0.9
	defaultVolume = 0.9

	espeakBaseWPM = 175 // espeak-ng default words per minute
)

// preferredVoices is tried in order when the request names no voice.
var preferredVoices = []string{"en-us+f3", "en-gb", "en-us", "en"}

// EspeakSynthesizer shells out to espeak-ng and captures the WAV stream it
// writes to stdout.
type EspeakSynthesizer struct {
	binary string

	mu     sync.Mutex
	voices []model.Voice // cached --voices output
}

// NewEspeakSynthesizer creates a synthesizer using the given espeak-ng
// binary path, or "espeak-ng" from PATH when empty.
func NewEspeakSynthesizer(binary string) *EspeakSynthesizer {
	if binary == "" {
		binary = "espeak-ng"
	}
	return &EspeakSynthesizer{binary: binary}
}

// Synthesize renders text to a WAV payload. Prosody options map onto
// espeak-ng flags: rate scales words per minute, pitch and volume scale the
// backend's 0-99 pitch and 0-200 amplitude ranges.
func (s *EspeakSynthesizer) Synthesize(ctx context.Context, text string, opts model.VoiceOptions) (*model.GeneratedAudio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("nothing to synthesize: empty text")
	}

	rate := opts.Rate
	if rate <= 0 {
		rate = defaultRate
	}
	pitch := opts.Pitch
	if pitch <= 0 {
		pitch = defaultPitch
	}
	volume := opts.Volume
	if volume <= 0 {
		volume = defaultVolume
	}

	voiceName, err := s.resolveVoice(opts.VoiceName)
	if err != nil {
		return nil, err
	}

	args := []string{
		"--stdout",
		"-m", // interpret SSML-style markup from the enhancement pass
		"-v", voiceName,
		"-s", strconv.Itoa(int(espeakBaseWPM * rate)),
		"-p", strconv.Itoa(int(50 * pitch)),
		"-a", strconv.Itoa(int(100 * volume)),
	}

	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Stdin = strings.NewReader(EnhanceMeditationText(text))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to run %s: %w (%s)", s.binary, err, strings.TrimSpace(stderr.String()))
	}

	payload := stdout.Bytes()
	if len(payload) == 0 {
		return nil, fmt.Errorf("%s produced no audio", s.binary)
	}

	logger.Debug("Synthesized meditation audio",
		logger.String("voice", voiceName),
		logger.Int("payloadBytes", len(payload)))

	return &model.GeneratedAudio{
		Payload:   payload,
		Duration:  EstimateDuration(text, rate),
		VoiceUsed: voiceName,
	}, nil
}

// resolveVoice returns the requested voice, or the first preferred voice the
// host actually has. With an empty voice list the preference head is used
// untested; espeak-ng ships its base voices everywhere.
func (s *EspeakSynthesizer) resolveVoice(requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}

	available := s.AvailableVoices()
	if len(available) == 0 {
		return preferredVoices[0], nil
	}

	names := make(map[string]bool, len(available))
	for _, v := range available {
		names[v.Name] = true
	}
	for _, candidate := range preferredVoices {
		// Variant suffixes like +f3 are applied on top of a base voice.
		base := candidate
		if i := strings.IndexByte(candidate, '+'); i >= 0 {
			base = candidate[:i]
		}
		if names[base] {
			return candidate, nil
		}
	}
	return "", ErrNoVoiceAvailable
}

// AvailableVoices lists the voices espeak-ng reports, cached after the
// first successful listing.
func (s *EspeakSynthesizer) AvailableVoices() []model.Voice {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.voices != nil {
		return s.voices
	}

	out, err := exec.Command(s.binary, "--voices").Output()
	if err != nil {
		logger.Warn("Failed to list synthesis voices", logger.ErrorField(err))
		return nil
	}

	s.voices = parseVoiceList(string(out))
	return s.voices
}

// parseVoiceList parses `espeak-ng --voices` output. Each data line is
// "Pty Language Age/Gender VoiceName File Other"; the header is skipped.
func parseVoiceList(out string) []model.Voice {
	var voices []model.Voice
	for i, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if i == 0 || len(fields) < 4 {
			continue
		}
		voices = append(voices, model.Voice{
			Name:     fields[3],
			Language: fields[1],
			Quality:  fields[0],
		})
	}
	return voices
}

// EstimateDuration approximates spoken length in seconds from word count at
// a baseline of 120 words per minute, scaled by the speaking rate.
func EstimateDuration(text string, rate float64) int {
	if rate <= 0 {
		rate = defaultRate
	}
	words := len(strings.Fields(text))
	seconds := float64(words) / (120 * rate) * 60
	if seconds < 1 && words > 0 {
		return 1
	}
	return int(seconds)
}

package voice

import (
	"context"
	"errors"

	"Bt1Zen/model"
)

// ErrNoVoiceAvailable is returned when synthesis cannot proceed because no
// usable voice could be resolved, as opposed to the backend failing.
var ErrNoVoiceAvailable = errors.New("no synthesis voice available")

// Synthesizer renders meditation text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts model.VoiceOptions) (*model.GeneratedAudio, error)
	AvailableVoices() []model.Voice
}

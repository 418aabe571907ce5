package transcribe

import (
	"context"
	"errors"

	"voicebudget/internal/audio"
)

// ErrTranscriptionFailed wraps any speech-to-text failure. The pipeline
// treats it as fatal: no transcript means nothing downstream can run.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Transcriber converts recorded audio into plain text. An empty transcript
// is a valid result, not an error; silence is the caller's problem.
type Transcriber interface {
	Transcribe(ctx context.Context, blob *audio.Blob) (string, error)
}

package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNoInputDevice is returned when ffmpeg cannot open a capture device.
// The caller should tell the user to check microphone permissions.
var ErrNoInputDevice = errors.New("no audio input device available")

// Recorder captures microphone audio through ffmpeg. It exists for the
// command-line client; the web app records in the browser and uploads.
type Recorder struct {
	// Device overrides the platform default capture device.
	Device string
	// FFmpegPath overrides the ffmpeg binary looked up on PATH.
	FFmpegPath string
}

// Record captures from the default input device until ctx is cancelled or
// maxSeconds elapses, whichever comes first. The device is always released
// before Record returns: ffmpeg is bounded by -t and killed on ctx cancel.
func (r *Recorder) Record(ctx context.Context, maxSeconds int) (*Blob, error) {
	bin := r.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	format, device := r.inputFor(runtime.GOOS)
	if format == "" {
		return nil, fmt.Errorf("audio capture not supported on %s", runtime.GOOS)
	}

	tmp, err := os.CreateTemp("", "voicebudget-*.wav")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, bin,
		"-y", // overwrite output file without asking
		"-f", format,
		"-i", device,
		"-t", fmt.Sprintf("%d", maxSeconds),
		"-ac", "1", // 1 channel
		"-ar", "16000", // 16 kHz
		"-acodec", "pcm_s16le", // 16-bit little-endian PCM
		tmpPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// ctx cancel is the normal "stop recording" path; keep whatever
		// ffmpeg managed to flush before it died.
		if ctx.Err() == nil {
			if isDeviceError(stderr.String()) {
				return nil, ErrNoInputDevice
			}
			return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, stderr.String())
		}
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("reading recording: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoInputDevice
	}

	return &Blob{
		Data:     data,
		MIME:     "audio/wav",
		Filename: filepath.Base(tmpPath),
	}, nil
}

// inputFor picks the ffmpeg capture backend for the platform.
func (r *Recorder) inputFor(goos string) (format, device string) {
	device = r.Device
	switch goos {
	case "linux":
		if device == "" {
			device = "default"
		}
		return "pulse", device
	case "darwin":
		if device == "" {
			device = ":0"
		}
		return "avfoundation", device
	case "windows":
		if device == "" {
			device = "audio=default"
		}
		return "dshow", device
	}
	return "", ""
}

func isDeviceError(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "no such audio device") ||
		strings.Contains(s, "cannot open audio device") ||
		strings.Contains(s, "device or resource busy") ||
		strings.Contains(s, "input/output error") ||
		strings.Contains(s, "permission denied")
}

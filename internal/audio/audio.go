package audio

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// MaxUploadBytes caps a single audio upload. Whisper rejects files over
// 25MB anyway, so there is no point accepting more.
const MaxUploadBytes = 25 << 20

var (
	ErrNoAudio         = errors.New("no audio file in request")
	ErrAudioTooLarge   = errors.New("audio file too large")
	ErrUnsupportedMIME = errors.New("unsupported audio format")
)

// Blob is an in-memory audio recording ready for transcription.
type Blob struct {
	Data     []byte
	MIME     string
	Filename string
}

var supportedMIME = map[string]bool{
	"audio/webm":  true,
	"audio/ogg":   true,
	"audio/mpeg":  true,
	"audio/mp4":   true,
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/flac":  true,
}

// FromMultipart reads the "audio" file part of a multipart form into a Blob.
// The part's declared content type is trusted only after a sniff of the
// first bytes; browsers are sloppy about audio MIME types.
func FromMultipart(r *http.Request) (*Blob, error) {
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return nil, fmt.Errorf("parsing multipart form: %w", err)
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		return nil, ErrNoAudio
	}
	defer file.Close()

	return fromFile(file, header)
}

func fromFile(file multipart.File, header *multipart.FileHeader) (*Blob, error) {
	if header.Size > MaxUploadBytes {
		return nil, ErrAudioTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading audio upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrAudioTooLarge
	}
	if len(data) == 0 {
		return nil, ErrNoAudio
	}

	mime := normalizeMIME(header.Header.Get("Content-Type"))
	if mime == "" {
		mime = sniffMIME(data)
	}
	if !supportedMIME[mime] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMIME, mime)
	}

	name := filepath.Base(header.Filename)
	if name == "" || name == "." {
		name = "recording" + extensionFor(mime)
	}

	return &Blob{Data: data, MIME: mime, Filename: name}, nil
}

// normalizeMIME strips parameters ("audio/webm;codecs=opus" -> "audio/webm")
// and lowercases the type.
func normalizeMIME(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "application/octet-stream" {
		return ""
	}
	return ct
}

func sniffMIME(data []byte) string {
	switch {
	case len(data) >= 4 && string(data[:4]) == "OggS":
		return "audio/ogg"
	case len(data) >= 4 && string(data[:4]) == "fLaC":
		return "audio/flac"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "audio/wav"
	case len(data) >= 3 && string(data[:3]) == "ID3":
		return "audio/mpeg"
	case len(data) >= 4 && data[0] == 0x1a && data[1] == 0x45 && data[2] == 0xdf && data[3] == 0xa3:
		// EBML header, shared by webm and mkv. Browsers record webm.
		return "audio/webm"
	case len(data) >= 12 && string(data[4:8]) == "ftyp":
		return "audio/mp4"
	}
	return ""
}

func extensionFor(mime string) string {
	switch mime {
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	case "audio/mp4":
		return ".m4a"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/flac":
		return ".flac"
	}
	return ".bin"
}

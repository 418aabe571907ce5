package audio

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

func multipartRequest(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("creating part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/voice/expenses", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestFromMultipart(t *testing.T) {
	webm := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x00, 0x01, 0x02}

	t.Run("declared content type", func(t *testing.T) {
		req := multipartRequest(t, "audio", "note.webm", "audio/webm;codecs=opus", webm)
		blob, err := FromMultipart(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if blob.MIME != "audio/webm" {
			t.Errorf("expected audio/webm, got %s", blob.MIME)
		}
		if blob.Filename != "note.webm" {
			t.Errorf("expected note.webm, got %s", blob.Filename)
		}
		if !bytes.Equal(blob.Data, webm) {
			t.Error("blob data does not match upload")
		}
	})

	t.Run("sniffs octet-stream uploads", func(t *testing.T) {
		ogg := append([]byte("OggS"), 0x00, 0x02)
		req := multipartRequest(t, "audio", "note", "application/octet-stream", ogg)
		blob, err := FromMultipart(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if blob.MIME != "audio/ogg" {
			t.Errorf("expected sniffed audio/ogg, got %s", blob.MIME)
		}
	})

	t.Run("missing audio part", func(t *testing.T) {
		req := multipartRequest(t, "attachment", "note.webm", "audio/webm", webm)
		if _, err := FromMultipart(req); !errors.Is(err, ErrNoAudio) {
			t.Fatalf("expected ErrNoAudio, got %v", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		req := multipartRequest(t, "audio", "note.webm", "audio/webm", nil)
		if _, err := FromMultipart(req); !errors.Is(err, ErrNoAudio) {
			t.Fatalf("expected ErrNoAudio, got %v", err)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		req := multipartRequest(t, "audio", "doc.pdf", "application/pdf", []byte("%PDF-1.4"))
		if _, err := FromMultipart(req); !errors.Is(err, ErrUnsupportedMIME) {
			t.Fatalf("expected ErrUnsupportedMIME, got %v", err)
		}
	})
}

func TestSniffMIME(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"ogg", []byte("OggS\x00\x02junk"), "audio/ogg"},
		{"flac", []byte("fLaC\x00\x00"), "audio/flac"},
		{"wav", []byte("RIFF\x24\x00\x00\x00WAVEfmt "), "audio/wav"},
		{"mp3 with id3", []byte("ID3\x04\x00"), "audio/mpeg"},
		{"webm", []byte{0x1a, 0x45, 0xdf, 0xa3, 0x42}, "audio/webm"},
		{"m4a", []byte("\x00\x00\x00\x20ftypM4A \x00\x00"), "audio/mp4"},
		{"unknown", []byte("hello world"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sniffMIME(tc.data); got != tc.want {
				t.Errorf("sniffMIME = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeMIME(t *testing.T) {
	if got := normalizeMIME("Audio/WebM; codecs=opus"); got != "audio/webm" {
		t.Errorf("expected audio/webm, got %q", got)
	}
	if got := normalizeMIME("application/octet-stream"); got != "" {
		t.Errorf("expected empty for octet-stream, got %q", got)
	}
}

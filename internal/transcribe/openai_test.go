package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"voicebudget/internal/audio"
	"voicebudget/internal/log"
)

func testBlob() *audio.Blob {
	return &audio.Blob{
		Data:     []byte("RIFF....WAVEfake"),
		MIME:     "audio/wav",
		Filename: "note.wav",
	}
}

func TestTranscribe(t *testing.T) {
	var gotAuth, gotModel, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		file.Close()
		if header.Filename != "note.wav" {
			t.Errorf("unexpected filename %s", header.Filename)
		}
		w.Write([]byte("I spent $12.50 on lunch today\n"))
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", srv.URL, "whisper-1", log.New(log.DefaultConfig()))
	transcript, err := client.Transcribe(context.Background(), testBlob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript != "I spent $12.50 on lunch today" {
		t.Errorf("unexpected transcript %q", transcript)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotModel != "whisper-1" {
		t.Errorf("unexpected model %q", gotModel)
	}
	if gotFormat != "text" {
		t.Errorf("unexpected response_format %q", gotFormat)
	}
}

func TestTranscribeEmptyTranscriptIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  \n"))
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", srv.URL, "whisper-1", log.New(log.DefaultConfig()))
	transcript, err := client.Transcribe(context.Background(), testBlob())
	if err != nil {
		t.Fatalf("empty transcript should not error: %v", err)
	}
	if transcript != "" {
		t.Errorf("expected empty transcript, got %q", transcript)
	}
}

func TestTranscribeServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limit"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", srv.URL, "whisper-1", log.New(log.DefaultConfig()))
	_, err := client.Transcribe(context.Background(), testBlob())
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
}

func TestTranscribeConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewOpenAIClient("sk-test", srv.URL, "whisper-1", log.New(log.DefaultConfig()))
	_, err := client.Transcribe(context.Background(), testBlob())
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"voicebudget/internal/audio"
)

// voicebudget-record captures a voice memo with ffmpeg and submits it to a
// running voicebudget server. Stop recording early with Ctrl+C; the partial
// capture is still uploaded.
func main() {
	_ = godotenv.Load()

	var (
		server  = flag.String("server", envOr("VOICEBUDGET_SERVER", "http://localhost:8082"), "voicebudget server base URL")
		token   = flag.String("token", os.Getenv("VOICEBUDGET_TOKEN"), "API token (or VOICEBUDGET_TOKEN)")
		seconds = flag.Int("seconds", 30, "maximum recording length in seconds")
		device  = flag.String("device", "", "capture device override (platform specific)")
		file    = flag.String("file", "", "upload an existing audio file instead of recording")
	)
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "missing API token: pass -token or set VOICEBUDGET_TOKEN")
		os.Exit(2)
	}

	blob, err := capture(*file, *device, *seconds)
	if err != nil {
		fmt.Fprintln(os.Stderr, "recording failed:", err)
		os.Exit(1)
	}

	status, body, err := submit(*server, *token, blob)
	if err != nil {
		fmt.Fprintln(os.Stderr, "upload failed:", err)
		os.Exit(1)
	}

	printResult(status, body)
	if status >= 400 {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func capture(file, device string, seconds int) (*audio.Blob, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		return &audio.Blob{Data: data, Filename: file}, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "recording (max %ds, Ctrl+C to stop)...\n", seconds)
	rec := &audio.Recorder{Device: device}
	return rec.Record(ctx, seconds)
}

func submit(server, token string, blob *audio.Blob) (int, []byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, blob.Filename))
	if blob.MIME != "" {
		h.Set("Content-Type", blob.MIME)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return 0, nil, err
	}
	if _, err := part.Write(blob.Data); err != nil {
		return 0, nil, err
	}
	if err := mw.Close(); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, server+"/api/voice/expenses", &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

func printResult(status int, body []byte) {
	var res struct {
		Transcript   string `json:"transcript"`
		RejectReason string `json:"reject_reason"`
		Error        string `json:"error"`
		Expense      *struct {
			ID          string  `json:"id"`
			Amount      float64 `json:"amount"`
			Category    string  `json:"category"`
			Description string  `json:"description"`
		} `json:"expense"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		fmt.Printf("HTTP %d\n%s\n", status, body)
		return
	}

	if res.Transcript != "" {
		fmt.Println("transcript:", res.Transcript)
	}
	switch {
	case res.Expense != nil:
		fmt.Printf("recorded: $%.2f %s (%s) [%s]\n",
			res.Expense.Amount, res.Expense.Description, res.Expense.Category, res.Expense.ID)
	case res.RejectReason != "":
		fmt.Println("rejected:", res.RejectReason)
	case res.Error != "":
		fmt.Printf("failed (HTTP %d): %s\n", status, res.Error)
	default:
		fmt.Printf("HTTP %d\n%s\n", status, body)
	}
}

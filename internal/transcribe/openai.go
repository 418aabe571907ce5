package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"voicebudget/internal/audio"
	"voicebudget/internal/log"
)

// OpenAIClient sends audio to an OpenAI-compatible /audio/transcriptions
// endpoint and returns the transcript as plain text.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *log.Logger
}

func NewOpenAIClient(apiKey, baseURL, model string, logger *log.Logger) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        logger.WithComponent(log.ComponentTranscribe),
	}
}

// Transcribe uploads the blob as a multipart form. response_format=text
// makes the API return the raw transcript body with no JSON envelope.
func (c *OpenAIClient) Transcribe(ctx context.Context, blob *audio.Blob) (string, error) {
	start := time.Now()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, blob.Filename))
	header.Set("Content-Type", blob.MIME)
	part, err := w.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("%w: building multipart form: %v", ErrTranscriptionFailed, err)
	}
	if _, err := part.Write(blob.Data); err != nil {
		return "", fmt.Errorf("%w: writing audio part: %v", ErrTranscriptionFailed, err)
	}
	if err := w.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("%w: writing model field: %v", ErrTranscriptionFailed, err)
	}
	if err := w.WriteField("response_format", "text"); err != nil {
		return "", fmt.Errorf("%w: writing format field: %v", ErrTranscriptionFailed, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: closing multipart form: %v", ErrTranscriptionFailed, err)
	}

	endpoint := c.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", ErrTranscriptionFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.ErrorContext(ctx, "transcription request failed",
			log.FieldError, err.Error(),
			log.FieldModel, c.model)
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrTranscriptionFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.ErrorContext(ctx, "transcription service returned error",
			log.FieldStatusCode, resp.StatusCode,
			log.FieldModel, c.model,
			"body", truncate(string(body), 500))
		return "", fmt.Errorf("%w: status %d", ErrTranscriptionFailed, resp.StatusCode)
	}

	transcript := strings.TrimSpace(string(body))
	c.log.InfoContext(ctx, "transcription completed",
		log.FieldModel, c.model,
		log.FieldTranscriptLen, len(transcript),
		log.FieldDuration, time.Since(start).Milliseconds())

	return transcript, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

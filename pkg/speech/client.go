package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Segment is one ordered result from the transcription service, already
// reduced to its best alternative.
type Segment struct {
	Transcript string
	Confidence float64
}

// Recognizer is the capability the transcription stage depends on. The
// service behind it is a black box: one synchronous call per object URI.
type Recognizer interface {
	Recognize(ctx context.Context, uri string) ([]Segment, error)
}

// Config identifies the recognizer resource and its fixed recognition
// settings.
type Config struct {
	Endpoint   string
	Recognizer string
	Language   string
	Model      string
	Timeout    time.Duration
}

// Client talks to the speech service over its JSON recognize endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient constructs a speech client with a bounded request timeout.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type recognizeRequest struct {
	Recognizer string            `json:"recognizer"`
	Config     recognitionConfig `json:"config"`
	URI        string            `json:"uri"`
}

type recognitionConfig struct {
	// AutoDecodingConfig asks the service to detect the encoding itself.
	AutoDecodingConfig struct{}            `json:"autoDecodingConfig"`
	LanguageCodes      []string            `json:"languageCodes"`
	Model              string              `json:"model"`
	Features           recognitionFeatures `json:"features"`
}

type recognitionFeatures struct {
	EnableAutomaticPunctuation bool `json:"enableAutomaticPunctuation"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Recognize transcribes the object at uri and returns the ordered result
// segments. Results without alternatives are skipped.
func (c *Client) Recognize(ctx context.Context, uri string) ([]Segment, error) {
	payload, err := json.Marshal(recognizeRequest{
		Recognizer: c.cfg.Recognizer,
		Config: recognitionConfig{
			LanguageCodes: []string{c.cfg.Language},
			Model:         c.cfg.Model,
			Features:      recognitionFeatures{EnableAutomaticPunctuation: true},
		},
		URI: uri,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal recognize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build recognize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognize call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("recognize call: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var decoded recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode recognize response: %w", err)
	}

	segments := make([]Segment, 0, len(decoded.Results))
	for _, result := range decoded.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		top := result.Alternatives[0]
		segments = append(segments, Segment{Transcript: top.Transcript, Confidence: top.Confidence})
	}
	return segments, nil
}

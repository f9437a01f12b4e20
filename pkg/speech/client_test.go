package speech

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:   endpoint,
		Recognizer: "recognizers/discovery-recognizer",
		Language:   "en-US",
		Model:      "long",
	}
}

func TestRecognizeSendsFixedConfiguration(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	if _, err := c.Recognize(t.Context(), "s3://discovery-raw/caseA/interview.wav"); err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	if captured["recognizer"] != "recognizers/discovery-recognizer" {
		t.Fatalf("recognizer = %v", captured["recognizer"])
	}
	if captured["uri"] != "s3://discovery-raw/caseA/interview.wav" {
		t.Fatalf("uri = %v", captured["uri"])
	}
	cfg, _ := captured["config"].(map[string]any)
	if cfg == nil {
		t.Fatal("request missing config")
	}
	if _, ok := cfg["autoDecodingConfig"]; !ok {
		t.Fatal("config missing autoDecodingConfig")
	}
	if cfg["model"] != "long" {
		t.Fatalf("model = %v", cfg["model"])
	}
	langs, _ := cfg["languageCodes"].([]any)
	if len(langs) != 1 || langs[0] != "en-US" {
		t.Fatalf("languageCodes = %v", cfg["languageCodes"])
	}
	features, _ := cfg["features"].(map[string]any)
	if features["enableAutomaticPunctuation"] != true {
		t.Fatalf("features = %v", cfg["features"])
	}
}

func TestRecognizeReturnsTopAlternatives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []any{
				map[string]any{"alternatives": []any{
					map[string]any{"transcript": "First segment.", "confidence": 0.95},
					map[string]any{"transcript": "First sediment.", "confidence": 0.40},
				}},
				map[string]any{"alternatives": []any{}},
				map[string]any{"alternatives": []any{
					map[string]any{"transcript": "Second segment.", "confidence": 0.90},
				}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	segments, err := c.Recognize(t.Context(), "s3://b/a.wav")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2 (empty alternatives skipped)", len(segments))
	}
	if segments[0].Transcript != "First segment." || segments[1].Transcript != "Second segment." {
		t.Fatalf("segments = %+v, order or alternative selection wrong", segments)
	}
}

func TestRecognizeEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	segments, err := c.Recognize(t.Context(), "s3://b/silence.wav")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(segments) != 0 {
		t.Fatalf("segments = %d, want 0", len(segments))
	}
}

func TestRecognizeSurfacesServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "recognizer not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	if _, err := c.Recognize(t.Context(), "s3://b/a.wav"); err == nil {
		t.Fatal("Recognize succeeded, want service error")
	}
}

package transcription

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// DeepgramEngine is an alternate Engine implementation against Deepgram's
// prerecorded REST endpoint, swappable in for WhisperHTTPEngine behind the
// same Engine contract (§4.4's "STT engine contract" names this as a
// drop-in alternate).
type DeepgramEngine struct {
	client *resty.Client
	apiKey string
}

// NewDeepgramEngine constructs a Deepgram REST-backed Engine.
func NewDeepgramEngine(apiKey string) *DeepgramEngine {
	return &DeepgramEngine{client: resty.New(), apiKey: apiKey}
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe posts raw linear16 PCM to Deepgram's /v1/listen endpoint.
func (e *DeepgramEngine) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	var result deepgramResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Token "+e.apiKey).
		SetHeader("Content-Type", "audio/l16").
		SetQueryParams(map[string]string{
			"encoding":    "linear16",
			"sample_rate": fmt.Sprintf("%d", sampleRate),
			"channels":    "1",
		}).
		SetBody(pcm).
		SetResult(&result).
		Post("https://api.deepgram.com/v1/listen")
	if err != nil {
		return "", fmt.Errorf("deepgram request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("deepgram returned status %d", resp.StatusCode())
	}
	if len(result.Results.Channels) == 0 || len(result.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return result.Results.Channels[0].Alternatives[0].Transcript, nil
}

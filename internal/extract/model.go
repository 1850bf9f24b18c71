package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/beli-buzz/backend/internal/models"
)

// maxPromptChars bounds how much of a post is sent to the model.
const maxPromptChars = 1800

const promptTemplate = `[INST]
You are a culinary trends analyst focused on Toronto restaurants.
Read the text between <post></post> tags and extract every restaurant mentioned.
Respond with ONLY a JSON array. Each object must contain:
- "name": restaurant name
- "sentiment": number from 0-10 (float allowed)
- "summary": max 12 words describing the vibe
If no restaurants are present return []. Avoid commentary.
<post>
%s
</post>
[/INST]`

// ModelExtractor calls a hosted-inference endpoint with a fixed prompt and
// parses the constrained JSON output. The endpoint is treated as an
// untrusted text generator: malformed entries are discarded, and only a
// fully unusable response fails the item.
type ModelExtractor struct {
	endpoint string
	apiKey   string
	client   *http.Client

	// fallback handles items the model could not parse, when configured.
	fallback Extractor
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	ReturnFullText bool    `json:"return_full_text"`
	Temperature    float64 `json:"temperature"`
}

type inferenceResponse []struct {
	GeneratedText string `json:"generated_text"`
}

// NewModelExtractor builds the model-backed strategy. fallback may be nil.
func NewModelExtractor(endpoint, apiKey string, timeout time.Duration, fallback Extractor) *ModelExtractor {
	return &ModelExtractor{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		fallback: fallback,
	}
}

// Extract sends the item text to the inference endpoint and validates the
// returned triples.
func (e *ModelExtractor) Extract(ctx context.Context, item models.RawItem) ([]models.Mention, error) {
	text := item.Text
	if len(text) > maxPromptChars {
		cut := maxPromptChars
		// Back up to a rune boundary so the trim never splits a multi-byte
		// character.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	payload, err := json.Marshal(inferenceRequest{
		Inputs: fmt.Sprintf(promptTemplate, text),
		Parameters: inferenceParameters{
			MaxNewTokens:   500,
			ReturnFullText: false,
			Temperature:    0.1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return e.degrade(ctx, item, fmt.Errorf("call inference endpoint: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return e.degrade(ctx, item, fmt.Errorf("inference endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var parsed inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return e.degrade(ctx, item, fmt.Errorf("%w: decode response: %v", ErrMalformed, err))
	}
	if len(parsed) == 0 {
		return e.degrade(ctx, item, fmt.Errorf("%w: empty response", ErrMalformed))
	}

	candidates, err := parseTriples(parsed[0].GeneratedText)
	if err != nil {
		return e.degrade(ctx, item, err)
	}
	return sanitize(candidates, item.SourceID), nil
}

// degrade hands the item to the fallback strategy when one is configured.
func (e *ModelExtractor) degrade(ctx context.Context, item models.RawItem, cause error) ([]models.Mention, error) {
	if e.fallback == nil {
		return nil, cause
	}
	return e.fallback.Extract(ctx, item)
}

// parseTriples pulls the first JSON array out of generated text and decodes
// each entry, skipping the ones that do not fit the triple shape.
func parseTriples(blob string) ([]candidate, error) {
	start := strings.Index(blob, "[")
	end := strings.LastIndex(blob, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array in output", ErrMalformed)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(blob[start:end+1]), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	candidates := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		var c candidate
		if err := json.Unmarshal(entry, &c); err != nil {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

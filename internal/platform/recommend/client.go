// Package recommend produces medicine alternative recommendations through
// the Groq chat-completions API, with a cache in front and a deterministic
// fallback when the API is unconfigured or unavailable.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.groq.com/openai/v1/chat/completions"

// PatientInfo is the optional patient context attached to a request.
type PatientInfo struct {
	Age                int      `json:"age,omitempty"`
	Allergies          []string `json:"allergies,omitempty"`
	Comorbidities      []string `json:"comorbidities,omitempty"`
	CurrentMedications []string `json:"current_medications,omitempty"`
}

// Alternative is a suggested substitute medicine.
type Alternative struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}

// Warning flags a contraindication or risk for the patient.
type Warning struct {
	Condition string `json:"condition"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
}

// Recommendation is the structured response returned to callers.
type Recommendation struct {
	Alternatives []Alternative `json:"alternatives"`
	Warnings     []Warning     `json:"warnings"`
	Suggestion   string        `json:"suggestion"`
	Cached       bool          `json:"cached"`
	Mock         bool          `json:"mock,omitempty"`
}

// Client calls the recommendation model, consulting the cache first.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	cache   Cache
	logger  zerolog.Logger
}

func NewClient(apiKey, model string, cache Cache, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		cache:   cache,
		logger:  logger,
	}
}

// CacheKey builds a deterministic cache key from the medicine name and
// patient context.
func CacheKey(medicine string, info PatientInfo) string {
	var b strings.Builder
	b.WriteString("med_rec:")
	b.WriteString(strings.ToLower(strings.TrimSpace(medicine)))
	b.WriteString(fmt.Sprintf(":age=%d", info.Age))
	for _, list := range [][]string{info.Allergies, info.Comorbidities, info.CurrentMedications} {
		sorted := append([]string(nil), list...)
		sort.Strings(sorted)
		b.WriteString(":" + strings.Join(sorted, ","))
	}
	return b.String()
}

// Recommend returns alternatives and warnings for the given medicine. A
// cached response is returned when available. When the API key is missing or
// the upstream call fails, a deterministic mock is returned instead of an
// error so callers always get a usable response.
func (c *Client) Recommend(ctx context.Context, medicine string, info PatientInfo) (*Recommendation, error) {
	medicine = strings.TrimSpace(medicine)
	if medicine == "" {
		return nil, fmt.Errorf("medicine name is required")
	}

	key := CacheKey(medicine, info)
	if cached, ok := c.cache.Get(key); ok {
		var rec Recommendation
		if err := json.Unmarshal([]byte(cached), &rec); err == nil {
			rec.Cached = true
			return &rec, nil
		}
	}

	var rec *Recommendation
	if c.apiKey == "" {
		c.logger.Debug().Str("medicine", medicine).Msg("no api key configured, using mock recommendation")
		rec = mockRecommendation(medicine, info)
	} else {
		upstream, err := c.callUpstream(ctx, medicine, info)
		if err != nil {
			c.logger.Warn().Err(err).Str("medicine", medicine).Msg("recommendation upstream failed, using mock")
			rec = mockRecommendation(medicine, info)
		} else {
			rec = upstream
		}
	}

	if data, err := json.Marshal(rec); err == nil {
		c.cache.Set(key, string(data))
	}
	return rec, nil
}

// ClearCache drops all cached recommendations.
func (c *Client) ClearCache() {
	c.cache.Clear()
}

// CacheStats reports cache effectiveness.
func (c *Client) CacheStats() CacheStats {
	return c.cache.Stats()
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat respFormat    `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const systemPrompt = `You are a clinical pharmacology assistant. Given a medicine
name and patient context, respond with a JSON object containing three keys:
"alternatives" (array of {name, reason, notes}), "warnings" (array of
{condition, message, severity}) and "suggestion" (string). Base warnings on
the patient's age, allergies, comorbidities and current medications. This is
informational only and must recommend consulting a healthcare professional.`

func (c *Client) callUpstream(ctx context.Context, medicine string, info PatientInfo) (*Recommendation, error) {
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encode patient info: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Provide medicine recommendations for %s. Patient context: %s", medicine, infoJSON)},
		},
		Temperature:    0.3,
		MaxTokens:      2000,
		ResponseFormat: respFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call chat completions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat completions returned status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("chat completions returned no choices")
	}

	var rec Recommendation
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &rec); err != nil {
		return nil, fmt.Errorf("decode recommendation content: %w", err)
	}
	if rec.Suggestion == "" {
		rec.Suggestion = "Please consult a healthcare professional."
	}
	return &rec, nil
}

// mockRecommendation generates a deterministic response used in development
// and when the upstream is unavailable.
func mockRecommendation(medicine string, info PatientInfo) *Recommendation {
	rec := &Recommendation{
		Mock: true,
		Alternatives: []Alternative{
			{Name: "Ibuprofen", Reason: fmt.Sprintf("Similar therapeutic effect to %s", medicine), Notes: "Active ingredient: Ibuprofen"},
			{Name: "Aspirin", Reason: fmt.Sprintf("Similar therapeutic effect to %s", medicine), Notes: "Active ingredient: Acetylsalicylic acid"},
		},
	}

	if len(info.Allergies) > 0 {
		rec.Warnings = append(rec.Warnings, Warning{
			Condition: "Known allergies",
			Message:   fmt.Sprintf("Patient has allergies to: %s. Verify no cross-reactivity.", strings.Join(info.Allergies, ", ")),
			Severity:  "HIGH",
		})
	}
	switch {
	case info.Age > 0 && info.Age < 12:
		rec.Warnings = append(rec.Warnings, Warning{
			Condition: "Pediatric patient",
			Message:   "Dosage adjustment required for pediatric patients",
			Severity:  "HIGH",
		})
	case info.Age > 65:
		rec.Warnings = append(rec.Warnings, Warning{
			Condition: "Elderly patient",
			Message:   "Consider reduced dosage for elderly patients",
			Severity:  "MODERATE",
		})
	}

	rec.Suggestion = fmt.Sprintf(
		"Based on the available data, there are %d alternative medicines for %s. "+
			"Please consult with a healthcare professional before making any changes to medication. "+
			"This recommendation is for informational purposes only.",
		len(rec.Alternatives), medicine)
	return rec
}

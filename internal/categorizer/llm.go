package categorizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/spendlens/spendlens/internal/categories"
	"github.com/spendlens/spendlens/internal/domain"
)

// DefaultModelName is the Gemini model used for categorization fallback.
const DefaultModelName = "gemini-2.0-flash"

// fallbackConfidence is reported whenever the model cannot be consulted or
// its answer cannot be trusted.
const fallbackConfidence = 0.3

// rawTextLimit caps how much of the raw message is sent to the model.
const rawTextLimit = 250

// Gemini is the LLM categorizer. It expects the model to return strict JSON
// with a category from the closed set; anything else is coerced to OTHER.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini categorizer. Credentials come from the
// environment (GOOGLE_API_KEY or application default credentials), same as
// the rest of the GenAI client surface.
func NewGemini(ctx context.Context) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	return &Gemini{client: client, model: DefaultModelName}, nil
}

// llmAnswer is the JSON shape the prompt instructs the model to return.
type llmAnswer struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Categorize implements Categorizer by asking Gemini to classify the
// transaction. Errors are returned to the caller, which falls back to OTHER.
func (g *Gemini) Categorize(ctx context.Context, merchant string, amount float64, rawText string, txType domain.TransactionType) (Result, error) {
	prompt := buildPrompt(merchant, amount, rawText, txType)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return Result{}, fmt.Errorf("Gemini.Categorize: generate content: %w", err)
	}

	rawAnswer := resp.Text()
	if rawAnswer == "" {
		return Result{}, fmt.Errorf("Gemini.Categorize: empty response from model")
	}

	var answer llmAnswer
	if err := json.Unmarshal([]byte(cleanModelJSON(rawAnswer)), &answer); err != nil {
		return Result{}, fmt.Errorf("Gemini.Categorize: unmarshal JSON: %w\nraw response: %s", err, rawAnswer)
	}

	res := Result{
		Category:   categories.Coerce(answer.Category),
		Confidence: answer.Confidence,
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		res.Confidence = fallbackConfidence
	}
	return res, nil
}

func buildPrompt(merchant string, amount float64, rawText string, txType domain.TransactionType) string {
	labels := make([]string, 0, len(categories.All()))
	for _, c := range categories.All() {
		labels = append(labels, string(c))
	}
	labelList := strings.Join(labels, ", ")

	if merchant == "" {
		merchant = "Unknown"
	}
	if rawText == "" {
		rawText = "N/A"
	} else if len(rawText) > rawTextLimit {
		rawText = rawText[:rawTextLimit]
	}

	return "You are an expert financial transaction classifier.\n\n" +
		"Classify the following transaction into ONE category:\n" +
		labelList + "\n\n" +
		"Return STRICT JSON in this format:\n" +
		"{\n" +
		"  \"category\": \"...\",\n" +
		"  \"confidence\": 0.0 to 1.0,\n" +
		"  \"reasoning\": \"...\"\n" +
		"}\n\n" +
		"Transaction details:\n" +
		fmt.Sprintf("Merchant: %s\n", merchant) +
		fmt.Sprintf("Amount: %.2f\n", amount) +
		fmt.Sprintf("Type: %s\n", txType) +
		fmt.Sprintf("Message: %s\n\n", rawText) +
		"Rules:\n" +
		"- Category must be one of: " + labelList + "\n" +
		"- If uncertain, choose \"OTHER\" with confidence < 0.5.\n" +
		"- Return ONLY valid raw JSON, no code fences, no Markdown.\n"
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the strict-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost JSON object if junk remains around it.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

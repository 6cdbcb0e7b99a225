package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sdiabate1337/djula-com-sub000/internal/provider"
	"github.com/Sdiabate1337/djula-com-sub000/pkg/message"
)

// historyWindow is the number of recent turns embedded in a
// classification request.
const historyWindow = 5

// ClassifyInput carries the conversational context for one resolution.
type ClassifyInput struct {
	Text         string
	History      []message.Message
	OrderSummary string
	Language     string
	Flags        Flags
}

// Resolver resolves inbound messages to Intents. The deterministic path
// never does I/O; the model path degrades to Unknown on any failure and
// never returns an error to its caller.
type Resolver struct {
	provider provider.Provider
	logger   *slog.Logger
}

// NewResolver creates a Resolver. provider may be nil, in which case
// non-interactive messages resolve to Unknown.
func NewResolver(p provider.Provider, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{provider: p, logger: logger.With("component", "intent")}
}

// Resolve turns one inbound message into an Intent.
func (r *Resolver) Resolve(ctx context.Context, in ClassifyInput) Intent {
	if it, ok := ParseInteractive(in.Text, in.Flags); ok {
		return it
	}
	return r.classify(ctx, in)
}

// classificationResult is the JSON shape expected from the model.
// Parameters values are accepted as any and coerced to strings; structured
// output from the service is never trusted without validation.
type classificationResult struct {
	Type       string         `json:"type"`
	Confidence float64        `json:"confidence"`
	Parameters map[string]any `json:"parameters"`
}

func (r *Resolver) classify(ctx context.Context, in ClassifyInput) Intent {
	if r.provider == nil {
		return unknown(0.3, in.Flags)
	}

	req := provider.CompletionRequest{
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleSystem, Content: classifierSystemPrompt()},
			{Role: provider.MessageRoleUser, Content: buildClassifierPrompt(in)},
		},
		MaxTokens: 256,
		JSONMode:  true,
	}

	resp, err := r.provider.Complete(ctx, req)
	if err != nil {
		r.logger.Warn("classification call failed, degrading to unknown", "error", err)
		return unknown(0.3, in.Flags)
	}

	var result classificationResult
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &result); err != nil {
		r.logger.Warn("classification response unparsable, degrading to unknown", "error", err)
		return unknown(0.3, in.Flags)
	}

	return sanitize(result, in.Flags)
}

// sanitize validates the model output against the taxonomy and clamps the
// confidence into [0,1]. An out-of-taxonomy type degrades to Unknown with
// confidence 0.5 (the model answered, just not usably).
func sanitize(res classificationResult, flags Flags) Intent {
	t := Type(strings.ToUpper(strings.TrimSpace(res.Type)))
	if !t.Valid() {
		return unknown(0.5, flags)
	}

	conf := res.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	var params map[string]string
	if len(res.Parameters) > 0 {
		params = make(map[string]string, len(res.Parameters))
		for k, v := range res.Parameters {
			switch val := v.(type) {
			case string:
				params[k] = val
			case float64:
				params[k] = strings.TrimSuffix(fmt.Sprintf("%g", val), ".0")
			case bool:
				params[k] = fmt.Sprintf("%t", val)
			}
		}
	}

	return Intent{Type: t, Confidence: conf, Parameters: params, Flags: flags}
}

func classifierSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You classify customer messages sent to a shop into exactly one intent type.\n")
	b.WriteString("Allowed types: ")
	for i, t := range All {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(t))
	}
	b.WriteString(".\nRespond with a JSON object: ")
	b.WriteString(`{"type": "...", "confidence": 0.0-1.0, "parameters": {...}}`)
	b.WriteString("\nExtract parameters such as productId, category, orderId, method when present.")
	return b.String()
}

func buildClassifierPrompt(in ClassifyInput) string {
	var b strings.Builder

	history := in.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}

	if in.OrderSummary != "" {
		fmt.Fprintf(&b, "Current order: %s\n", in.OrderSummary)
	}
	if in.Language != "" {
		fmt.Fprintf(&b, "Customer language: %s\n", in.Language)
	}
	if in.Flags.PreviousIntentType != "" {
		fmt.Fprintf(&b, "Previous intent: %s\n", in.Flags.PreviousIntentType)
	}

	fmt.Fprintf(&b, "\nMessage to classify: %s", in.Text)
	return b.String()
}

// extractJSON trims any prose around the first top-level JSON object.
// Some models wrap structured output in markdown fences despite JSON mode.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

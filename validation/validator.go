// Package validation implements the advisory AI authenticity check on
// submitted road-damage imagery. The gate never blocks a submission: any
// failure of the external model call degrades to a valid verdict with a
// fixed fallback reason.
package validation

import (
	"context"
	"strings"

	"github.com/apex/log"
	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = `You are an expert civil engineer and AI auditor for road damage. Analyze the provided image for road-related issues like potholes, cracks, or manhole problems. Respond with "VALID" if it contains genuine road damage, or "INVALID" if it is irrelevant, fake, or not related to road safety. Also provide a brief reason.`

const userPrompt = "Validate this image for road damage."

// FallbackReason is returned when the model call fails
const FallbackReason = "AI validation temporarily unavailable"

// Confidence scores attached to reports for each verdict
const (
	ScoreValid   = 0.85
	ScoreInvalid = 0.15
)

// Result is the gate's verdict on a single image
type Result struct {
	IsValid bool    `json:"is_valid"`
	Reason  string  `json:"reason"`
	Score   float64 `json:"score"`
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Validator calls the OpenAI vision endpoint to judge report imagery
type Validator struct {
	client chatCompleter
	model  string
}

// NewValidator creates a validator backed by the OpenAI API
func NewValidator(apiKey, model string) *Validator {
	return &Validator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Validate judges a single image URL. It never returns an error: failures
// of the external call fail open with FallbackReason.
func (v *Validator) Validate(ctx context.Context, imageURL string) Result {
	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: userPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: imageURL,
						},
					},
				},
			},
		},
		MaxTokens: 200,
	})
	if err != nil {
		log.Warnf("AI validation call failed, failing open: %v", err)
		return Result{IsValid: true, Reason: FallbackReason, Score: ScoreValid}
	}

	if len(resp.Choices) == 0 {
		log.Warn("AI validation returned no choices, failing open")
		return Result{IsValid: true, Reason: FallbackReason, Score: ScoreValid}
	}

	text := resp.Choices[0].Message.Content
	isValid := strings.Contains(strings.ToUpper(text), "VALID")

	score := ScoreInvalid
	if isValid {
		score = ScoreValid
	}
	return Result{IsValid: isValid, Reason: text, Score: score}
}

package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/karenbot/karen/internal/models"
)

const systemPrompt = `You are Karen, the friendly SMS secretary for a small handyman business.
Reply to the customer's latest message in one or two short sentences, like a text message.
Be warm and concrete: gather what work is needed, offer to schedule, confirm times.
Never promise a price. For emergencies, say a human is being alerted immediately.`

// GPTResponder asks a chat model for Karen's reply and falls back to the
// canned templates whenever the API call fails or returns nothing usable.
type GPTResponder struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	fallback    Responder
	logger      *zap.Logger
}

func NewGPTResponder(apiKey string, model string, maxTokens int, temperature float64, logger *zap.Logger) *GPTResponder {
	return &GPTResponder{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		fallback:    NewTemplateResponder(),
		logger:      logger,
	}
}

func (r *GPTResponder) Reply(ctx context.Context, summary *models.ContextSummary, msgType models.MessageType) (string, error) {
	resp, err := r.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: r.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: buildPrompt(summary, msgType),
				},
			},
			MaxTokens:   r.maxTokens,
			Temperature: float32(r.temperature),
		},
	)

	if err != nil {
		r.logger.Error("Failed to get GPT reply", zap.Error(err))
		return r.fallback.Reply(ctx, summary, msgType)
	}

	if len(resp.Choices) == 0 {
		r.logger.Error("GPT reply had no choices")
		return r.fallback.Reply(ctx, summary, msgType)
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		r.logger.Error("GPT reply was empty")
		return r.fallback.Reply(ctx, summary, msgType)
	}
	return reply, nil
}

// buildPrompt turns the conversation summary into the model's user turn.
func buildPrompt(summary *models.ContextSummary, msgType models.MessageType) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The customer's latest message was classified as %q.\n", msgType)
	b.WriteString(summary.ConversationSummary)
	b.WriteString("\n\nWrite Karen's next reply.")
	return b.String()
}

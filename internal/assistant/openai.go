// Package assistant generates conversation starters with an OpenAI chat model.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gallan_chat/internal/config"
	"gallan_chat/internal/domain"
	"gallan_chat/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
)

// promptMessages is how many of the most recent messages go into the prompt.
const promptMessages = 3

const systemPrompt = `You help users of a messaging app for a Muslim community write the first line of a message.
Suggest 5 short openers (under 80 characters each) that fit the people and the recent conversation.
Lean towards religious and scholarly topics when the contact is a scholar.
Give each opener one category: "greeting", "question", "religious" or "general".
Do not use placeholders such as [topic]; be concrete.
Reply with a JSON object: {"starters": [{"text": "...", "category": "greeting"}]}`

type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     logger.Logger
}

func NewOpenAIGenerator(cfg config.StartersConfig, log logger.Logger) *OpenAIGenerator {
	return NewOpenAIGeneratorWithClient(openai.NewClient(cfg.OpenAIAPIKey), cfg.Model, cfg.Timeout, log)
}

func NewOpenAIGeneratorWithClient(client *openai.Client, model string, timeout time.Duration, log logger.Logger) *OpenAIGenerator {
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIGenerator{
		client:  client,
		model:   model,
		timeout: timeout,
		log:     log,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, sc *domain.StarterContext) ([]domain.ConversationStarter, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(sc)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	starters, err := parseStarters(resp.Choices[0].Message.Content)
	if err != nil {
		g.log.Warn("Unparseable starter response", "error", err, "model", g.model)
		return nil, err
	}
	return starters, nil
}

func buildPrompt(sc *domain.StarterContext) string {
	var b strings.Builder

	if sc.Requester != nil {
		fmt.Fprintf(&b, "I am %s.", sc.Requester.DisplayName)
		if sc.Requester.Status != "" {
			fmt.Fprintf(&b, " My status: %q.", sc.Requester.Status)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "I am writing to %s.", sc.Counterpart.DisplayName)
	if sc.Counterpart.Status != "" {
		fmt.Fprintf(&b, " Their status: %q.", sc.Counterpart.Status)
	}
	if sc.Counterpart.IsScholar {
		b.WriteString(" They are an Islamic scholar.")
	}
	b.WriteString("\n")

	recent := sc.RecentMessages
	if len(recent) > promptMessages {
		recent = recent[len(recent)-promptMessages:]
	}
	if len(recent) == 0 {
		b.WriteString("We have not talked yet.\n")
		return b.String()
	}

	b.WriteString("Our latest messages:\n")
	for _, m := range recent {
		who := sc.Counterpart.DisplayName
		if sc.Requester != nil && m.SenderID == sc.Requester.ID {
			who = "Me"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, m.Content)
	}
	return b.String()
}

// parseStarters accepts {"starters": [...]} or a bare array.
func parseStarters(content string) ([]domain.ConversationStarter, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty response")
	}

	var starters []domain.ConversationStarter
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &starters); err != nil {
			return nil, fmt.Errorf("decode starters: %w", err)
		}
		return starters, nil
	}

	var wrapped struct {
		Starters []domain.ConversationStarter `json:"starters"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, fmt.Errorf("decode starters: %w", err)
	}
	return wrapped.Starters, nil
}

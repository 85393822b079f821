// Package llm defines the single capability interface behind which every
// language-model-backed operation (recommendation, draft generation,
// NL-query routing) lives, so C8-C12 never depend on a concrete vendor
// SDK (spec §9 Design Notes).
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/securizon/pkg/models"
)

var ErrUnavailable = errors.New("language model adapter unavailable")

type RecommendRequest struct {
	Ticket    *models.Ticket
	Analytics *models.CustomerAnalytics
	Urgency   models.UrgencyClassification
	Priority  models.PriorityDecision
	History   []models.TicketMessage
	KBContext []string
}

type RecommendResult struct {
	Actions         []models.RecommendedAction
	TalkingPoints   []string
	Warnings        []string
	EstimatedImpact string
}

type DraftOptions struct {
	Tone         string `json:"tone"`
	Length       string `json:"length"`
	IncludeOffer bool   `json:"include_offer"`
	Template     string `json:"template"`
}

type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

type RouteResult struct {
	ToolName   string
	Parameters map[string]interface{}
	FreeText   string // set when the adapter answered in plain text, not a tool call
}

// Adapter is the single capability interface consumed by C9 (draft
// generation) and C12 (NL-query routing). Implementations MUST NOT
// invent coupon codes, order numbers, tracking numbers, or promises of
// specific discounts, and MUST use only literal product names supplied
// in the provided history.
type Adapter interface {
	Recommend(ctx context.Context, req RecommendRequest) (*RecommendResult, error)
	Draft(ctx context.Context, req RecommendRequest, opts DraftOptions) (*models.DraftResponse, error)
	RouteQuery(ctx context.Context, question string, tools []ToolSpec) (*RouteResult, error)
}

type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{client: openai.NewClient(apiKey), model: openai.GPT4}
}

const guardrails = `Do not invent coupon codes, order numbers, or tracking numbers, and do not promise specific discounts. Use only literal product names from the provided history. For category questions requiring manufacturer detail, suggest the manufacturer's resource.`

func (a *OpenAIAdapter) Recommend(ctx context.Context, req RecommendRequest) (*RecommendResult, error) {
	prompt := fmt.Sprintf("Ticket subject: %s\nPriority: %s\nUrgency: %s (%s)\n%s\nSuggest up to 3 prioritized agent actions, talking points, and warnings as JSON with keys actions, talking_points, warnings, estimated_impact.",
		req.Ticket.Subject, req.Priority.Priority, req.Urgency.Level, req.Urgency.Category, guardrails)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a support triage assistant."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.4,
		MaxTokens:   400,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var parsed struct {
		Actions         []string `json:"actions"`
		TalkingPoints   []string `json:"talking_points"`
		Warnings        []string `json:"warnings"`
		EstimatedImpact string   `json:"estimated_impact"`
	}
	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	_ = json.Unmarshal([]byte(content), &parsed)

	result := &RecommendResult{
		TalkingPoints:   parsed.TalkingPoints,
		Warnings:        parsed.Warnings,
		EstimatedImpact: parsed.EstimatedImpact,
	}
	for i, act := range parsed.Actions {
		result.Actions = append(result.Actions, models.RecommendedAction{Priority: i + 1, Action: act})
	}
	return result, nil
}

func (a *OpenAIAdapter) Draft(ctx context.Context, req RecommendRequest, opts DraftOptions) (*models.DraftResponse, error) {
	tone := opts.Tone
	if tone == "" {
		tone = "empathetic"
	}
	prompt := fmt.Sprintf("Write a %s customer support reply for ticket %q. %s", tone, req.Ticket.Subject, guardrails)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You draft customer support replies."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.6,
		MaxTokens:   350,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	return &models.DraftResponse{Text: text, Tone: tone, Personalization: opts.Template}, nil
}

func (a *OpenAIAdapter) RouteQuery(ctx context.Context, question string, tools []ToolSpec) (*RouteResult, error) {
	fns := make([]openai.FunctionDefinition, 0, len(tools))
	for _, t := range tools {
		fns = append(fns, openai.FunctionDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "Select exactly one tool to answer the operator's question, or answer in plain text if none applies."},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Functions:   fns,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrUnavailable
	}
	msg := resp.Choices[0].Message
	if msg.FunctionCall != nil {
		var params map[string]interface{}
		_ = json.Unmarshal([]byte(msg.FunctionCall.Arguments), &params)
		return &RouteResult{ToolName: msg.FunctionCall.Name, Parameters: params}, nil
	}
	return &RouteResult{FreeText: msg.Content}, nil
}

package base

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/HiveCTF/cyberhive"
	"github.com/sashabaranov/go-openai"
)

// TaskDraft is an LLM-generated starting point for task authoring.
// Nothing is persisted until an author reviews and saves it.
type TaskDraft struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Difficulty  int      `json:"difficulty"`
	Points      int      `json:"points"`
	Tags        []string `json:"tags"`
	Story       string   `json:"story"`
	Description string   `json:"description"`

	Flags []TaskDraftFlag `json:"flags"`
}

type TaskDraftFlag struct {
	FlagID        string `json:"flag_id"`
	ExpectedValue string `json:"expected_value"`
	Format        string `json:"format"`
	Description   string `json:"description"`
}

const taskGenSystemPrompt = `You are a CTF challenge designer. Given a topic, respond with a single JSON object describing a training task: {"title", "category", "difficulty" (1-5), "points", "tags" (array), "story", "description", "flags": [{"flag_id", "expected_value", "format", "description"}]}. Flag ids must be short lowercase slugs, unique within the task. Respond with JSON only.`

// GenerateTaskDraft asks the configured model for a task skeleton on
// the given topic.
func (s *BaseAPI) GenerateTaskDraft(ctx context.Context, topic string) (*TaskDraft, *StatusError) {
	if s.llm == nil {
		return nil, Statusf(503, "Task generation is not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, Statusf(400, "Topic must not be empty")
	}

	model := s.cfg.OpenAI.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	resp, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: taskGenSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: topic},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, WrapError(err, "Couldn't generate task draft")
	}
	if len(resp.Choices) == 0 {
		return nil, Statusf(502, "Model returned no output")
	}

	var draft TaskDraft
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &draft); err != nil {
		return nil, WrapError(err, "Model returned malformed output")
	}
	if draft.Title == "" || len(draft.Flags) == 0 {
		return nil, Statusf(502, "Model returned an incomplete draft")
	}
	seen := make(map[string]bool, len(draft.Flags))
	for _, flag := range draft.Flags {
		if flag.FlagID == "" || flag.FlagID == cyberhive.UnknownFlagID || seen[flag.FlagID] {
			return nil, Statusf(502, "Model returned invalid flag ids")
		}
		seen[flag.FlagID] = true
	}
	return &draft, nil
}

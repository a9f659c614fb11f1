// Package ai wraps the OpenAI-compatible chat and embedding APIs used for
// answer analysis, tag suggestion, and similar-question search. The whole
// package is optional: without an API key the server runs with AI features
// disabled.
package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/semaphore"
)

const (
	defaultChatModel      = "gpt-4o-mini"
	defaultEmbeddingModel = "text-embedding-3-small"

	// EmbeddingDimensions matches the question_embedding column type.
	EmbeddingDimensions = 1536

	// maxConcurrentCalls bounds in-flight upstream requests.
	maxConcurrentCalls = 4
)

// Config holds the provider settings, typically populated from the profile.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
}

// Client is the AI service client.
type Client struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	sem            *semaphore.Weighted
}

// NewClient creates a new AI client. Any OpenAI-compatible endpoint works
// via BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing API key")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = defaultChatModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}
	return &Client{
		client:         openai.NewClientWithConfig(clientConfig),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		sem:            semaphore.NewWeighted(maxConcurrentCalls),
	}, nil
}

// Chat performs one synchronous completion round.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.sem.Release(1)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed generates the vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates vectors for multiple texts in one request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(c.embeddingModel),
		Dimensions: EmbeddingDimensions,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create embeddings failed")
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = data.Embedding
	}
	return vectors, nil
}

// GenerateAnalysis produces a step-by-step explanation of why the given
// answer is correct for the question.
func (c *Client) GenerateAnalysis(ctx context.Context, subject, content, answer string) (string, error) {
	system := analysisSystemPrompt
	if subject != "" {
		system += "\nThe question is from the subject: " + subject + "."
	}
	user := "Question:\n" + content + "\n\nCorrect answer:\n" + answer
	return c.Chat(ctx, system, user)
}

// SuggestTags proposes up to five short topic tags for the question.
func (c *Client) SuggestTags(ctx context.Context, content string) ([]string, error) {
	raw, err := c.Chat(ctx, tagSystemPrompt, content)
	if err != nil {
		return nil, err
	}
	return parseTagLine(raw), nil
}

// Extraction is a question transcribed from a photo.
type Extraction struct {
	Content string `json:"content"`
	Answer  string `json:"answer"`
	Subject string `json:"subject"`
}

// ExtractQuestion transcribes a photographed question into text using a
// vision-capable chat model.
func (c *Client) ExtractQuestion(ctx context.Context, imageData []byte, mimeType string) (*Extraction, error) {
	if len(imageData) == 0 {
		return nil, errors.New("empty image")
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(imageData)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractSystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: "Transcribe the question in this image."},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "vision completion failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty completion response")
	}
	return parseExtraction(resp.Choices[0].Message.Content), nil
}

// parseExtraction decodes the model's JSON reply, tolerating code fences.
// On malformed output the raw text becomes the question content.
func parseExtraction(raw string) *Extraction {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	extraction := &Extraction{}
	if err := json.Unmarshal([]byte(text), extraction); err != nil || extraction.Content == "" {
		return &Extraction{Content: strings.TrimSpace(raw)}
	}
	return extraction
}

// parseTagLine splits a comma-separated model reply into clean tags.
func parseTagLine(raw string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		tag = strings.Trim(tag, "#.\"'")
		if tag == "" || seen[tag] || len(tags) >= 5 {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

const analysisSystemPrompt = `You are a patient tutor helping a student understand a question they got wrong.
Explain the solution step by step, point out the likely mistake, and finish with a one-sentence takeaway.
Answer in the same language as the question.`

const tagSystemPrompt = `Suggest up to 5 short topic tags for the given study question.
Reply with the tags only, comma separated, lowercase, no hash signs.`

const extractSystemPrompt = `You transcribe photographed exam questions.
Reply with a single JSON object: {"content": "...", "answer": "...", "subject": "..."}.
content is the full question text including formulas in plain notation.
answer is the correct answer if visible in the image, otherwise an empty string.
subject is a one-word subject guess, otherwise an empty string. No other text.`

package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/tech-stack-advisor/internal/models"
	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash"

const systemInstruction = `You are an expert tech consultant and startup advisor for a company that builds mobile apps.
A user will describe their app idea and desired tech stack. Your goal is to provide structured, actionable advice on how to proceed.
Analyze their stack (Frontend, Backend), suggest relevant and innovative AI-powered business use cases, and outline a high-level project plan.
Format your response strictly as JSON based on the provided schema.
The tone should be professional, encouraging, and highly informative.`

// Generator turns a project description into structured advice.
type Generator interface {
	GenerateAdvice(ctx context.Context, prompt string) (*models.AdviceResponse, error)
}

type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	log    *zap.Logger
}

// NewGeminiClient builds a client for modelName. An empty apiKey is not an
// error here: the client is returned and every GenerateAdvice call fails
// with ErrMissingAPIKey.
func NewGeminiClient(ctx context.Context, apiKey, modelName string, log *zap.Logger) (*GeminiClient, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if apiKey == "" {
		log.Warn("gemini api key missing, advice requests will fail")
		return &GeminiClient{log: log}, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if modelName == "" {
		modelName = DefaultModel
	}
	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = AdviceSchema()

	return &GeminiClient{
		client: client,
		model:  model,
		log:    log,
	}, nil
}

func (g *GeminiClient) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

// GenerateAdvice makes exactly one model call. Every failure, including a
// response that does not match AdviceSchema, is an *AdviceGenerationError.
func (g *GeminiClient) GenerateAdvice(ctx context.Context, prompt string) (*models.AdviceResponse, error) {
	if g.model == nil {
		return nil, NewAdviceError(ErrMissingAPIKey)
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		g.log.Error("gemini generate content failed", zap.Error(err))
		return nil, NewAdviceError(fmt.Errorf("failed to generate content: %w", err))
	}

	text, err := responseText(resp)
	if err != nil {
		g.log.Error("gemini returned no content", zap.Error(err))
		return nil, NewAdviceError(err)
	}

	advice, err := ParseAdvice(text)
	if err != nil {
		g.log.Error("gemini response rejected", zap.Error(err), zap.Int("bytes", len(text)))
		return nil, NewAdviceError(err)
	}

	g.log.Info("advice generated",
		zap.Int("use_cases", len(advice.AIUseCases)),
	)
	return advice, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no content generated")
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", fmt.Errorf("no content generated (finish reason: %v)", resp.Candidates[0].FinishReason)
	}

	var b strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text content generated")
	}
	return b.String(), nil
}

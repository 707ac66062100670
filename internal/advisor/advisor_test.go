package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAdvice = `{
  "project_overview": {"title": "Overview", "summary": "A mobile app.", "bullet_points": ["Plan", "Build"]},
  "frontend_analysis": {"title": "Flutter", "summary": "Good choice.", "bullet_points": ["Hot reload"]},
  "backend_analysis": {"title": "Java", "summary": "Solid.", "bullet_points": []},
  "ai_use_cases": [
    {"name": "Search", "description": "Semantic search.", "implementation_idea": "Embeddings in Elasticsearch."}
  ]
}`

func TestParseAdvice(t *testing.T) {
	advice, err := ParseAdvice(validAdvice)
	require.NoError(t, err)

	assert.Equal(t, "Overview", advice.ProjectOverview.Title)
	assert.Equal(t, []string{"Plan", "Build"}, advice.ProjectOverview.BulletPoints)
	assert.Equal(t, "Flutter", advice.FrontendAnalysis.Title)
	assert.Empty(t, advice.BackendAnalysis.BulletPoints)
	require.Len(t, advice.AIUseCases, 1)
	assert.Equal(t, "Embeddings in Elasticsearch.", advice.AIUseCases[0].ImplementationIdea)
}

func TestParseAdviceEmptyUseCases(t *testing.T) {
	text := `{
	  "project_overview": {"title": "a", "summary": "b", "bullet_points": []},
	  "frontend_analysis": {"title": "a", "summary": "b", "bullet_points": []},
	  "backend_analysis": {"title": "a", "summary": "b", "bullet_points": []},
	  "ai_use_cases": []
	}`
	advice, err := ParseAdvice(text)
	require.NoError(t, err)
	assert.NotNil(t, advice.AIUseCases)
	assert.Empty(t, advice.AIUseCases)
}

func TestParseAdviceRejectsMalformedOutput(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{
			name:    "empty",
			text:    "   ",
			wantErr: "empty response",
		},
		{
			name:    "not json",
			text:    "Here is your advice!",
			wantErr: "invalid JSON",
		},
		{
			name: "missing top level field",
			text: `{
			  "project_overview": {"title": "a", "summary": "b", "bullet_points": []},
			  "frontend_analysis": {"title": "a", "summary": "b", "bullet_points": []},
			  "backend_analysis": {"title": "a", "summary": "b", "bullet_points": []}
			}`,
			wantErr: `missing required field "ai_use_cases"`,
		},
		{
			name: "missing nested field",
			text: `{
			  "project_overview": {"title": "a", "bullet_points": []},
			  "frontend_analysis": {"title": "a", "summary": "b", "bullet_points": []},
			  "backend_analysis": {"title": "a", "summary": "b", "bullet_points": []},
			  "ai_use_cases": []
			}`,
			wantErr: `response.project_overview: missing required field "summary"`,
		},
		{
			name: "null array",
			text: `{
			  "project_overview": {"title": "a", "summary": "b", "bullet_points": []},
			  "frontend_analysis": {"title": "a", "summary": "b", "bullet_points": []},
			  "backend_analysis": {"title": "a", "summary": "b", "bullet_points": []},
			  "ai_use_cases": null
			}`,
			wantErr: "response.ai_use_cases: value is null",
		},
		{
			name: "wrong item type",
			text: `{
			  "project_overview": {"title": "a", "summary": "b", "bullet_points": [1]},
			  "frontend_analysis": {"title": "a", "summary": "b", "bullet_points": []},
			  "backend_analysis": {"title": "a", "summary": "b", "bullet_points": []},
			  "ai_use_cases": []
			}`,
			wantErr: "response.project_overview.bullet_points[0]: expected string",
		},
		{
			name: "use case missing idea",
			text: `{
			  "project_overview": {"title": "a", "summary": "b", "bullet_points": []},
			  "frontend_analysis": {"title": "a", "summary": "b", "bullet_points": []},
			  "backend_analysis": {"title": "a", "summary": "b", "bullet_points": []},
			  "ai_use_cases": [{"name": "x", "description": "y"}]
			}`,
			wantErr: `response.ai_use_cases[0]: missing required field "implementation_idea"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advice, err := ParseAdvice(tt.text)
			require.Error(t, err)
			assert.Nil(t, advice)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAdviceSchemaRequiresEveryProperty(t *testing.T) {
	var walk func(path string, s *genai.Schema)
	walk = func(path string, s *genai.Schema) {
		if s.Type == genai.TypeObject {
			assert.Len(t, s.Required, len(s.Properties), path)
			for _, name := range s.Required {
				assert.Contains(t, s.Properties, name, path)
			}
			for name, prop := range s.Properties {
				walk(path+"."+name, prop)
			}
		}
		if s.Items != nil {
			walk(path+"[]", s.Items)
		}
	}
	walk("response", AdviceSchema())
}

func TestNewAdviceError(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := NewAdviceError(cause)

	assert.Equal(t, "Failed to get advice from AI: quota exceeded", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Same(t, err, NewAdviceError(err))
	assert.NotEmpty(t, NewAdviceError(nil).Message)
}

func TestGeminiClientWithoutKey(t *testing.T) {
	client, err := NewGeminiClient(context.Background(), "", "", nil)
	require.NoError(t, err)
	defer client.Close()

	advice, err := client.GenerateAdvice(context.Background(), "build an app")
	assert.Nil(t, advice)

	var adviceErr *AdviceGenerationError
	require.ErrorAs(t, err, &adviceErr)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.NotEmpty(t, adviceErr.Message)
}

func TestResponseText(t *testing.T) {
	_, err := responseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	text, err := responseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Text(`1}`)}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)
}

func TestCleanQuery(t *testing.T) {
	tests := map[string]string{
		"  plain text  ":                 "plain text",
		"<p>Build a Flutter app</p>":     "Build a Flutter app",
		"Java & Elasticsearch":           "Java & Elasticsearch",
		"<script>alert(1)</script>hello": "hello",
		"\n\t ":                          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanQuery(in), in)
	}
}

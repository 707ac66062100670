package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BerylCAtieno/tech-stack-advisor/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	advice  *models.AdviceResponse
	err     error
	prompts []string
}

func (g *stubGenerator) GenerateAdvice(_ context.Context, prompt string) (*models.AdviceResponse, error) {
	g.prompts = append(g.prompts, prompt)
	return g.advice, g.err
}

func sampleAdvice() *models.AdviceResponse {
	return &models.AdviceResponse{
		ProjectOverview:  models.AdviceSection{Title: "Overview", Summary: "A fitness app.", BulletPoints: []string{"Ship an MVP"}},
		FrontendAnalysis: models.AdviceSection{Title: "Frontend", Summary: "Flutter fits.", BulletPoints: []string{}},
		BackendAnalysis:  models.AdviceSection{Title: "Backend", Summary: "Go fits.", BulletPoints: []string{"Use Postgres"}},
		AIUseCases: []models.AIUseCase{
			{Name: "Coach", Description: "Personal plans.", ImplementationIdea: "Prompt with workout history."},
		},
	}
}

func setup(gen *stubGenerator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewA2AHandler(gen, nil).Register(router)
	return router
}

func post(t *testing.T, router *gin.Engine, body string) JSONRPCResponse {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/a2a/advisor", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		JSONRPCResponse
		Result *TaskResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	out := resp.JSONRPCResponse
	if resp.Result != nil {
		out.Result = *resp.Result
	}
	return out
}

const sendMessage = `{
  "jsonrpc": "2.0",
  "id": "req-1",
  "method": "message/send",
  "params": {
    "message": {
      "kind": "message",
      "role": "user",
      "parts": [{"kind": "text", "text": "<p>A fitness app in Flutter and Go</p>"}]
    },
    "configuration": {"blocking": true}
  }
}`

func TestAgentCard(t *testing.T) {
	router := setup(&stubGenerator{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/.well-known/agent.json", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var card map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))
	for _, field := range []string{"name", "description", "version", "capabilities", "endpoints"} {
		assert.Contains(t, card, field)
	}
}

func TestMessageSendCompleted(t *testing.T) {
	gen := &stubGenerator{advice: sampleAdvice()}
	resp := post(t, setup(gen), sendMessage)

	require.Nil(t, resp.Error)
	assert.Equal(t, "req-1", resp.ID)
	result := resp.Result.(TaskResult)
	assert.Equal(t, StateCompleted, result.Status.State)
	assert.Equal(t, []string{"A fitness app in Flutter and Go"}, gen.prompts)

	text := result.Status.Message.Parts[0].Text
	assert.Contains(t, text, "## Overview")
	assert.Contains(t, text, "- Use Postgres")
	assert.Contains(t, text, "**Coach**: Personal plans.")

	require.Len(t, result.Artifacts, 1)
	parts := result.Artifacts[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "data", parts[1].Kind)
	assert.NotNil(t, parts[1].Data)
}

func TestMessageSendFailed(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model overloaded")}
	resp := post(t, setup(gen), sendMessage)

	require.Nil(t, resp.Error)
	result := resp.Result.(TaskResult)
	assert.Equal(t, StateFailed, result.Status.State)
	assert.Equal(t, "Failed to get advice from AI: model overloaded", result.Status.Message.Parts[0].Text)
	assert.Empty(t, result.Artifacts)
}

func TestMessageWithoutDescription(t *testing.T) {
	gen := &stubGenerator{advice: sampleAdvice()}
	body := `{"jsonrpc":"2.0","id":"2","method":"agent/task","params":{"message":{"kind":"message","role":"user","parts":[{"kind":"text","text":"  "}]}}}`
	resp := post(t, setup(gen), body)

	result := resp.Result.(TaskResult)
	assert.Equal(t, StateInputRequired, result.Status.State)
	assert.Empty(t, gen.prompts)
}

func TestDataPartHistory(t *testing.T) {
	gen := &stubGenerator{advice: sampleAdvice()}
	body := `{"jsonrpc":"2.0","id":"3","method":"message/send","params":{"message":{"kind":"message","role":"user","parts":[
	  {"kind":"data","data":[
	    {"kind":"text","text":"older idea"},
	    {"kind":"text","text":"<p>A marketplace in React and Node</p>"},
	    {"kind":"image","url":"x.png"}
	  ]}
	]}}}`
	post(t, setup(gen), body)

	assert.Equal(t, []string{"A marketplace in React and Node"}, gen.prompts)
}

func TestDirectMessage(t *testing.T) {
	gen := &stubGenerator{advice: sampleAdvice()}
	body := `{"message":{"kind":"message","role":"user","parts":[{"kind":"text","text":"A budgeting app"}]}}`
	resp := post(t, setup(gen), body)

	require.Nil(t, resp.Error)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, StateCompleted, resp.Result.(TaskResult).Status.State)
	assert.Equal(t, []string{"A budgeting app"}, gen.prompts)
}

func TestProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"garbage", `not json`, CodeParseError},
		{"wrong version", `{"jsonrpc":"1.0","id":"1","method":"message/send"}`, CodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":"1","method":"tasks/cancel"}`, CodeMethodNotFound},
		{"bad params", `{"jsonrpc":"2.0","id":"1","method":"message/send","params":"oops"}`, CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{advice: sampleAdvice()}
			resp := post(t, setup(gen), tt.body)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Empty(t, gen.prompts)
		})
	}
}

func TestFormatAdviceResponseWithoutUseCases(t *testing.T) {
	advice := sampleAdvice()
	advice.AIUseCases = nil
	text := formatAdviceResponse(advice)
	assert.Contains(t, text, "No AI use cases were suggested")
}

package a2a

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BerylCAtieno/tech-stack-advisor/internal/advisor"
	"github.com/BerylCAtieno/tech-stack-advisor/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:embed agent.json
var agentCard []byte

// A2AHandler exposes the advice generator as an A2A agent. Requests are
// independent of the web form's state.
type A2AHandler struct {
	generator advisor.Generator
	log       *zap.Logger
}

func NewA2AHandler(generator advisor.Generator, log *zap.Logger) *A2AHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &A2AHandler{
		generator: generator,
		log:       log,
	}
}

func (h *A2AHandler) Register(r gin.IRouter) {
	r.GET("/.well-known/agent.json", h.ServeAgentCard)
	r.POST("/a2a/advisor", h.HandleAdvisor)
}

// HandleAdvisor processes A2A messages
func (h *A2AHandler) HandleAdvisor(c *gin.Context) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Error("failed to read request body", zap.Error(err))
		h.sendErrorResponse(c, "", "Failed to read request body", CodeParseError)
		return
	}

	var rpcReq JSONRPCRequest
	if err := json.Unmarshal(bodyBytes, &rpcReq); err != nil || rpcReq.JSONRPC == "" {
		// Some clients post the message params without the JSON-RPC envelope.
		h.handleDirectMessage(c, bodyBytes)
		return
	}

	log := h.log.With(zap.String("rpc_id", rpcReq.ID), zap.String("method", rpcReq.Method))

	if rpcReq.JSONRPC != "2.0" {
		log.Warn("invalid JSON-RPC version", zap.String("version", rpcReq.JSONRPC))
		h.sendErrorResponse(c, rpcReq.ID, "Invalid JSON-RPC version", CodeInvalidRequest)
		return
	}

	switch rpcReq.Method {
	case "agent/task", "message/send":
		h.handleTask(c, rpcReq)
	default:
		log.Warn("unknown method")
		h.sendErrorResponse(c, rpcReq.ID, fmt.Sprintf("Method not found: %s", rpcReq.Method), CodeMethodNotFound)
	}
}

func (h *A2AHandler) handleDirectMessage(c *gin.Context, bodyBytes []byte) {
	var msgParams MessageParams
	if err := json.Unmarshal(bodyBytes, &msgParams); err != nil || len(msgParams.Message.Parts) == 0 {
		h.log.Warn("request is neither JSON-RPC nor a direct message", zap.Error(err))
		h.sendErrorResponse(c, "", "Invalid request format", CodeParseError)
		return
	}

	taskID := uuid.NewString()
	h.sendSuccessResponse(c, taskID, h.runTask(c, taskID, msgParams.Message))
}

func (h *A2AHandler) handleTask(c *gin.Context, rpcReq JSONRPCRequest) {
	paramsJSON, err := json.Marshal(rpcReq.Params)
	if err != nil {
		h.sendErrorResponse(c, rpcReq.ID, "Failed to parse parameters", CodeInvalidParams)
		return
	}

	var msgParams MessageParams
	if err := json.Unmarshal(paramsJSON, &msgParams); err != nil {
		h.log.Warn("invalid params", zap.Error(err))
		h.sendErrorResponse(c, rpcReq.ID, "Invalid parameters", CodeInvalidParams)
		return
	}

	h.sendSuccessResponse(c, rpcReq.ID, h.runTask(c, rpcReq.ID, msgParams.Message))
}

func (h *A2AHandler) runTask(c *gin.Context, taskID string, msg A2AMessage) TaskResult {
	description := extractProjectDescription(msg)
	if description == "" {
		return createTaskResult(taskID, StateInputRequired,
			"Please describe your project idea and desired tech stack.", nil)
	}

	advice, err := h.generator.GenerateAdvice(c.Request.Context(), description)
	if err != nil {
		adviceErr := advisor.NewAdviceError(err)
		h.log.Error("advice generation failed", zap.String("task_id", taskID), zap.Error(err))
		return createTaskResult(taskID, StateFailed, adviceErr.Message, nil)
	}

	h.log.Info("advice task completed",
		zap.String("task_id", taskID),
		zap.Int("use_cases", len(advice.AIUseCases)),
	)
	return createTaskResult(taskID, StateCompleted, formatAdviceResponse(advice), advice)
}

// ServeAgentCard serves the embedded agent card.
func (h *A2AHandler) ServeAgentCard(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", agentCard)
}

// extractProjectDescription joins the user's text parts. Data parts holding
// a conversation history contribute their most recent text entry.
func extractProjectDescription(msg A2AMessage) string {
	var texts []string

	for _, part := range msg.Parts {
		switch part.Kind {
		case "text":
			if text := advisor.CleanQuery(part.Text); text != "" {
				texts = append(texts, text)
			}
		case "data":
			if text := lastHistoryText(part.Data); text != "" {
				texts = append(texts, text)
			}
		}
	}

	return strings.TrimSpace(strings.Join(texts, " "))
}

func lastHistoryText(data interface{}) string {
	items, ok := data.([]interface{})
	if !ok {
		return ""
	}
	for i := len(items) - 1; i >= 0; i-- {
		item, ok := items[i].(map[string]interface{})
		if !ok {
			continue
		}
		if kind, _ := item["kind"].(string); kind != "text" {
			continue
		}
		raw, _ := item["text"].(string)
		if text := advisor.CleanQuery(raw); text != "" {
			return text
		}
	}
	return ""
}

func createTaskResult(taskID, state, text string, advice *models.AdviceResponse) TaskResult {
	result := TaskResult{
		ID:   taskID,
		Kind: "task",
		Status: TaskStatus{
			State:     state,
			Timestamp: Timestamp(),
			Message: &A2AMessage{
				Kind:      "message",
				Role:      RoleAgent,
				MessageID: uuid.NewString(),
				TaskID:    taskID,
				Parts:     []MessagePart{TextPart(text)},
			},
		},
	}

	if advice != nil {
		result.Artifacts = []Artifact{
			{
				ArtifactID: uuid.NewString(),
				Name:       "Tech Stack Advice",
				Parts:      []MessagePart{TextPart(text), DataPart(advice)},
			},
		}
	}
	return result
}

func formatAdviceResponse(advice *models.AdviceResponse) string {
	var builder strings.Builder

	for i, section := range advice.Sections() {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(fmt.Sprintf("## %s\n\n%s\n", section.Title, section.Summary))
		if len(section.BulletPoints) > 0 {
			builder.WriteString("\n")
			for _, point := range section.BulletPoints {
				builder.WriteString(fmt.Sprintf("- %s\n", strings.TrimSpace(point)))
			}
		}
	}

	builder.WriteString("\n## AI-Powered Business Use Cases\n")
	if len(advice.AIUseCases) == 0 {
		builder.WriteString("\nNo AI use cases were suggested for this project.\n")
	}
	for _, useCase := range advice.AIUseCases {
		builder.WriteString(fmt.Sprintf("\n**%s**: %s\n", useCase.Name, useCase.Description))
		builder.WriteString(fmt.Sprintf("*Implementation idea:* %s\n", useCase.ImplementationIdea))
	}

	return builder.String()
}

func (h *A2AHandler) sendSuccessResponse(c *gin.Context, id string, result TaskResult) {
	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (h *A2AHandler) sendErrorResponse(c *gin.Context, id string, message string, code int) {
	// JSON-RPC errors are sent with 200 OK
	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	})
}

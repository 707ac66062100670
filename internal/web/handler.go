// Package web serves the advice form, the rendered report and the PDF
// export over HTTP.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/BerylCAtieno/tech-stack-advisor/internal/advisor"
	"github.com/BerylCAtieno/tech-stack-advisor/internal/export"
	"github.com/BerylCAtieno/tech-stack-advisor/internal/flow"
	"github.com/BerylCAtieno/tech-stack-advisor/internal/logging"
	"github.com/flosch/pongo2/v6"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	Title          = "AI Tech Stack Advisor"
	ReportSelector = "#advice-report"

	DefaultQuery = "I want to build a mobile app that has the latest AI business use cases. For the frontend, I'm thinking Flutter and Dart. For the backend, I want to use Java and Elasticsearch."

	loadingRefreshSeconds = 2
)

type Options struct {
	// BaseURL is where the export browser reaches this server.
	BaseURL  string
	FileName string
}

type Handler struct {
	advice   *flow.AdviceFlow
	exporter *export.Flow
	opts     Options
	pages    *pages
	log      *zap.Logger

	// pending tracks form submissions still running after their redirect.
	pending sync.WaitGroup
}

func NewHandler(advice *flow.AdviceFlow, exporter *export.Flow, opts Options, log *zap.Logger) (*Handler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	return &Handler{
		advice:   advice,
		exporter: exporter,
		opts:     opts,
		pages:    p,
		log:      log,
	}, nil
}

// NewRouter returns a gin engine with recovery, request logging and the
// handler's routes installed.
func NewRouter(h *Handler, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(log))
	h.Register(router)
	return router
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.ServeIndex)
	r.POST("/advice", h.SubmitForm)
	r.GET("/report", h.ServeReport)
	r.POST("/export", h.Export)

	api := r.Group("/api")
	api.GET("/state", h.GetState)
	api.POST("/advice", h.SubmitJSON)
	api.POST("/reset", h.Reset)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
}

// ReportRegion is the region the export flow captures.
func (h *Handler) ReportRegion() export.Region {
	return export.Region{URL: h.opts.BaseURL + "/report", Selector: ReportSelector}
}

func (h *Handler) pageContext(state flow.State) pongo2.Context {
	query := state.Query
	if query == "" {
		query = DefaultQuery
	}
	exporting := h.exporter.IsExporting()

	data := pongo2.Context{
		"title":        Title,
		"query":        query,
		"loading":      state.IsLoading(),
		"advice_error": state.Message,
		"has_advice":   state.Advice != nil,
		"cards":        cards(state.Advice),
		"exporting":    exporting,
		"can_export":   state.IsReady() && !exporting,
	}
	if state.Advice != nil {
		data["use_cases"] = state.Advice.AIUseCases
	}
	if state.IsLoading() {
		data["refresh"] = loadingRefreshSeconds
	}
	return data
}

func (h *Handler) renderIndex(c *gin.Context, status int, exportError string) {
	data := h.pageContext(h.advice.State())
	if exportError != "" {
		data["export_error"] = exportError
	}
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := render(c.Writer, h.pages.index, data); err != nil {
		h.log.Error("render index failed", zap.Error(err))
		_ = c.Error(err)
	}
}

func (h *Handler) ServeIndex(c *gin.Context) {
	h.renderIndex(c, http.StatusOK, "")
}

// SubmitForm starts the advice request for the posted form and redirects
// back to the index at once. The index refreshes itself while loading.
func (h *Handler) SubmitForm(c *gin.Context) {
	query := advisor.CleanQuery(c.PostForm("query"))

	done, err := h.advice.Start(context.WithoutCancel(c.Request.Context()), query)
	if err != nil {
		h.log.Info("form submission rejected", zap.Error(err))
	}
	if done != nil {
		h.pending.Add(1)
		go func() {
			defer h.pending.Done()
			<-done
		}()
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Wait blocks until background form submissions have settled or ctx ends.
func (h *Handler) Wait(ctx context.Context) error {
	settled := make(chan struct{})
	go func() {
		h.pending.Wait()
		close(settled)
	}()
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeReport renders only the report region; it is the page the export
// browser captures.
func (h *Handler) ServeReport(c *gin.Context) {
	state := h.advice.State()
	if !state.IsReady() {
		c.String(http.StatusNotFound, "No advice to report yet.")
		return
	}
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := render(c.Writer, h.pages.report, h.pageContext(state)); err != nil {
		h.log.Error("render report failed", zap.Error(err))
		_ = c.Error(err)
	}
}

func (h *Handler) Export(c *gin.Context) {
	if !h.advice.State().IsReady() {
		h.renderIndex(c, http.StatusConflict, "Generate advice before exporting.")
		return
	}

	doc, err := h.exporter.Export(c.Request.Context(), h.ReportRegion())
	if err != nil {
		var exportErr *export.ExportError
		switch {
		case errors.Is(err, export.ErrExportInProgress):
			h.renderIndex(c, http.StatusConflict, "An export is already running.")
		case errors.As(err, &exportErr):
			h.renderIndex(c, http.StatusInternalServerError, exportErr.Message)
		default:
			h.renderIndex(c, http.StatusInternalServerError, "Could not export the report.")
		}
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.opts.FileName))
	c.Data(http.StatusOK, "application/pdf", doc)
}

type stateResponse struct {
	flow.State
	Exporting bool `json:"exporting"`
}

func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, stateResponse{
		State:     h.advice.State(),
		Exporting: h.exporter.IsExporting(),
	})
}

type adviceRequest struct {
	Query string `json:"query"`
}

func (h *Handler) SubmitJSON(c *gin.Context) {
	var req adviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	query := advisor.CleanQuery(req.Query)
	if query == "" {
		c.Status(http.StatusNoContent)
		return
	}

	advice, err := h.advice.Submit(c.Request.Context(), query)
	if err != nil {
		var adviceErr *advisor.AdviceGenerationError
		switch {
		case errors.Is(err, flow.ErrRequestInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.As(err, &adviceErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": adviceErr.Message})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, advice)
}

func (h *Handler) Reset(c *gin.Context) {
	if !h.advice.Reset() {
		c.JSON(http.StatusConflict, gin.H{"error": flow.ErrRequestInFlight.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

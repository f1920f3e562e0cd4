package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/garyjia/invoice-reimbursement/internal/application/service"
	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	checks   map[string]HealthCheck
	version  string
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, checks map[string]HealthCheck, version string, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		checks:   checks,
		version:  version,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorResponse is the body of a failed /analyze-invoice or /chat call
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// AnalyzeInvoiceResponse is the body of a successful /analyze-invoice call
type AnalyzeInvoiceResponse struct {
	Status string `json:"status"`
	*service.BatchResult
}

// ChatRequest is the body of /chat
type ChatRequest struct {
	Query   string            `json:"query" binding:"required,min=3"`
	History []entity.ChatTurn `json:"history"`
	Filters map[string]string `json:"filters"`
	Limit   int               `json:"limit" binding:"omitempty,min=1,max=50"`
}

// ListDecisionsRequest represents query parameters for listing decisions
type ListDecisionsRequest struct {
	Employee      string  `form:"employee"`
	Status        string  `form:"status"`
	Category      string  `form:"category"`
	MinReimbursed float64 `form:"min_reimbursed"`
	MinRequested  float64 `form:"min_requested"`
	Limit         int     `form:"limit"`
	Offset        int     `form:"offset"`
}

func (r ListDecisionsRequest) toFilter() port.DecisionFilter {
	return port.DecisionFilter{
		Employee:            r.Employee,
		Status:              entity.ReimbursementStatus(r.Status),
		Category:            r.Category,
		MinReimbursedAmount: r.MinReimbursed,
		MinRequestedAmount:  r.MinRequested,
		Limit:               r.Limit,
		Offset:              r.Offset,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}

	code := http.StatusOK
	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		response.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				response.Checks[name] = err.Error()
				response.Status = "unhealthy"
				code = http.StatusServiceUnavailable
				continue
			}
			response.Checks[name] = "ok"
		}
	}

	c.JSON(code, Response{
		Success: code == http.StatusOK,
		Data:    response,
	})
}

// AnalyzeInvoice handles POST /analyze-invoice
func (h *Handlers) AnalyzeInvoice(c *gin.Context) {
	policy, policyName, err := readFormFile(c, "policy_pdf")
	if err != nil {
		h.badUpload(c, err)
		return
	}
	invoices, zipName, err := readFormFile(c, "invoices_zip")
	if err != nil {
		h.badUpload(c, err)
		return
	}

	result, err := h.services.Reimbursement.AnalyzeBatch(c.Request.Context(), service.AnalyzeBatchRequest{
		EmployeeName:   c.PostForm("employee_name"),
		PolicyFilename: policyName,
		PolicyPDF:      policy,
		ZipFilename:    zipName,
		InvoicesZip:    invoices,
	})
	if err != nil {
		if service.IsInputError(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
			return
		}
		h.logger.Error("Invoice analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "Processing error: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, AnalyzeInvoiceResponse{Status: "success", BatchResult: result})
}

func (h *Handlers) badUpload(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Detail: fmt.Sprintf("upload exceeds %d bytes", maxBytesErr.Limit),
		})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
}

func readFormFile(c *gin.Context, field string) ([]byte, string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("%s is required", field)
	}
	data, err := readMultipartFile(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", field, err)
	}
	return data, header.Filename, nil
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Chat handles POST /chat
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "invalid chat request: " + err.Error()})
		return
	}

	resp, err := h.services.Query.Chat(c.Request.Context(), service.ChatRequest{
		Query:   req.Query,
		History: req.History,
		Filters: req.Filters,
		Limit:   req.Limit,
	})
	if err != nil {
		if service.IsInputError(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
			return
		}
		h.logger.Error("Chat failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "Chat error: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListDecisions handles GET /api/decisions
func (h *Handlers) ListDecisions(c *gin.Context) {
	var req ListDecisionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	entries, err := h.services.Decisions.ListDecisions(c.Request.Context(), req.toFilter())
	if err != nil {
		h.writeDecisionError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    entries,
	})
}

// GetDecision handles GET /api/decisions/:id
func (h *Handlers) GetDecision(c *gin.Context) {
	entry, err := h.services.Decisions.GetDecision(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeDecisionError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    entry,
	})
}

// ExportDecisions handles GET /api/decisions/export
func (h *Handlers) ExportDecisions(c *gin.Context) {
	var req ListDecisionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	// buffered so a failure can still be reported as JSON
	var buf bytes.Buffer
	if _, err := h.services.Decisions.ExportDecisions(c.Request.Context(), &buf, req.toFilter()); err != nil {
		h.writeDecisionError(c, err)
		return
	}

	filename := fmt.Sprintf("decisions-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handlers) writeDecisionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, port.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "decision not found"})
	case service.IsInputError(err):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Decision ledger request failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve decisions"})
	}
}

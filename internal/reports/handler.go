package reports

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"esg-gap-backend/internal/documents"
	"esg-gap-backend/internal/gapanalysis"
	"esg-gap-backend/internal/shared/server/middleware"
	"esg-gap-backend/internal/shared/server/respond"
)

const maxSubmitFiles = 10

// Handler wires HTTP handlers to the reports service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches user-facing report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reports", h.submit)
	rg.GET("/reports", h.list)
	rg.GET("/reports/:id", h.get)
	rg.GET("/reports/:id/gap-analysis", h.gapAnalysis)
	rg.GET("/reports/:id/gap-analysis/export", h.export)
}

// RegisterCallbackRoutes attaches processing-service callbacks.
func (h *Handler) RegisterCallbackRoutes(rg *gin.RouterGroup) {
	rg.PUT("/reports/:id/status", h.updateStatus)
}

func (h *Handler) submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSubmitFiles*documents.DefaultMaxBytes+(1<<20))

	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart form is required", nil)
		return
	}
	headers := append(form.File["pdfFiles"], form.File["pdfFiles[]"]...)
	if len(headers) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "at least one pdf file is required", []map[string]string{
			{"field": "pdfFiles", "issue": "required"},
		})
		return
	}
	if len(headers) > maxSubmitFiles {
		respond.Error(c, http.StatusBadRequest, "validation_error", "too many files", []map[string]string{
			{"field": "pdfFiles", "issue": "max_" + strconv.Itoa(maxSubmitFiles)},
		})
		return
	}

	year := 0
	if raw := strings.TrimSpace(c.PostForm("year")); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "year must be a number", []map[string]string{
				{"field": "year", "issue": "invalid"},
			})
			return
		}
	}

	files, closeAll, err := openUploads(headers)
	defer closeAll()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	sub, err := h.Svc.Submit(requestContext(c), SubmitInput{
		UserID:         middleware.UserIDFromContext(c),
		Year:           year,
		CompanyName:    c.PostForm("companyName"),
		CompanyURL:     c.PostForm("companyUrl"),
		StockTicker:    c.PostForm("stockTicker"),
		AdditionalInfo: c.PostForm("additionalInfo"),
		SubsectorCode:  c.PostForm("subsectorCode"),
		Files:          files,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.Set("reportId", sub.Report.ID)
	respond.Accepted(c, toSubmitResponse(sub))
}

func openUploads(headers []*multipart.FileHeader) ([]UploadFile, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	files := make([]UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		opened = append(opened, f)
		files = append(files, UploadFile{Name: fh.Filename, Body: f})
	}
	return files, closeAll, nil
}

func (h *Handler) get(c *gin.Context) {
	reportID := c.Param("id")
	c.Set("reportId", reportID)

	report, err := h.Svc.Get(requestContext(c), middleware.UserIDFromContext(c), reportID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(report))
}

func (h *Handler) list(c *gin.Context) {
	limit, offset := documents.Paging(c)

	list, err := h.Svc.List(requestContext(c), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]ReportResponse, 0, len(list))
	for _, r := range list {
		resp = append(resp, toResponse(r))
	}
	respond.OK(c, resp)
}

func (h *Handler) updateStatus(c *gin.Context) {
	reportID := c.Param("id")
	c.Set("reportId", reportID)

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "status is required", []map[string]string{
			{"field": "status", "issue": "required"},
		})
		return
	}

	updated, previous, err := h.Svc.UpdateStatus(requestContext(c), reportID, StatusUpdate{
		Status:             req.Status,
		Progress:           req.Progress,
		CSVReportURL:       req.CSVReportURL,
		CSVMergedReportURL: req.CSVMergedReportURL,
		ErrorMessage:       req.ErrorMessage,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("statusTransition", previous+"->"+updated.Status)
	c.Set("userId", updated.UserID)
	respond.OK(c, toResponse(updated))
}

func (h *Handler) gapAnalysis(c *gin.Context) {
	reportID := c.Param("id")
	c.Set("reportId", reportID)

	result, err := h.Svc.GapAnalysis(requestContext(c), middleware.UserIDFromContext(c), reportID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, result)
}

func (h *Handler) export(c *gin.Context) {
	reportID := c.Param("id")
	c.Set("reportId", reportID)

	data, fileName, err := h.Svc.ExportXLSX(requestContext(c), middleware.UserIDFromContext(c), reportID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, gapanalysis.XLSXContentType, data)
}

func requestContext(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, "invalid_transition", err.Error(), nil)
	case errors.Is(err, ErrNotReady):
		respond.Error(c, http.StatusConflict, "report_not_ready", "Report data is not available yet", nil)
	case errors.Is(err, documents.ErrUnsupportedType),
		errors.Is(err, documents.ErrTooLarge),
		errors.Is(err, documents.ErrInvalidInput):
		documents.WriteError(c, err)
	default:
		status, code, message, details := gapanalysis.HTTPError(err)
		respond.Error(c, status, code, message, details)
	}
}

package gapanalysis

import (
	"bytes"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"esg-gap-backend/internal/csvsource"
	"esg-gap-backend/internal/shared/server/respond"
)

const maxCSVUploadSize = 50 << 20 // 50MB

// XLSXContentType is the media type of exported workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves ad-hoc gap analysis over uploaded CSV exports.
type Handler struct {
	Pipeline *Pipeline
}

// NewHandler constructs a Handler.
func NewHandler(p *Pipeline) *Handler {
	return &Handler{Pipeline: p}
}

// RegisterRoutes attaches gap-analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/gap-analysis", h.analyze)
}

func (h *Handler) analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*maxCSVUploadSize)

	mergedHeader, err := c.FormFile("merged")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "merged file is required", nil)
		return
	}
	merged, err := readUpload(mergedHeader)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read merged file", nil)
		return
	}

	var analysis Analysis
	if detailedHeader, err := c.FormFile("detailed"); err == nil {
		detailed, err := readUpload(detailedHeader)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read detailed file", nil)
			return
		}
		analysis, err = h.Pipeline.FromText(merged, detailed)
		if err != nil {
			writePipelineError(c, err)
			return
		}
	} else {
		analysis, err = h.Pipeline.Single(merged)
		if err != nil {
			writePipelineError(c, err)
			return
		}
	}

	if c.Query("format") == "xlsx" {
		WriteXLSXResponse(c, "gap-analysis.xlsx", analysis.Result)
		return
	}
	if c.Query("diagnostics") == "true" {
		respond.OK(c, gin.H{"result": analysis.Result, "diagnostics": analysis.Diagnostics})
		return
	}
	respond.OK(c, analysis.Result)
}

// WriteXLSXResponse streams a result as an XLSX attachment.
func WriteXLSXResponse(c *gin.Context, fileName string, r Result) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, r); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render workbook", nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, XLSXContentType, buf.Bytes())
}

func writePipelineError(c *gin.Context, err error) {
	status, code, message, details := HTTPError(err)
	respond.Error(c, status, code, message, details)
}

func readUpload(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return csvsource.ReadText(f, maxCSVUploadSize)
}

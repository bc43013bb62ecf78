package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"prospect-tracker-api/internal/config"
	"prospect-tracker-api/internal/excel"
	"prospect-tracker-api/internal/form"
	"prospect-tracker-api/internal/logger"
	"prospect-tracker-api/internal/model"
	"prospect-tracker-api/internal/prospect"
	"prospect-tracker-api/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// ProspectService is implemented by *prospect.Service.
type ProspectService interface {
	Create(ctx context.Context, sub prospect.Submission) (*model.Prospect, error)
	Get(ctx context.Context, id string) (*model.Prospect, error)
	Update(ctx context.Context, id string, sub prospect.Submission) (*model.Prospect, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q model.ListQuery) (*model.ListResult, error)
	Export(ctx context.Context, filter model.ProspectFilter) (*excelize.File, error)
	CategoryGeoChart(ctx context.Context) (*model.ChartResponse, error)
	CategoryMonthChart(ctx context.Context) (*model.ChartResponse, error)
}

type Handler struct {
	service ProspectService
	cfg     *config.Config
	log     zerolog.Logger
}

func NewHandler(service ProspectService, cfg *config.Config) *Handler {
	return &Handler{
		service: service,
		cfg:     cfg,
		log:     logger.Get(),
	}
}

func (h *Handler) CreateProspect(c *gin.Context) {
	sub, err := h.readSubmission(c)
	if err != nil {
		h.respondWriteError(c, err)
		return
	}
	defer h.discardUpload(sub.Upload)

	p, err := h.service.Create(c.Request.Context(), sub)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create prospect")
		h.respondWriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": p})
}

func (h *Handler) GetProspect(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if !errors.IsNotFound(err) {
			h.log.Error().Err(err).Str("id", c.Param("id")).Msg("Failed to get prospect")
		}
		h.respondWriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}

func (h *Handler) UpdateProspect(c *gin.Context) {
	id := c.Param("id")

	// resolve the id before touching the body so a missing record is a 404
	if _, err := h.service.Get(c.Request.Context(), id); err != nil {
		if !errors.IsNotFound(err) {
			h.log.Error().Err(err).Str("id", id).Msg("Failed to load prospect for update")
		}
		h.respondWriteError(c, err)
		return
	}

	sub, err := h.readSubmission(c)
	if err != nil {
		h.respondWriteError(c, err)
		return
	}
	defer h.discardUpload(sub.Upload)

	p, err := h.service.Update(c.Request.Context(), id, sub)
	if err != nil {
		if !errors.IsNotFound(err) {
			h.log.Error().Err(err).Str("id", id).Msg("Failed to update prospect")
		}
		h.respondWriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}

func (h *Handler) DeleteProspect(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Not found"})
			return
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Deleted successfully"})
}

func (h *Handler) ListProspects(c *gin.Context) {
	q := model.ListQuery{
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", h.cfg.Listing.DefaultLimit),
		Filter: parseFilter(c),
	}

	res, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": res.Data, "meta": res.Meta})
}

func (h *Handler) ExportProspects(c *gin.Context) {
	f, err := h.service.Export(c.Request.Context(), parseFilter(c))
	if err != nil {
		if stderrors.Is(err, errors.ErrNoRecords) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No records found"})
			return
		}
		_ = c.Error(err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", excel.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", excel.Filename))
	c.Status(http.StatusOK)

	if err := f.Write(c.Writer); err != nil {
		// headers are already out, so the client sees a truncated body
		h.log.Error().Err(err).Msg("Failed to stream export")
	}
}

func (h *Handler) CategoryGeoChart(c *gin.Context) {
	h.renderChart(c, h.service.CategoryGeoChart)
}

func (h *Handler) CategoryMonthChart(c *gin.Context) {
	h.renderChart(c, h.service.CategoryMonthChart)
}

func (h *Handler) renderChart(c *gin.Context, build func(context.Context) (*model.ChartResponse, error)) {
	res, err := build(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	body := gin.H{
		"success":      true,
		"xAxis":        res.XAxis,
		"seriesLabels": res.SeriesLabels,
		"data":         res.Data,
	}
	if res.FilterNames != nil {
		body["filterNames"] = res.FilterNames
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

// respondWriteError answers create, get and update failures directly.
func (h *Handler) respondWriteError(c *gin.Context, err error) {
	var validation errors.ValidationError
	switch {
	case errors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Not found"})
	case stderrors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": validation.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
	}
}

// readSubmission decodes a multipart, urlencoded or JSON body. A multipart
// file under the configured field is spooled to a temp file.
func (h *Handler) readSubmission(c *gin.Context) (prospect.Submission, error) {
	switch c.ContentType() {
	case gin.MIMEMultipartPOSTForm:
		return h.readMultipart(c)
	case gin.MIMEPOSTForm:
		if err := c.Request.ParseForm(); err != nil {
			return prospect.Submission{}, errors.ValidationError{Field: "body", Message: err.Error()}
		}
		return prospect.Submission{Values: form.FromURLValues(c.Request.PostForm)}, nil
	default:
		values, err := form.FromJSON(c.Request.Body)
		if err != nil {
			return prospect.Submission{}, errors.ValidationError{Field: "body", Message: "malformed JSON body"}
		}
		return prospect.Submission{Values: values}, nil
	}
}

func (h *Handler) readMultipart(c *gin.Context) (prospect.Submission, error) {
	if err := c.Request.ParseMultipartForm(h.cfg.Upload.MaxMemory); err != nil {
		return prospect.Submission{}, errors.ValidationError{Field: "body", Message: err.Error()}
	}
	mf := c.Request.MultipartForm
	defer mf.RemoveAll()

	sub := prospect.Submission{Values: form.FromMultipart(mf)}

	fh, err := c.FormFile(h.cfg.Upload.FileField)
	if err != nil {
		if stderrors.Is(err, http.ErrMissingFile) {
			return sub, nil
		}
		return prospect.Submission{}, errors.ValidationError{Field: h.cfg.Upload.FileField, Message: err.Error()}
	}

	tmp, err := os.CreateTemp(h.cfg.Upload.TempDir, "deck-*"+strings.ToLower(filepath.Ext(fh.Filename)))
	if err != nil {
		return prospect.Submission{}, fmt.Errorf("create temp file: %w", err)
	}
	tmp.Close()

	if err := c.SaveUploadedFile(fh, tmp.Name()); err != nil {
		_ = os.Remove(tmp.Name())
		return prospect.Submission{}, fmt.Errorf("spool upload: %w", err)
	}

	sub.Upload = &model.Upload{LocalPath: tmp.Name(), Filename: fh.Filename, Size: fh.Size}
	return sub, nil
}

// discardUpload removes a spooled file the attachment manager never consumed,
// e.g. when the record was not found.
func (h *Handler) discardUpload(up *model.Upload) {
	if up == nil || up.LocalPath == "" {
		return
	}
	if err := os.Remove(up.LocalPath); err != nil && !os.IsNotExist(err) {
		h.log.Warn().Err(err).Str("path", up.LocalPath).Msg("Failed to remove temp upload")
	}
}

func parseFilter(c *gin.Context) model.ProspectFilter {
	return model.ProspectFilter{
		Search:  c.Query("search"),
		Geo:     c.Query("geo"),
		Month:   c.Query("month"),
		Quarter: c.Query("quarter"),
		RAG:     c.Query("rag"),
	}
}

// queryInt parses a positive integer query parameter, falling back to def.
func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

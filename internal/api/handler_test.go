package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"prospect-tracker-api/internal/config"
	"prospect-tracker-api/internal/excel"
	"prospect-tracker-api/internal/model"
	"prospect-tracker-api/internal/prospect"
	"prospect-tracker-api/pkg/errors"
)

// mockService is a hand-written ProspectService. Each func field, when set,
// replaces the default behaviour.
type mockService struct {
	createFn func(ctx context.Context, sub prospect.Submission) (*model.Prospect, error)
	getFn    func(ctx context.Context, id string) (*model.Prospect, error)
	updateFn func(ctx context.Context, id string, sub prospect.Submission) (*model.Prospect, error)
	deleteFn func(ctx context.Context, id string) error
	listFn   func(ctx context.Context, q model.ListQuery) (*model.ListResult, error)
	exportFn func(ctx context.Context, f model.ProspectFilter) (*excelize.File, error)
	chartFn  func(ctx context.Context) (*model.ChartResponse, error)
}

func (m *mockService) Create(ctx context.Context, sub prospect.Submission) (*model.Prospect, error) {
	return m.createFn(ctx, sub)
}

func (m *mockService) Get(ctx context.Context, id string) (*model.Prospect, error) {
	return m.getFn(ctx, id)
}

func (m *mockService) Update(ctx context.Context, id string, sub prospect.Submission) (*model.Prospect, error) {
	return m.updateFn(ctx, id, sub)
}

func (m *mockService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockService) List(ctx context.Context, q model.ListQuery) (*model.ListResult, error) {
	return m.listFn(ctx, q)
}

func (m *mockService) Export(ctx context.Context, f model.ProspectFilter) (*excelize.File, error) {
	return m.exportFn(ctx, f)
}

func (m *mockService) CategoryGeoChart(ctx context.Context) (*model.ChartResponse, error) {
	return m.chartFn(ctx)
}

func (m *mockService) CategoryMonthChart(ctx context.Context) (*model.ChartResponse, error) {
	return m.chartFn(ctx)
}

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "prospect-tracker-api"
	cfg.Upload.TempDir = t.TempDir()
	cfg.Upload.MaxMemory = 1 << 20
	cfg.Upload.FileField = "deck"
	cfg.Listing.DefaultLimit = 20
	return cfg
}

func setupRouter(t *testing.T, svc *mockService) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	router := gin.New()
	router.Use(RecoveryMiddleware())
	router.Use(ErrorMiddleware())
	SetupRoutes(router, NewHandler(svc, cfg))
	return router, cfg
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreateProspect_JSON(t *testing.T) {
	var got prospect.Submission
	svc := &mockService{
		createFn: func(ctx context.Context, sub prospect.Submission) (*model.Prospect, error) {
			got = sub
			return &model.Prospect{Prospect: "Acme", OppID: "OPP-1"}, nil
		},
	}
	router, _ := setupRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/prospects", strings.NewReader(`{"prospect":"Acme","call1":{"checked":true}}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Acme", body["data"].(map[string]any)["prospect"])

	assert.Equal(t, "Acme", got.Values.String("prospect"))
	assert.Nil(t, got.Upload)
}

func TestCreateProspect_MalformedJSON(t *testing.T) {
	router, _ := setupRouter(t, &mockService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/prospects", strings.NewReader(`{"prospect":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["success"])
}

func TestCreateProspect_MultipartWithDeck(t *testing.T) {
	var (
		got      prospect.Submission
		contents []byte
	)
	svc := &mockService{
		createFn: func(ctx context.Context, sub prospect.Submission) (*model.Prospect, error) {
			got = sub
			var err error
			contents, err = os.ReadFile(sub.Upload.LocalPath)
			require.NoError(t, err)
			return &model.Prospect{Prospect: "Acme"}, nil
		},
	}
	router, _ := setupRouter(t, svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("prospect", "Acme"))
	require.NoError(t, mw.WriteField("call1_checked", "true"))
	part, err := mw.CreateFormFile("deck", "Pitch.PDF")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/prospects", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, got.Upload)
	assert.Equal(t, "Pitch.PDF", got.Upload.Filename)
	assert.Equal(t, int64(8), got.Upload.Size)
	assert.True(t, strings.HasSuffix(got.Upload.LocalPath, ".pdf"))
	assert.Equal(t, []byte("%PDF-1.4"), contents)
	assert.Equal(t, "Acme", got.Values.String("prospect"))

	// the spooled file never outlives the request
	_, err = os.Stat(got.Upload.LocalPath)
	assert.True(t, os.IsNotExist(err))
}

func TestCreateProspect_URLEncoded(t *testing.T) {
	var got prospect.Submission
	svc := &mockService{
		createFn: func(ctx context.Context, sub prospect.Submission) (*model.Prospect, error) {
			got = sub
			return &model.Prospect{}, nil
		},
	}
	router, _ := setupRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/prospects", strings.NewReader("prospect=Acme&geo=EMEA"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "EMEA", got.Values.String("geo"))
}

func TestCreateProspect_ServerFaultHidesInternals(t *testing.T) {
	svc := &mockService{
		createFn: func(ctx context.Context, sub prospect.Submission) (*model.Prospect, error) {
			return nil, errors.NewUpstreamError("upload", stderrors.New("secret bucket policy"))
		},
	}
	router, _ := setupRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/prospects", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "Server error"}, decodeBody(t, w))
}

func TestGetProspect(t *testing.T) {
	svc := &mockService{
		getFn: func(ctx context.Context, id string) (*model.Prospect, error) {
			if id == "known" {
				return &model.Prospect{Prospect: "Acme"}, nil
			}
			return nil, errors.ErrInvalidID
		},
	}
	router, _ := setupRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/prospects/known", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/prospects/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "Not found"}, decodeBody(t, w))
}

func TestUpdateProspect_PutAndPatch(t *testing.T) {
	var ids []string
	svc := &mockService{
		getFn: func(ctx context.Context, id string) (*model.Prospect, error) {
			return &model.Prospect{Prospect: "Acme"}, nil
		},
		updateFn: func(ctx context.Context, id string, sub prospect.Submission) (*model.Prospect, error) {
			ids = append(ids, id)
			return &model.Prospect{Prospect: sub.Values.String("prospect")}, nil
		},
	}
	router, _ := setupRouter(t, svc)

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		req := httptest.NewRequest(method, "/api/v1/prospects/abc", strings.NewReader(`{"prospect":"Beta"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, method)
	}
	assert.Equal(t, []string{"abc", "abc"}, ids)
}

func TestUpdateProspect_NotFound(t *testing.T) {
	updated := false
	svc := &mockService{
		getFn: func(ctx context.Context, id string) (*model.Prospect, error) {
			return nil, errors.ErrNotFound
		},
		updateFn: func(ctx context.Context, id string, sub prospect.Submission) (*model.Prospect, error) {
			updated = true
			return nil, errors.ErrNotFound
		},
	}
	router, _ := setupRouter(t, svc)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/prospects/abc", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, updated)
}

func TestUpdateProspect_MissingRecordWinsOverMalformedBody(t *testing.T) {
	svc := &mockService{
		getFn: func(ctx context.Context, id string) (*model.Prospect, error) {
			return nil, errors.ErrInvalidID
		},
	}
	router, _ := setupRouter(t, svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/prospects/nope", strings.NewReader(`{"prospect":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "Not found"}, decodeBody(t, w))
}

func TestUpdateProspect_MalformedBodyOnExistingRecord(t *testing.T) {
	svc := &mockService{
		getFn: func(ctx context.Context, id string) (*model.Prospect, error) {
			return &model.Prospect{Prospect: "Acme"}, nil
		},
	}
	router, _ := setupRouter(t, svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/prospects/abc", strings.NewReader(`{"prospect":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProspect_SpooledDeckRemovedWhenServiceFails(t *testing.T) {
	var spooled string
	svc := &mockService{
		getFn: func(ctx context.Context, id string) (*model.Prospect, error) {
			return &model.Prospect{}, nil
		},
		updateFn: func(ctx context.Context, id string, sub prospect.Submission) (*model.Prospect, error) {
			spooled = sub.Upload.LocalPath
			return nil, stderrors.New("replica set unavailable")
		},
	}
	router, _ := setupRouter(t, svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("deck", "v2.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/v1/prospects/abc", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotEmpty(t, spooled)
	_, err = os.Stat(spooled)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteProspect(t *testing.T) {
	svc := &mockService{
		deleteFn: func(ctx context.Context, id string) error {
			switch id {
			case "known":
				return nil
			case "broken":
				return stderrors.New("connection reset")
			default:
				return errors.ErrNotFound
			}
		},
	}
	router, _ := setupRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/prospects/known", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"success": true, "message": "Deleted successfully"}, decodeBody(t, w))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/prospects/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/prospects/broken", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server error", decodeBody(t, w)["message"])
}

func TestListProspects_QueryParsing(t *testing.T) {
	var got model.ListQuery
	svc := &mockService{
		listFn: func(ctx context.Context, q model.ListQuery) (*model.ListResult, error) {
			got = q
			return &model.ListResult{Data: []model.Prospect{}, Meta: model.PageMeta{Page: q.Page, Limit: q.Limit, Total: 25}}, nil
		},
	}
	router, _ := setupRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/prospects?page=2&limit=10&search=acme&geo=EMEA&rag=Red", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.ListQuery{
		Page:   2,
		Limit:  10,
		Filter: model.ProspectFilter{Search: "acme", Geo: "EMEA", RAG: "Red"},
	}, got)

	body := decodeBody(t, w)
	assert.Equal(t, []any{}, body["data"])
	assert.Equal(t, map[string]any{"page": float64(2), "limit": float64(10), "total": float64(25)}, body["meta"])
}

func TestListProspects_BadNumbersUseDefaults(t *testing.T) {
	var got model.ListQuery
	svc := &mockService{
		listFn: func(ctx context.Context, q model.ListQuery) (*model.ListResult, error) {
			got = q
			return &model.ListResult{Data: []model.Prospect{}}, nil
		},
	}
	router, _ := setupRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/prospects?page=abc&limit=-5", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 20, got.Limit)
}

func TestListProspects_FaultIsForwarded(t *testing.T) {
	svc := &mockService{
		listFn: func(ctx context.Context, q model.ListQuery) (*model.ListResult, error) {
			return nil, stderrors.New("server selection timeout")
		},
	}
	router, _ := setupRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/prospects", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "Server error"}, decodeBody(t, w))
}

func TestExportProspects(t *testing.T) {
	var got model.ProspectFilter
	svc := &mockService{
		exportFn: func(ctx context.Context, f model.ProspectFilter) (*excelize.File, error) {
			got = f
			return excel.NewExporter().Build([]model.Prospect{{Prospect: "Acme"}})
		},
	}
	router, _ := setupRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/prospects/export?geo=EMEA&search=ac", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.ProspectFilter{Geo: "EMEA", Search: "ac"}, got)
	assert.Equal(t, excel.ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=prospect_data.xlsx", w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(excel.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestExportProspects_NoRecords(t *testing.T) {
	svc := &mockService{
		exportFn: func(ctx context.Context, f model.ProspectFilter) (*excelize.File, error) {
			return nil, errors.ErrNoRecords
		},
	}
	router, _ := setupRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/prospects/export", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "No records found"}, decodeBody(t, w))
}

func TestCharts(t *testing.T) {
	svc := &mockService{
		chartFn: func(ctx context.Context) (*model.ChartResponse, error) {
			return &model.ChartResponse{
				XAxis:        []string{"Retail"},
				SeriesLabels: []string{"EMEA"},
				Data:         map[string][]int{"EMEA": {2}},
				FilterNames:  []string{"Categories", "Geo"},
			}, nil
		},
	}
	router, _ := setupRouter(t, svc)

	for _, path := range []string{"/api/v1/prospects/chart/category-geo", "/api/v1/prospects/chart/category-month"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		require.Equal(t, http.StatusOK, w.Code, path)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, []any{"Retail"}, body["xAxis"])
		assert.Equal(t, []any{"EMEA"}, body["seriesLabels"])
		assert.Equal(t, map[string]any{"EMEA": []any{float64(2)}}, body["data"])
		assert.Equal(t, []any{"Categories", "Geo"}, body["filterNames"])
	}
}

func TestCharts_EmptyShapeOmitsFilterNames(t *testing.T) {
	svc := &mockService{
		chartFn: func(ctx context.Context) (*model.ChartResponse, error) {
			return &model.ChartResponse{XAxis: []string{}, SeriesLabels: []string{}, Data: map[string][]int{}}, nil
		},
	}
	router, _ := setupRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/prospects/chart/category-geo", nil))

	body := decodeBody(t, w)
	assert.Equal(t, []any{}, body["xAxis"])
	assert.Equal(t, map[string]any{}, body["data"])
	assert.NotContains(t, body, "filterNames")
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupRouter(t, &mockService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeBody(t, w)["status"])
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware([]string{"https://app.example.com"}))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryMiddleware())
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server error", decodeBody(t, w)["message"])
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/degree-audit-backend/internal/audit"
	"github.com/stemsi/degree-audit-backend/internal/database"
	"github.com/stemsi/degree-audit-backend/internal/middleware"
	"github.com/stemsi/degree-audit-backend/internal/model"
	"github.com/stemsi/degree-audit-backend/internal/response"
	"github.com/stemsi/degree-audit-backend/internal/service"
	"github.com/stemsi/degree-audit-backend/internal/validator"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	os.Exit(m.Run())
}

type stubAuditService struct {
	err error

	gotStudent   int
	gotFile      string
	gotBody      string
	gotDegreeKey string
	gotLimit     int
}

func (s *stubAuditService) view() *model.AuditView {
	return &model.AuditView{
		ID:      uuid.MustParse("7f2b8c1e-0d47-4a8e-9c55-4b0f7e3d2a10"),
		Source:  model.AuditSourceText,
		Summary: "Student: Alex Kim",
		Result:  &audit.Result{Metadata: audit.Metadata{StudentName: "Alex Kim"}},
	}
}

func (s *stubAuditService) AuditPDF(_ context.Context, studentID int, fileName string, r io.Reader, _ int64, degreeKey string) (*model.AuditView, error) {
	b, _ := io.ReadAll(r)
	s.gotStudent, s.gotFile, s.gotBody, s.gotDegreeKey = studentID, fileName, string(b), degreeKey
	if s.err != nil {
		return nil, s.err
	}
	return s.view(), nil
}

func (s *stubAuditService) AuditText(_ context.Context, studentID int, text, degreeKey string) (*model.AuditView, error) {
	s.gotStudent, s.gotBody, s.gotDegreeKey = studentID, text, degreeKey
	if s.err != nil {
		return nil, s.err
	}
	return s.view(), nil
}

func (s *stubAuditService) Get(_ context.Context, studentID int, _ uuid.UUID) (*model.AuditView, error) {
	s.gotStudent = studentID
	if s.err != nil {
		return nil, s.err
	}
	return s.view(), nil
}

func (s *stubAuditService) List(_ context.Context, studentID, limit int) ([]*model.AuditSummary, error) {
	s.gotStudent, s.gotLimit = studentID, limit
	if s.err != nil {
		return nil, s.err
	}
	return []*model.AuditSummary{{DegreeKey: "CMPSC_BS"}}, nil
}

func (s *stubAuditService) Plan(_ context.Context, studentID int, _ uuid.UUID) (*audit.Plan, error) {
	s.gotStudent = studentID
	if s.err != nil {
		return nil, s.err
	}
	return &audit.Plan{Years: []audit.PlanYear{{Label: "Year 1"}}}, nil
}

// asStudent stands in for RequireStudentJWT.
func asStudent(id int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{TokenType: service.TokenTypeStudent, UserID: id})
		c.Next()
	}
}

func auditRouter(svc AuditService) *gin.Engine {
	h := NewAuditHandler(svc, zerolog.Nop())
	r := gin.New()
	g := r.Group("/audits", asStudent(42))
	g.POST("", h.UploadReport)
	g.POST("/text", h.AuditText)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/plan", h.Plan)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func multipartBody(t *testing.T, fileName, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAuditHandler_UploadReport(t *testing.T) {
	svc := &stubAuditService{}
	r := auditRouter(svc)

	body, ct := multipartBody(t, "audit.pdf", "%PDF-1.4 report", map[string]string{"degree_key": "CMPSC_BS"})
	req := httptest.NewRequest(http.MethodPost, "/audits", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 42, svc.gotStudent)
	assert.Equal(t, "audit.pdf", svc.gotFile)
	assert.Equal(t, "%PDF-1.4 report", svc.gotBody)
	assert.Equal(t, "CMPSC_BS", svc.gotDegreeKey)

	data := decode(t, w).Data.(map[string]interface{})
	assert.Contains(t, data, "audit")
}

func TestAuditHandler_UploadReportValidation(t *testing.T) {
	r := auditRouter(&stubAuditService{})

	t.Run("missing file", func(t *testing.T) {
		body, ct := multipartBody(t, "", "", map[string]string{"degree_key": "CMPSC_BS"})
		req := httptest.NewRequest(http.MethodPost, "/audits", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.ErrFileRequired, decode(t, w).Error.Code)
	})

	t.Run("bad degree key", func(t *testing.T) {
		body, ct := multipartBody(t, "audit.pdf", "%PDF", map[string]string{"degree_key": "CMPSC BS;"})
		req := httptest.NewRequest(http.MethodPost, "/audits", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w)
		assert.Equal(t, response.ErrValidation, resp.Error.Code)
		assert.Contains(t, resp.Error.Fields, "degree_key")
	})
}

func TestAuditHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   response.ErrCode
	}{
		{"too large", fmt.Errorf("%w: 9 bytes", service.ErrFileTooLarge), http.StatusRequestEntityTooLarge, response.ErrFileTooLarge},
		{"not pdf", fmt.Errorf("%w: detected text/plain", service.ErrNotPDF), http.StatusUnsupportedMediaType, response.ErrUnsupportedFile},
		{"empty", service.ErrEmptyDocument, http.StatusUnprocessableEntity, response.ErrEmptyDocument},
		{"unreadable", fmt.Errorf("%w: xref", service.ErrUnreadablePDF), http.StatusUnprocessableEntity, response.ErrUnreadableDocument},
		{"unknown degree", fmt.Errorf("%w: HIST_BA", service.ErrUnknownDegreeKey), http.StatusUnprocessableEntity, response.ErrUnknownDegree},
		{"no table", service.ErrRequirementsUnavailable, http.StatusServiceUnavailable, response.ErrRequirementsUnavailable},
		{"other", errors.New("redis: connection refused"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := auditRouter(&stubAuditService{err: tt.err})

			payload := `{"text":"Name: Alex Kim FA 2022 CMPSC 131 Programming 3.00 A"}`
			req := httptest.NewRequest(http.MethodPost, "/audits/text", strings.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Error.Code)
		})
	}
}

func TestAuditHandler_AuditTextValidation(t *testing.T) {
	svc := &stubAuditService{}
	r := auditRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/audits/text", strings.NewReader(`{"text":"short"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, response.ErrValidation, resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "text")
	assert.Zero(t, svc.gotStudent, "service is not called on invalid input")
}

func TestAuditHandler_Reads(t *testing.T) {
	id := uuid.New().String()

	t.Run("list", func(t *testing.T) {
		svc := &stubAuditService{}
		w := httptest.NewRecorder()
		auditRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audits?limit=5", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 5, svc.gotLimit)
		assert.Contains(t, w.Body.String(), `"listing":{"limit":5,"returned":1,"truncated":false}`)
	})

	t.Run("list default limit", func(t *testing.T) {
		svc := &stubAuditService{}
		w := httptest.NewRecorder()
		auditRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audits", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, service.DefaultListLimit, svc.gotLimit)
	})

	t.Run("list limit out of range", func(t *testing.T) {
		w := httptest.NewRecorder()
		auditRouter(&stubAuditService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audits?limit=500", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		svc := &stubAuditService{}
		w := httptest.NewRecorder()
		auditRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audits/"+id, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 42, svc.gotStudent)
	})

	t.Run("get invalid id", func(t *testing.T) {
		w := httptest.NewRecorder()
		auditRouter(&stubAuditService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audits/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.ErrInvalidID, decode(t, w).Error.Code)
	})

	t.Run("get not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		auditRouter(&stubAuditService{err: service.ErrAuditNotFound}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audits/"+id, nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, response.ErrNotFound, decode(t, w).Error.Code)
	})

	t.Run("plan", func(t *testing.T) {
		w := httptest.NewRecorder()
		auditRouter(&stubAuditService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audits/"+id+"/plan", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"Year 1"`)
	})
}

type stubDegreeService struct {
	table     audit.RequirementTable
	loaded    bool
	reloadErr error
}

func (s *stubDegreeService) List() ([]model.DegreeSummary, error) {
	if !s.loaded {
		return nil, service.ErrRequirementsUnavailable
	}
	out := make([]model.DegreeSummary, 0, len(s.table))
	for _, d := range s.table {
		out = append(out, model.DegreeSummary{Key: d.Key, MajorName: d.MajorName})
	}
	return out, nil
}

func (s *stubDegreeService) Get(key string) (audit.DegreeRequirement, error) {
	d, ok := s.table[key]
	if !ok {
		return audit.DegreeRequirement{}, fmt.Errorf("%w: %s", service.ErrDegreeNotFound, key)
	}
	return d, nil
}

func (s *stubDegreeService) Reload(context.Context) (*service.DegreeSnapshot, error) {
	if s.reloadErr != nil {
		return nil, s.reloadErr
	}
	s.loaded = true
	return &service.DegreeSnapshot{Table: s.table, Version: "a1b2c3d4e5f6", Source: "stub", LoadedAt: time.Now()}, nil
}

func degreeRouter(svc DegreeService) *gin.Engine {
	h := NewDegreeHandler(svc, zerolog.Nop())
	r := gin.New()
	r.GET("/degrees", h.GetAll)
	r.GET("/degrees/:key", h.GetByKey)
	r.POST("/reload", h.Reload)
	return r
}

func TestDegreeHandler(t *testing.T) {
	table := audit.RequirementTable{
		"CMPSC_BS": {Key: "CMPSC_BS", MajorName: "Computer Science", TotalCredits: 120},
	}

	t.Run("list before load", func(t *testing.T) {
		w := httptest.NewRecorder()
		degreeRouter(&stubDegreeService{table: table}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/degrees", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("reload then list", func(t *testing.T) {
		r := degreeRouter(&stubDegreeService{table: table})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reload", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"version":"a1b2c3d4e5f6"`)

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/degrees", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Computer Science")
	})

	t.Run("get unknown", func(t *testing.T) {
		w := httptest.NewRecorder()
		degreeRouter(&stubDegreeService{table: table}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/degrees/HIST_BA", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("reload failure", func(t *testing.T) {
		w := httptest.NewRecorder()
		degreeRouter(&stubDegreeService{reloadErr: errors.New("duplicate degree key")}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reload", nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, response.ErrRequirementsUnavailable, decode(t, w).Error.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	snap := &service.DegreeSnapshot{Version: "v1", Source: "postgres", Table: audit.RequirementTable{"DS_BS": {}}}

	tests := []struct {
		name   string
		stores database.Status
		snap   *service.DegreeSnapshot
		status int
	}{
		{"all up", database.Status{Postgres: "up", Redis: "up"}, snap, http.StatusOK},
		{"redis down", database.Status{Postgres: "up", Redis: "down"}, snap, http.StatusServiceUnavailable},
		{"no table", database.Status{Postgres: "up", Redis: "up"}, nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(
				func(context.Context) database.Status { return tt.stores },
				func() (*service.DegreeSnapshot, error) {
					if tt.snap == nil {
						return nil, service.ErrRequirementsUnavailable
					}
					return tt.snap, nil
				},
				func(context.Context) (int64, error) { return 3, nil },
			)
			r := gin.New()
			r.GET("/health", h.Health)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.status, w.Code)
			var rep healthReport
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
			assert.Equal(t, int64(3), rep.PersistQueue)
			assert.Equal(t, tt.snap != nil, rep.Requirements != nil)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "2m 5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h 0m 1s", formatDuration(time.Hour+time.Second))
	assert.Equal(t, "1d 2h 0m 0s", formatDuration(26*time.Hour))
}

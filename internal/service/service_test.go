package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/degree-audit-backend/internal/audit"
	"github.com/stemsi/degree-audit-backend/internal/catalog"
	"github.com/stemsi/degree-audit-backend/internal/config"
	"github.com/stemsi/degree-audit-backend/internal/model"
	"github.com/stemsi/degree-audit-backend/internal/pdftext"
)

const sampleReport = `Name: Alex Kim
Computer Science Major Fall 2022
Level: 3rd Sem
Cum GPA: 3.10
FA 2022 CMPSC 131 Programming and Computation I 3.00 A
FA 2022 MATH 140 Calculus I 4.00 B
SP 2023 CMPSC 132 Programming and Computation II 3.00 IP
Total Units Required for the Degree
Units: 120 required, 10 used, 110 needed
`

type fakeSource struct {
	records []catalog.Record
	err     error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Records(context.Context) ([]catalog.Record, error) {
	return f.records, f.err
}

type fakeStore struct {
	mu      sync.Mutex
	results map[string]*audit.Result
	records map[uuid.UUID]*model.AuditRecord
	queued  []*model.AuditRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		results: make(map[string]*audit.Result),
		records: make(map[uuid.UUID]*model.AuditRecord),
	}
}

func (f *fakeStore) GetResult(_ context.Context, key string) (*audit.Result, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[key]
	return r, ok, nil
}

func (f *fakeStore) PutResult(_ context.Context, key string, res *audit.Result, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[key] = res
	return nil
}

func (f *fakeStore) Enqueue(_ context.Context, rec *model.AuditRecord, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.ID] = rec
	f.queued = append(f.queued, rec)
	return nil
}

func (f *fakeStore) GetRecord(_ context.Context, id uuid.UUID) (*model.AuditRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	return r, ok, nil
}

type fakeAuditRepo struct {
	byID map[uuid.UUID]*model.AuditRecord
}

func (f *fakeAuditRepo) Create(_ context.Context, a *model.AuditRecord) error {
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAuditRepo) GetByID(_ context.Context, id uuid.UUID) (*model.AuditRecord, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (f *fakeAuditRepo) ListByStudent(_ context.Context, studentID, limit int) ([]*model.AuditSummary, error) {
	out := make([]*model.AuditSummary, 0)
	for _, a := range f.byID {
		if a.StudentID == studentID && len(out) < limit {
			out = append(out, &model.AuditSummary{ID: a.ID, DegreeKey: a.DegreeKey})
		}
	}
	return out, nil
}

func testRecords() []catalog.Record {
	return []catalog.Record{
		{
			Key:          "CMPSC_BS",
			MajorName:    "Computer Science",
			TotalCredits: 120,
			Prescribed:   "CMPSC 121 or CMPSC 131, CMPSC 122, MATH 140, CMPSC 465 or CMPSC 475",
		},
		{Key: "DS_BS", MajorName: "Data Sciences", TotalCredits: 124, Prescribed: "DS 200"},
	}
}

type harness struct {
	svc    *AuditService
	store  *fakeStore
	repo   *fakeAuditRepo
	source *fakeSource
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	source := &fakeSource{records: testRecords()}
	degrees := NewDegreeService(source, zerolog.Nop())
	_, err := degrees.Reload(context.Background())
	require.NoError(t, err)

	engine, err := audit.NewEngine(audit.DefaultConfig())
	require.NoError(t, err)

	store := newFakeStore()
	repo := &fakeAuditRepo{byID: make(map[uuid.UUID]*model.AuditRecord)}
	cfg := &config.Config{MaxUploadBytes: 1024, AuditCacheTTL: time.Minute}

	return &harness{
		svc:    NewAuditService(engine, degrees, repo, store, cfg, zerolog.Nop()),
		store:  store,
		repo:   repo,
		source: source,
	}
}

func TestAuditTextRunsEngineAndQueues(t *testing.T) {
	h := newHarness(t)

	view, err := h.svc.AuditText(context.Background(), 7, sampleReport, "")
	require.NoError(t, err)

	res := view.Result
	assert.Equal(t, "Alex Kim", res.StudentName)
	assert.Equal(t, audit.Degree{Key: "CMPSC_BS", Name: "Computer Science", Status: audit.DegreeMatched}, res.Degree)
	assert.Equal(t, []audit.CourseCode{"CMPSC 465", "CMPSC 475"}, res.Courses.Remaining)
	assert.Equal(t, 8.3, res.Credits.ProgressPercent)
	assert.False(t, view.Cached)
	assert.Contains(t, view.Summary, "Major/Program: Computer Science")

	require.Len(t, h.store.queued, 1)
	rec := h.store.queued[0]
	assert.Equal(t, view.ID, rec.ID)
	assert.Equal(t, 7, rec.StudentID)
	assert.Equal(t, model.AuditSourceText, rec.Source)
	assert.Len(t, rec.DocumentHash, 64)
}

func TestAuditTextCachesByDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.AuditText(ctx, 1, sampleReport, "")
	require.NoError(t, err)
	second, err := h.svc.AuditText(ctx, 2, sampleReport, "")
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, h.store.results, 1)

	// A different explicit degree is a different cache entry.
	third, err := h.svc.AuditText(ctx, 1, sampleReport, "DS_BS")
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, audit.DegreeExplicit, third.Result.Degree.Status)
	assert.Len(t, h.store.results, 2)
}

func TestAuditTextRejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.AuditText(ctx, 1, "   \n", "")
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = h.svc.AuditText(ctx, 1, sampleReport, "HIST_BA")
	assert.ErrorIs(t, err, ErrUnknownDegreeKey)

	empty := NewDegreeService(&fakeSource{}, zerolog.Nop())
	h.svc.degrees = empty
	_, err = h.svc.AuditText(ctx, 1, sampleReport, "")
	assert.ErrorIs(t, err, ErrRequirementsUnavailable)
}

func TestAuditPDF(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pdf := []byte("%PDF-1.4\n%fake body\n")

	h.svc.extract = func(data []byte) (string, error) {
		assert.Equal(t, pdf, data)
		return sampleReport, nil
	}
	view, err := h.svc.AuditPDF(ctx, 3, "whatif.pdf", bytes.NewReader(pdf), int64(len(pdf)), "")
	require.NoError(t, err)
	assert.Equal(t, model.AuditSourcePDF, view.Source)
	assert.Equal(t, "whatif.pdf", view.FileName)

	_, err = h.svc.AuditPDF(ctx, 3, "notes.txt", bytes.NewReader([]byte("plain text")), 10, "")
	assert.ErrorIs(t, err, ErrNotPDF)

	_, err = h.svc.AuditPDF(ctx, 3, "big.pdf", bytes.NewReader(pdf), 4096, "")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	big := append([]byte("%PDF-1.4\n"), make([]byte, 2048)...)
	_, err = h.svc.AuditPDF(ctx, 3, "liar.pdf", bytes.NewReader(big), 10, "")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	h.svc.extract = func([]byte) (string, error) { return "", pdftext.ErrNoText }
	_, err = h.svc.AuditPDF(ctx, 3, "scan.pdf", bytes.NewReader(pdf), int64(len(pdf)), "")
	assert.ErrorIs(t, err, ErrEmptyDocument)

	h.svc.extract = func([]byte) (string, error) { return "", errors.New("bad xref") }
	_, err = h.svc.AuditPDF(ctx, 3, "broken.pdf", bytes.NewReader(pdf), int64(len(pdf)), "")
	assert.ErrorIs(t, err, ErrUnreadablePDF)
}

func TestGetAndPlan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	view, err := h.svc.AuditText(ctx, 5, sampleReport, "")
	require.NoError(t, err)

	got, err := h.svc.Get(ctx, 5, view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.Result.Courses.Remaining, got.Result.Courses.Remaining)
	assert.Equal(t, view.Result.Courses.Taken[0].Term, got.Result.Courses.Taken[0].Term)

	_, err = h.svc.Get(ctx, 6, view.ID)
	assert.ErrorIs(t, err, ErrAuditNotFound)

	// Once persisted and evicted from the store, reads fall through to Postgres.
	rec := h.store.records[view.ID]
	delete(h.store.records, view.ID)
	require.NoError(t, h.repo.Create(ctx, rec))
	got, err = h.svc.Get(ctx, 5, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "CMPSC_BS", got.Result.Degree.Key)

	_, err = h.svc.Get(ctx, 5, uuid.New())
	assert.ErrorIs(t, err, ErrAuditNotFound)

	plan, err := h.svc.Plan(ctx, 5, view.ID)
	require.NoError(t, err)
	require.Len(t, plan.Years, 4)
	assert.Equal(t, 16.0, plan.Years[0].Credits)
	assert.Len(t, plan.Years[0].Courses, 5)
	assert.Empty(t, plan.Years[1].Courses)
}

func TestDegreeServiceReload(t *testing.T) {
	source := &fakeSource{records: testRecords()}
	svc := NewDegreeService(source, zerolog.Nop())

	_, err := svc.Snapshot()
	assert.ErrorIs(t, err, ErrRequirementsUnavailable)

	first, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Len(t, first.Table, 2)

	list, err := svc.List()
	require.NoError(t, err)
	assert.Equal(t, "CMPSC_BS", list[0].Key)
	assert.Equal(t, 4, list[0].Groups)

	_, err = svc.Get("HIST_BA")
	assert.ErrorIs(t, err, ErrDegreeNotFound)

	// Same content, same version.
	again, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Version, again.Version)

	source.records = append(source.records, catalog.Record{Key: "MATH_BS", Prescribed: "MATH 140"})
	changed, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.Version, changed.Version)

	// A failed reload keeps the previous snapshot.
	source.err = errors.New("db down")
	_, err = svc.Reload(context.Background())
	assert.Error(t, err)
	snap, err := svc.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, changed.Version, snap.Version)
}

func TestAuthServiceTokens(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour})

	token, err := svc.IssueToken(TokenTypeAdmin, 9, []string{PermissionReloadDegrees})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAdmin, claims.TokenType)
	assert.Equal(t, 9, claims.UserID)
	assert.True(t, claims.HasPermission(PermissionReloadDegrees))

	other := NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	_, err = svc.IssueToken("guest", 1, nil)
	assert.Error(t, err)
}

package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/degree-audit-backend/internal/audit"
	"github.com/stemsi/degree-audit-backend/internal/config"
	"github.com/stemsi/degree-audit-backend/internal/model"
	"github.com/stemsi/degree-audit-backend/internal/pdftext"
	"github.com/stemsi/degree-audit-backend/internal/repository"
)

// Sentinel errors for audit requests.
var (
	ErrNotPDF           = errors.New("document is not a PDF")
	ErrFileTooLarge     = errors.New("file too large")
	ErrEmptyDocument    = errors.New("document has no text")
	ErrUnreadablePDF    = errors.New("pdf could not be read")
	ErrAuditNotFound    = errors.New("audit not found")
	ErrUnknownDegreeKey = errors.New("unknown degree key")
)

// DefaultListLimit bounds an audit listing when the caller gives no limit.
const DefaultListLimit = 20

// TextExtractor turns document bytes into report text.
type TextExtractor func(data []byte) (string, error)

// AuditService runs audits, caches them by document and hands them to the
// persist worker.
type AuditService struct {
	engine  *audit.Engine
	degrees *DegreeService
	repo    repository.AuditRepository
	store   AuditStore
	extract TextExtractor
	cfg     *config.Config
	log     zerolog.Logger
}

// NewAuditService creates a new AuditService using the PDF text extractor.
func NewAuditService(
	engine *audit.Engine,
	degrees *DegreeService,
	repo repository.AuditRepository,
	store AuditStore,
	cfg *config.Config,
	log zerolog.Logger,
) *AuditService {
	return &AuditService{
		engine:  engine,
		degrees: degrees,
		repo:    repo,
		store:   store,
		extract: pdftext.Extract,
		cfg:     cfg,
		log:     log.With().Str("component", "audit_service").Logger(),
	}
}

// AuditPDF audits an uploaded report. size is the declared upload size; the
// body is still read through a limit.
func (s *AuditService) AuditPDF(ctx context.Context, studentID int, fileName string, r io.Reader, size int64, degreeKey string) (*model.AuditView, error) {
	if size > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, size, s.cfg.MaxUploadBytes)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, s.cfg.MaxUploadBytes)
	}

	if mt := mimetype.Detect(data); !mt.Is("application/pdf") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotPDF, mt.String())
	}

	text, err := s.extract(data)
	if err != nil {
		if errors.Is(err, pdftext.ErrNoText) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}

	return s.run(ctx, auditInput{
		studentID: studentID,
		source:    model.AuditSourcePDF,
		fileName:  fileName,
		text:      text,
		degreeKey: degreeKey,
	})
}

// AuditText audits report text that was extracted by the caller.
func (s *AuditService) AuditText(ctx context.Context, studentID int, text, degreeKey string) (*model.AuditView, error) {
	return s.run(ctx, auditInput{
		studentID: studentID,
		source:    model.AuditSourceText,
		text:      text,
		degreeKey: degreeKey,
	})
}

type auditInput struct {
	studentID int
	source    model.AuditSource
	fileName  string
	text      string
	degreeKey string
}

func (s *AuditService) run(ctx context.Context, in auditInput) (*model.AuditView, error) {
	if strings.TrimSpace(in.text) == "" {
		return nil, ErrEmptyDocument
	}

	snap, err := s.degrees.Snapshot()
	if err != nil {
		return nil, err
	}
	if in.degreeKey != "" {
		if _, ok := snap.Table[in.degreeKey]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDegreeKey, in.degreeKey)
		}
	}

	sum := sha256.Sum256([]byte(in.text))
	docHash := hex.EncodeToString(sum[:])
	cacheKey := config.CacheKey.AuditResultKey(docHash, in.degreeKey, snap.Version)

	res, cached, err := s.store.GetResult(ctx, cacheKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("Audit cache read failed")
	}
	if !cached {
		if in.degreeKey != "" {
			res = s.engine.RunFor(in.text, snap.Table, in.degreeKey)
		} else {
			res = s.engine.Run(in.text, snap.Table)
		}
		if err := s.store.PutResult(ctx, cacheKey, res, s.cfg.AuditCacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", cacheKey).Msg("Audit cache write failed")
		}
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	rec := &model.AuditRecord{
		ID:              uuid.New(),
		StudentID:       in.studentID,
		Source:          in.source,
		FileName:        in.fileName,
		DocumentHash:    docHash,
		DegreeKey:       res.Degree.Key,
		DegreeStatus:    string(res.Degree.Status),
		Major:           res.Major,
		ProgressPercent: res.Credits.ProgressPercent,
		Result:          payload,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.Enqueue(ctx, rec, s.cfg.AuditCacheTTL); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("audit_id", rec.ID.String()).
		Int("student_id", in.studentID).
		Str("degree", res.Degree.Key).
		Str("degree_status", string(res.Degree.Status)).
		Int("taken", len(res.Courses.Taken)).
		Int("in_progress", len(res.Courses.InProgress)).
		Int("remaining", len(res.Courses.Remaining)).
		Str("credits_source", string(res.Credits.Source)).
		Bool("cached", cached).
		Msg("Audit completed")

	return viewOf(rec, res, cached), nil
}

// Get returns one of the student's audits, pending or persisted.
func (s *AuditService) Get(ctx context.Context, studentID int, id uuid.UUID) (*model.AuditView, error) {
	rec, ok, err := s.store.GetRecord(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("audit_id", id.String()).Msg("Pending audit read failed")
	}
	if !ok {
		rec, err = s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrAuditNotFound
			}
			return nil, fmt.Errorf("get audit: %w", err)
		}
	}
	if rec.StudentID != studentID {
		return nil, ErrAuditNotFound
	}

	var res audit.Result
	if err := json.Unmarshal(rec.Result, &res); err != nil {
		return nil, fmt.Errorf("decode audit %s: %w", id, err)
	}
	return viewOf(rec, &res, false), nil
}

// List returns the student's most recent audits.
func (s *AuditService) List(ctx context.Context, studentID, limit int) ([]*model.AuditSummary, error) {
	if limit < 1 {
		limit = DefaultListLimit
	}
	return s.repo.ListByStudent(ctx, studentID, limit)
}

// Plan lays out one of the student's audits year by year.
func (s *AuditService) Plan(ctx context.Context, studentID int, id uuid.UUID) (*audit.Plan, error) {
	view, err := s.Get(ctx, studentID, id)
	if err != nil {
		return nil, err
	}
	cfg := s.engine.Config()
	plan := audit.BuildPlan(view.Result, cfg.PlanYears, cfg.PlanCreditsPerYear, cfg.RemainingCourseUnits)
	return &plan, nil
}

func viewOf(rec *model.AuditRecord, res *audit.Result, cached bool) *model.AuditView {
	return &model.AuditView{
		ID:        rec.ID,
		Source:    rec.Source,
		FileName:  rec.FileName,
		Cached:    cached,
		Summary:   res.Summary(),
		Result:    res,
		CreatedAt: rec.CreatedAt,
	}
}

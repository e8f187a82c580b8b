package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/degree-audit-backend/internal/audit"
	"github.com/stemsi/degree-audit-backend/internal/catalog"
	"github.com/stemsi/degree-audit-backend/internal/model"
	"github.com/stemsi/degree-audit-backend/internal/repository"
)

// Sentinel errors for requirement lookups.
var (
	ErrRequirementsUnavailable = errors.New("requirement table not loaded")
	ErrDegreeNotFound          = errors.New("degree not found")
)

// RecordSource supplies raw requirement rows.
type RecordSource interface {
	Name() string
	Records(ctx context.Context) ([]catalog.Record, error)
}

type repositorySource struct {
	repo repository.DegreeRepository
}

// NewRepositorySource reads requirement rows from the degrees table.
func NewRepositorySource(repo repository.DegreeRepository) RecordSource {
	return &repositorySource{repo: repo}
}

func (s *repositorySource) Name() string { return "postgres" }

func (s *repositorySource) Records(ctx context.Context) ([]catalog.Record, error) {
	degrees, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list degrees: %w", err)
	}
	records := make([]catalog.Record, 0, len(degrees))
	for _, d := range degrees {
		records = append(records, RecordFromModel(d))
	}
	return records, nil
}

type fileSource struct {
	path string
}

// NewFileSource reads requirement rows from a CSV or XLSX file.
func NewFileSource(path string) RecordSource {
	return &fileSource{path: path}
}

func (s *fileSource) Name() string { return s.path }

func (s *fileSource) Records(_ context.Context) ([]catalog.Record, error) {
	return catalog.LoadFile(s.path)
}

// RecordFromModel maps a stored degree onto a catalog record.
func RecordFromModel(d *model.Degree) catalog.Record {
	return catalog.Record{
		Key:               d.Key,
		MajorName:         d.MajorName,
		TotalCredits:      d.TotalCredits,
		MajorCredits:      d.MajorCredits,
		GenEdCredits:      d.GenEdCredits,
		Prescribed:        d.Prescribed,
		Additional:        d.Additional,
		OptionsLabel:      d.OptionsLabel,
		GeneralOption:     d.GeneralOption,
		DataScienceOption: d.DataScienceOption,
	}
}

// ModelFromRecord is the inverse of RecordFromModel.
func ModelFromRecord(r catalog.Record) *model.Degree {
	return &model.Degree{
		Key:               r.Key,
		MajorName:         r.MajorName,
		TotalCredits:      r.TotalCredits,
		MajorCredits:      r.MajorCredits,
		GenEdCredits:      r.GenEdCredits,
		Prescribed:        r.Prescribed,
		Additional:        r.Additional,
		OptionsLabel:      r.OptionsLabel,
		GeneralOption:     r.GeneralOption,
		DataScienceOption: r.DataScienceOption,
	}
}

// DegreeSnapshot is one loaded requirement table. It is never mutated.
type DegreeSnapshot struct {
	Table    audit.RequirementTable
	Version  string
	Source   string
	LoadedAt time.Time
}

// DegreeService owns the current requirement table. Readers get an immutable
// snapshot; Reload swaps in a new one atomically.
type DegreeService struct {
	source  RecordSource
	current atomic.Pointer[DegreeSnapshot]
	log     zerolog.Logger
}

// NewDegreeService creates a DegreeService. Call Reload before serving.
func NewDegreeService(source RecordSource, log zerolog.Logger) *DegreeService {
	return &DegreeService{
		source: source,
		log:    log.With().Str("component", "degree_service").Logger(),
	}
}

// Reload reads the source and publishes a new snapshot. On failure the
// previous snapshot stays in place.
func (s *DegreeService) Reload(ctx context.Context) (*DegreeSnapshot, error) {
	records, err := s.source.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("load requirements from %s: %w", s.source.Name(), err)
	}
	table, err := catalog.Build(records)
	if err != nil {
		return nil, fmt.Errorf("build requirement table: %w", err)
	}

	version, err := tableVersion(table)
	if err != nil {
		return nil, err
	}

	snap := &DegreeSnapshot{
		Table:    table,
		Version:  version,
		Source:   s.source.Name(),
		LoadedAt: time.Now().UTC(),
	}
	prev := s.current.Swap(snap)

	ev := s.log.Info().
		Int("degrees", len(table)).
		Str("version", version).
		Str("source", snap.Source)
	if prev != nil {
		ev = ev.Str("previous_version", prev.Version)
	}
	ev.Msg("Requirement table loaded")

	return snap, nil
}

// Snapshot returns the current table.
func (s *DegreeService) Snapshot() (*DegreeSnapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrRequirementsUnavailable
	}
	return snap, nil
}

// List summarizes every degree, sorted by key.
func (s *DegreeService) List() ([]model.DegreeSummary, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	out := make([]model.DegreeSummary, 0, len(snap.Table))
	for _, d := range snap.Table {
		out = append(out, model.DegreeSummary{
			Key:          d.Key,
			MajorName:    d.MajorName,
			TotalCredits: d.TotalCredits,
			Groups:       len(d.Prescribed) + len(d.Additional) + len(d.GeneralOption) + len(d.DataScienceOption),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get returns one parsed degree requirement.
func (s *DegreeService) Get(key string) (audit.DegreeRequirement, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return audit.DegreeRequirement{}, err
	}
	d, ok := snap.Table[key]
	if !ok {
		return audit.DegreeRequirement{}, fmt.Errorf("%w: %s", ErrDegreeNotFound, key)
	}
	return d, nil
}

// tableVersion is a content hash, so identical tables share cached audits
// across instances.
func tableVersion(table audit.RequirementTable) (string, error) {
	b, err := json.Marshal(table)
	if err != nil {
		return "", fmt.Errorf("hash requirement table: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:6]), nil
}

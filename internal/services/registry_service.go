package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/stwalsh4118/ppm/api/internal/logger"
	"github.com/stwalsh4118/ppm/api/internal/metrics"
	"github.com/stwalsh4118/ppm/api/internal/models"
	"github.com/stwalsh4118/ppm/api/internal/registry"
	"github.com/stwalsh4118/ppm/api/internal/spreadsheet"
	"github.com/stwalsh4118/ppm/api/internal/table"
)

// ManyDepartments is the department count from which a SIREN search is
// reported as potentially slow.
const ManyDepartments = 3

// ParcelQuery is a pending search by parcel identifiers.
type ParcelQuery struct {
	Idus  []models.Idu
	Views registry.ViewOptions
}

// SirenQuery is a pending search by legal-person identifiers, limited to
// a set of departments.
type SirenQuery struct {
	Sirens      []models.Siren
	Departments []models.DepartmentCode
	Views       registry.ViewOptions
}

// SearchResult is the displayed table of a search, views applied and rows
// sorted by parcel.
type SearchResult struct {
	Table    *table.Table
	Warnings []string
}

// ColumnChoice describes the sheet and column an import read from, and the
// alternatives the workbook offered.
type ColumnChoice struct {
	Sheets  []string
	Sheet   string
	Columns []string
	Column  string
}

// ImportResult lists the identifiers read from one column of an uploaded
// workbook.
type ImportResult[T any] struct {
	ColumnChoice
	Values   []T
	Rejected []string
}

// RegistryService defines the property search operations.
type RegistryService interface {
	// SearchParcels builds a fresh registry from the given parcels.
	// Returns a validation error for malformed identifiers and a
	// *registry.RetrievalError when the source fails.
	SearchParcels(ctx context.Context, q ParcelQuery) (*SearchResult, error)

	// SearchSirens builds a fresh registry from the given legal persons.
	// An empty department set yields an empty result.
	SearchSirens(ctx context.Context, q SirenQuery) (*SearchResult, error)

	// Export renders a search result as an xlsx workbook.
	Export(result *SearchResult) ([]byte, error)

	// ComposeIdu builds a parcel identifier from its four components.
	ComposeIdu(insee, communeAbsorbee, section, numero string) (models.Idu, error)

	// Departments lists the departments a SIREN search may be limited to.
	Departments() []models.Department

	// ImportIdus reads parcel identifiers from a column of an xlsx upload.
	ImportIdus(r io.Reader, sheet, column string) (*ImportResult[models.Idu], error)

	// ImportSirens reads legal-person identifiers from a column of an xlsx upload.
	ImportSirens(r io.Reader, sheet, column string) (*ImportResult[models.Siren], error)
}

// registryService is the concrete implementation of RegistryService.
type registryService struct {
	retriever      registry.Retriever
	encoder        *spreadsheet.Encoder
	metrics        *metrics.Metrics
	log            *logger.Logger
	baseLog        *logger.Logger // untagged, handed to each registry
	importMaxBytes int64
}

// NewRegistryService creates a new instance of RegistryService.
func NewRegistryService(
	retriever registry.Retriever,
	encoder *spreadsheet.Encoder,
	m *metrics.Metrics,
	log *logger.Logger,
	importMaxBytes int64,
) RegistryService {
	if log == nil {
		log = logger.Nop()
	}
	if encoder == nil {
		encoder = spreadsheet.NewEncoder(spreadsheet.DefaultSheetName)
	}
	return &registryService{
		retriever:      retriever,
		encoder:        encoder,
		metrics:        m,
		log:            log.WithComponent("registry_service"),
		baseLog:        log,
		importMaxBytes: importMaxBytes,
	}
}

// SearchParcels populates a registry from the parcel identifiers and
// returns its display table.
func (s *registryService) SearchParcels(ctx context.Context, q ParcelQuery) (*SearchResult, error) {
	s.log.Info("Searching parcels", map[string]interface{}{
		"idus":         len(q.Idus),
		"merge_suf":    q.Views.MergeSuf,
		"merge_rights": q.Views.MergeRights,
		"essential":    q.Views.Essential,
	})

	start := time.Now()
	reg := registry.New(s.retriever, s.baseLog)
	if err := reg.FetchCadRefs(ctx, q.Idus); err != nil {
		s.metrics.ObserveQuery(metrics.KindIdu, queryResult(err), time.Since(start), 0)
		return nil, fmt.Errorf("failed to search parcels: %w", err)
	}
	s.metrics.ObserveQuery(metrics.KindIdu, metrics.ResultSuccess, time.Since(start), reg.RowCount())

	result := s.display(reg, q.Views)
	s.log.Info("Parcel search complete", map[string]interface{}{
		"idus":      len(q.Idus),
		"rows":      reg.RowCount(),
		"displayed": result.Table.RowCount(),
	})
	return result, nil
}

// SearchSirens populates a registry from the SIRENs and departments and
// returns its display table.
func (s *registryService) SearchSirens(ctx context.Context, q SirenQuery) (*SearchResult, error) {
	var warnings []string
	if n := countDistinct(q.Departments); n >= ManyDepartments {
		s.log.Warn("Many departments requested", map[string]interface{}{
			"departments": n,
		})
		warnings = append(warnings, fmt.Sprintf("%d departments selected, the search may be slow", n))
	}

	s.log.Info("Searching legal persons", map[string]interface{}{
		"sirens":       len(q.Sirens),
		"departments":  q.Departments,
		"merge_suf":    q.Views.MergeSuf,
		"merge_rights": q.Views.MergeRights,
		"essential":    q.Views.Essential,
	})

	start := time.Now()
	reg := registry.New(s.retriever, s.baseLog)
	if err := reg.FetchSirens(ctx, q.Sirens, q.Departments); err != nil {
		s.metrics.ObserveQuery(metrics.KindSiren, queryResult(err), time.Since(start), 0)
		return nil, fmt.Errorf("failed to search legal persons: %w", err)
	}
	s.metrics.ObserveQuery(metrics.KindSiren, metrics.ResultSuccess, time.Since(start), reg.RowCount())

	result := s.display(reg, q.Views)
	result.Warnings = warnings
	s.log.Info("Legal person search complete", map[string]interface{}{
		"sirens":    len(q.Sirens),
		"rows":      reg.RowCount(),
		"displayed": result.Table.RowCount(),
	})
	return result, nil
}

func (s *registryService) display(reg *registry.Registry, opts registry.ViewOptions) *SearchResult {
	view := reg.Apply(opts.Views()...)
	view.SortByIdu()
	return &SearchResult{Table: view.Table()}
}

// Export renders the result table, nulls left blank.
func (s *registryService) Export(result *SearchResult) ([]byte, error) {
	if result == nil || result.Table == nil {
		return nil, errors.New("no result to export")
	}
	data, err := s.encoder.Encode(result.Table)
	if err != nil {
		s.log.Error("Failed to encode export", err, map[string]interface{}{
			"rows": result.Table.RowCount(),
		})
		return nil, fmt.Errorf("failed to export result: %w", err)
	}
	s.metrics.IncrementExport("xlsx")
	s.log.Debug("Result exported", map[string]interface{}{
		"rows":  result.Table.RowCount(),
		"bytes": len(data),
	})
	return data, nil
}

// ComposeIdu validates the four components and reports every failing one.
func (s *registryService) ComposeIdu(insee, communeAbsorbee, section, numero string) (models.Idu, error) {
	idu, err := models.ParseIdu(insee, communeAbsorbee, section, numero)
	if err != nil {
		s.log.Debug("Invalid IDU components", map[string]interface{}{
			"insee":            insee,
			"commune_absorbee": communeAbsorbee,
			"section":          section,
			"numero":           numero,
		})
		return models.Idu{}, err
	}
	return idu, nil
}

func (s *registryService) Departments() []models.Department {
	return models.Departments()
}

func (s *registryService) ImportIdus(r io.Reader, sheet, column string) (*ImportResult[models.Idu], error) {
	values, choice, err := s.readColumn(r, sheet, column)
	if err != nil {
		return nil, err
	}
	imported := spreadsheet.ImportIdus(values)
	out := &ImportResult[models.Idu]{
		ColumnChoice: choice,
		Values:       imported.Values,
		Rejected:     imported.Rejected,
	}
	s.log.Info("IDUs imported", map[string]interface{}{
		"sheet":    out.Sheet,
		"column":   out.Column,
		"kept":     len(out.Values),
		"rejected": len(out.Rejected),
	})
	return out, nil
}

func (s *registryService) ImportSirens(r io.Reader, sheet, column string) (*ImportResult[models.Siren], error) {
	values, choice, err := s.readColumn(r, sheet, column)
	if err != nil {
		return nil, err
	}
	imported := spreadsheet.ImportSirens(values)
	out := &ImportResult[models.Siren]{
		ColumnChoice: choice,
		Values:       imported.Values,
		Rejected:     imported.Rejected,
	}
	s.log.Info("SIRENs imported", map[string]interface{}{
		"sheet":    out.Sheet,
		"column":   out.Column,
		"kept":     len(out.Values),
		"rejected": len(out.Rejected),
	})
	return out, nil
}

// readColumn opens the workbook and reads the chosen column. The first
// sheet and the only column are chosen when none is given.
func (s *registryService) readColumn(r io.Reader, sheet, column string) ([]string, ColumnChoice, error) {
	var res ColumnChoice

	wb, err := spreadsheet.OpenWorkbook(r, s.importMaxBytes)
	if err != nil {
		s.log.Warn("Unreadable upload", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, res, err
	}

	res.Sheets = wb.Sheets()
	res.Sheet = sheet
	if res.Sheet == "" && len(res.Sheets) > 0 {
		res.Sheet = res.Sheets[0]
	}

	res.Columns, err = wb.Headers(res.Sheet)
	if err != nil {
		return nil, res, err
	}
	res.Column = column
	if res.Column == "" && len(res.Columns) == 1 {
		res.Column = res.Columns[0]
	}

	values, err := wb.Values(res.Sheet, res.Column)
	if err != nil {
		return nil, res, err
	}
	return values, res, nil
}

// queryResult classifies a failed search for metrics.
func queryResult(err error) string {
	if errors.Is(err, models.ErrInvalidFormat) || errors.Is(err, models.ErrTooShort) {
		return metrics.ResultInvalid
	}
	return metrics.ResultError
}

func countDistinct(departments []models.DepartmentCode) int {
	codes := slices.Clone(departments)
	slices.SortFunc(codes, func(a, b models.DepartmentCode) int {
		return strings.Compare(string(a), string(b))
	})
	return len(slices.Compact(codes))
}

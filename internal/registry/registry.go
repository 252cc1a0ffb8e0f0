package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/stwalsh4118/ppm/api/internal/logger"
	"github.com/stwalsh4118/ppm/api/internal/models"
	"github.com/stwalsh4118/ppm/api/internal/table"
)

// Retriever is the land-registry data source queried by a Registry.
type Retriever interface {
	// FindByIdus returns the ownership rows of the given parcels.
	FindByIdus(ctx context.Context, idus []models.Idu) ([]models.ParcelRecord, error)

	// FindBySirens returns the ownership rows of the given legal persons,
	// restricted to parcels located in the given departments.
	FindBySirens(ctx context.Context, sirens []models.Siren, departments []models.DepartmentCode) ([]models.ParcelRecord, error)
}

// Registry holds the ownership table of one query. It is populated exactly
// once by FetchCadRefs or FetchSirens; views derived from it are new
// registries that share no rows with their source.
type Registry struct {
	retriever Retriever
	log       *logger.Logger
	table     *table.Table
	populated bool
}

// New creates an empty registry backed by retriever.
func New(retriever Retriever, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		retriever: retriever,
		log:       log.WithComponent("registry"),
		table:     table.New(table.ParcelColumns...),
	}
}

// FetchCadRefs populates the registry with the rows of the given parcels.
// Duplicate identifiers are queried once. Either every row is committed or,
// on error, the registry is left empty and unpopulated.
func (r *Registry) FetchCadRefs(ctx context.Context, idus []models.Idu) error {
	if r.populated {
		return ErrAlreadyPopulated
	}
	for i, idu := range idus {
		if idu.IsZero() {
			return fmt.Errorf("idu at index %d: %w", i, models.ErrInvalidFormat)
		}
	}

	unique := dedupe(idus, models.Idu.Compare)
	if len(unique) == 0 {
		r.commit(nil)
		return nil
	}

	r.log.Debug("Fetching parcels", map[string]interface{}{
		"idus": len(unique),
	})

	records, err := r.retriever.FindByIdus(ctx, unique)
	if err != nil {
		r.log.Error("Parcel retrieval failed", err, map[string]interface{}{
			"idus": len(unique),
		})
		return &RetrievalError{Op: "fetch cad refs", Err: err}
	}

	r.commit(records)
	r.log.Info("Registry populated from parcels", map[string]interface{}{
		"idus": len(unique),
		"rows": r.table.RowCount(),
	})
	return nil
}

// FetchSirens populates the registry with the rows owned by the given legal
// persons in the given departments. An empty department set yields an empty
// registry without querying the source. Rows outside the departments are
// dropped here even if the source returned them.
func (r *Registry) FetchSirens(ctx context.Context, sirens []models.Siren, departments []models.DepartmentCode) error {
	if r.populated {
		return ErrAlreadyPopulated
	}
	for i, s := range sirens {
		if s.IsZero() {
			return fmt.Errorf("siren at index %d: %w", i, models.ErrTooShort)
		}
	}
	for _, d := range departments {
		if _, err := models.ParseDepartmentCode(string(d)); err != nil {
			return err
		}
	}

	uniqueSirens := dedupe(sirens, models.Siren.Compare)
	uniqueDepts := dedupe(departments, func(a, b models.DepartmentCode) int {
		return strings.Compare(string(a), string(b))
	})

	if len(uniqueDepts) == 0 || len(uniqueSirens) == 0 {
		r.log.Debug("Empty SIREN query, nothing to fetch", map[string]interface{}{
			"sirens":      len(uniqueSirens),
			"departments": len(uniqueDepts),
		})
		r.commit(nil)
		return nil
	}

	r.log.Debug("Fetching legal persons", map[string]interface{}{
		"sirens":      len(uniqueSirens),
		"departments": uniqueDepts,
	})

	records, err := r.retriever.FindBySirens(ctx, uniqueSirens, uniqueDepts)
	if err != nil {
		r.log.Error("SIREN retrieval failed", err, map[string]interface{}{
			"sirens":      len(uniqueSirens),
			"departments": uniqueDepts,
		})
		return &RetrievalError{Op: "fetch sirens", Err: err}
	}

	var kept []models.ParcelRecord
	for _, rec := range records {
		if slices.Contains(uniqueDepts, rec.Idu.Department()) {
			kept = append(kept, rec)
		}
	}
	if dropped := len(records) - len(kept); dropped > 0 {
		r.log.Warn("Dropped rows outside the requested departments", map[string]interface{}{
			"dropped": dropped,
		})
	}

	r.commit(kept)
	r.log.Info("Registry populated from SIRENs", map[string]interface{}{
		"sirens": len(uniqueSirens),
		"rows":   r.table.RowCount(),
	})
	return nil
}

func (r *Registry) commit(records []models.ParcelRecord) {
	r.table = table.FromRecords(records)
	r.populated = true
}

// IsEmpty reports whether the registry holds no rows.
func (r *Registry) IsEmpty() bool {
	return r.table.RowCount() == 0
}

// IsPopulated reports whether an ingestion call has completed.
func (r *Registry) IsPopulated() bool {
	return r.populated
}

// Table returns a copy of the registry's table.
func (r *Registry) Table() *table.Table {
	return r.table.Clone()
}

// RowCount returns the number of rows.
func (r *Registry) RowCount() int {
	return r.table.RowCount()
}

// Apply returns a new registry holding the result of the views applied in
// order. The receiver is not modified.
func (r *Registry) Apply(views ...View) *Registry {
	return &Registry{
		log:       r.log,
		table:     Compose(views...)(r.table),
		populated: true,
	}
}

// MergedSuf groups fiscal subdivisions held by the same owners.
func (r *Registry) MergedSuf() *Registry { return r.Apply(MergedSufView) }

// MergedRights puts the rights of a legal person on one row.
func (r *Registry) MergedRights() *Registry { return r.Apply(MergedRightsView) }

// Essential keeps only the essential columns.
func (r *Registry) Essential() *Registry { return r.Apply(EssentialView) }

// NullsAsEmptyString renders missing text as empty strings. Apply it last.
func (r *Registry) NullsAsEmptyString() *Registry { return r.Apply(NullsAsEmptyView) }

// SortByIdu sorts this registry's own rows by idu, suf and siren.
func (r *Registry) SortByIdu() {
	r.table.SortByIdu()
}

// dedupe returns the distinct values of items in ascending order.
func dedupe[T any](items []T, compare func(a, b T) int) []T {
	out := slices.Clone(items)
	slices.SortFunc(out, compare)
	return slices.CompactFunc(out, func(a, b T) bool { return compare(a, b) == 0 })
}

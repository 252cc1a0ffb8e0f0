package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/ppm/api/internal/config"
	"github.com/stwalsh4118/ppm/api/internal/database"
	"github.com/stwalsh4118/ppm/api/internal/models"
	"golang.org/x/sync/errgroup"
)

// PropertyRepository defines the data access operations on the legal-person
// property table. It satisfies registry.Retriever.
type PropertyRepository interface {
	// FindByIdus returns every ownership row of the given parcels.
	// Returns an empty slice if none is found (not an error).
	FindByIdus(ctx context.Context, idus []models.Idu) ([]models.ParcelRecord, error)

	// FindBySirens returns every ownership row held by the given legal
	// persons on parcels located in the given departments.
	FindBySirens(ctx context.Context, sirens []models.Siren, departments []models.DepartmentCode) ([]models.ParcelRecord, error)

	// CheckSource reports ErrSourceMissing when the configured property
	// table does not exist.
	CheckSource(ctx context.Context) error
}

// ErrSourceMissing is returned by CheckSource when the property table cannot
// be resolved in the connected database.
var ErrSourceMissing = errors.New("property table not found")

// propertyRepository is the concrete implementation of PropertyRepository.
type propertyRepository struct {
	db  *database.Database
	cfg config.RetrievalConfig
}

// NewPropertyRepository creates a new instance of PropertyRepository.
func NewPropertyRepository(db *database.Database, cfg config.RetrievalConfig) PropertyRepository {
	return &propertyRepository{
		db:  db,
		cfg: cfg,
	}
}

// propertyRow is the scanned shape of one row of the property table.
type propertyRow struct {
	Idu            string   `db:"idu"`
	Suf            string   `db:"suf"`
	Siren          string   `db:"siren"`
	Denomination   *string  `db:"denomination"`
	FormeJuridique *string  `db:"forme_juridique"`
	Droit          string   `db:"droit"`
	QuotePart      *string  `db:"quote_part"`
	Contenance     *float64 `db:"contenance"`
	NatureCulture  *string  `db:"nature_culture"`
	Commune        *string  `db:"commune"`
	Adresse        *string  `db:"adresse"`
}

func (r propertyRow) toRecord() (models.ParcelRecord, error) {
	idu, err := models.ParseIduString(r.Idu)
	if err != nil {
		return models.ParcelRecord{}, fmt.Errorf("invalid idu %q in source row: %w", r.Idu, err)
	}
	return models.ParcelRecord{
		Idu:         idu,
		SufID:       r.Suf,
		OwnerID:     r.Siren,
		OwnerName:   r.Denomination,
		RightType:   r.Droit,
		Contenance:  r.Contenance,
		Share:       r.QuotePart,
		LegalForm:   r.FormeJuridique,
		CommuneName: r.Commune,
		LandUse:     r.NatureCulture,
		Address:     r.Adresse,
	}, nil
}

// selectColumns lists the projected columns. Key columns are coalesced so
// that a NULL never reaches the registry's grouping keys.
const selectColumns = `
		SELECT
			idu,
			COALESCE(suf, '') AS suf,
			COALESCE(siren, '') AS siren,
			denomination,
			forme_juridique,
			COALESCE(droit, '') AS droit,
			quote_part,
			contenance::double precision AS contenance,
			nature_culture,
			commune,
			adresse
		FROM `

// tableIdentifier quotes the configured table name, which may be schema
// qualified.
func tableIdentifier(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func byIdusQuery(tableName string) string {
	return selectColumns + tableIdentifier(tableName) + `
		WHERE idu = ANY($1)
		ORDER BY idu, suf, siren, droit`
}

func bySirensQuery(tableName string) string {
	return selectColumns + tableIdentifier(tableName) + `
		WHERE siren = ANY($1)
		  AND (substr(idu, 1, 2) = ANY($2) OR substr(idu, 1, 3) = ANY($2))
		ORDER BY idu, suf, siren, droit`
}

// CheckSource resolves the configured table name with to_regclass.
func (r *propertyRepository) CheckSource(ctx context.Context) error {
	if r.db == nil || r.db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, tableIdentifier(r.cfg.Table)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to resolve table %s: %w", r.cfg.Table, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrSourceMissing, r.cfg.Table)
	}
	return nil
}

// FindByIdus queries the property table for the given parcels, in batches of
// cfg.BatchSize identifiers with at most cfg.MaxConcurrency batches in flight.
func (r *propertyRepository) FindByIdus(ctx context.Context, idus []models.Idu) ([]models.ParcelRecord, error) {
	keys := make([]string, len(idus))
	for i, idu := range idus {
		keys[i] = idu.String()
	}

	query := byIdusQuery(r.cfg.Table)
	records, err := r.fetchBatched(ctx, keys, func(ctx context.Context, batch []string) ([]models.ParcelRecord, error) {
		return r.collect(ctx, query, batch)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query parcels (%d idus): %w", len(idus), err)
	}
	return records, nil
}

// FindBySirens queries the property table for the given legal persons,
// restricted to parcels whose IDU starts with one of the department codes.
func (r *propertyRepository) FindBySirens(ctx context.Context, sirens []models.Siren, departments []models.DepartmentCode) ([]models.ParcelRecord, error) {
	if len(departments) == 0 {
		return []models.ParcelRecord{}, nil
	}

	keys := make([]string, len(sirens))
	for i, s := range sirens {
		keys[i] = s.String()
	}
	depts := make([]string, len(departments))
	for i, d := range departments {
		depts[i] = string(d)
	}

	query := bySirensQuery(r.cfg.Table)
	records, err := r.fetchBatched(ctx, keys, func(ctx context.Context, batch []string) ([]models.ParcelRecord, error) {
		return r.collect(ctx, query, batch, depts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query legal persons (%d sirens, departments %v): %w", len(sirens), depts, err)
	}
	return records, nil
}

// fetchBatched runs fetch over keys split in batches and concatenates the
// results in batch order. The first failing batch cancels the others.
func (r *propertyRepository) fetchBatched(
	ctx context.Context,
	keys []string,
	fetch func(ctx context.Context, batch []string) ([]models.ParcelRecord, error),
) ([]models.ParcelRecord, error) {
	if len(keys) == 0 {
		return []models.ParcelRecord{}, nil
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	batches := splitBatches(keys, r.cfg.BatchSize)
	results := make([][]models.ParcelRecord, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	if r.cfg.MaxConcurrency > 0 {
		g.SetLimit(r.cfg.MaxConcurrency)
	}
	for i, batch := range batches {
		g.Go(func() error {
			records, err := fetch(gctx, batch)
			if err != nil {
				return fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := slices.Concat(results...)
	if records == nil {
		records = []models.ParcelRecord{}
	}
	return records, nil
}

func (r *propertyRepository) collect(ctx context.Context, query string, args ...any) ([]models.ParcelRecord, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	scanned, err := pgx.CollectRows(rows, pgx.RowToStructByName[propertyRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan property row: %w", err)
	}

	records := make([]models.ParcelRecord, 0, len(scanned))
	for _, row := range scanned {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// splitBatches splits keys in consecutive batches of at most size elements.
func splitBatches(keys []string, size int) [][]string {
	if size <= 0 {
		size = len(keys)
	}
	var batches [][]string
	for batch := range slices.Chunk(keys, size) {
		batches = append(batches, batch)
	}
	return batches
}

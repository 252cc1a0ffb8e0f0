package table

import (
	"github.com/stwalsh4118/ppm/api/internal/models"
)

// Standard column names of a parcel ownership table.
const (
	ColIdu            = "idu"
	ColSuf            = "suf"
	ColSiren          = "siren"
	ColDenomination   = "denomination"
	ColFormeJuridique = "forme_juridique"
	ColDroit          = "droit"
	ColQuotePart      = "quote_part"
	ColContenance     = "contenance"
	ColNatureCulture  = "nature_culture"
	ColCommune        = "commune"
	ColDepartement    = "departement"
	ColAdresse        = "adresse"
)

// ParcelColumns is the display order of a freshly ingested table.
var ParcelColumns = []Column{
	{Name: ColIdu, Kind: Text, Essential: true},
	{Name: ColSuf, Kind: Text, Essential: true},
	{Name: ColSiren, Kind: Text, Essential: true},
	{Name: ColDenomination, Kind: Text, Essential: true},
	{Name: ColFormeJuridique, Kind: Text},
	{Name: ColDroit, Kind: Text, Essential: true},
	{Name: ColQuotePart, Kind: Text},
	{Name: ColContenance, Kind: Numeric, Essential: true},
	{Name: ColNatureCulture, Kind: Text},
	{Name: ColCommune, Kind: Text},
	{Name: ColDepartement, Kind: Text},
	{Name: ColAdresse, Kind: Text},
}

// EssentialColumnNames lists the columns kept by the essential view.
func EssentialColumnNames() []string {
	var names []string
	for _, c := range ParcelColumns {
		if c.Essential {
			names = append(names, c.Name)
		}
	}
	return names
}

// FromRecords builds a table with ParcelColumns. Records sharing the same
// (idu, suf, siren, droit) key are kept once, first occurrence wins.
func FromRecords(records []models.ParcelRecord) *Table {
	t := New(ParcelColumns...)
	seen := make(map[models.RecordKey]bool, len(records))

	for _, r := range records {
		key := r.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		t.rows = append(t.rows, Row{
			TextValue(r.Idu.String()),
			TextValue(r.SufID),
			TextValue(r.OwnerID),
			TextOrNull(r.OwnerName),
			TextOrNull(r.LegalForm),
			TextValue(r.RightType),
			TextOrNull(r.Share),
			NumberOrNull(r.Contenance),
			TextOrNull(r.LandUse),
			TextOrNull(r.CommuneName),
			TextValue(string(r.Idu.Department())),
			TextOrNull(r.Address),
		})
	}
	return t
}

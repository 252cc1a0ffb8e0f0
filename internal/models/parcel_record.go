package models

// ParcelRecord is one ownership right of a legal person on a fiscal
// subdivision (SUF) of a parcel, as returned by the land-registry source.
// Nullable fields use pointers to distinguish NULL from zero values.
type ParcelRecord struct {
	Idu         Idu      `json:"idu"`
	SufID       string   `json:"suf"`
	OwnerID     string   `json:"siren"`
	OwnerName   *string  `json:"denomination,omitempty"`
	RightType   string   `json:"droit"`
	Contenance  *float64 `json:"contenance,omitempty"`
	Share       *string  `json:"quote_part,omitempty"`
	LegalForm   *string  `json:"forme_juridique,omitempty"`
	CommuneName *string  `json:"commune,omitempty"`
	LandUse     *string  `json:"nature_culture,omitempty"`
	Address     *string  `json:"adresse,omitempty"`
}

// Key returns the uniqueness key of the record within a registry snapshot.
func (r ParcelRecord) Key() RecordKey {
	return RecordKey{
		Idu:       r.Idu.String(),
		SufID:     r.SufID,
		OwnerID:   r.OwnerID,
		RightType: r.RightType,
	}
}

// RecordKey identifies an ownership right: (idu, suf, owner, right type).
type RecordKey struct {
	Idu       string
	SufID     string
	OwnerID   string
	RightType string
}

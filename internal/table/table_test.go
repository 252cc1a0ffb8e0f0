package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/ppm/api/internal/models"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

// record builds a ParcelRecord for tests.
func record(idu, suf, siren, droit string, contenance float64) models.ParcelRecord {
	return models.ParcelRecord{
		Idu:         models.MustParseIdu(idu),
		SufID:       suf,
		OwnerID:     siren,
		OwnerName:   strPtr("SCI " + siren),
		RightType:   droit,
		Contenance:  floatPtr(contenance),
		CommuneName: strPtr("Paris 7e"),
	}
}

func column(t *testing.T, tbl *Table, name string) []string {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok, "column %s", name)

	var values []string
	for i := 0; i < tbl.RowCount(); i++ {
		v, err := tbl.Value(i, name)
		require.NoError(t, err)
		values = append(values, v.Format(c.Kind))
	}
	return values
}

func TestFromRecords_DropsDuplicateRights(t *testing.T) {
	records := []models.ParcelRecord{
		record("75107000CR0001", "A", "519587851", "PROPRIETAIRE", 100),
		record("75107000CR0001", "A", "519587851", "PROPRIETAIRE", 100),
		record("75107000CR0001", "A", "519587851", "USUFRUITIER", 100),
	}

	tbl := FromRecords(records)

	assert.Equal(t, 2, tbl.RowCount())
	assert.Equal(t, []string{"PROPRIETAIRE", "USUFRUITIER"}, column(t, tbl, ColDroit))
	assert.Equal(t, []string{"75", "75"}, column(t, tbl, ColDepartement))
}

func TestFromRecords_NullableFields(t *testing.T) {
	r := record("75107000CR0001", "A", "519587851", "PROPRIETAIRE", 0)
	r.Contenance = nil
	r.OwnerName = nil

	tbl := FromRecords([]models.ParcelRecord{r})

	v, err := tbl.Value(0, ColContenance)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	v, err = tbl.Value(0, ColDenomination)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestAppend_ColumnCount(t *testing.T) {
	tbl := New(Column{Name: "a"}, Column{Name: "b"})

	require.NoError(t, tbl.Append(TextValue("1"), TextValue("2")))
	err := tbl.Append(TextValue("1"))
	assert.ErrorIs(t, err, ErrColumnCount)
	assert.Equal(t, 1, tbl.RowCount())
}

func TestNew_DuplicateColumnPanics(t *testing.T) {
	assert.Panics(t, func() {
		New(Column{Name: "a"}, Column{Name: "a"})
	})
}

func TestValue_UnknownColumn(t *testing.T) {
	tbl := New(Column{Name: "a"})
	require.NoError(t, tbl.Append(TextValue("x")))

	_, err := tbl.Value(0, "missing")
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = tbl.Value(3, "a")
	assert.Error(t, err)
}

func TestRows_ReturnsCopies(t *testing.T) {
	tbl := FromRecords([]models.ParcelRecord{record("75107000CR0001", "A", "519587851", "PROPRIETAIRE", 10)})

	rows := tbl.Rows()
	rows[0][0] = TextValue("mutated")

	assert.Equal(t, []string{"75107000CR0001"}, column(t, tbl, ColIdu))
}

func TestProject(t *testing.T) {
	tbl := FromRecords([]models.ParcelRecord{record("75107000CR0001", "A", "519587851", "PROPRIETAIRE", 10)})

	t.Run("essential view", func(t *testing.T) {
		essential := tbl.Essential()
		assert.Equal(t, []string{ColIdu, ColSuf, ColSiren, ColDenomination, ColDroit, ColContenance}, essential.ColumnNames())
		assert.Equal(t, EssentialColumnNames(), essential.ColumnNames())
		assert.Equal(t, 1, essential.RowCount())
		assert.Equal(t, []string{"10"}, column(t, essential, ColContenance))

		// source keeps every column
		assert.Len(t, tbl.ColumnNames(), len(ParcelColumns))
	})

	t.Run("keeps source order and ignores unknown names", func(t *testing.T) {
		projected := tbl.Project(ColContenance, "unknown", ColIdu)
		assert.Equal(t, []string{ColIdu, ColContenance}, projected.ColumnNames())
	})

	t.Run("projection is idempotent", func(t *testing.T) {
		once := tbl.Essential()
		assert.Equal(t, once, once.Essential())
	})
}

func TestSortByIdu(t *testing.T) {
	tbl := FromRecords([]models.ParcelRecord{
		record("75107000CR0002", "A", "222222222", "PROPRIETAIRE", 1),
		record("33063000AB0001", "B", "111111111", "PROPRIETAIRE", 2),
		record("75107000CR0002", "A", "111111111", "PROPRIETAIRE", 3),
		record("33063000AB0001", "A", "333333333", "PROPRIETAIRE", 4),
		record("75107000CR0002", "A", "111111111", "USUFRUITIER", 5),
	})

	tbl.SortByIdu()

	assert.Equal(t, []string{"33063000AB0001", "33063000AB0001", "75107000CR0002", "75107000CR0002", "75107000CR0002"}, column(t, tbl, ColIdu))
	assert.Equal(t, []string{"A", "B", "A", "A", "A"}, column(t, tbl, ColSuf))
	assert.Equal(t, []string{"333333333", "111111111", "111111111", "111111111", "222222222"}, column(t, tbl, ColSiren))
	// stable: equal keys keep their input order
	assert.Equal(t, []string{"4", "2", "3", "5", "1"}, column(t, tbl, ColContenance))

	before := tbl.Rows()
	tbl.SortByIdu()
	assert.Equal(t, before, tbl.Rows(), "sorting a sorted table is a no-op")
}

func TestSortByIdu_WithoutSufColumn(t *testing.T) {
	tbl := FromRecords([]models.ParcelRecord{
		record("75107000CR0002", "A", "111111111", "PROPRIETAIRE", 1),
		record("33063000AB0001", "B", "111111111", "PROPRIETAIRE", 2),
	}).Project(ColIdu, ColContenance)

	tbl.SortByIdu()
	assert.Equal(t, []string{"2", "1"}, column(t, tbl, ColContenance))
}

func TestNullsAsEmptyString(t *testing.T) {
	r := record("75107000CR0001", "A", "519587851", "PROPRIETAIRE", 0)
	r.Contenance = nil
	r.Address = nil
	tbl := FromRecords([]models.ParcelRecord{r})

	display := tbl.NullsAsEmptyString()

	addr, err := display.Value(0, ColAdresse)
	require.NoError(t, err)
	assert.False(t, addr.IsNull())
	assert.Equal(t, "", addr.Text())

	area, err := display.Value(0, ColContenance)
	require.NoError(t, err)
	assert.True(t, area.IsNull(), "numeric nulls are not rewritten")

	original, err := tbl.Value(0, ColAdresse)
	require.NoError(t, err)
	assert.True(t, original.IsNull(), "source table is untouched")
}

func TestValue_Format(t *testing.T) {
	assert.Equal(t, "150", NumberValue(150).Format(Numeric))
	assert.Equal(t, "12.5", NumberValue(12.5).Format(Numeric))
	assert.Equal(t, "x", TextValue("x").Format(Text))
	assert.Equal(t, "", NullValue().Format(Numeric))
	assert.Nil(t, NullValue().Interface(Text))
	assert.Equal(t, 3.0, NumberValue(3).Interface(Numeric))
}

package table

import (
	"slices"
	"strconv"
	"strings"
)

// Separators used when merged rows carry several distinct values.
const (
	ValueSeparator = ", "
	RightSeparator = " / "
)

// MergeFiscalSubdivisions collapses the fiscal subdivisions (SUF) of a parcel
// that are held by exactly the same set of (siren, droit) owners. The merged
// group yields one row per owner: suf lists the merged subdivision ids,
// numeric columns are summed and text columns keep their distinct values.
// Subdivisions with a different owner set stay on their own rows.
func MergeFiscalSubdivisions(t *Table) *Table {
	iduCol, hasIdu := t.index[ColIdu]
	sufCol, hasSuf := t.index[ColSuf]
	if !hasIdu || !hasSuf {
		return t.Clone()
	}
	ownerCols := t.ownerKeyColumns(ColSiren, ColDroit)

	out := New(t.columns...)

	for _, parcelRows := range groupBy(t.rows, func(r Row) string { return r[iduCol].Text() }) {
		subdivisions := groupBy(parcelRows, func(r Row) string { return r[sufCol].Text() })

		// Subdivisions sharing an owner set, in order of first appearance.
		var order []string
		groups := make(map[string][][]Row)
		for _, sufRows := range subdivisions {
			sig := ownerSignature(sufRows, ownerCols)
			if _, ok := groups[sig]; !ok {
				order = append(order, sig)
			}
			groups[sig] = append(groups[sig], sufRows)
		}

		for _, sig := range order {
			group := groups[sig]
			if len(group) == 1 {
				for _, r := range group[0] {
					out.rows = append(out.rows, slices.Clone(r))
				}
				continue
			}
			out.rows = append(out.rows, t.mergeSubdivisionGroup(group, ownerCols)...)
		}
	}
	return out
}

// mergeSubdivisionGroup emits one row per owner entry of the first
// subdivision, combining the matching rows of every subdivision in group.
func (t *Table) mergeSubdivisionGroup(group [][]Row, ownerCols []int) []Row {
	var merged []Row
	for _, entry := range groupBy(group[0], func(r Row) string { return ownerKey(r, ownerCols) }) {
		key := ownerKey(entry[0], ownerCols)

		var sources []Row
		for _, sufRows := range group {
			for _, r := range sufRows {
				if ownerKey(r, ownerCols) == key {
					sources = append(sources, r)
				}
			}
		}

		row := make(Row, len(t.columns))
		for i, c := range t.columns {
			if c.Kind == Numeric {
				row[i] = sumValues(sources, i)
			} else {
				row[i] = joinDistinct(sources, i, ValueSeparator)
			}
		}
		merged = append(merged, row)
	}
	return merged
}

// MergeLegalPersons collapses the rights a legal person holds on the same
// parcel (and subdivision, when the suf column is present) into one row.
// Distinct rights are sorted and joined with RightSeparator; numeric columns keep the
// first row's value since area is not a per-owner quantity. Rows without a
// siren are never merged.
func MergeLegalPersons(t *Table) *Table {
	iduCol, hasIdu := t.index[ColIdu]
	sirenCol, hasSiren := t.index[ColSiren]
	if !hasIdu || !hasSiren {
		return t.Clone()
	}
	sufCol, hasSuf := t.index[ColSuf]
	droitCol, hasDroit := t.index[ColDroit]

	unmergeable := 0
	groups := groupBy(t.rows, func(r Row) string {
		siren := r[sirenCol]
		if siren.IsNull() || siren.Text() == "" {
			unmergeable++
			return "\x00" + strconv.Itoa(unmergeable)
		}
		key := r[iduCol].Text() + "\x1f" + siren.Text()
		if hasSuf {
			key += "\x1f" + r[sufCol].Text()
		}
		return key
	})

	out := New(t.columns...)
	for _, rows := range groups {
		if len(rows) == 1 {
			out.rows = append(out.rows, slices.Clone(rows[0]))
			continue
		}

		row := make(Row, len(t.columns))
		for i, c := range t.columns {
			switch {
			case c.Kind == Numeric:
				row[i] = rows[0][i]
			case hasDroit && i == droitCol:
				row[i] = joinSortedTokens(rows, i, RightSeparator)
			default:
				row[i] = joinDistinct(rows, i, ValueSeparator)
			}
		}
		out.rows = append(out.rows, row)
	}
	return out
}

// groupBy partitions rows by key, keeping groups and their rows in order of
// first appearance.
func groupBy(rows []Row, key func(Row) string) [][]Row {
	var order []string
	groups := make(map[string][]Row)
	for _, r := range rows {
		k := key(r)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	result := make([][]Row, 0, len(order))
	for _, k := range order {
		result = append(result, groups[k])
	}
	return result
}

func (t *Table) ownerKeyColumns(names ...string) []int {
	var cols []int
	for _, n := range names {
		if i, ok := t.index[n]; ok {
			cols = append(cols, i)
		}
	}
	return cols
}

func ownerKey(r Row, cols []int) string {
	parts := make([]string, len(cols))
	for j, c := range cols {
		parts[j] = r[c].Text()
	}
	return strings.Join(parts, "\x1f")
}

// ownerSignature identifies the set of owner entries of a subdivision.
func ownerSignature(rows []Row, cols []int) string {
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, ownerKey(r, cols))
	}
	slices.Sort(keys)
	return strings.Join(slices.Compact(keys), "\x1e")
}

func sumValues(rows []Row, col int) Value {
	var total float64
	valid := false
	for _, r := range rows {
		if !r[col].IsNull() {
			total += r[col].Number()
			valid = true
		}
	}
	if !valid {
		return NullValue()
	}
	return NumberValue(total)
}

// joinDistinct joins the distinct non-null values of a column. A single
// distinct value is kept as-is; only nulls yield null.
func joinDistinct(rows []Row, col int, sep string) Value {
	var distinct []string
	for _, r := range rows {
		v := r[col]
		if v.IsNull() || slices.Contains(distinct, v.Text()) {
			continue
		}
		distinct = append(distinct, v.Text())
	}
	if len(distinct) == 0 {
		return NullValue()
	}
	return TextValue(strings.Join(distinct, sep))
}

// joinSortedTokens splits every non-null value on sep and joins the sorted
// distinct tokens, so the result does not depend on row order and already
// joined values are not nested.
func joinSortedTokens(rows []Row, col int, sep string) Value {
	var tokens []string
	for _, r := range rows {
		if r[col].IsNull() {
			continue
		}
		for _, tok := range strings.Split(r[col].Text(), sep) {
			if tok != "" {
				tokens = append(tokens, tok)
			}
		}
	}
	if len(tokens) == 0 {
		return NullValue()
	}
	slices.Sort(tokens)
	return TextValue(strings.Join(slices.Compact(tokens), sep))
}

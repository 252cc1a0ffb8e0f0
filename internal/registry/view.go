package registry

import (
	"github.com/stwalsh4118/ppm/api/internal/table"
)

// View derives a new table from a source table without modifying it.
type View func(*table.Table) *table.Table

// Built-in views.
var (
	MergedSufView    View = table.MergeFiscalSubdivisions
	MergedRightsView View = table.MergeLegalPersons
	EssentialView    View = (*table.Table).Essential
	NullsAsEmptyView View = (*table.Table).NullsAsEmptyString
)

// Compose chains views left to right.
func Compose(views ...View) View {
	return func(t *table.Table) *table.Table {
		out := t.Clone()
		for _, v := range views {
			out = v(out)
		}
		return out
	}
}

// ViewOptions are the display toggles of a search. The zero value applies
// no view; DefaultViewOptions matches the recommended display.
type ViewOptions struct {
	MergeSuf    bool
	MergeRights bool
	Essential   bool
}

// DefaultViewOptions groups subdivisions and keeps essential columns.
func DefaultViewOptions() ViewOptions {
	return ViewOptions{MergeSuf: true, Essential: true}
}

// Views returns the enabled views in the recommended order: subdivision
// merge, then legal-person merge, then essential projection.
func (o ViewOptions) Views() []View {
	var views []View
	if o.MergeSuf {
		views = append(views, MergedSufView)
	}
	if o.MergeRights {
		views = append(views, MergedRightsView)
	}
	if o.Essential {
		views = append(views, EssentialView)
	}
	return views
}

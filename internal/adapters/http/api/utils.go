package api

import (
	"net/url"

	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/internal/domain/types"
)

// Query parameter names.
const (
	paramWeekday  = "weekday"
	paramCategory = "category"
	paramFormat   = "format"
)

// selectionFromQuery overlays the weekday and category query parameters on
// def. A parameter that is absent keeps the default; an explicitly empty
// category matches every row.
func selectionFromQuery(q url.Values, def model.Selection) (model.Selection, error) {
	sel := def
	if q.Has(paramWeekday) {
		w, err := types.ParseWeekday(q.Get(paramWeekday))
		if err != nil {
			return model.Selection{}, err
		}
		sel.Weekday = w
	}
	if q.Has(paramCategory) {
		sel.Category = q.Get(paramCategory)
	}
	return sel, nil
}

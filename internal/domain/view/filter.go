// Package view turns a weekday's records and a selection into render-ready
// histogram and scatter map structures.
package view

import (
	"strings"

	"github.com/okian/poirisk/internal/domain/model"
)

// Filter keeps records whose category contains category as a case-sensitive
// substring. An empty category keeps everything. The input is not modified.
func Filter(recs []model.RiskRecord, category string) []model.RiskRecord {
	out := make([]model.RiskRecord, 0, len(recs))
	for _, r := range recs {
		if strings.Contains(r.Category, category) {
			out = append(out, r)
		}
	}
	return out
}

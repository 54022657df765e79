package reconcile

import (
	"math"
	"strings"

	"github.com/agenthands/compat/internal/core/model"
)

// RecordSummary is one row of the admin overview.
type RecordSummary struct {
	ProductID  string   `json:"productId"`
	Title      string   `json:"title,omitempty"`
	InCatalog  bool     `json:"inCatalog"`
	Declared   int      `json:"declared"`
	Found      int      `json:"found"`
	Missing    int      `json:"missing"`
	MissingIDs []string `json:"missingIds"`
}

// Overview summarises each record in stored order. A non-empty query keeps only
// records whose product id contains it, ignoring case.
func Overview(records []model.CompatibilityRecord, catalog Catalog, query string) []RecordSummary {
	query = strings.ToLower(strings.TrimSpace(query))
	out := []RecordSummary{}

	for _, r := range records {
		if query != "" && !strings.Contains(strings.ToLower(r.ProductID), query) {
			continue
		}

		summary := RecordSummary{
			ProductID:  r.ProductID,
			Declared:   len(r.CompatibleProductIDs),
			MissingIDs: []string{},
		}
		if p, ok := catalog.Lookup(r.ProductID); ok {
			summary.InCatalog = true
			summary.Title = p.Title
		}
		for _, id := range r.CompatibleProductIDs {
			if _, ok := catalog.Lookup(id); ok {
				summary.Found++
			} else {
				summary.Missing++
				summary.MissingIDs = append(summary.MissingIDs, id)
			}
		}
		out = append(out, summary)
	}
	return out
}

// Stats are the analytics figures for the current snapshots.
type Stats struct {
	TotalRecords       int     `json:"totalRecords"`
	TotalRelationships int     `json:"totalRelationships"`
	AveragePerRecord   float64 `json:"averagePerRecord"`
	CatalogProducts    int     `json:"catalogProducts"`
	MissingProducts    int     `json:"missingProducts"`
	// Completeness is the catalog's share of catalog plus missing ids, as a whole percent.
	Completeness int `json:"completeness"`
}

func Summarize(records []model.CompatibilityRecord, catalog Catalog) Stats {
	stats := Stats{
		TotalRecords:    len(records),
		CatalogProducts: catalog.Len(),
		MissingProducts: len(MissingProducts(records, catalog)),
	}
	for _, r := range records {
		stats.TotalRelationships += len(r.CompatibleProductIDs)
	}

	if stats.TotalRecords > 0 {
		avg := float64(stats.TotalRelationships) / float64(stats.TotalRecords)
		stats.AveragePerRecord = math.Round(avg*10) / 10

		if denom := stats.CatalogProducts + stats.MissingProducts; denom > 0 {
			stats.Completeness = int(math.Round(float64(stats.CatalogProducts) / float64(denom) * 100))
		}
	}
	return stats
}

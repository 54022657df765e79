// Package reconcile checks declared compatibilities against the catalog.
//
// Everything here is a pure function of the snapshots passed in. Nothing is
// cached, so answers always reflect the current store and catalog.
package reconcile

import (
	"sort"

	"github.com/agenthands/compat/internal/core/model"
)

type RecordFinder interface {
	FindByProductID(id string) (model.CompatibilityRecord, bool)
}

type Catalog interface {
	Lookup(id string) (model.Product, bool)
	Len() int
}

// Resolve returns the declared compatibles of productID in declared order,
// duplicates included. Ids absent from the catalog are kept only when
// settings.ShowMissingProducts is set. An unknown productID yields an empty slice.
func Resolve(productID string, records RecordFinder, catalog Catalog, settings model.Settings) []model.ResolvedReference {
	resolved := []model.ResolvedReference{}

	record, ok := records.FindByProductID(productID)
	if !ok {
		return resolved
	}

	for _, id := range record.CompatibleProductIDs {
		ref := resolveOne(id, catalog)
		if ref.Exists || settings.ShowMissingProducts {
			resolved = append(resolved, ref)
		}
	}
	return resolved
}

func resolveOne(id string, catalog Catalog) model.ResolvedReference {
	product, ok := catalog.Lookup(id)
	if !ok {
		return model.ResolvedReference{ID: id}
	}
	return model.ResolvedReference{ID: id, Exists: true, Product: &product}
}

// MissingProducts returns every id referenced as compatible that the catalog
// does not contain, once each, sorted. Source product ids are not checked.
func MissingProducts(records []model.CompatibilityRecord, catalog Catalog) []string {
	seen := map[string]struct{}{}
	missing := []string{}

	for _, r := range records {
		for _, id := range r.CompatibleProductIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if _, ok := catalog.Lookup(id); !ok {
				missing = append(missing, id)
			}
		}
	}

	sort.Strings(missing)
	return missing
}

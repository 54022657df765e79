package model

// CompatibilityRecord lists the products declared compatible with ProductID.
// CompatibleProductIDs keeps input order and duplicates, and is never nil.
type CompatibilityRecord struct {
	ProductID            string   `json:"productId"`
	CompatibleProductIDs []string `json:"compatibleProductIds"`
}

// NewRecord builds a record, normalising a nil id list to an empty one.
func NewRecord(productID string, compatible []string) CompatibilityRecord {
	if compatible == nil {
		compatible = []string{}
	}
	return CompatibilityRecord{ProductID: productID, CompatibleProductIDs: compatible}
}

// Clone returns a deep copy so callers cannot alias store state.
func (r CompatibilityRecord) Clone() CompatibilityRecord {
	ids := make([]string, len(r.CompatibleProductIDs))
	copy(ids, r.CompatibleProductIDs)
	return CompatibilityRecord{ProductID: r.ProductID, CompatibleProductIDs: ids}
}

// CloneRecords deep-copies a record slice. A nil input yields an empty slice.
func CloneRecords(records []CompatibilityRecord) []CompatibilityRecord {
	out := make([]CompatibilityRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

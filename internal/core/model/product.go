package model

// Product is a catalog entry supplied by the store. The core reads it but never mutates it.
type Product struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Price  string `json:"price"`
	Handle string `json:"handle"`

	// Extra carries catalog fields the core does not interpret.
	Extra map[string]any `json:"extra,omitempty"`
}

// ResolvedReference is one declared compatible id checked against the catalog.
// Product is nil when the id is not in the catalog.
type ResolvedReference struct {
	ID      string   `json:"id"`
	Exists  bool     `json:"exists"`
	Product *Product `json:"product"`
}

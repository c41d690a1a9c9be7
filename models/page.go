package models

// RawPage is one fetched listing page before extraction.
type RawPage struct {
	// SubsidiaryID identifies which subsidiary's listing this page belongs to.
	SubsidiaryID string

	// PageIndex is the 1-based page number within the listing.
	PageIndex int

	// HTML is the rendered page markup.
	HTML string

	// EngineUsed records which fetch engine produced the page
	// ("http" or "browser").
	EngineUsed string
}

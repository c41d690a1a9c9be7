package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// DateFormat is the portal's date layout (DD.MM.YYYY). It is also the
// serialisation format in the output dataset and part of the compatibility
// contract with the downstream dashboard.
const DateFormat = "02.01.2006"

// Markers for optional fields that the portal did not provide (or that
// failed to parse on an otherwise valid row).
const (
	UnknownBidderCount = -1
	UnknownValue       = -1
)

// ContractRecord is one procurement award entry extracted from a listing page.
type ContractRecord struct {
	// Description is the contract subject. Never empty after trimming.
	Description string

	// SupplierName is the awarded supplier. Never empty after trimming.
	SupplierName string

	// CPVCategory is the hierarchical procurement classification, code
	// and label as displayed (e.g. "72000000 IT-Dienstleistungen").
	CPVCategory string

	// BidderCount is the number of bidders, or UnknownBidderCount.
	BidderCount int

	// ContractValue is the award sum in EUR, or UnknownValue.
	ContractValue float64

	// LastUpdated is the portal's update date; zero when unknown.
	LastUpdated time.Time

	// SubsidiaryID identifies the source subsidiary.
	SubsidiaryID string

	// SourcePageIndex is the 1-based listing page the record came from.
	SourcePageIndex int
}

// HasBidderCount reports whether the bidder count was present on the row.
func (r *ContractRecord) HasBidderCount() bool { return r.BidderCount >= 0 }

// HasValue reports whether the contract value was present on the row.
func (r *ContractRecord) HasValue() bool { return r.ContractValue >= 0 }

// HasDate reports whether the update date was present on the row.
func (r *ContractRecord) HasDate() bool { return !r.LastUpdated.IsZero() }

// ValueString serialises the contract value, or "" when unknown.
func (r *ContractRecord) ValueString() string {
	if !r.HasValue() {
		return ""
	}
	return strconv.FormatFloat(r.ContractValue, 'f', 2, 64)
}

// DateString serialises the update date as DD.MM.YYYY, or "" when unknown.
func (r *ContractRecord) DateString() string {
	if !r.HasDate() {
		return ""
	}
	return r.LastUpdated.Format(DateFormat)
}

// DedupKey derives the composite identity of a record. Two records with the
// same key are the same contract observed twice (pagination overlap or a
// re-run) and must collapse to one.
func (r *ContractRecord) DedupKey() string {
	h := sha256.New()
	for _, part := range []string{
		r.SubsidiaryID,
		strings.TrimSpace(r.Description),
		strings.TrimSpace(r.SupplierName),
		r.ValueString(),
		r.DateString(),
	} {
		h.Write([]byte(part))
		h.Write([]byte("|"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

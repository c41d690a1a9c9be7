package models

import (
	"testing"
	"time"
)

func fullRecord() ContractRecord {
	return ContractRecord{
		Description:   "Gleisbauarbeiten",
		SupplierName:  "Bau GmbH",
		CPVCategory:   "45234100 Bahnbau",
		BidderCount:   3,
		ContractValue: 1234567.89,
		LastUpdated:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		SubsidiaryID:  "obb_infrastruktur",
	}
}

func TestDedupKeyStable(t *testing.T) {
	a, b := fullRecord(), fullRecord()
	if a.DedupKey() != b.DedupKey() {
		t.Error("identical records must share a dedup key")
	}

	// Whitespace around identity fields does not change identity.
	b.Description = "  Gleisbauarbeiten  "
	if a.DedupKey() != b.DedupKey() {
		t.Error("surrounding whitespace must not change the dedup key")
	}

	// The source page is provenance, not identity.
	b = fullRecord()
	b.SourcePageIndex = 7
	if a.DedupKey() != b.DedupKey() {
		t.Error("source page index must not change the dedup key")
	}
}

func TestDedupKeyDistinguishes(t *testing.T) {
	base := fullRecord()

	mutations := []func(*ContractRecord){
		func(r *ContractRecord) { r.Description = "Reinigungsleistungen" },
		func(r *ContractRecord) { r.SupplierName = "Andere GmbH" },
		func(r *ContractRecord) { r.ContractValue = 99.99 },
		func(r *ContractRecord) { r.LastUpdated = r.LastUpdated.AddDate(0, 0, 1) },
		func(r *ContractRecord) { r.SubsidiaryID = "obb_postbus" },
	}
	for i, mutate := range mutations {
		rec := fullRecord()
		mutate(&rec)
		if rec.DedupKey() == base.DedupKey() {
			t.Errorf("mutation %d did not change the dedup key", i)
		}
	}
}

func TestUnknownFieldSerialization(t *testing.T) {
	rec := ContractRecord{
		Description:   "Leistung",
		SupplierName:  "Firma",
		BidderCount:   UnknownBidderCount,
		ContractValue: UnknownValue,
		SubsidiaryID:  "obb_business",
	}

	if rec.HasBidderCount() || rec.HasValue() || rec.HasDate() {
		t.Error("unknown markers must report as absent")
	}
	if rec.ValueString() != "" {
		t.Errorf("ValueString = %q, want empty", rec.ValueString())
	}
	if rec.DateString() != "" {
		t.Errorf("DateString = %q, want empty", rec.DateString())
	}

	known := fullRecord()
	if known.ValueString() != "1234567.89" {
		t.Errorf("ValueString = %q, want 1234567.89", known.ValueString())
	}
	if known.DateString() != "15.03.2024" {
		t.Errorf("DateString = %q, want 15.03.2024", known.DateString())
	}
}

package portal

import "testing"

func TestPageURL(t *testing.T) {
	s := Subsidiary{Key: "obb_infrastruktur", Name: "ÖBB-Infrastruktur AG", BuyerID: "8538"}

	want := "https://offenevergaben.at/auftraggeber/8538?page=1"
	if got := s.PageURL(1); got != want {
		t.Errorf("PageURL(1) = %q, want %q", got, want)
	}
	want = "https://offenevergaben.at/auftraggeber/8538?page=17"
	if got := s.PageURL(17); got != want {
		t.Errorf("PageURL(17) = %q, want %q", got, want)
	}
}

func TestSubsidiariesTable(t *testing.T) {
	if len(Subsidiaries) != 22 {
		t.Fatalf("subsidiaries = %d, want 22", len(Subsidiaries))
	}

	keys := make(map[string]bool, len(Subsidiaries))
	ids := make(map[string]bool, len(Subsidiaries))
	for _, s := range Subsidiaries {
		if s.Key == "" || s.Name == "" || s.BuyerID == "" {
			t.Errorf("subsidiary %+v has an empty field", s)
		}
		if keys[s.Key] {
			t.Errorf("duplicate key %q", s.Key)
		}
		if ids[s.BuyerID] {
			t.Errorf("duplicate buyer ID %q", s.BuyerID)
		}
		keys[s.Key] = true
		ids[s.BuyerID] = true
	}
}

func TestByKey(t *testing.T) {
	s, ok := ByKey("obb_postbus")
	if !ok {
		t.Fatal("obb_postbus not found")
	}
	if s.BuyerID != "8581" {
		t.Errorf("buyer ID = %q, want 8581", s.BuyerID)
	}

	if _, ok := ByKey("westbahn"); ok {
		t.Error("unknown key must not resolve")
	}
}

package sections

import "testing"

func TestCatalogOrder(t *testing.T) {
	want := []string{BasicInfo, Abstract, Methods, Results, Equations, Technical, RelatedWork, Applications, Limitations}
	got := Catalog()
	if len(got) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(got))
	}
	for i, key := range want {
		if got[i].Key != key {
			t.Fatalf("position %d: expected %s, got %s", i, key, got[i].Key)
		}
		if got[i].DisplayName == "" || got[i].Instructions == "" {
			t.Fatalf("section %s is incomplete", key)
		}
	}
}

func TestCatalogReturnsCopy(t *testing.T) {
	c := Catalog()
	c[0].DisplayName = "changed"
	if Catalog()[0].DisplayName != "Basic Paper Information" {
		t.Fatalf("catalog was mutated through the returned slice")
	}
}

func TestLookup(t *testing.T) {
	s, ok := Lookup(Limitations)
	if !ok || s.DisplayName != "Limitations & Future Work" {
		t.Fatalf("unexpected lookup result %+v %v", s, ok)
	}
	if _, ok := Lookup("missing"); ok {
		t.Fatalf("expected unknown key to miss")
	}
}

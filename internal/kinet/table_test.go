package kinet

import (
	"testing"
)

func TestSubstanceTable_AddAndLookup(t *testing.T) {
	table := NewSubstanceTable()
	m := &Substance{Name: "M", Kind: KindIsotropic, StaticConcentration: 2}
	a := &Substance{Name: "A", Kind: KindDiscrete, Mass: 100, Charge: 1}
	b := &Substance{Name: "B", Kind: KindDiscrete, Mass: 100, Charge: 1}
	table.Add(m)
	table.Add(a)
	table.Add(b)

	if table.Len() != 3 {
		t.Fatalf("Expected 3 substances, got %d", table.Len())
	}
	if table.DiscreteLen() != 2 {
		t.Fatalf("Expected 2 discrete substances, got %d", table.DiscreteLen())
	}

	got, ok := table.ByName("A")
	if !ok || got != a {
		t.Errorf("Expected ByName(A) to return the inserted substance")
	}
	if table.ByIndex(1) != m {
		t.Errorf("Expected ByIndex(1) to be M")
	}
	if table.ByIndex(0) != nil || table.ByIndex(4) != nil {
		t.Errorf("Expected out-of-range ByIndex to return nil")
	}
	if table.ByDiscreteIndex(1) != a || table.ByDiscreteIndex(2) != b {
		t.Errorf("Expected discrete view order A, B")
	}
	if table.DiscretePrimaryIndex(2) != 3 {
		t.Errorf("Expected B's primary position 3, got %d", table.DiscretePrimaryIndex(2))
	}
}

// Every inserted substance must be retrievable by name and report its
// primary position; every substance in the discrete view must be discrete
// and appear in the primary sequence at the recorded position.
func TestSubstanceTable_Bijection(t *testing.T) {
	table := NewSubstanceTable()
	substances := []*Substance{
		{Name: "He", Kind: KindIsotropic, StaticConcentration: 1},
		{Name: "A_plus", Kind: KindDiscrete, Mass: 28, Charge: 1},
		{Name: "e", Kind: KindField},
		{Name: "B_plus", Kind: KindDiscrete, Mass: 44, Charge: 1},
	}
	for _, s := range substances {
		table.Add(s)
	}

	for i, s := range substances {
		got, ok := table.ByName(s.Name)
		if !ok || got != s {
			t.Errorf("ByName(%s): expected the inserted substance", s.Name)
		}
		if idx := table.IndexOf(s); idx != i+1 {
			t.Errorf("IndexOf(%s): expected %d, got %d", s.Name, i+1, idx)
		}
	}

	for j, s := range table.Discrete() {
		if s.Kind != KindDiscrete {
			t.Errorf("Discrete view yielded non-discrete substance %s", s.Name)
		}
		primary := table.DiscretePrimaryIndex(j + 1)
		if table.ByIndex(primary) != s {
			t.Errorf("Discrete view position %d does not match primary position %d", j+1, primary)
		}
	}
}

func TestSubstanceTable_ReplaceInPlace(t *testing.T) {
	table := NewSubstanceTable()
	iso := &Substance{Name: "X", Kind: KindIsotropic, StaticConcentration: 1}
	table.Add(iso)
	table.Add(&Substance{Name: "Y", Kind: KindDiscrete, Mass: 1, Charge: 1})

	disc := &Substance{Name: "X", Kind: KindDiscrete, Mass: 10, Charge: 1}
	table.Add(disc)

	if table.Len() != 2 {
		t.Fatalf("Expected replace-in-place to keep 2 entries, got %d", table.Len())
	}
	got, _ := table.ByName("X")
	if got != disc {
		t.Errorf("Expected ByName(X) to return the replacement")
	}
	if table.IndexOf(disc) != 1 {
		t.Errorf("Expected X to keep primary position 1, got %d", table.IndexOf(disc))
	}
	if table.IndexOf(iso) != 0 {
		t.Errorf("Expected replaced entry to report position 0, got %d", table.IndexOf(iso))
	}

	found := false
	for _, s := range table.Discrete() {
		if s == disc {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected discrete view to include the replacement X")
	}
	if table.DiscreteLen() != 2 {
		t.Errorf("Expected 2 discrete substances, got %d", table.DiscreteLen())
	}
	// discrete view stays ordered by primary position
	if table.ByDiscreteIndex(1) != disc {
		t.Errorf("Expected X (primary position 1) first in the discrete view")
	}
}

func TestSubstanceTable_ReplaceDropsDiscreteMembership(t *testing.T) {
	table := NewSubstanceTable()
	table.Add(&Substance{Name: "X", Kind: KindDiscrete, Mass: 10, Charge: 1})
	if table.DiscreteLen() != 1 {
		t.Fatalf("Expected 1 discrete substance, got %d", table.DiscreteLen())
	}

	table.Add(&Substance{Name: "X", Kind: KindIsotropic, StaticConcentration: 3})
	if table.DiscreteLen() != 0 {
		t.Errorf("Expected discrete view to drop X, still has %d entries", table.DiscreteLen())
	}
	if table.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", table.Len())
	}
}

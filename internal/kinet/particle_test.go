package kinet

import (
	"testing"
)

func reachable(l *ParticleList) []*Particle {
	out := make([]*Particle, 0, l.Len())
	for p := l.Head(); p != nil; p = p.Next() {
		out = append(out, p)
	}
	return out
}

func TestParticleList_InsertPrepends(t *testing.T) {
	subst := &Substance{Name: "A", Kind: KindDiscrete, Mass: 1, Charge: 1}
	var list ParticleList

	first := &Particle{Substance: subst}
	second := &Particle{Substance: subst}
	list.Insert(first)
	list.Insert(second)

	if list.Len() != 2 {
		t.Fatalf("Expected 2 particles, got %d", list.Len())
	}
	if list.Head() != second {
		t.Errorf("Expected insertion to prepend at the head")
	}
	if list.Head().Next() != first {
		t.Errorf("Expected first inserted particle at the tail")
	}
}

// For any sequence of insert/remove operations the reported size must equal
// the number of reachable nodes and no removed node may stay reachable.
func TestParticleList_RoundTrip(t *testing.T) {
	subst := &Substance{Name: "A", Kind: KindDiscrete, Mass: 1, Charge: 1}
	var list ParticleList

	particles := make([]*Particle, 10)
	for i := range particles {
		particles[i] = &Particle{Substance: subst, X: float64(i)}
		list.Insert(particles[i])
	}

	// remove head, tail and a middle node
	for _, victim := range []*Particle{particles[9], particles[0], particles[4]} {
		list.Remove(victim)

		nodes := reachable(&list)
		if len(nodes) != list.Len() {
			t.Fatalf("Expected %d reachable nodes, got %d", list.Len(), len(nodes))
		}
		for _, p := range nodes {
			if p == victim {
				t.Fatalf("Removed particle still reachable")
			}
		}
	}
	if list.Len() != 7 {
		t.Errorf("Expected 7 particles left, got %d", list.Len())
	}
}

func TestParticleList_RemoveAll(t *testing.T) {
	subst := &Substance{Name: "A", Kind: KindDiscrete, Mass: 1, Charge: 1}
	var list ParticleList

	ps := []*Particle{{Substance: subst}, {Substance: subst}, {Substance: subst}}
	for _, p := range ps {
		list.Insert(p)
	}
	for _, p := range ps {
		list.Remove(p)
	}

	if list.Len() != 0 {
		t.Errorf("Expected empty list, got %d", list.Len())
	}
	if list.Head() != nil {
		t.Errorf("Expected nil head after removing everything")
	}
}

func TestParticleList_ForEachAllowsSelfRemoval(t *testing.T) {
	subst := &Substance{Name: "A", Kind: KindDiscrete, Mass: 1, Charge: 1}
	var list ParticleList
	for i := 0; i < 5; i++ {
		list.Insert(&Particle{Substance: subst, X: float64(i)})
	}

	visited := 0
	list.ForEach(func(p *Particle) {
		visited++
		if int(p.X)%2 == 0 {
			list.Remove(p)
		}
	})

	if visited != 5 {
		t.Errorf("Expected to visit 5 particles, visited %d", visited)
	}
	if list.Len() != 2 {
		t.Errorf("Expected 2 particles after removal, got %d", list.Len())
	}
}

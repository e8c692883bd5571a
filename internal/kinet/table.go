package kinet

// SubstanceTable is the registry of all declared substances. It keeps three
// simultaneous views over the same entries: an ordered sequence addressed by
// 1-based position, a name-to-position map, and an ordered sub-view of the
// discrete substances recording their primary positions.
type SubstanceTable struct {
	ordered  []*Substance
	byName   map[string]int
	discrete []int
}

// NewSubstanceTable creates an empty table.
func NewSubstanceTable() *SubstanceTable {
	return &SubstanceTable{
		byName: make(map[string]int),
	}
}

// Add registers a substance under its name. If the name is already present
// the existing entry is replaced in place: the primary position is kept and
// the discrete view is reconciled with the new kind.
func (t *SubstanceTable) Add(subst *Substance) {
	if pos, ok := t.byName[subst.Name]; ok {
		t.ordered[pos-1] = subst
		t.reconcileDiscrete(pos, subst.Kind == KindDiscrete)
		return
	}
	t.ordered = append(t.ordered, subst)
	pos := len(t.ordered)
	t.byName[subst.Name] = pos
	if subst.Kind == KindDiscrete {
		t.discrete = append(t.discrete, pos)
	}
}

// reconcileDiscrete makes membership of pos in the discrete view match want,
// keeping the view ordered by primary position.
func (t *SubstanceTable) reconcileDiscrete(pos int, want bool) {
	at := -1
	for i, p := range t.discrete {
		if p == pos {
			at = i
			break
		}
	}
	if want && at == -1 {
		insert := len(t.discrete)
		for i, p := range t.discrete {
			if p > pos {
				insert = i
				break
			}
		}
		t.discrete = append(t.discrete, 0)
		copy(t.discrete[insert+1:], t.discrete[insert:])
		t.discrete[insert] = pos
	}
	if !want && at != -1 {
		t.discrete = append(t.discrete[:at], t.discrete[at+1:]...)
	}
}

// ByName retrieves a substance by its name.
// Returns the substance and a boolean indicating if it was found.
func (t *SubstanceTable) ByName(name string) (*Substance, bool) {
	pos, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.ordered[pos-1], true
}

// ByIndex retrieves a substance by its 1-based primary position.
// Returns nil if the position is out of range.
func (t *SubstanceTable) ByIndex(i int) *Substance {
	if i < 1 || i > len(t.ordered) {
		return nil
	}
	return t.ordered[i-1]
}

// ByDiscreteIndex retrieves a substance by its 1-based position within the
// discrete sub-view. Returns nil if the position is out of range.
func (t *SubstanceTable) ByDiscreteIndex(j int) *Substance {
	if j < 1 || j > len(t.discrete) {
		return nil
	}
	return t.ordered[t.discrete[j-1]-1]
}

// DiscretePrimaryIndex returns the primary position of the j-th (1-based)
// discrete substance, or 0 if out of range.
func (t *SubstanceTable) DiscretePrimaryIndex(j int) int {
	if j < 1 || j > len(t.discrete) {
		return 0
	}
	return t.discrete[j-1]
}

// IndexOf returns the 1-based primary position of subst, or 0 if the table
// does not hold this exact entry. An entry that was replaced in place under
// the same name reports 0.
func (t *SubstanceTable) IndexOf(subst *Substance) int {
	if subst == nil {
		return 0
	}
	pos, ok := t.byName[subst.Name]
	if !ok || t.ordered[pos-1] != subst {
		return 0
	}
	return pos
}

// Len returns the number of registered substances.
func (t *SubstanceTable) Len() int {
	return len(t.ordered)
}

// DiscreteLen returns the number of discrete substances.
func (t *SubstanceTable) DiscreteLen() int {
	return len(t.discrete)
}

// All returns the substances in primary order.
func (t *SubstanceTable) All() []*Substance {
	out := make([]*Substance, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Discrete returns the discrete substances in primary order.
func (t *SubstanceTable) Discrete() []*Substance {
	out := make([]*Substance, 0, len(t.discrete))
	for _, pos := range t.discrete {
		out = append(out, t.ordered[pos-1])
	}
	return out
}

// Names returns the substance names in primary order.
func (t *SubstanceTable) Names() []string {
	out := make([]string, 0, len(t.ordered))
	for _, s := range t.ordered {
		out = append(out, s.Name)
	}
	return out
}

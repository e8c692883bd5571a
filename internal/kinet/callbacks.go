package kinet

// Callbacks is the optional bundle of host operations invoked when a
// reacting particle is replaced in place by its product. NewSimulation does
// not take a bundle; the embedding configures it once through
// Simulation.SetCallbacks. Any individual operation may be nil.
type Callbacks struct {
	UpdateIonMass   func(mass float64)
	UpdateIonCharge func(charge float64)
	UpdateIonColor  func(index int)
}

// empty reports whether no operation is configured at all.
func (c Callbacks) empty() bool {
	return c.UpdateIonMass == nil && c.UpdateIonCharge == nil && c.UpdateIonColor == nil
}

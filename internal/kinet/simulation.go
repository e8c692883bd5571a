package kinet

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// FloatSource produces uniform reals in [0,1). *rand.Rand satisfies it;
// tests inject scripted sources. The simulation owns its source and draws
// from it in a fixed sequence, so behaviour is deterministic given a seed
// and an input trace.
type FloatSource interface {
	Float64() float64
}

// walkScale is the side length of the uniform offset square used by
// RandomWalk.
const walkScale = 0.01

// ReactOutcome reports what a React call did to the addressed particle.
type ReactOutcome struct {
	// Fired is true when a reaction passed its Bernoulli test.
	Fired    bool
	Reaction *Reaction
	// Destroyed is true when the firing reaction had no discrete product,
	// so the external index no longer refers to a live particle. Callers
	// that fully retire the index must follow up with RemoveP.
	Destroyed bool
}

// Simulation owns the particle population, the per-species reaction index
// and the species concentration counters, and executes the Monte Carlo
// reaction step. All state is exclusively owned; operations must not be
// invoked re-entrantly.
type Simulation struct {
	substances *SubstanceTable
	reactions  []*Reaction

	// ri holds, per discrete substance, the independent reactions whose
	// sole discrete educt is that substance, in configuration order.
	// riStatic is the parallel static-probability cache; both are appended
	// together at construction and never resorted.
	ri       map[*Substance][]*Reaction
	riStatic map[*Substance][]float64

	// rd indexes dependent reactions by each of their discrete educts.
	// Populated but not fired by the core loop.
	rd map[*Substance][]*Reaction

	particles      ParticleList
	ionMap         map[int]*Particle
	concentrations map[*Substance]int

	nSteps         int
	sumTimestep    float64
	illEvents      int
	nonGroupedFlys int

	rng          FloatSource
	logger       Logger
	callbacks    Callbacks
	hasCallbacks bool
	logIllEvents bool

	runID    string
	notifier *NotificationManager
}

// NewSimulation builds a simulation over a parsed substance table and
// reaction set. The per-species independent and dependent indexes and the
// static-probability cache are precomputed here; all counters start at zero.
func NewSimulation(table *SubstanceTable, reactions []*Reaction) *Simulation {
	s := &Simulation{
		substances:     table,
		reactions:      reactions,
		ri:             make(map[*Substance][]*Reaction),
		riStatic:       make(map[*Substance][]float64),
		rd:             make(map[*Substance][]*Reaction),
		ionMap:         make(map[int]*Particle),
		concentrations: make(map[*Substance]int),
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:         NewNoOpLogger(),
	}
	for _, subst := range table.Discrete() {
		s.ri[subst] = make([]*Reaction, 0)
		s.riStatic[subst] = make([]float64, 0)
		s.rd[subst] = make([]*Reaction, 0)
		s.concentrations[subst] = 0
	}
	for _, r := range reactions {
		if r.Independent() {
			educt := r.SoleDiscreteEduct()
			s.ri[educt] = append(s.ri[educt], r)
			s.riStatic[educt] = append(s.riStatic[educt], r.StaticProbability())
			continue
		}
		for educt := range r.DiscreteEducts() {
			s.rd[educt] = append(s.rd[educt], r)
		}
	}
	return s
}

// LoadSimulation parses the configuration file at path and builds the
// simulation. rateConversion is the rate-constant conversion factor handed
// to the ConfigParser. logger may be nil.
func LoadSimulation(path string, rateConversion float64, logger Logger) (*Simulation, error) {
	parser := NewConfigParser(rateConversion)
	if logger != nil {
		parser.SetLogger(logger)
	}
	table, reactions, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	s := NewSimulation(table, reactions)
	if logger != nil {
		s.logger = logger
	}
	return s, nil
}

// SetRandom replaces the uniform source. Ignored if src is nil.
func (s *Simulation) SetRandom(src FloatSource) {
	if src != nil {
		s.rng = src
	}
}

// SetLogger sets the logger used for runtime warnings.
func (s *Simulation) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetCallbacks configures the embedding callback bundle. Presence is
// decided here, once, not on every React call.
func (s *Simulation) SetCallbacks(cb Callbacks) {
	s.callbacks = cb
	s.hasCallbacks = !cb.empty()
}

// SetLogIllEvents enables the per-event ill log line.
func (s *Simulation) SetLogIllEvents(enabled bool) {
	s.logIllEvents = enabled
}

// SetNotificationManager wires an optional fire-event sink.
func (s *Simulation) SetNotificationManager(mgr *NotificationManager) {
	s.notifier = mgr
}

// SetRunID tags emitted fire events with a run identifier.
func (s *Simulation) SetRunID(id string) {
	s.runID = id
}

// AddParticle inserts a live particle and registers it under the external
// index. The particle's substance must be discrete. An existing entry for
// the index is silently overwritten; the in-place product replacement in
// React relies on this.
func (s *Simulation) AddParticle(p *Particle, index int) {
	s.particles.Insert(p)
	s.concentrations[p.Substance]++
	s.ionMap[index] = p
}

// DestroyParticle unlinks a particle and decrements its species counter.
// It does not clear ion-map entries; callers that fully retire an external
// index must call RemoveP.
func (s *Simulation) DestroyParticle(p *Particle) {
	s.particles.Remove(p)
	s.concentrations[p.Substance]--
}

// RemoveP drops the ion-map entry for index.
func (s *Simulation) RemoveP(index int) {
	delete(s.ionMap, index)
}

// Particle returns the particle currently registered under index.
func (s *Simulation) Particle(index int) (*Particle, bool) {
	p, ok := s.ionMap[index]
	return p, ok
}

// UpdatePosition writes new coordinates onto the particle registered under
// index. Reacting or repositioning an unknown index is a programming error
// by the embedding and panics.
func (s *Simulation) UpdatePosition(index int, x, y, z float64) {
	p := s.mustParticle(index)
	p.X = x
	p.Y = y
	p.Z = z
}

func (s *Simulation) mustParticle(index int) *Particle {
	p, ok := s.ionMap[index]
	if !ok {
		panic(fmt.Sprintf("kinet: no particle registered under index %d", index))
	}
	return p
}

// React gives the particle registered under index one opportunity to react
// during a timestep of length dt. The independent reactions of the
// particle's species are tried in configuration order; one uniform draw is
// consumed per candidate examined, and the first candidate whose
// static probability × dt exceeds its draw fires. On a firing the particle
// is destroyed and the reaction's first discrete product is materialised at
// the same position under the same external index; a firing with
// probability >= 1 is additionally counted as an ill event.
//
// kineticEnergy is accepted for the future activation-energy extension and
// is currently ignored, as are the dependent reactions indexed under the
// species.
func (s *Simulation) React(index int, kineticEnergy, dt float64) ReactOutcome {
	p := s.mustParticle(index)

	candidates := s.ri[p.Substance]
	probs := s.riStatic[p.Substance]
	for i, r := range candidates {
		u := s.rng.Float64()
		prob := probs[i] * dt
		if u >= prob {
			continue
		}

		ill := prob >= 1
		if ill {
			s.illEvents++
			if s.logIllEvents {
				s.logger.Warnf("ill event: reaction %s fired with probability %g", r, prob)
			}
		}

		s.DestroyParticle(p)
		outcome := ReactOutcome{Fired: true, Reaction: r}

		products := r.DiscreteProducts()
		if len(products) == 0 {
			// pure destruction: the index keeps a dangling entry until
			// the caller retires it
			outcome.Destroyed = true
		} else {
			product := products[0]
			q := &Particle{Substance: product, X: p.X, Y: p.Y, Z: p.Z}
			s.AddParticle(q, index)
			if s.hasCallbacks {
				s.invokeCallbacks(product)
			}
		}

		s.emitFire(r, p.Substance, index, prob, ill)
		return outcome
	}
	return ReactOutcome{}
}

func (s *Simulation) invokeCallbacks(product *Substance) {
	if s.callbacks.UpdateIonMass != nil {
		s.callbacks.UpdateIonMass(product.Mass)
	}
	if s.callbacks.UpdateIonCharge != nil {
		s.callbacks.UpdateIonCharge(product.Charge)
	}
	if s.callbacks.UpdateIonColor != nil {
		s.callbacks.UpdateIonColor(s.substances.IndexOf(product))
	}
}

func (s *Simulation) emitFire(r *Reaction, educt *Substance, index int, prob float64, ill bool) {
	if s.notifier == nil {
		return
	}
	event := FireEvent{
		RunID:         s.runID,
		Step:          s.nSteps,
		SimTime:       s.sumTimestep,
		ReactionID:    r.ID(),
		Equation:      r.Equation(),
		ParticleIndex: index,
		Probability:   prob,
		Ill:           ill,
		Educt:         educt.Name,
	}
	if products := r.DiscreteProducts(); len(products) > 0 {
		event.Product = products[0].Name
	}
	s.notifier.Enqueue(event)
}

// AdvanceTimestep accounts one simulation time step of length dt. Called
// exactly once per step by the embedding, before or after its per-particle
// react loop.
func (s *Simulation) AdvanceTimestep(dt float64) {
	s.nSteps++
	s.sumTimestep += dt
}

// RandomWalk offsets every live particle's x and y by independent draws
// uniform in [-walkScale/2, +walkScale/2) and wraps both back into the unit
// square. z is left unmodified. Auxiliary for standalone operation; the
// embedded driver supplies positions itself.
func (s *Simulation) RandomWalk() {
	for p := s.particles.Head(); p != nil; p = p.Next() {
		dx := s.rng.Float64()*walkScale - walkScale/2
		dy := s.rng.Float64()*walkScale - walkScale/2
		p.X = wrapUnit(p.X + dx)
		p.Y = wrapUnit(p.Y + dy)
	}
}

// wrapUnit maps v into [0,1) by toroidal modulo.
func wrapUnit(v float64) float64 {
	return v - math.Floor(v)
}

// Substances returns the owned substance table.
func (s *Simulation) Substances() *SubstanceTable {
	return s.substances
}

// Reactions returns the owned reaction set in configuration order.
func (s *Simulation) Reactions() []*Reaction {
	return s.reactions
}

// IndependentReactions returns the independent reactions indexed under
// subst, in configuration order.
func (s *Simulation) IndependentReactions(subst *Substance) []*Reaction {
	return s.ri[subst]
}

// DependentReactions returns the dependent reactions indexed under subst.
// They are preserved for future scheduling and never fired by React.
func (s *Simulation) DependentReactions(subst *Substance) []*Reaction {
	return s.rd[subst]
}

// Concentration returns the live particle count of a discrete substance.
func (s *Simulation) Concentration(subst *Substance) int {
	return s.concentrations[subst]
}

// Concentrations returns a name-keyed copy of the per-species counters.
func (s *Simulation) Concentrations() map[string]int {
	out := make(map[string]int, len(s.concentrations))
	for subst, n := range s.concentrations {
		out[subst.Name] = n
	}
	return out
}

// PopulationSize returns the number of live particles.
func (s *Simulation) PopulationSize() int {
	return s.particles.Len()
}

// LiveIndices returns the registered external indices in ascending order.
// Drivers iterate this to get a deterministic react order.
func (s *Simulation) LiveIndices() []int {
	out := make([]int, 0, len(s.ionMap))
	for idx := range s.ionMap {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// NSteps returns the number of accounted time steps.
func (s *Simulation) NSteps() int {
	return s.nSteps
}

// SumTimestep returns the cumulative simulated time.
func (s *Simulation) SumTimestep() float64 {
	return s.sumTimestep
}

// MeanTimestep returns the mean dt over the accounted steps, 0 before the
// first step.
func (s *Simulation) MeanTimestep() float64 {
	if s.nSteps == 0 {
		return 0
	}
	return s.sumTimestep / float64(s.nSteps)
}

// IllEvents returns the number of firings whose probability reached 1.
func (s *Simulation) IllEvents() int {
	return s.illEvents
}

// NoteNonGroupedFly records the embedding's signal that a particle left its
// statistics group. Informational only; the engine keeps reacting.
func (s *Simulation) NoteNonGroupedFly(index int) {
	s.nonGroupedFlys++
	s.logger.Infof("non-grouped fly for particle index %d, statistics may be inaccurate", index)
}

// NonGroupedFlys returns the number of recorded non-grouped fly signals.
func (s *Simulation) NonGroupedFlys() int {
	return s.nonGroupedFlys
}

package kinet

import (
	"fmt"
	"strings"
)

// Term pairs a substance with its stoichiometric coefficient on one side of
// a reaction.
type Term struct {
	Substance *Substance
	Factor    int
}

// Reaction is one elementary reaction. Educts and Products map substances to
// their stoichiometric coefficients; the derived fields are precomputed at
// construction and the reaction is immutable afterwards.
//
// StaticProbability is the rate constant pre-multiplied by the powers of all
// isotropic educt concentrations; multiplying it by a timestep dt yields the
// per-particle firing probability for that step. A reaction is independent
// when the sum of its discrete educt coefficients is exactly 1.
type Reaction struct {
	id       string
	educts   []Term
	products []Term

	eductMap   map[*Substance]int
	productMap map[*Substance]int

	rateConstant        float64
	activationEnergy    float64
	hasActivationEnergy bool

	discreteEducts    map[*Substance]int
	discreteProducts  []*Substance
	staticProbability float64
	independent       bool
}

// NewReaction builds a reaction from ordered educt and product terms.
// rateConstant must already be in the engine's time-unit basis (the parser
// applies the rate-constant conversion factor). activationEnergy may be nil.
//
// The product side is trusted to be semantically discrete; isotropic or
// field products are simply excluded from the discrete product multiset
// (their concentrations are static background).
func NewReaction(id string, educts, products []Term, rateConstant float64, activationEnergy *float64) *Reaction {
	r := &Reaction{
		id:             id,
		educts:         educts,
		products:       products,
		eductMap:       make(map[*Substance]int, len(educts)),
		productMap:     make(map[*Substance]int, len(products)),
		rateConstant:   rateConstant,
		discreteEducts: make(map[*Substance]int),
	}
	if activationEnergy != nil {
		r.activationEnergy = *activationEnergy
		r.hasActivationEnergy = true
	}

	r.staticProbability = rateConstant
	nDiscrete := 0
	for _, term := range educts {
		r.eductMap[term.Substance] += term.Factor
		switch term.Substance.Kind {
		case KindDiscrete:
			r.discreteEducts[term.Substance] += term.Factor
			nDiscrete += term.Factor
		case KindIsotropic:
			for i := 0; i < term.Factor; i++ {
				r.staticProbability *= term.Substance.StaticConcentration
			}
		}
	}
	r.independent = nDiscrete == 1

	for _, term := range products {
		r.productMap[term.Substance] += term.Factor
		if term.Substance.Kind == KindDiscrete {
			for i := 0; i < term.Factor; i++ {
				r.discreteProducts = append(r.discreteProducts, term.Substance)
			}
		}
	}

	return r
}

// ID returns the parser-assigned reaction identifier (R1, R2, ...).
func (r *Reaction) ID() string {
	return r.id
}

// RateConstant returns the converted rate constant.
func (r *Reaction) RateConstant() float64 {
	return r.rateConstant
}

// ActivationEnergy returns the optional activation energy and whether one
// was configured. It is stored for a future extension and does not modify
// the firing probability.
func (r *Reaction) ActivationEnergy() (float64, bool) {
	return r.activationEnergy, r.hasActivationEnergy
}

// StaticProbability returns the precomputed static probability.
func (r *Reaction) StaticProbability() float64 {
	return r.staticProbability
}

// Independent reports whether the total discrete educt coefficient is 1.
func (r *Reaction) Independent() bool {
	return r.independent
}

// Educts returns the educt terms in configuration order.
func (r *Reaction) Educts() []Term {
	return r.educts
}

// Products returns the product terms in configuration order.
func (r *Reaction) Products() []Term {
	return r.products
}

// EductFactor returns the stoichiometric coefficient of subst on the educt
// side, or 0.
func (r *Reaction) EductFactor(subst *Substance) int {
	return r.eductMap[subst]
}

// DiscreteEducts returns the discrete subset of the educts.
func (r *Reaction) DiscreteEducts() map[*Substance]int {
	return r.discreteEducts
}

// SoleDiscreteEduct returns the unique discrete educt of an independent
// reaction, or nil for dependent reactions.
func (r *Reaction) SoleDiscreteEduct() *Substance {
	if !r.independent {
		return nil
	}
	for s := range r.discreteEducts {
		return s
	}
	return nil
}

// DiscreteProducts returns the flat product multiset: each discrete product
// repeated by its coefficient, in configuration order.
func (r *Reaction) DiscreteProducts() []*Substance {
	return r.discreteProducts
}

// Equation renders the reaction in configuration syntax, e.g. "A + 2M => B".
func (r *Reaction) Equation() string {
	return sideString(r.educts) + " => " + sideString(r.products)
}

func sideString(terms []Term) string {
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		if term.Factor == 1 {
			parts = append(parts, term.Substance.Name)
		} else {
			parts = append(parts, fmt.Sprintf("%d%s", term.Factor, term.Substance.Name))
		}
	}
	return strings.Join(parts, " + ")
}

// String implements fmt.Stringer for log lines.
func (r *Reaction) String() string {
	return r.id + ": " + r.Equation()
}

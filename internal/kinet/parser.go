package kinet

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	substancesHeader = "[substances]"
	reactionsHeader  = "[reactions]"
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ConfigParser reads the two-section reaction configuration format and
// yields a SubstanceTable plus the reaction set. The rate constants read
// from the file are divided by the rate-constant conversion factor, e.g.
// 1e6 to convert s⁻¹ rates into the engine's µs⁻¹ basis.
type ConfigParser struct {
	rateConversion float64
	logger         Logger
}

// NewConfigParser creates a parser with the given rate-constant conversion
// factor. A factor <= 0 is treated as 1 (no conversion).
func NewConfigParser(rateConversion float64) *ConfigParser {
	if rateConversion <= 0 {
		rateConversion = 1
	}
	return &ConfigParser{
		rateConversion: rateConversion,
		logger:         NewNoOpLogger(),
	}
}

// SetLogger sets the logger used for parse warnings.
func (p *ConfigParser) SetLogger(logger Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// ParseFile opens and parses the configuration file at path.
func (p *ConfigParser) ParseFile(path string) (*SubstanceTable, []*Reaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &FileError{Path: path, Err: err}
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse reads the configuration from r. Everything before the first section
// header is prolog comment; blank lines are ignored; leading and trailing
// whitespace (including CR from CRLF line endings) is tolerated.
func (p *ConfigParser) Parse(r io.Reader) (*SubstanceTable, []*Reaction, error) {
	table := NewSubstanceTable()
	reactions := make([]*Reaction, 0)

	const (
		sectionNone = iota
		sectionSubstances
		sectionReactions
	)
	section := sectionNone

	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case substancesHeader:
			section = sectionSubstances
			continue
		case reactionsHeader:
			section = sectionReactions
			continue
		}

		switch section {
		case sectionNone:
			// prolog comment
		case sectionSubstances:
			if err := p.parseSubstanceLine(table, line, lineno); err != nil {
				return nil, nil, err
			}
		case sectionReactions:
			reaction, err := p.parseReactionLine(table, line, lineno, len(reactions)+1)
			if err != nil {
				return nil, nil, err
			}
			reactions = append(reactions, reaction)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, &FileError{Path: "<stream>", Err: err}
	}

	p.warnStaticProducts(reactions)
	return table, reactions, nil
}

// parseSubstanceLine handles `name kind [num1] [num2]`.
func (p *ConfigParser) parseSubstanceLine(table *SubstanceTable, line string, lineno int) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return &LineError{Line: lineno, Reason: "expected 'name kind [num1] [num2]'"}
	}
	name := fields[0]
	if !nameRe.MatchString(name) {
		return &LineError{Line: lineno, Reason: fmt.Sprintf("invalid substance name %q", name)}
	}
	kind, ok := ParseKind(fields[1])
	if !ok {
		return &UnknownKindError{Kind: fields[1], Line: lineno}
	}

	subst := &Substance{Name: name, Kind: kind}
	switch kind {
	case KindIsotropic:
		if len(fields) < 3 {
			p.logger.Warnf("substance %s on line %d: isotropic without concentration, assuming 0", name, lineno)
			break
		}
		conc, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return &LineError{Line: lineno, Reason: fmt.Sprintf("invalid concentration %q", fields[2])}
		}
		subst.StaticConcentration = conc
	case KindDiscrete:
		if len(fields) < 4 {
			return &MissingPhysicsError{Name: name, Line: lineno}
		}
		mass, errM := strconv.ParseFloat(fields[2], 64)
		charge, errQ := strconv.ParseFloat(fields[3], 64)
		if errM != nil || errQ != nil {
			return &MissingPhysicsError{Name: name, Line: lineno}
		}
		subst.Mass = mass
		subst.Charge = charge
	case KindField:
		// no extra numbers
	}

	table.Add(subst)
	return nil
}

// parseReactionLine handles `educt_expr => product_expr ; rate [; E_a]`.
func (p *ConfigParser) parseReactionLine(table *SubstanceTable, line string, lineno, ordinal int) (*Reaction, error) {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, line)

	parts := strings.Split(stripped, ";")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, &LineError{Line: lineno, Reason: "expected 'educts => products ; rate [; activation_energy]'"}
	}

	sides := strings.Split(parts[0], "=>")
	if len(sides) != 2 {
		return nil, &LineError{Line: lineno, Reason: "expected exactly one '=>'"}
	}
	if sides[0] == "" {
		return nil, &LineError{Line: lineno, Reason: "empty educt side"}
	}

	educts, err := p.parseSide(table, sides[0], lineno)
	if err != nil {
		return nil, err
	}
	products, err := p.parseSide(table, sides[1], lineno)
	if err != nil {
		return nil, err
	}

	rate, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, &LineError{Line: lineno, Reason: fmt.Sprintf("invalid rate constant %q", parts[1])}
	}
	rate /= p.rateConversion

	var activationEnergy *float64
	if len(parts) == 3 {
		ea, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, &LineError{Line: lineno, Reason: fmt.Sprintf("invalid activation energy %q", parts[2])}
		}
		activationEnergy = &ea
	}

	id := fmt.Sprintf("R%d", ordinal)
	return NewReaction(id, educts, products, rate, activationEnergy), nil
}

// parseSide parses a '+'-separated list of `[multiplier]name` partner terms.
// A term repeating the same substance accumulates its coefficient. An empty
// expression yields no terms (a pure-destruction product side).
func (p *ConfigParser) parseSide(table *SubstanceTable, expr string, lineno int) ([]Term, error) {
	if expr == "" {
		return nil, nil
	}
	terms := make([]Term, 0, 2)
	at := make(map[*Substance]int)
	for _, raw := range strings.Split(expr, "+") {
		digits := 0
		for digits < len(raw) && raw[digits] >= '0' && raw[digits] <= '9' {
			digits++
		}
		factor := 1
		if digits > 0 {
			n, err := strconv.Atoi(raw[:digits])
			if err != nil || n < 1 {
				return nil, &LineError{Line: lineno, Reason: fmt.Sprintf("invalid multiplier in term %q", raw)}
			}
			factor = n
		}
		name := raw[digits:]
		if name == "" || !nameRe.MatchString(name) {
			return nil, &LineError{Line: lineno, Reason: fmt.Sprintf("invalid partner term %q", raw)}
		}
		subst, ok := table.ByName(name)
		if !ok {
			return nil, &UnknownSpeciesError{Name: name, Line: lineno}
		}
		if i, seen := at[subst]; seen {
			terms[i].Factor += factor
			continue
		}
		at[subst] = len(terms)
		terms = append(terms, Term{Substance: subst, Factor: factor})
	}
	return terms, nil
}

// warnStaticProducts warns about isotropic or field substances appearing on
// a product side; such concentrations are static and the reaction still
// loads.
func (p *ConfigParser) warnStaticProducts(reactions []*Reaction) {
	for i, r := range reactions {
		for _, term := range r.Products() {
			if term.Substance.Kind != KindDiscrete {
				p.logger.Warnf("reaction %d (%s): product %s is %s, its concentration stays static",
					i+1, r.Equation(), term.Substance.Name, term.Substance.Kind)
			}
		}
	}
}

package kinet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

// recordLogger captures warnings emitted during parsing.
type recordLogger struct {
	warnings []string
}

func (r *recordLogger) Debugf(format string, v ...any) {}
func (r *recordLogger) Infof(format string, v ...any)  {}
func (r *recordLogger) Warnf(format string, v ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, v...))
}
func (r *recordLogger) Errorf(format string, v ...any) {}

func parseString(t *testing.T, cfg string, rateConversion float64) (*SubstanceTable, []*Reaction) {
	t.Helper()
	parser := NewConfigParser(rateConversion)
	table, reactions, err := parser.Parse(strings.NewReader(cfg))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return table, reactions
}

func TestParse_FullConfig(t *testing.T) {
	cfg := "prolog chatter, ignored\r\n" +
		"\r\n" +
		"[substances]\r\n" +
		"  He isotropic 2.5e2 \r\n" +
		"A_plus discrete 28.0 1\r\n" +
		"B_plus discrete 44.0 1\r\n" +
		"e field\r\n" +
		"\r\n" +
		"[reactions]\r\n" +
		"A_plus + He => B_plus ; 1.2e6\r\n" +
		"B_plus + 2 He => A_plus ; 4.0e5 ; 0.35\r\n"

	table, reactions := parseString(t, cfg, 1e6)

	if table.Len() != 4 {
		t.Fatalf("Expected 4 substances, got %d", table.Len())
	}
	he, _ := table.ByName("He")
	if he.Kind != KindIsotropic || he.StaticConcentration != 2.5e2 {
		t.Errorf("Expected He isotropic with concentration 250, got %v %g", he.Kind, he.StaticConcentration)
	}
	a, _ := table.ByName("A_plus")
	if a.Kind != KindDiscrete || a.Mass != 28.0 || a.Charge != 1 {
		t.Errorf("Expected A_plus discrete m=28 q=1")
	}

	if len(reactions) != 2 {
		t.Fatalf("Expected 2 reactions, got %d", len(reactions))
	}
	if reactions[0].RateConstant() != 1.2 {
		t.Errorf("Expected converted rate 1.2, got %g", reactions[0].RateConstant())
	}
	if reactions[0].ID() != "R1" || reactions[1].ID() != "R2" {
		t.Errorf("Expected reaction IDs R1, R2")
	}
	if _, ok := reactions[0].ActivationEnergy(); ok {
		t.Errorf("Expected R1 without activation energy")
	}
	ea, ok := reactions[1].ActivationEnergy()
	if !ok || ea != 0.35 {
		t.Errorf("Expected R2 activation energy 0.35, got %g (ok=%v)", ea, ok)
	}
	// "2 He" collapses to the term 2He after whitespace stripping
	if reactions[1].EductFactor(he) != 2 {
		t.Errorf("Expected He factor 2 in R2, got %d", reactions[1].EductFactor(he))
	}
}

func TestParse_IsotropicMissingConcentration(t *testing.T) {
	logger := &recordLogger{}
	parser := NewConfigParser(1)
	parser.SetLogger(logger)

	table, _, err := parser.Parse(strings.NewReader("[substances]\nM isotropic\n[reactions]\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	m, _ := table.ByName("M")
	if m.StaticConcentration != 0 {
		t.Errorf("Expected concentration 0, got %g", m.StaticConcentration)
	}
	if len(logger.warnings) != 1 {
		t.Errorf("Expected 1 warning, got %d", len(logger.warnings))
	}
}

func TestParse_DiscreteMissingPhysics(t *testing.T) {
	parser := NewConfigParser(1)
	_, _, err := parser.Parse(strings.NewReader("[substances]\nA discrete 28.0\n"))

	var missing *MissingPhysicsError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingPhysicsError, got %v", err)
	}
	if missing.Name != "A" || missing.Line != 2 {
		t.Errorf("Expected name A on line 2, got %s on line %d", missing.Name, missing.Line)
	}
}

func TestParse_UnknownKind(t *testing.T) {
	parser := NewConfigParser(1)
	_, _, err := parser.Parse(strings.NewReader("[substances]\nA liquid 1 1\n"))

	var unknown *UnknownKindError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownKindError, got %v", err)
	}
	if unknown.Kind != "liquid" {
		t.Errorf("Expected kind 'liquid', got %q", unknown.Kind)
	}
}

func TestParse_UnknownSpecies(t *testing.T) {
	parser := NewConfigParser(1)
	cfg := "[substances]\nA discrete 1 1\n[reactions]\nA => Z ; 1.0\n"
	_, _, err := parser.Parse(strings.NewReader(cfg))

	var unknown *UnknownSpeciesError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownSpeciesError, got %v", err)
	}
	if unknown.Name != "Z" || unknown.Line != 4 {
		t.Errorf("Expected species Z on line 4, got %s on line %d", unknown.Name, unknown.Line)
	}
}

func TestParse_BadReactionLines(t *testing.T) {
	head := "[substances]\nA discrete 1 1\nB discrete 1 1\n[reactions]\n"
	cases := []string{
		"A => B\n",              // no rate
		"A => B ; 1 ; 2 ; 3\n",  // too many fields
		"A = B ; 1.0\n",         // missing arrow
		"A => B => A ; 1.0\n",   // two arrows
		"=> B ; 1.0\n",          // empty educt side
		"0A => B ; 1.0\n",       // zero multiplier
		"A + => B ; 1.0\n",      // empty partner term
		"A => B ; fast\n",       // unparsable rate
		"A => B ; 1.0 ; high\n", // unparsable activation energy
	}
	for _, bad := range cases {
		parser := NewConfigParser(1)
		_, _, err := parser.Parse(strings.NewReader(head + bad))
		var lineErr *LineError
		if !errors.As(err, &lineErr) {
			t.Errorf("Expected LineError for %q, got %v", strings.TrimSpace(bad), err)
			continue
		}
		if lineErr.Line != 5 {
			t.Errorf("Expected line 5 for %q, got %d", strings.TrimSpace(bad), lineErr.Line)
		}
	}
}

func TestParse_RepeatedTermAccumulates(t *testing.T) {
	cfg := "[substances]\nM isotropic 2\nA discrete 1 1\nB discrete 1 1\n[reactions]\nA + M + M => B ; 1.0\n"
	table, reactions := parseString(t, cfg, 1)

	m, _ := table.ByName("M")
	if reactions[0].EductFactor(m) != 2 {
		t.Errorf("Expected M coefficient to accumulate to 2, got %d", reactions[0].EductFactor(m))
	}
	// static probability sees the accumulated power: 1.0 * 2^2
	if reactions[0].StaticProbability() != 4.0 {
		t.Errorf("Expected static probability 4.0, got %g", reactions[0].StaticProbability())
	}
}

func TestParse_StaticProductWarning(t *testing.T) {
	logger := &recordLogger{}
	parser := NewConfigParser(1)
	parser.SetLogger(logger)

	cfg := "[substances]\nM isotropic 2\nA discrete 1 1\n[reactions]\nA => M ; 1.0\n"
	_, reactions, err := parser.Parse(strings.NewReader(cfg))
	if err != nil {
		t.Fatalf("Expected warning only, got error %v", err)
	}
	if len(reactions) != 1 {
		t.Fatalf("Expected reaction to load despite warning")
	}
	if len(logger.warnings) != 1 {
		t.Errorf("Expected 1 warning, got %d: %v", len(logger.warnings), logger.warnings)
	}
}

func TestParse_ReplaceInPlaceDuringParsing(t *testing.T) {
	cfg := "[substances]\nX isotropic 1\nX discrete 10 1\n[reactions]\n"
	table, _ := parseString(t, cfg, 1)

	if table.Len() != 1 {
		t.Fatalf("Expected 1 substance, got %d", table.Len())
	}
	x, _ := table.ByName("X")
	if x.Kind != KindDiscrete || x.Mass != 10 {
		t.Errorf("Expected the later discrete declaration to win")
	}
	if table.DiscreteLen() != 1 {
		t.Errorf("Expected X in the discrete view")
	}
}

func TestParseFile_Unreadable(t *testing.T) {
	parser := NewConfigParser(1)
	_, _, err := parser.ParseFile(filepath.Join(t.TempDir(), "missing.cfg"))

	var fileErr *FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("Expected FileError, got %v", err)
	}
}

func TestParseFile_Examples(t *testing.T) {
	for _, name := range []string{"decay.cfg", "chain.cfg"} {
		parser := NewConfigParser(1e6)
		table, reactions, err := parser.ParseFile(filepath.Join("..", "..", "examples", name))
		if err != nil {
			t.Fatalf("Failed to parse %s: %v", name, err)
		}
		if table.DiscreteLen() == 0 {
			t.Errorf("%s: expected at least one discrete substance", name)
		}
		if len(reactions) == 0 {
			t.Errorf("%s: expected at least one reaction", name)
		}
	}
}

package main

import (
	"bufio"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/profile"

	"github.com/daniacca/mcreact/internal/kinet"
)

// consoleLogger forwards engine info, warning and error lines to the standard
// log package (stderr); debug lines are dropped.
type consoleLogger struct{}

func (consoleLogger) Debugf(format string, v ...any) {}
func (consoleLogger) Infof(format string, v ...any)  { log.Printf("[INFO] "+format, v...) }
func (consoleLogger) Warnf(format string, v ...any)  { log.Printf("[WARN] "+format, v...) }
func (consoleLogger) Errorf(format string, v ...any) { log.Printf("[ERROR] "+format, v...) }

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s nSteps maxDt nParticles outFile\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "environment: MCREACT_CONFIG (default reactions.cfg), MCREACT_RATE_CONV (default 1e6), MCREACT_SEED, MCREACT_PROFILE=cpu\n")
}

func main() {
	_ = godotenv.Load(".env")

	if len(os.Args) != 5 {
		usage()
		os.Exit(1)
	}

	nSteps, err1 := strconv.Atoi(os.Args[1])
	maxDt, err2 := strconv.ParseFloat(os.Args[2], 64)
	nParticles, err3 := strconv.Atoi(os.Args[3])
	outPath := os.Args[4]
	if err1 != nil || err2 != nil || err3 != nil || nSteps < 0 || maxDt <= 0 || nParticles < 0 {
		usage()
		os.Exit(1)
	}

	if os.Getenv("MCREACT_PROFILE") == "cpu" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	configPath := os.Getenv("MCREACT_CONFIG")
	if configPath == "" {
		configPath = "reactions.cfg"
	}
	rateConv := 1e6
	if v := os.Getenv("MCREACT_RATE_CONV"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rateConv = f
		}
	}
	seed := time.Now().UnixNano()
	if v := os.Getenv("MCREACT_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			seed = n
		}
	}

	logger := consoleLogger{}
	sim, err := kinet.LoadSimulation(configPath, rateConv, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(2)
	}

	// one source drives seeding, dt draws and the reaction loop, so a fixed
	// MCREACT_SEED reproduces the whole run
	src := rand.New(rand.NewSource(seed))
	sim.SetRandom(src)
	sim.SetLogIllEvents(true)

	dumpState(sim)

	table := sim.Substances()
	if table.DiscreteLen() == 0 {
		fmt.Fprintf(os.Stderr, "error: no discrete substance configured\n")
		os.Exit(2)
	}
	seedSpecies := table.ByDiscreteIndex(1)
	for i := 1; i <= nParticles; i++ {
		p := &kinet.Particle{
			Substance: seedSpecies,
			X:         src.Float64(),
			Y:         src.Float64(),
			Z:         0,
		}
		sim.AddParticle(p, i)
	}

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating output file: %v\n", err)
		os.Exit(2)
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	defer w.Flush()

	for step := 0; step < nSteps; step++ {
		dt := maxDt * (1 - src.Float64()) // uniform in (0, maxDt]
		sim.AdvanceTimestep(dt)
		for _, idx := range sim.LiveIndices() {
			if outcome := sim.React(idx, 0, dt); outcome.Destroyed {
				sim.RemoveP(idx)
			}
		}
		sim.RandomWalk()
		writeStepLine(w, sim)
	}
	fmt.Fprintf(w, " ill events: %d mean dt: %g\n", sim.IllEvents(), sim.MeanTimestep())

	log.Printf("[INFO] finished: steps=%d particles=%d ill=%d", sim.NSteps(), sim.PopulationSize(), sim.IllEvents())
}

// writeStepLine appends one `sum_timestep; c_1; ...; c_D;` record.
func writeStepLine(w *bufio.Writer, sim *kinet.Simulation) {
	table := sim.Substances()
	fmt.Fprintf(w, "%g; ", sim.SumTimestep())
	for j := 1; j <= table.DiscreteLen(); j++ {
		fmt.Fprintf(w, "%d; ", sim.Concentration(table.ByDiscreteIndex(j)))
	}
	fmt.Fprintln(w)
}

// dumpState prints the loaded configuration to stdout.
func dumpState(sim *kinet.Simulation) {
	fmt.Println("substances:")
	for i, subst := range sim.Substances().All() {
		switch subst.Kind {
		case kinet.KindDiscrete:
			fmt.Printf("  %d %s %s m=%g q=%g\n", i+1, subst.Name, subst.Kind, subst.Mass, subst.Charge)
		case kinet.KindIsotropic:
			fmt.Printf("  %d %s %s c=%g\n", i+1, subst.Name, subst.Kind, subst.StaticConcentration)
		default:
			fmt.Printf("  %d %s %s\n", i+1, subst.Name, subst.Kind)
		}
	}
	fmt.Println("reactions:")
	for _, r := range sim.Reactions() {
		kind := "independent"
		if !r.Independent() {
			kind = "dependent"
		}
		fmt.Printf("  %s k=%g p_static=%g (%s)\n", r, r.RateConstant(), r.StaticProbability(), kind)
	}
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/agent"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/analyze"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/config"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/ingest"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/profile"
)

func main() {
	// Dispatch subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "analyze":
			runAnalyzeCmd(os.Args[2:])
			return
		case "serve":
			runServeCmd(os.Args[2:])
			return
		}
	}

	// Default behavior (flags -> analyze)
	runAnalyzeCmd(os.Args[1:])
}

// Flags holds pointers to all supported CLI flags
type Flags struct {
	// Config File (optional)
	ConfigFile  *string
	WriteConfig *string

	// Input selection
	Input        *string
	TimestampCol *string
	ValueCol     *string
	Delimiter    *string
	Inoculation  *string
	EndOfRun     *string

	// Detection overrides (used when no -config file is given)
	Decimals     *int
	Grid         *int
	MinDuration  *int
	RampSlopeTol *float64
	PIDMinRun    *int

	// Output
	Out         *string
	Reconstruct *string
	Verbose     *bool
}

func SetupFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	f.ConfigFile = fs.String("config", "", "Path to YAML detection configuration (disables detection flags)")
	f.WriteConfig = fs.String("write-config", "", "Save the effective configuration to this YAML file")

	f.Input = fs.String("input", "", "Path to the delimited setpoint log file")
	f.TimestampCol = fs.String("timestamp-col", "timestamp", "Header name of the timestamp column")
	f.ValueCol = fs.String("value-col", "value", "Header name of the setpoint value column")
	f.Delimiter = fs.String("delimiter", ",", "Field delimiter (use 'tab' for TSV)")
	f.Inoculation = fs.String("inoculation", "", "Inoculation time (process zero), e.g. '2026-03-01 08:00:00'")
	f.EndOfRun = fs.String("end", "", "End-of-run time; components past it are truncated")

	f.Decimals = fs.Int("decimals", 1, "Decimal places for setpoint value rounding")
	f.Grid = fs.Int("grid", 5, "Duration grid in minutes")
	f.MinDuration = fs.Int("min-duration", 10, "Minimum component duration in minutes")
	f.RampSlopeTol = fs.Float64("ramp-slope-tol", 1, "Ramp slope tolerance in units per step")
	f.PIDMinRun = fs.Int("pid-min-run", 3, "Minimum run count for a PID signature")

	f.Out = fs.String("out", "", "Write the profile JSON here (default stdout)")
	f.Reconstruct = fs.String("reconstruct", "", "Also write the reconstructed series JSON here (debug)")
	f.Verbose = fs.Bool("v", false, "Verbose (debug) logging")
	return f
}

// LoadConfig determines the config source (file or flags) and returns the
// effective detection configuration.
func (f *Flags) LoadConfig() (config.Config, error) {
	if *f.ConfigFile != "" {
		cfg, err := config.Load(*f.ConfigFile)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config file: %w", err)
		}
		return cfg, nil
	}

	cfg := config.Default()
	cfg.ValueRoundDecimals = *f.Decimals
	cfg.DurationGridMinutes = *f.Grid
	cfg.MinDurationMinutes = *f.MinDuration
	cfg.RampSlopeTol = *f.RampSlopeTol
	cfg.PIDMinRun = *f.PIDMinRun
	return cfg, nil
}

func (f *Flags) MaybeWriteConfig(cfg config.Config) {
	if *f.WriteConfig == "" {
		return
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Printf("Warning: Failed to marshal config for writing: %v\n", err)
		return
	}
	if err := os.WriteFile(*f.WriteConfig, data, 0644); err != nil {
		fmt.Printf("Warning: Failed to write config file: %v\n", err)
		return
	}
	fmt.Printf("Configuration written to %s\n", *f.WriteConfig)
}

func (f *Flags) logger() *zap.Logger {
	if *f.Verbose {
		log, _ := zap.NewDevelopment()
		return log
	}
	log, _ := zap.NewProduction()
	return log
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseFlagTime(name, val string) (time.Time, error) {
	if val == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, val); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse -%s value %q", name, val)
}

func runAnalyzeCmd(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	f := SetupFlags(fs)
	fs.Parse(args)

	if *f.Input == "" {
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := f.LoadConfig()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	log := f.logger()
	defer log.Sync()

	inoc, err := parseFlagTime("inoculation", *f.Inoculation)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	end, err := parseFlagTime("end", *f.EndOfRun)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if !end.IsZero() && !inoc.IsZero() {
		cfg.WindowEndMinutes = end.Sub(inoc).Minutes()
	}
	f.MaybeWriteConfig(cfg)

	comma := ','
	if strings.EqualFold(*f.Delimiter, "tab") || *f.Delimiter == "\t" {
		comma = '\t'
	} else if *f.Delimiter != "" {
		comma = rune((*f.Delimiter)[0])
	}

	raw, err := ingest.ReadFile(*f.Input, ingest.Options{
		TimestampColumn: *f.TimestampCol,
		ValueColumn:     *f.ValueCol,
		Comma:           comma,
		Inoculation:     inoc,
	}, log)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	a := analyze.New(cfg, analyze.WithLogger(log))
	components, err := a.Run(raw)
	if err != nil {
		fmt.Printf("Analysis failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n>>> Analysis Complete <<<\n")
	fmt.Printf("Components: %d\n", len(components))
	for _, c := range components {
		fmt.Printf("  %-8s %4d min  %s\n", c.Kind, c.DurationMinutes, describe(c))
	}

	writeProfile(*f.Out, components)

	if *f.Reconstruct != "" {
		rebuilt := profile.Reconstruct(components, 1)
		data, err := json.MarshalIndent(rebuilt, "", "  ")
		if err == nil {
			err = os.WriteFile(*f.Reconstruct, data, 0644)
		}
		if err != nil {
			fmt.Printf("Failed to write reconstruction: %v\n", err)
		}
	}
}

func runServeCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	f := SetupFlags(fs)
	port := fs.Int("port", 9000, "Port to listen on")
	fs.Parse(args)

	cfg, err := f.LoadConfig()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	f.MaybeWriteConfig(cfg)

	log := f.logger()
	defer log.Sync()

	srv := agent.NewServer(cfg, log)
	if err := srv.ListenAndServe(*port); err != nil {
		fmt.Printf("Agent failed: %v\n", err)
		os.Exit(1)
	}
}

func describe(c profile.Component) string {
	switch c.Kind {
	case profile.KindConstant:
		return fmt.Sprintf("value=%g", c.Constant.Value)
	case profile.KindRamp:
		return fmt.Sprintf("%g -> %g", c.Ramp.StartValue, c.Ramp.EndValue)
	case profile.KindPWM:
		return fmt.Sprintf("high=%g low=%g pulse=%g%%", c.PWM.HighValue, c.PWM.LowValue, c.PWM.PulsePercent)
	case profile.KindPID:
		return fmt.Sprintf("setpoint=%g [%g, %g]", c.PID.Setpoint, c.PID.MinAllowed, c.PID.MaxAllowed)
	}
	return ""
}

func writeProfile(path string, components []profile.Component) {
	data, err := json.MarshalIndent(components, "", "  ")
	if err != nil {
		fmt.Printf("Failed to marshal profile: %v\n", err)
		return
	}
	if path == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Printf("Failed to write profile: %v\n", err)
		return
	}
	fmt.Printf("Profile written to %s\n", path)
}

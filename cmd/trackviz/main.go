package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/trackviz/internal/config"
	"github.com/banshee-data/trackviz/internal/tracks"
	"github.com/banshee-data/trackviz/internal/version"
	"github.com/banshee-data/trackviz/internal/visualiser"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitUsage
	}

	command, args := args[0], args[1:]
	switch command {
	case "trajectories":
		return handleTrajectories(ctx, args, stdout, stderr)
	case "overlay":
		return handleOverlay(ctx, args, stdout, stderr)
	case "archive":
		return handleArchive(ctx, args, stdout, stderr)
	case "runs":
		return handleRuns(ctx, args, stdout, stderr)
	case "replay":
		return handleReplay(ctx, args, stdout, stderr)
	case "config":
		return handleConfig(args, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.String())
		return exitOK
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return exitUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `trackviz - plot tracking simulation output

Usage: trackviz <command> [options]

Commands:
  trajectories        Plot ground truth and track trajectories (top view)
  overlay <image>     Mark last-frame positions on top of an image
  archive             Store the current simulation output as a run
  runs                List archived runs (--delete <run-id> removes one)
  replay <run-id>     Plot the trajectories of an archived run
  config              Print the effective configuration as YAML
  version             Show trackviz version
  help                Show this help message

Common Flags:
  --config <file>      Configuration file (.json, .yaml or .yml)
  --data-dir <dir>     Directory holding ground_truth.csv and tracks.csv (default: output)
  --output-dir <dir>   Directory figures are saved to (default: output)
  --db <file>          Run archive database (default: <output-dir>/trackviz.db)
  --listen <addr>      Viewer address (default: localhost:8089)
  --no-show            Save only, do not open the viewer

Examples:
  # Plot the latest simulation run and save a copy
  trackviz trajectories -o output/trajectories.png

  # Overlay the last frame on a camera image
  trackviz overlay images/highway.png

  # Keep this run, then plot it again later
  trackviz archive --label baseline
  trackviz runs
  trackviz replay 3f2a
  trackviz runs --delete 3f2a`)
}

// commonFlags are shared by every plotting and archive command.
type commonFlags struct {
	configPath string
	dataDir    string
	outputDir  string
	dbPath     string
	listenAddr string
	noShow     bool
}

func (c *commonFlags) register(fs *flag.FlagSet, plotting bool) {
	fs.StringVar(&c.configPath, "config", "", "Configuration file (.json, .yaml or .yml)")
	fs.StringVar(&c.dataDir, "data-dir", "", "Directory holding the simulator CSVs")
	fs.StringVar(&c.outputDir, "output-dir", "", "Directory figures are saved to")
	fs.StringVar(&c.dbPath, "db", "", "Run archive database path")
	if plotting {
		fs.StringVar(&c.listenAddr, "listen", "", "Viewer listen address")
		fs.BoolVar(&c.noShow, "no-show", false, "Do not open the viewer")
	}
}

// config loads the config file and applies flag overrides.
func (c *commonFlags) config() (*config.VisualiserConfig, error) {
	cfg, err := config.LoadOrEmpty(c.configPath)
	if err != nil {
		return nil, err
	}
	flags := config.Empty()
	flags.SetDataDir(c.dataDir)
	flags.SetOutputDir(c.outputDir)
	flags.SetDBPath(c.dbPath)
	flags.SetListenAddr(c.listenAddr)
	cfg.Override(flags)
	return cfg, nil
}

// visualiser builds the pipeline; saved figures are reported on stdout.
func (c *commonFlags) visualiser(stdout io.Writer) (*visualiser.Visualiser, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}

	opts := visualiser.Options{Config: cfg, Out: stdout}
	if !c.noShow {
		opts.Display = visualiser.Viewer(cfg.GetListenAddr())
	}
	return visualiser.New(opts), nil
}

// parseInterspersed parses flags that may appear before or after the
// positional arguments, returning the positionals in order.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFailed maps a flag parse error to an exit code; -h is not a failure.
func parseFailed(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	return exitUsage
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintln(stderr, visualiser.Describe(err))
	return exitFailure
}

func handleTrajectories(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("trajectories", stderr)
	var common commonFlags
	common.register(fs, true)
	out := fs.String("o", "", "Save the figure as PNG to this path")
	detections := fs.Bool("detections", false, "Overlay detections.csv when present")
	confirmedOnly := fs.Bool("confirmed-only", false, "Drop tentative track samples")
	if _, err := parseInterspersed(fs, args); err != nil {
		return parseFailed(err)
	}

	v, err := common.visualiser(stdout)
	if err != nil {
		return fail(stderr, err)
	}
	if _, err := v.RunTrajectories(ctx, visualiser.TrajectoryRequest{
		OutputPath:    *out,
		Detections:    *detections,
		ConfirmedOnly: *confirmedOnly,
	}); err != nil {
		return fail(stderr, err)
	}
	return exitOK
}

func handleOverlay(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("overlay", stderr)
	var common commonFlags
	common.register(fs, true)
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return parseFailed(err)
	}

	var image string
	if len(positional) > 0 {
		image = positional[0]
	}

	v, err := common.visualiser(stdout)
	if err != nil {
		return fail(stderr, err)
	}
	_, err = v.RunOverlay(ctx, image)
	if errors.Is(err, tracks.ErrMissingArgument) {
		fmt.Fprintln(stderr, "Usage: trackviz overlay <image_path> [options]")
		return exitFailure
	}
	if err != nil {
		return fail(stderr, err)
	}
	return exitOK
}

func handleArchive(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("archive", stderr)
	var common commonFlags
	common.register(fs, false)
	label := fs.String("label", "", "Free-form label stored with the run")
	if _, err := parseInterspersed(fs, args); err != nil {
		return parseFailed(err)
	}

	v, err := common.visualiser(stdout)
	if err != nil {
		return fail(stderr, err)
	}
	run, err := v.Archive(ctx, *label)
	if err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Archived run %s (%d ground truth, %d track samples)\n",
		run.ID, run.GroundTruthRows, run.TrackRows)
	return exitOK
}

func handleRuns(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("runs", stderr)
	var common commonFlags
	common.register(fs, false)
	deleteID := fs.String("delete", "", "Remove the run with this id or unique id prefix")
	if _, err := parseInterspersed(fs, args); err != nil {
		return parseFailed(err)
	}

	v, err := common.visualiser(stdout)
	if err != nil {
		return fail(stderr, err)
	}
	if *deleteID != "" {
		run, err := v.DeleteRun(ctx, *deleteID)
		if err != nil {
			return fail(stderr, err)
		}
		fmt.Fprintf(stdout, "Deleted run %s\n", run.ID)
		return exitOK
	}
	runs, err := v.Runs(ctx)
	if err != nil {
		return fail(stderr, err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No archived runs.")
		return exitOK
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tLABEL\tGT\tTRACKS\tSOURCE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Label, r.GroundTruthRows, r.TrackRows, r.SourceDir)
	}
	if err := tw.Flush(); err != nil {
		return fail(stderr, err)
	}
	return exitOK
}

func handleReplay(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("replay", stderr)
	var common commonFlags
	common.register(fs, true)
	out := fs.String("o", "", "Save the figure as PNG to this path")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return parseFailed(err)
	}
	if len(positional) == 0 {
		fmt.Fprintln(stderr, "Usage: trackviz replay <run-id> [options]")
		return exitFailure
	}

	v, err := common.visualiser(stdout)
	if err != nil {
		return fail(stderr, err)
	}
	if _, err := v.Replay(ctx, positional[0], *out); err != nil {
		return fail(stderr, err)
	}
	return exitOK
}

func handleConfig(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("config", stderr)
	var common commonFlags
	common.register(fs, true)
	if _, err := parseInterspersed(fs, args); err != nil {
		return parseFailed(err)
	}

	cfg, err := common.config()
	if err != nil {
		return fail(stderr, err)
	}
	data, err := yaml.Marshal(cfg.Resolved())
	if err != nil {
		return fail(stderr, err)
	}
	stdout.Write(data)
	return exitOK
}

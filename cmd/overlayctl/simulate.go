package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"comment-overlay/internal/overlay"
	"comment-overlay/internal/render"
	"comment-overlay/internal/simulate"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var simFlags struct {
	from, to, step float64
	width, height  float64
	window         float64
	policy         string
	lanes          int
	seeks          []string
	format         string
	manual         bool
	seed           uint64
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <file>",
	Short: "Replay an overlay file against a simulated playback clock",
	Long: `Replay the comments in an overlay file (or, with --manual, a file of
time,mode,color,text lines) against a virtual clock and print every
activate and deactivate event as YAML or JSON.

Seeks are given as at:to pairs, for example --seek 30:10 jumps back to
10s the first time playback reaches 30s.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seeks, err := parseSeeks(simFlags.seeks)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		var res overlay.ParseResult
		if simFlags.manual {
			res, err = overlay.ParseManual(f, time.Now())
		} else {
			res, err = overlay.ParseWire(f)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Loaded %d comments (%d dropped)\n", len(res.Comments), res.Dropped)

		out, err := simulate.Run(res.Comments, simulate.Options{
			From:       simFlags.from,
			To:         simFlags.to,
			Step:       simFlags.step,
			Seeks:      seeks,
			Viewport:   overlay.Viewport{Width: simFlags.width, Height: simFlags.height},
			Window:     simFlags.window,
			SeekPolicy: overlay.SeekPolicy(simFlags.policy),
			Lanes:      simFlags.lanes,
			Measurer:   render.NewMeasurer(),
			Seed:       simFlags.seed,
		})
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), simFlags.format, out)
	},
}

func init() {
	fl := simulateCmd.Flags()
	fl.Float64Var(&simFlags.from, "from", 0, "playback start in seconds")
	fl.Float64Var(&simFlags.to, "to", 60, "playback end in seconds")
	fl.Float64Var(&simFlags.step, "step", 0.25, "seconds between clock ticks")
	fl.Float64Var(&simFlags.width, "width", 800, "container width in pixels")
	fl.Float64Var(&simFlags.height, "height", 450, "container height in pixels")
	fl.Float64Var(&simFlags.window, "window", overlay.DefaultMatchWindow, "match window in seconds")
	fl.StringVar(&simFlags.policy, "seek-policy", string(overlay.SeekStrand), "strand or catch_up")
	fl.IntVar(&simFlags.lanes, "lanes", 0, "use N fixed lanes instead of random placement")
	fl.StringSliceVar(&simFlags.seeks, "seek", nil, "seek as at:to (repeatable)")
	fl.StringVar(&simFlags.format, "format", "yaml", "output format: yaml or json")
	fl.BoolVar(&simFlags.manual, "manual", false, "input is time,mode,color,text lines")
	fl.Uint64Var(&simFlags.seed, "seed", 1, "random placement seed")
}

func parseSeeks(specs []string) ([]simulate.SeekAt, error) {
	seeks := make([]simulate.SeekAt, 0, len(specs))
	for _, s := range specs {
		at, to, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("invalid seek %q: want at:to", s)
		}
		a, err := strconv.ParseFloat(at, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seek %q: %w", s, err)
		}
		t, err := strconv.ParseFloat(to, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seek %q: %w", s, err)
		}
		seeks = append(seeks, simulate.SeekAt{At: a, To: t})
	}
	return seeks, nil
}

func writeResult(w io.Writer, format string, res simulate.Result) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

/*
	Songtrail
	Copyright (c) 2024 Songtrail contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/


// Package stcmd implements the command line interface and main().
package stcmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/songtrail/songtrail/enrich"
	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
)

// options are the command line flags.
type options struct {
	configFile string
	pairs      string

	noRoute bool
	formats map[string]*bool

	predict bool
	auto    bool
	api     bool
	noHash  bool

	tracks string
	zone   string
	usage  string
	out    string

	verbose bool
}

// formatFlags are the flags that each add an export format.
var formatFlags = []struct {
	name, format, usage string
}{
	{"w", "gpx_waypoints", "write a GPX file of waypoints per track"},
	{"j", "json", "write the songs of each track as a listening history JSON file"},
	{"p", "xspf", "write an XSPF playlist per track"},
	{"s", "txt", "write a file of Spotify URIs per track"},
	{"r", "jsonreport", "write a JSON report that can be read back with -pairs"},
	{"c", "csv", "write a CSV file of the pairs"},
	{"d", "sqlite", "write a SQLite database of the run"},
	{"k", "kml", "write a KML file of placemarks"},
	{"g", "geojson", "write a GeoJSON file of point features"},
	{"plot", "plot", "write a PNG chart of the accuracy of each pair"},
	{"chart", "plot_html", "write an interactive HTML chart of the accuracy of each pair"},
}

func newFlagSet(opts *options, output io.Writer) *flag.FlagSet {
	fset := flag.NewFlagSet("songtrail", flag.ContinueOnError)
	fset.SetOutput(output)

	fset.StringVar(&opts.configFile, "config", DefaultConfigFilePath(), "path to the config file (JSON, or YAML if it ends in .yaml or .yml)")
	fset.StringVar(&opts.pairs, "pairs", "", "read pairs from a JSON report instead of pairing songs with GPS tracks")
	fset.BoolVar(&opts.noRoute, "n", false, "do not write the GPX file of songs")

	opts.formats = make(map[string]*bool)
	for _, ff := range formatFlags {
		opts.formats[ff.format] = fset.Bool(ff.name, false, ff.usage)
	}

	fset.BoolVar(&opts.predict, "predict", false, "correct duplicate coordinates with an index range you enter")
	fset.BoolVar(&opts.auto, "auto", false, "correct all duplicate coordinates automatically")
	fset.BoolVar(&opts.api, "api", false, "look up missing song URIs with the Spotify API")
	fset.BoolVar(&opts.noHash, "nohash", false, "do not verify the hash of a JSON report")
	fset.StringVar(&opts.tracks, "tracks", "", "answer to the track selection menu: an index, a name, or A-F")
	fset.StringVar(&opts.zone, "zone", "", `time zone to display times in: "UTC", "Local", a zone name, or "auto"`)
	fset.StringVar(&opts.usage, "usage", "", `which song time to pair with: "end" or "start"`)
	fset.StringVar(&opts.out, "out", "", "folder to write output files to (default: the folder of the GPS input)")
	fset.BoolVar(&opts.verbose, "v", false, "log debug messages")

	fset.Usage = func() {
		fmt.Fprintln(fset.Output(), "Usage:")
		fmt.Fprintln(fset.Output(), "  songtrail [flags] <songs> <gps>")
		fmt.Fprintln(fset.Output(), "  songtrail [flags] -pairs <report.json>")
		fmt.Fprintln(fset.Output(), "  songtrail fake [-seed N] [-tracks N] [-songs N] <folder>")
		fmt.Fprintln(fset.Output(), "  songtrail formats|help|version")
		fmt.Fprintln(fset.Output())
		fmt.Fprintln(fset.Output(), "Flags:")
		fset.PrintDefaults()
	}
	return fset
}

// apply overrides cfg with the flags that were given.
func (opts *options) apply(cfg *Config) {
	formats := slices.Clone(cfg.Formats)
	if len(formats) == 0 {
		formats = slices.Clone(DefaultFormats)
	}
	if opts.noRoute {
		formats = slices.DeleteFunc(formats, func(f string) bool { return f == "gpx" })
	}
	for _, ff := range formatFlags {
		if *opts.formats[ff.format] && !slices.Contains(formats, ff.format) {
			formats = append(formats, ff.format)
		}
	}
	cfg.Formats = formats

	cfg.Predict = cfg.Predict || opts.predict
	cfg.AutoPredict = cfg.AutoPredict || opts.auto
	if opts.noHash {
		verify := false
		cfg.VerifyHash = &verify
	}
	if opts.tracks != "" {
		cfg.Tracks = opts.tracks
	}
	if opts.zone != "" {
		cfg.DisplayZone = opts.zone
	}
	if opts.usage != "" {
		cfg.TimeUsage = opts.usage
	}
	if opts.out != "" {
		cfg.OutputDir = opts.out
	}
}

// Main runs songtrail with the command line arguments of the process.
func Main() {
	opts := new(options)
	fset := newFlagSet(opts, os.Stderr)
	if err := fset.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if opts.verbose {
		trail.LogLevel.SetLevel(zap.DebugLevel)
	}

	// implement standard (CLI-only) commands
	if subCommand, cmd := getStandardSubcommand(fset); cmd.run != nil {
		if !cmd.ownFlags {
			if err := checkFlagParsing(fset); err != nil {
				trail.Log.Fatal("possible syntax error detected", zap.Error(err))
			}
		}
		if err := cmd.run(fset.Args()[1:]); err != nil {
			trail.Log.Fatal("subcommand failed",
				zap.String("subcommand", subCommand),
				zap.Error(err))
		}
		return
	}

	if err := run(opts, fset.Args()); err != nil {
		if errors.Is(err, context.Canceled) {
			trail.Log.Warn("run cancelled")
			os.Exit(1)
		}
		trail.Log.Fatal("run failed", zap.Error(err))
	}
}

func run(opts *options, args []string) error {
	if opts.pairs == "" && len(args) != 2 {
		return errors.New("expected two arguments, the songs and the GPS input (see 'songtrail help')")
	}
	if opts.pairs != "" && len(args) != 0 {
		return errors.New("no other arguments are allowed with -pairs")
	}

	cfg, err := LoadConfig(opts.configFile)
	if err != nil {
		return err
	}
	opts.apply(&cfg)
	if err := cfg.ApplyEnv(".env"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trapSignals(cancel)

	app := App{
		Config: cfg,
		In:     os.Stdin,
		Out:    os.Stdout,
		Log:    trail.Log,
	}
	if opts.api {
		app.Enrich = &enrich.Config{
			ClientID:          cfg.Spotify.ClientID,
			ClientSecret:      cfg.Spotify.ClientSecret,
			RequestsPerSecond: cfg.Spotify.RequestsPerSecond,
		}
	}

	if opts.pairs != "" {
		_, err = app.Reexport(ctx, opts.pairs)
	} else {
		_, err = app.Pair(ctx, args[0], args[1])
	}
	return err
}

type subcommand struct {
	run func(args []string) error

	// if true, the command parses flags after its name
	ownFlags bool
}

// Gets CLI-only commands.
func getStandardSubcommand(fset *flag.FlagSet) (string, subcommand) {
	standardCommands := map[string]subcommand{
		"fake": {run: func(args []string) error {
			return fakeCommand(args, os.Stdout)
		}, ownFlags: true},
		"formats": {run: func([]string) error {
			printFormats(os.Stdout)
			return nil
		}},
		"help": {run: func([]string) error {
			fset.SetOutput(os.Stdout)
			fset.Usage()
			return nil
		}},
		"version": {run: func([]string) error {
			fmt.Println(version())
			return nil
		}},
	}

	if fset.NArg() > 0 {
		subCommand := fset.Arg(0)
		if cmd, ok := standardCommands[subCommand]; ok {
			return subCommand, cmd
		}
	}
	return "", subcommand{}
}

// checkFlagParsing returns an error if it looks like the
// program may have been invoked with the flags in the
// wrong place, like:
// `songtrail formats -v`
// where it actually needs to be run as:
// `songtrail -v formats`
// in order to set the flag properly. Flags after the first
// positional argument are not parsed.
func checkFlagParsing(fset *flag.FlagSet) error {
	for _, arg := range fset.Args() {
		if strings.HasPrefix(arg, "-") && arg != "-" {
			return fmt.Errorf("flag %s was not parsed; make sure flags go before positional arguments", arg)
		}
	}
	return nil
}

// printFormats lists the registered data sources and what they can do.
func printFormats(w io.Writer) {
	for _, ds := range trail.AllDataSources() {
		var roles []string
		if ds.NewSongImporter != nil {
			roles = append(roles, "songs")
		}
		if ds.NewTrackImporter != nil {
			roles = append(roles, "tracks")
		}
		if ds.NewPairImporter != nil {
			roles = append(roles, "pairs")
		}
		if ds.NewExporter != nil {
			roles = append(roles, "export")
		}
		fmt.Fprintf(w, "%-14s %-28s [%s]\n", ds.Name, ds.Title, strings.Join(roles, ", "))
		if ds.Description != "" {
			fmt.Fprintf(w, "%14s %s\n", "", ds.Description)
		}
	}
}

func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "songtrail (unknown version)"
	}
	return "songtrail " + info.Main.Version
}

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


package stcmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/songtrail/songtrail/enrich"
	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
)

// App pairs songs with GPS points and exports the result.
type App struct {
	Config Config

	// If not nil, songs without a URI are looked up on Spotify.
	Enrich *enrich.Config

	// Where the user is asked questions and where the answers
	// are read from.
	In  io.Reader
	Out io.Writer

	// Log is the base logger; the pairing and dupes loggers
	// are named from it.
	Log *zap.Logger
}

// Pair reads the songs at songsPath and the tracks at gpsPath, pairs
// them, and exports the resulting run.
func (a App) Pair(ctx context.Context, songsPath, gpsPath string) (*trail.Run, error) {
	params, err := a.importParams()
	if err != nil {
		return nil, err
	}

	songsEntry, err := trail.OpenInput(ctx, songsPath)
	if err != nil {
		return nil, fmt.Errorf("opening songs: %w", err)
	}
	songs, err := trail.ImportSongs(ctx, songsEntry, params)
	if err != nil {
		return nil, err
	}

	gpsEntry, err := trail.OpenInput(ctx, gpsPath)
	if err != nil {
		return nil, fmt.Errorf("opening GPS input: %w", err)
	}
	tracks, err := trail.ImportTracks(ctx, gpsEntry, params)
	if err != nil {
		return nil, err
	}

	prompter := trail.NewPrompter(a.In, a.Out)
	selected, err := trail.PromptTracks(prompter, a.Out, trail.CompileTracks(tracks), a.Config.Tracks)
	if err != nil {
		return nil, fmt.Errorf("selecting tracks: %w", err)
	}
	a.Log.Info("selected tracks", zap.Int("count", len(selected)))

	zone, err := trail.DisplayZone(a.Config.DisplayZone, selected)
	if err != nil {
		return nil, err
	}

	pairer := trail.Pairer{Zone: zone, Log: a.Log.Named("pairing")}
	pairs, err := pairer.Pair(ctx, songs, selected)
	if err != nil {
		return nil, err
	}

	run := trail.NewRun(gpsEntry.BaseName())
	run.Tracks = selected
	run.Pairs = pairs

	if err := a.finish(ctx, run, zone, prompter, filepath.Dir(gpsEntry.FullPath())); err != nil {
		return nil, err
	}
	return run, nil
}

// Reexport reads pairs from a previous run's report and runs them
// through prediction, enrichment and export again.
func (a App) Reexport(ctx context.Context, pairsPath string) (*trail.Run, error) {
	params, err := a.importParams()
	if err != nil {
		return nil, err
	}
	entry, err := trail.OpenInput(ctx, pairsPath)
	if err != nil {
		return nil, fmt.Errorf("opening pairs: %w", err)
	}
	pairs, err := trail.ImportPairs(ctx, entry, params)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no pairs in %s", entry.FullPath())
	}

	tracks := TracksFromPairs(pairs)
	zone, err := trail.DisplayZone(a.Config.DisplayZone, tracks)
	if err != nil {
		return nil, err
	}

	run := trail.NewRun(strings.TrimSuffix(entry.BaseName(), "_Report"))
	run.Tracks = tracks
	run.Pairs = pairs
	trail.ReportAccuracy(pairs, a.Log.Named("pairing"))

	prompter := trail.NewPrompter(a.In, a.Out)
	if err := a.finish(ctx, run, zone, prompter, filepath.Dir(entry.FullPath())); err != nil {
		return nil, err
	}
	return run, nil
}

func (a App) importParams() (trail.ImportParams, error) {
	usage, err := a.Config.Usage()
	if err != nil {
		return trail.ImportParams{}, err
	}
	return trail.ImportParams{
		Usage:         usage,
		VerifyHash:    a.Config.ShouldVerifyHash(),
		ReferenceYear: time.Now().Year(),
		Log:           a.Log.Named("import"),
	}, nil
}

// finish corrects duplicates, enriches and exports the run. Files are
// written to the configured output folder, or defaultDir.
func (a App) finish(ctx context.Context, run *trail.Run, zone *time.Location, prompter *trail.Prompter, defaultDir string) error {
	if a.Config.Predict || a.Config.AutoPredict {
		pred := trail.Prediction{
			Auto:     a.Config.AutoPredict,
			Prompter: prompter,
			Log:      a.Log.Named("dupes"),
		}
		pairs, err := pred.Predict(run.Pairs)
		if err != nil {
			return err
		}
		run.Pairs = pairs
	}

	if a.Enrich != nil {
		enricher, err := enrich.New(ctx, *a.Enrich, a.Log.Named("spotify"))
		if err != nil {
			return err
		}
		pairs, found, err := enricher.Pairs(ctx, run.Pairs)
		if err != nil {
			return err
		}
		run.Pairs = pairs
		a.Log.Info("looked up missing song URIs", zap.Int("found", found))
	}

	tpls, err := trail.NewTemplates(a.Config.WaypointName, a.Config.WaypointDescription, zone)
	if err != nil {
		return err
	}

	formats := a.Config.Formats
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	outDir := a.Config.OutputDir
	if outDir == "" {
		outDir = defaultDir
	}

	return trail.Export(ctx, formats, trail.ExportParams{
		Run:       run,
		Output:    trail.Output{Dir: outDir, Name: run.Name},
		Templates: tpls,
		Zone:      zone,
		Log:       a.Log.Named("export"),
	})
}

// TracksFromPairs rebuilds the tracks of imported pairs from the
// points they were paired with, one track per origin, in order of
// each origin's first pair. The tracks only hold those points.
func TracksFromPairs(pairs []trail.Pair) []trail.Track {
	var tracks []trail.Track
	pos := make(map[trail.TrackInfo]int)
	for _, p := range pairs {
		i, ok := pos[p.Origin]
		if !ok {
			i = len(tracks)
			pos[p.Origin] = i
			tracks = append(tracks, trail.Track{Info: p.Origin})
		}
		tracks[i].Points = append(tracks[i].Points, p.Point)
	}
	for i := range tracks {
		slices.SortStableFunc(tracks[i].Points, func(a, b trail.Point) int {
			return a.Time.Compare(b.Time)
		})
	}
	return tracks
}

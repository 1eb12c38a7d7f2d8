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

// Package testhelpers has fixtures shared by the tests of the data sources.
package testhelpers

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"testing/fstest"
	"time"

	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Input returns an input made of files, keyed by slash-separated
// path, without touching the disk.
func Input(t *testing.T, files map[string]string) trail.DirEntry {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, data := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(data), Mode: 0o644}
	}
	info, err := fs.Stat(fsys, ".")
	if err != nil {
		t.Fatalf("stat test input: %v", err)
	}
	return trail.DirEntry{
		DirEntry: fs.FileInfoToDirEntry(info),
		FS:       fsys,
		FSRoot:   "testdata",
		Filename: ".",
	}
}

// OpenFile writes data to a file called name in a temporary folder
// and opens it the way user input is opened.
func OpenFile(t *testing.T, name, data string) trail.DirEntry {
	t.Helper()
	fpath := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(fpath, []byte(data), 0o644); err != nil {
		t.Fatalf("writing test input: %v", err)
	}
	entry, err := trail.OpenInput(context.Background(), fpath)
	if err != nil {
		t.Fatalf("opening test input: %v", err)
	}
	return entry
}

// ImportParams returns import params that log to the test.
func ImportParams(t *testing.T) trail.ImportParams {
	return trail.ImportParams{
		VerifyHash:    true,
		ReferenceYear: 2023,
		Log:           zaptest.NewLogger(t),
	}
}

// ExportParams returns export params for run that write into a
// new temporary folder.
func ExportParams(t *testing.T, run *trail.Run) trail.ExportParams {
	t.Helper()
	tpls, err := trail.NewTemplates("", "", time.UTC)
	if err != nil {
		t.Fatalf("making templates: %v", err)
	}
	return trail.ExportParams{
		Run:       run,
		Output:    trail.Output{Dir: t.TempDir(), Name: run.Name},
		Templates: tpls,
		Zone:      time.UTC,
		Log:       zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel)),
	}
}

// OutputFiles returns the sorted names of the files in dir.
func OutputFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading output folder: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// ReadOutput returns the contents of the file called name in dir.
func ReadOutput(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	return string(data)
}

// Start is the time of the first point of SampleRun.
var Start = time.Date(2023, time.June, 10, 14, 0, 0, 0, time.UTC)

// SampleRun returns a small run of two tracks and four pairs.
// Pair 1 has a predicted point and pair 3 has no album.
func SampleRun() *trail.Run {
	walk := trail.TrackInfo{Index: 0, Name: "Walk", Type: trail.TrackSource}
	ride := trail.TrackInfo{Index: 1, Name: "Ride", Type: trail.TrackSource}

	point := func(track, i int, sec int, lat, lon float64) trail.Point {
		return trail.Point{
			Index:    i,
			Track:    track,
			Location: trail.Coordinate{Latitude: lat, Longitude: lon},
			Time:     Start.Add(time.Duration(sec) * time.Second),
		}
	}
	songAt := func(i, sec int, name, artist, album, uri string) trail.Song {
		end := Start.Add(time.Duration(sec) * time.Second)
		original, _ := json.Marshal(map[string]any{
			"endTime":    end.Format("2006-01-02 15:04"),
			"artistName": artist,
			"trackName":  name,
			"msPlayed":   180000,
		})
		return trail.Song{
			Index:    i,
			Name:     name,
			Artist:   artist,
			Album:    album,
			URI:      uri,
			End:      end,
			Played:   3 * time.Minute,
			Original: original,
		}
	}

	walkPoints := []trail.Point{
		point(0, 0, 0, 47.3769, 8.5417),
		point(0, 1, 240, 47.3775, 8.5430),
		point(0, 2, 480, 47.3781, 8.5442),
	}
	ridePoints := []trail.Point{
		point(1, 0, 3600, 47.4000, 8.6000),
		point(1, 1, 3900, 47.4100, 8.6200),
	}

	predicted := walkPoints[1]
	predicted.Predicted = true

	run := trail.NewRun("trip")
	run.Created = Start.Add(2 * time.Hour)
	run.Tracks = []trail.Track{
		{Info: walk, Points: walkPoints},
		{Info: ride, Points: ridePoints},
	}
	run.Pairs = []trail.Pair{
		{Index: 0, Song: songAt(0, 10, "Blue", "Joni Mitchell", "Blue", "spotify:track:1xJ9TwnB1mfeEiIoDnfgQb"), Point: walkPoints[0], Origin: walk},
		{Index: 1, Song: songAt(1, 250, "River", "Joni Mitchell", "Blue", "spotify:track:0QPvRrgG2oP3pqYfaJamsS"), Point: predicted, Origin: walk},
		{Index: 2, Song: songAt(2, 470, "A Case of You", "Joni Mitchell", "Blue", "spotify:track:6MTeIoQcVzUe6pOu3pwn0t"), Point: walkPoints[2], Origin: walk},
		{Index: 3, Song: songAt(3, 3890, "Big Yellow Taxi", "Joni Mitchell", "", "spotify:track:3ZUf9mY7dVKxuu8IafqGXX"), Point: ridePoints[1], Origin: ride},
	}
	return run
}

// FakeRun pairs a generated journey of the given size into a run.
func FakeRun(t *testing.T, seed uint64, tracks, songs int) *trail.Run {
	t.Helper()
	generated, history := trail.FakeJourney(trail.FakeOptions{
		Seed:           seed,
		Tracks:         tracks,
		PointsPerTrack: 40,
		Songs:          songs,
	})
	pairs, err := trail.Pairer{}.Pair(context.Background(), history, generated)
	if err != nil {
		t.Fatalf("pairing fake journey: %v", err)
	}
	run := trail.NewRun("fake")
	run.Tracks = generated
	run.Pairs = pairs
	return run
}

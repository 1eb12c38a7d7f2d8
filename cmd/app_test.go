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
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/songtrail/songtrail/internal/testhelpers"
	"github.com/songtrail/songtrail/trail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	_ "github.com/songtrail/songtrail/datasources/accplot"
	_ "github.com/songtrail/songtrail/datasources/csv"
	_ "github.com/songtrail/songtrail/datasources/geojson"
	_ "github.com/songtrail/songtrail/datasources/jsonreport"
	_ "github.com/songtrail/songtrail/datasources/kmlgx"
	_ "github.com/songtrail/songtrail/datasources/nmea"
	_ "github.com/songtrail/songtrail/datasources/sqlite"
	_ "github.com/songtrail/songtrail/datasources/xspf"
)

func fakeInput(t *testing.T, tracks int) (gpsPath, songsPath string) {
	t.Helper()
	gpsPath, songsPath, err := WriteFake(t.TempDir(), trail.FakeOptions{
		Seed:           7,
		Tracks:         tracks,
		PointsPerTrack: 30,
		Songs:          25,
	})
	require.NoError(t, err)
	return gpsPath, songsPath
}

func testApp(t *testing.T, cfg Config) App {
	return App{
		Config: cfg,
		In:     strings.NewReader(""),
		Out:    io.Discard,
		Log:    zaptest.NewLogger(t),
	}
}

func TestPairAndExport(t *testing.T) {
	gpsPath, songsPath := fakeInput(t, 1)
	outDir := t.TempDir()

	app := testApp(t, Config{
		Formats:   []string{"gpx", "csv", "jsonreport", "sqlite"},
		OutputDir: outDir,
	})
	run, err := app.Pair(context.Background(), songsPath, gpsPath)
	require.NoError(t, err)

	assert.Equal(t, "fake", run.Name)
	require.Len(t, run.Tracks, 1)
	require.NotEmpty(t, run.Pairs)
	for i, p := range run.Pairs {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, trail.TrackSource, p.Origin.Type)
	}

	assert.Subset(t, testhelpers.OutputFiles(t, outDir),
		[]string{"fake_Report.json", "fake_Songs.csv", "fake_Songs.db", "fake_Songs.gpx"})
}

func TestPairDefaultsToGPSFolder(t *testing.T) {
	gpsPath, songsPath := fakeInput(t, 1)

	_, err := testApp(t, Config{}).Pair(context.Background(), songsPath, gpsPath)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(filepath.Dir(gpsPath), "fake_Songs.gpx"))
	assert.NoError(t, err)
}

func TestPairAllTracks(t *testing.T) {
	gpsPath, songsPath := fakeInput(t, 2)

	app := testApp(t, Config{Tracks: "F", Formats: []string{"csv"}, OutputDir: t.TempDir()})
	run, err := app.Pair(context.Background(), songsPath, gpsPath)
	require.NoError(t, err)

	// two sources, the gap between them, and the combined track
	require.Len(t, run.Tracks, 4)
	assert.Equal(t, trail.TrackGap, run.Tracks[1].Info.Type)
	assert.Equal(t, trail.TrackCombined, run.Tracks[3].Info.Type)

	var combined int
	for _, p := range run.Pairs {
		if p.Origin.Type == trail.TrackCombined {
			combined++
		}
	}
	assert.Positive(t, combined)
}

func TestPairPromptsForTracks(t *testing.T) {
	gpsPath, songsPath := fakeInput(t, 2)

	var out bytes.Buffer
	app := testApp(t, Config{Formats: []string{"csv"}, OutputDir: t.TempDir()})
	app.In = strings.NewReader("Z\n0\n")
	app.Out = &out

	run, err := app.Pair(context.Background(), songsPath, gpsPath)
	require.NoError(t, err)
	require.Len(t, run.Tracks, 1)
	assert.Equal(t, trail.TrackSource, run.Tracks[0].Info.Type)
	assert.Equal(t, 0, run.Tracks[0].Info.Index)
	assert.Contains(t, out.String(), "Multiple GPS tracks found")
}

func TestPairNoAnswer(t *testing.T) {
	gpsPath, songsPath := fakeInput(t, 2)

	_, err := testApp(t, Config{}).Pair(context.Background(), songsPath, gpsPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPairCancelled(t *testing.T) {
	gpsPath, songsPath := fakeInput(t, 1)
	outDir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testApp(t, Config{OutputDir: outDir}).Pair(ctx, songsPath, gpsPath)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, testhelpers.OutputFiles(t, outDir))
}

func TestPairBadTimeUsage(t *testing.T) {
	gpsPath, songsPath := fakeInput(t, 1)

	_, err := testApp(t, Config{TimeUsage: "middle"}).Pair(context.Background(), songsPath, gpsPath)
	require.Error(t, err)
}

func TestReexport(t *testing.T) {
	gpsPath, songsPath := fakeInput(t, 2)
	firstOut := t.TempDir()

	first, err := testApp(t, Config{Tracks: "A", Formats: []string{"jsonreport"}, OutputDir: firstOut}).
		Pair(context.Background(), songsPath, gpsPath)
	require.NoError(t, err)

	secondOut := t.TempDir()
	second, err := testApp(t, Config{Formats: []string{"csv", "gpx"}, OutputDir: secondOut}).
		Reexport(context.Background(), filepath.Join(firstOut, "fake_Report.json"))
	require.NoError(t, err)

	assert.Equal(t, "fake", second.Name)
	assert.NotEqual(t, first.ID, second.ID)
	require.Len(t, second.Pairs, len(first.Pairs))
	for i := range first.Pairs {
		assert.Equal(t, first.Pairs[i].Song.Title(), second.Pairs[i].Song.Title())
		assert.True(t, first.Pairs[i].Point.Time.Equal(second.Pairs[i].Point.Time))
		assert.Equal(t, first.Pairs[i].Origin, second.Pairs[i].Origin)
	}
	assert.Equal(t, []string{"fake_Songs.csv", "fake_Songs.gpx"}, testhelpers.OutputFiles(t, secondOut))
}

func TestReexportTamperedReport(t *testing.T) {
	gpsPath, songsPath := fakeInput(t, 1)
	outDir := t.TempDir()

	first, err := testApp(t, Config{Formats: []string{"jsonreport"}, OutputDir: outDir}).
		Pair(context.Background(), songsPath, gpsPath)
	require.NoError(t, err)

	reportPath := filepath.Join(outDir, "fake_Report.json")
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	name := `"` + first.Pairs[0].Song.Name + `"`
	require.Contains(t, string(data), name)
	data = bytes.Replace(data, []byte(name), []byte(`"Tampered"`), 1)
	require.NoError(t, os.WriteFile(reportPath, data, 0o600))

	_, err = testApp(t, Config{Formats: []string{"csv"}, OutputDir: t.TempDir()}).
		Reexport(context.Background(), reportPath)
	require.ErrorIs(t, err, trail.ErrHashMismatch)

	noVerify := false
	run, err := testApp(t, Config{Formats: []string{"csv"}, OutputDir: t.TempDir(), VerifyHash: &noVerify}).
		Reexport(context.Background(), reportPath)
	require.NoError(t, err)
	assert.Equal(t, "Tampered", run.Pairs[0].Song.Name)
}

func TestTracksFromPairs(t *testing.T) {
	run := testhelpers.SampleRun()
	tracks := TracksFromPairs(run.Pairs)

	require.Len(t, tracks, 2)
	assert.Equal(t, "Walk", tracks[0].Info.Name)
	assert.Equal(t, "Ride", tracks[1].Info.Name)
	for _, tr := range tracks {
		for i := 1; i < len(tr.Points); i++ {
			assert.False(t, tr.Points[i].Time.Before(tr.Points[i-1].Time))
		}
	}
	assert.Nil(t, TracksFromPairs(nil))
}

func TestApplyFlags(t *testing.T) {
	for i, tc := range []struct {
		args   []string
		cfg    Config
		expect Config
	}{
		{
			args:   nil,
			expect: Config{Formats: []string{"gpx"}},
		},
		{
			args:   []string{"-n", "-j", "-s"},
			expect: Config{Formats: []string{"json", "txt"}},
		},
		{
			args:   []string{"-c", "-plot", "-chart"},
			cfg:    Config{Formats: []string{"kml", "csv"}},
			expect: Config{Formats: []string{"kml", "csv", "plot", "plot_html"}},
		},
		{
			args: []string{"-auto", "-tracks", "B", "-zone", "auto", "-usage", "start", "-out", "here"},
			cfg:  Config{Tracks: "A", DisplayZone: "UTC"},
			expect: Config{
				Formats:     []string{"gpx"},
				AutoPredict: true,
				Tracks:      "B",
				DisplayZone: "auto",
				TimeUsage:   "start",
				OutputDir:   "here",
			},
		},
		{
			args:   []string{"-predict"},
			cfg:    Config{AutoPredict: true},
			expect: Config{Formats: []string{"gpx"}, Predict: true, AutoPredict: true},
		},
	} {
		opts := new(options)
		fset := newFlagSet(opts, io.Discard)
		if err := fset.Parse(tc.args); err != nil {
			t.Errorf("Test %d: parsing flags: %v", i, err)
			continue
		}
		cfg := tc.cfg
		opts.apply(&cfg)
		assert.Equal(t, tc.expect, cfg, "Test %d", i)
	}
}

func TestNoHashFlag(t *testing.T) {
	opts := new(options)
	require.NoError(t, newFlagSet(opts, io.Discard).Parse([]string{"-nohash"}))
	var cfg Config
	opts.apply(&cfg)
	assert.False(t, cfg.ShouldVerifyHash())
}

func TestCheckFlagParsing(t *testing.T) {
	for i, tc := range []struct {
		args      []string
		expectErr bool
	}{
		{args: []string{"-v", "formats"}},
		{args: []string{"version"}},
		{args: []string{"formats", "-v"}, expectErr: true},
		{args: []string{"songs.json", "-", "x"}},
	} {
		fset := newFlagSet(new(options), io.Discard)
		if err := fset.Parse(tc.args); err != nil {
			t.Errorf("Test %d: parsing flags: %v", i, err)
			continue
		}
		err := checkFlagParsing(fset)
		if tc.expectErr && err == nil {
			t.Errorf("Test %d: expected error, got none", i)
		}
		if !tc.expectErr && err != nil {
			t.Errorf("Test %d: unexpected error: %v", i, err)
		}
	}
}

func TestHelpFlag(t *testing.T) {
	var out bytes.Buffer
	err := newFlagSet(new(options), &out).Parse([]string{"-h"})
	require.True(t, errors.Is(err, flag.ErrHelp))
	assert.Contains(t, out.String(), "songtrail [flags] <songs> <gps>")
	assert.Contains(t, out.String(), "-plot")
}

func TestFakeCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "demo")
	var out bytes.Buffer
	require.NoError(t, fakeCommand([]string{"-seed", "3", "-tracks", "1", "-songs", "5", dir}, &out))
	assert.Contains(t, out.String(), "songtrail ")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"fake.gpx", "fake_history.json"}, names)

	// files are never overwritten
	require.Error(t, fakeCommand([]string{dir}, io.Discard))
	require.Error(t, fakeCommand(nil, io.Discard))
}

func TestPrintFormats(t *testing.T) {
	var out bytes.Buffer
	printFormats(&out)
	for _, want := range []string{"gpx", "jsonreport", "spotify", "[songs]", "export"} {
		assert.Contains(t, out.String(), want)
	}
}

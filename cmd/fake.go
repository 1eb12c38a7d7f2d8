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
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/songtrail/songtrail/datasources/gpx"
	"github.com/songtrail/songtrail/datasources/spotify"
	"github.com/songtrail/songtrail/trail"
)

// fakeCommand writes a GPX file and a listening history that overlap
// in time into a folder, for trying songtrail without real data.
func fakeCommand(args []string, out io.Writer) error {
	fset := flag.NewFlagSet("fake", flag.ContinueOnError)
	fset.SetOutput(out)
	var opt trail.FakeOptions
	fset.Uint64Var(&opt.Seed, "seed", 1, "random seed; the same seed makes the same data")
	fset.IntVar(&opt.Tracks, "tracks", 2, "number of GPS tracks")
	fset.IntVar(&opt.PointsPerTrack, "points", 0, "points per track (default: random)")
	fset.IntVar(&opt.Songs, "songs", 40, "number of songs")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() != 1 {
		return errors.New("expected the folder to write to")
	}

	gpsPath, songsPath, err := WriteFake(fset.Arg(0), opt)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s and %s. Try:\n  songtrail %s %s\n", gpsPath, songsPath, songsPath, gpsPath)
	return nil
}

// WriteFake writes fake tracks to fake.gpx and fake songs to
// fake_history.json in dir, returning their paths.
func WriteFake(dir string, opt trail.FakeOptions) (gpsPath, songsPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	tracks, songs := trail.FakeJourney(opt)

	gpsPath = filepath.Join(dir, "fake.gpx")
	if err := writeNewFile(gpsPath, func(w io.Writer) error {
		return gpx.WriteTracks(w, "fake", tracks)
	}); err != nil {
		return "", "", err
	}

	songsPath = filepath.Join(dir, "fake_history.json")
	if err := writeNewFile(songsPath, func(w io.Writer) error {
		return spotify.WriteSongs(w, songs)
	}); err != nil {
		return "", "", err
	}
	return gpsPath, songsPath, nil
}

func writeNewFile(fpath string, write func(io.Writer) error) error {
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", fpath, err)
	}
	return f.Close()
}

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

package trail

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func mustRegister(t *testing.T, ds DataSource) {
	t.Helper()
	if err := RegisterDataSource(ds); err != nil {
		t.Fatalf("registering %s: %v", ds.Name, err)
	}
}

// withDataSources swaps the registry for the duration of a test.
func withDataSources(t *testing.T) {
	t.Helper()
	saved := dataSources
	dataSources = make(map[string]DataSource)
	t.Cleanup(func() { dataSources = saved })
}

type fakeSongs struct {
	ext   string
	empty bool
}

func (f fakeSongs) Recognize(ctx context.Context, d DirEntry) (Recognition, error) {
	return RecognizeExtensions(ctx, d, f.ext)
}

func (f fakeSongs) ImportSongs(ctx context.Context, d DirEntry, params ImportParams) ([]Song, error) {
	if f.empty {
		return nil, nil
	}
	files, err := d.Files(ctx, f.ext)
	if err != nil {
		return nil, err
	}
	var songs []Song
	for i, file := range files {
		songs = append(songs, Song{Index: i, Name: strings.TrimSuffix(file.Name, f.ext), Usage: params.Usage})
	}
	return songs, nil
}

func mapDirEntry(t *testing.T, files ...string) DirEntry {
	t.Helper()
	fsys := fstest.MapFS{}
	for _, f := range files {
		fsys[f] = &fstest.MapFile{Data: []byte("x")}
	}
	info, err := fs.Stat(fsys, ".")
	if err != nil {
		t.Fatal(err)
	}
	return DirEntry{DirEntry: fs.FileInfoToDirEntry(info), FS: fsys, FSRoot: "test", Filename: "."}
}

func TestRegisterDataSource(t *testing.T) {
	withDataSources(t)

	newImporter := func() SongImporter { return fakeSongs{ext: ".a"} }

	for i, tc := range []struct {
		ds        DataSource
		expectErr bool
	}{
		{ds: DataSource{Title: "No name", NewSongImporter: newImporter}, expectErr: true},
		{ds: DataSource{Name: "no_title", NewSongImporter: newImporter}, expectErr: true},
		{ds: DataSource{Name: "useless", Title: "Useless"}, expectErr: true},
		{ds: DataSource{Name: "songs_a", Title: "Songs A", NewSongImporter: newImporter}},
		{ds: DataSource{Name: "songs_a", Title: "Songs A again", NewSongImporter: newImporter}, expectErr: true},
	} {
		err := RegisterDataSource(tc.ds)
		if tc.expectErr && err == nil {
			t.Errorf("Test %d: expected error but didn't get one", i)
		}
		if !tc.expectErr && err != nil {
			t.Errorf("Test %d: expected no error but got: %v", i, err)
		}
	}

	ds, err := GetDataSource("songs_a")
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}
	if ds.Title != "Songs A" {
		t.Errorf("expected the first registration to be kept, got %q", ds.Title)
	}

	if _, err := GetDataSource("nope"); err == nil {
		t.Error("expected error for unknown data source")
	}
}

func TestImportSongsRecognizesBest(t *testing.T) {
	withDataSources(t)

	mustRegister(t, DataSource{
		Name: "a", Title: "A",
		NewSongImporter: func() SongImporter { return fakeSongs{ext: ".a"} },
	})
	mustRegister(t, DataSource{
		Name: "b", Title: "B",
		NewSongImporter: func() SongImporter { return fakeSongs{ext: ".b"} },
	})

	entry := mapDirEntry(t, "x/history10.b", "x/history2.b", "x/other.a", ".hidden.a", ".git/config.a")

	songs, err := ImportSongs(context.Background(), entry, ImportParams{Usage: UseStart})
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}

	var names []string
	for _, s := range songs {
		names = append(names, s.Name)
		if s.Usage != UseStart {
			t.Errorf("song %s: expected usage %s, got %s", s.Name, UseStart, s.Usage)
		}
	}
	if diff := cmp.Diff([]string{"history2", "history10"}, names); diff != "" {
		t.Errorf("unexpected songs (-want +got):\n%s", diff)
	}
}

func TestImportSongsUnrecognized(t *testing.T) {
	withDataSources(t)
	mustRegister(t, DataSource{
		Name: "a", Title: "A",
		NewSongImporter: func() SongImporter { return fakeSongs{ext: ".a"} },
	})

	_, err := ImportSongs(context.Background(), mapDirEntry(t, "songs.csv"), ImportParams{})
	if !errors.Is(err, ErrNoDataSource) {
		t.Errorf("expected ErrNoDataSource, got %v", err)
	}
}

func TestImportSongsEmpty(t *testing.T) {
	withDataSources(t)
	mustRegister(t, DataSource{
		Name: "a", Title: "A",
		NewSongImporter: func() SongImporter { return fakeSongs{ext: ".a", empty: true} },
	})

	// recognized, but nothing in it
	_, err := ImportSongs(context.Background(), mapDirEntry(t, "one.a"), ImportParams{})
	if !errors.Is(err, ErrNoSongs) {
		t.Errorf("expected ErrNoSongs, got %v", err)
	}
}

func TestRecognizeExtensions(t *testing.T) {
	ctx := context.Background()
	for i, tc := range []struct {
		files  []string
		exts   []string
		expect float64
	}{
		{files: nil, exts: []string{".gpx"}, expect: 0},
		{files: []string{"a.gpx"}, exts: []string{".gpx"}, expect: 1},
		{files: []string{"a.GPX", "b.txt"}, exts: []string{".gpx"}, expect: 0.5},
		{files: []string{"a.kml", "b.kmz"}, exts: []string{".gpx"}, expect: 0},
		{files: []string{"a.json", "b.geojson"}, exts: []string{".json", ".geojson"}, expect: 1},
	} {
		rec, err := RecognizeExtensions(ctx, mapDirEntry(t, tc.files...), tc.exts...)
		if err != nil {
			t.Errorf("Test %d: expected no error but got: %v", i, err)
			continue
		}
		if rec.Confidence != tc.expect {
			t.Errorf("Test %d: expected confidence %v, got %v", i, tc.expect, rec.Confidence)
		}
	}
}

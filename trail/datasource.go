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
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// DataSource has information about a file format that can be
// registered. A data source may read songs, tracks, or pairs, and
// may write pairs; it sets the constructors for what it supports.
type DataSource struct {
	// A snake_cased name of the format that uniquely
	// identifies it from all others. Also the name used
	// to choose export formats.
	Name string `json:"name"`

	// The human-readable name of the format.
	Title string `json:"title"`

	// Information that will help the user when choosing a format.
	Description string `json:"description"`

	NewSongImporter  func() SongImporter  `json:"-"`
	NewTrackImporter func() TrackImporter `json:"-"`
	NewPairImporter  func() PairImporter  `json:"-"`
	NewExporter      func() Exporter      `json:"-"`
}

// Recognizer reports whether it can read an input.
type Recognizer interface {
	Recognize(ctx context.Context, dirEntry DirEntry) (Recognition, error)
}

// SongImporter reads a listening history.
type SongImporter interface {
	Recognizer
	ImportSongs(ctx context.Context, dirEntry DirEntry, params ImportParams) ([]Song, error)
}

// TrackImporter reads location tracks.
type TrackImporter interface {
	Recognizer
	ImportTracks(ctx context.Context, dirEntry DirEntry, params ImportParams) ([]Track, error)
}

// PairImporter reads pairs that were exported by a previous run.
type PairImporter interface {
	Recognizer
	ImportPairs(ctx context.Context, dirEntry DirEntry, params ImportParams) ([]Pair, error)
}

// ImportParams configures an import.
type ImportParams struct {
	// Which song time is used for pairing.
	Usage TimeUsage

	// If true, inputs that carry a hash are verified.
	VerifyHash bool

	// The year used to complete two-digit years, if the format has them.
	ReferenceYear int

	Log *zap.Logger
}

// Exporter writes the pairs of a run to a file.
type Exporter interface {
	Export(ctx context.Context, params ExportParams) error
}

// ExportParams configures an export.
type ExportParams struct {
	Run *Run

	// Output decides where files are written.
	Output Output

	// Templates renders waypoint names and descriptions.
	Templates *Templates

	// Zone is the time zone used for human-readable times.
	Zone *time.Location

	Log *zap.Logger
}

// RegisterDataSource registers ds as a data source.
func RegisterDataSource(ds DataSource) error {
	if ds.Name == "" {
		return errors.New("missing name")
	}
	if ds.Title == "" {
		return errors.New("missing title")
	}
	if ds.NewSongImporter == nil && ds.NewTrackImporter == nil &&
		ds.NewPairImporter == nil && ds.NewExporter == nil {
		return fmt.Errorf("data source %s can neither import nor export", ds.Name)
	}
	if _, ok := dataSources[ds.Name]; ok {
		return fmt.Errorf("data source already registered: %s", ds.Name)
	}
	dataSources[ds.Name] = ds
	return nil
}

// GetDataSource gets the data source with the given name.
func GetDataSource(name string) (DataSource, error) {
	ds, ok := dataSources[name]
	if !ok {
		return DataSource{}, fmt.Errorf("data source not found: %s", name)
	}
	return ds, nil
}

// AllDataSources returns all registered data sources sorted by name.
func AllDataSources() []DataSource {
	sources := make([]DataSource, 0, len(dataSources))
	for _, ds := range dataSources {
		sources = append(sources, ds)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Name < sources[j].Name
	})
	return sources
}

// recognize returns the data source whose recognizer (made by
// newRecognizer, which returns nil if the data source does not have
// the needed role) is most confident about the input.
func recognize(ctx context.Context, entry DirEntry, newRecognizer func(DataSource) Recognizer) (DataSource, error) {
	var best DataSource
	var bestConfidence float64
	for _, ds := range AllDataSources() {
		if err := ctx.Err(); err != nil {
			return DataSource{}, err
		}
		rec := newRecognizer(ds)
		if rec == nil {
			continue
		}
		result, err := rec.Recognize(ctx, entry)
		if err != nil {
			return DataSource{}, fmt.Errorf("%s: %w", ds.Name, err)
		}
		if result.Confidence > bestConfidence {
			best, bestConfidence = ds, result.Confidence
		}
	}
	if bestConfidence == 0 {
		return DataSource{}, fmt.Errorf("%w: %s", ErrNoDataSource, entry.FullPath())
	}
	return best, nil
}

// ImportSongs reads songs from the input with the data source that
// recognizes it best. It is an error if there are no songs.
func ImportSongs(ctx context.Context, entry DirEntry, params ImportParams) ([]Song, error) {
	ds, err := recognize(ctx, entry, func(ds DataSource) Recognizer {
		if ds.NewSongImporter == nil {
			return nil
		}
		return ds.NewSongImporter()
	})
	if err != nil {
		return nil, err
	}
	songs, err := ds.NewSongImporter().ImportSongs(ctx, entry, params)
	if err != nil {
		return nil, fmt.Errorf("reading songs from %s as %s: %w", entry.FullPath(), ds.Title, err)
	}
	if len(songs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSongs, entry.FullPath())
	}
	if params.Log != nil {
		params.Log.Info("read songs",
			zap.String("file", entry.FullPath()),
			zap.String("format", ds.Name),
			zap.Int("count", len(songs)))
	}
	return songs, nil
}

// ImportTracks reads tracks from the input with the data source that
// recognizes it best. It is an error if there are no tracks or if
// any track has no points.
func ImportTracks(ctx context.Context, entry DirEntry, params ImportParams) ([]Track, error) {
	ds, err := recognize(ctx, entry, func(ds DataSource) Recognizer {
		if ds.NewTrackImporter == nil {
			return nil
		}
		return ds.NewTrackImporter()
	})
	if err != nil {
		return nil, err
	}
	tracks, err := ds.NewTrackImporter().ImportTracks(ctx, entry, params)
	if err != nil {
		return nil, fmt.Errorf("reading tracks from %s as %s: %w", entry.FullPath(), ds.Title, err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTracks, entry.FullPath())
	}
	var points int
	for _, t := range tracks {
		if len(t.Points) == 0 {
			return nil, fmt.Errorf("%s: %w: %s", entry.FullPath(), ErrEmptyTrack, t.Info)
		}
		points += len(t.Points)
	}
	if params.Log != nil {
		params.Log.Info("read tracks",
			zap.String("file", entry.FullPath()),
			zap.String("format", ds.Name),
			zap.Int("tracks", len(tracks)),
			zap.Int("points", points))
	}
	return tracks, nil
}

// ImportPairs reads pairs from the input with the data source that
// recognizes it best.
func ImportPairs(ctx context.Context, entry DirEntry, params ImportParams) ([]Pair, error) {
	ds, err := recognize(ctx, entry, func(ds DataSource) Recognizer {
		if ds.NewPairImporter == nil {
			return nil
		}
		return ds.NewPairImporter()
	})
	if err != nil {
		return nil, err
	}
	pairs, err := ds.NewPairImporter().ImportPairs(ctx, entry, params)
	if err != nil {
		return nil, fmt.Errorf("reading pairs from %s as %s: %w", entry.FullPath(), ds.Title, err)
	}
	if params.Log != nil {
		params.Log.Info("read pairs",
			zap.String("file", entry.FullPath()),
			zap.String("format", ds.Name),
			zap.Int("count", len(pairs)))
	}
	return pairs, nil
}

var dataSources = make(map[string]DataSource)

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


// Package googlelocation implements a data source for the location
// history in a Google Takeout archive (Records.json).
//
// I found this website very helpful as documentation of the Takeout format:
// https://locationhistoryformat.com/
package googlelocation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"slices"
	"strconv"
	"time"

	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
)

func init() {
	err := trail.RegisterDataSource(trail.DataSource{
		Name:             "google_location",
		Title:            "Google Location History",
		Description:      "Records.json from a Google Takeout archive; one track per device",
		NewTrackImporter: func() trail.TrackImporter { return new(FileImporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}
}

const filenameFromLegacyTakeout = "Records.json"

// enough to see the first record
const peekSize = 2048

// FileImporter implements the trail.TrackImporter interface.
type FileImporter struct{}

// Recognize returns whether the input contains a location history.
func (FileImporter) Recognize(ctx context.Context, dirEntry trail.DirEntry) (trail.Recognition, error) {
	files, err := recordsFiles(ctx, dirEntry)
	if err != nil {
		return trail.Recognition{}, err
	}
	if len(files) > 0 {
		return trail.Recognition{Confidence: 1}, nil
	}
	return trail.Recognition{}, nil
}

// recordsFiles returns the JSON files of the input that look like
// a Takeout location history. Files named Records.json are always
// checked; people tend to rename them, so any other JSON file is
// accepted if it starts with a locations array.
func recordsFiles(ctx context.Context, dirEntry trail.DirEntry) ([]trail.File, error) {
	jsonFiles, err := dirEntry.Files(ctx, ".json")
	if err != nil {
		return nil, err
	}
	var files []trail.File
	for _, f := range jsonFiles {
		head, err := dirEntry.Peek(f, peekSize)
		if err != nil {
			return nil, err
		}
		if bytes.Contains(head, []byte(`"locations"`)) &&
			(path.Base(f.Path) == filenameFromLegacyTakeout || bytes.Contains(head, []byte(`"latitudeE7"`))) {
			files = append(files, f)
		}
	}
	return files, nil
}

// ImportTracks reads the location history files of the input.
func (FileImporter) ImportTracks(ctx context.Context, dirEntry trail.DirEntry, params trail.ImportParams) ([]trail.Track, error) {
	files, err := recordsFiles(ctx, dirEntry)
	if err != nil {
		return nil, err
	}

	logger := params.Log
	if logger == nil {
		logger = zap.NewNop()
	}

	var tracks []trail.Track
	for _, f := range files {
		file, err := dirEntry.Open(f)
		if err != nil {
			return nil, err
		}
		fileTracks, err := ReadTracks(ctx, file, len(tracks), logger)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		tracks = append(tracks, fileTracks...)
	}
	return tracks, nil
}

// location is a record of the "locations" array.
type location struct {
	Accuracy    int    `json:"accuracy"`    // meters; higher values are less accurate
	Altitude    int    `json:"altitude"`    // meters
	DeviceTag   int64  `json:"deviceTag"`   // may correspond with a device in Settings.json
	Heading     int    `json:"heading"`     // degrees
	LatitudeE7  *int64 `json:"latitudeE7"`  // latitude times 1e7
	LongitudeE7 *int64 `json:"longitudeE7"` // longitude times 1e7
	Source      string `json:"source"`      // WIFI, CELL, GPS, or UNKNOWN (may also be lowercase sometimes)
	Velocity    int    `json:"velocity"`    // meters/second

	// old exports used timestampMs, in milliseconds
	Timestamp   time.Time `json:"timestamp"`
	TimestampMs string    `json:"timestampMs"`
}

func (l location) time() (time.Time, error) {
	if !l.Timestamp.IsZero() {
		return l.Timestamp, nil
	}
	if l.TimestampMs == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(l.TimestampMs, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestampMs %q: %w", l.TimestampMs, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func (l location) metadata() trail.Metadata {
	meta := trail.Metadata{
		"Accuracy (m)":   l.Accuracy,
		"Source":         l.Source,
		"Velocity (m/s)": l.Velocity,
		"Heading":        l.Heading,
	}
	meta.Clean()
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// ReadTracks reads a Records.json document. The points of each
// device become one track, in the order the devices first appear,
// with points sorted by time. Track indices start at firstIndex.
// Records without a time or coordinates are skipped.
func ReadTracks(ctx context.Context, r io.Reader, firstIndex int, logger *zap.Logger) ([]trail.Track, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dec := json.NewDecoder(r)

	// consume the first few tokens until we get to the meat of the file
	expect := []func(json.Token) bool{
		func(t json.Token) bool {
			d, ok := t.(json.Delim)
			return ok && d == '{'
		},
		func(t json.Token) bool {
			s, ok := t.(string)
			return ok && s == "locations"
		},
		func(t json.Token) bool {
			d, ok := t.(json.Delim)
			return ok && d == '['
		},
	}
	for _, expected := range expect {
		token, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading location history: %w", err)
		}
		if !expected(token) {
			return nil, fmt.Errorf("not a location history: unexpected %v", token)
		}
	}

	var tracks []trail.Track
	byDevice := make(map[int64]int)
	var n, skipped int
	for ; dec.More(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var loc location
		if err := dec.Decode(&loc); err != nil {
			return nil, fmt.Errorf("decoding location %d: %w", n, err)
		}
		ts, err := loc.time()
		if err != nil {
			return nil, fmt.Errorf("location %d: %w", n, err)
		}
		if ts.IsZero() || loc.LatitudeE7 == nil || loc.LongitudeE7 == nil {
			skipped++
			continue
		}

		i, ok := byDevice[loc.DeviceTag]
		if !ok {
			i = len(tracks)
			byDevice[loc.DeviceTag] = i
			tracks = append(tracks, trail.Track{
				Info: trail.TrackInfo{
					Index: firstIndex + i,
					Name:  deviceName(loc.DeviceTag),
					Type:  trail.TrackSource,
				},
			})
		}
		tracks[i].Points = append(tracks[i].Points, trail.Point{
			Location: trail.Coordinate{
				Latitude:  float64(*loc.LatitudeE7) / 1e7,
				Longitude: float64(*loc.LongitudeE7) / 1e7,
			},
			Time:      ts,
			Elevation: float64(loc.Altitude),
			Metadata:  loc.metadata(),
		})
	}

	if skipped > 0 {
		logger.Warn("skipped locations without time or coordinates", zap.Int("count", skipped))
	}

	for ti := range tracks {
		t := &tracks[ti]
		slices.SortStableFunc(t.Points, func(a, b trail.Point) int {
			return a.Time.Compare(b.Time)
		})
		for pi := range t.Points {
			t.Points[pi].Index = pi
			t.Points[pi].Track = t.Info.Index
		}
	}

	return tracks, nil
}

func deviceName(tag int64) string {
	if tag == 0 {
		return "Location History"
	}
	return "Device " + strconv.FormatInt(tag, 10)
}

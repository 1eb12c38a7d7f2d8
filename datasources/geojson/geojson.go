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

// Package geojson implements a data source for GeoJSON data (RFC 7946): https://geojson.org/
package geojson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
)

// NOTE: This is very similar to the kmlgx importer, except it's JSON.

func init() {
	err := trail.RegisterDataSource(trail.DataSource{
		Name:             "geojson",
		Title:            "GeoJSON",
		Description:      "GeoJSON files containing timestamped points or lines; exports pairs as a collection of points",
		NewTrackImporter: func() trail.TrackImporter { return new(FileImporter) },
		NewExporter:      func() trail.Exporter { return new(Exporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}
}

// FileImporter implements the trail.TrackImporter interface.
type FileImporter struct{}

// Recognize returns whether the input is supported.
func (FileImporter) Recognize(ctx context.Context, dirEntry trail.DirEntry) (trail.Recognition, error) {
	return trail.RecognizeExtensions(ctx, dirEntry, ".geojson")
}

// ImportTracks reads the tracks of every .geojson file in the input.
// Each LineString, MultiPoint, or MultiLineString feature is a track;
// consecutive Point features together make one track.
func (FileImporter) ImportTracks(ctx context.Context, dirEntry trail.DirEntry, params trail.ImportParams) ([]trail.Track, error) {
	files, err := dirEntry.Files(ctx, ".geojson")
	if err != nil {
		return nil, err
	}

	var tracks []trail.Track
	for _, f := range files {
		file, err := dirEntry.Open(f)
		if err != nil {
			return nil, err
		}
		fileTracks, err := ReadTracks(ctx, file, len(tracks))
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		if params.Log != nil {
			params.Log.Debug("read GeoJSON file",
				zap.String("file", f.Path),
				zap.Int("tracks", len(fileTracks)))
		}
		tracks = append(tracks, fileTracks...)
	}

	return tracks, nil
}

// ReadTracks streams the features of the GeoJSON document from r into
// tracks. Track indices start at firstIndex.
func ReadTracks(ctx context.Context, r io.Reader, firstIndex int) ([]trail.Track, error) {
	dec := &decoder{Decoder: json.NewDecoder(r)}

	var tracks []trail.Track
	var pending *trail.Track // consecutive Point features

	add := func(t *trail.Track, name string) {
		idx := firstIndex + len(tracks)
		if name == "" {
			name = fmt.Sprintf("Track %d", idx+1)
		}
		t.Info = trail.TrackInfo{Index: idx, Name: name, Type: trail.TrackSource}
		for i := range t.Points {
			t.Points[i].Index = i
			t.Points[i].Track = idx
		}
		tracks = append(tracks, *t)
	}

	for {
		feat, points, err := dec.next(ctx)
		if err != nil {
			return nil, err
		}
		if feat == nil {
			break
		}
		if feat.Geometry.Type == "Point" {
			if pending == nil {
				pending = new(trail.Track)
			}
			pending.Points = append(pending.Points, points...)
			continue
		}
		if pending != nil {
			add(pending, "")
			pending = nil
		}
		add(&trail.Track{Points: points}, feat.name())
	}
	if pending != nil {
		add(pending, "")
	}

	return tracks, nil
}

// decoder wraps the JSON decoder to get the next feature from the document.
// It tracks state so we can be sure we're in the right part of the structure.
type decoder struct {
	*json.Decoder
	foundFeatures bool
}

// next returns the next supported feature and its points, or
// a nil feature at the end of the document.
func (dec *decoder) next(ctx context.Context) (*feature, []trail.Point, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		// if we haven't gotten to the 'features' part of the structure yet, keep going
		if !dec.foundFeatures {
			t, err := dec.Token()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, nil, fmt.Errorf("decoding next JSON token: %w", err)
			}

			if val, ok := t.(string); ok && val == "features" {
				tkn, err := dec.Token()
				if err != nil {
					return nil, nil, fmt.Errorf("decoding token after features token: %w", err)
				}
				if delim, ok := tkn.(json.Delim); ok && delim == '[' {
					dec.foundFeatures = true
				}
			}
			continue
		}

		if !dec.More() {
			break
		}

		// decode the next feature!
		var current feature
		if err := dec.Decode(&current); err != nil {
			return nil, nil, fmt.Errorf("invalid GeoJSON feature: %w", err)
		}

		// feature properties are basically arbitrary key-value pairs, but a few common
		// ones exist, such as time, altitude, etc; we extract what we can
		if err := current.extractKnownProperties(); err != nil {
			return nil, nil, fmt.Errorf("reading well-known properties of geojson feature: %w", err)
		}

		var positions []position
		switch current.Geometry.Type {
		case "Point":
			var coord position
			if err := json.Unmarshal(current.Geometry.Coordinates, &coord); err != nil {
				return nil, nil, fmt.Errorf("invalid Point coordinates: %w", err)
			}
			positions = []position{coord}
		case "LineString", "MultiPoint":
			if err := json.Unmarshal(current.Geometry.Coordinates, &positions); err != nil {
				return nil, nil, fmt.Errorf("invalid %s coordinates: %w", current.Geometry.Type, err)
			}
		case "MultiLineString":
			var manyPositions [][]position
			if err := json.Unmarshal(current.Geometry.Coordinates, &manyPositions); err != nil {
				return nil, nil, fmt.Errorf("invalid MultiLineString coordinates: %w", err)
			}
			for _, p := range manyPositions {
				positions = append(positions, p...)
			}
		default:
			// skip unsupported types
			continue
		}

		if len(current.coordTimes) > 0 && len(current.coordTimes) != len(positions) {
			return nil, nil, fmt.Errorf("%s has %d coordinates but %d coordinate times",
				current.Geometry.Type, len(positions), len(current.coordTimes))
		}

		points := make([]trail.Point, 0, len(positions))
		for i, pos := range positions {
			ts := current.time
			if len(current.coordTimes) > 0 {
				ts = current.coordTimes[i]
			}
			p, err := pos.point(current, ts)
			if err != nil {
				return nil, nil, err
			}
			points = append(points, p)
		}

		return &current, points, nil
	}

	return nil, nil, nil
}

// see https://datatracker.ietf.org/doc/html/rfc7946#section-3.1
type feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Geometry   struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`

	// certain values extracted (and removed) from "well-known" (obvious or common) keys in Properties
	time       time.Time
	coordTimes []time.Time // one per position of a line, if given
	altitude   float64     // meters
	velocity   float64     // meters per second
}

func (f *feature) name() string {
	if s, ok := f.Properties["name"].(string); ok {
		return s
	}
	return ""
}

func (f *feature) extractKnownProperties() error {
	// time
	for _, propName := range []string{
		"time",
		"timestamp",
		"time_long",
		"datetime",
		"date_time",
	} {
		// stop trying once we've got a time value
		if !f.time.IsZero() {
			break
		}
		val, ok := f.Properties[propName]
		if !ok || val == nil {
			continue // having a time property isn't mandatory
		}
		t, err := parseTime(val)
		if err != nil {
			return fmt.Errorf("time property %s: %w", propName, err)
		}
		f.time = t
		delete(f.Properties, propName)
	}

	// per-coordinate times of lines, as written by most GPX to GeoJSON converters
	for _, propName := range []string{
		"coordTimes",
		"times",
	} {
		if len(f.coordTimes) > 0 {
			break
		}
		vals, ok := f.Properties[propName].([]any)
		if !ok {
			continue
		}
		for i, val := range vals {
			t, err := parseTime(val)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", propName, i, err)
			}
			f.coordTimes = append(f.coordTimes, t)
		}
		delete(f.Properties, propName)
	}

	// altitude
	for _, propName := range []string{
		"altitude",
		"elevation",
		"height",
	} {
		// stop trying once we've got a value
		if f.altitude != 0 {
			break
		}
		if val, ok := f.Properties[propName].(float64); ok {
			f.altitude = val
			delete(f.Properties, propName)
		}
	}

	// velocity
	for _, propName := range []string{
		"velocity",
		"speed",
	} {
		if f.velocity != 0 {
			break
		}
		if val, ok := f.Properties[propName].(float64); ok {
			f.velocity = val
			delete(f.Properties, propName)
		}
	}

	return nil
}

// parseTime parses a time given as a string in one of several
// common formats, or as a Unix timestamp in seconds or milliseconds.
func parseTime(val any) (time.Time, error) {
	// we use this to try to guess whether Unix timestamp may be in seconds or milliseconds
	const year2286ApproxUnixSec = 10000000000

	switch v := val.(type) {
	case string:
		for _, format := range []string{
			time.RFC3339,
			time.RFC3339Nano,
			time.RFC850,
			time.RFC822,
			time.RFC822Z,
			time.RFC1123,
			time.RFC1123Z,
		} {
			if t, err := time.Parse(format, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized time format: %q", v)
	case float64:
		sec, dec := math.Modf(v)
		if sec < year2286ApproxUnixSec {
			return time.Unix(int64(sec), int64(dec*(1e9))).UTC(), nil
		}
		return time.UnixMilli(int64(sec)).UTC(), nil // we don't store more precise than milliseconds
	}
	return time.Time{}, fmt.Errorf("unexpected type for time: %T", val)
}

// https://datatracker.ietf.org/doc/html/rfc7946#section-3.1.1
type position []float64

func (p position) point(feature feature, ts time.Time) (trail.Point, error) {
	const minDimensions = 2
	if count := len(p); count < minDimensions {
		return trail.Point{}, fmt.Errorf("expected at least two values for coordinate, got %d: %+v", count, p)
	}
	if ts.IsZero() {
		return trail.Point{}, fmt.Errorf("coordinate %v has no time", []float64(p))
	}
	altitude := feature.altitude
	if len(p) > minDimensions && altitude == 0 {
		// third element is optional but must be altitude in meters if present
		altitude = p[2]
	}

	var meta trail.Metadata
	if feature.velocity != 0 {
		meta = trail.Metadata{"Velocity": feature.velocity}
	}

	return trail.Point{
		Location:  trail.Coordinate{Latitude: p[1], Longitude: p[0]},
		Time:      ts,
		Elevation: altitude,
		Metadata:  meta,
	}, nil
}

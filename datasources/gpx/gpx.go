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

// Package gpx implements a data source for GPS Exchange Format (https://en.wikipedia.org/wiki/GPS_Exchange_Format).
package gpx

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
)

func init() {
	err := trail.RegisterDataSource(trail.DataSource{
		Name:             "gpx",
		Title:            "GPS Exchange",
		Description:      "A .gpx file or folder of .gpx files containing location tracks; exports pairs as waypoints",
		NewTrackImporter: func() trail.TrackImporter { return new(FileImporter) },
		NewExporter:      func() trail.Exporter { return new(Exporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}

	err = trail.RegisterDataSource(trail.DataSource{
		Name:        "gpx_waypoints",
		Title:       "GPS Exchange waypoints",
		Description: "One .gpx file of waypoints per track",
		NewExporter: func() trail.Exporter { return &Exporter{PerTrack: true} },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}
}

// FileImporter implements the trail.TrackImporter interface.
type FileImporter struct{}

// Recognize returns whether the input is supported.
func (FileImporter) Recognize(ctx context.Context, dirEntry trail.DirEntry) (trail.Recognition, error) {
	return trail.RecognizeExtensions(ctx, dirEntry, ".gpx")
}

// ImportTracks reads the tracks of every .gpx file in the input.
func (FileImporter) ImportTracks(ctx context.Context, dirEntry trail.DirEntry, params trail.ImportParams) ([]trail.Track, error) {
	files, err := dirEntry.Files(ctx, ".gpx")
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
			params.Log.Debug("read GPX file",
				zap.String("file", f.Path),
				zap.Int("tracks", len(fileTracks)))
		}
		tracks = append(tracks, fileTracks...)
	}

	return tracks, nil
}

// ReadTracks decodes every <trk> in the GPX document from r. Track
// indices start at firstIndex. Each segment of a track is read into
// the same track.
func ReadTracks(ctx context.Context, r io.Reader, firstIndex int) ([]trail.Track, error) {
	dec := &decoder{Decoder: xml.NewDecoder(r)}

	var tracks []trail.Track
	for {
		t, err := dec.nextTrack(ctx)
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		idx := firstIndex + len(tracks)
		t.Info.Index = idx
		t.Info.Type = trail.TrackSource
		if t.Info.Name == "" {
			t.Info.Name = fmt.Sprintf("Track %d", idx+1)
		}
		for i := range t.Points {
			t.Points[i].Track = idx
		}
		tracks = append(tracks, *t)
	}

	return tracks, nil
}

// decoder wraps the XML decoder to get the next track from the document.
// It tracks nesting state so we can be sure we're in the right part of the tree.
type decoder struct {
	*xml.Decoder
	stack nesting
}

// nextTrack returns the next track in the document, or nil
// at the end of the document.
func (d *decoder) nextTrack(ctx context.Context) (*trail.Track, error) {
	var current *trail.Track

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tkn, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding next XML token: %w", err)
		}

		switch elem := tkn.(type) {
		case xml.StartElement:
			switch {
			case elem.Name.Local == "trk" && d.stack.path() == "gpx":
				current = new(trail.Track)

			case elem.Name.Local == "name" && d.stack.path() == "gpx/trk" && current != nil:
				var name string
				if err := d.DecodeElement(&name, &elem); err != nil {
					return nil, fmt.Errorf("decoding track name: %w", err)
				}
				current.Info.Name = strings.TrimSpace(name)
				continue

			case elem.Name.Local == "trkpt" && d.stack.path() == "gpx/trk/trkseg" && current != nil:
				var point trkpt
				if err := d.DecodeElement(&point, &elem); err != nil {
					return nil, fmt.Errorf("decoding XML element as track point: %w", err)
				}
				p, err := point.point(len(current.Points))
				if err != nil {
					return nil, err
				}
				current.Points = append(current.Points, p)
				continue
			}

			d.stack = append(d.stack, elem.Name.Local)

		case xml.EndElement:
			if len(d.stack) == 0 {
				return nil, fmt.Errorf("encountered end tag without opening: %s", elem.Name.Local)
			}
			d.stack = d.stack[:len(d.stack)-1]
			if elem.Name.Local == "trk" && d.stack.path() == "gpx" && current != nil {
				return current, nil
			}
		}
	}

	if current != nil {
		return nil, fmt.Errorf("unexpected end of document in track %q", current.Info.Name)
	}
	return nil, nil
}

type nesting []string

func (n nesting) path() string {
	return strings.Join(n, "/")
}

type trkpt struct {
	XMLName xml.Name  `xml:"trkpt"`
	Lat     float64   `xml:"lat,attr"`
	Lon     float64   `xml:"lon,attr"`
	Ele     float64   `xml:"ele"` // elevation
	Time    time.Time `xml:"time"`
	Speed   float64   `xml:"speed"` // velocity
	Sat     int       `xml:"sat"`   // number of satellites
}

// point converts pt, keeping the UTC offset of its time as written.
func (pt trkpt) point(index int) (trail.Point, error) {
	ts := pt.Time
	if ts.IsZero() {
		return trail.Point{}, fmt.Errorf("track point %d (%f,%f) has no time", index, pt.Lat, pt.Lon)
	}
	meta := trail.Metadata{
		"Velocity":   pt.Speed,
		"Satellites": pt.Sat,
	}
	meta.Clean()
	if len(meta) == 0 {
		meta = nil
	}
	return trail.Point{
		Index:     index,
		Location:  trail.Coordinate{Latitude: pt.Lat, Longitude: pt.Lon},
		Time:      ts,
		Elevation: pt.Ele,
		Metadata:  meta,
	}, nil
}

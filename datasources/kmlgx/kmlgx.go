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

// Package kmlgx implements a data source for KML files with Google extensions (gx).
package kmlgx

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
)

// This could be nearly identical to the GPX importer except the XML structure is different.
// The gx:Track entries can be in any order, instead of each point clustered together,
// so we don't stream this file; we just swallow it whole.

func init() {
	err := trail.RegisterDataSource(trail.DataSource{
		Name:             "kml",
		Title:            "Keyhole (KML)",
		Description:      "A .kml file or folder of .kml files containing location tracks; requires Google extension namespace (gx)",
		NewTrackImporter: func() trail.TrackImporter { return new(FileImporter) },
		NewExporter:      func() trail.Exporter { return new(Exporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}
}

const (
	kmlNamespace = "http://www.opengis.net/kml/2.2"
	gxNamespace  = "http://www.google.com/kml/ext/2.2"
)

// FileImporter implements the trail.TrackImporter interface.
type FileImporter struct{}

// Recognize returns whether the input is supported.
func (FileImporter) Recognize(ctx context.Context, dirEntry trail.DirEntry) (trail.Recognition, error) {
	return trail.RecognizeExtensions(ctx, dirEntry, ".kml")
}

// ImportTracks reads one track per gx:Track of every .kml file in the input.
func (FileImporter) ImportTracks(ctx context.Context, dirEntry trail.DirEntry, params trail.ImportParams) ([]trail.Track, error) {
	files, err := dirEntry.Files(ctx, ".kml")
	if err != nil {
		return nil, err
	}

	var tracks []trail.Track
	for _, f := range files {
		file, err := dirEntry.Open(f)
		if err != nil {
			return nil, err
		}
		fileTracks, err := ReadTracks(file, len(tracks), params.Log)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		tracks = append(tracks, fileTracks...)
	}

	return tracks, nil
}

// ReadTracks decodes the gx:Track of each Placemark in the KML
// document from r. Track indices start at firstIndex. Coordinates
// that can't be parsed are skipped.
func ReadTracks(r io.Reader, firstIndex int, logger *zap.Logger) ([]trail.Track, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding KML: %w", err)
	}

	if doc.XMLNSGX != gxNamespace {
		// actually, we may not need this version specifically; other versions might work just as well
		return nil, fmt.Errorf("KML document does not support Google extension 'gx' namespace")
	}

	var tracks []trail.Track
	for _, pm := range doc.Document.Placemarks {
		if len(pm.Track.When) == 0 && len(pm.Track.Coord) == 0 {
			continue // not a track
		}
		if len(pm.Track.When) != len(pm.Track.Coord) {
			return nil, fmt.Errorf("corrupt gx:Track data in Placemark %q: number of timestamps does not match number of coordinates", pm.Name)
		}

		idx := firstIndex + len(tracks)
		name := strings.TrimSpace(pm.Name)
		if name == "" {
			name = fmt.Sprintf("Track %d", idx+1)
		}
		track := trail.Track{
			Info: trail.TrackInfo{Index: idx, Name: name, Type: trail.TrackSource},
		}

		for i, coord := range pm.Track.Coord {
			p, ok := parseCoord(coord)
			if !ok {
				if logger != nil {
					logger.Warn("skipping malformed gx:coord",
						zap.String("track", name),
						zap.String("coord", coord))
				}
				continue
			}
			p.Index = len(track.Points)
			p.Track = idx
			p.Time = pm.Track.When[i]
			track.Points = append(track.Points, p)
		}

		tracks = append(tracks, track)
	}

	return tracks, nil
}

// parseCoord parses a gx:coord, which is "lon lat alt".
func parseCoord(coord string) (trail.Point, bool) {
	fields := strings.Fields(coord)
	if len(fields) < 2 {
		return trail.Point{}, false
	}
	lon, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return trail.Point{}, false
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return trail.Point{}, false
	}
	var alt float64
	if len(fields) > 2 {
		alt, _ = strconv.ParseFloat(fields[2], 64) // altitude is optional; a bad one is dropped
	}
	return trail.Point{
		Location:  trail.Coordinate{Latitude: lat, Longitude: lon},
		Elevation: alt,
	}, true
}

type document struct {
	XMLName  xml.Name `xml:"kml"`
	XMLNS    string   `xml:"xmlns,attr"`
	XMLNSGX  string   `xml:"gx,attr"`
	Document struct {
		Name        string      `xml:"name"`
		Description string      `xml:"description"`
		Placemarks  []placemark `xml:"Placemark"`
	} `xml:"Document"`
}

type placemark struct {
	Name  string `xml:"name"`
	Track struct {
		When  []time.Time `xml:"when"`
		Coord []string    `xml:"coord"`
	} `xml:"Track"`
}

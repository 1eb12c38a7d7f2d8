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

package gpx

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/songtrail/songtrail/trail"
)

// Exporter writes pairs as GPX waypoints. By default all pairs go
// into one file; with PerTrack, each track gets its own file.
type Exporter struct {
	PerTrack bool
}

// Export implements trail.Exporter.
func (e Exporter) Export(_ context.Context, params trail.ExportParams) error {
	if e.PerTrack {
		return params.WriteEach("Waypoints", ".gpx", func(tp trail.TrackPairs, w io.Writer) error {
			return WriteWaypoints(w, tp.Track.String(), tp.Pairs, params.Templates)
		})
	}
	return params.WriteAll("Songs", ".gpx", func(w io.Writer) error {
		return WriteWaypoints(w, params.Run.Name, params.Run.Pairs, params.Templates)
	})
}

// WriteWaypoints writes a GPX document with a waypoint for each pair.
func WriteWaypoints(w io.Writer, name string, pairs []trail.Pair, tpls *trail.Templates) error {
	doc := document{
		Version: "1.1",
		Creator: creator,
		Xmlns:   namespace,
		Name:    name,
		Desc:    fmt.Sprintf("%d songs", len(pairs)),
	}
	for _, p := range pairs {
		wptName, err := tpls.Name(p)
		if err != nil {
			return err
		}
		desc, err := tpls.Description(p)
		if err != nil {
			return err
		}
		wp := waypoint{
			Lat:  p.Point.Location.Latitude,
			Lon:  p.Point.Location.Longitude,
			Time: p.Point.Time.UTC().Format(time.RFC3339),
			Name: wptName,
			Desc: desc,
		}
		if p.Point.Predicted {
			wp.Type = "Predicted"
		}
		doc.Waypoints = append(doc.Waypoints, wp)
	}
	return encode(w, doc)
}

// WriteTracks writes a GPX document with the tracks.
func WriteTracks(w io.Writer, name string, tracks []trail.Track) error {
	doc := document{
		Version: "1.1",
		Creator: creator,
		Xmlns:   namespace,
		Name:    name,
	}
	for _, t := range tracks {
		trk := track{Name: t.Info.Name}
		for _, p := range t.Points {
			trk.Segment.Points = append(trk.Segment.Points, trackPoint{
				Lat:  p.Location.Latitude,
				Lon:  p.Location.Longitude,
				Ele:  p.Elevation,
				Time: p.Time.UTC().Format(time.RFC3339),
			})
		}
		doc.Tracks = append(doc.Tracks, trk)
	}
	return encode(w, doc)
}

func encode(w io.Writer, doc document) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding GPX: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

const (
	namespace = "http://www.topografix.com/GPX/1/1"
	creator   = "Songtrail"
)

type document struct {
	XMLName   xml.Name   `xml:"gpx"`
	Version   string     `xml:"version,attr"`
	Creator   string     `xml:"creator,attr"`
	Xmlns     string     `xml:"xmlns,attr"`
	Name      string     `xml:"name,omitempty"`
	Desc      string     `xml:"desc,omitempty"`
	Waypoints []waypoint `xml:"wpt"`
	Tracks    []track    `xml:"trk"`
}

type waypoint struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Time string  `xml:"time"`
	Name string  `xml:"name"`
	Desc string  `xml:"desc,omitempty"`
	Type string  `xml:"type,omitempty"`
}

type track struct {
	Name    string  `xml:"name,omitempty"`
	Segment segment `xml:"trkseg"`
}

type segment struct {
	Points []trackPoint `xml:"trkpt"`
}

type trackPoint struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Ele  float64 `xml:"ele,omitempty"`
	Time string  `xml:"time"`
}

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

package kmlgx

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/songtrail/songtrail/trail"
)

// Exporter writes a Placemark for each pair.
type Exporter struct{}

// Export implements trail.Exporter.
func (Exporter) Export(_ context.Context, params trail.ExportParams) error {
	return params.WriteAll("Songs", ".kml", func(w io.Writer) error {
		return WritePlacemarks(w, params.Run.Name, params.Run.Pairs, params.Templates)
	})
}

// WritePlacemarks writes a KML document with a Placemark for each pair.
func WritePlacemarks(w io.Writer, name string, pairs []trail.Pair, tpls *trail.Templates) error {
	out := outDocument{
		XMLNS:   kmlNamespace,
		XMLNSGX: gxNamespace,
	}
	out.Document.Name = name
	out.Document.Description = fmt.Sprintf("%d songs", len(pairs))

	for _, p := range pairs {
		pmName, err := tpls.Name(p)
		if err != nil {
			return err
		}
		desc, err := tpls.Description(p)
		if err != nil {
			return err
		}
		pm := outPlacemark{Name: pmName, Description: desc}
		pm.Point.Coordinates = strconv.FormatFloat(p.Point.Location.Longitude, 'f', -1, 64) + "," +
			strconv.FormatFloat(p.Point.Location.Latitude, 'f', -1, 64)
		pm.TimeStamp.When = p.Point.Time.UTC().Format(time.RFC3339)
		out.Document.Placemarks = append(out.Document.Placemarks, pm)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding KML: %w", err)
	}
	return enc.Close()
}

type outDocument struct {
	XMLName  xml.Name `xml:"kml"`
	XMLNS    string   `xml:"xmlns,attr"`
	XMLNSGX  string   `xml:"xmlns:gx,attr"`
	Document struct {
		Name        string         `xml:"name"`
		Description string         `xml:"description"`
		Placemarks  []outPlacemark `xml:"Placemark"`
	} `xml:"Document"`
}

type outPlacemark struct {
	Name        string `xml:"name"`
	Description string `xml:"description,omitempty"`
	Point       struct {
		Coordinates string `xml:"coordinates"`
	} `xml:"Point"`
	TimeStamp struct {
		When string `xml:"when"`
	} `xml:"TimeStamp"`
}

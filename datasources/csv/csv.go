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

// Package csv implements an export of pairs as comma-separated values,
// for opening in a spreadsheet.
package csv

import (
	"context"
	gocsv "encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
)

func init() {
	err := trail.RegisterDataSource(trail.DataSource{
		Name:        "csv",
		Title:       "CSV",
		Description: "A table of pairs with one row per song",
		NewExporter: func() trail.Exporter { return new(Exporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}
}

// Header is the first row of the table.
var Header = []string{
	"index", "song", "artist", "album", "uri",
	"song_time", "point_time", "latitude", "longitude", "elevation",
	"accuracy_sec", "predicted", "track", "track_type",
	"point_time_recorded",
}

// Exporter writes a row per pair.
type Exporter struct{}

// Export implements trail.Exporter.
func (Exporter) Export(_ context.Context, params trail.ExportParams) error {
	return params.WriteAll("Songs", ".csv", func(w io.Writer) error {
		return WritePairs(w, params.Run.Pairs, params.Zone)
	})
}

// WritePairs writes the header and a row for each pair. Times are
// written in RFC 3339 format in zone (UTC if nil), except the last
// column, which has the point's time with the offset it was read with.
func WritePairs(w io.Writer, pairs []trail.Pair, zone *time.Location) error {
	if zone == nil {
		zone = time.UTC
	}

	cw := gocsv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, p := range pairs {
		err := cw.Write([]string{
			strconv.Itoa(p.Index),
			p.Song.Name,
			p.Song.Artist,
			p.Song.Album,
			p.Song.URI,
			p.Song.Time().In(zone).Format(time.RFC3339),
			p.Point.Time.In(zone).Format(time.RFC3339),
			strconv.FormatFloat(p.Point.Location.Latitude, 'f', -1, 64),
			strconv.FormatFloat(p.Point.Location.Longitude, 'f', -1, 64),
			strconv.FormatFloat(p.Point.Elevation, 'f', -1, 64),
			strconv.FormatFloat(p.AccuracySeconds(), 'f', -1, 64),
			strconv.FormatBool(p.Point.Predicted),
			p.Origin.String(),
			p.Origin.Type.String(),
			p.Point.Time.Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

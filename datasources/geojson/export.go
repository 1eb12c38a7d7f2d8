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

package geojson

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/songtrail/songtrail/trail"
)

// Exporter writes a FeatureCollection with a Point feature per pair.
type Exporter struct{}

// Export implements trail.Exporter.
func (Exporter) Export(_ context.Context, params trail.ExportParams) error {
	return params.WriteAll("Songs", ".geojson", func(w io.Writer) error {
		return WriteFeatures(w, params.Run.Pairs, params.Templates)
	})
}

// WriteFeatures writes a FeatureCollection with a Point feature for
// each pair. The song and pairing details are the feature's properties.
func WriteFeatures(w io.Writer, pairs []trail.Pair, tpls *trail.Templates) error {
	coll := collection{
		Type:     "FeatureCollection",
		Features: make([]outFeature, 0, len(pairs)),
	}
	for _, p := range pairs {
		name, err := tpls.Name(p)
		if err != nil {
			return err
		}
		desc, err := tpls.Description(p)
		if err != nil {
			return err
		}
		f := outFeature{
			Type: "Feature",
			Properties: properties{
				Index:       p.Index,
				Name:        name,
				Description: desc,
				Song:        p.Song.Name,
				Artist:      p.Song.Artist,
				Album:       p.Song.Album,
				URI:         p.Song.URI,
				SongTime:    p.Song.Time().Format(time.RFC3339),
				Time:        p.Point.Time.Format(time.RFC3339),
				AccuracySec: int64(math.Round(p.AccuracySeconds())),
				Predicted:   p.Point.Predicted,
				Track:       p.Origin.String(),
			},
		}
		f.Geometry.Type = "Point"
		f.Geometry.Coordinates = []float64{p.Point.Location.Longitude, p.Point.Location.Latitude}
		coll.Features = append(coll.Features, f)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	return enc.Encode(coll)
}

type collection struct {
	Type     string       `json:"type"`
	Features []outFeature `json:"features"`
}

type outFeature struct {
	Type       string     `json:"type"`
	Properties properties `json:"properties"`
	Geometry   struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

type properties struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Song        string `json:"song"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	URI         string `json:"uri,omitempty"`
	SongTime    string `json:"song_time"`
	Time        string `json:"time"`
	AccuracySec int64  `json:"accuracy_sec"`
	Predicted   bool   `json:"predicted,omitempty"`
	Track       string `json:"track"`
}

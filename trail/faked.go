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
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// FakeOptions configures generated fake data.
type FakeOptions struct {
	// Seed makes the output reproducible.
	Seed uint64

	Tracks         int
	PointsPerTrack int
	Songs          int

	// Start is the time of the first point. If zero, a time
	// derived from the seed is used.
	Start time.Time
}

// FakeJourney generates tracks and a listening history that overlap
// in time, for demos and tests. The same options always produce the
// same data. Songs may be played a little before or after the tracks,
// so some of them are filtered out when paired.
func FakeJourney(opt FakeOptions) ([]Track, []Song) {
	f := gofakeit.New(opt.Seed)

	if opt.Tracks <= 0 {
		opt.Tracks = 1
	}
	if opt.PointsPerTrack <= 0 {
		opt.PointsPerTrack = f.Number(20, 200)
	}
	if opt.Songs < 0 {
		opt.Songs = 0
	}

	start := opt.Start
	if start.IsZero() {
		start = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).
			Add(time.Duration(f.Number(0, 365*24*60)) * time.Minute)
	}

	lat := f.Float64Range(-60, 60)
	lon := f.Float64Range(-170, 170)
	ts := start

	tracks := make([]Track, 0, opt.Tracks)
	for ti := range opt.Tracks {
		track := Track{
			Info: TrackInfo{
				Index: ti,
				Name:  fmt.Sprintf("%s %d", f.City(), ti+1),
				Type:  TrackSource,
			},
		}
		for pi := range opt.PointsPerTrack {
			ts = ts.Add(time.Duration(f.Number(5, 90)) * time.Second)
			lat += f.Float64Range(-0.001, 0.001)
			lon += f.Float64Range(-0.001, 0.001)
			track.Points = append(track.Points, Point{
				Index:     pi,
				Track:     ti,
				Location:  Coordinate{Latitude: lat, Longitude: lon},
				Time:      ts,
				Elevation: f.Float64Range(0, 500),
			})
		}
		tracks = append(tracks, track)

		// a break between tracks
		ts = ts.Add(time.Duration(f.Number(10, 120)) * time.Minute)
	}

	// spread the songs over the whole journey, and a bit beyond it
	end := ts
	margin := 10 * time.Minute
	span := end.Sub(start) + 2*margin

	songs := make([]Song, 0, opt.Songs)
	songEnd := start.Add(-margin)
	for i := range opt.Songs {
		step := span / time.Duration(opt.Songs+1)
		songEnd = songEnd.Add(step).Truncate(time.Second)
		songs = append(songs, Song{
			Index:  i,
			Name:   f.AppName(),
			Artist: f.Name(),
			Album:  f.Company(),
			URI:    "spotify:track:" + f.LetterN(22),
			End:    songEnd,
			Played: time.Duration(f.Number(30, 360)) * time.Second,
		})
	}

	return tracks, songs
}

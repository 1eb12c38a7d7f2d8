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
	"math"
	"time"

	"go.uber.org/zap"
)

// Pair is a song matched with the point nearest to it in time.
type Pair struct {
	// Index is the position of the pair in the run's output; it is
	// contiguous across all tracks of a run and never changes.
	Index int `json:"index"`

	Song   Song      `json:"song"`
	Point  Point     `json:"point"`
	Origin TrackInfo `json:"origin"`
}

// Accuracy returns the absolute time between the song and its point.
func (p Pair) Accuracy() time.Duration {
	return absDuration(p.Point.Time.Sub(p.Song.Time()))
}

// AccuracySeconds returns Accuracy in seconds.
func (p Pair) AccuracySeconds() float64 {
	return p.Accuracy().Seconds()
}

func (p Pair) String() string {
	return fmt.Sprintf("[%d] %s @ %s", p.Index, p.Song.Title(), p.Point.Location)
}

// Matcher pairs songs with their nearest points in time.
type Matcher struct {
	// Zone is the time zone used to display times in log lines.
	// If nil, UTC is used.
	Zone *time.Location

	// Logger receives one line per pair. If nil, nothing is logged.
	Logger *zap.Logger
}

// Match pairs each song with the point in points that is nearest
// to it in time. When two points are equally near, the one earlier
// in points wins. Pairs are indexed starting at firstIndex, in the
// order of songs. Every point is a candidate, regardless of whether
// the song is within the points' window.
func (m Matcher) Match(songs []Song, points []Point, origin TrackInfo, firstIndex int) ([]Pair, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTrack, origin)
	}

	zone := m.Zone
	if zone == nil {
		zone = time.UTC
	}

	pairs := make([]Pair, 0, len(songs))
	for i, song := range songs {
		nearest, delta := Nearest(song.Time(), points)
		pair := Pair{
			Index:  firstIndex + i,
			Song:   song,
			Point:  points[nearest],
			Origin: origin,
		}
		pairs = append(pairs, pair)

		if m.Logger != nil {
			m.Logger.Info("paired",
				zap.Int("index", pair.Index),
				zap.String("song_time", song.Time().In(zone).Format(consoleTimeFormat)),
				zap.String("point_time", pair.Point.Time.In(zone).Format(consoleTimeFormat)),
				zap.Int64("accuracy_sec", int64(math.Round(delta.Seconds()))),
				zap.String("song", song.Title()))
		}
	}

	return pairs, nil
}

// Nearest returns the index of the first point in points with the
// smallest absolute time difference from t, and that difference.
// It returns -1 if points is empty.
func Nearest(t time.Time, points []Point) (int, time.Duration) {
	best, bestDelta := -1, time.Duration(0)
	for i, p := range points {
		delta := absDuration(p.Time.Sub(t))
		// strictly less: the first of equal deltas is kept
		if best < 0 || delta < bestDelta {
			best, bestDelta = i, delta
		}
	}
	return best, bestDelta
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

const consoleTimeFormat = "15:04:05"

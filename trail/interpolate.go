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

	"go.uber.org/zap"
)

// Interpolate returns n evenly spaced coordinates on the straight line
// (in latitude/longitude space, not geodesic) from start to end. The
// first is exactly start and the last is exactly end. It returns
// ErrTooFewPoints if n < 2.
func Interpolate(start, end Coordinate, n int) ([]Coordinate, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: n=%d", ErrTooFewPoints, n)
	}
	coords := make([]Coordinate, n)
	last := float64(n - 1)
	for i := range coords {
		t := float64(i) / last
		coords[i] = Coordinate{
			Latitude:  lerp(start.Latitude, end.Latitude, t),
			Longitude: lerp(start.Longitude, end.Longitude, t),
		}
	}
	// guard the endpoints against rounding
	coords[0], coords[n-1] = start, end
	return coords, nil
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// Correct returns a copy of pairs in which the pairs strictly between
// start and end (inclusive indices into pairs) have their points
// replaced by points interpolated between the points of pairs[start]
// and pairs[end]. Replaced points are flagged Predicted and keep their
// original time, index, and track. The endpoints are left as they are,
// since interpolation reproduces them exactly. A range outside pairs,
// or with end < start, returns a *RangeError.
func Correct(pairs []Pair, start, end int, logger *zap.Logger) ([]Pair, error) {
	if start < 0 || end >= len(pairs) || end < start {
		return nil, &RangeError{Start: start, End: end, Len: len(pairs)}
	}

	corrected := make([]Pair, len(pairs))
	copy(corrected, pairs)

	if end == start {
		return corrected, nil
	}

	coords, err := Interpolate(pairs[start].Point.Location, pairs[end].Point.Location, end-start+1)
	if err != nil {
		return nil, err
	}

	for i := start + 1; i < end; i++ {
		old := pairs[i].Point
		corrected[i].Point = Point{
			Index:     old.Index,
			Track:     old.Track,
			Location:  coords[i-start],
			Time:      old.Time,
			Elevation: old.Elevation,
			Predicted: true,
			Metadata:  old.Metadata,
		}
		if logger != nil {
			logger.Debug("predicted point",
				zap.Int("index", pairs[i].Index),
				zap.Stringer("was", old.Location),
				zap.Stringer("now", coords[i-start]))
		}
	}

	if logger != nil {
		logger.Info("corrected duplicate range",
			zap.Int("start", start),
			zap.Int("end", end),
			zap.Int("predicted", end-start-1))
	}

	return corrected, nil
}

// AutoCorrect corrects every run of two or more consecutive pairs
// from the same track that share coordinates. Each run is
// interpolated toward the next pair of the same track with different
// coordinates, or up to the run's own last pair if the run ends the
// track.
func AutoCorrect(pairs []Pair, logger *zap.Logger) ([]Pair, error) {
	corrected := make([]Pair, len(pairs))
	copy(corrected, pairs)

	for i := 0; i < len(corrected); {
		j := i
		for j+1 < len(corrected) &&
			corrected[j+1].Origin == corrected[i].Origin &&
			corrected[j+1].Point.Location == corrected[i].Point.Location {
			j++
		}
		if j == i {
			i++
			continue
		}

		end := j
		if j+1 < len(corrected) && corrected[j+1].Origin == corrected[i].Origin {
			end = j + 1
		}

		var err error
		corrected, err = Correct(corrected, i, end, logger)
		if err != nil {
			return nil, err
		}
		i = j + 1
	}

	return corrected, nil
}

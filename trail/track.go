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
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Coordinate is a position on Earth in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Latitude, c.Longitude)
}

// Point is a single timestamped location from a track. Points are
// values: a correction never changes a point in place, it stores a
// new Point (with Predicted set) in the place of the old one.
type Point struct {
	// Index is the position of the point within its track.
	Index int `json:"index"`

	// Track is the index of the track this point was read from.
	Track int `json:"track"`

	Location  Coordinate `json:"location"`
	Time      time.Time  `json:"time"`
	Elevation float64    `json:"elevation,omitempty"`

	// Predicted is true if the location was interpolated
	// rather than recorded.
	Predicted bool `json:"predicted,omitempty"`

	Metadata Metadata `json:"metadata,omitempty"`
}

// TrackType describes where a track came from.
type TrackType int

const (
	// TrackSource is a track read from the input file.
	TrackSource TrackType = iota

	// TrackGap spans the time between two consecutive source tracks.
	TrackGap

	// TrackCombined contains every point of every source track.
	TrackCombined
)

func (tt TrackType) String() string {
	switch tt {
	case TrackSource:
		return "GPS"
	case TrackGap:
		return "Gap"
	case TrackCombined:
		return "Combined"
	}
	return fmt.Sprintf("TrackType(%d)", int(tt))
}

// ParseTrackType parses the output of TrackType.String.
func ParseTrackType(s string) (TrackType, error) {
	switch strings.ToLower(s) {
	case "gps", "source":
		return TrackSource, nil
	case "gap":
		return TrackGap, nil
	case "combined":
		return TrackCombined, nil
	}
	return 0, fmt.Errorf("unknown track type: %q", s)
}

// MarshalJSON encodes the track type by name.
func (tt TrackType) MarshalJSON() ([]byte, error) {
	return json.Marshal(tt.String())
}

// UnmarshalJSON accepts a track type name or its number.
func (tt *TrackType) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*tt = TrackType(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTrackType(s)
	if err != nil {
		return err
	}
	*tt = parsed
	return nil
}

// TrackInfo identifies a track.
type TrackInfo struct {
	Index int       `json:"index"`
	Name  string    `json:"name"`
	Type  TrackType `json:"type"`
}

func (ti TrackInfo) String() string {
	if ti.Name != "" {
		return ti.Name
	}
	return fmt.Sprintf("T%d", ti.Index)
}

// Track is a named, ordered sequence of points.
type Track struct {
	Info   TrackInfo `json:"info"`
	Points []Point   `json:"points"`
}

// Start returns the earliest point time of the track.
func (t Track) Start() time.Time {
	var start time.Time
	for i, p := range t.Points {
		if i == 0 || p.Time.Before(start) {
			start = p.Time
		}
	}
	return start
}

// End returns the latest point time of the track.
func (t Track) End() time.Time {
	var end time.Time
	for i, p := range t.Points {
		if i == 0 || p.Time.After(end) {
			end = p.Time
		}
	}
	return end
}

// Window returns the closed time interval covered by the track.
// It returns ErrEmptyTrack if the track has no points.
func (t Track) Window() (Window, error) {
	if len(t.Points) == 0 {
		return Window{}, fmt.Errorf("%w: %s", ErrEmptyTrack, t.Info)
	}
	return Window{Start: t.Start(), End: t.End()}, nil
}

func (t Track) String() string {
	return fmt.Sprintf("%s (%s, %d points, %s to %s)",
		t.Info, t.Info.Type, len(t.Points),
		t.Start().Format(time.RFC3339), t.End().Format(time.RFC3339))
}

// CompileTracks returns the source tracks along with the derived
// tracks a user may want to pair against. If there is more than
// one source track, a gap track is inserted after each source track
// whose last point is at a different time than the next track's
// first point, and a combined track of all points is appended.
// Gap tracks share the index of the track that precedes them.
func CompileTracks(sources []Track) []Track {
	if len(sources) < 2 {
		return sources
	}

	all := make([]Track, 0, len(sources)*2+1)
	for i, t := range sources {
		all = append(all, t)
		if i == len(sources)-1 {
			break
		}
		next := sources[i+1]
		if len(t.Points) == 0 || len(next.Points) == 0 {
			continue
		}
		end, start := t.Points[len(t.Points)-1], next.Points[0]
		if end.Time.Equal(start.Time) {
			continue
		}
		all = append(all, Track{
			Info: TrackInfo{
				Index: t.Info.Index,
				Name:  bridgeName(t.Info, next.Info),
				Type:  TrackGap,
			},
			Points: []Point{end, start},
		})
	}

	return append(all, CombineTracks(sources))
}

// CombineTracks makes a single track of all the points of tracks.
func CombineTracks(tracks []Track) Track {
	var points []Point
	for _, t := range tracks {
		points = append(points, t.Points...)
	}
	var name string
	if len(tracks) > 0 {
		name = bridgeName(tracks[0].Info, tracks[len(tracks)-1].Info)
	}
	return Track{
		Info: TrackInfo{
			Index: len(tracks),
			Name:  name,
			Type:  TrackCombined,
		},
		Points: points,
	}
}

func bridgeName(a, b TrackInfo) string {
	return a.String() + "-" + b.String()
}

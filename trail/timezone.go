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
	"strings"
	"sync"
	"time"

	"github.com/ringsaturn/tzf"
)

// ZoneAuto is the display zone setting that picks the time zone
// at the first point of the first track.
const ZoneAuto = "auto"

// DisplayZone returns the time zone used to display times. The name
// may be "UTC" (or empty), "Local", an IANA zone name, or ZoneAuto.
// Display zones only affect how times are shown, never which point
// a song is paired with.
func DisplayZone(name string, tracks []Track) (*time.Location, error) {
	switch {
	case name == "" || strings.EqualFold(name, "UTC"):
		return time.UTC, nil
	case strings.EqualFold(name, "Local"):
		return time.Local, nil
	case strings.EqualFold(name, ZoneAuto):
		for _, t := range tracks {
			if len(t.Points) > 0 {
				return ZoneAt(t.Points[0].Location)
			}
		}
		return nil, fmt.Errorf("cannot determine time zone automatically: %w", ErrNoTracks)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", name, err)
	}
	return loc, nil
}

// ZoneAt returns the time zone in effect at coord.
func ZoneAt(coord Coordinate) (*time.Location, error) {
	finder, err := zoneFinder()
	if err != nil {
		return nil, err
	}
	name := finder.GetTimezoneName(coord.Longitude, coord.Latitude)
	if name == "" {
		return nil, fmt.Errorf("no time zone found at %s", coord)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q found at %s: %w", name, coord, err)
	}
	return loc, nil
}

// the finder loads a large data set, so only do it once and only if needed
var (
	finder     tzf.F
	finderErr  error
	finderOnce sync.Once
)

func zoneFinder() (tzf.F, error) {
	finderOnce.Do(func() {
		finder, finderErr = tzf.NewDefaultFinder()
		if finderErr != nil {
			finderErr = fmt.Errorf("loading time zone data: %w", finderErr)
		}
	})
	return finder, finderErr
}

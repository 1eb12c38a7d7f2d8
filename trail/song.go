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

// TimeUsage selects which instant of a play is used as the song's time.
type TimeUsage int

const (
	// UseEnd uses the time the song stopped playing, which is what
	// listening histories record.
	UseEnd TimeUsage = iota

	// UseStart uses the estimated time the song started playing
	// (end time minus time played).
	UseStart
)

func (u TimeUsage) String() string {
	if u == UseStart {
		return "start"
	}
	return "end"
}

// ParseTimeUsage parses "end" or "start". The empty string is "end".
func ParseTimeUsage(s string) (TimeUsage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "end":
		return UseEnd, nil
	case "start":
		return UseStart, nil
	}
	return 0, fmt.Errorf("unknown time usage %q (expected 'end' or 'start')", s)
}

// Song is a single play event from a listening history.
type Song struct {
	// Index is the position of the song in its source file(s).
	Index int `json:"index"`

	Name   string `json:"name"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`

	// URI identifies the track on the streaming service, if known.
	URI string `json:"uri,omitempty"`

	// End is when the song stopped playing.
	End time.Time `json:"end"`

	// Played is how long the song was played.
	Played time.Duration `json:"played,omitempty"`

	// Usage selects which time Time() returns.
	Usage TimeUsage `json:"usage"`

	Metadata Metadata `json:"metadata,omitempty"`

	// Original is the record exactly as it was read, if the
	// format has one; exported as-is by the JSON exporter.
	Original json.RawMessage `json:"-"`
}

// Time returns the instant used to pair the song with a point.
func (s Song) Time() time.Time {
	if s.Usage == UseStart && s.Played > 0 {
		return s.End.Add(-s.Played)
	}
	return s.End
}

// Title returns "Artist - Name", or just the name if the artist is unknown.
func (s Song) Title() string {
	if s.Artist == "" {
		return s.Name
	}
	return s.Artist + " - " + s.Name
}

func (s Song) String() string {
	return s.Title()
}

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
	"errors"
	"fmt"
)

var (
	// ErrEmptyTrack is returned when a track has no points, so
	// it has no time window.
	ErrEmptyTrack = errors.New("empty track")

	// ErrNoSongs is returned when the listening history has no songs.
	ErrNoSongs = errors.New("no songs")

	// ErrNoTracks is returned when no tracks were read or selected.
	ErrNoTracks = errors.New("no tracks")

	// ErrTooFewPoints is returned when asked to interpolate fewer
	// than 2 coordinates.
	ErrTooFewPoints = errors.New("interpolation needs at least 2 points")

	// ErrRange is returned for a correction range that is outside
	// the pairs or backwards.
	ErrRange = errors.New("invalid index range")

	// ErrHashMismatch is returned when a report's contents do not
	// match the hash in its header.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrMissingURI is returned when a song has no URI but one is required.
	ErrMissingURI = errors.New("missing URI")

	// ErrNoDataSource is returned when no data source recognizes an input.
	ErrNoDataSource = errors.New("no data source recognized the input")
)

// RangeError describes a bad correction range.
type RangeError struct {
	Start, End int
	Len        int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v: [%d, %d] with %d pairs", ErrRange, e.Start, e.End, e.Len)
}

func (e *RangeError) Unwrap() error { return ErrRange }

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

	"go.uber.org/zap"
)

// Window is a closed time interval.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if start <= t <= end.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// PointsWindow returns the window spanned by the earliest and latest
// of points. It returns ErrEmptyTrack if there are no points.
func PointsWindow(points []Point) (Window, error) {
	return Track{Points: points}.Window()
}

// FilterSongs returns the songs whose time is within w, in their
// original order. The input slice is not modified. If logger is
// not nil, the counts before and after filtering are logged.
func FilterSongs(songs []Song, w Window, logger *zap.Logger) []Song {
	var filtered []Song
	for _, s := range songs {
		if w.Contains(s.Time()) {
			filtered = append(filtered, s)
		}
	}
	if logger != nil {
		logger.Info("filtered songs to track window",
			zap.Stringer("window", w),
			zap.Int("songs", len(songs)),
			zap.Int("in_window", len(filtered)))
	}
	return filtered
}

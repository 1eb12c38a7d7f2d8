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
	"io"
	"strconv"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/cases"
)

// TrackFilter selects a subset of compiled tracks by type.
type TrackFilter struct {
	Key         string
	Description string
	Keep        func(Track) bool
}

// TrackFilters are the menu options offered when there is more than one track.
var TrackFilters = []TrackFilter{
	{"A", "GPS tracks only", func(t Track) bool { return t.Info.Type == TrackSource }},
	{"B", "All tracks except the combined track", func(t Track) bool { return t.Info.Type != TrackCombined }},
	{"C", "Gap tracks only", func(t Track) bool { return t.Info.Type == TrackGap }},
	{"D", "All tracks except gaps", func(t Track) bool { return t.Info.Type != TrackGap }},
	{"E", "All tracks except GPS tracks", func(t Track) bool { return t.Info.Type != TrackSource }},
	{"F", "All tracks", func(Track) bool { return true }},
}

// minNameSimilarity is how similar a typed track name must be to a
// track's name to select it.
const minNameSimilarity = 0.85

// SelectTracks interprets answer as a menu choice: a filter key (A-F),
// the position of a track in tracks, or the name of a track. Names
// are matched loosely, ignoring case.
func SelectTracks(tracks []Track, answer string) ([]Track, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("no track selected")
	}

	for _, f := range TrackFilters {
		if strings.EqualFold(answer, f.Key) {
			var selected []Track
			for _, t := range tracks {
				if f.Keep(t) {
					selected = append(selected, t)
				}
			}
			if len(selected) == 0 {
				return nil, fmt.Errorf("%w: option %s (%s) matches no tracks", ErrNoTracks, f.Key, f.Description)
			}
			return selected, nil
		}
	}

	if i, err := strconv.Atoi(answer); err == nil {
		if i < 0 || i >= len(tracks) {
			return nil, fmt.Errorf("track index %d out of range [0, %d]", i, len(tracks)-1)
		}
		return []Track{tracks[i]}, nil
	}

	if t, ok := trackByName(tracks, answer); ok {
		return []Track{t}, nil
	}

	return nil, fmt.Errorf("no track matches %q", answer)
}

func trackByName(tracks []Track, name string) (Track, bool) {
	fold := cases.Fold()
	want := fold.String(name)
	jw := metrics.NewJaroWinkler()

	var best Track
	var bestScore float64
	for _, t := range tracks {
		score := strutil.Similarity(want, fold.String(t.Info.Name), jw)
		if score > bestScore {
			best, bestScore = t, score
		}
	}
	return best, bestScore >= minNameSimilarity
}

// PromptTracks lets the user choose among tracks. If there is only
// one track, it is chosen without asking. If answer is not empty,
// it is used instead of asking; otherwise the menu is written to out
// and the user is asked until the answer is valid.
func PromptTracks(p *Prompter, out io.Writer, tracks []Track, answer string) ([]Track, error) {
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}
	if len(tracks) == 1 {
		return tracks, nil
	}
	if answer != "" {
		return SelectTracks(tracks, answer)
	}

	fmt.Fprintln(out, "Multiple GPS tracks found:")
	for i, t := range tracks {
		fmt.Fprintf(out, "  [%d] %s\n", i, t)
	}
	for _, f := range TrackFilters {
		fmt.Fprintf(out, "  [%s] %s\n", f.Key, f.Description)
	}

	var selected []Track
	err := p.Ask("Please enter the index, option, or name of the track(s) to use: ", func(answer string) error {
		var err error
		selected, err = SelectTracks(tracks, answer)
		return err
	})
	return selected, err
}

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
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run is the result of pairing songs with tracks.
type Run struct {
	// ID uniquely identifies the run; it is written to reports.
	ID string `json:"id"`

	// Name is used to name output files; usually the base
	// name of the GPS input.
	Name string `json:"name"`

	Created time.Time `json:"created"`

	// Tracks are the tracks the songs were paired with.
	Tracks []Track `json:"tracks"`

	// Pairs are ordered by their index.
	Pairs []Pair `json:"pairs"`
}

// NewRun returns a run with a new ID.
func NewRun(name string) *Run {
	return &Run{
		ID:      uuid.New().String(),
		Name:    name,
		Created: time.Now().UTC(),
	}
}

// TrackPairs are the pairs of a run that came from one track.
type TrackPairs struct {
	Track TrackInfo
	Pairs []Pair
}

// ByTrack groups the pairs of the run by their origin track, in
// order of the first pair of each track.
func (r *Run) ByTrack() []TrackPairs {
	var groups []TrackPairs
	pos := make(map[TrackInfo]int)
	for _, p := range r.Pairs {
		i, ok := pos[p.Origin]
		if !ok {
			i = len(groups)
			pos[p.Origin] = i
			groups = append(groups, TrackPairs{Track: p.Origin})
		}
		groups[i].Pairs = append(groups[i].Pairs, p)
	}
	return groups
}

// Pairer composes filtering, matching, and reporting into one step.
type Pairer struct {
	// Zone is the time zone used to display times in logs.
	Zone *time.Location

	// Log is the logger for pairing lines. It should be named
	// "pairing" so that no line is sampled away.
	Log *zap.Logger
}

// Pair pairs songs with the points of each track. Each track is paired
// on its own: songs are filtered to the track's window, then matched
// with the track's points. Pair indices continue from one track to the
// next. Any error aborts the whole pairing and no pairs are returned.
func (p Pairer) Pair(ctx context.Context, songs []Song, tracks []Track) ([]Pair, error) {
	if len(songs) == 0 {
		return nil, ErrNoSongs
	}
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}

	matcher := Matcher{Zone: p.Zone, Logger: p.Log}

	var pairs []Pair
	for _, t := range tracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		window, err := t.Window()
		if err != nil {
			return nil, err
		}

		var trackLog *zap.Logger
		if p.Log != nil {
			trackLog = p.Log.With(zap.Stringer("track", t.Info))
		}

		filtered := FilterSongs(songs, window, trackLog)

		trackPairs, err := matcher.Match(filtered, t.Points, t.Info, len(pairs))
		if err != nil {
			return nil, fmt.Errorf("pairing track %s: %w", t.Info, err)
		}
		pairs = append(pairs, trackPairs...)
	}

	ReportAccuracy(pairs, p.Log)

	return pairs, nil
}

// Prediction configures how duplicate clusters are corrected.
type Prediction struct {
	// If true, every duplicate run is corrected without asking.
	Auto bool

	// Prompter asks for the index range to correct when Auto is false.
	Prompter *Prompter

	Log *zap.Logger
}

// Predict reports the duplicate clusters among pairs and corrects
// them, either automatically or with an index range supplied by the
// user. If there are no clusters, pairs are returned unchanged.
func (pr Prediction) Predict(pairs []Pair) ([]Pair, error) {
	clusters := FindDuplicates(pairs)
	ReportDuplicates(clusters, pr.Log)
	if len(clusters) == 0 {
		return pairs, nil
	}

	if pr.Auto {
		return AutoCorrect(pairs, pr.Log)
	}

	if pr.Prompter == nil {
		return nil, fmt.Errorf("%d duplicate clusters need an index range, but there is no input to ask", len(clusters))
	}
	start, end, err := pr.Prompter.AskRange()
	if err != nil {
		return nil, fmt.Errorf("reading duplicate range: %w", err)
	}
	return Correct(pairs, start, end, pr.Log)
}

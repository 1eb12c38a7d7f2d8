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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2023, time.June, 10, 14, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func pt(i, sec int, lat, lon float64) Point {
	return Point{Index: i, Location: Coordinate{Latitude: lat, Longitude: lon}, Time: at(sec)}
}

func song(i, sec int, name string) Song {
	return Song{Index: i, Name: name, End: at(sec)}
}

func TestMatchWorkedExample(t *testing.T) {
	points := []Point{
		pt(0, 0, 10, 20),
		pt(1, 10, 10, 20),
		pt(2, 100, 11, 21),
	}
	songs := []Song{song(0, 2, "a"), song(1, 90, "b")}

	pairs, err := Matcher{}.Match(songs, points, TrackInfo{Name: "walk"}, 0)
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}

	for i, expect := range []struct {
		point    int
		accuracy time.Duration
	}{
		{point: 0, accuracy: 2 * time.Second},
		{point: 2, accuracy: 10 * time.Second},
	} {
		if pairs[i].Point.Index != expect.point || pairs[i].Accuracy() != expect.accuracy {
			t.Errorf("Pair %d: expected point %d at %s, got point %d at %s",
				i, expect.point, expect.accuracy, pairs[i].Point.Index, pairs[i].Accuracy())
		}
	}
	if avg := AverageAccuracy(pairs); avg != 6 {
		t.Errorf("expected average 6, got %d", avg)
	}
}

func TestMatchIndices(t *testing.T) {
	points := []Point{pt(0, 0, 1, 1)}
	songs := []Song{song(0, 0, "a"), song(1, 1, "b"), song(2, 2, "c")}
	origin := TrackInfo{Index: 3, Name: "x"}

	pairs, err := Matcher{}.Match(songs, points, origin, 7)
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}

	for i, p := range pairs {
		if p.Index != 7+i {
			t.Errorf("Test %d: expected index %d, got %d", i, 7+i, p.Index)
		}
		if p.Origin != origin {
			t.Errorf("Test %d: expected origin %v, got %v", i, origin, p.Origin)
		}
		if p.Song.Name != songs[i].Name {
			t.Errorf("Test %d: pairs out of song order: %s", i, p.Song.Name)
		}
	}
}

func TestMatchEmptyTrack(t *testing.T) {
	_, err := Matcher{}.Match([]Song{song(0, 0, "a")}, nil, TrackInfo{}, 0)
	if !errors.Is(err, ErrEmptyTrack) {
		t.Errorf("expected ErrEmptyTrack, got %v", err)
	}
}

func TestMatchNoSongs(t *testing.T) {
	pairs, err := Matcher{}.Match(nil, []Point{pt(0, 0, 1, 1)}, TrackInfo{}, 0)
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("expected no pairs, got %d", len(pairs))
	}
}

func TestNearest(t *testing.T) {
	for i, tc := range []struct {
		points      []Point
		input       time.Time
		expect      int
		expectDelta time.Duration
	}{
		{
			points: nil,
			input:  at(5),
			expect: -1,
		},
		{
			points:      []Point{pt(0, 10, 0, 0)},
			input:       at(-50),
			expect:      0,
			expectDelta: 60 * time.Second,
		},
		{
			// equidistant: the first point wins
			points:      []Point{pt(0, 0, 0, 0), pt(1, 10, 1, 1)},
			input:       at(5),
			expect:      0,
			expectDelta: 5 * time.Second,
		},
		{
			// equal times: the first point wins
			points:      []Point{pt(0, 0, 0, 0), pt(1, 7, 1, 1), pt(2, 7, 2, 2)},
			input:       at(7),
			expect:      1,
			expectDelta: 0,
		},
		{
			// unsorted points
			points:      []Point{pt(0, 100, 0, 0), pt(1, 0, 1, 1), pt(2, 52, 2, 2)},
			input:       at(50),
			expect:      2,
			expectDelta: 2 * time.Second,
		},
	} {
		actual, delta := Nearest(tc.input, tc.points)
		if actual != tc.expect {
			t.Errorf("Test %d: expected point %d, got %d", i, tc.expect, actual)
		}
		if delta != tc.expectDelta {
			t.Errorf("Test %d: expected delta %s, got %s", i, tc.expectDelta, delta)
		}
	}
}

func TestMatchIsOptimal(t *testing.T) {
	tracks, songs := FakeJourney(FakeOptions{Seed: 42, Tracks: 1, PointsPerTrack: 120, Songs: 60})
	points := tracks[0].Points

	pairs, err := Matcher{}.Match(songs, points, tracks[0].Info, 0)
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}

	for _, p := range pairs {
		for _, other := range points {
			d := absDuration(other.Time.Sub(p.Song.Time()))
			if d < p.Accuracy() {
				t.Fatalf("pair %d: point %d is nearer (%s) than the paired point (%s)",
					p.Index, other.Index, d, p.Accuracy())
			}
		}
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	tracks, songs := FakeJourney(FakeOptions{Seed: 7, Tracks: 1, PointsPerTrack: 80, Songs: 40})

	first, err := Matcher{}.Match(songs, tracks[0].Points, tracks[0].Info, 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Matcher{}.Match(songs, tracks[0].Points, tracks[0].Info, 0)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("matching the same input twice differs (-first +second):\n%s", diff)
	}
}

func TestSongTimeUsage(t *testing.T) {
	for i, tc := range []struct {
		usage  TimeUsage
		played time.Duration
		expect time.Time
	}{
		{usage: UseEnd, played: 2 * time.Minute, expect: at(300)},
		{usage: UseStart, played: 2 * time.Minute, expect: at(180)},
		// nothing to subtract
		{usage: UseStart, played: 0, expect: at(300)},
	} {
		s := Song{End: at(300), Played: tc.played, Usage: tc.usage}
		if actual := s.Time(); !actual.Equal(tc.expect) {
			t.Errorf("Test %d: expected %s, got %s", i, tc.expect, actual)
		}
	}
}

func TestParseTimeUsage(t *testing.T) {
	for i, tc := range []struct {
		input     string
		expect    TimeUsage
		expectErr bool
	}{
		{input: "", expect: UseEnd},
		{input: "end", expect: UseEnd},
		{input: " Start ", expect: UseStart},
		{input: "middle", expectErr: true},
	} {
		actual, err := ParseTimeUsage(tc.input)
		if tc.expectErr && err == nil {
			t.Errorf("Test %d: expected error but didn't get one", i)
		}
		if !tc.expectErr && err != nil {
			t.Errorf("Test %d: expected no error but got: %v", i, err)
		}
		if actual != tc.expect {
			t.Errorf("Test %d: expected %s but got %s", i, tc.expect, actual)
		}
	}
}

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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func twoTracks() []Track {
	return []Track{
		{
			Info:   TrackInfo{Index: 0, Name: "Morning Walk", Type: TrackSource},
			Points: []Point{pt(0, 0, 1, 1), pt(1, 60, 1.1, 1.1), pt(2, 120, 1.2, 1.2)},
		},
		{
			Info:   TrackInfo{Index: 1, Name: "Evening Ride", Type: TrackSource},
			Points: []Point{pt(0, 3600, 2, 2), pt(1, 3660, 2.1, 2.1)},
		},
	}
}

func TestCompileTracks(t *testing.T) {
	sources := twoTracks()
	compiled := CompileTracks(sources)
	if len(compiled) != 4 {
		t.Fatalf("expected 4 tracks, got %d", len(compiled))
	}

	expectInfo := []TrackInfo{
		sources[0].Info,
		{Index: 0, Name: "Morning Walk-Evening Ride", Type: TrackGap},
		sources[1].Info,
		{Index: 2, Name: "Morning Walk-Evening Ride", Type: TrackCombined},
	}
	for i, expect := range expectInfo {
		if compiled[i].Info != expect {
			t.Errorf("Track %d: expected %+v, got %+v", i, expect, compiled[i].Info)
		}
	}

	gap := compiled[1]
	if diff := cmp.Diff([]Point{sources[0].Points[2], sources[1].Points[0]}, gap.Points); diff != "" {
		t.Errorf("unexpected gap points (-want +got):\n%s", diff)
	}
	if n := len(compiled[3].Points); n != 5 {
		t.Errorf("expected 5 combined points, got %d", n)
	}
}

func TestCompileTracksNoGap(t *testing.T) {
	sources := twoTracks()
	// the second track starts exactly when the first ends
	sources[1].Points[0].Time = sources[0].Points[2].Time

	compiled := CompileTracks(sources)
	if len(compiled) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(compiled))
	}
	if compiled[1].Info.Type != TrackSource || compiled[2].Info.Type != TrackCombined {
		t.Errorf("expected no gap track, got types %s and %s", compiled[1].Info.Type, compiled[2].Info.Type)
	}
}

func TestCompileTracksSingle(t *testing.T) {
	sources := twoTracks()[:1]
	if diff := cmp.Diff(sources, CompileTracks(sources)); diff != "" {
		t.Errorf("a single track should be returned as is (-want +got):\n%s", diff)
	}
}

func TestTrackTypeJSON(t *testing.T) {
	for i, tc := range []struct {
		input     string
		expect    TrackType
		expectErr bool
	}{
		{input: `"GPS"`, expect: TrackSource},
		{input: `"gap"`, expect: TrackGap},
		{input: `"Combined"`, expect: TrackCombined},
		{input: `1`, expect: TrackGap},
		{input: `"bogus"`, expectErr: true},
	} {
		var actual TrackType
		err := json.Unmarshal([]byte(tc.input), &actual)
		if tc.expectErr {
			if err == nil {
				t.Errorf("Test %d: expected error but didn't get one", i)
			}
			continue
		}
		if err != nil {
			t.Errorf("Test %d: expected no error but got: %v", i, err)
		}
		if actual != tc.expect {
			t.Errorf("Test %d: expected %s but got %s", i, tc.expect, actual)
		}
	}

	out, err := json.Marshal(TrackInfo{Index: 2, Name: "x", Type: TrackCombined})
	if err != nil {
		t.Fatal(err)
	}
	if expect := `{"index":2,"name":"x","type":"Combined"}`; string(out) != expect {
		t.Errorf("expected %s, got %s", expect, out)
	}
}

func TestTrackInfoString(t *testing.T) {
	for i, tc := range []struct {
		info   TrackInfo
		expect string
	}{
		{info: TrackInfo{Index: 4, Name: "Ride"}, expect: "Ride"},
		{info: TrackInfo{Index: 4}, expect: "T4"},
	} {
		if actual := tc.info.String(); actual != tc.expect {
			t.Errorf("Test %d: expected %q, got %q", i, tc.expect, actual)
		}
	}
}

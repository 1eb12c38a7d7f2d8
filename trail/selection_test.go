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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSelectTracks(t *testing.T) {
	tracks := CompileTracks(twoTracks())

	for i, tc := range []struct {
		answer    string
		expect    []string
		expectErr bool
	}{
		{answer: "A", expect: []string{"Morning Walk", "Evening Ride"}},
		{answer: "b", expect: []string{"Morning Walk", "Morning Walk-Evening Ride", "Evening Ride"}},
		{answer: "C", expect: []string{"Morning Walk-Evening Ride"}},
		{answer: "D", expect: []string{"Morning Walk", "Evening Ride", "Morning Walk-Evening Ride"}},
		{answer: "E", expect: []string{"Morning Walk-Evening Ride", "Morning Walk-Evening Ride"}},
		{answer: "F", expect: []string{"Morning Walk", "Morning Walk-Evening Ride", "Evening Ride", "Morning Walk-Evening Ride"}},
		{answer: "2", expect: []string{"Evening Ride"}},
		{answer: " 0 ", expect: []string{"Morning Walk"}},
		{answer: "evening ride", expect: []string{"Evening Ride"}},
		{answer: "mornin walk", expect: []string{"Morning Walk"}},
		{answer: "4", expectErr: true},
		{answer: "-1", expectErr: true},
		{answer: "", expectErr: true},
		{answer: "xyzzy", expectErr: true},
	} {
		selected, err := SelectTracks(tracks, tc.answer)
		if tc.expectErr {
			if err == nil {
				t.Errorf("Test %d (%q): expected error but didn't get one", i, tc.answer)
			}
			continue
		}
		if err != nil {
			t.Errorf("Test %d (%q): expected no error but got: %v", i, tc.answer, err)
			continue
		}
		var names []string
		for _, s := range selected {
			names = append(names, s.Info.Name)
		}
		if diff := cmp.Diff(tc.expect, names); diff != "" {
			t.Errorf("Test %d (%q): unexpected tracks (-want +got):\n%s", i, tc.answer, diff)
		}
	}
}

func TestSelectTracksEmptyOption(t *testing.T) {
	// no gaps without a second track
	if _, err := SelectTracks(twoTracks()[:1], "C"); !errors.Is(err, ErrNoTracks) {
		t.Errorf("expected ErrNoTracks, got %v", err)
	}
}

func TestPromptTracks(t *testing.T) {
	tracks := CompileTracks(twoTracks())

	t.Run("single track is not asked", func(t *testing.T) {
		var out strings.Builder
		one := twoTracks()[:1]
		selected, err := PromptTracks(NewPrompter(strings.NewReader(""), &out), &out, one, "")
		if err != nil {
			t.Fatalf("expected no error but got: %v", err)
		}
		if diff := cmp.Diff(one, selected); diff != "" {
			t.Errorf("unexpected tracks (-want +got):\n%s", diff)
		}
		if out.Len() != 0 {
			t.Errorf("expected no prompt, got %q", out.String())
		}
	})

	t.Run("answer given in advance", func(t *testing.T) {
		var out strings.Builder
		selected, err := PromptTracks(NewPrompter(strings.NewReader(""), &out), &out, tracks, "A")
		if err != nil {
			t.Fatalf("expected no error but got: %v", err)
		}
		if len(selected) != 2 {
			t.Errorf("expected 2 tracks, got %d", len(selected))
		}
		if out.Len() != 0 {
			t.Errorf("expected no prompt, got %q", out.String())
		}
	})

	t.Run("asks until valid", func(t *testing.T) {
		var out strings.Builder
		selected, err := PromptTracks(NewPrompter(strings.NewReader("9\n3\n"), &out), &out, tracks, "")
		if err != nil {
			t.Fatalf("expected no error but got: %v", err)
		}
		if len(selected) != 1 || selected[0].Info.Type != TrackCombined {
			t.Fatalf("expected the combined track, got %d tracks", len(selected))
		}
		for _, expect := range []string{"[F] All tracks", "[1] Morning Walk-Evening Ride"} {
			if !strings.Contains(out.String(), expect) {
				t.Errorf("expected menu to contain %q:\n%s", expect, out.String())
			}
		}
		if n := strings.Count(out.String(), "Invalid input"); n != 1 {
			t.Errorf("expected 1 invalid answer, got %d", n)
		}
	})

	t.Run("no tracks", func(t *testing.T) {
		_, err := PromptTracks(NewPrompter(strings.NewReader(""), &strings.Builder{}), &strings.Builder{}, nil, "")
		if !errors.Is(err, ErrNoTracks) {
			t.Errorf("expected ErrNoTracks, got %v", err)
		}
	})
}

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

package spotify

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/songtrail/songtrail/internal/testhelpers"
	"github.com/songtrail/songtrail/trail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const accountData = `[
  {
    "endTime" : "2023-06-10 14:00",
    "artistName" : "Joni Mitchell",
    "trackName" : "Blue",
    "msPlayed" : 180000
  },
  {
    "endTime" : "2023-06-10 14:04",
    "artistName" : "Joni Mitchell",
    "trackName" : "River",
    "msPlayed" : 240000
  }
]`

const extendedHistory = `[
  {
    "ts": "2023-06-10T15:00:00Z",
    "username": "someone",
    "platform": "android",
    "ms_played": 61000,
    "conn_country": "CH",
    "master_metadata_track_name": "Big Yellow Taxi",
    "master_metadata_album_artist_name": "Joni Mitchell",
    "master_metadata_album_album_name": "Ladies of the Canyon",
    "spotify_track_uri": "spotify:track:3ZUf9mY7dVKxuu8IafqGXX",
    "episode_name": null,
    "reason_start": "trackdone",
    "reason_end": "fwdbtn",
    "shuffle": false,
    "skipped": true,
    "offline": false,
    "offline_timestamp": 0,
    "incognito_mode": false
  },
  {
    "ts": "2023-06-10T15:30:00Z",
    "ms_played": 1200000,
    "master_metadata_track_name": null,
    "episode_name": "Episode 12",
    "episode_show_name": "A Podcast",
    "spotify_episode_uri": "spotify:episode:abc"
  },
  {
    "endTime": "06/10/2023 15:40:30",
    "trackName": "Both Sides Now",
    "msPlayed": 1000
  },
  {
    "ts": "2023-06-10T17:45:00+02:00",
    "ms_played": 1000,
    "master_metadata_track_name": null,
    "master_metadata_album_artist_name": null,
    "episode_name": null,
    "spotify_track_uri": null
  }
]`

func TestReadSongsAccountData(t *testing.T) {
	songs, err := ReadSongs(context.Background(), strings.NewReader(accountData), 5, trail.UseStart, nil)
	require.NoError(t, err)
	require.Len(t, songs, 2)

	blue := songs[0]
	assert.Equal(t, 5, blue.Index)
	assert.Equal(t, "Blue", blue.Name)
	assert.Equal(t, "Joni Mitchell", blue.Artist)
	assert.Equal(t, testhelpers.Start, blue.End)
	assert.Equal(t, 3*time.Minute, blue.Played)
	assert.Equal(t, testhelpers.Start.Add(-3*time.Minute), blue.Time())
	assert.Contains(t, string(blue.Original), `"trackName" : "Blue"`)

	assert.Equal(t, 6, songs[1].Index)
}

func TestReadSongsExtendedHistory(t *testing.T) {
	songs, err := ReadSongs(context.Background(), strings.NewReader(extendedHistory), 0, trail.UseEnd, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, songs, 4)
	for i, s := range songs {
		assert.Equal(t, i, s.Index)
	}

	taxi := songs[0]
	assert.Equal(t, "Big Yellow Taxi", taxi.Name)
	assert.Equal(t, "Ladies of the Canyon", taxi.Album)
	assert.Equal(t, "spotify:track:3ZUf9mY7dVKxuu8IafqGXX", taxi.URI)
	assert.Equal(t, testhelpers.Start.Add(time.Hour), taxi.Time())
	assert.Equal(t, "android", taxi.Metadata["Platform"])
	assert.Equal(t, true, taxi.Metadata["Skipped"])
	assert.Equal(t, false, taxi.Metadata["Shuffle"])
	assert.NotContains(t, taxi.Metadata, "Offline timestamp")

	episode := songs[1]
	assert.Equal(t, "Episode 12", episode.Name)
	assert.Equal(t, "A Podcast", episode.Artist)
	assert.Equal(t, "spotify:episode:abc", episode.URI)
	assert.Equal(t, 20*time.Minute, episode.Played)
	assert.Equal(t, true, episode.Metadata["Episode"])

	both := songs[2]
	assert.Equal(t, time.Date(2023, 6, 10, 15, 40, 30, 0, time.UTC), both.End)
	assert.Empty(t, both.Artist)

	unnamed := songs[3]
	assert.Empty(t, unnamed.Name)
	assert.Empty(t, unnamed.URI)
	assert.True(t, unnamed.End.Equal(time.Date(2023, 6, 10, 15, 45, 0, 0, time.UTC)))
	_, offset := unnamed.End.Zone()
	assert.Equal(t, 2*60*60, offset)
}

func TestReadSongsErrors(t *testing.T) {
	for i, tc := range []struct {
		input string
	}{
		{input: `{"endTime": "2023-06-10 14:00"}`},
		{input: `[{"artistName": "x", "trackName": "y", "msPlayed": 1}]`},
		{input: `[{"endTime": "yesterday", "trackName": "y", "msPlayed": 1}]`},
		{input: `[{"endTime": "2023-06-10 14:00", "trackName": "y"}]`},
		{input: `[{"endTime": "2023-06-10 14:00", "trackName": "y", "msPlayed": 1},`},
	} {
		_, err := ReadSongs(context.Background(), strings.NewReader(tc.input), 0, trail.UseEnd, nil)
		if err == nil {
			t.Errorf("Test %d: expected error but didn't get one", i)
		}
	}
}

func TestParseTime(t *testing.T) {
	for i, tc := range []struct {
		input        string
		expect       time.Time
		expectOffset int
		expectErr    bool
	}{
		{input: "2023-06-10 14:00", expect: testhelpers.Start},
		{input: "06/10/2023 14:00:00", expect: testhelpers.Start},
		{input: "2023-06-10T14:00:00Z", expect: testhelpers.Start},
		{input: "2023-06-10T16:00:00+02:00", expect: testhelpers.Start, expectOffset: 7200},
		{input: "10.06.2023 14:00", expectErr: true},
	} {
		actual, err := ParseTime(tc.input)
		if tc.expectErr {
			if err == nil {
				t.Errorf("Test %d: expected error but didn't get one", i)
			}
			continue
		}
		if err != nil {
			t.Errorf("Test %d: expected no error but got: %v", i, err)
			continue
		}
		if _, offset := actual.Zone(); !actual.Equal(tc.expect) || offset != tc.expectOffset {
			t.Errorf("Test %d: expected %s (offset %d) but got %s", i, tc.expect, tc.expectOffset, actual)
		}
	}
}

func TestImportSongs(t *testing.T) {
	entry := testhelpers.Input(t, map[string]string{
		"MyData/StreamingHistory1.json": accountData,
		"MyData/StreamingHistory0.json": accountData,
		"MyData/Userdata.json":          `{"username": "someone"}`,
		"MyData/Read Me First.pdf":      "",
	})

	rec, err := FileImporter{}.Recognize(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, 0.5, rec.Confidence)

	songs, err := FileImporter{}.ImportSongs(context.Background(), entry, testhelpers.ImportParams(t))
	require.NoError(t, err)
	require.Len(t, songs, 4)
	for i, s := range songs {
		assert.Equal(t, i, s.Index)
	}
}

func TestWriteSongsReadBack(t *testing.T) {
	_, generated := trail.FakeJourney(trail.FakeOptions{Seed: 11, Songs: 15})

	var buf bytes.Buffer
	require.NoError(t, WriteSongs(&buf, generated))

	songs, err := ReadSongs(context.Background(), &buf, 0, trail.UseEnd, nil)
	require.NoError(t, err)
	require.Len(t, songs, len(generated))
	for i, s := range songs {
		want := generated[i]
		assert.Equal(t, want.Name, s.Name)
		assert.Equal(t, want.Artist, s.Artist)
		assert.Equal(t, want.Album, s.Album)
		assert.Equal(t, want.URI, s.URI)
		assert.True(t, want.End.Equal(s.End))
		assert.Equal(t, want.Played, s.Played)
	}
}

func TestExportJSONAndURIs(t *testing.T) {
	run := testhelpers.SampleRun()
	params := testhelpers.ExportParams(t, run)

	require.NoError(t, JSONExporter{}.Export(context.Background(), params))
	require.NoError(t, URIExporter{}.Export(context.Background(), params))

	assert.Equal(t, []string{"trip_Ride.json", "trip_Ride.txt", "trip_Walk.json", "trip_Walk.txt"},
		testhelpers.OutputFiles(t, params.Output.Dir))

	walk := testhelpers.ReadOutput(t, params.Output.Dir, "trip_Walk.json")
	songs, err := ReadSongs(context.Background(), strings.NewReader(walk), 0, trail.UseEnd, nil)
	require.NoError(t, err)
	require.Len(t, songs, 3)
	assert.Equal(t, "River", songs[1].Name)

	uris := testhelpers.ReadOutput(t, params.Output.Dir, "trip_Ride.txt")
	assert.Equal(t, "spotify:track:3ZUf9mY7dVKxuu8IafqGXX\n", uris)
}

func TestWriteURIsMissing(t *testing.T) {
	run := testhelpers.SampleRun()
	run.Pairs[2].Song.URI = ""

	var buf bytes.Buffer
	err := WriteURIs(&buf, run.Pairs)
	assert.ErrorIs(t, err, trail.ErrMissingURI)
}

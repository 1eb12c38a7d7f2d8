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

package jsonreport

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/songtrail/songtrail/internal/testhelpers"
	"github.com/songtrail/songtrail/trail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSample(t *testing.T) (*trail.Run, string) {
	t.Helper()
	run := testhelpers.SampleRun()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, run))
	return run, buf.String()
}

// withoutOriginal strips the parts of a pair that a report doesn't keep.
func withoutOriginal(pairs []trail.Pair) []trail.Pair {
	out := make([]trail.Pair, len(pairs))
	for i, p := range pairs {
		p.Song.Original = nil
		out[i] = p
	}
	return out
}

func TestWriteRead(t *testing.T) {
	run, report := writeSample(t)

	header, pairs, err := Read(strings.NewReader(report), true)
	require.NoError(t, err)
	assert.Equal(t, 4, header.Total)
	assert.Equal(t, run.ID, header.RunID)
	assert.Equal(t, "trip", header.Name)
	assert.Len(t, header.Hash, 64)

	if diff := cmp.Diff(withoutOriginal(run.Pairs), pairs); diff != "" {
		t.Errorf("pairs differ after reading back (-want +got):\n%s", diff)
	}
	assert.True(t, pairs[1].Point.Predicted)
}

func TestWriteReadKeepsOffsets(t *testing.T) {
	run := testhelpers.SampleRun()
	run.Pairs[0].Point.Time = run.Pairs[0].Point.Time.In(time.FixedZone("", 2*60*60))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, run))
	assert.Contains(t, buf.String(), "2023-06-10T16:00:00+02:00")

	_, pairs, err := Read(&buf, true)
	require.NoError(t, err)
	assert.True(t, pairs[0].Point.Time.Equal(testhelpers.Start))
	_, offset := pairs[0].Point.Time.Zone()
	assert.Equal(t, 2*60*60, offset)
}

func TestReadTampered(t *testing.T) {
	_, report := writeSample(t)
	tampered := strings.Replace(report, "Big Yellow Taxi", "Big Yellow Cab", 1)
	require.NotEqual(t, report, tampered)

	_, _, err := Read(strings.NewReader(tampered), true)
	assert.ErrorIs(t, err, trail.ErrHashMismatch)

	_, pairs, err := Read(strings.NewReader(tampered), false)
	require.NoError(t, err)
	assert.Equal(t, "Big Yellow Cab", pairs[3].Song.Name)
}

func TestReadReformatted(t *testing.T) {
	_, report := writeSample(t)

	// whitespace doesn't change the hash
	var compact bytes.Buffer
	require.NoError(t, json.Compact(&compact, []byte(report)))
	_, _, err := Read(&compact, true)
	assert.NoError(t, err)
}

func TestReadStructureErrors(t *testing.T) {
	walk := trail.TrackInfo{Index: 0, Name: "Walk"}
	ride := trail.TrackInfo{Index: 1, Name: "Ride"}
	pair := func(i int, origin trail.TrackInfo) trail.Pair {
		return trail.Pair{Index: i, Origin: origin, Song: trail.Song{Name: "x", End: testhelpers.Start}}
	}
	encode := func(header Header, tracks ...Track) string {
		elems := []any{header}
		for _, tr := range tracks {
			elems = append(elems, tr)
		}
		b, err := json.Marshal(elems)
		require.NoError(t, err)
		return string(b)
	}

	for i, tc := range []struct {
		input     string
		expectErr bool
	}{
		{
			input: encode(Header{Total: 3},
				Track{Count: 2, TrackInfo: walk, Pairs: []trail.Pair{pair(0, walk), pair(1, walk)}},
				Track{Count: 1, TrackInfo: ride, Pairs: []trail.Pair{pair(2, ride)}}),
		},
		{
			// wrong count
			input: encode(Header{Total: 2},
				Track{Count: 1, TrackInfo: walk, Pairs: []trail.Pair{pair(0, walk), pair(1, walk)}}),
			expectErr: true,
		},
		{
			// wrong total
			input: encode(Header{Total: 5},
				Track{Count: 2, TrackInfo: walk, Pairs: []trail.Pair{pair(0, walk), pair(1, walk)}}),
			expectErr: true,
		},
		{
			// index gap
			input: encode(Header{Total: 2},
				Track{Count: 2, TrackInfo: walk, Pairs: []trail.Pair{pair(0, walk), pair(2, walk)}}),
			expectErr: true,
		},
		{
			// pair from another track
			input: encode(Header{Total: 2},
				Track{Count: 2, TrackInfo: walk, Pairs: []trail.Pair{pair(0, walk), pair(1, ride)}}),
			expectErr: true,
		},
		{
			input:     `[]`,
			expectErr: true,
		},
		{
			input:     `{"Total": 0}`,
			expectErr: true,
		},
	} {
		_, _, err := Read(strings.NewReader(tc.input), false)
		if tc.expectErr && err == nil {
			t.Errorf("Test %d: expected error but didn't get one", i)
		}
		if !tc.expectErr && err != nil {
			t.Errorf("Test %d: expected no error but got: %v", i, err)
		}
	}
}

func TestExportImport(t *testing.T) {
	run := testhelpers.SampleRun()
	params := testhelpers.ExportParams(t, run)

	require.NoError(t, Exporter{}.Export(context.Background(), params))
	assert.Equal(t, []string{"trip_Report.json"}, testhelpers.OutputFiles(t, params.Output.Dir))

	entry := testhelpers.OpenFile(t, "trip_Report.json",
		testhelpers.ReadOutput(t, params.Output.Dir, "trip_Report.json"))

	rec, err := FileImporter{}.Recognize(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.Confidence)

	pairs, err := FileImporter{}.ImportPairs(context.Background(), entry, testhelpers.ImportParams(t))
	require.NoError(t, err)
	assert.Len(t, pairs, 4)
}

func TestRecognizeOtherJSON(t *testing.T) {
	entry := testhelpers.OpenFile(t, "history.json", `[{"endTime": "2023-06-10 14:00", "msPlayed": 1}]`)
	rec, err := FileImporter{}.Recognize(context.Background(), entry)
	require.NoError(t, err)
	assert.Zero(t, rec.Confidence)
}

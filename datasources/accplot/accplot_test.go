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

package accplot

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/songtrail/songtrail/internal/testhelpers"
	"github.com/songtrail/songtrail/trail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlot(t *testing.T) {
	run := testhelpers.SampleRun()
	p, err := NewPlot(run)
	require.NoError(t, err)
	assert.Equal(t, "trip: song-point accuracy", p.Title.Text)

	_, err = NewPlot(trail.NewRun("empty"))
	assert.ErrorIs(t, err, errNoPairs)
}

func TestExportPNG(t *testing.T) {
	run := testhelpers.FakeRun(t, 8, 2, 40)
	params := testhelpers.ExportParams(t, run)
	params.Output.Name = "trip"

	require.NoError(t, Exporter{}.Export(context.Background(), params))
	assert.Equal(t, []string{"trip_Accuracy.png"}, testhelpers.OutputFiles(t, params.Output.Dir))

	img, err := png.Decode(bytes.NewReader([]byte(testhelpers.ReadOutput(t, params.Output.Dir, "trip_Accuracy.png"))))
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
	assert.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())
}

func TestExportHTML(t *testing.T) {
	run := testhelpers.SampleRun()
	params := testhelpers.ExportParams(t, run)

	require.NoError(t, HTMLExporter{}.Export(context.Background(), params))
	assert.Equal(t, []string{"trip_Accuracy.html"}, testhelpers.OutputFiles(t, params.Output.Dir))

	page := testhelpers.ReadOutput(t, params.Output.Dir, "trip_Accuracy.html")
	assert.Contains(t, page, "<title>trip accuracy</title>")
	assert.Contains(t, page, "Joni Mitchell - River")
	assert.Contains(t, page, "Predicted")
}

func TestExportNothing(t *testing.T) {
	run := trail.NewRun("empty")
	params := testhelpers.ExportParams(t, run)

	require.NoError(t, Exporter{}.Export(context.Background(), params))
	require.NoError(t, HTMLExporter{}.Export(context.Background(), params))
	assert.Empty(t, testhelpers.OutputFiles(t, params.Output.Dir))
}

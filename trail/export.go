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
	"io"

	"go.uber.org/zap"
)

// Export writes the run with each of the named export formats, in order.
// It stops at the first error.
func Export(ctx context.Context, formats []string, params ExportParams) error {
	if params.Run == nil {
		return fmt.Errorf("nothing to export")
	}
	if params.Templates == nil {
		tpls, err := NewTemplates("", "", params.Zone)
		if err != nil {
			return err
		}
		params.Templates = tpls
	}
	baseLog := params.Log
	if baseLog == nil {
		baseLog = Log.Named("export")
	}

	for _, name := range formats {
		if err := ctx.Err(); err != nil {
			return err
		}
		ds, err := GetDataSource(name)
		if err != nil {
			return err
		}
		if ds.NewExporter == nil {
			return fmt.Errorf("%s (%s) cannot be exported", ds.Name, ds.Title)
		}
		params.Log = baseLog.Named(name)
		if err := ds.NewExporter().Export(ctx, params); err != nil {
			return fmt.Errorf("exporting %s: %w", ds.Title, err)
		}
	}
	return nil
}

// logWritten logs that an export file was written.
func logWritten(logger *zap.Logger, path string, pairs int) {
	if logger != nil {
		logger.Info("wrote file", zap.String("path", path), zap.Int("pairs", pairs))
	}
}

// WriteEach calls write once per origin track of the run, writing
// each track's pairs to its own file named with the track's name
// and suffix. It is for formats that can only hold one track.
func (params ExportParams) WriteEach(suffix, ext string, write func(tp TrackPairs, w io.Writer) error) error {
	for _, tp := range params.Run.ByTrack() {
		name := tp.Track.String()
		if suffix != "" {
			name += "_" + suffix
		}
		p, err := params.Output.WriteFile(name, ext, func(w io.Writer) error {
			return write(tp, w)
		})
		if err != nil {
			return err
		}
		logWritten(params.Log, p, len(tp.Pairs))
	}
	return nil
}

// WriteAll writes all the pairs of the run to a single file.
func (params ExportParams) WriteAll(suffix, ext string, write func(w io.Writer) error) error {
	p, err := params.Output.WriteFile(suffix, ext, write)
	if err != nil {
		return err
	}
	logWritten(params.Log, p, len(params.Run.Pairs))
	return nil
}

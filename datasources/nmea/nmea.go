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

// Package nmea0183 implements a data source for NMEA 0183 logs (GPS loggers, radios, marine electronics).
//
// Free reference manuals that have the most important information:
// - https://receiverhelp.trimble.com/alloy-gnss/en-us/NMEA-0183messages_MessageOverview.html
// - https://www.sparkfun.com/datasheets/GPS/NMEA%20Reference%20Manual-Rev2.1-Dec07.pdf
package nmea0183

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
)

func init() {
	err := trail.RegisterDataSource(trail.DataSource{
		Name:             "nmea0183",
		Title:            "NMEA-0183",
		Description:      "Sentences logged by a GPS receiver; one track per file",
		NewTrackImporter: func() trail.TrackImporter { return new(FileImporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}
}

var extensions = []string{".nme", ".nmea"}

// FileImporter implements the trail.TrackImporter interface.
type FileImporter struct{}

// Recognize returns whether the input is supported.
func (FileImporter) Recognize(ctx context.Context, dirEntry trail.DirEntry) (trail.Recognition, error) {
	return trail.RecognizeExtensions(ctx, dirEntry, extensions...)
}

// ImportTracks reads one track from each NMEA file in the input.
func (FileImporter) ImportTracks(ctx context.Context, dirEntry trail.DirEntry, params trail.ImportParams) ([]trail.Track, error) {
	files, err := dirEntry.Files(ctx, extensions...)
	if err != nil {
		return nil, err
	}

	logger := params.Log
	if logger == nil {
		logger = zap.NewNop()
	}

	var tracks []trail.Track
	for _, f := range files {
		file, err := dirEntry.Open(f)
		if err != nil {
			return nil, err
		}
		points, err := ReadPoints(ctx, file, params.ReferenceYear, logger.Named("nmea"))
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		if len(points) == 0 {
			logger.Warn("no positions in file", zap.String("file", f.Path))
			continue
		}

		idx := len(tracks)
		for i := range points {
			points[i].Track = idx
		}
		tracks = append(tracks, trail.Track{
			Info: trail.TrackInfo{
				Index: idx,
				Name:  strings.TrimSuffix(f.Name, path.Ext(f.Name)),
				Type:  trail.TrackSource,
			},
			Points: points,
		})
	}

	return tracks, nil
}

// ReadPoints reads the positions from the NMEA sentences in r.
// NMEA dates don't have 4-digit years, so the century is taken
// from refYear; if refYear is not positive, the current year is used.
func ReadPoints(ctx context.Context, r io.Reader, refYear int, logger *zap.Logger) ([]trail.Point, error) {
	if refYear <= 0 {
		refYear = time.Now().UTC().Year()
	}

	dec := &decoder{scanner: bufio.NewScanner(r), refYear: refYear, logger: logger}

	// some radios produce \r-delimited (carriage-return ONLY) newlines,
	// which the default scanner does not support. Use custom split function.
	dec.scanner.Split(scanLines)

	var points []trail.Point
	for {
		p, err := dec.nextPoint(ctx)
		if err != nil {
			return nil, err
		}
		if p == nil {
			break
		}

		// RMC and GGA sentences alternate with the same fix; fold
		// the second into the first instead of duplicating the point
		if n := len(points); n > 0 && points[n-1].Time.Equal(p.Time) && points[n-1].Location == p.Location {
			if p.Elevation != 0 {
				points[n-1].Elevation = p.Elevation
			}
			points[n-1].Metadata.Merge(p.Metadata, trail.MetaMergeSkip)
			continue
		}

		p.Index = len(points)
		points = append(points, *p)
	}

	return points, nil
}

// decoder wraps the file reader to get the next location from the file.
type decoder struct {
	scanner  *bufio.Scanner
	refYear  int
	lastDate nmea.Date
	logger   *zap.Logger
}

// nextPoint returns the next available point from the NMEA file.
func (d *decoder) nextPoint(ctx context.Context) (*trail.Point, error) {
	for d.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := strings.TrimSpace(d.scanner.Text())
		if line == "" {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("parsing next line: %w", err)
		}

		p := &trail.Point{Metadata: make(trail.Metadata)}

		switch s := sentence.(type) {
		case nmea.RMC:
			if s.Validity != nmea.ValidRMC {
				d.logger.Debug("skipping RMC sentence without a valid fix", zap.String("raw", s.Raw))
				continue
			}
			p.Location = trail.Coordinate{Latitude: s.Latitude, Longitude: s.Longitude}
			p.Time = nmea.DateTime(d.refYear, s.Date, s.Time)
			d.lastDate = s.Date // remember this since GGA sentences don't include date...

			p.Metadata["Velocity"] = s.Speed * metersPerSecondPerKnot
			p.Metadata["Heading"] = s.Course

		case nmea.GGA:
			if !d.lastDate.Valid {
				// No date; it's possible this came before any RMC lines, which means we don't
				// know which date the time occurred on, so drop the point.
				d.logger.Warn("encountered GGA sentence before any sentence with a date, so we cannot make timestamp; dropping data point",
					zap.String("raw", s.Raw))
				continue
			}
			if s.FixQuality == nmea.Invalid {
				continue
			}
			p.Location = trail.Coordinate{Latitude: s.Latitude, Longitude: s.Longitude}
			p.Elevation = s.Altitude
			p.Time = nmea.DateTime(d.refYear, d.lastDate, s.Time)

			p.Metadata["Satellites"] = s.NumSatellites
			p.Metadata["GPS Quality"] = s.FixQuality

		case nmea.VTG, nmea.GSA, nmea.GSV:
			// no position in these
			continue

		default:
			d.logger.Debug("skipping unsupported NMEA sentence type",
				zap.String("type", sentence.DataType()))
			continue
		}

		p.Metadata.Clean()
		return p, nil
	}
	if err := d.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}

	return nil, nil
}

// scanLines is a bufio.SplitFunc for Scanners that tolerates variable newlines,
// including carriage-return-only. https://stackoverflow.com/a/74962607/1048862
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			// We have a line terminated by single newline.
			return i + 1, data[0:i], nil
		}
		// We have a line terminated by carriage return at the end of the buffer.
		if !atEOF && len(data) == i+1 {
			return 0, nil, nil
		}
		advance = i + 1
		if len(data) > i+1 && data[i+1] == '\n' {
			advance++
		}
		return advance, data[0:i], nil
	}
	// If we're at EOF, we have a final, non-terminated line. Return it.
	if atEOF {
		return len(data), data, nil
	}
	// Request more data.
	return 0, nil, nil
}

// 1 knot is this many m/s
const metersPerSecondPerKnot = 0.514444

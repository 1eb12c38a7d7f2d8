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

// Package jsonreport implements a data source for reports of paired
// songs and points, which can be read back to export a previous run
// in other formats without pairing it again.
//
// A report is a JSON array. The first element is a header; each
// following element holds the pairs of one origin track, in order:
//
//	[
//	  {"Total": 4, "Hash": "...", "RunID": "...", "Name": "trip", "Created": "..."},
//	  {"Count": 3, "TrackInfo": {...}, "Pairs": [...]},
//	  {"Count": 1, "TrackInfo": {...}, "Pairs": [...]}
//	]
//
// The hash is the BLAKE3 sum of the compact JSON of the track
// elements, each followed by a newline.
package jsonreport

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/songtrail/songtrail/trail"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

func init() {
	err := trail.RegisterDataSource(trail.DataSource{
		Name:            "jsonreport",
		Title:           "Songtrail report",
		Description:     "A report of paired songs and points, grouped by track, with a hash to detect changes",
		NewPairImporter: func() trail.PairImporter { return new(FileImporter) },
		NewExporter:     func() trail.Exporter { return new(Exporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}
}

// Header is the first element of a report.
type Header struct {
	Total   int       `json:"Total"`
	Hash    string    `json:"Hash"`
	RunID   string    `json:"RunID,omitempty"`
	Name    string    `json:"Name,omitempty"`
	Created time.Time `json:"Created,omitzero"`
}

// Track is the pairs of one origin track.
type Track struct {
	Count     int             `json:"Count"`
	TrackInfo trail.TrackInfo `json:"TrackInfo"`
	Pairs     []trail.Pair    `json:"Pairs"`
}

// FileImporter implements the trail.PairImporter interface.
type FileImporter struct{}

// Recognize returns whether the input is a single report.
func (FileImporter) Recognize(ctx context.Context, dirEntry trail.DirEntry) (trail.Recognition, error) {
	files, err := dirEntry.Files(ctx)
	if err != nil {
		return trail.Recognition{}, err
	}
	if len(files) != 1 {
		return trail.Recognition{}, nil
	}
	head, err := dirEntry.Peek(files[0], 512)
	if err != nil {
		return trail.Recognition{}, err
	}
	head = bytes.TrimSpace(head)
	if len(head) > 0 && head[0] == '[' &&
		bytes.Contains(head, []byte(`"Total"`)) && bytes.Contains(head, []byte(`"Hash"`)) {
		return trail.Recognition{Confidence: 1}, nil
	}
	return trail.Recognition{}, nil
}

// ImportPairs reads the pairs of the report.
func (FileImporter) ImportPairs(ctx context.Context, dirEntry trail.DirEntry, params trail.ImportParams) ([]trail.Pair, error) {
	files, err := dirEntry.Files(ctx)
	if err != nil {
		return nil, err
	}
	if len(files) != 1 {
		return nil, fmt.Errorf("expected one report, found %d files", len(files))
	}
	file, err := dirEntry.Open(files[0])
	if err != nil {
		return nil, err
	}
	defer file.Close()

	header, pairs, err := Read(file, params.VerifyHash)
	if err != nil {
		return nil, err
	}
	if params.Log != nil {
		params.Log.Debug("read report",
			zap.String("run", header.RunID),
			zap.Int("total", header.Total),
			zap.Bool("hash_verified", params.VerifyHash))
	}
	return pairs, nil
}

// Read decodes a report from r and checks its structure: the number
// of pairs of each track and in total must match the counts, every
// pair must belong to its track, and pair indices must continue from
// one pair to the next. If verify is true, the hash is checked too,
// and ErrHashMismatch is returned if it does not match.
func Read(r io.Reader, verify bool) (Header, []trail.Pair, error) {
	var elems []json.RawMessage
	if err := json.NewDecoder(r).Decode(&elems); err != nil {
		return Header{}, nil, fmt.Errorf("decoding report: %w", err)
	}
	if len(elems) == 0 {
		return Header{}, nil, fmt.Errorf("report has no header")
	}

	var header Header
	if err := json.Unmarshal(elems[0], &header); err != nil {
		return Header{}, nil, fmt.Errorf("decoding report header: %w", err)
	}

	if verify {
		sum, err := hashRaw(elems[1:])
		if err != nil {
			return Header{}, nil, err
		}
		if sum != header.Hash {
			return Header{}, nil, fmt.Errorf("%w: report says %q, contents are %q", trail.ErrHashMismatch, header.Hash, sum)
		}
	}

	var pairs []trail.Pair
	for i, raw := range elems[1:] {
		var track Track
		if err := json.Unmarshal(raw, &track); err != nil {
			return Header{}, nil, fmt.Errorf("decoding track %d: %w", i, err)
		}
		if len(track.Pairs) != track.Count {
			return Header{}, nil, fmt.Errorf("track %s: expected %d pairs, found %d",
				track.TrackInfo, track.Count, len(track.Pairs))
		}
		for _, p := range track.Pairs {
			if p.Origin != track.TrackInfo {
				return Header{}, nil, fmt.Errorf("pair %d is from track %s, not %s", p.Index, p.Origin, track.TrackInfo)
			}
			if p.Index != len(pairs) {
				return Header{}, nil, fmt.Errorf("track %s: expected pair %d, found pair %d", track.TrackInfo, len(pairs), p.Index)
			}
			pairs = append(pairs, p)
		}
	}

	if len(pairs) != header.Total {
		return Header{}, nil, fmt.Errorf("expected %d pairs in total, found %d", header.Total, len(pairs))
	}

	return header, pairs, nil
}

// Exporter writes a report of the run.
type Exporter struct{}

// Export implements trail.Exporter.
func (Exporter) Export(_ context.Context, params trail.ExportParams) error {
	return params.WriteAll("Report", ".json", func(w io.Writer) error {
		return Write(w, params.Run)
	})
}

// Write writes a report of the run's pairs to w.
func Write(w io.Writer, run *trail.Run) error {
	groups := run.ByTrack()

	elems := make([]json.RawMessage, 1, len(groups)+1)
	for _, tp := range groups {
		raw, err := json.Marshal(Track{
			Count:     len(tp.Pairs),
			TrackInfo: tp.Track,
			Pairs:     tp.Pairs,
		})
		if err != nil {
			return fmt.Errorf("encoding track %s: %w", tp.Track, err)
		}
		elems = append(elems, raw)
	}

	sum, err := hashRaw(elems[1:])
	if err != nil {
		return err
	}
	header, err := json.Marshal(Header{
		Total:   len(run.Pairs),
		Hash:    sum,
		RunID:   run.ID,
		Name:    run.Name,
		Created: run.Created,
	})
	if err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	elems[0] = header

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(elems)
}

// hashRaw returns the hex BLAKE3 sum of the compact form of each
// element, each followed by a newline.
func hashRaw(elems []json.RawMessage) (string, error) {
	h := blake3.New()
	var buf bytes.Buffer
	for i, raw := range elems {
		buf.Reset()
		if err := json.Compact(&buf, raw); err != nil {
			return "", fmt.Errorf("compacting track %d: %w", i, err)
		}
		buf.WriteByte('\n')
		if _, err := h.Write(buf.Bytes()); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

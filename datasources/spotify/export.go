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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
)

func init() {
	err := trail.RegisterDataSource(trail.DataSource{
		Name:        "json",
		Title:       "Spotify JSON",
		Description: "The listening history records of the songs paired with each track, as they were read",
		NewExporter: func() trail.Exporter { return new(JSONExporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}

	err = trail.RegisterDataSource(trail.DataSource{
		Name:        "txt",
		Title:       "Spotify URIs",
		Description: "The Spotify URIs of the songs paired with each track, one per line, for pasting into a playlist",
		NewExporter: func() trail.Exporter { return new(URIExporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}
}

// JSONExporter writes the original records of each track's songs.
type JSONExporter struct{}

// Export implements trail.Exporter.
func (JSONExporter) Export(_ context.Context, params trail.ExportParams) error {
	return params.WriteEach("", ".json", func(tp trail.TrackPairs, w io.Writer) error {
		songs := make([]trail.Song, len(tp.Pairs))
		for i, p := range tp.Pairs {
			songs[i] = p.Song
		}
		return WriteSongs(w, songs)
	})
}

// WriteSongs writes songs as a JSON array of listening history
// records. Songs that were read from a listening history are written
// exactly as they were read; others are written as extended
// streaming history records.
func WriteSongs(w io.Writer, songs []trail.Song) error {
	records := make([]json.RawMessage, 0, len(songs))
	for _, s := range songs {
		if len(s.Original) > 0 {
			records = append(records, s.Original)
			continue
		}
		rec, err := json.Marshal(newRecord(s))
		if err != nil {
			return fmt.Errorf("encoding song %d: %w", s.Index, err)
		}
		records = append(records, rec)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// newRecord makes an extended streaming history record for s.
func newRecord(s trail.Song) Record {
	ts := s.End.UTC().Format(time.RFC3339)
	ms := s.Played.Milliseconds()
	rec := Record{
		Timestamp:         &ts,
		MsPlayedExtended:  &ms,
		TrackNameExtended: &s.Name,
	}
	if s.Artist != "" {
		rec.AlbumArtistName = &s.Artist
	}
	if s.Album != "" {
		rec.AlbumName = &s.Album
	}
	if s.URI != "" {
		rec.TrackURI = &s.URI
	}
	if platform := s.Metadata.String("Platform"); platform != "" {
		rec.Platform = &platform
	}
	return rec
}

// URIExporter writes the URIs of each track's songs.
type URIExporter struct{}

// Export implements trail.Exporter.
func (URIExporter) Export(_ context.Context, params trail.ExportParams) error {
	return params.WriteEach("", ".txt", func(tp trail.TrackPairs, w io.Writer) error {
		return WriteURIs(w, tp.Pairs)
	})
}

// WriteURIs writes the song URI of each pair on its own line. It is
// an error if any song has no URI.
func WriteURIs(w io.Writer, pairs []trail.Pair) error {
	bw := bufio.NewWriter(w)
	for _, p := range pairs {
		if p.Song.URI == "" {
			return fmt.Errorf("%w: song %d (%s)", trail.ErrMissingURI, p.Song.Index, p.Song.Title())
		}
		if _, err := fmt.Fprintln(bw, p.Song.URI); err != nil {
			return err
		}
	}
	return bw.Flush()
}

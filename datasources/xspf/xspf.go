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

// Package xspf implements a data source for XML Shareable Playlist Format (https://xspf.org/).
// Playlists written by this package can be read back as a listening
// history: each track carries the time it was played in its annotation.
package xspf

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
)

func init() {
	err := trail.RegisterDataSource(trail.DataSource{
		Name:            "xspf",
		Title:           "XSPF playlist",
		Description:     "A .xspf playlist whose tracks are annotated with the time they were played; exports a playlist per track",
		NewSongImporter: func() trail.SongImporter { return new(FileImporter) },
		NewExporter:     func() trail.Exporter { return new(Exporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}
}

const namespace = "http://xspf.org/ns/0/"

// FileImporter implements the trail.SongImporter interface.
type FileImporter struct{}

// Recognize returns whether the input is supported.
func (FileImporter) Recognize(ctx context.Context, dirEntry trail.DirEntry) (trail.Recognition, error) {
	return trail.RecognizeExtensions(ctx, dirEntry, ".xspf")
}

// ImportSongs reads the tracks of every .xspf file in the input.
func (FileImporter) ImportSongs(ctx context.Context, dirEntry trail.DirEntry, params trail.ImportParams) ([]trail.Song, error) {
	files, err := dirEntry.Files(ctx, ".xspf")
	if err != nil {
		return nil, err
	}

	var songs []trail.Song
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file, err := dirEntry.Open(f)
		if err != nil {
			return nil, err
		}
		fileSongs, err := ReadSongs(file, len(songs), params.Usage)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		songs = append(songs, fileSongs...)
	}

	return songs, nil
}

// ReadSongs decodes the playlist from r. Every track needs a title,
// a creator, a played time (RFC 3339) in its annotation, and a
// duration in milliseconds. Song indices start at firstIndex.
func ReadSongs(r io.Reader, firstIndex int, usage trail.TimeUsage) ([]trail.Song, error) {
	var pl playlist
	if err := xml.NewDecoder(r).Decode(&pl); err != nil {
		return nil, fmt.Errorf("decoding XSPF: %w", err)
	}

	songs := make([]trail.Song, 0, len(pl.Tracks))
	for i, t := range pl.Tracks {
		song, err := t.song(firstIndex+i, usage)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		songs = append(songs, song)
	}

	return songs, nil
}

func (t track) song(index int, usage trail.TimeUsage) (trail.Song, error) {
	if t.Title == nil {
		return trail.Song{}, fmt.Errorf("missing song name in 'title'")
	}
	if t.Creator == nil {
		return trail.Song{}, fmt.Errorf("missing song artist in 'creator'")
	}
	if t.Annotation == nil {
		return trail.Song{}, fmt.Errorf("missing play time in 'annotation'")
	}
	if t.Duration == nil {
		return trail.Song{}, fmt.Errorf("missing play duration in 'duration'")
	}

	end, err := time.Parse(time.RFC3339, strings.TrimSpace(*t.Annotation))
	if err != nil {
		return trail.Song{}, fmt.Errorf("parsing play time: %w", err)
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(*t.Duration), 10, 64)
	if err != nil {
		return trail.Song{}, fmt.Errorf("parsing play duration: %w", err)
	}

	return trail.Song{
		Index:  index,
		Name:   strings.TrimSpace(*t.Title),
		Artist: strings.TrimSpace(*t.Creator),
		Album:  strings.TrimSpace(t.Album),
		URI:    strings.TrimSpace(t.Link),
		End:    end,
		Played: time.Duration(ms) * time.Millisecond,
		Usage:  usage,
	}, nil
}

// Exporter writes a playlist of the songs paired with each track.
type Exporter struct{}

// Export implements trail.Exporter.
func (Exporter) Export(_ context.Context, params trail.ExportParams) error {
	return params.WriteEach("", ".xspf", func(tp trail.TrackPairs, w io.Writer) error {
		return WritePlaylist(w, params.Output.Name+"_"+tp.Track.String(), tp.Pairs)
	})
}

// WritePlaylist writes a playlist called title of the songs of pairs.
func WritePlaylist(w io.Writer, title string, pairs []trail.Pair) error {
	pl := playlist{
		Version: "1",
		XMLNS:   namespace,
		Title:   title,
		Creator: "Songtrail",
		Tracks:  make([]track, 0, len(pairs)),
	}
	for _, p := range pairs {
		name, artist := p.Song.Name, p.Song.Artist
		played := p.Song.End.Format(time.RFC3339)
		ms := strconv.FormatInt(p.Song.Played.Milliseconds(), 10)
		pl.Tracks = append(pl.Tracks, track{
			Creator:    &artist,
			Title:      &name,
			Album:      p.Song.Album,
			Annotation: &played,
			Duration:   &ms,
			Link:       p.Song.URI,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(pl); err != nil {
		return fmt.Errorf("encoding XSPF: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

type playlist struct {
	XMLName xml.Name `xml:"playlist"`
	Version string   `xml:"version,attr"`
	XMLNS   string   `xml:"xmlns,attr"`
	Title   string   `xml:"title,omitempty"`
	Creator string   `xml:"creator,omitempty"`
	Tracks  []track  `xml:"trackList>track"`
}

type track struct {
	Creator    *string `xml:"creator"`
	Title      *string `xml:"title"`
	Album      string  `xml:"album,omitempty"`
	Annotation *string `xml:"annotation"`
	Duration   *string `xml:"duration"`
	Link       string  `xml:"link,omitempty"`
}

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

// Package spotify implements a data source for Spotify listening history,
// as found in the account data and extended streaming history downloads
// (https://www.spotify.com/account/privacy/).
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
)

func init() {
	err := trail.RegisterDataSource(trail.DataSource{
		Name:            "spotify",
		Title:           "Spotify listening history",
		Description:     "StreamingHistory*.json or Streaming_History_Audio_*.json files from a Spotify data download",
		NewSongImporter: func() trail.SongImporter { return new(FileImporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}
}

// FileImporter implements the trail.SongImporter interface.
type FileImporter struct{}

// Recognize returns the fraction of files in the input that look
// like Spotify listening history.
func (FileImporter) Recognize(ctx context.Context, dirEntry trail.DirEntry) (trail.Recognition, error) {
	all, err := dirEntry.Files(ctx)
	if err != nil {
		return trail.Recognition{}, err
	}
	if len(all) == 0 {
		return trail.Recognition{}, nil
	}
	files, err := historyFiles(ctx, dirEntry)
	if err != nil {
		return trail.Recognition{}, err
	}
	return trail.Recognition{Confidence: float64(len(files)) / float64(len(all))}, nil
}

// historyFiles returns the JSON files of the input that start with
// a listening history record.
func historyFiles(ctx context.Context, dirEntry trail.DirEntry) ([]trail.File, error) {
	jsonFiles, err := dirEntry.Files(ctx, ".json")
	if err != nil {
		return nil, err
	}
	var files []trail.File
	for _, f := range jsonFiles {
		head, err := dirEntry.Peek(f, peekSize)
		if err != nil {
			return nil, err
		}
		head = bytes.TrimSpace(head)
		if len(head) == 0 || head[0] != '[' {
			continue
		}
		if bytes.Contains(head, []byte(`"msPlayed"`)) || bytes.Contains(head, []byte(`"ms_played"`)) ||
			bytes.Equal(head, []byte("[]")) {
			files = append(files, f)
		}
	}
	return files, nil
}

const peekSize = 1024

// ImportSongs reads the songs of every history file in the input, in
// the order of the files and then of the records.
func (FileImporter) ImportSongs(ctx context.Context, dirEntry trail.DirEntry, params trail.ImportParams) ([]trail.Song, error) {
	files, err := historyFiles(ctx, dirEntry)
	if err != nil {
		return nil, err
	}

	var songs []trail.Song
	for _, f := range files {
		file, err := dirEntry.Open(f)
		if err != nil {
			return nil, err
		}
		fileSongs, err := ReadSongs(ctx, file, len(songs), params.Usage, params.Log)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		songs = append(songs, fileSongs...)
	}

	return songs, nil
}

// ReadSongs streams the records of a JSON array of listening history
// from r. Every record becomes a song, podcast episodes and records
// without any name included; the song's index is firstIndex plus the
// record's position in the array.
func ReadSongs(ctx context.Context, r io.Reader, firstIndex int, usage trail.TimeUsage, logger *zap.Logger) ([]trail.Song, error) {
	dec := json.NewDecoder(r)

	tkn, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decoding start of listening history: %w", err)
	}
	if delim, ok := tkn.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("listening history should be a JSON array, got %v", tkn)
	}

	var songs []trail.Song
	for i := 0; dec.More(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", i, err)
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", i, err)
		}
		song, err := rec.song(firstIndex+i, usage)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if song.Name == "" && logger != nil {
			logger.Debug("record has no track or episode name", zap.Int("record", i))
		}
		song.Original = raw
		songs = append(songs, song)
	}

	return songs, nil
}

// Record is a single play in a Spotify listening history. The
// account data download has only the first four fields; the extended
// streaming history has the rest.
type Record struct {
	EndTime    *string `json:"endTime,omitempty"`
	ArtistName *string `json:"artistName,omitempty"`
	TrackName  *string `json:"trackName,omitempty"`
	MsPlayed   *int64  `json:"msPlayed,omitempty"`

	Timestamp         *string `json:"ts,omitempty"`
	Username          *string `json:"username,omitempty"`
	Platform          *string `json:"platform,omitempty"`
	MsPlayedExtended  *int64  `json:"ms_played,omitempty"`
	ConnCountry       *string `json:"conn_country,omitempty"`
	IPAddr            *string `json:"ip_addr_decrypted,omitempty"`
	UserAgent         *string `json:"user_agent_decrypted,omitempty"`
	TrackNameExtended *string `json:"master_metadata_track_name,omitempty"`
	AlbumArtistName   *string `json:"master_metadata_album_artist_name,omitempty"`
	AlbumName         *string `json:"master_metadata_album_album_name,omitempty"`
	TrackURI          *string `json:"spotify_track_uri,omitempty"`
	EpisodeName       *string `json:"episode_name,omitempty"`
	EpisodeShowName   *string `json:"episode_show_name,omitempty"`
	EpisodeURI        *string `json:"spotify_episode_uri,omitempty"`
	ReasonStart       *string `json:"reason_start,omitempty"`
	ReasonEnd         *string `json:"reason_end,omitempty"`
	Shuffle           *bool   `json:"shuffle,omitempty"`
	Skipped           *bool   `json:"skipped,omitempty"`
	Offline           *bool   `json:"offline,omitempty"`
	OfflineTimestamp  *int64  `json:"offline_timestamp,omitempty"`
	Incognito         *bool   `json:"incognito_mode,omitempty"`
}

func (r Record) isEpisode() bool {
	return firstOf(r.TrackName, r.TrackNameExtended) == "" &&
		(r.EpisodeName != nil || r.EpisodeURI != nil)
}

func (r Record) song(index int, usage trail.TimeUsage) (trail.Song, error) {
	var end time.Time
	switch {
	case r.EndTime != nil:
		t, err := ParseTime(*r.EndTime)
		if err != nil {
			return trail.Song{}, err
		}
		end = t
	case r.Timestamp != nil:
		t, err := ParseTime(*r.Timestamp)
		if err != nil {
			return trail.Song{}, err
		}
		end = t
	default:
		return trail.Song{}, errors.New("'endTime' or 'ts' timestamp missing")
	}

	var ms int64
	switch {
	case r.MsPlayed != nil:
		ms = *r.MsPlayed
	case r.MsPlayedExtended != nil:
		ms = *r.MsPlayedExtended
	default:
		return trail.Song{}, errors.New("'msPlayed' duration missing")
	}

	name := firstOf(r.TrackName, r.TrackNameExtended)
	artist := firstOf(r.ArtistName, r.AlbumArtistName)
	uri := deref(r.TrackURI)
	if r.isEpisode() {
		name = deref(r.EpisodeName)
		artist = deref(r.EpisodeShowName)
		uri = deref(r.EpisodeURI)
	}

	meta := trail.Metadata{
		"Username":          deref(r.Username),
		"Platform":          deref(r.Platform),
		"Country":           deref(r.ConnCountry),
		"IP address":        deref(r.IPAddr),
		"User agent":        deref(r.UserAgent),
		"Start reason":      deref(r.ReasonStart),
		"End reason":        deref(r.ReasonEnd),
		"Offline timestamp": deref(r.OfflineTimestamp),
	}
	for key, val := range map[string]*bool{
		"Shuffle":   r.Shuffle,
		"Skipped":   r.Skipped,
		"Offline":   r.Offline,
		"Incognito": r.Incognito,
	} {
		if val != nil {
			meta[key] = *val
		}
	}
	if r.isEpisode() {
		meta["Episode"] = true
	}
	meta.Clean()
	if len(meta) == 0 {
		meta = nil
	}

	return trail.Song{
		Index:    index,
		Name:     name,
		Artist:   artist,
		Album:    deref(r.AlbumName),
		URI:      uri,
		End:      end,
		Played:   time.Duration(ms) * time.Millisecond,
		Usage:    usage,
		Metadata: meta,
	}, nil
}

// timeFormats are the formats of times in listening histories. Times
// without an offset are in UTC.
var timeFormats = []string{
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseTime parses a time from a listening history.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, format := range timeFormats {
		if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format: %q", s)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func firstOf(vals ...*string) string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

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

// Package enrich looks up songs on the Spotify Web API to fill in
// the URIs (and albums) that a listening history does not have, so
// that the songs can be exported as a list of URIs.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/songtrail/songtrail/trail"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/text/cases"
)

// DefaultThreshold is the similarity a search result needs to be
// accepted as the song.
const DefaultThreshold = 0.8

// Config configures an Enricher.
type Config struct {
	ClientID     string
	ClientSecret string

	// RequestsPerSecond limits the request rate to the API.
	RequestsPerSecond float64

	// Threshold is the minimum Jaro-Winkler similarity between
	// "name - artist" of the song and of a search result, from 0
	// to 1. Defaults to DefaultThreshold.
	Threshold float64

	// Override the Spotify endpoints (for tests).
	TokenURL string
	APIURL   string
}

// Enricher fills in missing song URIs.
type Enricher struct {
	client    *spotify.Client
	threshold float64
	log       *zap.Logger

	// results of previous searches, by query
	cache map[string]*match
}

type match struct {
	uri, album string
	score      float64
}

// ErrNoCredentials is returned when the client ID or secret is missing.
var ErrNoCredentials = errors.New("missing Spotify client ID or secret")

// New returns an Enricher that is authenticated with the client
// credentials flow. It gets a token right away, so that bad
// credentials fail here instead of on every song.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Enricher, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNoCredentials
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = spotifyauth.TokenURL
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// the oauth2 package uses this client for token requests and as
	// the transport under the authorized client
	base := &http.Client{Transport: NewRateLimitedRoundTripper(http.DefaultTransport, cfg.RequestsPerSecond, 1)}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	if _, err := creds.Token(ctx); err != nil {
		return nil, fmt.Errorf("authenticating with Spotify: %w", err)
	}

	var opts []spotify.ClientOption
	if cfg.APIURL != "" {
		apiURL := cfg.APIURL
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		opts = append(opts, spotify.WithBaseURL(apiURL))
	}

	return &Enricher{
		client:    spotify.New(creds.Client(ctx), opts...),
		threshold: cfg.Threshold,
		log:       logger,
		cache:     make(map[string]*match),
	}, nil
}

// Songs returns a copy of songs in which each named song without a URI has
// the URI of its best search result, if that result is similar
// enough. An album is filled in too, if the song has none. Failed
// searches are logged and skipped, except authorization failures,
// which are returned. It also returns how many songs were changed.
func (e *Enricher) Songs(ctx context.Context, songs []trail.Song) ([]trail.Song, int, error) {
	out := make([]trail.Song, len(songs))
	copy(out, songs)

	var found int
	for i, s := range out {
		if s.URI != "" || s.Name == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		m, err := e.lookup(ctx, s)
		if err != nil {
			if isAuthError(err) {
				return nil, 0, fmt.Errorf("searching for %s: %w", s.Title(), err)
			}
			e.log.Warn("song search failed",
				zap.Int("song", s.Index),
				zap.String("title", s.Title()),
				zap.Error(err))
			continue
		}
		if m == nil {
			e.log.Debug("no similar search result",
				zap.Int("song", s.Index),
				zap.String("title", s.Title()))
			continue
		}

		out[i].URI = m.uri
		if out[i].Album == "" {
			out[i].Album = m.album
		}
		found++
		e.log.Debug("found song",
			zap.Int("song", s.Index),
			zap.String("title", s.Title()),
			zap.String("uri", m.uri),
			zap.Float64("similarity", m.score))
	}

	e.log.Info("looked up songs without URIs", zap.Int("found", found))
	return out, found, nil
}

// Pairs is like Songs, for the songs of pairs.
func (e *Enricher) Pairs(ctx context.Context, pairs []trail.Pair) ([]trail.Pair, int, error) {
	songs := make([]trail.Song, len(pairs))
	for i, p := range pairs {
		songs[i] = p.Song
	}
	songs, found, err := e.Songs(ctx, songs)
	if err != nil {
		return nil, 0, err
	}
	out := make([]trail.Pair, len(pairs))
	for i, p := range pairs {
		p.Song = songs[i]
		out[i] = p
	}
	return out, found, nil
}

// lookup returns the most similar search result for s, or nil if
// no result is similar enough.
func (e *Enricher) lookup(ctx context.Context, s trail.Song) (*match, error) {
	query := Query(s)
	if m, ok := e.cache[query]; ok {
		return m, nil
	}

	results, err := e.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(searchLimit))
	if err != nil {
		return nil, err
	}

	var best *match
	if results.Tracks != nil {
		want := s.Name + " - " + s.Artist
		for _, t := range results.Tracks.Tracks {
			var artist string
			if len(t.Artists) > 0 {
				artist = t.Artists[0].Name
			}
			score := Similarity(want, t.Name+" - "+artist)
			if score < e.threshold || (best != nil && score <= best.score) {
				continue
			}
			best = &match{uri: string(t.URI), album: t.Album.Name, score: score}
		}
	}

	e.cache[query] = best
	return best, nil
}

const searchLimit = 5

// Query returns the search query for s.
func Query(s trail.Song) string {
	q := "track:" + s.Name
	if s.Artist != "" {
		q += " artist:" + s.Artist
	}
	return q
}

// Similarity returns the Jaro-Winkler similarity of a and b, ignoring case.
func Similarity(a, b string) float64 {
	fold := cases.Fold()
	return strutil.Similarity(fold.String(a), fold.String(b), metrics.NewJaroWinkler())
}

func isAuthError(err error) bool {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	var tokenErr *oauth2.RetrieveError
	return errors.As(err, &tokenErr)
}

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

// Package sqlite implements a data source for SQLite databases of
// runs. Each export adds a database next to the other output files;
// a database can be read back to export its latest run again.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 driver
	"github.com/songtrail/songtrail/trail"
	"go.uber.org/zap"
)

func init() {
	err := trail.RegisterDataSource(trail.DataSource{
		Name:            "sqlite",
		Title:           "SQLite database",
		Description:     "A database with tables of runs, tracks, and pairs",
		NewPairImporter: func() trail.PairImporter { return new(FileImporter) },
		NewExporter:     func() trail.Exporter { return new(Exporter) },
	})
	if err != nil {
		trail.Log.Fatal("registering data source", zap.Error(err))
	}
}

//go:embed migrations/*.sql
var migrations embed.FS

// Open opens (creating if needed) the database at dbPath and
// migrates its schema to the latest version.
func Open(dbPath string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := migrateUp(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrateUp(db *sql.DB, logger *zap.Logger) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	// not closing m, since that would close db too
	if logger != nil {
		m.Log = migrateLogger{logger.Named("migrate")}
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

type migrateLogger struct{ *zap.Logger }

func (l migrateLogger) Printf(format string, v ...any) {
	l.Sugar().Debugf(format, v...)
}

func (l migrateLogger) Verbose() bool { return false }

// Exporter writes the run to a new database.
type Exporter struct{}

// Export implements trail.Exporter.
func (Exporter) Export(ctx context.Context, params trail.ExportParams) error {
	dbPath, err := params.Output.UniquePath("Songs", ".db")
	if err != nil {
		return err
	}
	db, err := Open(dbPath, params.Log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := SaveRun(ctx, db, params.Run); err != nil {
		return err
	}
	if params.Log != nil {
		params.Log.Info("wrote file", zap.String("path", dbPath), zap.Int("pairs", len(params.Run.Pairs)))
	}
	return nil
}

// SaveRun inserts the run, its tracks, and its pairs in a single
// transaction.
func SaveRun(ctx context.Context, db *sql.DB, run *trail.Run) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, created, pairs, average_accuracy_sec) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Name, formatTime(run.Created), len(run.Pairs), trail.AverageAccuracy(run.Pairs))
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, t := range run.Tracks {
		var start, end *string
		if len(t.Points) > 0 {
			s, e := formatTime(t.Start()), formatTime(t.End())
			start, end = &s, &e
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tracks (run_id, track_index, name, type, points, start_time, end_time) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, t.Info.Index, t.Info.Name, t.Info.Type.String(), len(t.Points), start, end)
		if err != nil {
			return fmt.Errorf("inserting track %s: %w", t.Info, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pairs
		(run_id, pair_index, song_index, song_name, artist, album, uri, song_end, played_ms, time_usage,
		 point_index, point_track, latitude, longitude, elevation, point_time, predicted, accuracy_sec,
		 origin_index, origin_name, origin_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range run.Pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := stmt.ExecContext(ctx,
			run.ID, p.Index, p.Song.Index, p.Song.Name, p.Song.Artist, p.Song.Album, p.Song.URI,
			formatTime(p.Song.End), p.Song.Played.Milliseconds(), p.Song.Usage.String(),
			p.Point.Index, p.Point.Track, p.Point.Location.Latitude, p.Point.Location.Longitude,
			p.Point.Elevation, formatTime(p.Point.Time), p.Point.Predicted, p.AccuracySeconds(),
			p.Origin.Index, p.Origin.Name, p.Origin.Type.String())
		if err != nil {
			return fmt.Errorf("inserting pair %d: %w", p.Index, err)
		}
	}

	return tx.Commit()
}

// FileImporter implements the trail.PairImporter interface.
type FileImporter struct{}

var sqliteHeader = []byte("SQLite format 3\x00")

// Recognize returns whether the input is a single SQLite database.
func (FileImporter) Recognize(ctx context.Context, dirEntry trail.DirEntry) (trail.Recognition, error) {
	files, err := dirEntry.Files(ctx)
	if err != nil {
		return trail.Recognition{}, err
	}
	if len(files) != 1 {
		return trail.Recognition{}, nil
	}
	head, err := dirEntry.Peek(files[0], int64(len(sqliteHeader)))
	if err != nil {
		return trail.Recognition{}, err
	}
	if bytes.Equal(head, sqliteHeader) {
		return trail.Recognition{Confidence: 1}, nil
	}
	return trail.Recognition{}, nil
}

// ImportPairs reads the pairs of the latest run in the database.
// The database must be a file on disk.
func (FileImporter) ImportPairs(ctx context.Context, dirEntry trail.DirEntry, params trail.ImportParams) ([]trail.Pair, error) {
	db, err := sql.Open("sqlite3", dirEntry.FullPath()+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	var runID string
	err = db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY rowid DESC LIMIT 1`).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("database has no runs")
	}
	if err != nil {
		return nil, fmt.Errorf("finding latest run: %w", err)
	}
	if params.Log != nil {
		params.Log.Debug("reading run from database", zap.String("run", runID))
	}
	return LoadPairs(ctx, db, runID)
}

// LoadPairs reads the pairs of a run, in order of their index.
func LoadPairs(ctx context.Context, db *sql.DB, runID string) ([]trail.Pair, error) {
	rows, err := db.QueryContext(ctx, `SELECT
		pair_index, song_index, song_name, artist, album, uri, song_end, played_ms, time_usage,
		point_index, point_track, latitude, longitude, elevation, point_time, predicted,
		origin_index, origin_name, origin_type
		FROM pairs WHERE run_id=? ORDER BY pair_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying pairs: %w", err)
	}
	defer rows.Close()

	var pairs []trail.Pair
	for rows.Next() {
		var (
			p                  trail.Pair
			artist, album, uri sql.NullString
			elevation          sql.NullFloat64
			songEnd, pointTime string
			usage, originType  string
			playedMS           int64
		)
		err := rows.Scan(&p.Index, &p.Song.Index, &p.Song.Name, &artist, &album, &uri,
			&songEnd, &playedMS, &usage,
			&p.Point.Index, &p.Point.Track, &p.Point.Location.Latitude, &p.Point.Location.Longitude,
			&elevation, &pointTime, &p.Point.Predicted,
			&p.Origin.Index, &p.Origin.Name, &originType)
		if err != nil {
			return nil, fmt.Errorf("scanning pair: %w", err)
		}

		p.Song.Artist, p.Song.Album, p.Song.URI = artist.String, album.String, uri.String
		p.Point.Elevation = elevation.Float64
		p.Song.Played = time.Duration(playedMS) * time.Millisecond
		if p.Song.End, err = parseTime(songEnd); err != nil {
			return nil, fmt.Errorf("pair %d: song end: %w", p.Index, err)
		}
		if p.Point.Time, err = parseTime(pointTime); err != nil {
			return nil, fmt.Errorf("pair %d: point time: %w", p.Index, err)
		}
		if p.Song.Usage, err = trail.ParseTimeUsage(usage); err != nil {
			return nil, fmt.Errorf("pair %d: %w", p.Index, err)
		}
		if p.Origin.Type, err = trail.ParseTrackType(originType); err != nil {
			return nil, fmt.Errorf("pair %d: %w", p.Index, err)
		}

		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

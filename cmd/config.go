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


package stcmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/songtrail/songtrail/trail"
	"gopkg.in/yaml.v3"
)

// Config configures songtrail. Command line flags override it.
type Config struct {
	// The time zone times are displayed in: "UTC", "Local", an
	// IANA name like "Europe/Berlin", or "auto" for the zone at
	// the first GPS point.
	DisplayZone string `json:"display_zone,omitempty" yaml:"display_zone" validate:"display_zone"`

	// Whether a song's time is when it ended ("end") or started ("start").
	TimeUsage string `json:"time_usage,omitempty" yaml:"time_usage" validate:"omitempty,oneof=end start"`

	// Answers the track selection menu without asking.
	Tracks string `json:"tracks,omitempty" yaml:"tracks"`

	Predict     bool `json:"predict,omitempty" yaml:"predict"`
	AutoPredict bool `json:"auto_predict,omitempty" yaml:"auto_predict"`

	// The export formats to write, by data source name.
	Formats []string `json:"formats,omitempty" yaml:"formats" validate:"dive,required,export_format"`

	// Where output files go. Defaults to the folder of the GPS input.
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir"`

	WaypointName        string `json:"waypoint_name,omitempty" yaml:"waypoint_name"`
	WaypointDescription string `json:"waypoint_description,omitempty" yaml:"waypoint_description"`

	Spotify SpotifyConfig `json:"spotify,omitzero" yaml:"spotify"`

	// Nil means true.
	VerifyHash *bool `json:"verify_hash,omitempty" yaml:"verify_hash"`
}

// SpotifyConfig holds credentials for looking up missing song URIs.
type SpotifyConfig struct {
	ClientID          string  `json:"client_id,omitempty" yaml:"client_id"`
	ClientSecret      string  `json:"client_secret,omitempty" yaml:"client_secret"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second" validate:"gte=0"`
}

// DefaultFormats are written when the config names none.
var DefaultFormats = []string{"gpx"}

// ShouldVerifyHash reports whether report hashes are checked on import.
func (cfg Config) ShouldVerifyHash() bool {
	return cfg.VerifyHash == nil || *cfg.VerifyHash
}

// Usage returns the configured time usage.
func (cfg Config) Usage() (trail.TimeUsage, error) {
	return trail.ParseTimeUsage(cfg.TimeUsage)
}

// Validate checks the config for errors.
func (cfg Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("display_zone", isDisplayZone); err != nil {
		return err
	}
	if err := v.RegisterValidation("export_format", isExportFormat); err != nil {
		return err
	}
	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: invalid value %q (%s)", fe.Namespace(), fmt.Sprint(fe.Value()), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func isDisplayZone(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	for _, special := range []string{"", "UTC", "Local", trail.ZoneAuto} {
		if strings.EqualFold(name, special) {
			return true
		}
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

func isExportFormat(fl validator.FieldLevel) bool {
	ds, err := trail.GetDataSource(fl.Field().String())
	return err == nil && ds.NewExporter != nil
}

// LoadConfig reads the config file at cfgPath. YAML is used for
// files ending in .yaml or .yml, JSON otherwise. If the file does
// not exist and cfgPath is the default path, the default config
// is returned.
func LoadConfig(cfgPath string) (Config, error) {
	var cfg Config
	cfgBytes, err := os.ReadFile(cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && cfgPath == DefaultConfigFilePath() {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(cfgPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(cfgBytes, &cfg)
	default:
		err = json.Unmarshal(cfgBytes, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("decoding config %s: %w", cfgPath, err)
	}
	return cfg, nil
}

// Environment variables that supply Spotify credentials.
const (
	EnvSpotifyID     = "SPOTIFY_ID"
	EnvSpotifySecret = "SPOTIFY_SECRET"
)

// ApplyEnv fills empty Spotify credentials from the environment or,
// failing that, from the dotenv file at envFile. A missing dotenv
// file is not an error. The process environment is not modified.
func (cfg *Config) ApplyEnv(envFile string) error {
	fileEnv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", envFile, err)
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return fileEnv[key]
	}
	if cfg.Spotify.ClientID == "" {
		cfg.Spotify.ClientID = lookup(EnvSpotifyID)
	}
	if cfg.Spotify.ClientSecret == "" {
		cfg.Spotify.ClientSecret = lookup(EnvSpotifySecret)
	}
	return nil
}

// DefaultConfigFilePath returns the path of the config file used
// when none is given.
func DefaultConfigFilePath() string {
	confDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "songtrail.json"
		}
		return filepath.Join(home, ".songtrail", "config.json")
	}
	return filepath.Join(confDir, "songtrail", "config.json")
}

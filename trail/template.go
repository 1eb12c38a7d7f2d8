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
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// Default templates for waypoint names and descriptions.
const (
	DefaultNameTemplate        = `{{ .Song.Name }}`
	DefaultDescriptionTemplate = `Ended here, at {{ .SongTime.Format "2006-01-02 15:04:05 -07:00" }}
{{- with .Song.Artist }}
Artist: {{ . }}{{ end }}
{{- with .Song.Album }}
Album: {{ . }}{{ end }}
{{- if .Song.Played }}
Played for {{ .Song.Played }}{{ end }}
{{- if .Point.Predicted }}
Point Predicted{{ end }}`
)

// Templates renders the text of exported waypoints.
type Templates struct {
	name, description *template.Template
	zone              *time.Location
}

// NewTemplates parses the name and description templates. Empty
// templates are replaced by the defaults. Times given to the
// templates are in zone (UTC if nil).
func NewTemplates(name, description string, zone *time.Location) (*Templates, error) {
	if name == "" {
		name = DefaultNameTemplate
	}
	if description == "" {
		description = DefaultDescriptionTemplate
	}
	if zone == nil {
		zone = time.UTC
	}
	nameTpl, err := newTemplate("name").Parse(name)
	if err != nil {
		return nil, fmt.Errorf("parsing waypoint name template: %w", err)
	}
	descTpl, err := newTemplate("description").Parse(description)
	if err != nil {
		return nil, fmt.Errorf("parsing waypoint description template: %w", err)
	}
	return &Templates{name: nameTpl, description: descTpl, zone: zone}, nil
}

func newTemplate(tplName string) *template.Template {
	tpl := template.New(tplName).Option("missingkey=zero")

	// add sprig library
	tpl.Funcs(sprig.TxtFuncMap())

	tpl.Funcs(template.FuncMap{
		"seconds": func(d time.Duration) int64 { return int64(d.Round(time.Second).Seconds()) },
	})

	return tpl
}

// WaypointData is the data given to waypoint templates.
type WaypointData struct {
	Pair  Pair
	Song  Song
	Point Point
	Track TrackInfo

	// SongTime and PointTime are in the display zone.
	SongTime  time.Time
	PointTime time.Time

	// LocalSongTime is the song's time at the UTC offset the
	// point was recorded with.
	LocalSongTime time.Time

	Accuracy time.Duration
}

func (t *Templates) data(p Pair) WaypointData {
	return WaypointData{
		Pair:          p,
		Song:          p.Song,
		Point:         p.Point,
		Track:         p.Origin,
		SongTime:      p.Song.Time().In(t.zone),
		PointTime:     p.Point.Time.In(t.zone),
		LocalSongTime: p.Song.Time().In(p.Point.Time.Location()),
		Accuracy:      p.Accuracy(),
	}
}

// Name renders the waypoint name of p.
func (t *Templates) Name(p Pair) (string, error) {
	return execute(t.name, t.data(p))
}

// Description renders the waypoint description of p.
func (t *Templates) Description(p Pair) (string, error) {
	return execute(t.description, t.data(p))
}

func execute(tpl *template.Template, data WaypointData) (string, error) {
	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("executing %s template: %w", tpl.Name(), err)
	}
	return strings.TrimSpace(sb.String()), nil
}

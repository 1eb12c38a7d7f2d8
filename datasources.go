//go:generate go run generator.go

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


package main

import (
	_ "github.com/songtrail/songtrail/datasources/accplot"
	_ "github.com/songtrail/songtrail/datasources/csv"
	_ "github.com/songtrail/songtrail/datasources/geojson"
	_ "github.com/songtrail/songtrail/datasources/googlelocation"
	_ "github.com/songtrail/songtrail/datasources/gpx"
	_ "github.com/songtrail/songtrail/datasources/jsonreport"
	_ "github.com/songtrail/songtrail/datasources/kmlgx"
	_ "github.com/songtrail/songtrail/datasources/nmea"
	_ "github.com/songtrail/songtrail/datasources/spotify"
	_ "github.com/songtrail/songtrail/datasources/sqlite"
	_ "github.com/songtrail/songtrail/datasources/xspf"
)

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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Output decides where exported files are written.
type Output struct {
	// Dir is the folder to write files into.
	Dir string

	// Name is the first part of every file name.
	Name string
}

// Path returns "<dir>/<name>_<suffix><ext>", with ext including its dot.
func (o Output) Path(suffix, ext string) string {
	base := o.Name
	if suffix != "" {
		base += "_" + sanitizeFilename(suffix)
	}
	return filepath.Join(o.Dir, base+ext)
}

// UniquePath returns Path(suffix, ext) if no file exists there;
// otherwise it appends "_2", "_3", and so on until the path is free.
func (o Output) UniquePath(suffix, ext string) (string, error) {
	p := o.Path(suffix, ext)
	for i := 2; ; i++ {
		_, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking output path %s: %w", p, err)
		}
		p = strings.TrimSuffix(o.Path(suffix, ext), ext) + fmt.Sprintf("_%d", i) + ext
	}
}

// WriteFile creates a new file at UniquePath(suffix, ext) and writes
// to it with write. The file is removed if write fails. It returns
// the path of the file.
func (o Output) WriteFile(suffix, ext string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output folder: %w", err)
	}
	p, err := o.UniquePath(suffix, ext)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", p, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(p)
		return "", fmt.Errorf("writing %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return "", fmt.Errorf("closing %s: %w", p, err)
	}
	return p, nil
}

// sanitizeFilename replaces characters that are not safe in file names.
func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

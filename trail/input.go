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
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/maruel/natural"
	"github.com/mholt/archives"
)

// DirEntry is an input given by the user: a file, a folder, or an
// archive. It carries the file system it can be read from.
type DirEntry struct {
	fs.DirEntry

	// FS is a file system rooted at the input. For a regular file
	// it is the file's folder.
	FS fs.FS

	// FSRoot is the OS path the FS is rooted at.
	FSRoot string

	// Filename is the path of the entry within FS: "." for
	// folders and archives, or the name of a regular file.
	// Walks must start here, not at ".".
	Filename string
}

// OpenInput opens the file, folder, or archive at fpath. Folders and
// archives are the root of the input's file system; a regular file
// is rooted at its parent folder, with Filename set to its name.
func OpenInput(ctx context.Context, fpath string) (DirEntry, error) {
	fsRoot, filenameInsideFS := fpath, "."

	fsys, err := archives.FileSystem(ctx, fsRoot, nil)
	if err != nil {
		return DirEntry{}, fmt.Errorf("opening %s: %w", fpath, err)
	}
	info, err := fs.Stat(fsys, filenameInsideFS)
	if err != nil {
		return DirEntry{}, fmt.Errorf("could not stat input: %s: %w", fpath, err)
	}
	if !info.IsDir() {
		fsRoot, filenameInsideFS = filepath.Split(fsRoot)
		if fsRoot == "" {
			fsRoot = "."
		}
		// recreate the file system, since the FileFS is now a DirFS
		fsys, err = archives.FileSystem(ctx, fsRoot, nil)
		if err != nil {
			return DirEntry{}, fmt.Errorf("recreating file system at %s: %w", fsRoot, err)
		}
	}

	return DirEntry{
		DirEntry: fs.FileInfoToDirEntry(info),
		FS:       fsys,
		FSRoot:   fsRoot,
		Filename: filenameInsideFS,
	}, nil
}

// BaseName returns the base name of the input without its extension.
// It is used to name output files.
func (d DirEntry) BaseName() string {
	base := path.Base(d.Filename)
	if d.Filename == "." || d.Filename == "" {
		base = filepath.Base(d.FSRoot)
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FullPath returns the OS path of the entry, including the root of
// the file system if it is one of the known archives types.
func (d DirEntry) FullPath() string {
	var root string
	switch fsys := d.FS.(type) {
	case archives.FileFS:
		return fsys.Path
	case archives.DirFS:
		root = string(fsys)
	case *archives.ArchiveFS:
		root = fsys.Path
	default:
		root = d.FSRoot
	}
	return filepath.Join(root, filepath.FromSlash(d.Filename))
}

// File is a file found within an input.
type File struct {
	// Path is the path of the file within the input's FS.
	Path string

	// Name is the base name of the file.
	Name string
}

// Files returns the non-hidden files in the input with one of the
// given extensions (case-insensitive, with dot), in natural order so
// that "history2.json" comes before "history10.json". If no extensions
// are given, all files are returned.
func (d DirEntry) Files(ctx context.Context, exts ...string) ([]File, error) {
	var files []File
	err := fs.WalkDir(d.FS, d.Filename, func(fpath string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if fpath != d.Filename && strings.HasPrefix(de.Name(), ".") {
			// skip hidden files & folders
			if de.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if de.IsDir() {
			return nil // traverse into subdirectories
		}
		if len(exts) > 0 && !slices.Contains(exts, strings.ToLower(path.Ext(de.Name()))) {
			return nil
		}
		files = append(files, File{Path: fpath, Name: de.Name()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", d.FSRoot, err)
	}

	slices.SortStableFunc(files, func(a, b File) int {
		switch {
		case natural.Less(a.Path, b.Path):
			return -1
		case natural.Less(b.Path, a.Path):
			return 1
		}
		return 0
	})

	return files, nil
}

// Open opens a file within the input.
func (d DirEntry) Open(f File) (fs.File, error) {
	file, err := d.FS.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s in %s: %w", f.Path, d.FSRoot, err)
	}
	return file, nil
}

// Peek returns up to n bytes from the start of f.
func (d DirEntry) Peek(f File, n int64) ([]byte, error) {
	file, err := d.Open(f)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, n))
}

// Recognition indicates how well, if at all, an importer
// recognizes an input.
type Recognition struct {
	// 0 <= Confidence <= 1
	Confidence float64 `json:"confidence"`
}

// RecognizeExtensions returns a recognition whose confidence is
// the fraction of files in the input with one of the extensions.
func RecognizeExtensions(ctx context.Context, d DirEntry, exts ...string) (Recognition, error) {
	all, err := d.Files(ctx)
	if err != nil {
		return Recognition{}, err
	}
	if len(all) == 0 {
		return Recognition{}, nil
	}
	var matched int
	for _, f := range all {
		if slices.Contains(exts, strings.ToLower(path.Ext(f.Name))) {
			matched++
		}
	}
	return Recognition{Confidence: float64(matched) / float64(len(all))}, nil
}

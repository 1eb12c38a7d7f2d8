//go:build generator
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
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dave/jennifer/jen"
)

const modulePath = "github.com/songtrail/songtrail"

// generates datasources.go, which imports every data source package
// so that it registers itself
func main() {
	header, err := licenseHeader("main.go")
	if err != nil {
		genFailed(err)
	}

	source := jen.NewFile("main")
	source.HeaderComment("//go:generate go run generator.go")
	source.PackageComment(header)

	list, err := datasources("datasources")
	if err != nil {
		genFailed(err)
	}
	if len(list) == 0 {
		fmt.Fprintf(os.Stderr, "** no data sources found\n")
		return
	}
	for _, ds := range list {
		source.Anon(ds)
	}

	if err := source.Save("datasources.go"); err != nil {
		genFailed(err)
	}
}

// datasources returns the import paths of the packages in dir that
// have non-test Go files.
func datasources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var list []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		goFiles, err := filepath.Glob(filepath.Join(dir, e.Name(), "*.go"))
		if err != nil {
			return nil, err
		}
		if slices.ContainsFunc(goFiles, func(f string) bool { return !strings.HasSuffix(f, "_test.go") }) {
			list = append(list, path.Join(modulePath, dir, e.Name()))
		}
	}
	slices.Sort(list)
	return list, nil
}

// licenseHeader returns the block comment at the top of file.
func licenseHeader(file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	src := string(data)
	end := strings.Index(src, "*/")
	if !strings.HasPrefix(src, "/*") || end < 0 {
		return "", fmt.Errorf("%s does not start with a license header", file)
	}
	return src[:end+len("*/")], nil
}

func genFailed(err error) {
	fmt.Fprintf(os.Stderr, "generating datasources.go failed: %s", err)
	os.Exit(1)
}

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

	"go.uber.org/zap"
)

// Cluster is a group of pairs whose points have the same coordinates.
// It usually means songs were played more often than points were
// recorded, so several songs collapsed onto one point.
type Cluster struct {
	Location Coordinate
	Pairs    []Pair
}

// Indices returns the pair indices of the cluster.
func (c Cluster) Indices() []int {
	idx := make([]int, len(c.Pairs))
	for i, p := range c.Pairs {
		idx[i] = p.Index
	}
	return idx
}

func (c Cluster) String() string {
	members := make([]string, len(c.Pairs))
	for i, p := range c.Pairs {
		members[i] = fmt.Sprintf("%s (%d)", p.Song.Name, p.Index)
	}
	return strings.Join(members, ", ")
}

// FindDuplicates groups pairs by exact point coordinates and returns
// every group with two or more pairs. Clusters are ordered by the
// first appearance of their coordinates, and pairs within a cluster
// keep their order.
func FindDuplicates(pairs []Pair) []Cluster {
	groups := make(map[Coordinate]int)
	var all []Cluster
	for _, p := range pairs {
		i, ok := groups[p.Point.Location]
		if !ok {
			i = len(all)
			groups[p.Point.Location] = i
			all = append(all, Cluster{Location: p.Point.Location})
		}
		all[i].Pairs = append(all[i].Pairs, p)
	}

	var dupes []Cluster
	for _, c := range all {
		if len(c.Pairs) > 1 {
			dupes = append(dupes, c)
		}
	}
	return dupes
}

// ReportDuplicates logs each cluster on its own line.
func ReportDuplicates(clusters []Cluster, logger *zap.Logger) {
	if logger == nil {
		return
	}
	for _, c := range clusters {
		logger.Info("duplicate cluster",
			zap.Stringer("location", c.Location),
			zap.Int("size", len(c.Pairs)),
			zap.Ints("indices", c.Indices()),
			zap.String("songs", c.String()))
	}
}

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
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Accuracies returns the accuracy of each pair in seconds.
func Accuracies(pairs []Pair) []float64 {
	acc := make([]float64, len(pairs))
	for i, p := range pairs {
		acc[i] = p.AccuracySeconds()
	}
	return acc
}

// MeanAccuracy returns the mean accuracy of the pairs in seconds.
// It is 0 if there are no pairs.
func MeanAccuracy(pairs []Pair) float64 {
	if len(pairs) == 0 {
		return 0
	}
	return stat.Mean(Accuracies(pairs), nil)
}

// AverageAccuracy returns MeanAccuracy rounded to the nearest second.
func AverageAccuracy(pairs []Pair) int64 {
	return int64(math.Round(MeanAccuracy(pairs)))
}

// ReportAccuracy logs the average accuracy of the pairs.
func ReportAccuracy(pairs []Pair, logger *zap.Logger) int64 {
	avg := AverageAccuracy(pairs)
	if logger != nil {
		logger.Info("song-point correlation accuracy",
			zap.Int("pairs", len(pairs)),
			zap.Int64("average_sec", avg))
	}
	return avg
}

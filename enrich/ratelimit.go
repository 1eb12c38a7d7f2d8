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

package enrich

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// NewRateLimitedRoundTripper adds rate limiting to rt: at most
// requestsPerSecond requests are sent per second, with bursts of up
// to burst requests. If requestsPerSecond is not positive, minInterval
// is used between requests.
func NewRateLimitedRoundTripper(rt http.RoundTripper, requestsPerSecond float64, burst int) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Every(minInterval)
	}
	if burst < 1 {
		burst = 1
	}
	return rateLimitedRoundTripper{
		RoundTripper: rt,
		limiter:      rate.NewLimiter(limit, burst),
	}
}

type rateLimitedRoundTripper struct {
	http.RoundTripper
	limiter *rate.Limiter
}

func (rt rateLimitedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := rt.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return rt.RoundTripper.RoundTrip(req)
}

const minInterval = 100 * time.Millisecond

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
	"context"
	"os"
	"os/signal"

	"github.com/songtrail/songtrail/trail"
)

// trapSignals creates signal handlers for all applicable signals for
// this system. Signals that stop the run call cancel.
func trapSignals(cancel context.CancelFunc) {
	trapSignalsCrossPlatform(cancel)
	trapSignalsPosix(cancel)
}

// trapSignalsCrossPlatform captures SIGINT, which cancels the run so
// that partly written output is cleaned up. A second interrupt signal
// will exit the process immediately.
func trapSignalsCrossPlatform(cancel context.CancelFunc) {
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)

		for i := 0; true; i++ {
			<-sig

			if i > 0 {
				_ = trail.Log.Sync()
				trail.Log.Fatal("SIGINT: force quit")
			}

			trail.Log.Warn("SIGINT: stopping")
			cancel()
		}
	}()
}

//go:build !windows && !plan9 && !nacl

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
	"golang.org/x/sys/unix"
)

// trapSignalsPosix captures POSIX-only signals.
func trapSignalsPosix(cancel context.CancelFunc) {
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, unix.SIGTERM, unix.SIGHUP, unix.SIGQUIT)

		for sig := range sigchan {
			switch sig {
			case unix.SIGQUIT:
				trail.Log.Warn("SIGQUIT: quitting process immediately")
				os.Exit(2) //nolint:mnd

			case unix.SIGTERM:
				trail.Log.Warn("SIGTERM: stopping")
				cancel()

			case unix.SIGHUP:
				trail.Log.Warn("SIGHUP: terminal closed, stopping")
				cancel()
			}
		}
	}()
}

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
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the main process log. All named logs should be derivatives of
// this logger. All log emissions should be sent through this logger or
// one of its derivatives.
var Log = newLogger()

// LogLevel controls the minimum level of the console log. It can be
// changed at any time (for example, by a -v flag).
var LogLevel = zap.NewAtomicLevelAt(zap.InfoLevel)

// newLogger returns a logger that writes to the console (stderr) with
// a human-readable encoder. It is intended for setting up the main
// process logger during the program's init phase.
func newLogger() *zap.Logger {
	consoleOut := zapcore.Lock(os.Stderr)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(ts.UTC().Format("2006/01/02 15:04:05.000"))
	}
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(encCfg)

	core := zapcore.NewCore(consoleEncoder, consoleOut, LogLevel)

	// avoid a firehose of logs
	const firstNMsgs, everyNthMsg = 10, 100
	sampled := zapcore.NewSamplerWithOptions(core, time.Second, firstNMsgs, everyNthMsg)

	return zap.New(&customCore{Core: sampled, unsampled: core})
}

// customCore wraps a sampled zapcore.Core and lets some loggers bypass
// sampling based on their name.
type customCore struct {
	zapcore.Core
	unsampled zapcore.Core
}

func (c *customCore) With(fields []zapcore.Field) zapcore.Core {
	return &customCore{
		Core:      c.Core.With(fields),
		unsampled: c.unsampled.With(fields),
	}
}

func (c *customCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if unsampledLoggers[ent.LoggerName] {
		// every pairing line is part of the run's report; never drop them
		return c.unsampled.Check(ent, ce)
	}
	return c.Core.Check(ent, ce)
}

// unsampledLoggers are the logger names whose entries are always written.
var unsampledLoggers = map[string]bool{
	"pairing": true,
	"dupes":   true,
}

/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"errors"
	"time"

	"github.com/icon-project/btp2/common/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DefaultSlowQuery = 200 * time.Millisecond
)

var (
	gormLevels = map[logger.LogLevel]log.Level{
		logger.Silent: log.PanicLevel,
		logger.Error:  log.ErrorLevel,
		logger.Warn:   log.WarnLevel,
		logger.Info:   log.InfoLevel,
	}
)

// databaseLogger writes gorm messages and statements to a btp2 logger.
// Statements go out at trace, slow ones at warn and failed ones at error.
// level gates what gorm hands over, on top of the level of l.
type databaseLogger struct {
	l     log.Logger
	slow  time.Duration
	level log.Level
}

func newDatabaseLogger(l log.Logger) *databaseLogger {
	return &databaseLogger{
		l:     l.WithFields(log.Fields{log.FieldKeyModule: "database"}),
		slow:  DefaultSlowQuery,
		level: log.TraceLevel,
	}
}

func (d *databaseLogger) LogMode(level logger.LogLevel) logger.Interface {
	lv, ok := gormLevels[level]
	if !ok {
		lv = log.InfoLevel
	}
	return &databaseLogger{l: d.l, slow: d.slow, level: lv}
}

// enabled reports whether lv passes both gates. Levels grow in verbosity,
// from panic up to trace.
func (d *databaseLogger) enabled(lv log.Level) bool {
	return lv <= d.level && lv <= d.l.GetLevel()
}

func (d *databaseLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if d.enabled(log.InfoLevel) {
		d.l.Infof(msg, data...)
	}
}

func (d *databaseLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if d.enabled(log.WarnLevel) {
		d.l.Warnf(msg, data...)
	}
}

func (d *databaseLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if d.enabled(log.ErrorLevel) {
		d.l.Errorf(msg, data...)
	}
}

func (d *databaseLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	var lv log.Level
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		lv = log.ErrorLevel
	case elapsed > d.slow:
		lv = log.WarnLevel
	default:
		lv = log.TraceLevel
	}
	if !d.enabled(lv) {
		return
	}
	stmt, rows := fc()
	ms := float64(elapsed.Microseconds()) / 1e3
	switch lv {
	case log.ErrorLevel:
		d.l.Errorf("err:%v [%.3fms] [rows:%d] %s", err, ms, rows, stmt)
	case log.WarnLevel:
		d.l.Warnf("slow query over %v [%.3fms] [rows:%d] %s", d.slow, ms, rows, stmt)
	default:
		d.l.Tracef("[%.3fms] [rows:%d] %s", ms, rows, stmt)
	}
}

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
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func bufferedLogger(t *testing.T, lv log.Level) (log.Logger, *bytes.Buffer) {
	l := log.New()
	l.SetLevel(lv)
	buf := &bytes.Buffer{}
	if err := l.SetFileWriter(buf); err != nil {
		assert.FailNow(t, err.Error())
	}
	return l, buf
}

func Test_DatabaseLoggerTrace(t *testing.T) {
	l, buf := bufferedLogger(t, log.InfoLevel)
	d := newDatabaseLogger(l)

	stmt := func(s string) func() (string, int64) {
		return func() (string, int64) { return s, 0 }
	}
	d.Trace(context.Background(), time.Now(), stmt("SELECT ok"), nil)
	assert.NotContains(t, buf.String(), "SELECT ok")

	d.Trace(context.Background(), time.Now(), stmt("SELECT notfound"), gorm.ErrRecordNotFound)
	assert.NotContains(t, buf.String(), "SELECT notfound")

	d.Trace(context.Background(), time.Now(), stmt("INSERT broken"), errors.New("boom"))
	assert.Contains(t, buf.String(), "INSERT broken")
	assert.Contains(t, buf.String(), "boom")

	d.Trace(context.Background(), time.Now().Add(-time.Second), stmt("SELECT slow"), nil)
	assert.Contains(t, buf.String(), "SELECT slow")
}

func Test_DatabaseLoggerLogMode(t *testing.T) {
	l, buf := bufferedLogger(t, log.TraceLevel)
	d := newDatabaseLogger(l)

	silent := d.LogMode(logger.Silent)
	silent.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "DELETE silent", 1
	}, errors.New("boom"))
	silent.Error(context.Background(), "silent %s", "error")
	assert.Empty(t, buf.String())
	assert.Equal(t, log.TraceLevel, l.GetLevel())

	d.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT traced", 1
	}, nil)
	assert.Contains(t, buf.String(), "SELECT traced")
}

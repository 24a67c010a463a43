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

package api

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
)

const (
	DefaultTransportLogLevel = log.TraceLevel
	TransportLogLevelLimit   = log.InfoLevel
	DefaultClientTimeout     = 30 * time.Second
)

// dumpTransport logs the bodies exchanged through next at lv.
type dumpTransport struct {
	next http.RoundTripper
	lv   log.Level
	l    log.Logger
}

// drain reads *rc fully and replaces it with a reader of the same bytes.
func drain(rc *io.ReadCloser) ([]byte, error) {
	if *rc == nil || *rc == http.NoBody {
		return nil, nil
	}
	defer (*rc).Close()
	b, err := io.ReadAll(*rc)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to read body err:%s", err.Error())
	}
	*rc = io.NopCloser(bytes.NewReader(b))
	return b, nil
}

func (t *dumpTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, err := drain(&req.Body)
	if err != nil {
		return nil, err
	}
	t.l.Logf(t.lv, "%s %s request=%s", req.Method, req.URL.Path, b)
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to RoundTrip err:%s", err.Error())
	}
	if b, err = drain(&resp.Body); err != nil {
		return nil, err
	}
	t.l.Logf(t.lv, "%s %s status=%d response=%s", req.Method, req.URL.Path, resp.StatusCode, b)
	return resp, nil
}

func NewHttpClient(lv log.Level, l log.Logger) *http.Client {
	return &http.Client{
		Transport: &dumpTransport{
			next: http.DefaultTransport,
			lv:   EnsureTransportLogLevel(lv),
			l:    l,
		},
		Timeout: DefaultClientTimeout,
	}
}

// EnsureTransportLogLevel keeps dumps at trace unless a level at or above
// info is requested.
func EnsureTransportLogLevel(lv log.Level) log.Level {
	if lv < TransportLogLevelLimit {
		return DefaultTransportLogLevel
	}
	return lv
}

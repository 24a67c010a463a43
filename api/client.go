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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/tact-funcgen/cache"
	"github.com/icon-project/tact-funcgen/contract"
	"github.com/icon-project/tact-funcgen/database"
	"github.com/icon-project/tact-funcgen/service"
	"github.com/icon-project/tact-funcgen/storage"
	"github.com/icon-project/tact-funcgen/types"
)

type Client struct {
	*http.Client
	baseUrl    string
	baseApiUrl string
	lv         log.Level
	l          log.Logger
}

func NewClient(url string, transportLogLevel log.Level, l log.Logger) *Client {
	l = Logger(l)
	return &Client{
		Client:     NewHttpClient(transportLogLevel, l),
		baseUrl:    url,
		baseApiUrl: url + GroupUrlApi,
		lv:         transportLogLevel,
		l:          l,
	}
}

func (c *Client) apiUrl(format string, args ...interface{}) string {
	return c.baseApiUrl + fmt.Sprintf(format, args...)
}

func (c *Client) do(method, url string, reqPtr, respPtr interface{}) (resp *http.Response, err error) {
	var reqBody io.Reader
	if reqPtr != nil {
		var b []byte
		if b, err = json.Marshal(reqPtr); err != nil {
			c.l.Debugf("fail to encode Request err:%+v", err)
			return nil, err
		}
		reqBody = bytes.NewReader(b)
	}
	if !strings.HasPrefix(url, c.baseApiUrl) {
		url = c.baseApiUrl + url
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		c.l.Debugf("fail to NewRequest err:%+v", err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.l.Debugf("url=%s", req.URL)
	if resp, err = c.Client.Do(req); err != nil {
		return
	}
	if resp.StatusCode/100 != 2 {
		er := &ErrorResponse{}
		if err = UnmarshalBody(resp.Body, er); err != nil {
			c.l.Debugf("fail to decode ErrorResponse err:%+v", err)
			err = errors.Errorf("server response not success, StatusCode:%d",
				resp.StatusCode)
			return
		}
		err = er
		return
	}
	if respPtr != nil {
		if err = UnmarshalBody(resp.Body, respPtr); err != nil {
			c.l.Debugf("fail to decode resp err:%+v", err)
			return
		}
	}
	return
}

func (c *Client) Compile(req *service.CompileRequest) (*service.CompileResult, error) {
	ret := &service.CompileResult{}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlCompile), req, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Client) Layout(u *types.Universe) ([]storage.Layout, error) {
	var ret []storage.Layout
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlLayout), &UniverseRequest{Universe: u}, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Client) Init(u *types.Universe, name string, stack []contract.StackItem) (*service.CellResult, error) {
	req := &InitRequest{
		UniverseRequest: UniverseRequest{Universe: u},
		Contract:        name,
		Stack:           stack,
	}
	ret := &service.CellResult{}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlInit), req, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Client) Pack(u *types.Universe, name string, value interface{}) (*service.CellResult, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to encode value err:%s", err.Error())
	}
	req := &PackRequest{
		UniverseRequest: UniverseRequest{Universe: u},
		Type:            name,
		Value:           b,
	}
	ret := &service.CellResult{}
	if _, err = c.do(http.MethodPost, c.apiUrl(UrlPack), req, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Client) Abi(u *types.Universe, name string) (*openapi3.T, error) {
	req := &AbiRequest{
		UniverseRequest: UniverseRequest{Universe: u},
		Contract:        name,
	}
	ret := &openapi3.T{}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlAbi), req, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Client) Artifacts(name string, p database.Pageable) (*database.Page[cache.Artifact], error) {
	q := url.Values{}
	if len(name) > 0 {
		q.Set("contract", name)
	}
	q.Set("page", fmt.Sprint(p.Page))
	q.Set("size", fmt.Sprint(p.Size))
	if len(p.Sort) > 0 {
		q.Set("sort", p.Sort)
	}
	ret := &database.Page[cache.Artifact]{}
	if _, err := c.do(http.MethodGet, c.apiUrl("%s?%s", UrlArtifacts, q.Encode()), nil, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

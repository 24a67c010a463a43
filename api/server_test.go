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
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/icon-project/btp2/common/log"
	"github.com/stretchr/testify/assert"

	"github.com/icon-project/tact-funcgen/cache"
	"github.com/icon-project/tact-funcgen/cell"
	"github.com/icon-project/tact-funcgen/codegen"
	"github.com/icon-project/tact-funcgen/contract"
	"github.com/icon-project/tact-funcgen/database"
	"github.com/icon-project/tact-funcgen/service"
	"github.com/icon-project/tact-funcgen/types"
)

func walletUniverse(t *testing.T) *types.Universe {
	b, err := os.ReadFile("../types/testdata/wallet.json")
	if err != nil {
		assert.FailNow(t, "fail to read universe", err)
	}
	u, err := types.ParseUniverse(b)
	if err != nil {
		assert.FailNow(t, "fail to parse universe", err)
	}
	return u
}

func server(t *testing.T) (*Server, *httptest.Server) {
	l := log.GlobalLogger()
	db, err := database.OpenDatabase(database.Config{
		Driver: database.DriverSQLite,
		DBName: ":memory:",
	}, l)
	if err != nil {
		assert.FailNow(t, "fail to open database", err)
	}
	repo, err := cache.NewRepository(db, l)
	if err != nil {
		assert.FailNow(t, "fail to NewRepository", err)
	}
	c, err := service.NewCompiler(service.CompilerOptions{Abi: "wallet.abi"}, repo, l)
	if err != nil {
		assert.FailNow(t, "fail to NewCompiler", err)
	}
	s := NewServer("", log.DebugLevel, c, l)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return s, ts
}

func client(ts *httptest.Server) *Client {
	return NewClient(ts.URL, log.TraceLevel, log.GlobalLogger())
}

func Test_ServerCompile(t *testing.T) {
	_, ts := server(t)
	c := client(ts)
	u := walletUniverse(t)

	r, err := c.Compile(&service.CompileRequest{Universe: u, Contract: "Wallet"})
	assert.NoError(t, err)
	assert.False(t, r.Cached)
	assert.Equal(t, "wallet.abi", r.Abi)
	assert.Contains(t, r.Code, "() recv_internal(int msg_value, cell in_msg_cell, slice in_msg) impure {")
	assert.Equal(t, uint32(1843760589), r.Opcodes["TransferMessage"])

	cached, err := c.Compile(&service.CompileRequest{Universe: u, Contract: "Wallet"})
	assert.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, r.Key, cached.Key)

	page, err := c.Artifacts("Wallet", database.Pageable{Size: 10})
	assert.NoError(t, err)
	assert.Equal(t, 1, page.TotalElements)
	assert.Equal(t, r.Key, page.Content[0].Key)
}

func Test_ServerCompileError(t *testing.T) {
	_, ts := server(t)
	c := client(ts)

	_, err := c.Compile(&service.CompileRequest{Universe: walletUniverse(t), Contract: "Missing"})
	er, ok := err.(*ErrorResponse)
	if !assert.True(t, ok, err) {
		return
	}
	assert.Equal(t, codegen.ErrorCodeContractNotFound, er.Code)

	_, err = c.Compile(&service.CompileRequest{Universe: walletUniverse(t)})
	assert.Error(t, err)
}

func Test_ServerBadRequest(t *testing.T) {
	_, ts := server(t)
	resp, err := http.Post(ts.URL+GroupUrlApi+UrlCompile, "application/json", strings.NewReader("{"))
	if err != nil {
		assert.FailNow(t, "fail to Post", err)
	}
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	er := &ErrorResponse{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(er))
	assert.NotEmpty(t, er.Message)

	b, _ := json.Marshal(&UniverseRequest{})
	resp, err = http.Post(ts.URL+GroupUrlApi+UrlLayout, "application/json", bytes.NewReader(b))
	if err != nil {
		assert.FailNow(t, "fail to Post", err)
	}
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func Test_ServerLayout(t *testing.T) {
	_, ts := server(t)
	l, err := client(ts).Layout(walletUniverse(t))
	assert.NoError(t, err)
	assert.Equal(t, 5, len(l))
	assert.Equal(t, "Wallet", l[4].Name)
}

func Test_ServerInitAndPack(t *testing.T) {
	_, ts := server(t)
	c := client(ts)
	u := walletUniverse(t)

	r, err := c.Init(u, "Wallet", []contract.StackItem{
		contract.MustStackItemOf(1),
		contract.MustStackItemOf(2),
	})
	assert.NoError(t, err)
	assert.Equal(t, 257+257+32, r.BitLen)

	_, err = c.Init(u, "Wallet", []contract.StackItem{contract.MustStackItemOf(1)})
	er, ok := err.(*ErrorResponse)
	if assert.True(t, ok, err) {
		assert.Equal(t, contract.ErrorCodeInvalidStack, er.Code)
	}

	_, err = c.Init(u, "Wallet", []contract.StackItem{{Type: "float", Value: 1}, contract.MustStackItemOf(2)})
	assert.Error(t, err)

	p, err := c.Pack(u, "Deposit", map[string]interface{}{"queryId": "18446744073709551615"})
	assert.NoError(t, err)
	assert.Equal(t, 32+64, p.BitLen)

	_, err = c.Pack(u, "Deposit", map[string]interface{}{})
	er, ok = err.(*ErrorResponse)
	if assert.True(t, ok, err) {
		assert.Equal(t, cell.ErrorCodeMalformedInput, er.Code)
	}
}

func Test_ServerAbi(t *testing.T) {
	_, ts := server(t)
	oas, err := client(ts).Abi(walletUniverse(t), "Wallet")
	assert.NoError(t, err)
	for _, name := range []string{"SendParameters", "Transfer", "TransferMessage", "Deposit", "Wallet"} {
		assert.Contains(t, oas.Components.Schemas, name)
	}
	pi, ok := oas.Paths["/Wallet/TransferMessage"]
	if assert.True(t, ok) && assert.NotNil(t, pi.Post) {
		assert.Equal(t, "0x6de58dcd", pi.Post.Extensions[extensionOpcode])
		assert.Equal(t, true, pi.Post.Extensions[extensionExternal])
	}
	assert.Contains(t, oas.Paths, "/Wallet/Deposit")
	if pi, ok = oas.Paths["/Wallet/seqno"]; assert.True(t, ok) {
		assert.NotNil(t, pi.Get)
	}

	_, err = client(ts).Abi(walletUniverse(t), "Missing")
	assert.Error(t, err)
}

func Test_ServerOpenAPISpec(t *testing.T) {
	_, ts := server(t)
	resp, err := http.Get(ts.URL + GroupUrlApi)
	if err != nil {
		assert.FailNow(t, "fail to Get", err)
	}
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	m := make(map[string]interface{})
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, openapi3Version, m["openapi"])
	assert.Contains(t, m["paths"], GroupUrlApi+UrlCompile)
}

func Test_ServerTransportLogLevel(t *testing.T) {
	s, _ := server(t)
	assert.Equal(t, log.DebugLevel, s.lv)

	for _, lv := range []log.Level{log.PanicLevel, log.ErrorLevel, log.WarnLevel} {
		assert.Equal(t, DefaultTransportLogLevel, NewServer("", lv, nil, log.GlobalLogger()).lv)
	}
	assert.Equal(t, log.InfoLevel, NewServer("", log.InfoLevel, nil, log.GlobalLogger()).lv)
}

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

package service

import (
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

func newCompiler(t *testing.T, withRepository bool) *Compiler {
	var repo *cache.Repository
	if withRepository {
		db, err := database.OpenDatabase(database.Config{
			Driver: database.DriverSQLite,
			DBName: ":memory:",
		}, log.GlobalLogger())
		if err != nil {
			assert.FailNow(t, "fail to open database", err)
		}
		if repo, err = cache.NewRepository(db, log.GlobalLogger()); err != nil {
			assert.FailNow(t, "fail to NewRepository", err)
		}
	}
	c, err := NewCompiler(CompilerOptions{Abi: "wallet.abi"}, repo, log.GlobalLogger())
	if err != nil {
		assert.FailNow(t, "fail to NewCompiler", err)
	}
	return c
}

func Test_Compile(t *testing.T) {
	c := newCompiler(t, true)
	req := &CompileRequest{Universe: walletUniverse(t), Contract: "Wallet"}
	r, err := c.Compile(req)
	assert.NoError(t, err)
	assert.False(t, r.Cached)
	assert.Equal(t, "wallet.abi", r.Abi)
	assert.Equal(t, "all", r.Scope)
	assert.True(t, strings.HasPrefix(r.Code, "#pragma version >=0.2.0;\n"))
	assert.Contains(t, r.Code, ";; ABI: wallet.abi")
	assert.Equal(t, map[string]uint32{
		"TransferMessage": 1843760589,
		"Deposit":         types.OpcodeOf("Deposit"),
	}, r.Opcodes)
	assert.Equal(t, []string{"SendParameters", "Transfer", "TransferMessage", "Deposit", "Wallet"}, r.Order)

	cached, err := c.Compile(req)
	assert.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, r.Key, cached.Key)
	assert.Equal(t, r.Code, cached.Code)

	scope := codegen.ScopeTarget
	target, err := c.Compile(&CompileRequest{Universe: walletUniverse(t), Contract: "Wallet", Scope: &scope, Abi: "other"})
	assert.NoError(t, err)
	assert.False(t, target.Cached)
	assert.NotEqual(t, r.Key, target.Key)
	assert.Equal(t, "target", target.Scope)

	page, err := c.Artifacts("Wallet", database.Pageable{})
	assert.NoError(t, err)
	assert.Equal(t, 2, page.TotalElements)
}

func Test_CompileError(t *testing.T) {
	c := newCompiler(t, false)
	_, err := c.Compile(&CompileRequest{Universe: walletUniverse(t), Contract: "Missing"})
	assert.True(t, codegen.ErrorCodeContractNotFound.Equals(err), err)

	u := walletUniverse(t)
	u.Types[1].Fields[1].Type.Name = "Unknown"
	_, err = c.Compile(&CompileRequest{Universe: u, Contract: "Wallet"})
	assert.True(t, types.ErrorCodeTypeNotFound.Equals(err), err)

	_, err = c.Compile(&CompileRequest{Contract: "Wallet"})
	assert.Error(t, err)

	_, err = c.Artifacts("", database.Pageable{})
	assert.Error(t, err)
}

func Test_Layout(t *testing.T) {
	c := newCompiler(t, false)
	l, err := c.Layout(walletUniverse(t))
	assert.NoError(t, err)
	assert.Equal(t, 5, len(l))
	msg := l[2]
	assert.Equal(t, "TransferMessage", msg.Name)
	assert.Equal(t, uint32(1843760589), *msg.Opcode)
	assert.Equal(t, 1, len(msg.Segments))
	assert.Equal(t, []string{"signature", "transfer"}, msg.Segments[0].Fields)
	assert.Equal(t, 32, msg.Segments[0].Bits)
	assert.Equal(t, 2, msg.Segments[0].Refs)
}

func Test_InitAndPack(t *testing.T) {
	c := newCompiler(t, false)
	u := walletUniverse(t)
	r, err := c.Init(u, "Wallet", []contract.StackItem{
		contract.MustStackItemOf(1),
		contract.MustStackItemOf(2),
	})
	assert.NoError(t, err)
	assert.Equal(t, 257+257+32, r.BitLen)
	assert.Equal(t, 0, r.RefCount)
	assert.Len(t, r.Hash, 64)

	_, err = c.Init(u, "Missing", nil)
	assert.True(t, codegen.ErrorCodeContractNotFound.Equals(err), err)

	p, err := c.Pack(u, "Deposit", map[string]interface{}{"queryId": "0x10"})
	assert.NoError(t, err)
	assert.Equal(t, 32+64, p.BitLen)
	assert.Equal(t, "b5ee9c72", p.Boc[:8])

	_, err = c.Pack(u, "Deposit", map[string]interface{}{})
	assert.True(t, cell.ErrorCodeMalformedInput.Equals(err), err)
}

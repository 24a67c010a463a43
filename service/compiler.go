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
	"encoding/hex"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/tact-funcgen/cache"
	"github.com/icon-project/tact-funcgen/cell"
	"github.com/icon-project/tact-funcgen/codec"
	"github.com/icon-project/tact-funcgen/codegen"
	"github.com/icon-project/tact-funcgen/contract"
	"github.com/icon-project/tact-funcgen/database"
	"github.com/icon-project/tact-funcgen/storage"
	"github.com/icon-project/tact-funcgen/types"
)

type CompilerOptions struct {
	Abi       string        `json:"abi"`
	Scope     codegen.Scope `json:"scope"`
	CacheSize int           `json:"cache_size"`
}

type CompileRequest struct {
	Universe *types.Universe `json:"universe" validate:"required"`
	Contract string          `json:"contract" validate:"required"`
	Abi      string          `json:"abi,omitempty"`
	Scope    *codegen.Scope  `json:"scope,omitempty"`
}

type CompileResult struct {
	Key      string            `json:"key"`
	Contract string            `json:"contract"`
	Abi      string            `json:"abi"`
	Scope    string            `json:"scope"`
	Code     string            `json:"code"`
	Opcodes  map[string]uint32 `json:"opcodes"`
	Order    []string          `json:"order"`
	Cached   bool              `json:"cached"`
}

// CellResult describes a cell produced for a client.
type CellResult struct {
	Hash     string `json:"hash"`
	Data     string `json:"data"`
	BitLen   int    `json:"bit_len"`
	RefCount int    `json:"ref_count"`
	Dump     string `json:"dump"`
	Boc      string `json:"boc"`
}

func CellResultOf(c *cell.Cell) *CellResult {
	return &CellResult{
		Hash:     hex.EncodeToString(c.Hash()),
		Data:     hex.EncodeToString(c.Data()),
		BitLen:   c.BitLen(),
		RefCount: c.RefCount(),
		Dump:     c.String(),
		Boc:      hex.EncodeToString(c.BOC()),
	}
}

// Compiler runs the generation pipeline for clients, serving repeated
// compilations of the same input from the cache.
type Compiler struct {
	opt  CompilerOptions
	c    *cache.Memory
	repo *cache.Repository
	l    log.Logger
}

// NewCompiler creates a compiler with an in-memory cache in front of repo.
// repo may be nil.
func NewCompiler(opt CompilerOptions, repo *cache.Repository, l log.Logger) (*Compiler, error) {
	var backing cache.Cache
	if repo != nil {
		backing = repo
	}
	m, err := cache.NewMemory(opt.CacheSize, backing)
	if err != nil {
		return nil, err
	}
	return &Compiler{
		opt:  opt,
		c:    m,
		repo: repo,
		l:    l.WithFields(log.Fields{log.FieldKeyModule: "service"}),
	}, nil
}

func (c *Compiler) Options() CompilerOptions {
	return c.opt
}

func resultOf(a *cache.Artifact, cached bool) *CompileResult {
	return &CompileResult{
		Key:      a.Key,
		Contract: a.Contract,
		Abi:      a.Abi,
		Scope:    a.Scope,
		Code:     a.Code,
		Opcodes:  a.Opcodes,
		Order:    a.Order,
		Cached:   cached,
	}
}

// Compile generates the module of the requested contract. A failure of the
// cache is logged and does not fail the compilation.
func (c *Compiler) Compile(req *CompileRequest) (*CompileResult, error) {
	if req.Universe == nil {
		return nil, errors.New("universe required")
	}
	abi := req.Abi
	if len(abi) == 0 {
		abi = c.opt.Abi
	}
	scope := c.opt.Scope
	if req.Scope != nil {
		scope = *req.Scope
	}
	key, err := cache.KeyOf(req.Universe, req.Contract, abi, scope)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to KeyOf err:%s", err.Error())
	}
	if a, err := c.c.Get(key); err != nil {
		c.l.Warnf("fail to get artifact key:%s err:%+v", key, err)
	} else if a != nil {
		c.l.Debugf("compile contract:%s key:%s cached", req.Contract, key)
		return resultOf(a, true), nil
	}
	r, err := codegen.Generate(req.Universe, req.Contract, codegen.Options{Abi: abi, Scope: scope})
	if err != nil {
		c.l.Debugf("fail to generate contract:%s err:%+v", req.Contract, err)
		return nil, err
	}
	a := &cache.Artifact{
		Key:      key,
		Contract: req.Contract,
		Abi:      abi,
		Scope:    scope.String(),
		Code:     r.Module.String(),
		Opcodes:  make(map[string]uint32),
		Order:    r.Sorted.Names(),
	}
	for _, t := range r.Sorted.Types {
		if t.IsMessage() {
			a.Opcodes[t.Name] = t.Opcode
		}
	}
	if err = c.c.Put(a); err != nil {
		c.l.Warnf("fail to put artifact key:%s err:%+v", key, err)
	}
	c.l.Debugf("compile contract:%s key:%s entries:%d", req.Contract, key, len(r.Module.Entries))
	return resultOf(a, false), nil
}

// Layout returns the allocation of every type in dependency order.
func (c *Compiler) Layout(u *types.Universe) ([]storage.Layout, error) {
	p, err := types.Resolve(u)
	if err != nil {
		return nil, err
	}
	sorted, err := storage.SortTypes(p)
	if err != nil {
		return nil, err
	}
	plans, err := storage.AllocateAll(sorted)
	if err != nil {
		return nil, err
	}
	ret := make([]storage.Layout, len(plans))
	for i, plan := range plans {
		ret[i] = plan.Layout()
	}
	return ret, nil
}

func (c *Compiler) codecOf(u *types.Universe) (*codec.Codec, error) {
	p, err := types.Resolve(u)
	if err != nil {
		return nil, err
	}
	return codec.NewCodec(p)
}

// Init builds the initial data of a contract from its init parameters.
func (c *Compiler) Init(u *types.Universe, name string, stack []contract.StackItem) (*CellResult, error) {
	cc, err := c.codecOf(u)
	if err != nil {
		return nil, err
	}
	cd, ok := cc.Program().Contract(name)
	if !ok {
		return nil, codegen.ErrorCodeContractNotFound.Errorf("contract %s not found", name)
	}
	data, err := contract.New(cc, cd).Init(stack)
	if err != nil {
		return nil, err
	}
	return CellResultOf(data), nil
}

// Pack encodes value as the type name.
func (c *Compiler) Pack(u *types.Universe, name string, value interface{}) (*CellResult, error) {
	cc, err := c.codecOf(u)
	if err != nil {
		return nil, err
	}
	v, err := cc.Pack(name, value)
	if err != nil {
		return nil, err
	}
	return CellResultOf(v), nil
}

// Artifacts lists the persisted artifacts of contract.
func (c *Compiler) Artifacts(name string, p database.Pageable) (*database.Page[cache.Artifact], error) {
	if c.repo == nil {
		return nil, errors.New("no artifact repository")
	}
	return c.repo.Page(name, p)
}

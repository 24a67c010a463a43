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

package codegen

import (
	"encoding/json"
	"strings"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/tact-funcgen/funcast"
	"github.com/icon-project/tact-funcgen/storage"
	"github.com/icon-project/tact-funcgen/types"
)

var (
	codegenLogger = log.New()
)

func init() {
	codegenLogger.SetLevel(log.DebugLevel)
}

// Scope selects the contracts whose functions are emitted.
type Scope int

const (
	// ScopeAllContracts emits the functions of every declared contract.
	ScopeAllContracts Scope = iota
	// ScopeTarget emits the functions of the target contract and of the
	// contracts it includes, transitively.
	ScopeTarget
)

var (
	scopeNames = []string{"all", "target"}
)

func (s Scope) String() string {
	if int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return "unknown"
}

func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return ScopeAllContracts, nil
	case "target":
		return ScopeTarget, nil
	default:
		return ScopeAllContracts, errors.Errorf("invalid scope %q", s)
	}
}

func (s Scope) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Scope) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	v, err := ParseScope(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type Options struct {
	Abi   string `json:"abi"`
	Scope Scope  `json:"scope"`
}

// Pass produces the entries of one part of the module.
type Pass struct {
	Name  string
	Write func(c *Context) ([]funcast.Entry, error)
}

// DefaultPasses is the fixed order of the module.
var DefaultPasses = []Pass{
	{Name: "stdlib", Write: writeStdlib},
	{Name: "serializers", Write: writeSerializers},
	{Name: "accessors", Write: writeAccessors},
	{Name: "init", Write: writeInit},
	{Name: "storage", Write: writeStorageFunctions},
	{Name: "static", Write: writeStatic},
	{Name: "extensions", Write: writeExtensions},
	{Name: "functions", Write: writeContractFunctions},
	{Name: "dispatch", Write: writeDispatch},
}

type ContractGen struct {
	p       *types.Program
	name    string
	options Options
	passes  []Pass
}

func NewContractGen(p *types.Program, name string, options Options) *ContractGen {
	return &ContractGen{
		p:       p,
		name:    name,
		options: options,
		passes:  DefaultPasses,
	}
}

// Result is a generated module along with the layout it was built from.
type Result struct {
	Module *funcast.Module
	Sorted *storage.SortedTypes
	Plans  []*storage.Plan
}

// WriteProgram generates the module of the target contract. Any error
// aborts the generation and no module is returned.
func (g *ContractGen) WriteProgram() (*Result, error) {
	cd, ok := g.p.Contract(g.name)
	if !ok {
		return nil, ErrorCodeContractNotFound.Errorf("contract %s not found", g.name)
	}
	sorted, err := storage.SortTypes(g.p)
	if err != nil {
		return nil, err
	}
	plans, err := storage.AllocateAll(sorted)
	if err != nil {
		return nil, err
	}
	c := &Context{
		Program:  g.p,
		Sorted:   sorted,
		Plans:    make(map[string]*storage.Plan),
		Contract: cd,
		Options:  g.options,
	}
	for _, plan := range plans {
		c.Plans[plan.Type.Name] = plan
	}
	m := &funcast.Module{}
	for _, pass := range g.passes {
		entries, err := pass.Write(c)
		if err != nil {
			return nil, errors.Wrapf(err, "fail to write %s", pass.Name)
		}
		codegenLogger.Tracef("pass %s entries:%d\n", pass.Name, len(entries))
		m.Append(entries...)
	}
	return &Result{Module: m, Sorted: sorted, Plans: plans}, nil
}

// Generate resolves the universe and generates the module of the contract.
func Generate(u *types.Universe, name string, options Options) (*Result, error) {
	p, err := types.Resolve(u)
	if err != nil {
		return nil, err
	}
	return NewContractGen(p, name, options).WriteProgram()
}

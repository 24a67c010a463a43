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
	"fmt"
	"strings"

	"github.com/icon-project/tact-funcgen/funcast"
	"github.com/icon-project/tact-funcgen/types"
)

func (c *Context) specifiersOf(fs *types.FunctionSpec) []funcast.Specifier {
	var ret []funcast.Specifier
	if fs.Impure {
		ret = append(ret, funcast.Impure)
	}
	if fs.Inline {
		ret = append(ret, funcast.Inline)
	}
	return ret
}

func (c *Context) paramsOf(fs *types.FunctionSpec) []funcast.Param {
	params := make([]funcast.Param, 0, len(fs.Params))
	for _, p := range fs.Params {
		params = append(params, funcast.Param{Type: c.TypeNameOf(p.Type), Name: p.Name})
	}
	return params
}

func bodyOf(fs *types.FunctionSpec) []string {
	if len(fs.Body) == 0 {
		return []string{"return ();"}
	}
	return fs.Body
}

// writeStatic emits the program-wide functions which extend no type.
func writeStatic(c *Context) ([]funcast.Entry, error) {
	var entries []funcast.Entry
	for _, fs := range c.Program.Functions {
		if fs.Extends != "" {
			continue
		}
		entries = append(entries, &funcast.Function{
			Name:       fs.Name,
			Params:     c.paramsOf(fs),
			Returns:    c.TypeNameOf(fs.Returns),
			Specifiers: c.specifiersOf(fs),
			Body:       bodyOf(fs),
		})
	}
	return entries, nil
}

// writeExtensions emits the functions extending a structured type. The
// extended value is passed first as self.
func writeExtensions(c *Context) ([]funcast.Entry, error) {
	var entries []funcast.Entry
	for _, fs := range c.Program.Functions {
		if fs.Extends == "" {
			continue
		}
		t, ok := c.Program.Type(fs.Extends)
		if !ok {
			return nil, types.ErrorCodeTypeNotFound.Errorf("type %s extended by %s not found", fs.Extends, fs.Name)
		}
		params := append([]funcast.Param{{Type: c.TensorOf(t), Name: "self"}}, c.paramsOf(fs)...)
		entries = append(entries, &funcast.Function{
			Name:       fs.Name,
			Params:     params,
			Returns:    c.TypeNameOf(fs.Returns),
			Specifiers: c.specifiersOf(fs),
			Body:       bodyOf(fs),
		})
	}
	return entries, nil
}

// scopeContracts returns the contracts whose functions are emitted.
func scopeContracts(c *Context) ([]*types.ContractDescriptor, error) {
	if c.Options.Scope == ScopeAllContracts {
		return c.Program.Contracts, nil
	}
	var ret []*types.ContractDescriptor
	seen := make(map[string]bool)
	var include func(cd *types.ContractDescriptor) error
	include = func(cd *types.ContractDescriptor) error {
		if seen[cd.Name] {
			return nil
		}
		seen[cd.Name] = true
		ret = append(ret, cd)
		for _, name := range cd.Includes {
			inc, ok := c.Program.Contract(name)
			if !ok {
				return ErrorCodeContractNotFound.Errorf("contract %s included by %s not found", name, cd.Name)
			}
			if err := include(inc); err != nil {
				return err
			}
		}
		return nil
	}
	if err := include(c.Contract); err != nil {
		return nil, err
	}
	return ret, nil
}

// contractFunction emits a function of a contract. It takes the contract
// state first and returns it along with its result, so callers invoke it
// as a modifying method.
func (c *Context) contractFunction(cd *types.ContractDescriptor, fs *types.FunctionSpec) *funcast.Function {
	self := c.TensorOf(cd.Storage)
	ret := "()"
	if fs.Returns != "" {
		ret = c.TypeNameOf(fs.Returns)
	}
	params := append([]funcast.Param{{Type: self, Name: "self"}}, c.paramsOf(fs)...)
	return &funcast.Function{
		Name:       fs.Name,
		Params:     params,
		Returns:    fmt.Sprintf("(%s, %s)", self, ret),
		Specifiers: c.specifiersOf(fs),
		Body:       bodyOf(fs),
	}
}

func getMethodName(cd *types.ContractDescriptor, fs *types.FunctionSpec) string {
	return strings.TrimPrefix(fs.Name, cd.Name+"_")
}

// getMethod wraps a getter of the target contract as a get method on the
// persisted state.
func (c *Context) getMethod(fs *types.FunctionSpec) *funcast.Function {
	cd := c.Contract
	args := []string{fmt.Sprintf("%s()", loadName(cd.Name))}
	params := c.paramsOf(fs)
	for _, p := range params {
		args = append(args, p.Name)
	}
	return &funcast.Function{
		Name:       getMethodName(cd, fs),
		Params:     params,
		Returns:    c.TypeNameOf(fs.Returns),
		Specifiers: []funcast.Specifier{funcast.MethodID},
		Body: []string{
			fmt.Sprintf("var (self', res) = %s(%s);", fs.Name, strings.Join(args, ", ")),
			"return res;",
		},
	}
}

// writeContractFunctions emits the functions of the contracts in scope,
// then the get methods of the target contract.
func writeContractFunctions(c *Context) ([]funcast.Entry, error) {
	contracts, err := scopeContracts(c)
	if err != nil {
		return nil, err
	}
	var entries []funcast.Entry
	emitted := make(map[string]string)
	for _, cd := range contracts {
		for _, fs := range cd.Functions {
			if owner, ok := emitted[fs.Name]; ok {
				codegenLogger.Debugf("skip function %s of %s, already emitted by %s\n", fs.Name, cd.Name, owner)
				continue
			}
			emitted[fs.Name] = cd.Name
			entries = append(entries, c.contractFunction(cd, fs))
		}
	}
	for _, fs := range c.Contract.Functions {
		if fs.Getter {
			entries = append(entries, c.getMethod(fs))
		}
	}
	return entries, nil
}

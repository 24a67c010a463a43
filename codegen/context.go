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
	"sort"
	"strings"

	"github.com/icon-project/tact-funcgen/storage"
	"github.com/icon-project/tact-funcgen/types"
)

// Context is the read-only input shared by the passes of one compilation.
type Context struct {
	Program  *types.Program
	Sorted   *storage.SortedTypes
	Plans    map[string]*storage.Plan
	Contract *types.ContractDescriptor
	Options  Options
}

func (c *Context) Plan(t *types.TypeDescriptor) *storage.Plan {
	return c.Plans[t.Name]
}

// TensorOf returns the stack representation of a value of t.
func (c *Context) TensorOf(t *types.TypeDescriptor) string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = c.StackTypeOf(f.Type)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// StackTypeOf returns the stack type of a field. An optional structured
// value is carried in a tuple since a tensor cannot be null.
func (c *Context) StackTypeOf(ft *types.FieldType) string {
	switch ft.Tag {
	case types.TUint, types.TInt, types.TCoins, types.TBool:
		return "int"
	case types.TAddress, types.TSlice:
		return "slice"
	case types.TCell:
		return "cell"
	case types.TStruct:
		return c.TensorOf(ft.Struct)
	case types.TOptional:
		if ft.Inner.Tag == types.TStruct {
			return "tuple"
		}
		return c.StackTypeOf(ft.Inner)
	default:
		return "_"
	}
}

// TypeNameOf maps a parameter type of a function to a stack type. Names of
// structured types map to their tensor, anything else is kept.
func (c *Context) TypeNameOf(name string) string {
	if t, ok := c.Program.Type(name); ok {
		return c.TensorOf(t)
	}
	return name
}

// fieldVars returns the local variable names of the fields of t.
func fieldVars(prefix string, t *types.TypeDescriptor) []string {
	vars := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		vars[i] = prefix + "'" + f.Name
	}
	return vars
}

// unpackVars destructures the tensor variable name into field variables.
func unpackVars(prefix, name string, t *types.TypeDescriptor) []string {
	if len(t.Fields) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("var (%s) = %s;", strings.Join(fieldVars(prefix, t), ", "), name)}
}

// optionalTypes returns the structured types used as optional fields,
// sorted by name.
func optionalTypes(p *types.Program) []*types.TypeDescriptor {
	seen := make(map[string]*types.TypeDescriptor)
	for _, t := range p.Types {
		for _, f := range t.Fields {
			if f.Type.IsOptional() && f.Type.Inner.Tag == types.TStruct {
				seen[f.Type.Inner.Struct.Name] = f.Type.Inner.Struct
			}
		}
	}
	for _, c := range p.Contracts {
		for _, f := range c.Init {
			if f.Type.IsOptional() && f.Type.Inner.Tag == types.TStruct {
				seen[f.Type.Inner.Struct.Name] = f.Type.Inner.Struct
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	ret := make([]*types.TypeDescriptor, len(names))
	for i, n := range names {
		ret[i] = seen[n]
	}
	return ret
}

func writerName(t string) string     { return "__gen_write_" + t }
func writeCellName(t string) string  { return "__gen_writecell_" + t }
func readerName(t string) string     { return "__gen_read_" + t }
func readCellName(t string) string   { return "__gen_readcell_" + t }
func asOptionalName(t string) string { return "__gen_" + t + "_as_optional" }
func notNullName(t string) string    { return "__gen_" + t + "_not_null" }
func loadName(c string) string       { return "__gen_load_" + c }
func storeName(c string) string      { return "__gen_store_" + c }
func initName(c string) string       { return "__gen_" + c + "_init" }
func getterName(c, f string) string  { return "__gen_" + c + "_get_" + f }
func tupleCreateName(n int) string   { return fmt.Sprintf("__tact_tuple_create_%d", n) }
func tupleDestroyName(n int) string  { return fmt.Sprintf("__tact_tuple_destroy_%d", n) }

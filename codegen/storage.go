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

// writeAccessors emits one getter per field of the contract storage.
func writeAccessors(c *Context) ([]funcast.Entry, error) {
	st := c.Contract.Storage
	var entries []funcast.Entry
	for _, f := range st.Fields {
		body := unpackVars("v", "v", st)
		body = append(body, fmt.Sprintf("return v'%s;", f.Name))
		entries = append(entries, &funcast.Function{
			Name:       getterName(c.Contract.Name, f.Name),
			Params:     []funcast.Param{{Type: c.TensorOf(st), Name: "v"}},
			Returns:    c.StackTypeOf(f.Type),
			Specifiers: []funcast.Specifier{funcast.Inline},
			Body:       body,
		})
	}
	return entries, nil
}

// InitValues resolves the initial value of each storage field: the init
// parameter of the same name, the declared default, or null for an
// optional field.
func InitValues(cd *types.ContractDescriptor) ([]InitValue, error) {
	params := make(map[string]*types.FieldDescriptor)
	for _, p := range cd.Init {
		if _, ok := params[p.Name]; ok {
			return nil, ErrorCodeInvalidInit.Errorf("duplicate init parameter %s of %s", p.Name, cd.Name)
		}
		params[p.Name] = p
	}
	values := make([]InitValue, len(cd.Storage.Fields))
	for i, f := range cd.Storage.Fields {
		values[i].Field = f
		if p, ok := params[f.Name]; ok {
			if p.Type.String() != f.Type.String() {
				return nil, ErrorCodeInvalidInit.Errorf(
					"init parameter %s of %s has type %s, storage has %s", p.Name, cd.Name, p.Type, f.Type)
			}
			values[i].Param = p
			continue
		}
		if f.HasDefault() || f.Optional {
			continue
		}
		return nil, ErrorCodeInvalidInit.Errorf("no initial value for %s.%s", cd.Name, f.Name)
	}
	return values, nil
}

type InitValue struct {
	Field *types.FieldDescriptor
	Param *types.FieldDescriptor
}

func (v InitValue) expr() (string, error) {
	switch {
	case v.Param != nil:
		return v.Param.Name, nil
	case v.Field.HasDefault():
		d, err := types.ParseDefault(v.Field.Type, v.Field.Default)
		if err != nil {
			return "", err
		}
		if v.Field.Type.Base().Tag == types.TBool {
			if d.Sign() != 0 {
				return "true", nil
			}
			return "false", nil
		}
		return d.String(), nil
	default:
		return "null()", nil
	}
}

func (c *Context) initParams() []funcast.Param {
	params := make([]funcast.Param, len(c.Contract.Init))
	for i, p := range c.Contract.Init {
		params[i] = funcast.Param{Type: c.StackTypeOf(p.Type), Name: p.Name}
	}
	return params
}

func initArgs(cd *types.ContractDescriptor) string {
	names := make([]string, len(cd.Init))
	for i, p := range cd.Init {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

// writeInit emits the initializer building the first storage value and the
// get method returning the initial data cell for deployment.
func writeInit(c *Context) ([]funcast.Entry, error) {
	cd := c.Contract
	values, err := InitValues(cd)
	if err != nil {
		return nil, err
	}
	exprs := make([]string, len(values))
	for i, v := range values {
		if exprs[i], err = v.expr(); err != nil {
			return nil, err
		}
	}
	st := c.TensorOf(cd.Storage)
	return []funcast.Entry{
		&funcast.Function{
			Name:       initName(cd.Name),
			Params:     c.initParams(),
			Returns:    st,
			Specifiers: []funcast.Specifier{funcast.Inline},
			Body:       []string{fmt.Sprintf("return (%s);", strings.Join(exprs, ", "))},
		},
		&funcast.Function{
			Name:       "init_" + cd.Name,
			Params:     c.initParams(),
			Returns:    "cell",
			Specifiers: []funcast.Specifier{funcast.MethodID},
			Body: []string{
				fmt.Sprintf("return %s(%s(%s));", writeCellName(cd.Name), initName(cd.Name), initArgs(cd)),
			},
		},
	}, nil
}

// writeStorageFunctions emits load and save of the persisted contract data.
func writeStorageFunctions(c *Context) ([]funcast.Entry, error) {
	name := c.Contract.Name
	st := c.TensorOf(c.Contract.Storage)
	return []funcast.Entry{
		&funcast.Function{
			Name:       loadName(name),
			Returns:    st,
			Specifiers: []funcast.Specifier{funcast.Inline},
			Body:       readOwned("get_data()", name),
		},
		&funcast.Function{
			Name:       storeName(name),
			Params:     []funcast.Param{{Type: st, Name: "v"}},
			Specifiers: []funcast.Specifier{funcast.Impure, funcast.Inline},
			Body: []string{
				fmt.Sprintf("set_data(%s(v));", writeCellName(name)),
			},
		},
	}, nil
}

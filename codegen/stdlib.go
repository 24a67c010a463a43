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

	"github.com/icon-project/tact-funcgen/cell"
	"github.com/icon-project/tact-funcgen/funcast"
)

const (
	pragmaVersion = "version >=0.2.0"
	stdlibPath    = "stdlib.fc"
)

// writeStdlib emits the module header and the support functions the
// serializers rely on.
func writeStdlib(c *Context) ([]funcast.Entry, error) {
	header := []string{
		fmt.Sprintf("ABI: %s", c.Options.Abi),
		fmt.Sprintf("Contract: %s", c.Contract.Name),
	}
	entries := []funcast.Entry{
		&funcast.Pragma{Value: pragmaVersion},
		&funcast.Include{Path: stdlibPath},
		&funcast.Comment{Lines: header},
	}
	for _, n := range tupleArities(c) {
		entries = append(entries, tupleHelpers(n)...)
	}
	entries = append(entries,
		&funcast.Function{
			Name:       "__tact_verify_address",
			Params:     []funcast.Param{{Type: "slice", Name: "address"}},
			Returns:    "slice",
			Specifiers: []funcast.Specifier{funcast.Inline},
			Body: []string{
				fmt.Sprintf("throw_unless(%d, address.slice_bits() == %d);", exitInvalidAddress, cell.AddressBits),
				"return address;",
			},
		},
		&funcast.Function{
			Name:       "__tact_load_address",
			Params:     []funcast.Param{{Type: "slice", Name: "cs"}},
			Returns:    "(slice, slice)",
			Specifiers: []funcast.Specifier{funcast.Inline},
			Body: []string{
				"slice raw = cs~load_msg_addr();",
				"return (cs, __tact_verify_address(raw));",
			},
		},
		&funcast.Function{
			Name:       "__tact_store_address",
			Params:     []funcast.Param{{Type: "builder", Name: "b"}, {Type: "slice", Name: "address"}},
			Returns:    "builder",
			Specifiers: []funcast.Specifier{funcast.Inline},
			Body: []string{
				"return b.store_slice(__tact_verify_address(address));",
			},
		},
	)
	return entries, nil
}

// tupleArities returns the field counts of structured types carried as
// optional values.
func tupleArities(c *Context) []int {
	set := make(map[int]bool)
	for _, t := range optionalTypes(c.Program) {
		set[len(t.Fields)] = true
	}
	ret := make([]int, 0, len(set))
	for n := range set {
		ret = append(ret, n)
	}
	sort.Ints(ret)
	return ret
}

func tupleHelpers(n int) []funcast.Entry {
	vars := make([]string, n)
	for i := range vars {
		vars[i] = fmt.Sprintf("X%d", i)
	}
	tensor := "(" + strings.Join(vars, ", ") + ")"
	return []funcast.Entry{
		&funcast.Function{
			Name:    tupleCreateName(n),
			Forall:  vars,
			Params:  []funcast.Param{{Type: tensor, Name: "v"}},
			Returns: "tuple",
			Asm:     fmt.Sprintf("%d TUPLE", n),
		},
		&funcast.Function{
			Name:    tupleDestroyName(n),
			Forall:  vars,
			Params:  []funcast.Param{{Type: "tuple", Name: "v"}},
			Returns: tensor,
			Asm:     fmt.Sprintf("%d UNTUPLE", n),
		},
	}
}

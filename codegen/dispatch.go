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

	"github.com/icon-project/tact-funcgen/funcast"
	"github.com/icon-project/tact-funcgen/types"
)

// checkHandlers verifies that every receiver and the fallback name a
// function of the target contract.
func checkHandlers(cd *types.ContractDescriptor) error {
	for _, r := range cd.Receivers {
		if _, ok := cd.Function(r.Handler); !ok {
			return ErrorCodeHandlerNotFound.Errorf(
				"handler %s of %s in contract %s not found", r.Handler, r.Message.Name, cd.Name)
		}
	}
	if cd.Fallback != "" {
		if _, ok := cd.Function(cd.Fallback); !ok {
			return ErrorCodeHandlerNotFound.Errorf("fallback %s of contract %s not found", cd.Fallback, cd.Name)
		}
	}
	return nil
}

func (c *Context) receiveBranch(r *types.Receiver, accept bool) []string {
	name := c.Contract.Name
	var lines []string
	if accept {
		lines = append(lines, "accept_message();")
	}
	lines = append(lines,
		fmt.Sprintf("var self = %s();", loadName(name)),
		fmt.Sprintf("var msg = in_msg~%s();", readerName(r.Message.Name)),
		fmt.Sprintf("self~%s(msg);", r.Handler),
		fmt.Sprintf("%s(self);", storeName(name)),
		"return ();",
	)
	body := []string{fmt.Sprintf("if (op == %d) {", r.Message.Opcode)}
	body = append(body, funcast.Block(lines...)...)
	return append(body, "}")
}

// writeDispatch emits the entry points. Receivers are matched by the leading
// opcode in declaration order. Bounced messages, bodies without an opcode and
// unmatched opcodes take the default path: the fallback handler if declared,
// otherwise the message is accepted as is.
func writeDispatch(c *Context) ([]funcast.Entry, error) {
	cd := c.Contract
	if err := checkHandlers(cd); err != nil {
		return nil, err
	}
	body := []string{
		"slice cs = in_msg_cell.begin_parse();",
		"int msg_flags = cs~load_uint(4);",
		"int op = -1;",
		fmt.Sprintf("if (((msg_flags & 1) == 0) & (in_msg.slice_bits() >= %d)) {", types.OpcodeBits),
	}
	body = append(body, funcast.Block(fmt.Sprintf("op = in_msg.preload_uint(%d);", types.OpcodeBits))...)
	body = append(body, "}")
	for _, r := range cd.Receivers {
		if r.External {
			continue
		}
		body = append(body, c.receiveBranch(r, false)...)
	}
	if cd.Fallback != "" {
		body = append(body,
			fmt.Sprintf("var self = %s();", loadName(cd.Name)),
			fmt.Sprintf("self~%s(in_msg);", cd.Fallback),
			fmt.Sprintf("%s(self);", storeName(cd.Name)),
		)
	}
	body = append(body, "return ();")
	entries := []funcast.Entry{
		&funcast.Function{
			Name: "recv_internal",
			Params: []funcast.Param{
				{Type: "int", Name: "msg_value"},
				{Type: "cell", Name: "in_msg_cell"},
				{Type: "slice", Name: "in_msg"},
			},
			Specifiers: []funcast.Specifier{funcast.Impure},
			Body:       body,
		},
	}
	if cd.HasExternal() {
		ext := []string{
			"int op = -1;",
			fmt.Sprintf("if (in_msg.slice_bits() >= %d) {", types.OpcodeBits),
		}
		ext = append(ext, funcast.Block(fmt.Sprintf("op = in_msg.preload_uint(%d);", types.OpcodeBits))...)
		ext = append(ext, "}")
		for _, r := range cd.Receivers {
			if r.External {
				ext = append(ext, c.receiveBranch(r, true)...)
			}
		}
		ext = append(ext, fmt.Sprintf("throw(%d);", exitInvalidMessage))
		entries = append(entries, &funcast.Function{
			Name:       "recv_external",
			Params:     []funcast.Param{{Type: "slice", Name: "in_msg"}},
			Specifiers: []funcast.Specifier{funcast.Impure},
			Body:       ext,
		})
	}
	codegenLogger.Tracef("dispatch contract:%s receivers:%d fallback:%s external:%v\n",
		cd.Name, len(cd.Receivers), cd.Fallback, cd.HasExternal())
	return entries, nil
}

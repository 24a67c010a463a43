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

	"github.com/icon-project/btp2/common/errors"

	"github.com/icon-project/tact-funcgen/funcast"
	"github.com/icon-project/tact-funcgen/storage"
	"github.com/icon-project/tact-funcgen/types"
)

// writeSerializers emits pack and unpack routines for every type in
// dependency order. Types referenced before their definition get
// prototypes first.
func writeSerializers(c *Context) ([]funcast.Entry, error) {
	var entries []funcast.Entry
	optional := make(map[string]bool)
	for _, t := range optionalTypes(c.Program) {
		optional[t.Name] = true
	}
	var defs []funcast.Entry
	for _, t := range c.Sorted.Types {
		plan := c.Plan(t)
		if plan == nil {
			return nil, errors.Errorf("no allocation plan for %s", t.Name)
		}
		fns := []*funcast.Function{
			c.writer(plan),
			c.writeCell(t),
			c.reader(plan),
			c.readCell(t),
		}
		if optional[t.Name] {
			fns = append(fns, c.asOptional(t), c.notNull(t))
		}
		for _, f := range fns {
			if c.Sorted.Forward[t.Name] {
				entries = append(entries, f.Prototype())
			}
			defs = append(defs, f)
		}
		codegenLogger.Tracef("serializer type:%s segments:%d forward:%v\n",
			t.Name, len(plan.Segments), c.Sorted.Forward[t.Name])
	}
	return append(entries, defs...), nil
}

func (c *Context) specifiers(t *types.TypeDescriptor) []funcast.Specifier {
	if c.Sorted.Forward[t.Name] {
		return nil
	}
	return []funcast.Specifier{funcast.Inline}
}

func builderName(k int) string {
	return fmt.Sprintf("build_%d", k)
}

func sliceName(k int) string {
	return fmt.Sprintf("sc_%d", k)
}

func (c *Context) writer(plan *storage.Plan) *funcast.Function {
	t := plan.Type
	body := unpackVars("v", "v", t)
	if plan.Header > 0 {
		body = append(body, fmt.Sprintf("build_0 = build_0.store_uint(%d, %d);", t.Opcode, plan.Header))
	}
	for k, seg := range plan.Segments {
		b := builderName(k)
		if k > 0 {
			body = append(body, fmt.Sprintf("var %s = begin_cell();", b))
		}
		for _, s := range seg.Slots {
			body = append(body, c.writeField(b, "v'"+s.Field.Name, s.Field.Type)...)
		}
	}
	for k := len(plan.Segments) - 1; k > 0; k-- {
		parent := builderName(k - 1)
		body = append(body, fmt.Sprintf("%s = %s.store_ref(%s.end_cell());", parent, parent, builderName(k)))
	}
	body = append(body, "return build_0;")
	return &funcast.Function{
		Name: writerName(t.Name),
		Params: []funcast.Param{
			{Type: "builder", Name: "build_0"},
			{Type: c.TensorOf(t), Name: "v"},
		},
		Returns:    "builder",
		Specifiers: c.specifiers(t),
		Body:       body,
	}
}

func (c *Context) writeField(b, x string, ft *types.FieldType) []string {
	store := func(expr string) string {
		return fmt.Sprintf("%s = %s;", b, expr)
	}
	switch ft.Tag {
	case types.TBool:
		return []string{store(fmt.Sprintf("%s.store_int(%s, 1)", b, x))}
	case types.TUint:
		return []string{store(fmt.Sprintf("%s.store_uint(%s, %d)", b, x, ft.Bits))}
	case types.TInt:
		return []string{store(fmt.Sprintf("%s.store_int(%s, %d)", b, x, ft.Bits))}
	case types.TCoins:
		return []string{store(fmt.Sprintf("%s.store_coins(%s)", b, x))}
	case types.TAddress:
		return []string{store(fmt.Sprintf("__tact_store_address(%s, %s)", b, x))}
	case types.TSlice:
		return []string{store(fmt.Sprintf("%s.store_ref(begin_cell().store_slice(%s).end_cell())", b, x))}
	case types.TCell:
		return []string{store(fmt.Sprintf("%s.store_ref(%s)", b, x))}
	case types.TStruct:
		return []string{store(fmt.Sprintf("%s.store_ref(%s(%s))", b, writeCellName(ft.Struct.Name), x))}
	case types.TOptional:
		inner := ft.Inner
		if inner.Tag == types.TCell {
			return []string{store(fmt.Sprintf("%s.store_maybe_ref(%s)", b, x))}
		}
		value := x
		if inner.Tag == types.TStruct {
			value = fmt.Sprintf("%s(%s)", notNullName(inner.Struct.Name), x)
		}
		lines := []string{
			fmt.Sprintf("if (null?(%s)) {", x),
		}
		lines = append(lines, funcast.Block(store(fmt.Sprintf("%s.store_int(false, 1)", b)))...)
		lines = append(lines, "} else {")
		lines = append(lines, funcast.Block(store(fmt.Sprintf("%s.store_int(true, 1)", b)))...)
		lines = append(lines, funcast.Block(c.writeField(b, value, inner)...)...)
		return append(lines, "}")
	default:
		return []string{fmt.Sprintf(";; unsupported %s", ft)}
	}
}

func (c *Context) writeCell(t *types.TypeDescriptor) *funcast.Function {
	return &funcast.Function{
		Name:       writeCellName(t.Name),
		Params:     []funcast.Param{{Type: c.TensorOf(t), Name: "v"}},
		Returns:    "cell",
		Specifiers: c.specifiers(t),
		Body: []string{
			fmt.Sprintf("return %s(begin_cell(), v).end_cell();", writerName(t.Name)),
		},
	}
}

func (c *Context) reader(plan *storage.Plan) *funcast.Function {
	t := plan.Type
	var body []string
	if plan.Header > 0 {
		body = append(body, fmt.Sprintf("throw_unless(%d, sc_0~load_uint(%d) == %d);",
			exitInvalidOpcode, plan.Header, t.Opcode))
	}
	for k, seg := range plan.Segments {
		sc := sliceName(k)
		if k > 0 {
			body = append(body, fmt.Sprintf("slice %s = %s~load_ref().begin_parse();", sc, sliceName(k-1)))
		}
		for _, s := range seg.Slots {
			body = append(body, fmt.Sprintf("var v'%s = %s;", s.Field.Name, c.readExpr(sc, s.Field.Type)))
		}
	}
	for k := 1; k < len(plan.Segments); k++ {
		body = append(body, sliceName(k)+".end_parse();")
	}
	body = append(body, fmt.Sprintf("return (sc_0, (%s));", strings.Join(fieldVars("v", t), ", ")))
	return &funcast.Function{
		Name:       readerName(t.Name),
		Params:     []funcast.Param{{Type: "slice", Name: "sc_0"}},
		Returns:    fmt.Sprintf("(slice, (%s))", c.TensorOf(t)),
		Specifiers: c.specifiers(t),
		Body:       body,
	}
}

func (c *Context) readExpr(sc string, ft *types.FieldType) string {
	switch ft.Tag {
	case types.TBool:
		return sc + "~load_int(1)"
	case types.TUint:
		return fmt.Sprintf("%s~load_uint(%d)", sc, ft.Bits)
	case types.TInt:
		return fmt.Sprintf("%s~load_int(%d)", sc, ft.Bits)
	case types.TCoins:
		return sc + "~load_coins()"
	case types.TAddress:
		return sc + "~__tact_load_address()"
	case types.TSlice:
		return sc + "~load_ref().begin_parse()"
	case types.TCell:
		return sc + "~load_ref()"
	case types.TStruct:
		return fmt.Sprintf("%s(%s~load_ref())", readCellName(ft.Struct.Name), sc)
	case types.TOptional:
		inner := ft.Inner
		if inner.Tag == types.TCell {
			return sc + "~load_maybe_ref()"
		}
		value := c.readExpr(sc, inner)
		if inner.Tag == types.TStruct {
			value = fmt.Sprintf("%s(%s)", asOptionalName(inner.Struct.Name), value)
		}
		return fmt.Sprintf("%s~load_int(1) ? %s : null()", sc, value)
	default:
		return "null()"
	}
}

// readOwned parses a whole cell as a value of the type name. The cell
// must hold nothing else.
func readOwned(cell string, name string) []string {
	return []string{
		fmt.Sprintf("slice sc = %s.begin_parse();", cell),
		fmt.Sprintf("var v = sc~%s();", readerName(name)),
		"sc.end_parse();",
		"return v;",
	}
}

func (c *Context) readCell(t *types.TypeDescriptor) *funcast.Function {
	return &funcast.Function{
		Name:       readCellName(t.Name),
		Params:     []funcast.Param{{Type: "cell", Name: "c"}},
		Returns:    c.TensorOf(t),
		Specifiers: c.specifiers(t),
		Body:       readOwned("c", t.Name),
	}
}

func (c *Context) asOptional(t *types.TypeDescriptor) *funcast.Function {
	return &funcast.Function{
		Name:       asOptionalName(t.Name),
		Params:     []funcast.Param{{Type: c.TensorOf(t), Name: "v"}},
		Returns:    "tuple",
		Specifiers: []funcast.Specifier{funcast.Inline},
		Body: []string{
			fmt.Sprintf("return %s(v);", tupleCreateName(len(t.Fields))),
		},
	}
}

func (c *Context) notNull(t *types.TypeDescriptor) *funcast.Function {
	return &funcast.Function{
		Name:       notNullName(t.Name),
		Params:     []funcast.Param{{Type: "tuple", Name: "v"}},
		Returns:    c.TensorOf(t),
		Specifiers: []funcast.Specifier{funcast.Inline},
		Body: []string{
			fmt.Sprintf("throw_if(%d, null?(v));", exitNullValue),
			fmt.Sprintf("return %s(v);", tupleDestroyName(len(t.Fields))),
		},
	}
}

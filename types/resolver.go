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

package types

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/intconv"
	"github.com/icon-project/btp2/common/log"
)

var (
	resolverLogger = log.New()
)

func init() {
	resolverLogger.SetLevel(log.DebugLevel)
}

var (
	primitiveTypes = map[string]FieldType{
		"int":     {Tag: TInt, Bits: DefaultIntBits},
		"coins":   {Tag: TCoins},
		"address": {Tag: TAddress},
		"bool":    {Tag: TBool},
		"slice":   {Tag: TSlice},
		"cell":    {Tag: TCell},
	}
)

// Resolve builds the descriptor of every declared structured type and
// contract. It fails with ErrorCodeTypeNotFound when a field names an
// undeclared type and with ErrorCodeDuplicateOpcode when two messages share
// an opcode.
func Resolve(u *Universe) (*Program, error) {
	p := &Program{
		typeMap:     make(map[string]*TypeDescriptor),
		contractMap: make(map[string]*ContractDescriptor),
	}
	declare := func(name string, kind Kind) (*TypeDescriptor, error) {
		if name == "" {
			return nil, ErrorCodeInvalidType.New("empty type name")
		}
		if _, ok := primitiveTypes[name]; ok {
			return nil, ErrorCodeInvalidType.Errorf("type name %s shadows a primitive type", name)
		}
		if _, _, ok := parseWidth(name); ok {
			return nil, ErrorCodeInvalidType.Errorf("type name %s shadows an integer type", name)
		}
		if _, ok := p.typeMap[name]; ok {
			return nil, ErrorCodeDuplicateType.Errorf("duplicate type %s", name)
		}
		if kind == "" {
			kind = KindStruct
		}
		t := &TypeDescriptor{Name: name, Kind: kind}
		p.typeMap[name] = t
		p.Types = append(p.Types, t)
		return t, nil
	}
	for _, s := range u.Types {
		if _, err := declare(s.Name, s.Kind); err != nil {
			return nil, err
		}
	}
	for _, s := range u.Contracts {
		if _, err := declare(s.Name, KindContract); err != nil {
			return nil, err
		}
	}

	opcodes := make(map[uint32]string)
	for _, s := range u.Types {
		t := p.typeMap[s.Name]
		if err := p.resolveFields(t, s.Fields); err != nil {
			return nil, err
		}
		if t.IsMessage() {
			if s.Opcode != nil {
				t.Opcode = *s.Opcode
			} else {
				t.Opcode = OpcodeOf(t.Name)
			}
			if other, ok := opcodes[t.Opcode]; ok {
				return nil, ErrorCodeDuplicateOpcode.Errorf(
					"duplicate opcode %d of messages %s and %s", t.Opcode, other, t.Name)
			}
			opcodes[t.Opcode] = t.Name
		}
		resolverLogger.Tracef("TypeDescriptor resolve name:%s kind:%s fields:%v opcode:%d\n",
			t.Name, t.Kind, t.Fields, t.Opcode)
	}

	for i := range u.Contracts {
		c, err := p.resolveContract(&u.Contracts[i])
		if err != nil {
			return nil, err
		}
		p.Contracts = append(p.Contracts, c)
		p.contractMap[c.Name] = c
	}
	for i := range u.Functions {
		p.Functions = append(p.Functions, &u.Functions[i])
	}
	return p, nil
}

func (p *Program) resolveFields(t *TypeDescriptor, specs []NameAndTypeSpec) error {
	t.fieldMap = make(map[string]*FieldDescriptor)
	for _, s := range specs {
		f, err := p.resolveField(s)
		if err != nil {
			return errors.Wrapf(err, "in type %s", t.Name)
		}
		if _, ok := t.fieldMap[f.Name]; ok {
			return ErrorCodeInvalidType.Errorf("duplicate field %s in type %s", f.Name, t.Name)
		}
		t.Fields = append(t.Fields, f)
		t.fieldMap[f.Name] = f
	}
	return nil
}

func (p *Program) resolveField(s NameAndTypeSpec) (*FieldDescriptor, error) {
	if s.Name == "" {
		return nil, ErrorCodeInvalidType.New("empty field name")
	}
	ft, err := p.resolveType(s.Type.Name)
	if err != nil {
		return nil, err
	}
	if s.Optional {
		ft = &FieldType{Tag: TOptional, Inner: ft}
	}
	f := &FieldDescriptor{Name: s.Name, Type: ft, Optional: s.Optional, Default: s.Default}
	if f.HasDefault() {
		if _, err = ParseDefault(ft, s.Default); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (p *Program) resolveType(name string) (*FieldType, error) {
	if ft, ok := primitiveTypes[name]; ok {
		return &ft, nil
	}
	if tag, bits, ok := parseWidth(name); ok {
		max := MaxUintBits
		if tag == TInt {
			max = MaxIntBits
		}
		if bits < 1 || bits > max {
			return nil, ErrorCodeInvalidType.Errorf("invalid width of %s", name)
		}
		return &FieldType{Tag: tag, Bits: bits}, nil
	}
	t, ok := p.typeMap[name]
	if !ok {
		return nil, ErrorCodeTypeNotFound.Errorf("type %s not found", name)
	}
	if t.Kind == KindContract {
		return nil, ErrorCodeInvalidType.Errorf("contract %s used as field type", name)
	}
	return &FieldType{Tag: TStruct, Struct: t}, nil
}

// parseWidth recognizes uintN and intN.
func parseWidth(name string) (TypeTag, int, bool) {
	var tag TypeTag
	var digits string
	switch {
	case strings.HasPrefix(name, "uint"):
		tag, digits = TUint, name[len("uint"):]
	case strings.HasPrefix(name, "int"):
		tag, digits = TInt, name[len("int"):]
	default:
		return TUnknown, 0, false
	}
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return TUnknown, 0, false
	}
	bits, err := strconv.Atoi(digits)
	if err != nil {
		return TUnknown, 0, false
	}
	return tag, bits, true
}

// MaxCoinsBits is the widest coins amount, 15 bytes.
const MaxCoinsBits = 15 * 8

func inRange(ft *FieldType, v *big.Int) bool {
	switch ft.Tag {
	case TUint:
		return v.Sign() >= 0 && v.BitLen() <= ft.Bits
	case TCoins:
		return v.Sign() >= 0 && v.BitLen() <= MaxCoinsBits
	case TInt:
		limit := new(big.Int).Lsh(big.NewInt(1), uint(ft.Bits-1))
		return v.Cmp(new(big.Int).Neg(limit)) >= 0 && v.Cmp(limit) < 0
	default:
		return false
	}
}

// ParseDefault parses the default literal of a field. Integer kinds accept
// decimal or 0x-prefixed hex within the range of the type, bool accepts
// true or false.
func ParseDefault(ft *FieldType, s string) (*big.Int, error) {
	b := ft.Base()
	switch b.Tag {
	case TBool:
		switch s {
		case "true":
			return big.NewInt(-1), nil
		case "false":
			return big.NewInt(0), nil
		}
	case TUint, TInt, TCoins:
		v := new(big.Int)
		if err := intconv.ParseBigInt(v, s); err != nil {
			return nil, ErrorCodeInvalidType.Wrapf(err, "invalid default %q of %s", s, ft)
		}
		if !inRange(b, v) {
			return nil, ErrorCodeInvalidType.Errorf("default %s out of range of %s", v, ft)
		}
		return v, nil
	default:
		return nil, ErrorCodeInvalidType.Errorf("default not supported for %s", ft)
	}
	return nil, ErrorCodeInvalidType.Errorf("invalid default %q of %s", s, ft)
}

func (p *Program) resolveContract(s *ContractSpec) (*ContractDescriptor, error) {
	t := p.typeMap[s.Name]
	if err := p.resolveFields(t, s.Fields); err != nil {
		return nil, err
	}
	c := &ContractDescriptor{
		Name:        s.Name,
		Storage:     t,
		Fallback:    s.Fallback,
		Includes:    s.Includes,
		functionMap: make(map[string]*FunctionSpec),
	}
	for _, is := range s.Init {
		f, err := p.resolveField(is)
		if err != nil {
			return nil, errors.Wrapf(err, "in init of contract %s", s.Name)
		}
		c.Init = append(c.Init, f)
	}
	for i := range s.Functions {
		fs := &s.Functions[i]
		if _, ok := c.functionMap[fs.Name]; ok {
			return nil, ErrorCodeDuplicateType.Errorf("duplicate function %s in contract %s", fs.Name, s.Name)
		}
		c.Functions = append(c.Functions, fs)
		c.functionMap[fs.Name] = fs
	}
	seen := make(map[string]bool)
	for _, rs := range s.Receivers {
		m, ok := p.typeMap[rs.Message]
		if !ok {
			return nil, ErrorCodeTypeNotFound.Errorf("message %s of contract %s not found", rs.Message, s.Name)
		}
		if !m.IsMessage() {
			return nil, ErrorCodeInvalidType.Errorf("receiver of contract %s takes non-message type %s", s.Name, m.Name)
		}
		if seen[m.Name] {
			return nil, ErrorCodeInvalidType.Errorf("duplicate receiver of %s in contract %s", m.Name, s.Name)
		}
		seen[m.Name] = true
		c.Receivers = append(c.Receivers, &Receiver{Message: m, Handler: rs.Handler, External: rs.External})
	}
	resolverLogger.Tracef("ContractDescriptor resolve name:%s init:%v receivers:%d functions:%d\n",
		c.Name, c.Init, len(c.Receivers), len(c.Functions))
	return c, nil
}

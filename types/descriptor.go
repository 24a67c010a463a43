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
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

type TypeTag int

const (
	TUnknown TypeTag = iota
	TUint
	TInt
	TCoins
	TAddress
	TBool
	TSlice
	TCell
	TStruct
	TOptional
)

var (
	typeTagNames = []string{"Unknown", "Uint", "Int", "Coins", "Address", "Bool", "Slice", "Cell", "Struct", "Optional"}
)

func (t TypeTag) String() string {
	if int(t) < len(typeTagNames) {
		return typeTagNames[t]
	}
	return fmt.Sprintf("TypeTag(%d)", int(t))
}

const (
	MaxUintBits    = 256
	MaxIntBits     = 257
	OpcodeBits     = 32
	DefaultIntBits = MaxIntBits
)

// FieldType is the resolved type of a field. Bits is fixed for TUint and TInt,
// Struct is set for TStruct and Inner for TOptional.
type FieldType struct {
	Tag    TypeTag
	Bits   int
	Struct *TypeDescriptor
	Inner  *FieldType
}

// Base returns the type wrapped by an optional, or the type itself.
func (t *FieldType) Base() *FieldType {
	if t.Tag == TOptional {
		return t.Inner
	}
	return t
}

func (t *FieldType) IsOptional() bool {
	return t.Tag == TOptional
}

// IsInteger reports whether values of the type are integers on the stack.
func (t *FieldType) IsInteger() bool {
	switch t.Tag {
	case TUint, TInt, TCoins, TBool:
		return true
	default:
		return false
	}
}

func (t *FieldType) String() string {
	switch t.Tag {
	case TUint:
		return fmt.Sprintf("uint%d", t.Bits)
	case TInt:
		return fmt.Sprintf("int%d", t.Bits)
	case TCoins:
		return "coins"
	case TAddress:
		return "address"
	case TBool:
		return "bool"
	case TSlice:
		return "slice"
	case TCell:
		return "cell"
	case TStruct:
		return t.Struct.Name
	case TOptional:
		return t.Inner.String() + "?"
	default:
		return t.Tag.String()
	}
}

type FieldDescriptor struct {
	Name     string
	Type     *FieldType
	Optional bool
	// Default is the literal applied by the initializer when no value is given.
	Default string
}

func (f *FieldDescriptor) HasDefault() bool {
	return f.Default != ""
}

func (f *FieldDescriptor) String() string {
	return f.Name + ":" + f.Type.String()
}

type TypeDescriptor struct {
	Name   string
	Kind   Kind
	Fields []*FieldDescriptor
	Opcode uint32

	fieldMap map[string]*FieldDescriptor
}

func (t *TypeDescriptor) IsMessage() bool {
	return t.Kind == KindMessage
}

func (t *TypeDescriptor) Field(name string) (*FieldDescriptor, bool) {
	f, ok := t.fieldMap[name]
	return f, ok
}

// Dependency is an edge to a structured type used by a field.
type Dependency struct {
	Field    *FieldDescriptor
	Type     *TypeDescriptor
	Optional bool
}

// Dependencies returns the structured types referenced by fields in
// declared order.
func (t *TypeDescriptor) Dependencies() []Dependency {
	var deps []Dependency
	for _, f := range t.Fields {
		if b := f.Type.Base(); b.Tag == TStruct {
			deps = append(deps, Dependency{Field: f, Type: b.Struct, Optional: f.Type.IsOptional()})
		}
	}
	return deps
}

type Receiver struct {
	Message  *TypeDescriptor
	Handler  string
	External bool
}

type ContractDescriptor struct {
	Name      string
	Storage   *TypeDescriptor
	Init      []*FieldDescriptor
	Receivers []*Receiver
	Fallback  string
	Includes  []string
	Functions []*FunctionSpec

	functionMap map[string]*FunctionSpec
}

func (c *ContractDescriptor) Function(name string) (*FunctionSpec, bool) {
	f, ok := c.functionMap[name]
	return f, ok
}

func (c *ContractDescriptor) HasExternal() bool {
	for _, r := range c.Receivers {
		if r.External {
			return true
		}
	}
	return false
}

// Program is the resolved universe. Types holds every structured type in
// declaration order followed by the contract storage records.
type Program struct {
	Types     []*TypeDescriptor
	Contracts []*ContractDescriptor
	Functions []*FunctionSpec

	typeMap     map[string]*TypeDescriptor
	contractMap map[string]*ContractDescriptor
}

func (p *Program) Type(name string) (*TypeDescriptor, bool) {
	t, ok := p.typeMap[name]
	return t, ok
}

func (p *Program) Contract(name string) (*ContractDescriptor, bool) {
	c, ok := p.contractMap[name]
	return c, ok
}

func (p *Program) Messages() []*TypeDescriptor {
	var ret []*TypeDescriptor
	for _, t := range p.Types {
		if t.IsMessage() {
			ret = append(ret, t)
		}
	}
	return ret
}

// OpcodeOf derives the opcode of a message without an explicit one:
// the first four bytes of Keccak-256 of the name, big-endian.
func OpcodeOf(name string) uint32 {
	return binary.BigEndian.Uint32(crypto.Keccak256([]byte(name))[:4])
}

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

package contract

import (
	"math/big"
	"reflect"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/tact-funcgen/cell"
	"github.com/icon-project/tact-funcgen/codec"
	"github.com/icon-project/tact-funcgen/types"
)

type StackItemType string

const (
	StackInt     StackItemType = "int"
	StackBool    StackItemType = "bool"
	StackCell    StackItemType = "cell"
	StackSlice   StackItemType = "slice"
	StackAddress StackItemType = "address"
	StackNull    StackItemType = "null"
)

// StackItem is a typed value passed to the deploy interface.
type StackItem struct {
	Type  StackItemType `json:"type" validate:"required,oneof=int bool cell slice address null"`
	Value interface{}   `json:"value,omitempty"`
}

func MustStackItemOf(value interface{}) StackItem {
	ret, err := StackItemOf(value)
	if err != nil {
		log.Panicf("fail to StackItemOf err:%v", err)
	}
	return ret
}

// StackItemOf infers the stack type of a Go value.
func StackItemOf(value interface{}) (StackItem, error) {
	switch v := value.(type) {
	case nil:
		return StackItem{Type: StackNull}, nil
	case StackItem:
		return v, nil
	case codec.Boolean, bool:
		b, err := codec.BooleanOf(v)
		return StackItem{Type: StackBool, Value: b}, err
	case cell.Address, *cell.Address:
		a, err := codec.AddressOf(v)
		return StackItem{Type: StackAddress, Value: a}, err
	case *cell.Cell:
		return StackItem{Type: StackCell, Value: v}, nil
	case *cell.Slice:
		return StackItem{Type: StackSlice, Value: v.ToCell()}, nil
	case codec.Integer, big.Int, *big.Int:
		i, err := codec.IntegerOf(v)
		return StackItem{Type: StackInt, Value: i}, err
	default:
		rv := reflect.ValueOf(value)
		if rv.CanInt() || rv.CanUint() {
			i, err := codec.IntegerOf(v)
			return StackItem{Type: StackInt, Value: i}, err
		}
		return StackItem{}, errors.Errorf("not supported type %T", value)
	}
}

// valueOf converts the item to the codec value of the field type.
func (s StackItem) valueOf(c *codec.Codec, ft *types.FieldType) (interface{}, error) {
	if s.Type == StackNull {
		if !ft.IsOptional() {
			return nil, ErrorCodeInvalidStack.Errorf("null for %s", ft)
		}
		return nil, nil
	}
	b := ft.Base()
	switch b.Tag {
	case types.TUint, types.TInt, types.TCoins:
		if s.Type != StackInt {
			break
		}
		return codec.IntegerOf(s.Value)
	case types.TBool:
		switch s.Type {
		case StackBool:
			return codec.BooleanOf(s.Value)
		case StackInt:
			i, err := codec.IntegerOf(s.Value)
			if err != nil {
				return nil, err
			}
			bi, err := i.AsBigInt()
			if err != nil {
				return nil, err
			}
			return codec.Boolean(bi.Sign() != 0), nil
		}
	case types.TAddress:
		if s.Type != StackAddress && s.Type != StackSlice {
			break
		}
		if sc, ok := s.Value.(*cell.Cell); ok {
			return sc.BeginParse().LoadAddress()
		}
		return codec.AddressOf(s.Value)
	case types.TSlice:
		if s.Type != StackSlice {
			break
		}
		return codec.CellOf(s.Value)
	case types.TCell:
		if s.Type != StackCell {
			break
		}
		return codec.CellOf(s.Value)
	case types.TStruct:
		if s.Type != StackCell {
			break
		}
		v, err := codec.CellOf(s.Value)
		if err != nil {
			return nil, err
		}
		return c.Unpack(b.Struct.Name, v)
	}
	return nil, ErrorCodeInvalidStack.Errorf("stack item %s for %s", s.Type, ft)
}

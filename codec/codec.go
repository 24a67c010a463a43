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

package codec

import (
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/tact-funcgen/cell"
	"github.com/icon-project/tact-funcgen/storage"
	"github.com/icon-project/tact-funcgen/types"
)

var (
	codecLogger = log.New()
)

func init() {
	codecLogger.SetLevel(log.DebugLevel)
}

// Codec packs and unpacks values of the structured types of a program with
// the same allocation plans the generated serializers use.
type Codec struct {
	p     *types.Program
	plans map[string]*storage.Plan
}

func NewCodec(p *types.Program) (*Codec, error) {
	c := &Codec{
		p:     p,
		plans: make(map[string]*storage.Plan),
	}
	for _, t := range p.Types {
		plan, err := storage.Allocate(t)
		if err != nil {
			return nil, err
		}
		c.plans[t.Name] = plan
	}
	return c, nil
}

func (c *Codec) Program() *types.Program {
	return c.p
}

func (c *Codec) Plan(name string) (*storage.Plan, error) {
	plan, ok := c.plans[name]
	if !ok {
		return nil, types.ErrorCodeTypeNotFound.Errorf("type %s not found", name)
	}
	return plan, nil
}

// Pack encodes value as the type name. A message starts with its opcode.
func (c *Codec) Pack(name string, value interface{}) (*cell.Cell, error) {
	plan, err := c.Plan(name)
	if err != nil {
		return nil, err
	}
	s, err := StructOf(name, value)
	if err != nil {
		return nil, cell.ErrorCodeMalformedInput.Wrapf(err, "fail to pack %s", name)
	}
	for _, f := range s.Fields {
		if _, ok := plan.Type.Field(f.Key); !ok {
			return nil, cell.ErrorCodeMalformedInput.Errorf("unknown field %s.%s", name, f.Key)
		}
	}
	codecLogger.Traceln("Pack", name, s.Fields)
	builders := make([]*cell.Builder, len(plan.Segments))
	for i, seg := range plan.Segments {
		b := cell.NewBuilder()
		if i == 0 && plan.Header > 0 {
			if err = b.StoreUint64(uint64(plan.Type.Opcode), plan.Header); err != nil {
				return nil, err
			}
		}
		for _, slot := range seg.Slots {
			v, ok := s.Get(slot.Field.Name)
			if !ok && !slot.Field.Optional {
				return nil, cell.ErrorCodeMalformedInput.Errorf("missing field %s.%s", name, slot.Field.Name)
			}
			if err = c.encode(b, slot.Field.Type, v); err != nil {
				return nil, errors.Wrapf(err, "fail to pack %s.%s", name, slot.Field.Name)
			}
		}
		builders[i] = b
	}
	var next *cell.Cell
	for i := len(builders) - 1; i >= 0; i-- {
		if next != nil {
			if err = builders[i].StoreRef(next); err != nil {
				return nil, err
			}
		}
		next = builders[i].EndCell()
	}
	return next, nil
}

func (c *Codec) encode(b *cell.Builder, ft *types.FieldType, v interface{}) error {
	switch ft.Tag {
	case types.TOptional:
		if v == nil {
			return b.StoreBit(false)
		}
		if err := b.StoreBit(true); err != nil {
			return err
		}
		return c.encode(b, ft.Inner, v)
	case types.TBool:
		bv, err := BooleanOf(v)
		if err != nil {
			return cell.ErrorCodeMalformedInput.Wrapf(err, "invalid bool")
		}
		return b.StoreBit(bool(bv))
	case types.TUint, types.TInt, types.TCoins:
		iv, err := IntegerOf(v)
		if err != nil {
			return cell.ErrorCodeMalformedInput.Wrapf(err, "invalid %s", ft)
		}
		bi, err := iv.AsBigInt()
		if err != nil {
			return cell.ErrorCodeMalformedInput.Wrapf(err, "invalid %s", ft)
		}
		switch ft.Tag {
		case types.TUint:
			return b.StoreUint(bi, ft.Bits)
		case types.TInt:
			return b.StoreInt(bi, ft.Bits)
		default:
			return b.StoreCoins(bi)
		}
	case types.TAddress:
		a, err := AddressOf(v)
		if err != nil {
			return cell.ErrorCodeMalformedInput.Wrapf(err, "invalid address")
		}
		return b.StoreAddress(a)
	case types.TSlice, types.TCell:
		cv, err := CellOf(v)
		if err != nil {
			return cell.ErrorCodeMalformedInput.Wrapf(err, "invalid %s", ft)
		}
		return b.StoreRef(cv)
	case types.TStruct:
		cv, err := c.Pack(ft.Struct.Name, v)
		if err != nil {
			return err
		}
		return b.StoreRef(cv)
	default:
		return errors.Errorf("not supported type %s", ft)
	}
}

// Unpack decodes a value of the type name, verifying the opcode of a
// message first. Every container of the value must be consumed entirely.
func (c *Codec) Unpack(name string, v *cell.Cell) (*Struct, error) {
	return c.unpack(name, v, true)
}

// UnpackBody decodes an inbound message body. Data following the fields in
// the first container is ignored, as the generated dispatcher does.
func (c *Codec) UnpackBody(name string, body *cell.Cell) (*Struct, error) {
	return c.unpack(name, body, false)
}

func (c *Codec) unpack(name string, v *cell.Cell, exact bool) (*Struct, error) {
	plan, err := c.Plan(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, cell.ErrorCodeMalformedInput.Errorf("no data for %s", name)
	}
	return c.read(plan, v.BeginParse(), exact)
}

func ensureConsumed(sl *cell.Slice, t *types.TypeDescriptor, seg int) error {
	if !sl.Empty() {
		return cell.ErrorCodeMalformedInput.Errorf(
			"trailing data in segment %d of %s bits:%d refs:%d", seg, t.Name, sl.BitsLeft(), sl.RefsLeft())
	}
	return nil
}

// read decodes the segments of plan. Continuation segments are owned by the
// value and must be consumed; the first one only when exact is set.
func (c *Codec) read(plan *storage.Plan, sl *cell.Slice, exact bool) (*Struct, error) {
	t := plan.Type
	if plan.Header > 0 {
		op, err := sl.LoadUint64(plan.Header)
		if err != nil {
			return nil, err
		}
		if uint32(op) != t.Opcode {
			return nil, cell.ErrorCodeMalformedInput.Errorf(
				"opcode mismatch of %s expected:%d actual:%d", t.Name, t.Opcode, op)
		}
	}
	s := &Struct{Name: t.Name, Fields: make([]KeyValue, 0, len(t.Fields))}
	for i, seg := range plan.Segments {
		if i > 0 {
			next, err := sl.LoadRef()
			if err != nil {
				return nil, errors.Wrapf(err, "fail to load continuation of %s", t.Name)
			}
			if i > 1 || exact {
				if err = ensureConsumed(sl, t, i-1); err != nil {
					return nil, err
				}
			}
			sl = next.BeginParse()
		}
		for _, slot := range seg.Slots {
			v, err := c.decode(sl, slot.Field.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "fail to unpack %s.%s", t.Name, slot.Field.Name)
			}
			s.Fields = append(s.Fields, KeyValue{Key: slot.Field.Name, Value: v})
		}
	}
	if len(plan.Segments) > 1 || exact {
		if err := ensureConsumed(sl, t, len(plan.Segments)-1); err != nil {
			return nil, err
		}
	}
	codecLogger.Traceln("Unpack", t.Name, s.Fields)
	return s, nil
}

func (c *Codec) decode(sl *cell.Slice, ft *types.FieldType) (interface{}, error) {
	switch ft.Tag {
	case types.TOptional:
		present, err := sl.LoadBit()
		if err != nil || !present {
			return nil, err
		}
		return c.decode(sl, ft.Inner)
	case types.TBool:
		v, err := sl.LoadBit()
		if err != nil {
			return nil, err
		}
		return Boolean(v), nil
	case types.TUint:
		v, err := sl.LoadUint(ft.Bits)
		if err != nil {
			return nil, err
		}
		return FromBigInt(v), nil
	case types.TInt:
		v, err := sl.LoadInt(ft.Bits)
		if err != nil {
			return nil, err
		}
		return FromBigInt(v), nil
	case types.TCoins:
		v, err := sl.LoadCoins()
		if err != nil {
			return nil, err
		}
		return FromBigInt(v), nil
	case types.TAddress:
		return sl.LoadAddress()
	case types.TSlice, types.TCell:
		return sl.LoadRef()
	case types.TStruct:
		r, err := sl.LoadRef()
		if err != nil {
			return nil, err
		}
		plan, err := c.Plan(ft.Struct.Name)
		if err != nil {
			return nil, err
		}
		return c.read(plan, r.BeginParse(), true)
	default:
		return nil, errors.Errorf("not supported type %s", ft)
	}
}

// OpcodeOf reads the leading opcode of a message body without consuming it.
func OpcodeOf(body *cell.Cell) (uint32, bool) {
	if body == nil || body.BitLen() < types.OpcodeBits {
		return 0, false
	}
	v, err := body.BeginParse().PreloadUint(types.OpcodeBits)
	if err != nil {
		return 0, false
	}
	return uint32(v.Uint64()), true
}

// DefaultOf returns the value of the default literal of f.
func DefaultOf(f *types.FieldDescriptor) (interface{}, error) {
	v, err := types.ParseDefault(f.Type, f.Default)
	if err != nil {
		return nil, err
	}
	if f.Type.Base().Tag == types.TBool {
		return Boolean(v.Sign() != 0), nil
	}
	return FromBigInt(v), nil
}

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

package storage

import (
	"fmt"
	"strings"

	"github.com/icon-project/tact-funcgen/cell"
	"github.com/icon-project/tact-funcgen/types"
)

// Every segment keeps the last reference slot for its continuation.
const (
	SegmentBits = cell.MaxBits
	SegmentRefs = cell.MaxRefs - 1
)

// SizeOf returns the maximum number of bits and references a value of ft
// occupies in its container.
func SizeOf(ft *types.FieldType) (bits, refs int) {
	switch ft.Tag {
	case types.TBool:
		return 1, 0
	case types.TUint, types.TInt:
		return ft.Bits, 0
	case types.TCoins:
		return cell.CoinsBits, 0
	case types.TAddress:
		return cell.AddressBits, 0
	case types.TSlice, types.TCell, types.TStruct:
		return 0, 1
	case types.TOptional:
		bits, refs = SizeOf(ft.Inner)
		return bits + 1, refs
	default:
		return 0, 0
	}
}

type Slot struct {
	Field *types.FieldDescriptor
	Bits  int
	Refs  int
}

type Segment struct {
	Slots []Slot
	Bits  int
	Refs  int
}

func (s *Segment) fits(bits, refs, budget int) bool {
	return s.Bits+bits <= budget && s.Refs+refs <= SegmentRefs
}

// Plan places the fields of a type into a chain of segments. Segment i+1
// is stored as the last reference of segment i. Header is the opcode width
// reserved at the start of the first segment.
type Plan struct {
	Type     *types.TypeDescriptor
	Header   int
	Segments []*Segment
}

// Allocate places fields greedily in declared order, opening a continuation
// segment whenever the next field does not fit the current one.
func Allocate(t *types.TypeDescriptor) (*Plan, error) {
	p := &Plan{Type: t}
	if t.IsMessage() {
		p.Header = types.OpcodeBits
	}
	seg := &Segment{}
	p.Segments = append(p.Segments, seg)
	budget := SegmentBits - p.Header
	for _, f := range t.Fields {
		bits, refs := SizeOf(f.Type)
		if bits > SegmentBits || refs > SegmentRefs {
			return nil, cell.ErrorCodeContainerOverflow.Errorf(
				"field %s.%s does not fit a container bits:%d refs:%d", t.Name, f.Name, bits, refs)
		}
		if !seg.fits(bits, refs, budget) {
			seg = &Segment{}
			p.Segments = append(p.Segments, seg)
			budget = SegmentBits
		}
		seg.Slots = append(seg.Slots, Slot{Field: f, Bits: bits, Refs: refs})
		seg.Bits += bits
		seg.Refs += refs
	}
	storageLogger.Tracef("Allocate %s\n", p)
	return p, nil
}

// AllocateAll returns the plans of s.Types in the same order.
func AllocateAll(s *SortedTypes) ([]*Plan, error) {
	plans := make([]*Plan, 0, len(s.Types))
	for _, t := range s.Types {
		p, err := Allocate(t)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (p *Plan) String() string {
	sb := &strings.Builder{}
	sb.WriteString(p.Type.Name)
	if p.Header > 0 {
		fmt.Fprintf(sb, " opcode:%d", p.Type.Opcode)
	}
	for i, seg := range p.Segments {
		fmt.Fprintf(sb, " [%d bits:%d refs:%d", i, seg.Bits+p.headerOf(i), seg.Refs)
		for _, s := range seg.Slots {
			fmt.Fprintf(sb, " %s", s.Field)
		}
		sb.WriteString("]")
	}
	return sb.String()
}

func (p *Plan) headerOf(i int) int {
	if i == 0 {
		return p.Header
	}
	return 0
}

// SegmentLayout is the JSON view of a segment.
type SegmentLayout struct {
	Bits   int      `json:"bits"`
	Refs   int      `json:"refs"`
	Fields []string `json:"fields"`
}

type Layout struct {
	Name     string          `json:"name"`
	Kind     types.Kind      `json:"kind"`
	Opcode   *uint32         `json:"opcode,omitempty"`
	Segments []SegmentLayout `json:"segments"`
}

func (p *Plan) Layout() Layout {
	l := Layout{Name: p.Type.Name, Kind: p.Type.Kind}
	if p.Type.IsMessage() {
		op := p.Type.Opcode
		l.Opcode = &op
	}
	for i, seg := range p.Segments {
		sl := SegmentLayout{Bits: seg.Bits + p.headerOf(i), Refs: seg.Refs}
		if i < len(p.Segments)-1 {
			sl.Refs++
		}
		for _, s := range seg.Slots {
			sl.Fields = append(sl.Fields, s.Field.String())
		}
		l.Segments = append(l.Segments, sl)
	}
	return l
}

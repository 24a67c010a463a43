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

package cell

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/xssnick/tonutils-go/tvm/cell"
)

const (
	MaxBits  = 1023
	MaxRefs  = 4
	MaxDepth = 1024
)

// Cell is an immutable container of up to MaxBits bits and MaxRefs
// references to other cells.
type Cell struct {
	c     *cell.Cell
	refs  []*Cell
	depth int
}

var emptyCell = &Cell{c: cell.BeginCell().EndCell()}

// Empty returns the cell without data and references.
func Empty() *Cell {
	return emptyCell
}

func newCell(c *cell.Cell, refs []*Cell) *Cell {
	d := 0
	for _, r := range refs {
		if r.depth+1 > d {
			d = r.depth + 1
		}
	}
	return &Cell{c: c, refs: refs, depth: d}
}

func (c *Cell) BitLen() int {
	return int(c.c.BitsSize())
}

func (c *Cell) RefCount() int {
	return len(c.refs)
}

func (c *Cell) Ref(i int) *Cell {
	return c.refs[i]
}

// Data returns the data bits, padded with zero bits up to the byte boundary.
func (c *Cell) Data() []byte {
	if c.c.BitsSize() == 0 {
		return []byte{}
	}
	b, err := c.c.BeginParse().LoadSlice(c.c.BitsSize())
	if err != nil {
		return nil
	}
	return b
}

func (c *Cell) BeginParse() *Slice {
	return &Slice{owner: c, s: c.c.BeginParse()}
}

// Depth is zero for a cell without references, otherwise one more than the
// deepest reference.
func (c *Cell) Depth() int {
	return c.depth
}

// Hash returns the representation hash of an ordinary cell.
func (c *Cell) Hash() []byte {
	return c.c.Hash()
}

// BOC serializes the cell tree as a bag of cells.
func (c *Cell) BOC() []byte {
	return c.c.ToBOC()
}

func (c *Cell) Equal(o *Cell) bool {
	if c == o {
		return true
	}
	if c == nil || o == nil {
		return false
	}
	return bytes.Equal(c.Hash(), o.Hash())
}

// String dumps the cell tree, one cell per line, indented by depth.
func (c *Cell) String() string {
	sb := &strings.Builder{}
	c.dump(sb, 0)
	return strings.TrimSuffix(sb.String(), "\n")
}

func (c *Cell) dump(sb *strings.Builder, indent int) {
	sb.WriteString(strings.Repeat(" ", indent))
	sb.WriteString("x{")
	sb.WriteString(hexBits(c.Data(), c.BitLen()))
	sb.WriteString("}\n")
	for _, r := range c.refs {
		r.dump(sb, indent+1)
	}
}

func hexBits(data []byte, bitLen int) string {
	s := strings.ToUpper(hex.EncodeToString(data))
	nibbles := (bitLen + 3) / 4
	s = s[:nibbles]
	if rem := bitLen % 4; rem != 0 {
		last := hexNibble(s[nibbles-1])
		last |= 1 << (3 - rem)
		s = s[:nibbles-1] + strings.ToUpper(hex.EncodeToString([]byte{last}))[1:] + "_"
	}
	return s
}

func hexNibble(ch byte) byte {
	switch {
	case ch >= '0' && ch <= '9':
		return ch - '0'
	default:
		return ch - 'A' + 10
	}
}

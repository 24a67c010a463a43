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
	"math/big"

	"github.com/icon-project/btp2/common/errors"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// CoinsBits is the largest encoding of a coins amount: a 4-bit byte length
// followed by up to 15 bytes.
const (
	coinsLenBits  = 4
	coinsMaxBytes = 15
	CoinsBits     = coinsLenBits + coinsMaxBytes*8
)

// chunkBits is the widest integer stored or loaded in one step.
const chunkBits = 64

type Builder struct {
	b    *cell.Builder
	refs []*Cell
}

func NewBuilder() *Builder {
	return &Builder{b: cell.BeginCell()}
}

func (b *Builder) BitLen() int {
	return int(b.b.BitsUsed())
}

func (b *Builder) RefCount() int {
	return len(b.refs)
}

func (b *Builder) BitsLeft() int {
	return MaxBits - b.BitLen()
}

func (b *Builder) RefsLeft() int {
	return MaxRefs - len(b.refs)
}

func (b *Builder) ensureBits(n int) error {
	if n > b.BitsLeft() {
		return ErrorCodeContainerOverflow.Errorf(
			"bits overflow, used:%d requested:%d max:%d", b.BitLen(), n, MaxBits)
	}
	return nil
}

func overflow(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithCode(err, ErrorCodeContainerOverflow)
}

func (b *Builder) StoreBit(v bool) error {
	if err := b.ensureBits(1); err != nil {
		return err
	}
	return overflow(b.b.StoreBoolBit(v))
}

// StoreBits appends the first n bits of data.
func (b *Builder) StoreBits(data []byte, n int) error {
	if err := b.ensureBits(n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return overflow(b.b.StoreSlice(data, uint(n)))
}

// storeChunks appends a non-negative v in big-endian chunks.
func (b *Builder) storeChunks(v *big.Int, bits int) error {
	mask := new(big.Int).SetUint64(^uint64(0))
	for bits > 0 {
		n := bits % chunkBits
		if n == 0 {
			n = chunkBits
		}
		bits -= n
		chunk := new(big.Int).Rsh(v, uint(bits))
		if err := b.b.StoreUInt(chunk.And(chunk, mask).Uint64(), uint(n)); err != nil {
			return overflow(err)
		}
	}
	return nil
}

// StoreUint appends v as an unsigned big-endian integer of the given width.
func (b *Builder) StoreUint(v *big.Int, bits int) error {
	if v.Sign() < 0 || v.BitLen() > bits {
		return ErrorCodeMalformedInput.Errorf("uint%d out of range value:%s", bits, v.String())
	}
	if err := b.ensureBits(bits); err != nil {
		return err
	}
	return b.storeChunks(v, bits)
}

func (b *Builder) StoreUint64(v uint64, bits int) error {
	return b.StoreUint(new(big.Int).SetUint64(v), bits)
}

// StoreInt appends v in two's complement of the given width.
func (b *Builder) StoreInt(v *big.Int, bits int) error {
	if bits < 1 {
		return ErrorCodeMalformedInput.Errorf("invalid int width %d", bits)
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	min := new(big.Int).Neg(limit)
	if v.Cmp(min) < 0 || v.Cmp(limit) >= 0 {
		return ErrorCodeMalformedInput.Errorf("int%d out of range value:%s", bits, v.String())
	}
	u := new(big.Int).Set(v)
	if u.Sign() < 0 {
		u.Add(u, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	}
	return b.StoreUint(u, bits)
}

// StoreCoins appends a variable-length unsigned amount: the byte length in
// 4 bits followed by the value in that many bytes.
func (b *Builder) StoreCoins(v *big.Int) error {
	if v.Sign() < 0 || v.BitLen() > coinsMaxBytes*8 {
		return ErrorCodeMalformedInput.Errorf("coins out of range value:%s", v.String())
	}
	if err := b.ensureBits(coinsLenBits + (v.BitLen()+7)/8*8); err != nil {
		return err
	}
	return overflow(b.b.StoreBigCoins(v))
}

func (b *Builder) StoreAddress(a Address) error {
	if err := b.ensureBits(AddressBits); err != nil {
		return err
	}
	return overflow(b.b.StoreAddr(a.toAddr()))
}

func (b *Builder) StoreRef(c *Cell) error {
	if len(b.refs) >= MaxRefs {
		return ErrorCodeContainerOverflow.Errorf("refs overflow, max:%d", MaxRefs)
	}
	if c.Depth()+1 > MaxDepth {
		return ErrorCodeContainerOverflow.Errorf("depth overflow, max:%d", MaxDepth)
	}
	if err := b.b.StoreRef(c.c); err != nil {
		return overflow(err)
	}
	b.refs = append(b.refs, c)
	return nil
}

// StoreSlice appends the remaining bits and references of s.
func (b *Builder) StoreSlice(s *Slice) error {
	n := s.BitsLeft()
	if err := b.ensureBits(n); err != nil {
		return err
	}
	if len(b.refs)+s.RefsLeft() > MaxRefs {
		return ErrorCodeContainerOverflow.Errorf("refs overflow, max:%d", MaxRefs)
	}
	bits, err := s.s.Copy().LoadSlice(uint(n))
	if err != nil {
		return errors.WithCode(err, ErrorCodeMalformedInput)
	}
	if err = b.StoreBits(bits, n); err != nil {
		return err
	}
	for _, r := range s.owner.refs[s.refPos:] {
		if err = b.StoreRef(r); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) EndCell() *Cell {
	refs := make([]*Cell, len(b.refs))
	copy(refs, b.refs)
	return newCell(b.b.EndCell(), refs)
}

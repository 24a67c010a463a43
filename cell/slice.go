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

// Slice is a read cursor over a cell.
type Slice struct {
	owner  *Cell
	s      *cell.Slice
	refPos int
}

func (s *Slice) BitsLeft() int {
	return int(s.s.BitsLeft())
}

func (s *Slice) RefsLeft() int {
	return len(s.owner.refs) - s.refPos
}

func (s *Slice) ensureBits(n int) error {
	if n > s.BitsLeft() {
		return ErrorCodeMalformedInput.Errorf(
			"read past end of container, requested:%d left:%d", n, s.BitsLeft())
	}
	return nil
}

func malformed(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithCode(err, ErrorCodeMalformedInput)
}

func (s *Slice) LoadBit() (bool, error) {
	if err := s.ensureBits(1); err != nil {
		return false, err
	}
	v, err := s.s.LoadBoolBit()
	return v, malformed(err)
}

func loadChunks(s *cell.Slice, bits int) (*big.Int, error) {
	v := new(big.Int)
	for bits > 0 {
		n := bits % chunkBits
		if n == 0 {
			n = chunkBits
		}
		bits -= n
		chunk, err := s.LoadUInt(uint(n))
		if err != nil {
			return nil, malformed(err)
		}
		v.Lsh(v, uint(n))
		v.Or(v, new(big.Int).SetUint64(chunk))
	}
	return v, nil
}

func (s *Slice) PreloadUint(bits int) (*big.Int, error) {
	if err := s.ensureBits(bits); err != nil {
		return nil, err
	}
	return loadChunks(s.s.Copy(), bits)
}

func (s *Slice) LoadUint(bits int) (*big.Int, error) {
	if err := s.ensureBits(bits); err != nil {
		return nil, err
	}
	return loadChunks(s.s, bits)
}

func (s *Slice) LoadUint64(bits int) (uint64, error) {
	if bits > 64 {
		return 0, ErrorCodeMalformedInput.Errorf("uint%d does not fit uint64", bits)
	}
	v, err := s.LoadUint(bits)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

func (s *Slice) LoadInt(bits int) (*big.Int, error) {
	v, err := s.LoadUint(bits)
	if err != nil {
		return nil, err
	}
	if bits > 0 && v.Bit(bits-1) == 1 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	}
	return v, nil
}

func (s *Slice) LoadCoins() (*big.Int, error) {
	l, err := s.PreloadUint(coinsLenBits)
	if err != nil {
		return nil, err
	}
	if err = s.ensureBits(coinsLenBits + int(l.Int64())*8); err != nil {
		return nil, err
	}
	v, err := s.s.LoadBigCoins()
	return v, malformed(err)
}

func (s *Slice) LoadAddress() (Address, error) {
	var a Address
	head, err := s.PreloadUint(3)
	if err != nil {
		return a, err
	}
	if tag := head.Uint64() >> 1; tag != addrStdTag {
		return a, ErrorCodeMalformedInput.Errorf("unsupported address tag:%02b", tag)
	}
	if head.Bit(0) == 1 {
		return a, ErrorCodeMalformedInput.New("anycast address not supported")
	}
	if err = s.ensureBits(AddressBits); err != nil {
		return a, err
	}
	addr, err := s.s.LoadAddr()
	if err != nil {
		return a, malformed(err)
	}
	return addressOf(addr)
}

func (s *Slice) LoadRef() (*Cell, error) {
	if s.RefsLeft() < 1 {
		return nil, ErrorCodeMalformedInput.Errorf(
			"read past end of references, used:%d", s.refPos)
	}
	if _, err := s.s.LoadRefCell(); err != nil {
		return nil, malformed(err)
	}
	c := s.owner.refs[s.refPos]
	s.refPos++
	return c, nil
}

// ToCell copies the unread remainder of the slice into a new cell.
func (s *Slice) ToCell() *Cell {
	b := NewBuilder()
	if err := b.StoreSlice(s); err != nil {
		return Empty()
	}
	return b.EndCell()
}

// Empty reports whether every bit and reference has been consumed.
func (s *Slice) Empty() bool {
	return s.BitsLeft() == 0 && s.RefsLeft() == 0
}

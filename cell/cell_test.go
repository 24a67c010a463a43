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
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	testAddress = "0:5f00ef3e8ab2cf1a4d2a7a47f1c0f2f58e0ad1a0f5f3eebb7a3c8bd6e8d0a111"
)

func Test_EmptyCellHash(t *testing.T) {
	assert.Equal(t,
		"96a296d224f285c67bee93c30f8a309157f0daa35dc5b87e410b78630a09cfc7",
		hex.EncodeToString(NewBuilder().EndCell().Hash()))
	assert.Equal(t, 0, Empty().Depth())
	assert.Equal(t, "b5ee9c72", hex.EncodeToString(Empty().BOC())[:8])
}

func Test_UintRoundTrip(t *testing.T) {
	b := NewBuilder()
	assert.NoError(t, b.StoreUint64(1843760589, 32))
	assert.NoError(t, b.StoreUint64(3, 8))
	assert.NoError(t, b.StoreBit(true))
	c := b.EndCell()
	assert.Equal(t, 41, c.BitLen())

	s := c.BeginParse()
	op, err := s.PreloadUint(32)
	assert.NoError(t, err)
	assert.Equal(t, int64(1843760589), op.Int64())
	v, err := s.LoadUint64(32)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1843760589), v)
	v, err = s.LoadUint64(8)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), v)
	bit, err := s.LoadBit()
	assert.NoError(t, err)
	assert.True(t, bit)
	assert.True(t, s.Empty())

	_, err = s.LoadBit()
	assert.True(t, ErrorCodeMalformedInput.Equals(err))
}

func Test_IntRoundTrip(t *testing.T) {
	values := []*big.Int{
		big.NewInt(0),
		big.NewInt(-1),
		big.NewInt(127),
		big.NewInt(-128),
		new(big.Int).Lsh(big.NewInt(1), 255),
		new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 256)),
	}
	for _, v := range values {
		b := NewBuilder()
		assert.NoError(t, b.StoreInt(v, 257))
		r, err := b.EndCell().BeginParse().LoadInt(257)
		assert.NoError(t, err)
		assert.Equal(t, 0, v.Cmp(r), "value:%s actual:%s", v, r)
	}

	b := NewBuilder()
	err := b.StoreInt(big.NewInt(128), 8)
	assert.True(t, ErrorCodeMalformedInput.Equals(err))
	err = b.StoreUint(big.NewInt(-1), 8)
	assert.True(t, ErrorCodeMalformedInput.Equals(err))
	err = b.StoreUint(big.NewInt(256), 8)
	assert.True(t, ErrorCodeMalformedInput.Equals(err))
}

func Test_Coins(t *testing.T) {
	for _, v := range []int64{0, 1, 255, 256, 1000000000} {
		b := NewBuilder()
		assert.NoError(t, b.StoreCoins(big.NewInt(v)))
		r, err := b.EndCell().BeginParse().LoadCoins()
		assert.NoError(t, err)
		assert.Equal(t, v, r.Int64())
	}
	b := NewBuilder()
	assert.NoError(t, b.StoreCoins(big.NewInt(0)))
	assert.Equal(t, 4, b.BitLen())

	tooLarge := new(big.Int).Lsh(big.NewInt(1), 120)
	assert.True(t, ErrorCodeMalformedInput.Equals(NewBuilder().StoreCoins(tooLarge)))
}

func Test_Address(t *testing.T) {
	a := MustParseAddress(testAddress)
	assert.Equal(t, testAddress, a.String())

	b := NewBuilder()
	assert.NoError(t, b.StoreAddress(a))
	assert.Equal(t, AddressBits, b.BitLen())
	r, err := b.EndCell().BeginParse().LoadAddress()
	assert.NoError(t, err)
	assert.Equal(t, a, r)

	m := MustParseAddress("-1:" + testAddress[2:])
	b = NewBuilder()
	assert.NoError(t, b.StoreAddress(m))
	r, err = b.EndCell().BeginParse().LoadAddress()
	assert.NoError(t, err)
	assert.Equal(t, int8(-1), r.Workchain)

	b = NewBuilder()
	assert.NoError(t, b.StoreUint64(0, 2))
	_, err = b.EndCell().BeginParse().LoadAddress()
	assert.True(t, ErrorCodeMalformedInput.Equals(err))

	_, err = ParseAddress("0:1234")
	assert.Error(t, err)
}

func Test_Overflow(t *testing.T) {
	b := NewBuilder()
	assert.NoError(t, b.StoreUint(big.NewInt(0), MaxBits))
	err := b.StoreBit(false)
	assert.True(t, ErrorCodeContainerOverflow.Equals(err))

	for i := 0; i < MaxRefs; i++ {
		assert.NoError(t, b.StoreRef(Empty()))
	}
	err = b.StoreRef(Empty())
	assert.True(t, ErrorCodeContainerOverflow.Equals(err))
}

func Test_Refs(t *testing.T) {
	child := NewBuilder()
	assert.NoError(t, child.StoreUint64(0xAB, 8))
	b := NewBuilder()
	assert.NoError(t, b.StoreRef(child.EndCell()))
	c := b.EndCell()
	assert.Equal(t, 1, c.Depth())

	s := c.BeginParse()
	r, err := s.LoadRef()
	assert.NoError(t, err)
	v, err := r.BeginParse().LoadUint64(8)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0xAB), v)
	_, err = s.LoadRef()
	assert.True(t, ErrorCodeMalformedInput.Equals(err))
}

func Test_String(t *testing.T) {
	child := NewBuilder()
	assert.NoError(t, child.StoreBit(true))
	b := NewBuilder()
	assert.NoError(t, b.StoreUint64(1843760589, 32))
	assert.NoError(t, b.StoreRef(child.EndCell()))
	assert.Equal(t, "x{6DE58DCD}\n x{C_}", b.EndCell().String())
}

func Test_SliceCopy(t *testing.T) {
	b := NewBuilder()
	assert.NoError(t, b.StoreUint64(0xF0, 8))
	assert.NoError(t, b.StoreRef(Empty()))
	c := b.EndCell()

	s := c.BeginParse()
	_, err := s.LoadUint64(4)
	assert.NoError(t, err)
	rest := s.ToCell()
	assert.Equal(t, 4, rest.BitLen())
	assert.Equal(t, 1, rest.RefCount())

	nb := NewBuilder()
	assert.NoError(t, nb.StoreSlice(c.BeginParse()))
	assert.True(t, c.Equal(nb.EndCell()))
}

func Test_Depth(t *testing.T) {
	c := Empty()
	for i := 0; i < MaxDepth; i++ {
		b := NewBuilder()
		assert.NoError(t, b.StoreRef(c))
		c = b.EndCell()
	}
	assert.Equal(t, MaxDepth, c.Depth())
	err := NewBuilder().StoreRef(c)
	assert.True(t, ErrorCodeContainerOverflow.Equals(err), err)
}

func Test_WideUint(t *testing.T) {
	v, _ := new(big.Int).SetString("fedcba9876543210fedcba9876543210fedcba9876543210fedcba98765432", 16)
	b := NewBuilder()
	assert.NoError(t, b.StoreUint(v, 256))
	assert.NoError(t, b.StoreUint64(5, 3))
	s := b.EndCell().BeginParse()
	r, err := s.LoadUint(256)
	assert.NoError(t, err)
	assert.Equal(t, 0, v.Cmp(r))
	tail, err := s.LoadUint64(3)
	assert.NoError(t, err)
	assert.Equal(t, uint64(5), tail)
}

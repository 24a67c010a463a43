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
	"fmt"
	"math/big"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/icon-project/tact-funcgen/cell"
	"github.com/icon-project/tact-funcgen/codec"
	"github.com/icon-project/tact-funcgen/codegen"
	"github.com/icon-project/tact-funcgen/types"
)

const (
	testAddress = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
)

func newWallet(t *testing.T) (*Contract, *codec.Codec) {
	b, err := os.ReadFile("../types/testdata/wallet.json")
	if err != nil {
		assert.FailNow(t, "fail to read universe", err)
	}
	u, err := types.ParseUniverse(b)
	if err != nil {
		assert.FailNow(t, "fail to parse universe", err)
	}
	p, err := types.Resolve(u)
	if err != nil {
		assert.FailNow(t, "fail to resolve", err)
	}
	c, err := codec.NewCodec(p)
	if err != nil {
		assert.FailNow(t, "fail to NewCodec", err)
	}
	cd, _ := p.Contract("Wallet")
	return New(c, cd), c
}

func initWallet(t *testing.T, w *Contract) *cell.Cell {
	data, err := w.Init([]StackItem{
		MustStackItemOf(big.NewInt(0x1234)),
		MustStackItemOf(698983191),
	})
	if err != nil {
		assert.FailNow(t, "fail to Init", err)
	}
	return data
}

func increaseSeqno(self *codec.Struct, _ *codec.Struct) error {
	v, _ := self.Get("seqno")
	seqno, err := codec.MustIntegerOf(v).AsInt64()
	if err != nil {
		return err
	}
	self.Set("seqno", codec.FromInt64(seqno+1))
	return nil
}

func packTransferMessage(t *testing.T, c *codec.Codec, seqno int) *cell.Cell {
	body, err := c.Pack("TransferMessage", map[string]interface{}{
		"signature": "00112233",
		"transfer": map[string]interface{}{
			"seqno":  seqno,
			"mode":   3,
			"to":     testAddress,
			"amount": "1000000000",
		},
	})
	if err != nil {
		assert.FailNow(t, "fail to pack", err)
	}
	return body
}

func packDeposit(t *testing.T, c *codec.Codec, queryId int64) *cell.Cell {
	body, err := c.Pack("Deposit", map[string]interface{}{"queryId": queryId})
	if err != nil {
		assert.FailNow(t, "fail to pack", err)
	}
	return body
}

func Test_Init(t *testing.T) {
	w, c := newWallet(t)
	_, err := w.Load()
	assert.True(t, ErrorCodeNotInitialized.Equals(err), err)

	data := initWallet(t, w)
	assert.True(t, data.Equal(w.Data()))

	self, err := c.Unpack("Wallet", data)
	assert.NoError(t, err)
	key, _ := self.Get("key")
	assert.Equal(t, codec.FromInt64(0x1234), key)
	walletId, _ := self.Get("walletId")
	assert.Equal(t, codec.FromInt64(698983191), walletId)
	seqno, err := w.Get("seqno")
	assert.NoError(t, err)
	assert.Equal(t, codec.FromInt64(0), seqno)

	_, err = w.Get("unknown")
	assert.True(t, ErrorCodeNotFoundField.Equals(err), err)
}

func Test_InitInvalidStack(t *testing.T) {
	w, _ := newWallet(t)
	_, err := w.Init([]StackItem{MustStackItemOf(1)})
	assert.True(t, ErrorCodeInvalidStack.Equals(err), err)

	_, err = w.Init([]StackItem{MustStackItemOf(1), MustStackItemOf(cell.Empty())})
	assert.True(t, ErrorCodeInvalidStack.Equals(err), err)

	_, err = w.Init([]StackItem{MustStackItemOf(1), MustStackItemOf(nil)})
	assert.True(t, ErrorCodeInvalidStack.Equals(err), err)
	assert.Nil(t, w.Data())
}

func Test_StackItemOf(t *testing.T) {
	tests := []struct {
		value interface{}
		typ   StackItemType
	}{
		{1, StackInt},
		{uint64(1), StackInt},
		{big.NewInt(-1), StackInt},
		{codec.Integer("0x10"), StackInt},
		{true, StackBool},
		{cell.MustParseAddress(testAddress), StackAddress},
		{cell.Empty(), StackCell},
		{cell.Empty().BeginParse(), StackSlice},
		{nil, StackNull},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%T", tt.value), func(t *testing.T) {
			item, err := StackItemOf(tt.value)
			assert.NoError(t, err)
			assert.Equal(t, tt.typ, item.Type)
		})
	}
	_, err := StackItemOf("text")
	assert.Error(t, err)
}

func Test_ReceiveInternal(t *testing.T) {
	w, c := newWallet(t)
	initWallet(t, w)

	var deposited int64
	assert.NoError(t, w.Register("Deposit", func(self *codec.Struct, msg *codec.Struct) error {
		v, _ := msg.Get("queryId")
		deposited, _ = codec.MustIntegerOf(v).AsInt64()
		return nil
	}))

	o, err := w.Receive(packDeposit(t, c, 7), false)
	assert.NoError(t, err)
	assert.Equal(t, RouteReceiver, o.Route)
	assert.Equal(t, "Deposit", o.Message)
	assert.Equal(t, "Wallet_deposit", o.Handler)
	assert.Equal(t, int64(types.OpcodeOf("Deposit")), o.Opcode)
	assert.Equal(t, int64(7), deposited)
	assert.True(t, o.Data.Equal(w.Data()))
}

func Test_ReceiveDefaultPath(t *testing.T) {
	w, c := newWallet(t)
	initWallet(t, w)
	assert.NoError(t, w.Register("Deposit", func(*codec.Struct, *codec.Struct) error {
		return fmt.Errorf("must not be called")
	}))

	// external receivers are not matched by internal messages
	o, err := w.Receive(packTransferMessage(t, c, 0), false)
	assert.NoError(t, err)
	assert.Equal(t, RouteAccept, o.Route)
	assert.Equal(t, int64(1843760589), o.Opcode)

	o, err = w.Receive(packDeposit(t, c, 1), true)
	assert.NoError(t, err)
	assert.Equal(t, RouteAccept, o.Route)
	assert.Equal(t, int64(-1), o.Opcode)

	o, err = w.Receive(cell.Empty(), false)
	assert.NoError(t, err)
	assert.Equal(t, RouteAccept, o.Route)

	var fallbackBody *cell.Cell
	w.Fallback(func(self *codec.Struct, body *cell.Cell) error {
		fallbackBody = body
		return increaseSeqno(self, nil)
	})
	unknown := cell.NewBuilder()
	assert.NoError(t, unknown.StoreUint64(0xdeadbeef, 32))
	body := unknown.EndCell()
	o, err = w.Receive(body, false)
	assert.NoError(t, err)
	assert.Equal(t, RouteFallback, o.Route)
	assert.Equal(t, "Wallet_fallback", o.Handler)
	assert.Equal(t, int64(0xdeadbeef), o.Opcode)
	assert.True(t, body.Equal(fallbackBody))
	seqno, _ := w.Get("seqno")
	assert.Equal(t, codec.FromInt64(1), seqno)
}

func Test_ReceiveExternal(t *testing.T) {
	w, c := newWallet(t)
	initWallet(t, w)
	assert.NoError(t, w.Register("TransferMessage", func(self *codec.Struct, msg *codec.Struct) error {
		v, _ := msg.Get("transfer")
		transfer := v.(*codec.Struct)
		seqno, _ := transfer.Get("seqno")
		current, _ := self.Get("seqno")
		if seqno != current {
			return fmt.Errorf("invalid seqno %v", seqno)
		}
		return increaseSeqno(self, msg)
	}))

	o, err := w.ReceiveExternal(packTransferMessage(t, c, 0))
	assert.NoError(t, err)
	assert.Equal(t, RouteReceiver, o.Route)
	assert.Equal(t, "Wallet_transfer", o.Handler)
	seqno, _ := w.Get("seqno")
	assert.Equal(t, codec.FromInt64(1), seqno)

	// replay fails in the handler and keeps the data
	before := w.Data()
	_, err = w.ReceiveExternal(packTransferMessage(t, c, 0))
	assert.True(t, ErrorCodeHandlerFailure.Equals(err), err)
	hf, ok := err.(HandlerFailureError)
	assert.True(t, ok)
	assert.Equal(t, "TransferMessage", hf.Message())
	assert.Equal(t, "Wallet_transfer", hf.Handler())
	assert.True(t, before.Equal(w.Data()))

	_, err = w.ReceiveExternal(packDeposit(t, c, 1))
	assert.True(t, ErrorCodeInvalidMessage.Equals(err), err)
}

func Test_ReceiveMalformed(t *testing.T) {
	w, c := newWallet(t)
	data := initWallet(t, w)
	assert.NoError(t, w.Register("Deposit", func(*codec.Struct, *codec.Struct) error { return nil }))

	b := cell.NewBuilder()
	assert.NoError(t, b.StoreUint64(uint64(types.OpcodeOf("Deposit")), 32))
	assert.NoError(t, b.StoreUint64(1, 16))
	_, err := w.Receive(b.EndCell(), false)
	assert.True(t, cell.ErrorCodeMalformedInput.Equals(err), err)
	assert.True(t, data.Equal(w.Data()))

	// the next message is processed as usual
	_, err = w.Receive(packDeposit(t, c, 2), false)
	assert.NoError(t, err)
}

func Test_HandlerNotRegistered(t *testing.T) {
	w, c := newWallet(t)
	initWallet(t, w)
	_, err := w.Receive(packDeposit(t, c, 1), false)
	assert.True(t, codegen.ErrorCodeHandlerNotFound.Equals(err), err)

	err = w.Register("Transfer", func(*codec.Struct, *codec.Struct) error { return nil })
	assert.True(t, ErrorCodeNotFoundReceiver.Equals(err), err)
}

func Test_SetData(t *testing.T) {
	w, _ := newWallet(t)
	assert.Error(t, w.SetData(cell.Empty()))

	other, _ := newWallet(t)
	data := initWallet(t, other)
	assert.NoError(t, w.SetData(data))
	key, err := w.Get("key")
	assert.NoError(t, err)
	assert.Equal(t, codec.FromInt64(0x1234), key)
}

func Test_SetDataShape(t *testing.T) {
	w, _ := newWallet(t)
	err := w.SetData(nil)
	assert.True(t, cell.ErrorCodeMalformedInput.Equals(err), err)

	other, _ := newWallet(t)
	data := initWallet(t, other)
	b := cell.NewBuilder()
	assert.NoError(t, b.StoreSlice(data.BeginParse()))
	assert.NoError(t, b.StoreUint64(0xff, 8))
	trailingBits := b.EndCell()
	err = w.SetData(trailingBits)
	assert.True(t, cell.ErrorCodeMalformedInput.Equals(err), err)

	b = cell.NewBuilder()
	assert.NoError(t, b.StoreSlice(data.BeginParse()))
	assert.NoError(t, b.StoreRef(cell.Empty()))
	err = w.SetData(b.EndCell())
	assert.True(t, cell.ErrorCodeMalformedInput.Equals(err), err)
	assert.Nil(t, w.Data())
}

func Test_ReceiveConcurrent(t *testing.T) {
	w, c := newWallet(t)
	initWallet(t, w)
	assert.NoError(t, w.Register("Deposit", increaseSeqno))

	const messages = 200
	body := packDeposit(t, c, 1)
	wg := sync.WaitGroup{}
	wg.Add(messages)
	for i := 0; i < messages; i++ {
		go func() {
			defer wg.Done()
			_, err := w.Receive(body, false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	seqno, err := w.Get("seqno")
	assert.NoError(t, err)
	assert.Equal(t, codec.FromInt64(messages), seqno)
}

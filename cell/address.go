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
	"encoding/json"
	"fmt"
	"math"

	"github.com/icon-project/btp2/common/errors"
	"github.com/xssnick/tonutils-go/address"
)

// AddressBits is the size of a standard internal address:
// tag(2) + anycast(1) + workchain(8) + hash(256).
const AddressBits = 2 + 1 + 8 + 256

const addrStdTag = 0b10

// Address is a standard internal address without anycast.
type Address struct {
	Workchain int8
	Hash      [32]byte
}

// ParseAddress parses the raw form "<workchain>:<64 hex digits>".
func ParseAddress(s string) (Address, error) {
	addr, err := address.ParseRawAddr(s)
	if err != nil {
		return Address{}, errors.Wrapf(err, "invalid address %q, expected <workchain>:<hash>", s)
	}
	if wc := addr.Workchain(); wc < math.MinInt8 || wc > math.MaxInt8 {
		return Address{}, errors.Errorf("invalid workchain %d in address %q", wc, s)
	}
	a, err := addressOf(addr)
	if err != nil {
		return a, errors.Wrapf(err, "invalid address %q", s)
	}
	return a, nil
}

func addressOf(addr *address.Address) (Address, error) {
	var a Address
	if addr == nil {
		return a, ErrorCodeMalformedInput.New("no address")
	}
	h := addr.Data()
	if len(h) != len(a.Hash) {
		return a, ErrorCodeMalformedInput.Errorf("invalid hash length %d", len(h))
	}
	a.Workchain = int8(addr.Workchain())
	copy(a.Hash[:], h)
	return a, nil
}

func (a Address) toAddr() *address.Address {
	return address.NewAddress(0, byte(a.Workchain), a.Hash[:])
}

func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return fmt.Sprintf("%d:%s", a.Workchain, hex.EncodeToString(a.Hash[:]))
}

// MarshalJSON implements json.Marshaler interface.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

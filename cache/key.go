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

package cache

import (
	"encoding/hex"

	"github.com/icon-project/btp2/common/codec"
	"github.com/minio/sha256-simd"

	"github.com/icon-project/tact-funcgen/codegen"
	"github.com/icon-project/tact-funcgen/types"
)

// layoutVersion changes whenever the generated code for the same input
// changes, so that older artifacts are not served.
const layoutVersion = 1

type keySource struct {
	Version  int
	Universe *types.Universe
	Contract string
	Abi      string
	Scope    string
}

// KeyOf returns the content address of a compilation: the hex SHA-256 of the
// RLP encoding of its inputs.
func KeyOf(u *types.Universe, contract, abi string, scope codegen.Scope) (string, error) {
	b, err := codec.RLP.MarshalToBytes(&keySource{
		Version:  layoutVersion,
		Universe: u,
		Contract: contract,
		Abi:      abi,
		Scope:    scope.String(),
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

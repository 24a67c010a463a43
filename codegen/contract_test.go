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

package codegen

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/icon-project/tact-funcgen/funcast"
	"github.com/icon-project/tact-funcgen/storage"
	"github.com/icon-project/tact-funcgen/types"
)

const (
	walletUniverse = "../types/testdata/wallet.json"
	walletAbi      = "wallet.abi"
)

func walletUniverseOf(t *testing.T) *types.Universe {
	b, err := os.ReadFile(walletUniverse)
	if err != nil {
		assert.FailNow(t, "fail to read universe", err)
	}
	u, err := types.ParseUniverse(b)
	if err != nil {
		assert.FailNow(t, "fail to parse universe", err)
	}
	return u
}

func generateWallet(t *testing.T, options Options) *Result {
	r, err := Generate(walletUniverseOf(t), "Wallet", options)
	if err != nil {
		assert.FailNow(t, "fail to generate", err)
	}
	return r
}

func field(name, typeName string, optional bool) types.NameAndTypeSpec {
	return types.NameAndTypeSpec{Name: name, Type: types.TypeSpec{Name: typeName}, Optional: optional}
}

func bodyOfFunction(t *testing.T, m *funcast.Module, name string) string {
	f, ok := m.Function(name)
	if !ok {
		assert.FailNow(t, "function not found", name)
	}
	return strings.Join(f.Body, "\n")
}

func Test_WriteProgramOrder(t *testing.T) {
	r := generateWallet(t, Options{Abi: walletAbi})
	m := r.Module

	for _, td := range r.Sorted.Types {
		for _, d := range td.Dependencies() {
			assert.Less(t,
				m.IndexOf(writerName(d.Type.Name)), m.IndexOf(writerName(td.Name)),
				"%s before %s", d.Type.Name, td.Name)
			assert.Less(t,
				m.IndexOf(readerName(d.Type.Name)), m.IndexOf(readerName(td.Name)))
		}
	}

	order := []string{
		"__tact_verify_address",
		writerName("SendParameters"),
		writerName("Transfer"),
		writerName("TransferMessage"),
		writerName("Wallet"),
		getterName("Wallet", "key"),
		initName("Wallet"),
		"init_Wallet",
		loadName("Wallet"),
		storeName("Wallet"),
		"__wallet_min_value",
		"Transfer_message",
		"Wallet_transfer",
		"seqno",
		"recv_internal",
		"recv_external",
	}
	for i := 1; i < len(order); i++ {
		assert.Less(t, m.IndexOf(order[i-1]), m.IndexOf(order[i]), "%s before %s", order[i-1], order[i])
	}
	assert.Equal(t, len(m.Entries)-1, m.IndexOf("recv_external"))

	header, ok := m.Entries[2].(*funcast.Comment)
	assert.True(t, ok)
	assert.Equal(t, []string{"ABI: " + walletAbi, "Contract: Wallet"}, header.Lines)
}

func Test_WriteProgramDeterministic(t *testing.T) {
	first := generateWallet(t, Options{Abi: walletAbi}).Module.String()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, generateWallet(t, Options{Abi: walletAbi}).Module.String())
	}
}

func Test_Serializers(t *testing.T) {
	r := generateWallet(t, Options{})
	m := r.Module

	f, ok := m.Function(writerName("Transfer"))
	assert.True(t, ok)
	single := &funcast.Module{}
	single.Append(f)
	assert.Equal(t, `builder __gen_write_Transfer(builder build_0, (int, int, slice, int, cell) v) inline {
    var (v'seqno, v'mode, v'to, v'amount, v'body) = v;
    build_0 = build_0.store_uint(v'seqno, 32);
    build_0 = build_0.store_uint(v'mode, 8);
    build_0 = __tact_store_address(build_0, v'to);
    build_0 = build_0.store_coins(v'amount);
    build_0 = build_0.store_maybe_ref(v'body);
    return build_0;
}
`, single.String())

	f, ok = m.Function(readerName("TransferMessage"))
	assert.True(t, ok)
	assert.Equal(t, "(slice, ((slice, (int, int, slice, int, cell))))", f.Returns)
	assert.Equal(t, []string{
		"throw_unless(129, sc_0~load_uint(32) == 1843760589);",
		"var v'signature = sc_0~load_ref().begin_parse();",
		"var v'transfer = __gen_readcell_Transfer(sc_0~load_ref());",
		"return (sc_0, (v'signature, v'transfer));",
	}, f.Body)

	body := bodyOfFunction(t, m, writerName("TransferMessage"))
	assert.Contains(t, body, "build_0 = build_0.store_uint(1843760589, 32);")
	assert.Contains(t, body, "build_0 = build_0.store_ref(begin_cell().store_slice(v'signature).end_cell());")
	assert.Contains(t, body, "build_0 = build_0.store_ref(__gen_writecell_Transfer(v'transfer));")

	body = bodyOfFunction(t, m, readerName("SendParameters"))
	assert.Contains(t, body, "var v'bounce = sc_0~load_int(1);")
	assert.Contains(t, body, "var v'value = sc_0~load_int(257);")
	assert.Contains(t, body, "var v'body = sc_0~load_maybe_ref();")
	assert.Contains(t, body, "var v'to = sc_0~__tact_load_address();")
}

func Test_SerializerContinuation(t *testing.T) {
	u := &types.Universe{
		Types: []types.StructSpec{
			{Name: "Wide", Fields: []types.NameAndTypeSpec{
				field("a", "int", false),
				field("b", "int", false),
				field("c", "int", false),
				field("d", "int", false),
				field("e", "uint8", true),
			}},
		},
		Contracts: []types.ContractSpec{
			{Name: "Holder", Fields: []types.NameAndTypeSpec{field("w", "Wide", false)},
				Init: []types.NameAndTypeSpec{field("w", "Wide", false)}},
		},
	}
	r, err := Generate(u, "Holder", Options{})
	assert.NoError(t, err)
	m := r.Module

	assert.Equal(t, []string{
		"var (v'a, v'b, v'c, v'd, v'e) = v;",
		"build_0 = build_0.store_int(v'a, 257);",
		"build_0 = build_0.store_int(v'b, 257);",
		"build_0 = build_0.store_int(v'c, 257);",
		"var build_1 = begin_cell();",
		"build_1 = build_1.store_int(v'd, 257);",
		"if (null?(v'e)) {",
		"    build_1 = build_1.store_int(false, 1);",
		"} else {",
		"    build_1 = build_1.store_int(true, 1);",
		"    build_1 = build_1.store_uint(v'e, 8);",
		"}",
		"build_0 = build_0.store_ref(build_1.end_cell());",
		"return build_0;",
	}, strings.Split(bodyOfFunction(t, m, writerName("Wide")), "\n"))

	body := bodyOfFunction(t, m, readerName("Wide"))
	assert.Contains(t, body, "slice sc_1 = sc_0~load_ref().begin_parse();")
	assert.Contains(t, body, "var v'e = sc_1~load_int(1) ? sc_1~load_uint(8) : null();")
	assert.Contains(t, body, "sc_1.end_parse();\nreturn (sc_0, (v'a, v'b, v'c, v'd, v'e));")
	assert.NotContains(t, body, "sc_0.end_parse();")
}

func Test_ForwardPrototypes(t *testing.T) {
	u := &types.Universe{
		Types: []types.StructSpec{
			{Name: "Node", Fields: []types.NameAndTypeSpec{
				field("value", "uint32", false),
				field("next", "Node", true),
			}},
		},
		Contracts: []types.ContractSpec{
			{Name: "List", Fields: []types.NameAndTypeSpec{field("head", "Node", true)}},
		},
	}
	r, err := Generate(u, "List", Options{})
	assert.NoError(t, err)
	m := r.Module
	assert.True(t, r.Sorted.Forward["Node"])

	protoIndex := -1
	for i, e := range m.Entries {
		if f, ok := e.(*funcast.Function); ok && f.IsPrototype() && f.Name == readCellName("Node") {
			protoIndex = i
		}
	}
	assert.NotEqual(t, -1, protoIndex)
	assert.Less(t, protoIndex, m.IndexOf(readerName("Node")))

	f, _ := m.Function(writerName("Node"))
	assert.Empty(t, f.Specifiers)
	assert.Contains(t, strings.Join(f.Body, "\n"), "build_0 = build_0.store_ref(__gen_writecell_Node(__gen_Node_not_null(v'next)));")
	_, ok := m.Function(tupleCreateName(2))
	assert.True(t, ok)

	body := bodyOfFunction(t, m, initName("List"))
	assert.Equal(t, "return (null());", body)
}

func Test_Accessors(t *testing.T) {
	m := generateWallet(t, Options{}).Module
	f, ok := m.Function(getterName("Wallet", "seqno"))
	assert.True(t, ok)
	assert.Equal(t, "int", f.Returns)
	assert.Equal(t, []string{
		"var (v'key, v'walletId, v'seqno) = v;",
		"return v'seqno;",
	}, f.Body)

	assert.Equal(t, "return (key, walletId, 0);", bodyOfFunction(t, m, initName("Wallet")))
	assert.Equal(t, "return __gen_writecell_Wallet(__gen_Wallet_init(key, walletId));",
		bodyOfFunction(t, m, "init_Wallet"))
	f, _ = m.Function("init_Wallet")
	assert.Equal(t, []funcast.Specifier{funcast.MethodID}, f.Specifiers)

	f, _ = m.Function("seqno")
	assert.Equal(t, "var (self', res) = Wallet_seqno(__gen_load_Wallet());", f.Body[0])

	f, _ = m.Function(loadName("Wallet"))
	assert.Equal(t, []string{
		"slice sc = get_data().begin_parse();",
		"var v = sc~__gen_read_Wallet();",
		"sc.end_parse();",
		"return v;",
	}, f.Body)
	assert.Equal(t, "sc.end_parse();", strings.Split(bodyOfFunction(t, m, readCellName("Transfer")), "\n")[2])
}

func Test_Dispatch(t *testing.T) {
	r := generateWallet(t, Options{})
	m := r.Module
	deposit := r.Sorted.Types[r.Sorted.IndexOf("Deposit")]

	internal := bodyOfFunction(t, m, "recv_internal")
	assert.Contains(t, internal, "op = in_msg.preload_uint(32);")
	assert.Contains(t, internal, fmt.Sprintf("if (op == %d) {", deposit.Opcode))
	assert.Contains(t, internal, "self~Wallet_deposit(msg);")
	assert.NotContains(t, internal, "1843760589")
	assert.Contains(t, internal, "self~Wallet_fallback(in_msg);")
	assert.True(t, strings.HasSuffix(internal, "return ();"))

	external := bodyOfFunction(t, m, "recv_external")
	assert.Contains(t, external, "if (op == 1843760589) {")
	assert.Contains(t, external, "accept_message();")
	assert.Contains(t, external, "var msg = in_msg~__gen_read_TransferMessage();")
	assert.Contains(t, external, "self~Wallet_transfer(msg);")
	assert.Contains(t, external, "__gen_store_Wallet(self);")
	assert.True(t, strings.HasSuffix(external, "throw(130);"))
}

func Test_DispatchWithoutFallback(t *testing.T) {
	u := walletUniverseOf(t)
	u.Contracts[0].Fallback = ""
	for i := range u.Contracts[0].Receivers {
		u.Contracts[0].Receivers[i].External = false
	}
	r, err := Generate(u, "Wallet", Options{})
	assert.NoError(t, err)
	internal := bodyOfFunction(t, r.Module, "recv_internal")
	assert.Contains(t, internal, "if (op == 1843760589) {")
	assert.NotContains(t, internal, "fallback")
	_, ok := r.Module.Function("recv_external")
	assert.False(t, ok)

	// receivers keep declaration order
	assert.Less(t,
		strings.Index(internal, "1843760589"),
		strings.Index(internal, fmt.Sprintf("%d", types.OpcodeOf("Deposit"))))
}

func Test_ContractNotFound(t *testing.T) {
	r, err := Generate(walletUniverseOf(t), "Missing", Options{})
	assert.Nil(t, r)
	assert.True(t, ErrorCodeContractNotFound.Equals(err), err)
}

func Test_TypeNotFoundAborts(t *testing.T) {
	u := walletUniverseOf(t)
	u.Types[0].Fields = append(u.Types[0].Fields, field("extra", "Unknown", false))
	r, err := Generate(u, "Wallet", Options{})
	assert.Nil(t, r)
	assert.True(t, types.ErrorCodeTypeNotFound.Equals(err), err)
}

func Test_CyclicTypeAborts(t *testing.T) {
	u := walletUniverseOf(t)
	u.Types = append(u.Types,
		types.StructSpec{Name: "A", Kind: types.KindStruct, Fields: []types.NameAndTypeSpec{field("b", "B", false)}},
		types.StructSpec{Name: "B", Kind: types.KindStruct, Fields: []types.NameAndTypeSpec{field("a", "A", false)}},
	)
	r, err := Generate(u, "Wallet", Options{})
	assert.Nil(t, r)
	assert.True(t, storage.ErrorCodeCyclicTypeDependency.Equals(err), err)
}

func Test_HandlerNotFound(t *testing.T) {
	u := walletUniverseOf(t)
	u.Contracts[0].Receivers[1].Handler = "Wallet_missing"
	_, err := Generate(u, "Wallet", Options{})
	assert.True(t, ErrorCodeHandlerNotFound.Equals(err), err)

	u = walletUniverseOf(t)
	u.Contracts[0].Fallback = "Wallet_nothing"
	_, err = Generate(u, "Wallet", Options{})
	assert.True(t, ErrorCodeHandlerNotFound.Equals(err), err)
}

func Test_InvalidInit(t *testing.T) {
	u := walletUniverseOf(t)
	u.Contracts[0].Init = u.Contracts[0].Init[:1]
	_, err := Generate(u, "Wallet", Options{})
	assert.True(t, ErrorCodeInvalidInit.Equals(err), err)

	u = walletUniverseOf(t)
	u.Contracts[0].Init[1].Type.Name = "uint8"
	_, err = Generate(u, "Wallet", Options{})
	assert.True(t, ErrorCodeInvalidInit.Equals(err), err)
}

func Test_Scope(t *testing.T) {
	u := walletUniverseOf(t)
	u.Contracts = append(u.Contracts,
		types.ContractSpec{
			Name:      "Ownable",
			Fields:    []types.NameAndTypeSpec{field("owner", "address", false)},
			Functions: []types.FunctionSpec{{Name: "Ownable_owner", Returns: "slice"}},
		},
		types.ContractSpec{
			Name:      "Other",
			Functions: []types.FunctionSpec{{Name: "Other_ping"}},
		},
	)

	r, err := Generate(u, "Wallet", Options{})
	assert.NoError(t, err)
	_, ok := r.Module.Function("Other_ping")
	assert.True(t, ok)
	_, ok = r.Module.Function("Ownable_owner")
	assert.True(t, ok)

	u.Contracts[0].Includes = []string{"Ownable"}
	r, err = Generate(u, "Wallet", Options{Scope: ScopeTarget})
	assert.NoError(t, err)
	_, ok = r.Module.Function("Other_ping")
	assert.False(t, ok)
	f, ok := r.Module.Function("Ownable_owner")
	assert.True(t, ok)
	assert.Equal(t, "((slice), slice)", f.Returns)
	_, ok = r.Module.Function("Wallet_transfer")
	assert.True(t, ok)

	u.Contracts[0].Includes = []string{"Missing"}
	_, err = Generate(u, "Wallet", Options{Scope: ScopeTarget})
	assert.True(t, ErrorCodeContractNotFound.Equals(err), err)
}

func Test_ParseScope(t *testing.T) {
	s, err := ParseScope("target")
	assert.NoError(t, err)
	assert.Equal(t, ScopeTarget, s)
	s, err = ParseScope("")
	assert.NoError(t, err)
	assert.Equal(t, ScopeAllContracts, s)
	_, err = ParseScope("some")
	assert.Error(t, err)

	var o Options
	assert.NoError(t, o.Scope.UnmarshalJSON([]byte(`"target"`)))
	assert.Equal(t, ScopeTarget, o.Scope)
}

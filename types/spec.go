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

package types

import (
	"encoding/json"

	"github.com/icon-project/btp2/common/errors"
)

type Kind string

const (
	KindContract Kind = "contract"
	KindMessage  Kind = "message"
	KindStruct   Kind = "struct"
)

type TypeSpec struct {
	Name string `json:"name"`
}

type NameAndTypeSpec struct {
	Name     string   `json:"name"`
	Type     TypeSpec `json:"type"`
	Optional bool     `json:"optional,omitempty"`
	Default  string   `json:"default,omitempty"`
}

type StructSpec struct {
	Name   string            `json:"name"`
	Kind   Kind              `json:"kind"`
	Opcode *uint32           `json:"opcode,omitempty"`
	Fields []NameAndTypeSpec `json:"fields"`
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (s *StructSpec) UnmarshalJSON(data []byte) error {
	type tSpec StructSpec
	if err := json.Unmarshal(data, (*tSpec)(s)); err != nil {
		return err
	}
	switch s.Kind {
	case "":
		s.Kind = KindStruct
	case KindStruct, KindMessage:
	default:
		return ErrorCodeInvalidType.Errorf("invalid kind %q of type %s", s.Kind, s.Name)
	}
	if s.Opcode != nil && s.Kind != KindMessage {
		return ErrorCodeInvalidType.Errorf("opcode on non-message type %s", s.Name)
	}
	return nil
}

// ParamSpec is a parameter of a function written in the target language.
// Type is either a target-language type or a declared structured type name.
type ParamSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type FunctionSpec struct {
	Name    string      `json:"name"`
	Params  []ParamSpec `json:"params,omitempty"`
	Returns string      `json:"returns,omitempty"`
	Body    []string    `json:"body,omitempty"`
	Getter  bool        `json:"getter,omitempty"`
	Inline  bool        `json:"inline,omitempty"`
	Impure  bool        `json:"impure,omitempty"`
	Extends string      `json:"extends,omitempty"`
}

type ReceiverSpec struct {
	Message  string `json:"message"`
	Handler  string `json:"handler"`
	External bool   `json:"external,omitempty"`
}

type ContractSpec struct {
	Name      string            `json:"name"`
	Fields    []NameAndTypeSpec `json:"fields"`
	Init      []NameAndTypeSpec `json:"init,omitempty"`
	Receivers []ReceiverSpec    `json:"receivers,omitempty"`
	Fallback  string            `json:"fallback,omitempty"`
	Includes  []string          `json:"includes,omitempty"`
	Functions []FunctionSpec    `json:"functions,omitempty"`
}

// Universe is every structured type, contract and free function of one
// compilation unit, as produced by the type checker.
type Universe struct {
	Types     []StructSpec   `json:"types"`
	Contracts []ContractSpec `json:"contracts"`
	Functions []FunctionSpec `json:"functions,omitempty"`
}

func ParseUniverse(b []byte) (*Universe, error) {
	u := &Universe{}
	if err := json.Unmarshal(b, u); err != nil {
		if _, ok := errors.CoderOf(err); ok {
			return nil, err
		}
		return nil, errors.Wrapf(err, "fail to parse universe err:%s", err.Error())
	}
	return u, nil
}

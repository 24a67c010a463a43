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

package codec

import (
	"encoding/hex"
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/intconv"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/tact-funcgen/cell"
)

// Integer is an integer in the canonical hex form of intconv.
type Integer string

func (i Integer) AsBigInt() (*big.Int, error) {
	v := new(big.Int)
	if err := intconv.ParseBigInt(v, string(i)); err != nil {
		return nil, errors.Wrapf(err, "fail to convert big.Int value:%s", string(i))
	}
	return v, nil
}

func (i Integer) AsInt64() (int64, error) {
	v, err := i.AsBigInt()
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() {
		return 0, errors.Errorf("out of int64 range value:%s", string(i))
	}
	return v.Int64(), nil
}

func FromBigInt(v *big.Int) Integer {
	return Integer(intconv.FormatBigInt(v))
}

func FromInt64(v int64) Integer {
	return FromBigInt(big.NewInt(v))
}

type Boolean bool

type KeyValue struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// Struct is a value of a structured type with fields in declared order.
type Struct struct {
	Name   string     `json:"name"`
	Fields []KeyValue `json:"fields"`
}

func (s *Struct) Get(key string) (interface{}, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func (s *Struct) Set(key string, value interface{}) {
	for i := range s.Fields {
		if s.Fields[i].Key == key {
			s.Fields[i].Value = value
			return
		}
	}
	s.Fields = append(s.Fields, KeyValue{Key: key, Value: value})
}

// MarshalJSON renders the fields as an object in declared order.
func (s *Struct) MarshalJSON() ([]byte, error) {
	sb := &strings.Builder{}
	sb.WriteString("{")
	for i, f := range s.Fields {
		if i > 0 {
			sb.WriteString(",")
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(jsonValueOf(f.Value))
		if err != nil {
			return nil, err
		}
		sb.Write(k)
		sb.WriteString(":")
		sb.Write(v)
	}
	sb.WriteString("}")
	return []byte(sb.String()), nil
}

func jsonValueOf(v interface{}) interface{} {
	if c, ok := v.(*cell.Cell); ok {
		return hex.EncodeToString(c.Data())
	}
	return v
}

func MustIntegerOf(value interface{}) Integer {
	ret, err := IntegerOf(value)
	if err != nil {
		log.Panicf("fail to IntegerOf err:%v", err)
	}
	return ret
}

const (
	invalidInteger = ""
)

// IntegerOf converts value to the canonical Integer. Strings may be decimal
// or 0x-prefixed hex.
func IntegerOf(value interface{}) (Integer, error) {
	switch v := value.(type) {
	case Integer:
		return canonicalInteger(string(v))
	case string:
		return canonicalInteger(v)
	case json.Number:
		return canonicalInteger(string(v))
	case []byte:
		return FromBigInt(intconv.BigIntSetBytes(new(big.Int), v)), nil
	case big.Int:
		return FromBigInt(&v), nil
	case *big.Int:
		return FromBigInt(v), nil
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
			return invalidInteger, errors.Errorf("not an exact integer %v", v)
		}
		return FromInt64(int64(v)), nil
	default:
		rv := reflect.ValueOf(value)
		if rv.CanInt() {
			return FromInt64(rv.Int()), nil
		} else if rv.CanUint() {
			return FromBigInt(new(big.Int).SetUint64(rv.Uint())), nil
		} else {
			return invalidInteger, errors.Errorf("invalid type %T", value)
		}
	}
}

func canonicalInteger(s string) (Integer, error) {
	v := new(big.Int)
	if err := intconv.ParseBigInt(v, s); err != nil {
		return invalidInteger, errors.Wrapf(err, "invalid integer %q", s)
	}
	return FromBigInt(v), nil
}

func BooleanOf(value interface{}) (Boolean, error) {
	switch v := value.(type) {
	case Boolean:
		return v, nil
	case bool:
		return Boolean(v), nil
	case string:
		switch v {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, errors.Errorf("invalid type %T", value)
}

func AddressOf(value interface{}) (cell.Address, error) {
	switch v := value.(type) {
	case cell.Address:
		return v, nil
	case *cell.Address:
		return *v, nil
	case string:
		return cell.ParseAddress(v)
	default:
		return cell.Address{}, errors.Errorf("invalid type %T", value)
	}
}

// CellOf accepts a cell or a hex string of its byte-aligned data.
func CellOf(value interface{}) (*cell.Cell, error) {
	switch v := value.(type) {
	case *cell.Cell:
		return v, nil
	case string:
		data, err := hex.DecodeString(strings.TrimPrefix(v, "0x"))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid cell data %q", v)
		}
		b := cell.NewBuilder()
		if err = b.StoreBits(data, len(data)*8); err != nil {
			return nil, err
		}
		return b.EndCell(), nil
	default:
		return nil, errors.Errorf("invalid type %T", value)
	}
}

// StructOf accepts a Struct named name, or left unnamed, or a map keyed by
// field name.
func StructOf(name string, value interface{}) (*Struct, error) {
	switch v := value.(type) {
	case *Struct:
		if v == nil {
			return nil, errors.Errorf("nil value for %s", name)
		}
		if v.Name != "" && v.Name != name {
			return nil, errors.Errorf("value of %s given for %s", v.Name, name)
		}
		return v, nil
	case Struct:
		return StructOf(name, &v)
	case map[string]interface{}:
		s := &Struct{Name: name}
		for k, fv := range v {
			s.Fields = append(s.Fields, KeyValue{Key: k, Value: fv})
		}
		return s, nil
	default:
		return nil, errors.Errorf("invalid type %T for %s", value, name)
	}
}

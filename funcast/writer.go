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

package funcast

import (
	"io"
	"strings"

	"github.com/icon-project/btp2/common/errors"
)

const indentUnit = "    "

type writer struct {
	sb     strings.Builder
	indent int
}

func (w *writer) line(s string) {
	if s != "" {
		w.sb.WriteString(strings.Repeat(indentUnit, w.indent))
		w.sb.WriteString(s)
	}
	w.sb.WriteString("\n")
}

// Module is an ordered list of top-level entries.
type Module struct {
	Entries []Entry
}

func (m *Module) Append(entries ...Entry) {
	m.Entries = append(m.Entries, entries...)
}

// Functions returns the function entries with a body or an asm body.
func (m *Module) Functions() []*Function {
	var ret []*Function
	for _, e := range m.Entries {
		if f, ok := e.(*Function); ok && !f.IsPrototype() {
			ret = append(ret, f)
		}
	}
	return ret
}

// Function returns the definition of the function name.
func (m *Module) Function(name string) (*Function, bool) {
	for _, f := range m.Functions() {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// IndexOf returns the position of the definition of the function name,
// or -1.
func (m *Module) IndexOf(name string) int {
	for i, e := range m.Entries {
		if f, ok := e.(*Function); ok && !f.IsPrototype() && f.Name == name {
			return i
		}
	}
	return -1
}

// String prints the module. Function definitions are separated by an empty
// line while consecutive one-line entries are kept together.
func (m *Module) String() string {
	w := &writer{}
	var prev Entry
	for _, e := range m.Entries {
		if prev != nil && !(oneLine(prev) && oneLine(e)) {
			w.line("")
		}
		e.write(w)
		prev = e
	}
	return w.sb.String()
}

func oneLine(e Entry) bool {
	switch v := e.(type) {
	case *Function:
		return v.Body == nil
	case *Pragma, *Include:
		return true
	default:
		return false
	}
}

func (m *Module) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, m.String())
	if err != nil {
		return int64(n), errors.Wrapf(err, "fail to write module err:%s", err.Error())
	}
	return int64(n), nil
}

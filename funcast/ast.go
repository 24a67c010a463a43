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
	"strings"
)

// Entry is a top-level entry of a FunC source file.
type Entry interface {
	write(w *writer)
}

type Pragma struct {
	Value string
}

func (e *Pragma) write(w *writer) {
	w.line("#pragma " + e.Value + ";")
}

type Include struct {
	Path string
}

func (e *Include) write(w *writer) {
	w.line("#include \"" + e.Path + "\";")
}

type Comment struct {
	Lines []string
}

func (e *Comment) write(w *writer) {
	for _, l := range e.Lines {
		if l == "" {
			w.line(";;")
		} else {
			w.line(";; " + l)
		}
	}
}

type Specifier string

const (
	Inline    Specifier = "inline"
	InlineRef Specifier = "inline_ref"
	Impure    Specifier = "impure"
	MethodID  Specifier = "method_id"
)

type Param struct {
	Type string
	Name string
}

func (p Param) String() string {
	return p.Type + " " + p.Name
}

// Function is a function definition. Without Body and Asm it is printed as
// a prototype.
type Function struct {
	Name       string
	Forall     []string
	Params     []Param
	Returns    string
	Specifiers []Specifier
	Asm        string
	Body       []string
}

func (f *Function) IsPrototype() bool {
	return f.Body == nil && f.Asm == ""
}

// Prototype returns the forward declaration of f.
func (f *Function) Prototype() *Function {
	return &Function{
		Name:       f.Name,
		Forall:     f.Forall,
		Params:     f.Params,
		Returns:    f.Returns,
		Specifiers: f.Specifiers,
	}
}

func (f *Function) signature() string {
	sb := &strings.Builder{}
	if len(f.Forall) > 0 {
		sb.WriteString("forall ")
		sb.WriteString(strings.Join(f.Forall, ", "))
		sb.WriteString(" -> ")
	}
	if f.Returns == "" {
		sb.WriteString("()")
	} else {
		sb.WriteString(f.Returns)
	}
	sb.WriteString(" ")
	sb.WriteString(f.Name)
	sb.WriteString("(")
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(")")
	for _, s := range f.Specifiers {
		sb.WriteString(" ")
		sb.WriteString(string(s))
	}
	return sb.String()
}

func (f *Function) write(w *writer) {
	switch {
	case f.Asm != "":
		w.line(f.signature() + " asm \"" + f.Asm + "\";")
	case f.Body == nil:
		w.line(f.signature() + ";")
	default:
		w.line(f.signature() + " {")
		w.indent++
		for _, l := range f.Body {
			w.line(l)
		}
		w.indent--
		w.line("}")
	}
}

// Block indents lines by one level, for nested statements of a body.
func Block(lines ...string) []string {
	ret := make([]string, len(lines))
	for i, l := range lines {
		ret[i] = indentUnit + l
	}
	return ret
}

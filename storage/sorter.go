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

package storage

import (
	"strings"

	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/tact-funcgen/types"
)

var (
	storageLogger = log.New()
)

func init() {
	storageLogger.SetLevel(log.DebugLevel)
}

type color int

const (
	white color = iota
	grey
	black
)

// SortedTypes is a total order of the structured types where every type
// follows the types its fields reference. Forward holds the types whose
// serializers are referenced before their definition, through an optional
// field closing a cycle.
type SortedTypes struct {
	Types   []*types.TypeDescriptor
	Forward map[string]bool
}

func (s *SortedTypes) Names() []string {
	names := make([]string, len(s.Types))
	for i, t := range s.Types {
		names[i] = t.Name
	}
	return names
}

func (s *SortedTypes) IndexOf(name string) int {
	for i, t := range s.Types {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// SortTypes orders the types of p by a depth-first search started from
// each type in declaration order. A cycle made of mandatory fields only
// fails with ErrorCodeCyclicTypeDependency.
func SortTypes(p *types.Program) (*SortedTypes, error) {
	if err := checkCycles(p.Types); err != nil {
		return nil, err
	}
	s := &SortedTypes{Forward: make(map[string]bool)}
	colors := make(map[*types.TypeDescriptor]color)
	var visit func(t *types.TypeDescriptor)
	visit = func(t *types.TypeDescriptor) {
		colors[t] = grey
		for _, d := range t.Dependencies() {
			switch colors[d.Type] {
			case white:
				visit(d.Type)
			case grey:
				storageLogger.Tracef("forward reference %s.%s -> %s\n", t.Name, d.Field.Name, d.Type.Name)
				s.Forward[d.Type.Name] = true
			}
		}
		colors[t] = black
		s.Types = append(s.Types, t)
	}
	for _, t := range p.Types {
		if colors[t] == white {
			visit(t)
		}
	}
	storageLogger.Traceln("SortTypes", s.Names())
	return s, nil
}

// checkCycles searches the graph of mandatory fields for a cycle.
func checkCycles(all []*types.TypeDescriptor) error {
	colors := make(map[*types.TypeDescriptor]color)
	var path []string
	var search func(t *types.TypeDescriptor) error
	search = func(t *types.TypeDescriptor) error {
		colors[t] = grey
		path = append(path, t.Name)
		for _, d := range t.Dependencies() {
			if d.Optional {
				continue
			}
			switch colors[d.Type] {
			case white:
				if err := search(d.Type); err != nil {
					return err
				}
			case grey:
				start := 0
				for i, n := range path {
					if n == d.Type.Name {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, path[start:]...), d.Type.Name)
				return ErrorCodeCyclicTypeDependency.Errorf(
					"cyclic type dependency %s", strings.Join(cycle, " -> "))
			}
		}
		path = path[:len(path)-1]
		colors[t] = black
		return nil
	}
	for _, t := range all {
		if colors[t] == white {
			if err := search(t); err != nil {
				return err
			}
		}
	}
	return nil
}

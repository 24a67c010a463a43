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
	lru "github.com/hashicorp/golang-lru"
	"github.com/icon-project/btp2/common/errors"
)

const (
	DefaultMemorySize = 128
)

// Memory keeps recently used artifacts in front of an optional backing
// cache.
type Memory struct {
	c       *lru.Cache
	backing Cache
}

func NewMemory(size int, backing Cache) (*Memory, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to create lru size:%d", size)
	}
	return &Memory{c: c, backing: backing}, nil
}

func (m *Memory) Get(key string) (*Artifact, error) {
	if v, ok := m.c.Get(key); ok {
		return v.(*Artifact), nil
	}
	if m.backing == nil {
		return nil, nil
	}
	a, err := m.backing.Get(key)
	if err != nil || a == nil {
		return nil, err
	}
	m.c.Add(key, a)
	return a, nil
}

func (m *Memory) Put(a *Artifact) error {
	if m.backing != nil {
		if err := m.backing.Put(a); err != nil {
			return err
		}
	}
	m.c.Add(a.Key, a)
	return nil
}

func (m *Memory) Len() int {
	return m.c.Len()
}

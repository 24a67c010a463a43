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
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"gorm.io/gorm"

	"github.com/icon-project/tact-funcgen/database"
)

const (
	TableArtifact = "artifact"
)

// Artifact is a compiled module along with the tables derived with it.
type Artifact struct {
	database.Model
	Key      string            `json:"key" gorm:"column:artifact_key;uniqueIndex;size:64"`
	Contract string            `json:"contract" gorm:"index"`
	Abi      string            `json:"abi"`
	Scope    string            `json:"scope"`
	Code     string            `json:"code" gorm:"type:text"`
	Opcodes  map[string]uint32 `json:"opcodes" gorm:"serializer:json"`
	Order    []string          `json:"order" gorm:"column:type_order;serializer:json"`
}

type Cache interface {
	// Get returns nil without error on a miss.
	Get(key string) (*Artifact, error)
	Put(a *Artifact) error
}

var (
	artifactKey     = "artifact_key"
	artifactColumns = []string{"contract", "abi", "scope", "code", "opcodes", "type_order", "updated_at"}
)

// Repository persists artifacts in the database.
type Repository struct {
	t *database.Table[Artifact]
	l log.Logger
}

func NewRepository(db *gorm.DB, l log.Logger) (*Repository, error) {
	t, err := database.NewTable[Artifact](db, TableArtifact)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to migrate %s", TableArtifact)
	}
	return &Repository{
		t: t,
		l: l.WithFields(log.Fields{log.FieldKeyModule: "cache"}),
	}, nil
}

func (r *Repository) Get(key string) (*Artifact, error) {
	return r.t.First(database.Equals(artifactKey, key))
}

// Put stores a, replacing the artifact of the same key.
func (r *Repository) Put(a *Artifact) error {
	r.l.Debugf("put artifact key:%s contract:%s\n", a.Key, a.Contract)
	return r.t.Upsert(a, []string{artifactKey}, artifactColumns)
}

// Page lists the stored artifacts of contract, every contract if empty.
func (r *Repository) Page(contract string, p database.Pageable) (*database.Page[Artifact], error) {
	if len(contract) == 0 {
		return r.t.Page(p)
	}
	return r.t.Page(p, database.Equals("contract", contract))
}

func (r *Repository) Delete(key string) error {
	n, err := r.t.Delete(database.Equals(artifactKey, key))
	if err != nil {
		return err
	}
	r.l.Debugf("delete artifact key:%s rows:%d\n", key, n)
	return nil
}

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

package database

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Model struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Pageable struct {
	// Page 0-indexed
	Page uint `json:"page"`
	// Size zero for unlimited
	Size uint `json:"size"`
	// Sort for example "FIELD desc,FIELD"
	Sort string `json:"sort,omitempty"`
}

func (p Pageable) scope(db *gorm.DB) *gorm.DB {
	if p.Size > 0 {
		db = db.Offset(int(p.Page * p.Size)).Limit(int(p.Size))
	}
	if len(p.Sort) > 0 {
		db = db.Order(p.Sort)
	}
	return db
}

func (p Pageable) pagesOf(total int64) int {
	switch {
	case total == 0:
		return 0
	case p.Size == 0:
		return 1
	default:
		return int((uint(total) + p.Size - 1) / p.Size)
	}
}

type Page[T any] struct {
	Content       []T      `json:"content"`
	TotalElements int      `json:"total_elements"`
	TotalPages    int      `json:"total_pages"`
	Pageable      Pageable `json:"pageable"`
}

// Cond narrows a query, applied as a gorm scope.
type Cond func(db *gorm.DB) *gorm.DB

func Where(query interface{}, args ...interface{}) Cond {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	}
}

func Equals(column string, value interface{}) Cond {
	return Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
}

// Table is the rows of T in one table.
type Table[T any] struct {
	db   *gorm.DB
	name string
}

// NewTable migrates the table name for T.
func NewTable[T any](db *gorm.DB, name string) (*Table[T], error) {
	if err := db.Table(name).AutoMigrate(new(T)); err != nil {
		return nil, err
	}
	return &Table[T]{db: db, name: name}, nil
}

func (t *Table[T]) query(conds []Cond) *gorm.DB {
	db := t.db.Table(t.name)
	for _, c := range conds {
		db = db.Scopes(c)
	}
	return db
}

func (t *Table[T]) Save(v *T) error {
	return t.db.Table(t.name).Save(v).Error
}

// Upsert inserts v, or updates the columns of the row conflicting on keys.
func (t *Table[T]) Upsert(v *T, keys []string, columns []string) error {
	cols := make([]clause.Column, len(keys))
	for i, k := range keys {
		cols[i] = clause.Column{Name: k}
	}
	return t.db.Table(t.name).Clauses(clause.OnConflict{
		Columns:   cols,
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(v).Error
}

// First returns nil without error when nothing matches.
func (t *Table[T]) First(conds ...Cond) (*T, error) {
	v := new(T)
	if err := t.query(conds).Take(v).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func (t *Table[T]) List(conds ...Cond) ([]T, error) {
	var l []T
	if err := t.query(conds).Find(&l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

func (t *Table[T]) Count(conds ...Cond) (int64, error) {
	var n int64
	if err := t.query(conds).Count(&n).Error; err != nil {
		return -1, err
	}
	return n, nil
}

// Delete removes the matched rows and returns how many were removed.
// At least one condition is required.
func (t *Table[T]) Delete(conds ...Cond) (int64, error) {
	ret := t.query(conds).Delete(new(T))
	return ret.RowsAffected, ret.Error
}

func (t *Table[T]) Page(p Pageable, conds ...Cond) (*Page[T], error) {
	total, err := t.Count(conds...)
	if err != nil {
		return nil, err
	}
	var l []T
	if err = t.query(conds).Scopes(p.scope).Find(&l).Error; err != nil {
		return nil, err
	}
	return &Page[T]{
		Content:       l,
		TotalElements: int(total),
		TotalPages:    p.pagesOf(total),
		Pageable:      p,
	}, nil
}

func (t *Table[T]) Transaction(fc func(tx *Table[T]) error) error {
	return t.db.Transaction(func(tx *gorm.DB) error {
		return fc(&Table[T]{db: tx, name: t.name})
	})
}

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
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DriverMysql    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultDBName = "tact-funcgen.db"
	inMemory      = ":memory:"
)

type Config struct {
	Driver   string `json:"driver"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     uint   `json:"port,omitempty"`
	DBName   string `json:"dbname"`
}

func DefaultConfig() Config {
	return Config{
		Driver: DriverSQLite,
		DBName: DefaultDBName,
	}
}

var zeroDefaultDatetimePrecision = 0

func (c Config) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case DriverMysql:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True",
			c.User, c.Password, c.Host, c.Port, c.DBName)
		return mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DefaultDatetimePrecision:  &zeroDefaultDatetimePrecision,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), nil
	case DriverPostgres:
		dsn := fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s sslmode=disable",
			c.User, c.Password, c.Host, c.Port, c.DBName)
		return postgres.Open(dsn), nil
	case DriverSQLite, "":
		if len(c.DBName) == 0 {
			return nil, errors.Errorf("dbname required for %s", DriverSQLite)
		}
		dsn := fmt.Sprintf("file:%s", c.DBName)
		if len(c.User) > 0 {
			auth := fmt.Sprintf("_auth&_auth_user=%s&_auth_pass=%s",
				c.User, c.Password)
			if !strings.Contains(dsn, "?") {
				auth = "?" + auth
			}
			dsn = dsn + auth
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, errors.Errorf("not support db type:%s", c.Driver)
	}
}

// OpenDatabase connects to the database of cfg. Queries are logged through l
// in the database module.
func OpenDatabase(cfg Config, l log.Logger) (*gorm.DB, error) {
	d, err := cfg.dialector()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger: newDatabaseLogger(l),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fail to open %s:%s", cfg.Driver, cfg.DBName)
	}
	if cfg.DBName == inMemory {
		// every connection opens its own in-memory database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

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

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/config"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icon-project/tact-funcgen/api"
	"github.com/icon-project/tact-funcgen/cache"
	"github.com/icon-project/tact-funcgen/codegen"
	"github.com/icon-project/tact-funcgen/database"
	"github.com/icon-project/tact-funcgen/service"
)

type Config struct {
	config.FileConfig `json:",squash"`

	Server   ServerConfig    `json:"server"`
	Compiler CompilerConfig  `json:"compiler"`
	Database database.Config `json:"database"`

	LogLevel     string            `json:"log_level"`
	ConsoleLevel string            `json:"console_level"`
	LogWriter    *log.WriterConfig `json:"log_writer,omitempty"`
}

type ServerConfig struct {
	Address      string `json:"address"`
	DumpLogLevel string `json:"dump_log_level,omitempty"`
}

type CompilerConfig struct {
	Abi       string `json:"abi,omitempty"`
	Scope     string `json:"scope,omitempty"`
	CacheSize int    `json:"cache_size"`
	Persist   bool   `json:"persist"`
}

func (c CompilerConfig) Options() (service.CompilerOptions, error) {
	scope, err := codegen.ParseScope(c.Scope)
	if err != nil {
		return service.CompilerOptions{}, err
	}
	return service.CompilerOptions{
		Abi:       c.Abi,
		Scope:     scope,
		CacheSize: c.CacheSize,
	}, nil
}

// SetupLogger applies the log sections of c to the global logger.
func (c *Config) SetupLogger(modLevels map[string]string) (log.Logger, error) {
	l := log.GlobalLogger()
	if c.LogWriter != nil {
		lwCfg := *c.LogWriter
		lwCfg.Filename = c.ResolveAbsolute(lwCfg.Filename)
		writer, err := log.NewWriter(&lwCfg)
		if err != nil {
			return nil, errors.Wrapf(err, "fail to make writer err:%s", err.Error())
		}
		if err = l.SetFileWriter(writer); err != nil {
			return nil, errors.Wrapf(err, "fail to set file logger err:%s", err.Error())
		}
	}
	levels := []struct {
		name  string
		value string
		apply func(lv log.Level)
	}{
		{"log_level", c.LogLevel, l.SetLevel},
		{"console_level", c.ConsoleLevel, l.SetConsoleLevel},
	}
	for _, lc := range levels {
		lv, err := log.ParseLevel(lc.value)
		if err != nil {
			return nil, errors.Errorf("invalid %s=%s", lc.name, lc.value)
		}
		lc.apply(lv)
	}
	for mod, lvStr := range modLevels {
		lv, err := log.ParseLevel(lvStr)
		if err != nil {
			return nil, errors.Errorf("invalid mod_level mod=%s level=%s", mod, lvStr)
		}
		l.SetModuleLevel(mod, lv)
	}
	return l, nil
}

func ReadConfig(filePath string, cfg *Config, vc *viper.Viper) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("fail to open config file=%s err=%+v", filePath, err)
	}
	defer f.Close()
	vc.SetConfigType("json")
	err = vc.ReadConfig(f)
	if err != nil {
		return fmt.Errorf("fail to read config file=%s err=%+v", filePath, err)
	}
	if err = vc.Unmarshal(cfg, cli.ViperDecodeOptJson); err != nil {
		return fmt.Errorf("fail to unmarshall config from env err=%+v", err)
	}
	cfg.FilePath, _ = filepath.Abs(filePath)
	return nil
}

func NewCompiler(cfg *Config, l log.Logger) (*service.Compiler, error) {
	opt, err := cfg.Compiler.Options()
	if err != nil {
		return nil, err
	}
	var repo *cache.Repository
	if cfg.Compiler.Persist {
		dbCfg := cfg.Database
		if dbCfg.Driver == database.DriverSQLite || dbCfg.Driver == "" {
			dbCfg.DBName = cfg.ResolveAbsolute(dbCfg.DBName)
		}
		db, err := database.OpenDatabase(dbCfg, l)
		if err != nil {
			return nil, err
		}
		if repo, err = cache.NewRepository(db, l); err != nil {
			return nil, err
		}
	}
	return service.NewCompiler(opt, repo, l)
}

func NewServerCommand(parentCmd *cobra.Command, parentVc *viper.Viper, version, build string, logoLines []string) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "server", "Server management")
	cfg := &Config{}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cfgFilePath := rootVc.GetString("config"); cfgFilePath != "" {
			if err := ReadConfig(cfgFilePath, cfg, rootVc); err != nil {
				return err
			}
		}
		if err := rootVc.Unmarshal(&cfg, cli.ViperDecodeOptJson); err != nil {
			return fmt.Errorf("fail to unmarshall config from env err=%+v", err)
		}
		return nil
	}
	rootPFlags := rootCmd.PersistentFlags()
	rootPFlags.StringP("config", "c", "", "Parsing configuration file")
	rootPFlags.String("log_level", "debug", "Global log level (trace,debug,info,warn,error,fatal,panic)")
	rootPFlags.String("console_level", "trace", "Console log level (trace,debug,info,warn,error,fatal,panic)")
	rootPFlags.String("log_writer.filename", "tact-funcgen.log", "Log file name (rotated files resides in same directory)")
	rootPFlags.Int("log_writer.maxsize", 100, "Maximum log file size in MiB")
	rootPFlags.Int("log_writer.maxage", 0, "Maximum age of log file in day")
	rootPFlags.Int("log_writer.maxbackups", 0, "Maximum number of backups")
	rootPFlags.Bool("log_writer.localtime", false, "Use localtime on rotated log file instead of UTC")
	rootPFlags.Bool("log_writer.compress", false, "Use gzip on rotated log file")
	//ServerConfig
	rootPFlags.String("server.address", "localhost:8080", "server address")
	rootPFlags.String("server.dump_log_level", "trace", "server dump log level (trace,debug,info)")
	//CompilerConfig
	rootPFlags.String("compiler.abi", "", "ABI name written in the module header")
	rootPFlags.String("compiler.scope", codegen.ScopeAllContracts.String(), "Contracts whose functions are emitted (all,target)")
	rootPFlags.Int("compiler.cache_size", cache.DefaultMemorySize, "Number of artifacts kept in memory")
	rootPFlags.Bool("compiler.persist", true, "Persist artifacts in the database")
	//DatabaseConfig
	dbCfg := database.DefaultConfig()
	rootPFlags.String("database.driver", dbCfg.Driver, "database driver (sqlite,mysql,postgres)")
	rootPFlags.String("database.dbname", dbCfg.DBName, "database name, file path for sqlite")
	rootPFlags.String("database.host", "", "database host")
	rootPFlags.Uint("database.port", 0, "database port")
	rootPFlags.String("database.user", "", "database user")
	rootPFlags.String("database.password", "", "database password")
	cli.BindPFlags(rootVc, rootPFlags)

	saveCmd := &cobra.Command{
		Use:   "save [file]",
		Short: "Save configuration",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateFlagsWithViper(rootVc, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			saveFilePath := args[0]
			cfg.FilePath, _ = filepath.Abs(saveFilePath)
			cfg.BaseDir = cfg.ResolveRelative(cfg.BaseDir)

			if cfg.LogWriter != nil {
				cfg.LogWriter.Filename = cfg.ResolveRelative(cfg.LogWriter.Filename)
			}
			if cfg.Database.Driver == database.DriverSQLite {
				cfg.Database.DBName = cfg.ResolveRelative(cfg.Database.DBName)
			}
			if err := cli.JsonPrettySaveFile(saveFilePath, 0644, cfg); err != nil {
				return err
			}
			cmd.Println("Save configuration to", saveFilePath)
			return nil
		},
	}
	rootCmd.AddCommand(saveCmd)

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start server",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateFlagsWithViper(rootVc, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, l := range logoLines {
				log.Println(l)
			}
			log.Printf("Version : %s", version)
			log.Printf("Build   : %s", build)

			modLevels, _ := cmd.Flags().GetStringToString("mod_level")
			l, err := cfg.SetupLogger(modLevels)
			if err != nil {
				return err
			}
			serverDumpLogLevel, err := log.ParseLevel(cfg.Server.DumpLogLevel)
			if err != nil {
				return err
			} else {
				serverDumpLogLevel = api.EnsureTransportLogLevel(serverDumpLogLevel)
			}
			c, err := NewCompiler(cfg, l)
			if err != nil {
				return err
			}
			s := api.NewServer(cfg.Server.Address, serverDumpLogLevel, c, l)
			return s.Start()
		},
	}
	rootCmd.AddCommand(startCmd)
	startFlags := startCmd.Flags()
	startFlags.StringToString("mod_level", nil, "Set console log level for specific module ('mod'='level',...)")
	startFlags.MarkHidden("mod_level")
	return rootCmd, rootVc
}

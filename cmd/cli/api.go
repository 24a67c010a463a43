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
	"os"

	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icon-project/tact-funcgen/api"
	"github.com/icon-project/tact-funcgen/codegen"
	"github.com/icon-project/tact-funcgen/contract"
	"github.com/icon-project/tact-funcgen/database"
	"github.com/icon-project/tact-funcgen/service"
	"github.com/icon-project/tact-funcgen/types"
)

func ClientPersistentPreRunE(vc *viper.Viper, c *api.Client) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := cli.ValidateFlagsWithViper(vc, cmd.Flags()); err != nil {
			return err
		}
		l := log.GlobalLogger()
		if lv, err := log.ParseLevel(vc.GetString("log_level")); err != nil {
			return errors.Wrapf(err, "fail to parseLevel log_level err:%s", err.Error())
		} else {
			l.SetLevel(lv)
		}
		if lv, err := log.ParseLevel(vc.GetString("console_level")); err != nil {
			return errors.Wrapf(err, "fail to parseLevel console_level err:%s", err.Error())
		} else {
			l.SetConsoleLevel(lv)
		}
		dumpLogLevel, err := log.ParseLevel(vc.GetString("dump_log_level"))
		if err != nil {
			return errors.Wrapf(err, "fail to parseLevel dump_log_level err:%s", err.Error())
		} else {
			dumpLogLevel = api.EnsureTransportLogLevel(dumpLogLevel)
		}
		*c = *api.NewClient(vc.GetString("url"), dumpLogLevel, l)
		return nil
	}
}

func AddClientRequiredFlags(c *cobra.Command) {
	pFlags := c.PersistentFlags()
	pFlags.String("url", "http://localhost:8080", "server address")
	pFlags.String("log_level", "debug", "Global log level (trace,debug,info,warn,error,fatal,panic)")
	pFlags.String("console_level", "trace", "Console log level (trace,debug,info,warn,error,fatal,panic)")
	pFlags.String("dump_log_level", "trace", "client dump log level (trace,debug,info)")
}

func NewApiCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "api", "API cli")
	var (
		c api.Client
		u *types.Universe
	)
	rootCmd.PersistentPreRunE = ClientPersistentPreRunE(rootVc, &c)
	AddClientRequiredFlags(rootCmd)
	cli.BindPFlags(rootVc, rootCmd.PersistentFlags())

	universePreRunE := func(cmd *cobra.Command, args []string) (err error) {
		u, err = ReadUniverse(cmd.Flag("input").Value.String())
		return
	}
	newUniverseCommand := func(use, short string) *cobra.Command {
		cmd := &cobra.Command{
			Use:     use,
			Short:   short,
			Args:    cobra.NoArgs,
			PreRunE: universePreRunE,
		}
		cmd.Flags().StringP("input", "i", "", "universe json file")
		cmd.MarkFlagRequired("input")
		rootCmd.AddCommand(cmd)
		return cmd
	}

	compileCmd := newUniverseCommand("compile", "Generate the module of a contract")
	compileFlags := compileCmd.Flags()
	compileFlags.StringP("name", "n", "", "target contract")
	compileFlags.String("abi", "", "ABI name written in the module header, server default if empty")
	compileFlags.String("scope", "", "contracts whose functions are emitted (all,target), server default if empty")
	compileCmd.MarkFlagRequired("name")
	compileCmd.RunE = func(cmd *cobra.Command, args []string) error {
		req := &service.CompileRequest{
			Universe: u,
			Contract: cmd.Flag("name").Value.String(),
			Abi:      cmd.Flag("abi").Value.String(),
		}
		if s := cmd.Flag("scope").Value.String(); len(s) > 0 {
			scope, err := codegen.ParseScope(s)
			if err != nil {
				return err
			}
			req.Scope = &scope
		}
		r, err := c.Compile(req)
		if err != nil {
			return err
		}
		return cli.JsonPrettyPrintln(os.Stdout, r)
	}

	layoutCmd := newUniverseCommand("layout", "Get the storage layout of every type")
	layoutCmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := c.Layout(u)
		if err != nil {
			return err
		}
		return cli.JsonPrettyPrintln(os.Stdout, r)
	}

	initCmd := newUniverseCommand("init", "Build the initial data of a contract")
	initCmd.Flags().StringP("name", "n", "", "target contract")
	initCmd.Flags().String("stack", "[]", "init parameters, json array of {type,value} or json file")
	initCmd.MarkFlagRequired("name")
	initCmd.RunE = func(cmd *cobra.Command, args []string) error {
		var stack []contract.StackItem
		if err := ReadAndUnmarshal(cmd.Flag("stack").Value.String(), &stack); err != nil {
			return err
		}
		r, err := c.Init(u, cmd.Flag("name").Value.String(), stack)
		if err != nil {
			return err
		}
		return cli.JsonPrettyPrintln(os.Stdout, r)
	}

	packCmd := newUniverseCommand("pack", "Encode a value of a structured type")
	packCmd.Flags().StringP("type", "t", "", "structured type name")
	packCmd.Flags().String("value", "{}", "json object of the value or json file")
	packCmd.MarkFlagRequired("type")
	packCmd.RunE = func(cmd *cobra.Command, args []string) error {
		value := make(map[string]interface{})
		if err := ReadAndUnmarshal(cmd.Flag("value").Value.String(), &value); err != nil {
			return err
		}
		r, err := c.Pack(u, cmd.Flag("type").Value.String(), value)
		if err != nil {
			return err
		}
		return cli.JsonPrettyPrintln(os.Stdout, r)
	}

	abiCmd := newUniverseCommand("abi", "Get the OpenAPI document of a contract")
	abiCmd.Flags().StringP("name", "n", "", "target contract")
	abiCmd.MarkFlagRequired("name")
	abiCmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := c.Abi(u, cmd.Flag("name").Value.String())
		if err != nil {
			return err
		}
		return cli.JsonPrettyPrintln(os.Stdout, r)
	}

	artifactsCmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Get list of persisted artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			page, _ := fs.GetUint("page")
			size, _ := fs.GetUint("size")
			r, err := c.Artifacts(cmd.Flag("name").Value.String(), database.Pageable{
				Page: page,
				Size: size,
				Sort: cmd.Flag("sort").Value.String(),
			})
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	artifactsFlags := artifactsCmd.Flags()
	artifactsFlags.StringP("name", "n", "", "contract, all if empty")
	artifactsFlags.Uint("page", 0, "page, 0-indexed")
	artifactsFlags.Uint("size", 20, "page size")
	artifactsFlags.String("sort", "", "sort, for example \"id desc\"")
	rootCmd.AddCommand(artifactsCmd)
	return rootCmd, rootVc
}

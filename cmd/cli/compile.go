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
	"encoding/json"
	"os"
	"strings"

	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icon-project/tact-funcgen/api"
	"github.com/icon-project/tact-funcgen/codegen"
	"github.com/icon-project/tact-funcgen/contract"
	"github.com/icon-project/tact-funcgen/service"
	"github.com/icon-project/tact-funcgen/types"
)

// ReadAndUnmarshal decodes v from a json file, or from s itself when it
// starts as a json value.
func ReadAndUnmarshal(s string, v interface{}) error {
	var b []byte
	if t := strings.TrimSpace(s); strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
		b = []byte(t)
	} else {
		var err error
		if b, err = os.ReadFile(s); err != nil {
			return err
		}
	}
	d := json.NewDecoder(strings.NewReader(string(b)))
	d.UseNumber()
	return d.Decode(v)
}

func ReadUniverse(file string) (*types.Universe, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to read universe file=%s err:%s", file, err.Error())
	}
	return types.ParseUniverse(b)
}

func writeOutput(output string, b []byte) error {
	if len(output) == 0 || output == "-" {
		_, err := os.Stdout.Write(b)
		return err
	}
	return os.WriteFile(output, b, 0644)
}

func NewCompileCommands(parentCmd *cobra.Command, parentVc *viper.Viper) {
	var (
		u *types.Universe
		c *service.Compiler
	)
	preRunE := func(cmd *cobra.Command, args []string) error {
		l := log.GlobalLogger()
		lv, err := log.ParseLevel(cmd.Flag("log_level").Value.String())
		if err != nil {
			return errors.Wrapf(err, "fail to parseLevel log_level err:%s", err.Error())
		}
		l.SetLevel(lv)
		l.SetConsoleLevel(lv)
		if u, err = ReadUniverse(cmd.Flag("input").Value.String()); err != nil {
			return err
		}
		c, err = service.NewCompiler(service.CompilerOptions{}, nil, l)
		return err
	}
	newCommand := func(use, short string, withName bool) *cobra.Command {
		cmd := &cobra.Command{
			Use:     use,
			Short:   short,
			Args:    cobra.NoArgs,
			PreRunE: preRunE,
		}
		fs := cmd.Flags()
		fs.StringP("input", "i", "", "universe json file")
		fs.String("log_level", "warn", "log level (trace,debug,info,warn,error,fatal,panic)")
		cmd.MarkFlagRequired("input")
		if withName {
			fs.StringP("name", "n", "", "target contract")
			cmd.MarkFlagRequired("name")
		}
		parentCmd.AddCommand(cmd)
		return cmd
	}

	compileCmd := newCommand("compile", "Generate the module of a contract", true)
	compileFlags := compileCmd.Flags()
	compileFlags.String("abi", "", "ABI name written in the module header")
	compileFlags.StringP("output", "o", "", "output file, stdout if empty")
	compileFlags.String("scope", codegen.ScopeAllContracts.String(), "contracts whose functions are emitted (all,target)")
	compileFlags.Bool("json", false, "print the compile result as json")
	compileCmd.RunE = func(cmd *cobra.Command, args []string) error {
		scope, err := codegen.ParseScope(cmd.Flag("scope").Value.String())
		if err != nil {
			return err
		}
		r, err := c.Compile(&service.CompileRequest{
			Universe: u,
			Contract: cmd.Flag("name").Value.String(),
			Abi:      cmd.Flag("abi").Value.String(),
			Scope:    &scope,
		})
		if err != nil {
			return err
		}
		if asJson, _ := compileFlags.GetBool("json"); asJson {
			b, err := json.MarshalIndent(r, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd.Flag("output").Value.String(), b)
		}
		return writeOutput(cmd.Flag("output").Value.String(), []byte(r.Code))
	}

	layoutCmd := newCommand("layout", "Print the storage layout of every type", false)
	layoutCmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := c.Layout(u)
		if err != nil {
			return err
		}
		return cli.JsonPrettyPrintln(os.Stdout, r)
	}

	initCmd := newCommand("init", "Build the initial data of a contract", true)
	initCmd.Flags().String("stack", "[]", "init parameters, json array of {type,value} or json file")
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

	packCmd := newCommand("pack", "Encode a value of a structured type", false)
	packFlags := packCmd.Flags()
	packFlags.StringP("type", "t", "", "structured type name")
	packFlags.String("value", "{}", "json object of the value or json file")
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

	abiCmd := newCommand("abi", "Print the OpenAPI document of a contract", true)
	abiCmd.RunE = func(cmd *cobra.Command, args []string) error {
		oas, err := api.NewContractOpenAPISpec(u, cmd.Flag("name").Value.String())
		if err != nil {
			return err
		}
		return cli.JsonPrettyPrintln(os.Stdout, oas)
	}
}

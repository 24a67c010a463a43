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
	"strings"

	"github.com/icon-project/btp2/common/cli"
	"github.com/spf13/cobra"
)

var (
	version = "unknown"
	build   = "unknown"
)

func main() {
	rootCmd, rootVc := cli.NewCommand(nil, nil, "tact-funcgen", "Tact FunC generator CLI")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	cli.SetEnvKeyReplacer(rootVc, strings.NewReplacer(" ", "_", ".", "_", "-", "_"))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(rootCmd.Use, "version", version, build)
		},
	})

	var logoLines = []string{`
  _____  _    ____ _____   _____ _   _ _   _  ____
 |_   _|/ \  / ___|_   _| |  ___| | | | \ | |/ ___|
   | | / _ \| |     | |   | |_  | | | |  \| | |
   | |/ ___ \ |___  | |   |  _| | |_| | |\  | |___
   |_/_/   \_\____| |_|   |_|    \___/|_| \_|\____|
`,
	}
	NewCompileCommands(rootCmd, rootVc)
	NewServerCommand(rootCmd, rootVc, version, build, logoLines)
	NewApiCommand(rootCmd, rootVc)

	genMdCmd := cli.NewGenerateMarkdownCommand(rootCmd, rootVc)
	genMdCmd.Hidden = true

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(1)
	}
}

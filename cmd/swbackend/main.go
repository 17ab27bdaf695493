/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// swbackend runs the design-sync server: Postgres-backed storage for
// template page originals and persisted design revisions.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"smartwish/internal/backend"
	applog "smartwish/internal/log"
	"smartwish/internal/version"
)

func main() {
	_ = godotenv.Load()
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("swbackend")

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Println("swbackend " + version.String())
			return
		}
	}

	l.Info("starting design-sync server", "version", version.String())
	if err := backend.Start(); err != nil {
		l.Error("server exited", "err", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

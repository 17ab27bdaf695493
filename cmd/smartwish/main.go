/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"smartwish/internal/config"
	"smartwish/internal/crash"
	"smartwish/internal/domain"
	"smartwish/internal/export"
	applog "smartwish/internal/log"
	"smartwish/internal/pagestore"
	"smartwish/internal/templates"
	"smartwish/internal/version"
)

func usage() {
	fmt.Println("SmartWish kiosk tools")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  smartwish version|-v|--version                         Show version")
	fmt.Println("  smartwish sweep                                        Expire stale edit records from the durable store")
	fmt.Println("  smartwish templates [<dir>]                            List installed card templates")
	fmt.Println("  smartwish export <dir> <template-id> <preset> <out>    Render a template's pages to a print PDF")
}

func main() {
	// .env is optional; real deployments configure via the environment.
	_ = godotenv.Load()
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	defer func() { crash.Recover(nil) }()

	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("SmartWish kiosk tools")
			fmt.Println(version.String())
			return
		case "sweep":
			runSweep(l, cfg)
			return
		case "templates":
			dir := cfg.General.TemplateDir
			if len(args) >= 3 {
				dir = args[2]
			}
			runTemplates(l, dir)
			return
		case "export":
			if len(args) < 6 {
				fmt.Println("export requires <dir> <template-id> <preset> <out>")
				usage()
				os.Exit(2)
			}
			runExport(l, args[2], args[3], args[4], args[5])
			return
		}
	}

	usage()
}

func runSweep(l *slog.Logger, cfg config.AppConfig) {
	store, err := pagestore.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		l.Error("open page store failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	maxAge := time.Duration(cfg.Session.RetentionH) * time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := store.SweepExpired(ctx, maxAge)
	if err != nil {
		l.Error("sweep failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	l.Info("sweep complete", slog.Int("removed", n), slog.Duration("max_age", maxAge))
	fmt.Printf("Removed %d expired edit record(s).\n", n)
}

func runTemplates(l *slog.Logger, dir string) {
	abs, _ := filepath.Abs(dir)
	lib, err := templates.NewLibrary(abs)
	if err != nil {
		l.Error("open library failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	ids, err := lib.List()
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	fmt.Printf("Templates in %s:\n", abs)
	for _, id := range ids {
		h, err := lib.Open(id)
		if err != nil {
			fmt.Printf("  %s (unreadable: %v)\n", id, err)
			continue
		}
		fmt.Printf("  %s - %s (%d pages, %s)\n", id, h.Template.Name, len(h.Template.Pages), h.Template.Spec.Fold)
	}
}

func runExport(l *slog.Logger, dir, id, preset, out string) {
	abs, _ := filepath.Abs(dir)
	lib, err := templates.NewLibrary(abs)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	h, err := lib.Open(domain.TemplateID(id))
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	spec, err := export.SpecForPreset(export.PresetName(preset))
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	pages, err := h.AllPageImages()
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	l.Info("exporting card", slog.String("template", id), slog.String("preset", preset), slog.Int("pages", len(pages)))
	if err := export.ExportCardPDF(spec, pages, out, export.PDFOptions{Title: h.Template.Name}); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	fmt.Println("Wrote", out)
}

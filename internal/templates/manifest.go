/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package templates manages the on-disk card template library installed on
// each kiosk: one directory per template with a card.json manifest plus the
// page images it references.
package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"smartwish/internal/domain"
)

const (
	ManifestFileName = "card.json"
	BackupsDirName   = "backups"
)

// Standard subfolders of a template directory.
var standardSubDirs = []string{
	"pages",
	BackupsDirName,
}

// Handle keeps track of one template loaded/saved from disk.
// Root is the template directory containing card.json and subfolders.
type Handle struct {
	Root         string
	ManifestPath string
	Template     domain.Template
}

// Init creates a new template directory at root (creating it if it doesn't
// exist), scaffolds the standard subfolders, and writes the manifest
// transactionally.
func Init(root string, tpl domain.Template) (*Handle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if tpl.ID == "" {
		return nil, errors.New("template id is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create template root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}

	h := &Handle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Template:     tpl,
	}
	if err := Save(h); err != nil {
		return nil, err
	}
	return h, nil
}

// Open loads an existing template from the given root directory.
// If the current manifest cannot be read or parsed, it will attempt the last backup.
func Open(root string) (*Handle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	b, err := os.ReadFile(mpath)
	if err != nil {
		tpl, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		return &Handle{Root: root, ManifestPath: mpath, Template: *tpl}, nil
	}
	var t domain.Template
	if uerr := json.Unmarshal(b, &t); uerr != nil {
		tpl, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("parse manifest: %w; backup attempt: %v", uerr, berr)
		}
		return &Handle{Root: root, ManifestPath: mpath, Template: *tpl}, nil
	}
	return &Handle{Root: root, ManifestPath: mpath, Template: t}, nil
}

// Save writes the current Handle.Template to disk with transactional
// semantics and a timestamped backup of the previous manifest (if present).
func Save(h *Handle) error {
	if h == nil {
		return errors.New("nil Handle")
	}
	if h.Root == "" || h.ManifestPath == "" {
		return errors.New("invalid Handle: missing paths")
	}
	data, err := json.MarshalIndent(h.Template, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	// If a current manifest exists, copy it to a timestamped backup before replacing
	if _, statErr := os.Stat(h.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bname := fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp)
		bpath := filepath.Join(bdir, bname)
		if cerr := copyFile(h.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}

	// Transactional write: to temp file in same directory, then rename over target
	dir := filepath.Dir(h.ManifestPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(h.ManifestPath); err == nil {
		_ = os.Remove(h.ManifestPath)
	}
	if rerr := os.Rename(temp, h.ManifestPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	return nil
}

// PageImage reads the image file backing a page of this template.
func (h *Handle) PageImage(idx domain.PageIndex) (domain.Image, error) {
	p, ok := h.Template.PageByIndex(idx)
	if !ok {
		return domain.Image{}, fmt.Errorf("template %s has no page %d", h.Template.ID, idx)
	}
	path := filepath.Join(h.Root, filepath.FromSlash(p.Image))
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Image{}, fmt.Errorf("read page image: %w", err)
	}
	mt := mime.TypeByExtension(filepath.Ext(path))
	if mt == "" {
		mt = "application/octet-stream"
	}
	return domain.Image{MIME: mt, Data: b}, nil
}

// AllPageImages reads every page image in manifest order.
func (h *Handle) AllPageImages() ([]domain.Image, error) {
	imgs := make([]domain.Image, 0, len(h.Template.Pages))
	for _, p := range h.Template.Pages {
		img, err := h.PageImage(p.Index)
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
	}
	return imgs, nil
}

// writeFileSync writes data to a file and ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	if err := df.Sync(); err != nil {
		return err
	}
	return nil
}

// openFromLatestBackup tries to open the latest timestamped backup.
func openFromLatestBackup(root string) (*domain.Template, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	var t domain.Template
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return &t, nil
}

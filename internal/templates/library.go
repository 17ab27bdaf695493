/*
 * Copyright (c) 2025 by the SmartWish authors.
 * Licensed under the Apache License, Version 2.0.
 */

package templates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"smartwish/internal/domain"
)

// Library serves templates from a local directory tree, one template per
// subdirectory named after its id. Kiosks run from a library even when the
// backend is unreachable.
type Library struct {
	Root string
}

// NewLibrary opens a template library rooted at dir.
func NewLibrary(dir string) (*Library, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open template library: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template library %s is not a directory", dir)
	}
	return &Library{Root: dir}, nil
}

// List returns the ids of all installed templates, sorted.
func (l *Library) List() ([]domain.TemplateID, error) {
	ents, err := os.ReadDir(l.Root)
	if err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}
	var ids []domain.TemplateID
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(l.Root, e.Name(), ManifestFileName)); err == nil {
			ids = append(ids, domain.TemplateID(e.Name()))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Open loads one template by id.
func (l *Library) Open(id domain.TemplateID) (*Handle, error) {
	return Open(filepath.Join(l.Root, string(id)))
}

// FetchOriginalPage reads the pristine page image for a template straight
// from disk. Satisfies the editor session's image source.
func (l *Library) FetchOriginalPage(_ context.Context, id domain.TemplateID, page domain.PageIndex) (domain.Image, error) {
	h, err := l.Open(id)
	if err != nil {
		return domain.Image{}, err
	}
	return h.PageImage(page)
}

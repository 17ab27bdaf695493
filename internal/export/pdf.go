/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders finished cards to print-ready PDF for the kiosk's
// fulfillment printer.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"smartwish/internal/domain"
)

// PDFOptions controls card PDF export behavior.
// Units are points (pt) unless otherwise noted.
//
// Coordinates:
// - Page origin is top-left.
// - Bleed is applied as an outer margin beyond trim.
//
// Boxes:
// - MediaBox = trim + 2*bleed (full page size in PDF)
// - TrimBox drawn as a hairline guide when IncludeGuides is set
type PDFOptions struct {
	IncludeGuides bool
	Title         string
	Pages         []int // if empty, export all pages
}

// ExportCardPDF writes the edited pages of a card as a single multi-page PDF
// at outPath. Each image is placed full-media so its bleed reaches the page
// edge; the printer trims to spec.
func ExportCardPDF(spec domain.CardSpec, pages []domain.Image, outPath string, opt PDFOptions) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to export")
	}
	if spec.TrimWidth <= 0 || spec.TrimHeight <= 0 {
		return fmt.Errorf("invalid card spec: trim %gx%g", spec.TrimWidth, spec.TrimHeight)
	}
	mediaW := spec.MediaWidth()
	mediaH := spec.MediaHeight()

	// Use points for 1:1 mapping from model to PDF
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: mediaW, Ht: mediaH},
		OrientationStr: "",
	})
	title := opt.Title
	if title == "" {
		title = "SmartWish Card"
	}
	pdf.SetTitle(title, false)
	pdf.SetAuthor("SmartWish", false)
	pdf.SetAutoPageBreak(false, 0)

	indexes := pageIndexes(len(pages), opt.Pages)
	for _, pidx := range indexes {
		if pidx < 0 || pidx >= len(pages) {
			continue
		}
		img := pages[pidx]
		itype, err := imageType(img.MIME)
		if err != nil {
			return fmt.Errorf("page %d: %w", pidx, err)
		}
		pdf.AddPage()

		name := fmt.Sprintf("page-%d", pidx)
		pdf.RegisterImageOptionsReader(name,
			gofpdf.ImageOptions{ImageType: itype, ReadDpi: false},
			bytes.NewReader(img.Data))
		pdf.ImageOptions(name, 0, 0, mediaW, mediaH, false,
			gofpdf.ImageOptions{ImageType: itype}, 0, "")

		if opt.IncludeGuides {
			drawGuides(pdf, spec)
		}
	}
	if pdf.Err() {
		return fmt.Errorf("compose pdf: %v", pdf.Error())
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// drawGuides draws the trim rectangle and, for folded cards, the fold line.
func drawGuides(pdf *gofpdf.Fpdf, spec domain.CardSpec) {
	pdf.SetDrawColor(255, 0, 0)
	pdf.SetLineWidth(0.25)
	pdf.Rect(spec.Bleed, spec.Bleed, spec.TrimWidth, spec.TrimHeight, "D")
	if spec.Fold == "half" {
		pdf.SetDrawColor(0, 0, 255)
		midY := spec.Bleed + spec.TrimHeight/2
		pdf.Line(spec.Bleed, midY, spec.Bleed+spec.TrimWidth, midY)
	}
}

func imageType(mime string) (string, error) {
	switch strings.ToLower(mime) {
	case "image/png":
		return "PNG", nil
	case "image/jpeg", "image/jpg":
		return "JPG", nil
	case "image/gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image type %q", mime)
	}
}

// pageIndexes resolves the requested page list, defaulting to all pages.
func pageIndexes(total int, requested []int) []int {
	if len(requested) == 0 {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return requested
}

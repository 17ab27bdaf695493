/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package preview renders thumbnails of edited card pages for the kiosk's
// design gallery and the saved-designs list on the backend.
package preview

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"smartwish/internal/domain"
)

// DefaultMaxEdge is the bounding box for gallery thumbnails, in pixels.
const DefaultMaxEdge = 320

// Thumbnail scales img down so that its longer edge is at most maxEdge and
// returns it PNG-encoded. Images already within the box are re-encoded but
// not resampled. maxEdge <= 0 selects DefaultMaxEdge.
func Thumbnail(img domain.Image, maxEdge int) (domain.Image, error) {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return domain.Image{}, fmt.Errorf("preview: decode %s: %w", img.MIME, err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxEdge || h > maxEdge {
		if w >= h {
			h = h * maxEdge / w
			w = maxEdge
		} else {
			w = w * maxEdge / h
			h = maxEdge
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
		src = dst
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return domain.Image{}, fmt.Errorf("preview: encode: %w", err)
	}
	return domain.Image{MIME: "image/png", Data: buf.Bytes()}, nil
}

// JPEG renders a JPEG preview at the given quality, used for print-proof
// sheets where PNG size is prohibitive.
func JPEG(img domain.Image, maxEdge, quality int) (domain.Image, error) {
	thumb, err := Thumbnail(img, maxEdge)
	if err != nil {
		return domain.Image{}, err
	}
	decoded, err := png.Decode(bytes.NewReader(thumb.Data))
	if err != nil {
		return domain.Image{}, fmt.Errorf("preview: re-decode: %w", err)
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: quality}); err != nil {
		return domain.Image{}, fmt.Errorf("preview: encode jpeg: %w", err)
	}
	return domain.Image{MIME: "image/jpeg", Data: buf.Bytes()}, nil
}

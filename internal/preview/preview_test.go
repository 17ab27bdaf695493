/*
 * Copyright (c) 2025 by the SmartWish authors.
 * Licensed under the Apache License, Version 2.0.
 */

package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"smartwish/internal/domain"
)

func testPNG(t *testing.T, w, h int) domain.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return domain.Image{MIME: "image/png", Data: buf.Bytes()}
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestThumbnailScalesDownLongEdge(t *testing.T) {
	thumb, err := Thumbnail(testPNG(t, 1200, 800), 300)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	w, h := decodeSize(t, thumb.Data)
	if w != 300 || h != 200 {
		t.Fatalf("thumbnail = %dx%d, want 300x200", w, h)
	}
	if thumb.MIME != "image/png" {
		t.Fatalf("mime = %q", thumb.MIME)
	}
}

func TestThumbnailPortraitOrientation(t *testing.T) {
	thumb, err := Thumbnail(testPNG(t, 500, 1000), 100)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	w, h := decodeSize(t, thumb.Data)
	if w != 50 || h != 100 {
		t.Fatalf("thumbnail = %dx%d, want 50x100", w, h)
	}
}

func TestThumbnailSmallImageNotUpscaled(t *testing.T) {
	thumb, err := Thumbnail(testPNG(t, 64, 48), 320)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	w, h := decodeSize(t, thumb.Data)
	if w != 64 || h != 48 {
		t.Fatalf("thumbnail = %dx%d, want original 64x48", w, h)
	}
}

func TestThumbnailRejectsGarbage(t *testing.T) {
	if _, err := Thumbnail(domain.Image{MIME: "image/png", Data: []byte("nope")}, 100); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestJPEGPreview(t *testing.T) {
	out, err := JPEG(testPNG(t, 800, 600), 200, 80)
	if err != nil {
		t.Fatalf("JPEG: %v", err)
	}
	if out.MIME != "image/jpeg" {
		t.Fatalf("mime = %q", out.MIME)
	}
	w, h := decodeSize(t, out.Data)
	if w != 200 || h != 150 {
		t.Fatalf("preview = %dx%d, want 200x150", w, h)
	}
}

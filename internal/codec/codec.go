/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package codec converts page images between their two transport encodings:
// a compressed binary envelope for the durable page store and a data-URL
// string for same-tab handoff through text-only channels. Both encodings
// round-trip byte-identically; undo/redo correctness depends on that.
package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"

	"smartwish/internal/domain"
)

// Durable envelope layout: magic, version, one-byte mime length, mime bytes,
// zstd-compressed image bytes.
var durableMagic = []byte("SWED")

const durableVersion = 1

// DecodeError reports a structurally malformed payload. Callers discard the
// offending record and fall through to the next restoration tier.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "codec: " + e.Reason }

func decodeErrf(format string, args ...any) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// EncodeDurable packs an image into the binary envelope used by the durable
// page store. The transform is pure and lossless.
func EncodeDurable(img domain.Image) ([]byte, error) {
	if len(img.MIME) == 0 || len(img.MIME) > 255 {
		return nil, fmt.Errorf("codec: mime type length %d out of range", len(img.MIME))
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("codec: init zstd: %w", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(img.Data, nil)

	buf := bytes.Buffer{}
	buf.Grow(len(durableMagic) + 2 + len(img.MIME) + len(compressed))
	buf.Write(durableMagic)
	buf.WriteByte(durableVersion)
	buf.WriteByte(byte(len(img.MIME)))
	buf.WriteString(img.MIME)
	buf.Write(compressed)
	return buf.Bytes(), nil
}

// EncodeHandoff renders an image as a self-describing data URL.
func EncodeHandoff(img domain.Image) string {
	return "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Decode reconstructs an image from either encoding shape. Binary payloads
// are tried as durable envelopes; strings must be data URLs.
func Decode(payload []byte) (domain.Image, error) {
	if bytes.HasPrefix(payload, durableMagic) {
		return decodeDurable(payload)
	}
	if bytes.HasPrefix(payload, []byte("data:")) {
		return DecodeHandoff(string(payload))
	}
	return domain.Image{}, decodeErrf("unrecognized payload shape (%d bytes)", len(payload))
}

func decodeDurable(payload []byte) (domain.Image, error) {
	rest := payload[len(durableMagic):]
	if len(rest) < 2 {
		return domain.Image{}, decodeErrf("envelope truncated at header")
	}
	if rest[0] != durableVersion {
		return domain.Image{}, decodeErrf("unsupported envelope version %d", rest[0])
	}
	mlen := int(rest[1])
	rest = rest[2:]
	if mlen == 0 || len(rest) < mlen {
		return domain.Image{}, decodeErrf("envelope truncated at mime type")
	}
	mime := string(rest[:mlen])
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return domain.Image{}, fmt.Errorf("codec: init zstd: %w", err)
	}
	defer dec.Close()
	data, err := dec.DecodeAll(rest[mlen:], nil)
	if err != nil {
		return domain.Image{}, decodeErrf("decompress image: %v", err)
	}
	return domain.Image{MIME: mime, Data: data}, nil
}

// DecodeHandoff parses a data URL produced by EncodeHandoff.
func DecodeHandoff(payload string) (domain.Image, error) {
	rest, ok := strings.CutPrefix(payload, "data:")
	if !ok {
		return domain.Image{}, decodeErrf("missing data: prefix")
	}
	mime, b64, ok := strings.Cut(rest, ";base64,")
	if !ok || mime == "" {
		return domain.Image{}, decodeErrf("missing mime type marker")
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return domain.Image{}, decodeErrf("base64 body: %v", err)
	}
	return domain.Image{MIME: mime, Data: data}, nil
}

/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"smartwish/internal/domain"
)

func TestDurableRoundTrip(t *testing.T) {
	img := domain.Image{MIME: "image/jpeg", Data: []byte("\xff\xd8\xff\xe0 not really a jpeg but bytes are bytes")}
	payload, err := EncodeDurable(img)
	if err != nil {
		t.Fatalf("EncodeDurable: %v", err)
	}
	got, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.MIME != img.MIME {
		t.Fatalf("mime = %q, want %q", got.MIME, img.MIME)
	}
	if !bytes.Equal(got.Data, img.Data) {
		t.Fatalf("data not byte-identical after round trip")
	}
}

func TestDurableRoundTripEmptyImage(t *testing.T) {
	img := domain.Image{MIME: "image/png", Data: nil}
	payload, err := EncodeDurable(img)
	if err != nil {
		t.Fatalf("EncodeDurable: %v", err)
	}
	got, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Data) != 0 {
		t.Fatalf("expected empty data, got %d bytes", len(got.Data))
	}
}

func TestHandoffRoundTrip(t *testing.T) {
	img := domain.Image{MIME: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47, 0, 1, 2, 3}}
	s := EncodeHandoff(img)
	got, err := DecodeHandoff(s)
	if err != nil {
		t.Fatalf("DecodeHandoff: %v", err)
	}
	if got.MIME != img.MIME || !bytes.Equal(got.Data, img.Data) {
		t.Fatalf("handoff round trip mismatch: %+v", got)
	}

	// Decode accepts the text shape as bytes too.
	got2, err := Decode([]byte(s))
	if err != nil {
		t.Fatalf("Decode(data URL bytes): %v", err)
	}
	if !bytes.Equal(got2.Data, img.Data) {
		t.Fatalf("Decode of data URL bytes mismatch")
	}
}

func TestDecodeMalformedPayloads(t *testing.T) {
	good, err := EncodeDurable(domain.Image{MIME: "image/png", Data: []byte("abc")})
	if err != nil {
		t.Fatalf("EncodeDurable: %v", err)
	}

	cases := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not a payload")},
		{"magic only", []byte("SWED")},
		{"bad version", append(append([]byte(nil), good[:4]...), 99, 0, 9)},
		{"truncated mime", good[:7]},
		{"corrupt body", append(append([]byte(nil), good[:len(good)-3]...), 1, 2, 3)},
		{"data url no mime", []byte("data:;base64,QUJD")},
		{"data url bad base64", []byte("data:image/png;base64,@@@@")},
	}
	for _, tc := range cases {
		_, err := Decode(tc.payload)
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("%s: want DecodeError, got %v", tc.name, err)
		}
	}
}

func TestEncodeDurableRejectsBadMIME(t *testing.T) {
	if _, err := EncodeDurable(domain.Image{MIME: "", Data: []byte("x")}); err == nil {
		t.Fatalf("expected error for empty mime")
	}
}

func TestMIMELengthFieldCapacity(t *testing.T) {
	// The envelope stores the mime length in a single byte; 255 is the
	// longest type that fits and anything longer must be rejected.
	longest := strings.Repeat("x", 255)
	payload, err := EncodeDurable(domain.Image{MIME: longest, Data: []byte("body")})
	if err != nil {
		t.Fatalf("EncodeDurable(255-byte mime): %v", err)
	}
	got, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.MIME != longest {
		t.Fatalf("mime truncated to %d bytes after round trip", len(got.MIME))
	}

	if _, err := EncodeDurable(domain.Image{MIME: longest + "x", Data: []byte("body")}); err == nil {
		t.Fatal("expected error for 256-byte mime")
	}
}

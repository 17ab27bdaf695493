/*
 * Copyright (c) 2025 by the SmartWish authors.
 * Licensed under the Apache License, Version 2.0.
 */

package retouch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"smartwish/internal/domain"
)

func TestRequestEditSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/edits" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("auth header = %q", got)
		}
		var req editRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Instruction != "add a red balloon" {
			t.Errorf("instruction = %q", req.Instruction)
		}
		if req.Hotspot == nil || req.Hotspot.X != 10 {
			t.Errorf("hotspot = %+v", req.Hotspot)
		}
		json.NewEncoder(w).Encode(editResponse{
			MIME:  "image/png",
			Image: base64.StdEncoding.EncodeToString([]byte("edited-bytes")),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	img := domain.Image{MIME: "image/png", Data: []byte("original")}
	got, err := c.RequestEdit(context.Background(), img, "add a red balloon", &domain.Hotspot{X: 10, Y: 20})
	if err != nil {
		t.Fatalf("RequestEdit: %v", err)
	}
	if string(got.Data) != "edited-bytes" || got.MIME != "image/png" {
		t.Fatalf("got %q (%s)", got.Data, got.MIME)
	}
}

func TestRequestEditBlockedInstruction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(editResponse{Error: "instruction violates content policy", Blocked: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.RequestEdit(context.Background(), domain.Image{MIME: "image/png", Data: []byte("x")}, "something nasty", nil)
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *ServiceError", err)
	}
	if !se.Blocked || se.Status != http.StatusUnprocessableEntity {
		t.Fatalf("service error = %+v", se)
	}
}

func TestRequestEditServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.RequestEdit(context.Background(), domain.Image{MIME: "image/png", Data: []byte("x")}, "brighten", nil)
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *ServiceError", err)
	}
	if se.Blocked {
		t.Fatal("plain server failure flagged as blocked")
	}
	if se.Status != http.StatusBadGateway {
		t.Fatalf("status = %d", se.Status)
	}
}

func TestRequestEditEmptyInstruction(t *testing.T) {
	c := NewClient("http://localhost:1", "")
	_, err := c.RequestEdit(context.Background(), domain.Image{MIME: "image/png", Data: []byte("x")}, "   ", nil)
	var se *ServiceError
	if !errors.As(err, &se) || se.Status != http.StatusBadRequest {
		t.Fatalf("err = %v, want bad-request service error", err)
	}
}

func TestRequestEditEmptyResultRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(editResponse{MIME: "image/png", Image: ""})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.RequestEdit(context.Background(), domain.Image{MIME: "image/png", Data: []byte("x")}, "brighten", nil)
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *ServiceError", err)
	}
}

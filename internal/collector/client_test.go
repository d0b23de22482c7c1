// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package collector

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/nhartono/aiswatch/internal/config"
	"github.com/nhartono/aiswatch/internal/models/telkomsat"
)

func clientCfg(url string) *config.Telkomsat {
	return &config.Telkomsat{
		URL:            url,
		APIKey:         "test-key",
		RequestTimeout: 5 * time.Second,
		VesselTimeout:  5 * time.Second,
		HealthTimeout:  2 * time.Second,
	}
}

func TestFetchPageSendsFormFields(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Unexpected content type %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		gotForm = map[string]string{
			"api_key": r.PostFormValue("api_key"),
			"page":    r.PostFormValue("page"),
			"limit":   r.PostFormValue("limit"),
		}
		resp := telkomsat.Response{
			Data:  []telkomsat.Record{{MMSI: "525001001", Latitude: "-6.1", Longitude: "106.85"}},
			Count: 1,
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("Encode failed: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(clientCfg(server.URL))
	resp, err := client.FetchPage(t.Context(), 2, 100)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].MMSI != "525001001" {
		t.Errorf("Response not decoded: %+v", resp)
	}
	if gotForm["api_key"] != "test-key" || gotForm["page"] != "2" || gotForm["limit"] != "100" {
		t.Errorf("Form fields wrong: %v", gotForm)
	}
}

func TestFetchPageNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(clientCfg(server.URL))
	if _, err := client.FetchPage(t.Context(), 1, 100); err == nil {
		t.Error("Expected error on non-200 status")
	}
}

func TestFetchPageProviderErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := telkomsat.Response{Code: 401, Message: "invalid api key"}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("Encode failed: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(clientCfg(server.URL))
	if _, err := client.FetchPage(t.Context(), 1, 100); err == nil {
		t.Error("Expected error on provider error code")
	}
}

func TestFetchVesselsSendsMMSIList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		if got := r.PostFormValue("mmsi"); got != "525001001,563002002" {
			t.Errorf("Unexpected mmsi list %q", got)
		}
		if err := json.NewEncoder(w).Encode(telkomsat.Response{}); err != nil {
			t.Errorf("Encode failed: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(clientCfg(server.URL))
	if _, err := client.FetchVessels(t.Context(), []int64{525001001, 563002002}); err != nil {
		t.Fatalf("FetchVessels failed: %v", err)
	}
}

func TestFetchVesselsEmptyListShortCircuits(t *testing.T) {
	client := NewClient(clientCfg("http://unreachable.invalid"))
	resp, err := client.FetchVessels(t.Context(), nil)
	if err != nil {
		t.Fatalf("Empty list must not hit the network: %v", err)
	}
	if len(resp.Data) != 0 {
		t.Errorf("Expected empty response, got %+v", resp)
	}
}

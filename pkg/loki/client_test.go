package loki

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"odptbus/pkg/odpt"
	"odptbus/pkg/types"
)

var testVehicles = []any{
	types.VehiclePosition{ID: "v1", TripID: "t1", VehicleID: "veh1", Position: types.Position{Latitude: 35.6, Longitude: 139.7}},
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:3100/", "user", "pass")

	if client == nil {
		t.Fatal("NewClient returned nil")
	}
	if client.baseURL != "http://localhost:3100" {
		t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:3100")
	}
	if client.username != "user" {
		t.Errorf("username = %q, want %q", client.username, "user")
	}
	if client.password != "pass" {
		t.Errorf("password = %q, want %q", client.password, "pass")
	}
}

func TestSendRecords_MockServer(t *testing.T) {
	var receivedBody []byte
	var receivedHeaders http.Header
	var receivedPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		receivedHeaders = r.Header
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "")
	client.now = func() time.Time { return time.Unix(1700000000, 0) }

	err := client.SendRecords(context.Background(), "get_bus_realtime", testVehicles)
	if err != nil {
		t.Fatalf("SendRecords failed: %v", err)
	}

	// Verify correct endpoint called
	if receivedPath != "/loki/api/v1/push" {
		t.Errorf("Expected path /loki/api/v1/push, got %s", receivedPath)
	}
	if receivedHeaders.Get("Content-Type") != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", receivedHeaders.Get("Content-Type"))
	}
	if receivedHeaders.Get("User-Agent") != odpt.UserAgent {
		t.Errorf("Expected User-Agent %s, got %s", odpt.UserAgent, receivedHeaders.Get("User-Agent"))
	}

	var pushReq PushRequest
	if err := json.Unmarshal(receivedBody, &pushReq); err != nil {
		t.Fatalf("Failed to parse request body: %v", err)
	}
	if len(pushReq.Streams) != 1 {
		t.Fatalf("Expected 1 stream, got %d", len(pushReq.Streams))
	}

	stream := pushReq.Streams[0]

	expectedLabels := map[string]string{
		"job":     "odptbus",
		"service": "transit-open-data",
		"command": "get_bus_realtime",
	}
	for key, expected := range expectedLabels {
		if stream.Stream[key] != expected {
			t.Errorf("Stream label %q = %q, want %q", key, stream.Stream[key], expected)
		}
	}

	if len(stream.Values) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(stream.Values))
	}

	entry := stream.Values[0]
	if len(entry) != 2 {
		t.Fatalf("Expected entry with [timestamp, content], got %d elements", len(entry))
	}
	if entry[0] != strconv.FormatInt(time.Unix(1700000000, 0).UnixNano(), 10) {
		t.Errorf("timestamp = %s", entry[0])
	}

	var vehicleLog map[string]any
	if err := json.Unmarshal([]byte(entry[1]), &vehicleLog); err != nil {
		t.Fatalf("Failed to parse log content JSON: %v", err)
	}

	for _, field := range []string{"id", "trip_id", "vehicle_id", "position", "bus_image"} {
		if _, exists := vehicleLog[field]; !exists {
			t.Errorf("Expected field %q in log content, not found", field)
		}
	}
	if vehicleLog["vehicle_id"] != "veh1" {
		t.Errorf("vehicle_id = %v, want veh1", vehicleLog["vehicle_id"])
	}
	if img, _ := vehicleLog["bus_image"].(string); !strings.HasPrefix(img, "data:image/svg+xml;base64,") {
		t.Errorf("bus_image = %q, want SVG data URI", img)
	}
}

func TestSendRecords_NonVehicleRecords(t *testing.T) {
	var receivedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "")

	records := []any{
		types.BusStop{Title: &types.Title{PrimaryName: "東京駅"}, ExternalID: "a.1", ShortID: "1"},
		types.BusStop{ExternalID: "a.2", ShortID: "2"},
		types.BusStop{ExternalID: "a.3", ShortID: "3"},
	}
	if err := client.SendRecords(context.Background(), "get_bus_stops", records); err != nil {
		t.Fatalf("SendRecords failed: %v", err)
	}

	var pushReq PushRequest
	if err := json.Unmarshal(receivedBody, &pushReq); err != nil {
		t.Fatalf("Failed to parse request body: %v", err)
	}

	values := pushReq.Streams[0].Values
	if len(values) != 3 {
		t.Fatalf("Expected 3 log entries, got %d", len(values))
	}
	if values[0][0] == values[1][0] {
		t.Error("log lines in one batch should have distinct timestamps")
	}
	if strings.Contains(values[0][1], "bus_image") {
		t.Error("only vehicle lines carry a marker")
	}
	if !strings.Contains(values[0][1], `"primary_name":"東京駅"`) {
		t.Errorf("stop line = %s", values[0][1])
	}

	names := []string{"東京駅", "名称不明", "名称不明"}
	for i, want := range names {
		var line map[string]any
		if err := json.Unmarshal([]byte(values[i][1]), &line); err != nil {
			t.Fatalf("line %d is not JSON: %v", i, err)
		}
		if line["name"] != want {
			t.Errorf("line %d name = %v, want %s", i, line["name"], want)
		}
		if line["external_id"] == nil {
			t.Errorf("line %d lost the stop fields: %s", i, values[i][1])
		}
	}
}

func TestSendRecords_WithAuthentication(t *testing.T) {
	var user, pass string
	var ok bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok = r.BasicAuth()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "testuser", "testpass")

	if err := client.SendRecords(context.Background(), "get_bus_realtime", testVehicles); err != nil {
		t.Fatalf("SendRecords failed: %v", err)
	}

	if !ok || user != "testuser" || pass != "testpass" {
		t.Errorf("BasicAuth = (%q, %q, %v), want (testuser, testpass, true)", user, pass, ok)
	}
}

func TestSendRecords_NoAuthenticationWhenEmpty(t *testing.T) {
	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "testuser", "")

	if err := client.SendRecords(context.Background(), "get_bus_realtime", testVehicles); err != nil {
		t.Fatalf("SendRecords failed: %v", err)
	}

	if authHeader != "" {
		t.Errorf("Expected no Authorization header, got %q", authHeader)
	}
}

func TestSendRecords_ErrorOnNon2xx(t *testing.T) {
	tests := []struct {
		statusCode int
		expectErr  bool
	}{
		{http.StatusOK, false},
		{http.StatusNoContent, false},
		{http.StatusBadRequest, true},
		{http.StatusUnauthorized, true},
		{http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.statusCode), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client := NewClient(server.URL, "", "")

			err := client.SendRecords(context.Background(), "get_bus_realtime", testVehicles)
			if tt.expectErr && err == nil {
				t.Errorf("Expected error for status %d, got nil", tt.statusCode)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Unexpected error for status %d: %v", tt.statusCode, err)
			}
		})
	}
}

func TestSendRecords_Empty(t *testing.T) {
	var receivedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "")

	if err := client.SendRecords(context.Background(), "get_bus_routes", nil); err != nil {
		t.Fatalf("SendRecords failed: %v", err)
	}

	var pushReq PushRequest
	if err := json.Unmarshal(receivedBody, &pushReq); err != nil {
		t.Fatalf("Failed to parse request body: %v", err)
	}
	if len(pushReq.Streams[0].Values) != 0 {
		t.Errorf("Expected 0 log entries, got %d", len(pushReq.Streams[0].Values))
	}
}

func TestSendRecords_ServerUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, "", "")

	if err := client.SendRecords(context.Background(), "get_bus_realtime", testVehicles); err == nil {
		t.Error("Expected error when server is unavailable, got nil")
	}
}

func TestSendRecords_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.SendRecords(ctx, "get_bus_realtime", testVehicles); err == nil {
		t.Error("Expected error when context is cancelled, got nil")
	}
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/raceroom/game/config"
	"github.com/wricardo/mcp-training/raceroom/game/registry"
	"github.com/wricardo/mcp-training/raceroom/game/room"
	"github.com/wricardo/mcp-training/raceroom/game/service"
	ws "github.com/wricardo/mcp-training/raceroom/transport/websocket"
)

// MockLobbyService implements service.LobbyService for testing
type MockLobbyService struct {
	ListRoomsFunc   func(ctx context.Context) ([]*service.RoomInfo, error)
	GetRoomFunc     func(ctx context.Context, code string) (*service.RoomInfo, error)
	StatsFunc       func(ctx context.Context) (*service.Stats, error)
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, name string) (*room.Preset, error)
}

func (m *MockLobbyService) ListRooms(ctx context.Context) ([]*service.RoomInfo, error) {
	if m.ListRoomsFunc != nil {
		return m.ListRoomsFunc(ctx)
	}
	return []*service.RoomInfo{}, nil
}

func (m *MockLobbyService) GetRoom(ctx context.Context, code string) (*service.RoomInfo, error) {
	if m.GetRoomFunc != nil {
		return m.GetRoomFunc(ctx, code)
	}
	return &service.RoomInfo{Code: code, State: room.StatePending}, nil
}

func (m *MockLobbyService) Stats(ctx context.Context) (*service.Stats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &service.Stats{Preset: "classic", Capacity: 3}, nil
}

func (m *MockLobbyService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockLobbyService) LoadConfig(ctx context.Context, name string) (*room.Preset, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, name)
	}
	return &room.Preset{Name: name, Capacity: 3}, nil
}

func setupTestServer(mockService *MockLobbyService) *Server {
	return NewServer(mockService, nil, "")
}

func makeRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func sampleRooms() []*service.RoomInfo {
	now := time.Now()
	return []*service.RoomInfo{
		{Code: "K3XHRM", State: room.StateStarted, Capacity: 3, PlayerCount: 3, CreatedAt: now},
		{Code: "P7QWNZ", State: room.StatePending, Capacity: 3, PlayerCount: 1, CreatedAt: now.Add(-time.Minute)},
		{Code: "D4MTRV", State: room.StatePending, Capacity: 3, PlayerCount: 2, CreatedAt: now.Add(-2 * time.Minute)},
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockLobbyService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Reports counts",
			setupMock: func(m *MockLobbyService) {
				m.StatsFunc = func(ctx context.Context) (*service.Stats, error) {
					return &service.Stats{Rooms: 2, Players: 5, Connections: 6, Preset: "party"}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]interface{}
				parseResponse(t, w, &resp)
				if resp["status"] != "healthy" {
					t.Errorf("Expected status healthy, got %v", resp["status"])
				}
				if resp["rooms"] != float64(2) || resp["players"] != float64(5) || resp["connections"] != float64(6) {
					t.Errorf("Unexpected counts: %v", resp)
				}
				if resp["preset"] != "party" {
					t.Errorf("Expected preset party, got %v", resp["preset"])
				}
			},
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockLobbyService) {
				m.StatsFunc = func(ctx context.Context) (*service.Stats, error) {
					return nil, fmt.Errorf("stats unavailable")
				}
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockLobbyService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/health"))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListRooms(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		expectedCount int
		expectedFirst string
	}{
		{"All rooms", "/api/rooms", 3, "K3XHRM"},
		{"Filter by state", "/api/rooms?state=pending", 2, "P7QWNZ"},
		{"Limit", "/api/rooms?limit=1", 1, "K3XHRM"},
		{"Invalid limit ignored", "/api/rooms?limit=abc", 3, "K3XHRM"},
		{"Filter and limit", "/api/rooms?state=pending&limit=1", 1, "P7QWNZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockLobbyService{
				ListRoomsFunc: func(ctx context.Context) ([]*service.RoomInfo, error) {
					return sampleRooms(), nil
				},
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", tt.path))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count int                 `json:"count"`
				Total int                 `json:"total"`
				Rooms []*service.RoomInfo `json:"rooms"`
			}
			parseResponse(t, w, &resp)

			if resp.Count != tt.expectedCount || len(resp.Rooms) != tt.expectedCount {
				t.Errorf("Expected %d rooms, got count=%d len=%d", tt.expectedCount, resp.Count, len(resp.Rooms))
			}
			if resp.Total != 3 {
				t.Errorf("Expected total 3, got %d", resp.Total)
			}
			if len(resp.Rooms) > 0 && resp.Rooms[0].Code != tt.expectedFirst {
				t.Errorf("Expected first room %s, got %s", tt.expectedFirst, resp.Rooms[0].Code)
			}
		})
	}

	t.Run("Handle service error", func(t *testing.T) {
		mockService := &MockLobbyService{
			ListRoomsFunc: func(ctx context.Context) ([]*service.RoomInfo, error) {
				return nil, fmt.Errorf("boom")
			},
		}
		w := httptest.NewRecorder()
		setupTestServer(mockService).ServeHTTP(w, makeRequest("GET", "/api/rooms"))
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", w.Code)
		}
	})
}

func TestGetRoom(t *testing.T) {
	tests := []struct {
		name           string
		code           string
		setupMock      func(*MockLobbyService)
		expectedStatus int
	}{
		{
			name: "Existing room",
			code: "k3xhrm",
			setupMock: func(m *MockLobbyService) {
				m.GetRoomFunc = func(ctx context.Context, code string) (*service.RoomInfo, error) {
					if code != "k3xhrm" {
						t.Errorf("Expected code passed through, got %s", code)
					}
					return &service.RoomInfo{Code: "K3XHRM", PlayerCount: 2}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Unknown room",
			code: "ZZZZZZ",
			setupMock: func(m *MockLobbyService) {
				m.GetRoomFunc = func(ctx context.Context, code string) (*service.RoomInfo, error) {
					return nil, fmt.Errorf("room %s: %w", code, registry.ErrRoomNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Service error",
			code: "K3XHRM",
			setupMock: func(m *MockLobbyService) {
				m.GetRoomFunc = func(ctx context.Context, code string) (*service.RoomInfo, error) {
					return nil, fmt.Errorf("unexpected")
				}
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockLobbyService{}
			tt.setupMock(mockService)

			w := httptest.NewRecorder()
			setupTestServer(mockService).ServeHTTP(w, makeRequest("GET", "/api/rooms/"+tt.code))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus == http.StatusNotFound {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if !strings.Contains(resp["error"], "room not found") {
					t.Errorf("Expected not found error, got %q", resp["error"])
				}
			}
		})
	}
}

func TestListConfigs(t *testing.T) {
	mockService := &MockLobbyService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{
				{Filename: "classic.json", ConfigID: "classic", Name: "classic", Capacity: 3},
				{Filename: "party.json", ConfigID: "party", Name: "party", Capacity: 6},
			}, nil
		},
	}

	w := httptest.NewRecorder()
	setupTestServer(mockService).ServeHTTP(w, makeRequest("GET", "/api/configs"))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Count   int                   `json:"count"`
		Configs []*service.ConfigInfo `json:"configs"`
	}
	parseResponse(t, w, &resp)
	if resp.Count != 2 || resp.Configs[1].Capacity != 6 {
		t.Errorf("Unexpected configs response: %+v", resp)
	}

	t.Run("Empty list renders as array", func(t *testing.T) {
		mockService := &MockLobbyService{
			ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
				return nil, nil
			},
		}
		w := httptest.NewRecorder()
		setupTestServer(mockService).ServeHTTP(w, makeRequest("GET", "/api/configs"))
		if !strings.Contains(w.Body.String(), `"configs":[]`) {
			t.Errorf("Expected empty configs array, got %s", w.Body.String())
		}
	})
}

func TestGetConfig(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"Found", nil, http.StatusOK},
		{"Not found", config.ErrConfigNotFound, http.StatusNotFound},
		{"Invalid", fmt.Errorf("%w: capacity", config.ErrInvalidConfig), http.StatusUnprocessableEntity},
		{"Other", fmt.Errorf("disk"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockLobbyService{
				LoadConfigFunc: func(ctx context.Context, name string) (*room.Preset, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &room.Preset{Name: name, Capacity: 6, ArenaWidth: 1200}, nil
				},
			}

			w := httptest.NewRecorder()
			setupTestServer(mockService).ServeHTTP(w, makeRequest("GET", "/api/configs/party"))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.err == nil {
				var preset room.Preset
				parseResponse(t, w, &preset)
				if preset.Name != "party" || preset.ArenaWidth != 1200 {
					t.Errorf("Unexpected preset: %+v", preset)
				}
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	setupTestServer(&MockLobbyService{}).ServeHTTP(w, makeRequest("POST", "/api/rooms"))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>race</h1>"), 0644); err != nil {
		t.Fatal(err)
	}

	server := NewServer(&MockLobbyService{}, nil, dir)
	server.MountStatic()

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/"))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "race") {
		t.Errorf("Expected index.html, got %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/health"))
	if w.Code != http.StatusOK {
		t.Errorf("API routes must win over static files, got %d", w.Code)
	}
}

func TestWebSocket(t *testing.T) {
	t.Run("No hub attached", func(t *testing.T) {
		w := httptest.NewRecorder()
		setupTestServer(&MockLobbyService{}).ServeHTTP(w, makeRequest("GET", "/ws"))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})

	t.Run("Upgrade and create room", func(t *testing.T) {
		reg := registry.New(room.DefaultSettings())
		hub := ws.NewHub(reg)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go hub.Run(ctx)

		configs := &staticConfigs{preset: config.BuiltinPreset()}
		lobby := service.NewLobbyService(reg, configs, hub)
		httpServer := httptest.NewServer(NewServer(lobby, hub, ""))
		defer httpServer.Close()

		wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect to WebSocket: %v", err)
		}
		defer conn.Close()

		if err := conn.WriteJSON(map[string]interface{}{
			"event": ws.EventCreateRoom,
			"data":  map[string]string{"nickname": "Ann"},
		}); err != nil {
			t.Fatalf("Failed to send create-room: %v", err)
		}

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg ws.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Failed to read reply: %v", err)
		}
		if msg.Event != ws.EventRoomCreated {
			t.Fatalf("Expected room-created, got %s", msg.Event)
		}

		var created struct {
			RoomCode string `json:"roomCode"`
		}
		if err := json.Unmarshal(msg.Data, &created); err != nil {
			t.Fatal(err)
		}

		resp, err := http.Get(httpServer.URL + "/api/rooms/" + strings.ToLower(created.RoomCode))
		if err != nil {
			t.Fatalf("Failed to query room: %v", err)
		}
		defer resp.Body.Close()

		var info service.RoomInfo
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			t.Fatal(err)
		}
		if info.Code != created.RoomCode || info.PlayerCount != 1 || len(info.Players) != 1 {
			t.Errorf("Unexpected room info: %+v", info)
		}
		if info.Players[0].Nickname != "Ann" {
			t.Errorf("Expected host Ann, got %s", info.Players[0].Nickname)
		}
	})
}

// staticConfigs serves a single preset
type staticConfigs struct {
	preset *room.Preset
}

func (s *staticConfigs) LoadConfig(name string) (*room.Preset, error) {
	if name != s.preset.Name {
		return nil, config.ErrConfigNotFound
	}
	return s.preset, nil
}

func (s *staticConfigs) ListConfigs() ([]*service.ConfigInfo, error) {
	return []*service.ConfigInfo{{ConfigID: s.preset.Name, Name: s.preset.Name, Capacity: s.preset.Capacity}}, nil
}

func (s *staticConfigs) GetDefault() *room.Preset {
	return s.preset
}

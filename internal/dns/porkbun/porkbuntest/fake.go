// Package porkbuntest provides an in-memory Porkbun DNS API for tests.
package porkbuntest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

const apiPrefix = "/api/json/v3/"

// Record is a record as held by the fake API. Name is the FQDN, as the real
// API reports it.
type Record struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
	TTL     string `json:"ttl"`
	Prio    string `json:"prio"`
	Notes   string `json:"notes"`
}

// Server is a minimal Porkbun API.
type Server struct {
	APIKey       string
	SecretAPIKey string

	// FailDelete makes every delete answer with an ERROR status.
	FailDelete bool

	mu      sync.Mutex
	records map[string][]Record // zone → records
	nextID  int
	calls   []string
	bodies  []map[string]any

	srv *httptest.Server
}

// NewServer starts a fake API accepting the given credentials. It is closed
// when the test ends.
func NewServer(t interface{ Cleanup(func()) }, apiKey, secretAPIKey string) *Server {
	s := &Server{
		APIKey:       apiKey,
		SecretAPIKey: secretAPIKey,
		records:      map[string][]Record{},
		nextID:       100000,
	}
	s.srv = httptest.NewServer(s)
	t.Cleanup(s.srv.Close)
	return s
}

// Endpoint is the base URL to configure the provider with.
func (s *Server) Endpoint() string {
	return s.srv.URL + strings.TrimSuffix(apiPrefix, "/")
}

// AddRecord seeds a record and returns its ID.
func (s *Server) AddRecord(zone, name, recordType, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(zone, name, recordType, content, "600")
}

func (s *Server) add(zone, name, recordType, content, ttl string) string {
	s.nextID++
	id := fmt.Sprintf("%d", s.nextID)
	fqdn := zone
	if name != "" {
		fqdn = name + "." + zone
	}
	s.records[zone] = append(s.records[zone], Record{
		ID: id, Name: fqdn, Type: recordType, Content: content, TTL: ttl, Prio: "0",
	})
	return id
}

// Records returns a copy of the records in zone.
func (s *Server) Records(zone string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records[zone]...)
}

// Calls returns the request paths received so far, relative to the API root.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount counts requests whose path starts with prefix.
func (s *Server) CallCount(prefix string) int {
	n := 0
	for _, c := range s.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// LastBody returns the decoded JSON body of the last request.
func (s *Server) LastBody() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bodies) == 0 {
		return nil
	}
	return s.bodies[len(s.bodies)-1]
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, apiPrefix)

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "ERROR", "message": "invalid JSON"})
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, path)
	s.bodies = append(s.bodies, body)
	s.mu.Unlock()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"status": "ERROR", "message": "method not allowed"})
		return
	}
	if body["apikey"] != s.APIKey || body["secretapikey"] != s.SecretAPIKey {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "ERROR", "message": "Invalid API key. (001)"})
		return
	}

	parts := strings.Split(path, "/")
	switch {
	case path == "ping":
		writeJSON(w, http.StatusOK, map[string]string{"status": "SUCCESS", "yourIp": "192.0.2.1"})
	case len(parts) == 5 && parts[0] == "dns" && parts[1] == "retrieveByNameType":
		s.handleRetrieveByNameType(w, parts[2], parts[3], parts[4])
	case len(parts) == 3 && parts[0] == "dns" && parts[1] == "retrieve":
		s.handleRetrieve(w, parts[2])
	case len(parts) == 3 && parts[0] == "dns" && parts[1] == "create":
		s.handleCreate(w, parts[2], body)
	case len(parts) == 4 && parts[0] == "dns" && parts[1] == "delete":
		s.handleDelete(w, parts[2], parts[3])
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "ERROR", "message": "unknown endpoint"})
	}
}

func (s *Server) handleRetrieveByNameType(w http.ResponseWriter, zone, recordType, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fqdn := zone
	if name != "" {
		fqdn = name + "." + zone
	}
	records := []Record{}
	for _, rec := range s.records[zone] {
		if rec.Type == recordType && rec.Name == fqdn {
			records = append(records, rec)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "SUCCESS", "records": records})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, zone string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := append([]Record{}, s.records[zone]...)
	writeJSON(w, http.StatusOK, map[string]any{"status": "SUCCESS", "records": records})
}

func (s *Server) handleCreate(w http.ResponseWriter, zone string, body map[string]any) {
	name, _ := body["name"].(string)
	recordType, _ := body["type"].(string)
	content, _ := body["content"].(string)
	ttl, _ := body["ttl"].(string)
	if recordType == "" || content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "ERROR", "message": "type and content are required"})
		return
	}

	s.mu.Lock()
	id := s.add(zone, name, recordType, content, ttl)
	s.mu.Unlock()

	// The real API reports the new ID as a number.
	var numeric int
	fmt.Sscanf(id, "%d", &numeric)
	writeJSON(w, http.StatusOK, map[string]any{"status": "SUCCESS", "id": numeric})
}

func (s *Server) handleDelete(w http.ResponseWriter, zone, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDelete {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "ERROR", "message": "delete failed"})
		return
	}
	records := s.records[zone]
	for i, rec := range records {
		if rec.ID == id {
			s.records[zone] = append(records[:i], records[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"status": "SUCCESS"})
			return
		}
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"status": "ERROR", "message": "Invalid record ID."})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

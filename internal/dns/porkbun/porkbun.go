package porkbun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/dns"
)

const (
	// DefaultEndpoint is the Porkbun JSON API v3 base URL.
	DefaultEndpoint = "https://api.porkbun.com/api/json/v3"

	// MinTTL is the smallest TTL Porkbun accepts for a record, in seconds.
	MinTTL = 600

	statusSuccess = "SUCCESS"
)

// Provider implements dns.Provider for the Porkbun DNS API.
type Provider struct {
	endpoint     string
	apiKey       string
	secretAPIKey string
	defaultTTL   int
	client       *http.Client
	log          logr.Logger
}

var _ dns.Provider = (*Provider)(nil)

// New creates a Porkbun provider from the given settings map.
// Required settings: api_key, secret_api_key.
// Optional settings: endpoint (default DefaultEndpoint), default_ttl
// (default MinTTL), timeout (Go duration, default 30s).
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	apiKey := settings["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("porkbun: missing required setting 'api_key'")
	}
	secretAPIKey := settings["secret_api_key"]
	if secretAPIKey == "" {
		return nil, fmt.Errorf("porkbun: missing required setting 'secret_api_key'")
	}

	endpoint := DefaultEndpoint
	if v := settings["endpoint"]; v != "" {
		if _, err := url.Parse(v); err != nil {
			return nil, fmt.Errorf("porkbun: invalid endpoint %q: %w", v, err)
		}
		endpoint = v
	}

	defaultTTL := MinTTL
	if v := settings["default_ttl"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("porkbun: invalid default_ttl %q: %w", v, err)
		}
		if parsed < MinTTL {
			log.Info("default_ttl below Porkbun minimum, using minimum", "default_ttl", parsed, "min", MinTTL)
			parsed = MinTTL
		}
		defaultTTL = parsed
	}

	timeout := 30 * time.Second
	if v := settings["timeout"]; v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("porkbun: invalid timeout %q: %w", v, err)
		}
		timeout = parsed
	}

	return &Provider{
		endpoint:     endpoint,
		apiKey:       apiKey,
		secretAPIKey: secretAPIKey,
		defaultTTL:   defaultTTL,
		client:       &http.Client{Timeout: timeout},
		log:          log,
	}, nil
}

// apiResponse is the envelope every Porkbun endpoint answers with.
type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// apiRecord is a record as returned by the retrieve endpoints.
type apiRecord struct {
	ID      recordID `json:"id"`
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Content string   `json:"content"`
	TTL     string   `json:"ttl"`
	Prio    string   `json:"prio"`
	Notes   string   `json:"notes"`
}

// APIError is returned when the API answers with a non-200 status or an
// ERROR status field.
type APIError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("porkbun: %s returned status %d: %s", e.Path, e.StatusCode, e.Message)
}

// recordID accepts both the numeric and the quoted form of a record ID.
type recordID string

func (id *recordID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	*id = recordID(s)
	return nil
}

// doRequest POSTs body (with credentials merged in) to the given API path and
// decodes the response into out. An ERROR status is returned as an error.
func (p *Provider) doRequest(ctx context.Context, path string, body map[string]any, out any) error {
	if body == nil {
		body = map[string]any{}
	}
	body["apikey"] = p.apiKey
	body["secretapikey"] = p.secretAPIKey

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("porkbun: marshal request body: %w", err)
	}

	u := strings.TrimRight(p.endpoint, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("porkbun: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	p.log.V(1).Info("api request", "path", path)
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("porkbun: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("porkbun: read %s response: %w", path, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("porkbun: %s returned status %d: %s", path, resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("porkbun: decode %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK || envelope.Status != statusSuccess {
		msg := envelope.Message
		if msg == "" {
			msg = string(respBody)
		}
		return &APIError{Path: path, StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("porkbun: decode %s response: %w", path, err)
		}
	}
	return nil
}

// Ping checks the credentials and returns the IP address the API saw.
func (p *Provider) Ping(ctx context.Context) (string, error) {
	var result struct {
		YourIP string `json:"yourIp"`
	}
	if err := p.doRequest(ctx, "ping", nil, &result); err != nil {
		return "", err
	}
	return result.YourIP, nil
}

// ListRecords returns the records of the given type at name within zone.
func (p *Provider) ListRecords(ctx context.Context, zone, recordType, name string) ([]dns.Record, error) {
	p.log.Info("listing records", "zone", zone, "type", recordType, "name", name)

	path := fmt.Sprintf("dns/retrieveByNameType/%s/%s/%s", url.PathEscape(zone), url.PathEscape(recordType), url.PathEscape(name))
	return p.retrieve(ctx, zone, path)
}

// RetrieveRecords returns every record in zone.
func (p *Provider) RetrieveRecords(ctx context.Context, zone string) ([]dns.Record, error) {
	p.log.Info("retrieving zone", "zone", zone)
	return p.retrieve(ctx, zone, "dns/retrieve/"+url.PathEscape(zone))
}

func (p *Provider) retrieve(ctx context.Context, zone, path string) ([]dns.Record, error) {
	var result struct {
		Records []apiRecord `json:"records"`
	}
	if err := p.doRequest(ctx, path, nil, &result); err != nil {
		return nil, err
	}

	records := make([]dns.Record, 0, len(result.Records))
	for _, r := range result.Records {
		ttl, _ := strconv.Atoi(r.TTL)
		records = append(records, dns.Record{
			ID:      string(r.ID),
			Type:    r.Type,
			Name:    dns.RelativeName(r.Name, zone),
			Content: r.Content,
			TTL:     ttl,
		})
	}
	return records, nil
}

// CreateRecord adds a record to zone and returns its ID.
func (p *Provider) CreateRecord(ctx context.Context, zone string, record dns.Record) (string, error) {
	p.log.Info("creating record", "zone", zone, "type", record.Type, "name", record.Name, "content", record.Content)

	ttl := record.TTL
	if ttl < MinTTL {
		ttl = p.defaultTTL
	}
	body := map[string]any{
		"name":    record.Name,
		"type":    record.Type,
		"content": record.Content,
		"ttl":     strconv.Itoa(ttl),
	}

	var result struct {
		ID recordID `json:"id"`
	}
	if err := p.doRequest(ctx, "dns/create/"+url.PathEscape(zone), body, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("porkbun: create in %s returned no record id", zone)
	}

	p.log.Info("record created", "id", string(result.ID))
	return string(result.ID), nil
}

// DeleteRecord removes the record with the given ID from zone. It reports
// false when the API answered but did not confirm the deletion.
func (p *Provider) DeleteRecord(ctx context.Context, zone, id string) (bool, error) {
	p.log.Info("deleting record", "zone", zone, "id", id)

	// Any status but SUCCESS comes back as an *APIError.
	path := fmt.Sprintf("dns/delete/%s/%s", url.PathEscape(zone), url.PathEscape(id))
	if err := p.doRequest(ctx, path, nil, nil); err != nil {
		return false, err
	}

	p.log.Info("record deleted", "id", id)
	return true, nil
}

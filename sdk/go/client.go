package cratesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal crate HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Record is the crate description sent to the API.
type Record struct {
	FarmName         string  `json:"farm_name,omitempty"`
	FarmLocation     string  `json:"farm_location,omitempty"`
	Variety          string  `json:"variety,omitempty"`
	VarietyOther     string  `json:"variety_other,omitempty"`
	WeightKg         float64 `json:"weight_kg,omitempty"`
	QuantityPieces   int     `json:"quantity_pieces,omitempty"`
	QualityGrade     string  `json:"quality_grade,omitempty"`
	HarvestDate      string  `json:"harvest_date,omitempty"`
	OrganicCertified bool    `json:"organic_certified,omitempty"`
	Notes            string  `json:"notes,omitempty"`
}

// PreviewRow is one line of the on-screen listing.
type PreviewRow struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// File is an export file.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Crate is the generated artifact bundle.
type Crate struct {
	ID          string       `json:"id"`
	GeneratedAt string       `json:"generated_at"`
	Payload     string       `json:"payload"`
	Digest      string       `json:"digest"`
	Label       string       `json:"label"`
	Preview     []PreviewRow `json:"preview"`
	Files       []File       `json:"files,omitempty"`
	Degraded    bool         `json:"degraded,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Field      string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateCrate generates the artifacts for rec. With includeFiles the QR,
// label and data files are attached.
func (c *Client) CreateCrate(ctx context.Context, rec Record, includeFiles bool) (Crate, error) {
	endpoint := "crates"
	if includeFiles {
		endpoint += "?include_files=true"
	}
	var resp Crate
	err := c.do(ctx, http.MethodPost, endpoint, rec, &resp)
	return resp, err
}

// RenderQR returns a PNG QR code for payload.
func (c *Client) RenderQR(ctx context.Context, payload string) ([]byte, error) {
	var img []byte
	err := c.do(ctx, http.MethodPost, "qr", map[string]string{"payload": payload}, &img)
	return img, err
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, b)
	}
	switch v := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*v, err = io.ReadAll(resp.Body)
		return err
	default:
		return json.NewDecoder(resp.Body).Decode(out)
	}
}

func decodeAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var env struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		if f, ok := env.Error.Details["field"].(string); ok {
			apiErr.Field = f
		}
	}
	return apiErr
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}

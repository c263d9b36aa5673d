package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mkalvans/deductsync/internal/client/models"
	"github.com/mkalvans/deductsync/internal/common"
)

// HTTPClient talks to the donation tracker's REST API over JSON, carrying a
// bearer token on every authenticated request.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewHTTPClient returns a client for the API rooted at baseURL
// (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) SetToken(token string) { c.token = token }
func (c *HTTPClient) Token() string         { return c.token }

// statusToError maps a non-2xx status onto the sentinel taxonomy.
func statusToError(code int) error {
	switch {
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return common.ErrorNotFound
	case code == http.StatusConflict:
		return ErrConflict
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}

// doJSON sends one request and decodes the JSON response into out (when out
// is non-nil). Transport failures map to ErrUnavailable.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return statusToError(res.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *HTTPClient) DevLogin(ctx context.Context, username, password string) (string, error) {
	in := map[string]string{"username": username, "password": password}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/dev/login", in, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	if err := c.doJSON(ctx, http.MethodGet, "/api/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) ListDonations(ctx context.Context, since string) ([]models.Donation, error) {
	path := "/api/donations"
	if since != "" {
		path += "?since=" + url.QueryEscape(since)
	}
	var out struct {
		Donations []models.Donation `json:"donations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Donations, nil
}

func (c *HTTPClient) CreateDonation(ctx context.Context, d *models.Donation) (string, error) {
	var out models.Donation
	if err := c.doJSON(ctx, http.MethodPost, "/api/donations", d, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *HTTPClient) UpdateDonation(ctx context.Context, d *models.Donation) error {
	return c.doJSON(ctx, http.MethodPut, "/api/donations/"+url.PathEscape(d.ID), d, nil)
}

func (c *HTTPClient) DeleteDonation(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/donations/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ListCharities(ctx context.Context) ([]models.Charity, error) {
	var out struct {
		Charities []models.Charity `json:"charities"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/charities", nil, &out); err != nil {
		return nil, err
	}
	return out.Charities, nil
}

func (c *HTTPClient) SearchCharities(ctx context.Context, q string) ([]models.Charity, error) {
	var out struct {
		Charities []models.Charity `json:"charities"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/charities/search?q="+url.QueryEscape(q), nil, &out); err != nil {
		return nil, err
	}
	return out.Charities, nil
}

func (c *HTTPClient) LookupCharityByEIN(ctx context.Context, ein string) (*models.Charity, error) {
	var out struct {
		Charity *models.Charity `json:"charity"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/charities/lookup/"+url.PathEscape(ein), nil, &out); err != nil {
		return nil, err
	}
	if out.Charity == nil {
		return nil, common.ErrorNotFound
	}
	return out.Charity, nil
}

func (c *HTTPClient) CreateCharity(ctx context.Context, ch *models.Charity) (string, error) {
	var out models.Charity
	if err := c.doJSON(ctx, http.MethodPost, "/api/charities", ch, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *HTTPClient) UpdateCharity(ctx context.Context, ch *models.Charity) error {
	return c.doJSON(ctx, http.MethodPut, "/api/charities/"+url.PathEscape(ch.ID), ch, nil)
}

func (c *HTTPClient) DeleteCharity(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/charities/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ListReceipts(ctx context.Context) ([]models.Receipt, error) {
	var out struct {
		Receipts []models.Receipt `json:"receipts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/receipts", nil, &out); err != nil {
		return nil, err
	}
	return out.Receipts, nil
}

func (c *HTTPClient) RequestReceiptUpload(ctx context.Context, fileType string) (*UploadSlot, error) {
	in := map[string]string{"file_type": fileType}
	var out UploadSlot
	if err := c.doJSON(ctx, http.MethodPost, "/api/receipts/upload", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadReceipt PUTs the raw bytes directly to the pre-signed target. The
// target is absolute and may point at a different host than the API.
func (c *HTTPClient) UploadReceipt(ctx context.Context, uploadURL, contentType string, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return statusToError(res.StatusCode)
	}
	return nil
}

func (c *HTTPClient) ConfirmReceipt(ctx context.Context, confirm *ConfirmReceiptRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/receipts/confirm", confirm, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *HTTPClient) PresignReceiptDownload(ctx context.Context, key string) (string, error) {
	in := map[string]string{"key": key}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/receipts/presign", in, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *HTTPClient) ExportCSV(ctx context.Context, year int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/reports/export?year="+strconv.Itoa(year), nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, statusToError(res.StatusCode)
	}
	return io.ReadAll(res.Body)
}

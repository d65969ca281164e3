// Package api is the HTTP client for the SnapVault server. It mirrors the
// server's JSON surface and maps response statuses back onto the shared
// sentinel errors, so CLI code can use errors.Is the same way server code
// does.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/snapvault/internal/common"
)

// Asset is the public view of one stored object.
type Asset struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Vault is the public view of a vault.
type Vault struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	Assets         []Asset   `json:"assets"`
	CreatedAt      time.Time `json:"created_at"`
	Expiry         string    `json:"expiry"`
	FailedAttempts int       `json:"failed_attempts"`
	IsLocked       bool      `json:"is_locked"`
	IsViewOnly     bool      `json:"is_view_only"`
}

// Session is an authenticated handle on one vault.
type Session struct {
	Token string `json:"token"`
	Vault *Vault `json:"vault"`
}

// ExportResult is a downloaded archive plus the ids of assets the server
// could not hydrate.
type ExportResult struct {
	Archive        []byte
	Filename       string
	FailedAssetIDs []string
}

type Client struct {
	baseURL string
	httpc   *http.Client
	token   string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
	}
}

// SetToken installs the session token used on vault-scoped calls.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// statusError maps an error response onto the shared sentinels.
func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		sentinel = common.ErrValidation
	case http.StatusUnauthorized:
		sentinel = common.ErrInvalidPin
	case http.StatusForbidden:
		sentinel = common.ErrViewOnly
	case http.StatusNotFound:
		sentinel = common.ErrVaultNotFound
	case http.StatusConflict:
		sentinel = common.ErrUsernameTaken
	case http.StatusRequestEntityTooLarge:
		sentinel = common.ErrSizeRejected
	case http.StatusLocked:
		sentinel = common.ErrVaultLocked
	case http.StatusGatewayTimeout:
		sentinel = common.ErrTransferTimeout
	case http.StatusBadGateway:
		sentinel = common.ErrTransferRefused
	default:
		sentinel = common.ErrInternal
	}

	if body.Error != "" {
		return fmt.Errorf("%w: %s", sentinel, body.Error)
	}
	return fmt.Errorf("%w: status %s", sentinel, resp.Status)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// CreateVault claims a username and returns an open session on the new vault.
func (c *Client) CreateVault(ctx context.Context, username, displayName, pin, expiry string) (*Session, error) {
	var s Session
	err := c.doJSON(ctx, http.MethodPost, "/api/vaults", map[string]string{
		"username": username, "display_name": displayName, "pin": pin, "expiry": expiry,
	}, &s)
	if err != nil {
		return nil, err
	}
	c.token = s.Token
	return &s, nil
}

func (c *Client) Authenticate(ctx context.Context, username, pin string) (*Session, error) {
	var s Session
	err := c.doJSON(ctx, http.MethodPost, "/api/vaults/authenticate", map[string]string{
		"username": username, "pin": pin,
	}, &s)
	if err != nil {
		return nil, err
	}
	c.token = s.Token
	return &s, nil
}

func (c *Client) GetVault(ctx context.Context, vaultID string) (*Vault, error) {
	var v Vault
	if err := c.doJSON(ctx, http.MethodGet, "/api/vaults/"+vaultID+"/", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) DeleteVault(ctx context.Context, vaultID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/vaults/"+vaultID+"/", nil, nil)
}

// AddAsset uploads one file as a multipart form.
func (c *Client) AddAsset(ctx context.Context, vaultID, filename string, payload io.Reader) (*Vault, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("files", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/vaults/"+vaultID+"/assets", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var v Vault
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) RemoveAsset(ctx context.Context, vaultID, assetID string) (*Vault, error) {
	var v Vault
	if err := c.doJSON(ctx, http.MethodDelete, "/api/vaults/"+vaultID+"/assets/"+assetID, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// AssetURL returns a short-lived download URL for one asset.
func (c *Client) AssetURL(ctx context.Context, vaultID, assetID string) (string, error) {
	var out map[string]string
	if err := c.doJSON(ctx, http.MethodGet, "/api/vaults/"+vaultID+"/assets/"+assetID+"/url", nil, &out); err != nil {
		return "", err
	}
	return out["url"], nil
}

func (c *Client) ToggleViewOnly(ctx context.Context, vaultID string) (*Vault, error) {
	var v Vault
	if err := c.doJSON(ctx, http.MethodPost, "/api/vaults/"+vaultID+"/view-only", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) PanicLock(ctx context.Context, vaultID string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/vaults/"+vaultID+"/panic", nil, nil)
}

// Export downloads a zip of the selected assets (all when assetIDs is nil).
func (c *Client) Export(ctx context.Context, vaultID string, assetIDs []string) (*ExportResult, error) {
	var body io.Reader
	if assetIDs != nil {
		b, err := json.Marshal(map[string][]string{"asset_ids": assetIDs})
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/vaults/"+vaultID+"/export", body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	archive, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var failed []string
	if h := resp.Header.Get("X-Failed-Assets"); h != "" {
		failed = strings.Split(h, ",")
	}

	return &ExportResult{
		Archive:        archive,
		Filename:       dispositionFilename(resp.Header.Get("Content-Disposition")),
		FailedAssetIDs: failed,
	}, nil
}

func dispositionFilename(disposition string) string {
	const marker = `filename="`
	i := strings.Index(disposition, marker)
	if i < 0 {
		return "export.zip"
	}
	rest := disposition[i+len(marker):]
	if j := strings.Index(rest, `"`); j >= 0 {
		return rest[:j]
	}
	return "export.zip"
}

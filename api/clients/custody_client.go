package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/stretchr/testify/mock"

	"github.com/openclave/wallet-custody-backend/api"
)

// CustodyClient implements api.WalletProvider for HTTP-based communication
// with the wallet custody server.
type CustodyClient struct {
	// ServerAddr is the base URL of the custody server.
	ServerAddr string

	// HTTPClient overrides http.DefaultClient when set.
	HTTPClient *http.Client
}

func (c *CustodyClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *CustodyClient) post(path string, reqBody, respBody any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return fmt.Errorf("could not encode request: %w", err)
	}

	resp, err := c.client().Post(c.ServerAddr+path, "application/json", &buf)
	if err != nil {
		return fmt.Errorf("could not request custody endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("custody endpoint returned non-200 response: %d", resp.StatusCode)
		}
		var errResp api.ErrorResponse
		if json.Unmarshal(bodyBytes, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("custody endpoint returned error %d: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("custody endpoint returned error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("could not parse custody response: %w", err)
	}
	return nil
}

// Generate creates a fresh wallet for userID.
func (c *CustodyClient) Generate(userID string) (*api.GenerateResponse, error) {
	var resp api.GenerateResponse
	if err := c.post(fmt.Sprintf("/api/wallet/%s/generate", url.PathEscape(userID)), struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Recover reconstructs the wallet key from two shards.
func (c *CustodyClient) Recover(userID string, req *api.RecoverRequest) (*api.RecoverResponse, error) {
	var resp api.RecoverResponse
	if err := c.post(fmt.Sprintf("/api/wallet/%s/recover", url.PathEscape(userID)), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Rotate re-shards the wallet key, invalidating all previous shards.
func (c *CustodyClient) Rotate(userID string, req *api.RecoverRequest) (*api.GenerateResponse, error) {
	var resp api.GenerateResponse
	if err := c.post(fmt.Sprintf("/api/wallet/%s/rotate", url.PathEscape(userID)), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sign produces a compact signature over a 32-byte digest.
func (c *CustodyClient) Sign(userID string, req *api.SignRequest) (*api.SignResponse, error) {
	var resp api.SignResponse
	if err := c.post(fmt.Sprintf("/api/wallet/%s/sign", url.PathEscape(userID)), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MockWalletProvider implements a mock api.WalletProvider for testing.
type MockWalletProvider struct {
	mock.Mock
}

func (m *MockWalletProvider) Generate(userID string) (*api.GenerateResponse, error) {
	args := m.Called(userID)
	return args.Get(0).(*api.GenerateResponse), args.Error(1)
}

func (m *MockWalletProvider) Recover(userID string, req *api.RecoverRequest) (*api.RecoverResponse, error) {
	args := m.Called(userID, req)
	return args.Get(0).(*api.RecoverResponse), args.Error(1)
}

func (m *MockWalletProvider) Rotate(userID string, req *api.RecoverRequest) (*api.GenerateResponse, error) {
	args := m.Called(userID, req)
	return args.Get(0).(*api.GenerateResponse), args.Error(1)
}

func (m *MockWalletProvider) Sign(userID string, req *api.SignRequest) (*api.SignResponse, error) {
	args := m.Called(userID, req)
	return args.Get(0).(*api.SignResponse), args.Error(1)
}

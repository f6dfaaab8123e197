// Package docusign is the external collaborator interface to the
// e-signature provider: JWT grant token acquisition, account discovery, and
// envelope operations against the REST API. Handlers depend on the narrow
// surface exposed here, not on the provider's SDK object graph.
package docusign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"esign-gateway/internal/circuitbreaker"
	"esign-gateway/internal/common/errors"
	commonhttp "esign-gateway/internal/common/http"
	"esign-gateway/internal/common/logging"
	"esign-gateway/internal/config"
	"esign-gateway/internal/envelope"
)

// SendResult is the outcome of a successful envelope send: the
// provider-assigned envelope id and the recipient tokens issued for it.
type SendResult struct {
	EnvelopeID string
	Recipients []Recipient
}

// account is the API account resolved from the provider's userinfo endpoint.
type account struct {
	accountID string
	basePath  string
}

// userInfoResponse is the provider's userinfo payload, reduced to the fields
// needed for account discovery.
type userInfoResponse struct {
	Accounts []struct {
		AccountID string `json:"account_id"`
		IsDefault bool   `json:"is_default"`
		BaseURI   string `json:"base_uri"`
	} `json:"accounts"`
}

// envelopeSummary is the provider's envelope creation response.
type envelopeSummary struct {
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
}

// Client talks to the e-signature provider's REST API. Envelope operations
// run inside a circuit breaker so a failing vendor makes sends fail fast.
//
// Client is safe for concurrent use.
type Client struct {
	tokens      *tokenManager
	httpClient  *http.Client
	breaker     *circuitbreaker.Breaker
	authServer  string
	authBaseURL string
	logger      logging.Logger

	accountMu sync.Mutex
	account   *account
}

// NewClient creates a provider client from the application configuration.
func NewClient(cfg *config.Config, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	httpClient := commonhttp.NewHTTPClient()

	return &Client{
		tokens: &tokenManager{
			integrationKey: cfg.IntegrationKey,
			userID:         cfg.UserID,
			authServer:     cfg.AuthServer,
			authBaseURL:    "https://" + cfg.AuthServer,
			privateKeyPath: cfg.PrivateKeyPath,
			lifetime:       cfg.TokenLifetime,
			httpClient:     httpClient,
			logger:         logger,
		},
		httpClient:  httpClient,
		breaker:     circuitbreaker.New("docusign", circuitbreaker.DefaultConfig(), logger),
		authServer:  cfg.AuthServer,
		authBaseURL: "https://" + cfg.AuthServer,
		logger:      logger,
	}
}

// SendEnvelope builds the envelope definition for the given recipients and
// submits it to the provider. On success it returns the envelope id together
// with the recipient tokens so the caller can record the identity mappings.
func (c *Client) SendEnvelope(ctx context.Context, title string, signers, ccs []envelope.User, products []string) (*SendResult, error) {
	definition, recipients := BuildEnvelopeDefinition(title, signers, ccs, products)

	var envelopeID string
	err := c.breaker.Execute(func() error {
		id, err := c.createEnvelope(ctx, definition)
		if err != nil {
			return err
		}
		envelopeID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Envelope sent",
		logging.String("envelope_id", envelopeID),
		logging.Int("signers", len(signers)),
		logging.Int("cc_users", len(ccs)),
	)

	return &SendResult{
		EnvelopeID: envelopeID,
		Recipients: recipients,
	}, nil
}

// DownloadDocument fetches a single envelope document from the provider and
// returns its body stream and content type. The caller owns the stream.
func (c *Client) DownloadDocument(ctx context.Context, envelopeID, documentID string) (io.ReadCloser, string, error) {
	acct, err := c.ensureAccount(ctx)
	if err != nil {
		return nil, "", err
	}

	endpoint := fmt.Sprintf("%s/v2.1/accounts/%s/envelopes/%s/documents/%s",
		acct.basePath, acct.accountID, envelopeID, documentID)

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, "", err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.logger.Error("Document download failed", nil,
			logging.String("envelope_id", envelopeID),
			logging.Int("status", resp.StatusCode),
			logging.String("body", string(body)),
		)
		return nil, "", errors.UpstreamError(
			fmt.Sprintf("document download returned status %d", resp.StatusCode), nil).
			WithContext("envelope_id", envelopeID)
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// createEnvelope posts the envelope definition to the provider.
func (c *Client) createEnvelope(ctx context.Context, definition EnvelopeDefinition) (string, error) {
	acct, err := c.ensureAccount(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(definition)
	if err != nil {
		return "", errors.InternalError("marshal envelope definition", err)
	}

	endpoint := fmt.Sprintf("%s/v2.1/accounts/%s/envelopes", acct.basePath, acct.accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", errors.InternalError("build envelope request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.authorize(ctx, req); err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.UpstreamError("envelope creation failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.UpstreamError("read envelope response", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		c.logger.Error("Envelope creation rejected", nil,
			logging.Int("status", resp.StatusCode),
			logging.String("body", string(body)),
		)
		return "", errors.UpstreamError(
			fmt.Sprintf("envelope creation returned status %d", resp.StatusCode), nil).
			WithContext("body", string(body))
	}

	var summary envelopeSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return "", errors.UpstreamError("decode envelope response", err)
	}

	if summary.EnvelopeID == "" {
		return "", errors.UpstreamError("envelope response contained no envelope id", nil)
	}

	return summary.EnvelopeID, nil
}

// ensureAccount resolves and caches the API account for the impersonated
// user. The first account marked default wins, falling back to the first
// account listed.
func (c *Client) ensureAccount(ctx context.Context) (*account, error) {
	c.accountMu.Lock()
	defer c.accountMu.Unlock()

	if c.account != nil {
		return c.account, nil
	}

	c.logger.Info("Requesting account info",
		logging.String("auth_server", c.authServer),
	)

	resp, err := c.get(ctx, c.authBaseURL+"/oauth/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.UpstreamError("read userinfo response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.UpstreamError(
			fmt.Sprintf("userinfo returned status %d", resp.StatusCode), nil).
			WithContext("body", string(body))
	}

	var info userInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, errors.UpstreamError("decode userinfo response", err)
	}

	if len(info.Accounts) == 0 {
		return nil, errors.UpstreamError("userinfo listed no accounts", nil)
	}

	chosen := info.Accounts[0]
	for _, acct := range info.Accounts {
		if acct.IsDefault {
			chosen = acct
			break
		}
	}

	c.account = &account{
		accountID: chosen.AccountID,
		basePath:  chosen.BaseURI + "/restapi",
	}

	c.logger.Info("Account resolved",
		logging.String("account_id", c.account.accountID),
	)

	return c.account, nil
}

// get performs an authorized GET against the provider.
func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.InternalError("build request", err)
	}

	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.UpstreamError("request failed", err)
	}
	return resp, nil
}

// authorize attaches a bearer token to the request.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

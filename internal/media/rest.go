package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config contains the information required to talk to the media management
// API for one encoding account.
type Config struct {
	TenantID           string
	LoginEndpoint      string
	ManagementEndpoint string
	ClientID           string
	ClientSecret       string
	SubscriptionID     string
	ResourceGroup      string
	AccountName        string
	APIVersion         string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// RESTClient implements Client against the management REST API. The session
// token is cached per client and refreshed lazily under a mutex, so a burst
// of concurrent first calls performs exactly one login.
type RESTClient struct {
	cfg    Config
	httpc  *http.Client
	logger *zap.Logger

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// tokenSkew forces a refresh shortly before the reported expiry.
const tokenSkew = 2 * time.Minute

// NewRESTClient constructs a RESTClient from the given configuration.
func NewRESTClient(cfg Config, logger *zap.Logger) *RESTClient {
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &RESTClient{
		cfg:    cfg,
		httpc:  httpc,
		logger: logger,
	}
}

// Login acquires a bearer token via the client-credentials grant, or reuses
// the cached token when it has not expired.
func (c *RESTClient) Login(ctx context.Context) error {
	_, err := c.ensureToken(ctx)
	return err
}

func (c *RESTClient) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp.Add(-tokenSkew)) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"resource":      {c.cfg.ManagementEndpoint},
	}
	endpoint := strings.TrimSuffix(c.cfg.LoginEndpoint, "/") + "/" + c.cfg.TenantID + "/oauth2/token"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &AuthError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Detail: "empty access token"}
	}

	c.token = tok.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.logger.Debug("media session established", zap.Time("expires", c.tokenExp))
	return c.token, nil
}

// CreateAsset registers a new asset record under name.
func (c *RESTClient) CreateAsset(ctx context.Context, name, description string) (*Asset, error) {
	body := map[string]any{
		"properties": map[string]any{
			"description": description,
		},
	}
	var out assetResponse
	if err := c.do(ctx, http.MethodPut, "/assets/"+url.PathEscape(name), body, &out); err != nil {
		return nil, fmt.Errorf("create asset %q: %w", name, err)
	}
	return out.asset(name), nil
}

// GetAsset looks up an asset by name, returning (nil, nil) when absent.
func (c *RESTClient) GetAsset(ctx context.Context, name string) (*Asset, error) {
	var out assetResponse
	err := c.do(ctx, http.MethodGet, "/assets/"+url.PathEscape(name), nil, &out)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get asset %q: %w", name, err)
	}
	return out.asset(name), nil
}

// UploadContainerURL requests a write SAS URL for the asset's container.
func (c *RESTClient) UploadContainerURL(ctx context.Context, assetName string, expiry time.Duration) (string, error) {
	body := map[string]any{
		"permissions": "ReadWrite",
		"expiryTime":  time.Now().UTC().Add(expiry).Format(time.RFC3339),
	}
	var out struct {
		AssetContainerSasUrls []string `json:"assetContainerSasUrls"`
	}
	if err := c.do(ctx, http.MethodPost, "/assets/"+url.PathEscape(assetName)+"/listContainerSas", body, &out); err != nil {
		return "", fmt.Errorf("list container sas for %q: %w", assetName, err)
	}
	if len(out.AssetContainerSasUrls) == 0 {
		return "", fmt.Errorf("list container sas for %q: no urls returned", assetName)
	}
	return out.AssetContainerSasUrls[0], nil
}

// UploadContent PUTs the blob bytes into the container behind containerURL,
// stored under fileName.
func (c *RESTClient) UploadContent(ctx context.Context, containerURL, fileName string, r io.Reader, size int64) error {
	u, err := url.Parse(containerURL)
	if err != nil {
		return fmt.Errorf("parse container url: %w", err)
	}
	blobURL := u.JoinPath(fileName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, blobURL.String(), r)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "video/mp4")
	req.Header.Set("x-ms-blob-type", "BlockBlob")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("upload %q: %w", fileName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("upload %q: %w", fileName, decodeAPIError(resp))
	}
	return nil
}

// GetOrCreateTransform looks the transform up by name and creates it with the
// adaptive-streaming preset when absent.
func (c *RESTClient) GetOrCreateTransform(ctx context.Context, name string) (*Transform, error) {
	var out transformResponse
	err := c.do(ctx, http.MethodGet, "/transforms/"+url.PathEscape(name), nil, &out)
	if err == nil {
		return out.transform(name), nil
	}
	if !IsNotFound(err) {
		return nil, fmt.Errorf("get transform %q: %w", name, err)
	}

	body := map[string]any{
		"properties": map[string]any{
			"outputs": []map[string]any{
				{"preset": PresetAdaptiveStreaming},
			},
		},
	}
	if err := c.do(ctx, http.MethodPut, "/transforms/"+url.PathEscape(name), body, &out); err != nil {
		return nil, fmt.Errorf("create transform %q: %w", name, err)
	}
	c.logger.Info("transform created", zap.String("transform", name))
	return out.transform(name), nil
}

// SubmitJob creates an encoding job under the named transform.
func (c *RESTClient) SubmitJob(ctx context.Context, transformName, jobName, inputAssetName string, outputAssetNames []string) (*Job, error) {
	outputs := make([]map[string]any, 0, len(outputAssetNames))
	for _, name := range outputAssetNames {
		outputs = append(outputs, map[string]any{"assetName": name})
	}
	body := map[string]any{
		"properties": map[string]any{
			"input":   map[string]any{"assetName": inputAssetName},
			"outputs": outputs,
		},
	}
	path := "/transforms/" + url.PathEscape(transformName) + "/jobs/" + url.PathEscape(jobName)

	var out jobResponse
	if err := c.do(ctx, http.MethodPut, path, body, &out); err != nil {
		return nil, fmt.Errorf("submit job %q: %w", jobName, err)
	}
	return out.job(jobName, transformName), nil
}

// PublishAsset creates a streaming locator for the asset under a fresh
// random name.
func (c *RESTClient) PublishAsset(ctx context.Context, assetName, streamingPolicyName string) error {
	locatorName := "locator-" + uuid.NewString()
	body := map[string]any{
		"properties": map[string]any{
			"assetName":           assetName,
			"streamingPolicyName": streamingPolicyName,
		},
	}
	if err := c.do(ctx, http.MethodPut, "/streamingLocators/"+url.PathEscape(locatorName), body, nil); err != nil {
		return fmt.Errorf("publish asset %q: %w", assetName, err)
	}
	c.logger.Info("streaming locator created",
		zap.String("locator", locatorName),
		zap.String("asset", assetName),
		zap.String("policy", streamingPolicyName))
	return nil
}

// do performs an authenticated JSON call against the account resource path.
func (c *RESTClient) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resourceURL(path), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode response for %s %s: %w", method, path, err)
	}
	return nil
}

func (c *RESTClient) resourceURL(path string) string {
	base := strings.TrimSuffix(c.cfg.ManagementEndpoint, "/")
	return fmt.Sprintf("%s/subscriptions/%s/resourceGroups/%s/providers/Media/mediaServices/%s%s?api-version=%s",
		base, c.cfg.SubscriptionID, c.cfg.ResourceGroup, c.cfg.AccountName, path, c.cfg.APIVersion)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// Remote resource envelopes. Only the fields the handlers use are decoded.

type assetResponse struct {
	Name       string `json:"name"`
	Properties struct {
		Description string    `json:"description"`
		Container   string    `json:"container"`
		Created     time.Time `json:"created"`
	} `json:"properties"`
}

func (r assetResponse) asset(fallback string) *Asset {
	name := r.Name
	if name == "" {
		name = fallback
	}
	return &Asset{
		Name:        name,
		Description: r.Properties.Description,
		Container:   r.Properties.Container,
		Created:     r.Properties.Created,
	}
}

type transformResponse struct {
	Name       string `json:"name"`
	Properties struct {
		Description string            `json:"description"`
		Outputs     []TransformOutput `json:"outputs"`
	} `json:"properties"`
}

func (r transformResponse) transform(fallback string) *Transform {
	name := r.Name
	if name == "" {
		name = fallback
	}
	return &Transform{
		Name:        name,
		Description: r.Properties.Description,
		Outputs:     r.Properties.Outputs,
	}
}

type jobResponse struct {
	Name       string `json:"name"`
	Properties struct {
		State   string      `json:"state"`
		Input   JobInput    `json:"input"`
		Outputs []JobOutput `json:"outputs"`
		Created time.Time   `json:"created"`
	} `json:"properties"`
}

func (r jobResponse) job(fallbackName, transformName string) *Job {
	name := r.Name
	if name == "" {
		name = fallbackName
	}
	return &Job{
		Name:      name,
		Transform: transformName,
		State:     r.Properties.State,
		Input:     r.Properties.Input,
		Outputs:   r.Properties.Outputs,
		Created:   r.Properties.Created,
	}
}

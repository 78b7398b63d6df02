package worker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// SandboxClient runs one piece of code against one test case on the external
// execution service and returns its verdict. The service is stateless; each
// call is independent.
type SandboxClient interface {
	Run(ctx context.Context, req SandboxRequest) (*SandboxVerdict, error)
}

type SandboxRequest struct {
	Code           string
	LanguageID     int
	Stdin          string
	ExpectedOutput string
	CPUTimeLimit   float64 // seconds
	MemoryLimitKb  int
}

// SandboxVerdict is the per-test-case outcome. StatusID 3 means the output
// matched within limits; anything else is a failure category described by
// Description. TimeMs and MemoryKb are only meaningful on success.
type SandboxVerdict struct {
	StatusID      int
	Description   string
	TimeMs        int
	MemoryKb      int
	CompileOutput string
}

const sandboxStatusAccepted = 3

func (v *SandboxVerdict) Passed() bool {
	return v.StatusID == sandboxStatusAccepted
}

// httpSandboxClient talks to a Judge0-compatible execution service.
type httpSandboxClient struct {
	baseURL   string
	authToken string
	client    *http.Client
}

func NewHTTPSandboxClient(baseURL, authToken string, timeout time.Duration) SandboxClient {
	return &httpSandboxClient{
		baseURL:   baseURL,
		authToken: authToken,
		client:    &http.Client{Timeout: timeout},
	}
}

type sandboxAPIRequest struct {
	SourceCode     string  `json:"source_code"`
	LanguageID     int     `json:"language_id"`
	Stdin          string  `json:"stdin"`
	ExpectedOutput string  `json:"expected_output"`
	CPUTimeLimit   float64 `json:"cpu_time_limit"`
	MemoryLimit    int     `json:"memory_limit"`
}

type sandboxAPIResponse struct {
	Status struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
	Time          *string  `json:"time"`   // seconds, decimal string
	Memory        *float64 `json:"memory"` // KB
	CompileOutput *string  `json:"compile_output"`
}

func (c *httpSandboxClient) Run(ctx context.Context, req SandboxRequest) (*SandboxVerdict, error) {
	apiReq := sandboxAPIRequest{
		SourceCode:     base64.StdEncoding.EncodeToString([]byte(req.Code)),
		LanguageID:     req.LanguageID,
		Stdin:          base64.StdEncoding.EncodeToString([]byte(req.Stdin)),
		ExpectedOutput: base64.StdEncoding.EncodeToString([]byte(req.ExpectedOutput)),
		CPUTimeLimit:   req.CPUTimeLimit,
		MemoryLimit:    req.MemoryLimitKb,
	}
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sandbox request: %w", err)
	}

	url := c.baseURL + "/submissions?base64_encoded=true&wait=true"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("X-Auth-Token", c.authToken)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, payload)
	}

	var apiResp sandboxAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode sandbox response: %w", err)
	}

	verdict := &SandboxVerdict{
		StatusID:    apiResp.Status.ID,
		Description: apiResp.Status.Description,
	}
	if apiResp.Time != nil {
		if seconds, err := strconv.ParseFloat(*apiResp.Time, 64); err == nil {
			verdict.TimeMs = int(seconds * 1000)
		}
	}
	if apiResp.Memory != nil {
		verdict.MemoryKb = int(*apiResp.Memory)
	}
	if apiResp.CompileOutput != nil && *apiResp.CompileOutput != "" {
		if decoded, err := base64.StdEncoding.DecodeString(*apiResp.CompileOutput); err == nil {
			verdict.CompileOutput = string(decoded)
		} else {
			verdict.CompileOutput = *apiResp.CompileOutput
		}
	}
	return verdict, nil
}

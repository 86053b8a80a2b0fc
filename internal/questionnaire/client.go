package questionnaire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the read side of the proposal questionnaire web service.
type Client interface {
	// ExpNameToProposalIDs maps experiment names (e.g. "tstlr3216") to
	// proposal ids (e.g. "LR32").
	ExpNameToProposalIDs(ctx context.Context) (map[string]string, error)

	// ProposalsForRun lists the proposals of one run keyed by proposal id.
	ProposalsForRun(ctx context.Context, run string) (map[string]Proposal, error)

	// ProposalDetailsForRun returns the flattened questionnaire answers of
	// one proposal, e.g. "pcdssetup-motors-1-pvbase".
	ProposalDetailsForRun(ctx context.Context, run, proposal string) (map[string]string, error)
}

// Proposal is the summary of one proposal in a run.
type Proposal struct {
	ProposalID string `json:"proposal_id"`
	Instrument string `json:"Instrument"`
}

// DefaultURL is the production questionnaire service.
const DefaultURL = "https://pswww.slac.stanford.edu/ws-auth/questionnaire/"

// Service paths relative to the base URL.
const (
	pathExpNames  = "ws/proposal/expname2proposal"
	pathProposals = "ws/questionnaire/proposals/%s"
	pathDetails   = "ws/questionnaire/%s/%s"
)

// HTTPClient implements Client over HTTP with basic authentication.
type HTTPClient struct {
	base     *url.URL
	user     string
	password string
	http     *http.Client
}

// NewHTTPClient returns a client for the service at baseURL. An empty
// baseURL selects DefaultURL.
func NewHTTPClient(baseURL, user, password string) (*HTTPClient, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing questionnaire url: %w", err)
	}
	return &HTTPClient{
		base:     u,
		user:     user,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *HTTPClient) ExpNameToProposalIDs(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	return out, c.getJSON(ctx, pathExpNames, &out)
}

func (c *HTTPClient) ProposalsForRun(ctx context.Context, run string) (map[string]Proposal, error) {
	out := map[string]Proposal{}
	return out, c.getJSON(ctx, fmt.Sprintf(pathProposals, url.PathEscape(run)), &out)
}

func (c *HTTPClient) ProposalDetailsForRun(ctx context.Context, run, proposal string) (map[string]string, error) {
	out := map[string]string{}
	return out, c.getJSON(ctx, fmt.Sprintf(pathDetails, url.PathEscape(run), url.PathEscape(proposal)), &out)
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	target := c.base.ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: %s: %s", target, resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", target, err)
	}
	return nil
}

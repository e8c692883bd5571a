// Package client provides a fluent builder for reaction configuration files
// and a Go client for the mcreact HTTP server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/daniacca/mcreact/internal/kinet"
	"github.com/daniacca/mcreact/internal/runstore"
)

// ConfigBuilder assembles a reaction configuration in the engine's text
// format. Use it to define substances and reactions programmatically and
// render them with Build.
type ConfigBuilder struct {
	substances []string
	reactions  []string
}

// NewConfig creates an empty configuration builder.
func NewConfig() *ConfigBuilder {
	return &ConfigBuilder{
		substances: make([]string, 0),
		reactions:  make([]string, 0),
	}
}

// Isotropic declares an isotropic substance with a static concentration.
func (cb *ConfigBuilder) Isotropic(name string, concentration float64) *ConfigBuilder {
	cb.substances = append(cb.substances, fmt.Sprintf("%s isotropic %g", name, concentration))
	return cb
}

// Discrete declares a discrete substance with its mass and charge.
func (cb *ConfigBuilder) Discrete(name string, mass, charge float64) *ConfigBuilder {
	cb.substances = append(cb.substances, fmt.Sprintf("%s discrete %g %g", name, mass, charge))
	return cb
}

// Field declares a field substance.
func (cb *ConfigBuilder) Field(name string) *ConfigBuilder {
	cb.substances = append(cb.substances, name+" field")
	return cb
}

// Reaction adds a reaction line. The equation uses configuration syntax,
// e.g. "A + 2M => B"; the rate constant is written as given (the parser
// applies the conversion factor on load).
func (cb *ConfigBuilder) Reaction(equation string, rate float64) *ConfigBuilder {
	cb.reactions = append(cb.reactions, fmt.Sprintf("%s ; %g", equation, rate))
	return cb
}

// ReactionWithActivation adds a reaction line carrying an activation energy.
func (cb *ConfigBuilder) ReactionWithActivation(equation string, rate, activationEnergy float64) *ConfigBuilder {
	cb.reactions = append(cb.reactions, fmt.Sprintf("%s ; %g ; %g", equation, rate, activationEnergy))
	return cb
}

// Build renders the configuration text.
func (cb *ConfigBuilder) Build() string {
	var sb strings.Builder
	sb.WriteString("[substances]\n")
	for _, line := range cb.substances {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString("[reactions]\n")
	for _, line := range cb.reactions {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Client talks to a running mcreact server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL
// (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// do sends one request and decodes the JSON response into out (skipped when
// out is nil).
func (c *Client) do(ctx context.Context, method string, elem []string, body, out any) error {
	u, err := url.JoinPath(c.baseURL, elem...)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	u, err := url.JoinPath(c.baseURL, "healthz")
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

// CreateRun creates a new run from the server's configured reaction file
// and returns its ID.
func (c *Client) CreateRun(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, []string{"runs"}, nil, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// ListRuns returns the metadata of all persisted runs.
func (c *Client) ListRuns(ctx context.Context) ([]runstore.RunMeta, error) {
	var out []runstore.RunMeta
	if err := c.do(ctx, http.MethodGet, []string{"runs"}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRun drops a run and its persisted records.
func (c *Client) DeleteRun(ctx context.Context, runID string) error {
	return c.do(ctx, http.MethodDelete, []string{"run", runID}, nil, nil)
}

// SeedParticles adds count particles of the given discrete species at
// (x,y,z) and returns their external indices.
func (c *Client) SeedParticles(ctx context.Context, runID, species string, count int, x, y, z float64) ([]int, error) {
	body := map[string]any{
		"species": species,
		"count":   count,
		"x":       x,
		"y":       y,
		"z":       z,
	}
	var out struct {
		Indices []int `json:"indices"`
	}
	if err := c.do(ctx, http.MethodPost, []string{"run", runID, "particles"}, body, &out); err != nil {
		return nil, err
	}
	return out.Indices, nil
}

// Step advances the run by one time step of length dt, optionally applying
// the random walk, and returns the recorded step outcome.
func (c *Client) Step(ctx context.Context, runID string, dt float64, walk bool) (runstore.StepRecord, error) {
	body := map[string]any{"dt": dt, "walk": walk}
	var out runstore.StepRecord
	if err := c.do(ctx, http.MethodPost, []string{"run", runID, "step"}, body, &out); err != nil {
		return runstore.StepRecord{}, err
	}
	return out, nil
}

// State returns a snapshot of the run's current simulation state.
func (c *Client) State(ctx context.Context, runID string) (kinet.SimSnapshot, error) {
	var out kinet.SimSnapshot
	if err := c.do(ctx, http.MethodGet, []string{"run", runID, "state"}, nil, &out); err != nil {
		return kinet.SimSnapshot{}, err
	}
	return out, nil
}

// Series returns the persisted step records of a run in step order.
func (c *Client) Series(ctx context.Context, runID string) ([]runstore.StepRecord, error) {
	var out []runstore.StepRecord
	if err := c.do(ctx, http.MethodGet, []string{"run", runID, "series"}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

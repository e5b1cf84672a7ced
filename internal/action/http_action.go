// Package action provides example Execute hooks for action nodes.
// Grounded on smilemakc-mbflow's node_executors.go executor shapes
// (a small struct with a configuration field and an Execute-shaped
// method), adapted to node.Hooks.Execute's (bool, error) contract.
package action

import (
	"context"
	"fmt"
	"net/http"

	"github.com/smilemakc/anacostia/internal/node"
)

// HTTPAction is a generic POST-and-check-status action: it posts the
// node's current Variables-derived payload to URL and reports success iff
// the response status is 2xx.
type HTTPAction struct {
	Client *http.Client
	URL    string
	// BuildBody returns the request body for the current execution; nil
	// means an empty body.
	BuildBody func(n *node.Node) ([]byte, error)
}

// Execute implements node.Hooks-compatible Execute signature for direct
// use via node.BaseHooks.ExecuteFunc.
func (a *HTTPAction) Execute(ctx context.Context, n *node.Node) (bool, error) {
	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}

	var body []byte
	if a.BuildBody != nil {
		b, err := a.BuildBody(n)
		if err != nil {
			return false, fmt.Errorf("building request body: %w", err)
		}
		body = b
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bodyReader(body))
	if err != nil {
		return false, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("posting to %s: %w", a.URL, err)
	}
	defer resp.Body.Close()

	n.SetVariable("http_status", resp.StatusCode)
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

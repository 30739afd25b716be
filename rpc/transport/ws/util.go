package ws

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// parseEndpoint turns an endpoint ("host:port", "host:port/path" or a full
// ws:// or wss:// URL) into the URL of the WebSocket
func parseEndpoint(endpoint string) (*url.URL, error) {
	if endpoint == "" {
		return nil, errors.New("no endpoint provided")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "ws://" + endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %s: %w", endpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid endpoint %s: scheme must be ws or wss", endpoint)
	}
	if u.Path == "" {
		u.Path = DefaultPath
	}
	return u, nil
}

// Package relationship consumes the marketplace's qualifying-relationship
// check, the external collaborator that gates creation of gated rooms.
package relationship

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Checker answers whether two parties have a qualifying relationship for an
// engagement context. Implementations must be safe for concurrent use.
type Checker interface {
	HasQualifyingRelationship(ctx context.Context, contextID, userA, userB string) (bool, error)
}

// HTTPChecker calls the marketplace relationship service.
type HTTPChecker struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPChecker builds a checker against the given base URL.
func NewHTTPChecker(baseURL string) *HTTPChecker {
	return &HTTPChecker{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// HasQualifyingRelationship issues GET /relationships/check and reads the
// {"qualified": bool} response.
func (c *HTTPChecker) HasQualifyingRelationship(ctx context.Context, contextID, userA, userB string) (bool, error) {
	params := url.Values{}
	params.Set("context_id", contextID)
	params.Set("user_a", userA)
	params.Set("user_b", userB)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/relationships/check?"+params.Encode(), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("relationship service returned %d", resp.StatusCode)
	}

	var body struct {
		Qualified bool `json:"qualified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	return body.Qualified, nil
}

// AllowAll qualifies every pair. Local development only.
type AllowAll struct{}

func (AllowAll) HasQualifyingRelationship(context.Context, string, string, string) (bool, error) {
	return true, nil
}

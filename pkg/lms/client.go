// Package lms is a small client for the Brightspace Valence learning environment API covering
// grade items, class lists and grade values.
package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxErrorBody = 2048

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("lms %s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("lms %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client issues requests with an already authenticated http.Client.
type Client struct {
	http    *http.Client
	host    string
	version string
}

// NewClient binds httpClient to the API host and learning environment version.
func NewClient(httpClient *http.Client, host, version string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient, host: strings.TrimRight(host, "/"), version: version}
}

// GradesURL is the grade item collection (gradeObjectID empty) or a single grade item.
func (c *Client) GradesURL(orgUnitID, gradeObjectID string) string {
	return c.orgUnitURL(orgUnitID) + "/grades/" + url.PathEscape(gradeObjectID)
}

func (c *Client) orgUnitURL(orgUnitID string) string {
	return fmt.Sprintf("%s/d2l/api/le/%s/%s", c.host, url.PathEscape(c.version), url.PathEscape(orgUnitID))
}

// GetGradeObject fetches a grade item.
func (c *Client) GetGradeObject(ctx context.Context, orgUnitID, gradeObjectID string) (*GradeObject, error) {
	var out GradeObject
	if _, err := c.do(ctx, http.MethodGet, c.GradesURL(orgUnitID, gradeObjectID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateGradeObject creates a grade item in the org unit and returns it with its new id.
func (c *Client) CreateGradeObject(ctx context.Context, orgUnitID string, in GradeObjectInput) (*GradeObject, error) {
	var out GradeObject
	if _, err := c.do(ctx, http.MethodPost, c.GradesURL(orgUnitID, ""), in, &out); err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, fmt.Errorf("lms create grade object: response carried no id")
	}
	return &out, nil
}

// ClassList returns the org unit members in the order the server lists them.
func (c *Client) ClassList(ctx context.Context, orgUnitID string) ([]ClassListEntry, error) {
	var out []ClassListEntry
	if _, err := c.do(ctx, http.MethodGet, c.orgUnitURL(orgUnitID)+"/classlist/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PutGrade sets the points numerator for one user and reports the rate limit window.
func (c *Client) PutGrade(ctx context.Context, orgUnitID, gradeObjectID, userIdentifier string, points float64) (RateLimit, error) {
	endpoint := c.GradesURL(orgUnitID, gradeObjectID) + "/values/" + url.PathEscape(userIdentifier)
	body := gradeValueInput{GradeObjectType: GradeObjectTypeNumeric, PointsNumerator: points}
	header, err := c.do(ctx, http.MethodPut, endpoint, body, nil)
	if err != nil {
		return RateLimit{}, err
	}
	return ParseRateLimit(header), nil
}

// GradeSetup returns the org unit grading configuration.
func (c *Client) GradeSetup(ctx context.Context, orgUnitID string) (*GradeSetup, error) {
	var out GradeSetup
	if _, err := c.do(ctx, http.MethodGet, c.orgUnitURL(orgUnitID)+"/grades/setup/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out interface{}) (http.Header, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode lms request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build lms request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lms %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.Header, &APIError{Method: method, URL: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("decode lms response: %w", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.Header, nil
}

// Package jira is a minimal client for the two Jira REST API v3 calls the
// publisher needs: issue creation with an ADF body, and file attachment.
package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// Client talks to one Jira site with basic auth.
type Client struct {
	baseURL    string
	authHeader string
	projectKey string
	client     *http.Client
}

// NewClient creates a Jira client. email+apiKey become the basic auth
// header; timeout bounds every request.
func NewClient(baseURL, email, apiKey, projectKey string, timeout time.Duration) *Client {
	token := base64.StdEncoding.EncodeToString([]byte(email + ":" + apiKey))
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: "Basic " + token,
		projectKey: projectKey,
		client:     &http.Client{Timeout: timeout},
	}
}

// BrowseURL returns the human-facing URL for an issue key.
func (c *Client) BrowseURL(issueKey string) string {
	return c.baseURL + "/browse/" + issueKey
}

// CreateIssueRequest carries the routing fields for one new issue.
type CreateIssueRequest struct {
	Summary     string
	Description Node
	Labels      []string
	AssigneeID  string
	Priority    string
}

// CreatedIssue is Jira's response to a successful issue creation.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

type issueFields struct {
	Project   projectRef `json:"project"`
	Summary   string     `json:"summary"`
	Desc      Node       `json:"description"`
	IssueType nameRef    `json:"issuetype"`
	Labels    []string   `json:"labels"`
	Assignee  accountRef `json:"assignee"`
	Priority  nameRef    `json:"priority"`
}

type projectRef struct {
	Key string `json:"key"`
}

type nameRef struct {
	Name string `json:"name"`
}

type accountRef struct {
	AccountID string `json:"accountId"`
}

// CreateIssue creates one Task-type issue and returns its key. Error
// messages surface the HTTP status and the response body truncated to 500
// bytes.
func (c *Client) CreateIssue(ctx context.Context, req CreateIssueRequest) (*CreatedIssue, error) {
	body, err := json.Marshal(struct {
		Fields issueFields `json:"fields"`
	}{
		Fields: issueFields{
			Project:   projectRef{Key: c.projectKey},
			Summary:   req.Summary,
			Desc:      req.Description,
			IssueType: nameRef{Name: "Task"},
			Labels:    req.Labels,
			Assignee:  accountRef{AccountID: req.AssigneeID},
			Priority:  nameRef{Name: req.Priority},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal issue payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/api/3/issue", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build issue request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.authHeader)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("issue creation request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read issue response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("issue creation failed (%d): %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	var created CreatedIssue
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("failed to decode issue response: %w", err)
	}

	return &created, nil
}

// AttachFile uploads one file to an existing issue. Jira requires the
// X-Atlassian-Token header to allow attachments without a CSRF token.
func (c *Client) AttachFile(ctx context.Context, issueKey, filename string, data []byte, mimeType string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write attachment data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalise multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/rest/api/3/issue/%s/attachments", c.baseURL, issueKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("failed to build attachment request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Atlassian-Token", "no-check")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("attachment request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read attachment response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("attachment failed for %s (%d): %s", issueKey, resp.StatusCode, truncate(string(respBody), 300))
	}

	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

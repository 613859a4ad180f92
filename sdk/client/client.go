package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SocketIDHeader carries the caller's realtime socket id so the server can
// leave that socket out of the broadcast for the caller's own writes.
const SocketIDHeader = "X-Socket-Id"

// Config represents the configuration for the huddle client
type Config struct {
	// BaseURL is the server root, without the /api suffix
	BaseURL string
	// Token is the bearer token sent with every request
	Token string
	// HTTPClient is an optional custom HTTP client
	HTTPClient *http.Client
	// Timeout is the default request timeout
	Timeout time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:8080",
		HTTPClient: http.DefaultClient,
		Timeout:    10 * time.Second,
	}
}

// Client talks to the huddle REST API.
type Client struct {
	config *Config
	client *http.Client

	mu       sync.RWMutex
	socketID string
}

// NewClient creates a new client with the given configuration
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Client{
		config: config,
		client: client,
	}
}

// SetSocketID attaches a realtime socket id to subsequent requests. An empty
// id detaches it.
func (c *Client) SetSocketID(id string) {
	c.mu.Lock()
	c.socketID = id
	c.mu.Unlock()
}

func (c *Client) SocketID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.socketID
}

// APIError defines a standardized error response from the API
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (Status: %d)", e.Message, e.StatusCode)
}

// IsNotFound reports whether err is an API error with status 404.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsPermissionDenied reports whether err is an API error with status 403.
func IsPermissionDenied(err error) bool { return hasStatus(err, http.StatusForbidden) }

func hasStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type okResponse struct {
	Ok bool `json:"ok"`
}

// Users

func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Teams

func (c *Client) AddTeam(ctx context.Context, req *AddTeamRequest) (*Team, error) {
	var team Team
	if err := c.post(ctx, "/teams/add", req, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (c *Client) UpdateTeam(ctx context.Context, req *UpdateTeamRequest) (*Team, error) {
	var team Team
	if err := c.post(ctx, "/teams/update", req, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (c *Client) ListTeams(ctx context.Context) ([]Team, error) {
	var resp struct {
		Teams []Team `json:"teams"`
	}
	if err := c.get(ctx, "/teams/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Teams, nil
}

func (c *Client) TeamMembers(ctx context.Context, teamID uuid.UUID) ([]User, error) {
	var resp struct {
		Members []User `json:"members"`
	}
	if err := c.get(ctx, "/teams/members", url.Values{"teamId": {teamID.String()}}, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

func (c *Client) RemoveMember(ctx context.Context, req *RemoveMemberRequest) (*Team, error) {
	var team Team
	if err := c.post(ctx, "/teams/remove-member", req, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (c *Client) InviteMember(ctx context.Context, req *InviteMemberRequest) (*Invitation, error) {
	var invitation Invitation
	if err := c.post(ctx, "/teams/invite-member", req, &invitation); err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (c *Client) Invitations(ctx context.Context, teamID uuid.UUID) ([]Invitation, error) {
	var resp struct {
		Invitations []Invitation `json:"invitations"`
	}
	if err := c.get(ctx, "/teams/invitations", url.Values{"teamId": {teamID.String()}}, &resp); err != nil {
		return nil, err
	}
	return resp.Invitations, nil
}

func (c *Client) AuditLogs(ctx context.Context, teamID uuid.UUID, page Page) ([]AuditLog, int64, error) {
	var resp struct {
		Logs       []AuditLog `json:"logs"`
		TotalCount int64      `json:"totalCount"`
	}
	query := page.values()
	query.Set("teamId", teamID.String())
	if err := c.get(ctx, "/teams/audit", query, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Logs, resp.TotalCount, nil
}

// Invitations

func (c *Client) AcceptInvitation(ctx context.Context, token string) (*Team, error) {
	var team Team
	if err := c.post(ctx, "/invitations/accept", map[string]string{"token": token}, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (c *Client) TeamByToken(ctx context.Context, token string) (*Team, error) {
	var team Team
	if err := c.get(ctx, "/invitations/team-by-token", url.Values{"token": {token}}, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// Topics

func (c *Client) AddTopic(ctx context.Context, req *AddTopicRequest) (*Topic, error) {
	var topic Topic
	if err := c.post(ctx, "/topics/add", req, &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

func (c *Client) EditTopic(ctx context.Context, req *EditTopicRequest) (*Topic, error) {
	var topic Topic
	if err := c.post(ctx, "/topics/edit", req, &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

func (c *Client) DeleteTopic(ctx context.Context, id uuid.UUID) error {
	return c.post(ctx, "/topics/delete", idRequest{ID: id}, &okResponse{})
}

func (c *Client) ListTopics(ctx context.Context, teamID uuid.UUID) ([]Topic, error) {
	var resp struct {
		Topics []Topic `json:"topics"`
	}
	if err := c.get(ctx, "/topics/list", url.Values{"teamId": {teamID.String()}}, &resp); err != nil {
		return nil, err
	}
	return resp.Topics, nil
}

// Discussions

func (c *Client) AddDiscussion(ctx context.Context, req *AddDiscussionRequest) (*Discussion, error) {
	var discussion Discussion
	if err := c.post(ctx, "/discussions/add", req, &discussion); err != nil {
		return nil, err
	}
	return &discussion, nil
}

func (c *Client) EditDiscussion(ctx context.Context, req *EditDiscussionRequest) (*Discussion, error) {
	var discussion Discussion
	if err := c.post(ctx, "/discussions/edit", req, &discussion); err != nil {
		return nil, err
	}
	return &discussion, nil
}

func (c *Client) DeleteDiscussion(ctx context.Context, id uuid.UUID) error {
	return c.post(ctx, "/discussions/delete", idRequest{ID: id}, &okResponse{})
}

func (c *Client) TogglePin(ctx context.Context, id uuid.UUID) (*Discussion, error) {
	var discussion Discussion
	if err := c.post(ctx, "/discussions/toggle-pin", idRequest{ID: id}, &discussion); err != nil {
		return nil, err
	}
	return &discussion, nil
}

func (c *Client) ListDiscussions(ctx context.Context, req *ListDiscussionsRequest) (*DiscussionPage, error) {
	if req == nil || req.TopicID == uuid.Nil {
		return nil, errors.New("topic id is required")
	}
	query := Page{Skip: req.Skip, Limit: req.Limit}.values()
	query.Set("topicId", req.TopicID.String())
	if req.SearchQuery != "" {
		query.Set("searchQuery", req.SearchQuery)
	}
	if req.InitialDiscussionSlug != "" {
		query.Set("initialDiscussionSlug", req.InitialDiscussionSlug)
	}
	if req.PinnedDiscussionCount != nil {
		query.Set("pinnedDiscussionCount", strconv.Itoa(*req.PinnedDiscussionCount))
	}

	var page DiscussionPage
	if err := c.get(ctx, "/discussions/list", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Posts

func (c *Client) AddPost(ctx context.Context, req *AddPostRequest) (*Post, error) {
	var post Post
	if err := c.post(ctx, "/posts/add", req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) EditPost(ctx context.Context, req *EditPostRequest) (*Post, error) {
	var post Post
	if err := c.post(ctx, "/posts/edit", req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) DeletePost(ctx context.Context, id uuid.UUID) error {
	return c.post(ctx, "/posts/delete", idRequest{ID: id}, &okResponse{})
}

func (c *Client) ListPosts(ctx context.Context, discussionID uuid.UUID, page Page) ([]Post, error) {
	var resp struct {
		Posts []Post `json:"posts"`
	}
	query := page.values()
	query.Set("discussionId", discussionID.String())
	if err := c.get(ctx, "/posts/list", query, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// Notifications

func (c *Client) ListNotifications(ctx context.Context, page Page) ([]Notification, error) {
	var resp struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := c.get(ctx, "/notifications/list", page.values(), &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

func (c *Client) DeleteNotifications(ctx context.Context, ids ...uuid.UUID) (int64, error) {
	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	req := struct {
		NotificationIDs []uuid.UUID `json:"notificationIds"`
	}{NotificationIDs: ids}
	if err := c.post(ctx, "/notifications/delete", req, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// Ticket requests a single-use credential for the websocket upgrade.
func (c *Client) Ticket(ctx context.Context) (string, error) {
	var resp struct {
		Ticket string `json:"ticket"`
	}
	if err := c.post(ctx, "/realtime/ticket", struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.Ticket, nil
}

type idRequest struct {
	ID uuid.UUID `json:"id"`
}

func (p Page) values() url.Values {
	query := url.Values{}
	if p.Skip > 0 {
		query.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		query.Set("limit", strconv.Itoa(p.Limit))
	}
	return query
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.config.BaseURL, "/") + "/api" + path
}

// post performs a POST request to the specified path with the given request and unmarshals the response into the specified response object
func (c *Client) post(ctx context.Context, path string, req interface{}, resp interface{}) error {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(reqBody), resp)
}

// get performs a GET request to the specified path and unmarshals the response into the specified response object
func (c *Client) get(ctx context.Context, path string, query url.Values, resp interface{}) error {
	endpoint := c.endpoint(path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, endpoint, nil, resp)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, resp interface{}) error {
	// Set up context with timeout
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	if socketID := c.SocketID(); socketID != "" {
		httpReq.Header.Set(SocketIDHeader, socketID)
	}

	// Send request
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	// Check for non-success status code
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var apiErr APIError
		if err := json.NewDecoder(httpResp.Body).Decode(&apiErr); err != nil || apiErr.Message == "" {
			// If we can't decode the error, create a generic one
			return &APIError{
				StatusCode: httpResp.StatusCode,
				Message:    fmt.Sprintf("request failed with status code %d", httpResp.StatusCode),
			}
		}

		apiErr.StatusCode = httpResp.StatusCode
		return &apiErr
	}

	// Decode response
	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

package labdragon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/display"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/service"
)

// ErrRequestFailed wraps any response with an unexpected status code. The
// server answers 201 on success for almost everything; the exceptions are
// structure reads and content block deletion, which answer 200.
var ErrRequestFailed = errors.New("request failed")

// Client talks to a notebook server over its REST surface.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8000".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchEntity retrieves one entity with its content blocks and comments.
// A missing or deleted entity returns (nil, nil) so callers can treat
// still-loading children uniformly.
func (c *Client) FetchEntity(ctx context.Context, id string) (*model.Entity, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/api/entities/"+id, nil, nil, "")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusCreated {
		return nil, statusErr(status, body)
	}

	// the body is a JSON string holding the entity JSON
	var inner string
	if err := json.Unmarshal(body, &inner); err != nil {
		return nil, err
	}
	var wire model.WireEntity
	if err := json.Unmarshal([]byte(inner), &wire); err != nil {
		return nil, err
	}
	return model.FromWire(&wire), nil
}

// MergedChildren fetches the sub-entities of parent and merges them with
// its content blocks into display order. Children the server cannot serve
// yet come back in Pending rather than failing the render; a later call
// picks them up.
func (c *Client) MergedChildren(ctx context.Context, parent *model.Entity, includeDeleted bool) (display.Merged, error) {
	resolved := make([]*model.Entity, 0, len(parent.ChildIDs()))
	for _, id := range parent.ChildIDs() {
		child, err := c.FetchEntity(ctx, id)
		if err != nil {
			return display.Merged{}, err
		}
		if child != nil {
			resolved = append(resolved, child)
		}
	}

	return display.Merge(parent, resolved, display.Options{IncludeDeleted: includeDeleted}), nil
}

// CreateEntity adds a child entity under parent. Pass underChild to place it
// right after that sibling instead of at the end.
func (c *Client) CreateEntity(ctx context.Context, name, user, entityType, parent, underChild string) error {
	payload := map[string]string{
		"name":        name,
		"user":        user,
		"type":        entityType,
		"parent":      parent,
		"under_child": underChild,
	}
	return c.expect(ctx, http.MethodPost, "/api/entities", nil, payload, http.StatusCreated)
}

// RenameEntity changes an entity's name, keeping the old name in its history.
func (c *Client) RenameEntity(ctx context.Context, id, newName string) error {
	payload := map[string]string{"new_name": newName}
	return c.expect(ctx, http.MethodPatch, "/api/entities/"+id, nil, payload, http.StatusCreated)
}

// DeleteEntity soft-deletes an entity. Its children stay reachable by ID.
func (c *Client) DeleteEntity(ctx context.Context, id string) error {
	return c.expect(ctx, http.MethodDelete, "/api/entities/"+id, nil, nil, http.StatusCreated)
}

// ToggleBookmark flips an entity's bookmark flag.
func (c *Client) ToggleBookmark(ctx context.Context, id string) error {
	return c.expect(ctx, http.MethodPost, "/api/entities/"+id+"/toggle_bookmark", nil, nil, http.StatusCreated)
}

// CreateLibrary adds a new top-level library.
func (c *Client) CreateLibrary(ctx context.Context, name, user string) error {
	payload := map[string]string{"name": name, "user": user}
	return c.expect(ctx, http.MethodPost, "/api/entities/add_library", nil, payload, http.StatusCreated)
}

// LibraryInfo is the id and name pair the library listing returns.
type LibraryInfo struct {
	ID   string `json:"ID"`
	Name string `json:"name"`
}

// Libraries lists every library on the server.
func (c *Client) Libraries(ctx context.Context) ([]LibraryInfo, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/api/entities/get_all_libraries", nil, nil, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, statusErr(status, body)
	}

	var libraries []LibraryInfo
	if err := json.Unmarshal(body, &libraries); err != nil {
		return nil, err
	}
	return libraries, nil
}

// LibraryStructure fetches the skeleton tree rooted at id: names, ids and
// types, no content.
func (c *Client) LibraryStructure(ctx context.Context, id string) (*service.Structure, error) {
	query := url.Values{"ID": {id}}
	body, status, err := c.do(ctx, http.MethodGet, "/api/entities", query, nil, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusErr(status, body)
	}

	var tree service.Structure
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// NotebookParent resolves the notebook an entity belongs to.
func (c *Client) NotebookParent(ctx context.Context, id string) (string, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/api/entities/"+id+"/notebook_parent", nil, nil, "")
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", statusErr(status, body)
	}
	return string(body), nil
}

// AddTextBlock appends a text content block to an entity. Pass underChild to
// place it right after that child in the entity's explicit order.
func (c *Client) AddTextBlock(ctx context.Context, entityID, user, content, underChild string) error {
	query := url.Values{"username": {user}}
	if underChild != "" {
		query.Set("under_child", underChild)
	}
	return c.expect(ctx, http.MethodPut, "/api/entities/"+entityID, query, content, http.StatusCreated)
}

// EditTextBlock appends a new version to a text content block. Submitting
// the current text again is a no-op on the server.
func (c *Client) EditTextBlock(ctx context.Context, entityID, blockID, user, content string) error {
	query := url.Values{"username": {user}}
	return c.expect(ctx, http.MethodPatch, "/api/entities/"+entityID+"/"+blockID, query, content, http.StatusCreated)
}

// DeleteContentBlock soft-deletes a content block.
func (c *Client) DeleteContentBlock(ctx context.Context, entityID, blockID string) error {
	return c.expect(ctx, http.MethodDelete, "/api/entities/"+entityID+"/"+blockID, nil, nil, http.StatusOK)
}

// ContentBlockText fetches the latest text of a text content block.
func (c *Client) ContentBlockText(ctx context.Context, entityID, blockID string) (string, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/api/entities/"+entityID+"/"+blockID, nil, nil, "")
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", statusErr(status, body)
	}

	var text string
	if err := json.Unmarshal(body, &text); err != nil {
		return "", err
	}
	return text, nil
}

// AddImageBlock uploads an image as a new content block. The title defaults
// to the filename when empty.
func (c *Client) AddImageBlock(ctx context.Context, entityID, user, filename, title string, data []byte, underChild string) error {
	query := url.Values{"username": {user}}
	if title != "" {
		query.Set("title", title)
	}
	if underChild != "" {
		query.Set("under_child", underChild)
	}

	form, contentType, err := imageForm(filename, data)
	if err != nil {
		return err
	}
	body, status, err := c.do(ctx, http.MethodPut, "/api/entities/"+entityID+"/add_image_block", query, form, contentType)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return statusErr(status, body)
	}
	return nil
}

// EditImageBlock replaces an image block's picture, its title, or both. Pass
// nil data for a pure retitle.
func (c *Client) EditImageBlock(ctx context.Context, entityID, blockID, user, filename, title string, data []byte) error {
	query := url.Values{"username": {user}}
	if title != "" {
		query.Set("title", title)
	}

	var payload any
	contentType := ""
	if data != nil {
		form, ct, err := imageForm(filename, data)
		if err != nil {
			return err
		}
		payload, contentType = form, ct
	}
	body, status, err := c.do(ctx, http.MethodPost, "/api/entities/"+entityID+"/"+blockID, query, payload, contentType)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return statusErr(status, body)
	}
	return nil
}

// ImageURL builds the fetch URL for an image block. The t parameter only
// busts browser caches; the server always serves the latest version.
func (c *Client) ImageURL(entityID, blockID string) string {
	t := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return c.baseURL + "/api/entities/" + entityID + "/" + blockID + "?t=" + t
}

// ImageContent downloads the latest bytes of an image block.
func (c *Client) ImageContent(ctx context.Context, entityID, blockID string) ([]byte, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/api/entities/"+entityID+"/"+blockID, nil, nil, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusErr(status, body)
	}
	return body, nil
}

// AddComment attaches a comment to an entity, or to one of its content
// blocks when target is not empty.
func (c *Client) AddComment(ctx context.Context, entityID, target, user, comment string) error {
	query := url.Values{"username": {user}}
	if target != "" {
		query.Set("content_block_id", target)
	}
	payload := map[string]string{"comment": comment}
	return c.expect(ctx, http.MethodPut, "/api/entities/"+entityID+"/add_comment", query, payload, http.StatusCreated)
}

// AddCommentReply appends a reply to a comment thread.
func (c *Client) AddCommentReply(ctx context.Context, entityID, commentID, user, replyBody string) error {
	query := url.Values{"username": {user}}
	payload := map[string]string{"reply_body": replyBody}
	path := "/api/entities/" + entityID + "/add_comment_reply/" + commentID
	return c.expect(ctx, http.MethodPut, path, query, payload, http.StatusCreated)
}

// ResolveComment marks a comment thread as resolved.
func (c *Client) ResolveComment(ctx context.Context, entityID, commentID string) error {
	path := "/api/entities/" + entityID + "/resolve_comment/" + commentID
	return c.expect(ctx, http.MethodDelete, path, nil, nil, http.StatusCreated)
}

// Users lists every known user.
func (c *Client) Users(ctx context.Context) ([]*model.User, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/api/properties/users", nil, nil, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, statusErr(status, body)
	}

	// double-encoded like entities
	var inner string
	if err := json.Unmarshal(body, &inner); err != nil {
		return nil, err
	}
	var users []*model.User
	if err := json.Unmarshal([]byte(inner), &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AddUser registers a new user.
func (c *Client) AddUser(ctx context.Context, email, name string) error {
	payload := map[string]string{"email": email, "name": name}
	return c.expect(ctx, http.MethodPost, "/api/properties/users", nil, payload, http.StatusCreated)
}

// SetUserColor assigns the display color used for a user's edit marks.
func (c *Client) SetUserColor(ctx context.Context, email, color string) error {
	query := url.Values{"color": {color}}
	return c.expect(ctx, http.MethodPut, "/api/properties/users/"+email, query, nil, http.StatusCreated)
}

// EntityTypes lists the entity type names the server accepts.
func (c *Client) EntityTypes(ctx context.Context) ([]string, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/api/properties/types", nil, nil, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, statusErr(status, body)
	}

	var types []string
	if err := json.Unmarshal(body, &types); err != nil {
		return nil, err
	}
	return types, nil
}

// BucketInfo is the id and name pair the bucket listing returns.
type BucketInfo struct {
	ID   string `json:"ID"`
	Name string `json:"name"`
}

// Buckets lists every data bucket on the server.
func (c *Client) Buckets(ctx context.Context) ([]BucketInfo, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/api/data/buckets", nil, nil, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, statusErr(status, body)
	}

	var buckets []BucketInfo
	if err := json.Unmarshal(body, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

// CreateBucket registers a data bucket watching a filesystem location. The
// location has to exist on the server's filesystem.
func (c *Client) CreateBucket(ctx context.Context, name, user, location string) error {
	query := url.Values{"name": {name}, "user": {user}, "location": {location}}
	return c.expect(ctx, http.MethodPost, "/api/data/buckets", query, nil, http.StatusCreated)
}

// TargetBucket points an entity's data capture at a bucket.
func (c *Client) TargetBucket(ctx context.Context, entityID, bucketID string) error {
	query := url.Values{"bucket_ID": {bucketID}}
	return c.expect(ctx, http.MethodPut, "/api/entities/"+entityID+"/target_bucket", query, nil, http.StatusCreated)
}

// UnsetTargetBucket removes a bucket from an entity's capture targets.
func (c *Client) UnsetTargetBucket(ctx context.Context, entityID, bucketID string) error {
	path := "/api/entities/" + entityID + "/unset_target/" + bucketID
	return c.expect(ctx, http.MethodGet, path, nil, nil, http.StatusCreated)
}

// Health checks whether the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.expect(ctx, http.MethodGet, "/api/health", nil, nil, http.StatusCreated)
}

func (c *Client) expect(ctx context.Context, method, path string, query url.Values, payload any, want int) error {
	body, status, err := c.do(ctx, method, path, query, payload, "")
	if err != nil {
		return err
	}
	if status != want {
		return statusErr(status, body)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, contentType string) ([]byte, int, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	switch v := payload.(type) {
	case nil:
	case *bytes.Buffer:
		reqBody = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, 0, err
		}
		reqBody = bytes.NewReader(raw)
		if contentType == "" {
			contentType = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, 0, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func imageForm(filename string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func statusErr(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		cut := 200
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, status, msg)
}

// Package api is the HTTP and WebSocket client for the heartwall server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/client/models"
	"github.com/dmitrijs2005/heartwall/internal/common"
	"github.com/gorilla/websocket"
)

// DefaultUploadTimeout bounds one upload request end to end.
const DefaultUploadTimeout = 30 * time.Second

// Error is a non-success response. Message is the server's text or the
// generic failure message when none was provided.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// File is one artifact part of an upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type UploadRequest struct {
	Cropped  *File
	Full     *File
	Nickname string
	Message  string
}

type Client struct {
	baseURL       string
	http          *http.Client
	dialer        *websocket.Dialer
	uploadTimeout time.Duration
}

func New(baseURL string, uploadTimeout time.Duration) *Client {
	if uploadTimeout <= 0 {
		uploadTimeout = DefaultUploadTimeout
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{},
		dialer:        websocket.DefaultDialer,
		uploadTimeout: uploadTimeout,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// FetchHistory returns every memory, newest first.
func (c *Client) FetchHistory(ctx context.Context) ([]models.Memory, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/memories", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp, "failed to load memories")
	}

	var out []models.Memory
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return out, nil
}

// Ping checks the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &Error{Status: resp.StatusCode, Message: "server unhealthy"}
	}
	return nil
}

// Upload sends one submission as a multipart body. The request is bounded
// by the upload timeout; expiry is reported as a failed upload.
func (c *Client) Upload(ctx context.Context, in UploadRequest) (*models.UploadResponse, error) {
	body, contentType, err := encodeUpload(in)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readError(resp, common.GenericUploadFailure)
	}

	var out models.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if out.Data == nil {
		return nil, &Error{Status: resp.StatusCode, Message: common.GenericUploadFailure}
	}
	return &out, nil
}

func encodeUpload(in UploadRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := writeFile(w, common.FieldFile, in.Cropped); err != nil {
		return nil, "", err
	}
	if in.Full != nil {
		if err := writeFile(w, common.FieldFullFile, in.Full); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField(common.FieldNickname, in.Nickname); err != nil {
		return nil, "", err
	}
	if err := w.WriteField(common.FieldMessage, in.Message); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(w *multipart.Writer, field string, f *File) error {
	if f == nil {
		return common.ErrMissingArtifact
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", f.ContentType)
	pw, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = pw.Write(f.Data)
	return err
}

func readError(resp *http.Response, fallback string) error {
	var body struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		body.Message = fallback
	}
	return &Error{Status: resp.StatusCode, Message: body.Message}
}

// Stream is a live subscription to new cards.
type Stream struct {
	conn *websocket.Conn
}

// Subscribe opens the real-time feed.
func (c *Client) Subscribe(ctx context.Context) (*Stream, error) {
	u, err := url.Parse(c.baseURL + "/ws")
	if err != nil {
		return nil, err
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("subscribe: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return &Stream{conn: conn}, nil
}

// Next blocks until the next event arrives, the connection fails or ctx ends.
func (s *Stream) Next(ctx context.Context) (*models.Event, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	var ev models.Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}

// Close sends a close frame on a best-effort basis and drops the connection.
func (s *Stream) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.conn.Close()
}

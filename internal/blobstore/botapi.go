package blobstore

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

	"github.com/dmitrijs2005/snapvault/internal/common"
	"github.com/dmitrijs2005/snapvault/internal/logging"
)

// BotStore pushes assets through a Telegram-style bot API: sendDocument
// returns a durable file id, getFile resolves it to a short-lived download
// path under the API's file endpoint.
type BotStore struct {
	baseURL string
	token   string
	chatID  string
	maxSize int64
	client  *http.Client
	logger  logging.Logger
}

type BotStoreOptions struct {
	// BaseURL is the API root, e.g. "https://api.telegram.org".
	BaseURL string
	Token   string
	ChatID  string
	// MaxSizeBytes is the local per-item ceiling; the remote enforces its
	// own, which surfaces as 413.
	MaxSizeBytes int64
	Client       *http.Client
}

func NewBotStore(opts BotStoreOptions, logger logging.Logger) *BotStore {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	return &BotStore{
		baseURL: opts.BaseURL,
		token:   opts.Token,
		chatID:  opts.ChatID,
		maxSize: opts.MaxSizeBytes,
		client:  client,
		logger:  logger.With("module", "botstore"),
	}
}

type fileRef struct {
	FileID string `json:"file_id"`
}

type sendDocumentResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		Document  *fileRef  `json:"document"`
		Video     *fileRef  `json:"video"`
		Animation *fileRef  `json:"animation"`
		Audio     *fileRef  `json:"audio"`
		Photo     []fileRef `json:"photo"`
	} `json:"result"`
}

type getFileResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		FilePath string `json:"file_path"`
	} `json:"result"`
}

func (s *BotStore) Upload(ctx context.Context, payload io.Reader, size int64, filename string, onProgress ProgressFunc) (string, error) {

	if s.maxSize > 0 && size > s.maxSize {
		return "", common.ErrSizeRejected
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("chat_id", s.chatID); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	part, err := w.CreateFormFile("document", filename)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	if _, err := io.Copy(part, payload); err != nil {
		return "", fmt.Errorf("reading payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	total := int64(body.Len())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.methodURL("sendDocument"), newProgressReader(&body, total, onProgress))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.ContentLength = total

	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", common.ErrTransferTimeout
		}
		return "", fmt.Errorf("%w: %v", common.ErrTransferRefused, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return "", common.ErrSizeRejected
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %s", common.ErrTransferRefused, resp.Status)
	}

	var parsed sendDocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", common.ErrTransferRefused, err)
	}
	if !parsed.OK {
		return "", fmt.Errorf("%w: %s", common.ErrTransferRefused, parsed.Description)
	}

	handle := extractFileID(&parsed)
	if handle == "" {
		return "", fmt.Errorf("%w: no file id in response", common.ErrTransferRefused)
	}

	s.logger.Info(ctx, "uploaded", "filename", filename, "size", size)
	return handle, nil
}

// Resolve asks getFile for the current path of the handle. Paths expire
// server-side, so the result is only good for the immediate fetch.
func (s *BotStore) Resolve(ctx context.Context, handle string) (string, error) {

	u := s.methodURL("getFile") + "?file_id=" + url.QueryEscape(handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrHandleUnresolved, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %s", common.ErrHandleUnresolved, resp.Status)
	}

	var parsed getFileResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", common.ErrHandleUnresolved, err)
	}
	if !parsed.OK || parsed.Result.FilePath == "" {
		return "", common.ErrHandleUnresolved
	}

	return fmt.Sprintf("%s/file/bot%s/%s", s.baseURL, s.token, parsed.Result.FilePath), nil
}

func (s *BotStore) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", s.baseURL, s.token, method)
}

// extractFileID tolerates the remote recategorizing the document: the file
// id may come back under document, video, animation, audio, or as the last
// (largest) photo size.
func extractFileID(r *sendDocumentResponse) string {
	for _, ref := range []*fileRef{r.Result.Document, r.Result.Video, r.Result.Animation, r.Result.Audio} {
		if ref != nil && ref.FileID != "" {
			return ref.FileID
		}
	}
	if n := len(r.Result.Photo); n > 0 {
		return r.Result.Photo[n-1].FileID
	}
	return ""
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

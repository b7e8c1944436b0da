// Package attachments stores invoice and bill PDFs on the local filesystem.
package attachments

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"suryasakshi/internal/core"
	"suryasakshi/internal/ledger"
)

// URLPrefix is the path under which stored files are served.
const URLPrefix = "/attachments/"

var (
	ErrNotPDF     = errors.New("attachment must be a PDF document")
	ErrInvalidURL = errors.New("invalid attachment url")
)

type FileStore struct {
	root string
}

var _ ledger.AttachmentStore = (*FileStore)(nil)

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create attachments directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Put writes r under <category>/<id>.pdf, replacing any earlier upload for
// the same record. The content must sniff as a PDF.
func (s *FileStore) Put(ctx context.Context, category core.Category, id int64, name string, r io.Reader) (string, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("read attachment: %w", err)
	}
	detected := strings.ToLower(strings.Split(http.DetectContentType(head), ";")[0])
	if detected != "application/pdf" {
		slog.WarnContext(ctx, "Rejected attachment", "filename", name, "detected_type", detected)
		return "", ErrNotPDF
	}

	key := path.Join(string(category), strconv.FormatInt(id, 10)+".pdf")
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create category directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, br); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write attachment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close attachment: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store attachment: %w", err)
	}

	slog.InfoContext(ctx, "Attachment stored", "category", category, "id", id, "filename", name)
	return URLPrefix + key, nil
}

func (s *FileStore) Delete(_ context.Context, url string) error {
	p, err := s.resolve(url)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

func (s *FileStore) Open(_ context.Context, url string) (io.ReadCloser, error) {
	p, err := s.resolve(url)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return f, nil
}

// resolve maps a served URL back to a path inside root.
func (s *FileStore) resolve(url string) (string, error) {
	rel, ok := strings.CutPrefix(url, URLPrefix)
	if !ok {
		return "", ErrInvalidURL
	}
	rel = filepath.FromSlash(rel)
	if !filepath.IsLocal(rel) {
		return "", ErrInvalidURL
	}
	return filepath.Join(s.root, rel), nil
}

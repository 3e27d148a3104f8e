// Package uploads stores files submitted through the upload page and records
// them for the home page listing.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/KaramelBytes/geoportal/internal/store"
	"github.com/KaramelBytes/geoportal/internal/utils"
)

var (
	// ErrTooLarge is returned when a file exceeds the configured limit.
	ErrTooLarge = errors.New("file exceeds upload limit")
	ErrNoFile   = errors.New("no file uploaded")
)

// Recorder persists upload records.
type Recorder interface {
	InsertUpload(ctx context.Context, u store.Upload) error
}

// Lister returns the most recent upload records.
type Lister interface {
	RecentUploads(ctx context.Context, limit int) ([]store.Upload, error)
}

// Input is one submitted file.
type Input struct {
	Title       string
	Description string
	Filename    string
	UploadedBy  string
	Body        io.Reader
}

// Service writes uploads under Dir and records them.
type Service struct {
	Dir      string
	MaxBytes int64
	Rec      Recorder
	now      func() time.Time
}

func NewService(dir string, maxBytes int64, rec Recorder) *Service {
	return &Service{Dir: dir, MaxBytes: maxBytes, Rec: rec, now: time.Now}
}

// Save copies in.Body to a uniquely named file and records it. The title
// defaults to the file name. Partial files are removed on any failure.
func (s *Service) Save(ctx context.Context, in Input) (store.Upload, error) {
	orig := filepath.Base(strings.ReplaceAll(in.Filename, `\`, "/"))
	if orig == "." || orig == "/" || orig == "" || in.Body == nil {
		return store.Upload{}, ErrNoFile
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = orig
	}
	if err := utils.EnsureDir(s.Dir); err != nil {
		return store.Upload{}, fmt.Errorf("upload dir: %w", err)
	}

	id := uuid.NewString()
	final := filepath.Join(s.Dir, id+strings.ToLower(filepath.Ext(orig)))
	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return store.Upload{}, fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp.Name())
		}
	}()

	h := xxh3.New()
	src := in.Body
	if s.MaxBytes > 0 {
		src = io.LimitReader(in.Body, s.MaxBytes+1)
	}
	n, err := io.Copy(io.MultiWriter(tmp, h), src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return store.Upload{}, fmt.Errorf("write upload: %w", err)
	}
	if s.MaxBytes > 0 && n > s.MaxBytes {
		return store.Upload{}, ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return store.Upload{}, fmt.Errorf("atomic rename: %w", err)
	}
	committed = true

	u := store.Upload{
		ID:           id,
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		StoredPath:   final,
		OriginalName: orig,
		Size:         n,
		Checksum:     fmt.Sprintf("%016x", h.Sum64()),
		UploadedBy:   in.UploadedBy,
		UploadedAt:   s.now().UTC(),
	}
	if s.Rec != nil {
		if err := s.Rec.InsertUpload(ctx, u); err != nil {
			_ = os.Remove(final)
			return store.Upload{}, err
		}
	}
	return u, nil
}

package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxUploadSize caps a single upload at 10 MB.
const MaxUploadSize = 10 << 20

var (
	ErrTooLarge        = errors.New("file size exceeds 10MB limit")
	ErrUnsupportedType = errors.New("file type not supported")
)

// allowedTypes is the upload MIME allow-list.
var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"video/mp4",
	"video/webm",
	"application/pdf",
	"text/plain",
}

// Upload describes a stored blob.
type Upload struct {
	URL  string `json:"url"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Name string `json:"name"`
}

// Store writes finite-size payloads to local disk and hands back public
// URLs. Both the declared and the sniffed content type must pass the
// allow-list.
type Store struct {
	dir      string
	basePath string
	log      zerolog.Logger
}

func NewStore(dir, basePath string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{
		dir:      dir,
		basePath: basePath,
		log:      log.With().Str("component", "media").Logger(),
	}, nil
}

// Save stores the payload under a fresh name, keeping the original
// extension, and returns its public URL, type, size and original name.
func (s *Store) Save(name, declaredType string, r io.Reader) (*Upload, error) {
	if !typeAllowed(declaredType) {
		return nil, ErrUnsupportedType
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}

	if !sniffAllowed(data) {
		return nil, ErrUnsupportedType
	}

	filename := uuid.NewString() + filepath.Ext(name)
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	s.log.Debug().Str("file", filename).Int("size", len(data)).Msg("upload stored")

	return &Upload{
		URL:  path.Join(s.basePath, filename),
		Type: declaredType,
		Size: int64(len(data)),
		Name: name,
	}, nil
}

// Dir returns the on-disk directory uploads live in, for static serving.
func (s *Store) Dir() string {
	return s.dir
}

func typeAllowed(mime string) bool {
	for _, t := range allowedTypes {
		if mime == t {
			return true
		}
	}
	return false
}

func sniffAllowed(data []byte) bool {
	detected := mimetype.Detect(data)
	for _, t := range allowedTypes {
		if detected.Is(t) {
			return true
		}
	}
	return false
}

package credential

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiro-gateway/gateway/internal/domain"
)

// credentialsFileShape is the on-disk / remote JSON shape (§6 "Credentials
// file format"). Missing fields take from constructor args.
type credentialsFileShape struct {
	RefreshToken string `json:"refreshToken"`
	AccessToken  string `json:"accessToken,omitempty"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
	ProfileArn   string `json:"profileArn,omitempty"`
	Region       string `json:"region,omitempty"`
}

// FileStore loads and (for local paths only) persists a Manager's credential
// state. A remote http(s) URL is fetched once at construction and never
// written back.
type FileStore struct {
	path     string
	isRemote bool
	client   *http.Client
}

func NewFileStore(pathOrURL string) (*FileStore, error) {
	isRemote := strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://")
	return &FileStore{
		path:     pathOrURL,
		isRemote: isRemote,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *FileStore) Load() (*domain.Credential, error) {
	var raw []byte
	var err error

	if s.isRemote {
		raw, err = s.fetchRemote()
	} else {
		raw, err = os.ReadFile(s.path)
		if os.IsNotExist(err) {
			return nil, nil
		}
	}
	if err != nil {
		return nil, err
	}

	var shape credentialsFileShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}

	cred := &domain.Credential{
		RefreshToken: shape.RefreshToken,
		AccessToken:  shape.AccessToken,
		ProfileArn:   shape.ProfileArn,
		Region:       shape.Region,
	}
	if shape.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, shape.ExpiresAt); err == nil {
			cred.ExpiresAt = t
		}
	}
	return cred, nil
}

func (s *FileStore) fetchRemote() ([]byte, error) {
	resp, err := s.client.Get(s.path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote credentials: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Save persists the credential atomically (write-temp-then-rename, §5) so a
// crash mid-write never leaves a truncated file. No-op for remote stores.
func (s *FileStore) Save(cred *domain.Credential) error {
	if s.isRemote {
		return nil
	}

	shape := credentialsFileShape{
		RefreshToken: cred.RefreshToken,
		AccessToken:  cred.AccessToken,
		ProfileArn:   cred.ProfileArn,
		Region:       cred.Region,
	}
	if !cred.ExpiresAt.IsZero() {
		shape.ExpiresAt = cred.ExpiresAt.Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(shape, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(dir, ".creds-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.path)
}

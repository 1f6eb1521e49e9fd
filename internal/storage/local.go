package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/turuturu/turuturu/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// LocalStore writes blobs under cfg.UploadDir and serves them back as
// <APP_URL>/uploads/<key>.
type LocalStore struct {
	dir     string
	baseURL string
	log     *zap.Logger
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func NewLocalStore(p Params) (BlobStore, error) {
	dir := p.Config.UploadDir
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(p.Config.AppURL, "/"),
		log:     p.Log.Named("storage.local"),
	}, nil
}

func (s *LocalStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if !validKey(key) {
		return "", ErrInvalidKey
	}

	path := filepath.Join(s.dir, key)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", err
	}

	s.log.Debug("blob stored",
		zap.String("key", key),
		zap.String("content_type", contentType),
	)
	return s.baseURL + "/uploads/" + key, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// validKey rejects anything that could escape the upload directory.
func validKey(key string) bool {
	if key == "" || strings.ContainsAny(key, "/\\") {
		return false
	}
	return !strings.Contains(key, "..")
}

var Module = fx.Module("storage",
	fx.Provide(NewLocalStore),
)

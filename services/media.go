package services

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const postsMediaDir = "posts"

// Upload is an image already read and validated by the form layer.
type Upload struct {
	Filename string
	// Format as reported by image.DecodeConfig: "gif", "jpeg" or "png".
	Format string
	Data   []byte
}

func (u Upload) ext() string {
	switch u.Format {
	case "jpeg":
		return ".jpg"
	case "png", "gif":
		return "." + u.Format
	}
	return strings.ToLower(filepath.Ext(u.Filename))
}

// MediaStore keeps uploaded images on the local filesystem under Root.
type MediaStore struct {
	Root string
	now  func() time.Time
}

func NewMediaStore(root string) *MediaStore {
	return &MediaStore{Root: root, now: time.Now}
}

// Save stores the upload and returns its path relative to Root,
// e.g. posts/20240131-<uuid>.png.
func (ms *MediaStore) Save(upload Upload) (string, error) {
	dir := filepath.Join(ms.Root, postsMediaDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%s%s",
		ms.now().Format("20060102"),
		uuid.New().String(),
		upload.ext(),
	)
	if err := os.WriteFile(filepath.Join(dir, filename), upload.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return path.Join(postsMediaDir, filename), nil
}

// Delete removes a previously saved file; a missing file is not an error.
func (ms *MediaStore) Delete(relPath string) error {
	if relPath == "" {
		return nil
	}
	err := os.Remove(filepath.Join(ms.Root, filepath.FromSlash(relPath)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

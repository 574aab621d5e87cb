package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"alfredoptarigan/applicant-tracker/internal/apperr"
)

var allowedResumeExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
}

type StorageService interface {
	SaveResume(upload Upload) (string, error)
	GetFilePath(filename string) string
	DeleteFile(filename string) error
	EnsureUploadDir() error
}

type storageService struct {
	uploadPath string
}

func NewStorageService(uploadPath string) StorageService {
	return &storageService{
		uploadPath: uploadPath,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

// SaveResume keeps the original upload under a generated name and returns
// that name.
func (s *storageService) SaveResume(upload Upload) (string, error) {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if !allowedResumeExtensions[ext] {
		return "", fmt.Errorf("%w: unsupported resume file extension %q", apperr.ErrInvalidInput, ext)
	}

	uniqueFilename := fmt.Sprintf("resume_%s%s", uuid.New().String(), ext)

	if err := os.WriteFile(s.GetFilePath(uniqueFilename), upload.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return uniqueFilename, nil
}

func (s *storageService) GetFilePath(filename string) string {
	return filepath.Join(s.uploadPath, filepath.Base(filename))
}

func (s *storageService) DeleteFile(filename string) error {
	if err := os.Remove(s.GetFilePath(filename)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

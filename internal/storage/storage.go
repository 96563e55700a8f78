// Package storage guarda las imágenes de producto tal cual llegan.
package storage

//go:generate mockgen -destination=mocks/mock_image_store.go -package=mocks custom-shop/internal/storage ImageStore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"custom-shop/internal/apperror"
)

// ImageStore es el colaborador de archivos. No es transaccional y cada
// archivo se guarda por separado.
type ImageStore interface {
	Store(ctx context.Context, r io.Reader, originalName string) (string, error)
}

// ErrInvalidName indica un nombre de archivo vacío o con rutas.
var ErrInvalidName = errors.New("storage: invalid file name")

// DiskStore escribe en un directorio local y devuelve BasePath + nombre.
type DiskStore struct {
	dir      string
	basePath string
}

// NewDiskStore crea el directorio de subida si no existe.
func NewDiskStore(dir, basePath string) (*DiskStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving upload dir %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("could not create the directory to store files at %s: %w", abs, err)
	}
	return &DiskStore{dir: abs, basePath: basePath}, nil
}

func (s *DiskStore) Dir() string { return s.dir }

// Store guarda el contenido como "<uuid>_<nombre>".
func (s *DiskStore) Store(ctx context.Context, r io.Reader, originalName string) (string, error) {
	const op = "storage.store"
	if err := ctx.Err(); err != nil {
		return "", apperror.Storage(op, err)
	}

	base := filepath.Base(strings.TrimSpace(originalName))
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "file"
	}
	fileName := uuid.NewString() + "_" + base

	f, err := os.OpenFile(filepath.Join(s.dir, fileName), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", apperror.Storage(op, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", apperror.Storage(op, err)
	}
	if err := f.Close(); err != nil {
		return "", apperror.Storage(op, err)
	}
	return s.basePath + fileName, nil
}

// StoredFile es un archivo abierto listo para servirse.
type StoredFile struct {
	*os.File
	Name        string
	ContentType string
	Size        int64
}

// Open abre un archivo guardado. Rechaza nombres con rutas.
func (s *DiskStore) Open(fileName string) (*StoredFile, error) {
	const op = "storage.open"
	if fileName == "" || fileName != filepath.Base(fileName) || strings.HasPrefix(fileName, ".") {
		return nil, apperror.Validation(op, "%v: %q", ErrInvalidName, fileName)
	}

	path := filepath.Join(s.dir, fileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, apperror.NotFound(op, "file not found: %s", fileName)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	return &StoredFile{File: f, Name: fileName, ContentType: mtype.String(), Size: info.Size()}, nil
}

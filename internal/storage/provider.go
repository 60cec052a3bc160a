// Package storage defines the page-archive file-system abstraction.
package storage

import "github.com/starford/vellum/internal/models"

// Provider is the interface for archive file operations.
type Provider interface {
	// List returns info for every .md page under dir (relative to archive root).
	List(dir string) ([]models.PageInfo, error)
	// Read returns the raw bytes of the page at path (relative to archive root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to archive root).
	Write(path string, content []byte) error
	// Delete removes the page at path (relative to archive root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to archive root).
	Move(oldPath, newPath string) error
}

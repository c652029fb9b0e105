package dictionary

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat represents different dictionary file formats
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatText               // Tab separated text dictionary
	FormatBinary             // Compiled little-endian dictionary
	FormatMatrix             // Connection cost matrix
)

// MatrixFileName is the connection matrix looked up inside dictionary directories.
const MatrixFileName = "matrix.def"

// MaxBinaryEntries is the sanity limit for a binary header.
const MaxBinaryEntries = 10_000_000

// FormatInfo contains metadata about a dictionary file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	MinSize     int64 // Minimum expected file size in bytes
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatText: {
		Format:      FormatText,
		Description: "Text Dictionary",
		Extensions:  []string{".txt", ".tsv", ".dic"},
		MinSize:     0,
	},
	FormatBinary: {
		Format:      FormatBinary,
		Description: "Binary Dictionary",
		Extensions:  []string{".bin"},
		MinSize:     4, // entry count header
	},
	FormatMatrix: {
		Format:      FormatMatrix,
		Description: "Connection Matrix",
		Extensions:  []string{".def"},
		MinSize:     3,
	},
}

func (f FileFormat) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "Unknown"
}

// DetectFileFormat picks the format from the file name alone.
func DetectFileFormat(filename string) FileFormat {
	if strings.EqualFold(filepath.Base(filename), MatrixFileName) {
		return FormatMatrix
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, format := range []FileFormat{FormatText, FormatBinary} {
		for _, valid := range supportedFormats[format].Extensions {
			if ext == valid {
				return format
			}
		}
	}
	return FormatUnknown
}

// ValidateFileFormat checks if a file matches the expected format
func ValidateFileFormat(filename string, expectedFormat FileFormat) error {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("%s is a directory", filename)
	}

	formatInfo, exists := supportedFormats[expectedFormat]
	if !exists {
		return fmt.Errorf("unknown format: %v", expectedFormat)
	}

	if fileInfo.Size() < formatInfo.MinSize {
		return fmt.Errorf("file %s is too small (%d bytes) for format %s (minimum: %d bytes)",
			filename, fileInfo.Size(), formatInfo.Description, formatInfo.MinSize)
	}

	if expectedFormat == FormatBinary {
		return validateBinaryFormat(filename)
	}
	return nil
}

// validateBinaryFormat validates binary dictionary files
func validateBinaryFormat(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	var count int32
	if err := binary.Read(file, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("failed to read header from %s: %w", filename, err)
	}
	if count < 0 {
		return fmt.Errorf("invalid entry count in %s: %d (negative)", filename, count)
	}
	if count > MaxBinaryEntries {
		return fmt.Errorf("suspicious entry count in %s: %d (too large)", filename, count)
	}

	log.Debugf("Binary file %s validated: %d entries", filename, count)
	return nil
}

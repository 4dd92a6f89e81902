// Package attachment pulls the first inline or attached image out of a message.
package attachment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/brandon/postbymail/internal/mailbox"
)

var imageSubtypes = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
}

// Extractor writes the first eligible image part of a message to a temp file
type Extractor struct {
	fs      afero.Fs
	tempDir string
	logger  *logrus.Logger
}

// NewExtractor creates an extractor writing into tempDir (the OS temp dir when empty)
func NewExtractor(fs afero.Fs, tempDir string, logger *logrus.Logger) *Extractor {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Extractor{
		fs:      fs,
		tempDir: tempDir,
		logger:  logger,
	}
}

// Eligible reports whether a part is an image attached or inlined in the message
func Eligible(part *imap.BodyStructure) bool {
	if part == nil || !imageSubtypes[strings.ToLower(part.MIMESubType)] {
		return false
	}
	switch strings.ToLower(part.Disposition) {
	case "attachment", "inline":
		return true
	}
	return false
}

// ExtractFirstImage scans the immediate parts of structure and writes the
// first eligible image to a temp file. It returns "" when no part qualifies.
func (e *Extractor) ExtractFirstImage(ctx context.Context, fetcher mailbox.PartFetcher, seqNum uint32, structure *imap.BodyStructure) (string, error) {
	if structure == nil {
		return "", nil
	}

	for i, part := range structure.Parts {
		if !Eligible(part) {
			continue
		}

		path := []int{i + 1}
		raw, err := fetcher.FetchPart(ctx, seqNum, path)
		if err != nil {
			return "", fmt.Errorf("failed to fetch image part %d: %w", i+1, err)
		}

		encoding := "quoted-printable"
		if strings.EqualFold(part.Encoding, "base64") {
			encoding = "base64"
		}

		subtype := strings.ToLower(part.MIMESubType)
		data, err := mailbox.DecodePart(raw, "image/"+subtype, nil, encoding)
		if err != nil {
			return "", fmt.Errorf("failed to decode image part %d: %w", i+1, err)
		}

		if err := e.fs.MkdirAll(e.tempDir, 0700); err != nil {
			return "", fmt.Errorf("failed to create temp directory: %w", err)
		}

		tempPath := filepath.Join(e.tempDir, fmt.Sprintf("img_%s.%s", uuid.NewString(), subtype))
		if err := afero.WriteFile(e.fs, tempPath, data, 0600); err != nil {
			return "", fmt.Errorf("failed to write temp image: %w", err)
		}

		e.logger.WithFields(logrus.Fields{
			"seq":   seqNum,
			"part":  i + 1,
			"path":  tempPath,
			"bytes": len(data),
		}).Debug("Extracted image")
		return tempPath, nil
	}

	return "", nil
}

package mailbox

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/backendutil"
	"github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// MboxSource replays the messages of an mbox file. A message is unseen when
// its Status header lacks the R flag. The file is never modified.
type MboxSource struct {
	path     string
	messages [][]byte
	logger   *logrus.Logger
}

// OpenMbox reads every message of an mbox file into memory
func OpenMbox(fs afero.Fs, path string, logger *logrus.Logger) (*MboxSource, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mbox %s: %w", path, err)
	}
	defer f.Close()

	source := &MboxSource{path: path, logger: logger}

	reader := mbox.NewReader(f)
	for {
		r, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read mbox %s: %w", path, err)
		}

		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read message %d of %s: %w", len(source.messages)+1, path, err)
		}
		source.messages = append(source.messages, raw)
	}

	logger.WithFields(logrus.Fields{
		"path":     path,
		"messages": len(source.messages),
	}).Debug("Loaded mbox")
	return source, nil
}

// ListUnseen parses every message whose Status header has no R flag
func (s *MboxSource) ListUnseen(ctx context.Context) ([]*Message, error) {
	var result []*Message
	for i, raw := range s.messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seqNum := uint32(i + 1)
		header, body, err := splitMessage(raw)
		if err != nil {
			s.logger.WithError(err).WithField("seq", seqNum).Warn("Skipping unparseable message")
			continue
		}
		if strings.Contains(header.Get("Status"), "R") {
			continue
		}

		msg, err := s.toMessage(seqNum, header, body)
		if err != nil {
			s.logger.WithError(err).WithField("seq", seqNum).Warn("Skipping unparseable message")
			continue
		}
		result = append(result, msg)
	}
	return result, nil
}

func (s *MboxSource) toMessage(seqNum uint32, header textproto.Header, body io.Reader) (*Message, error) {
	structure, err := backendutil.FetchBodyStructure(header, body, true)
	if err != nil {
		return nil, fmt.Errorf("failed to build body structure: %w", err)
	}

	mh := mail.Header{Header: message.Header{Header: header}}

	subject, err := mh.Subject()
	if err != nil {
		subject = header.Get("Subject")
	}

	from := header.Get("From")
	if addrs, err := mh.AddressList("From"); err == nil && len(addrs) > 0 {
		from = formatSender(addrs[0].Name, addrs[0].Address)
	}

	text, _ := s.section(seqNum, textPath)
	fallback, _ := s.section(seqNum, fallbackPath)

	return &Message{
		SeqNum:    seqNum,
		From:      from,
		Subject:   subject,
		Body:      decodeBody(structure, text, fallback),
		Structure: structure,
	}, nil
}

// FetchPart returns the raw bytes of a body section
func (s *MboxSource) FetchPart(ctx context.Context, seqNum uint32, path []int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.section(seqNum, path)
}

func (s *MboxSource) section(seqNum uint32, path []int) ([]byte, error) {
	if seqNum < 1 || int(seqNum) > len(s.messages) {
		return nil, fmt.Errorf("no message with sequence number %d in %s", seqNum, s.path)
	}

	header, body, err := splitMessage(s.messages[seqNum-1])
	if err != nil {
		return nil, err
	}

	section := &imap.BodySectionName{BodyPartName: imap.BodyPartName{Path: path}}
	literal, err := backendutil.FetchBodySection(header, body, section)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch section %v of message %d: %w", path, seqNum, err)
	}
	return io.ReadAll(literal)
}

// Close releases the source
func (s *MboxSource) Close() error {
	s.messages = nil
	return nil
}

func splitMessage(raw []byte) (textproto.Header, io.Reader, error) {
	br := bufio.NewReader(bytes.NewReader(raw))
	header, err := textproto.ReadHeader(br)
	if err != nil {
		return textproto.Header{}, nil, fmt.Errorf("failed to read header: %w", err)
	}
	return header, br, nil
}

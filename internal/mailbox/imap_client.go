package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/brandon/postbymail/internal/config"
)

// IMAPClient wraps an IMAP client connection
type IMAPClient struct {
	config *config.MailboxConfig
	client *client.Client
	logger *logrus.Logger
}

// NewIMAPClient creates a new IMAP client (does not connect immediately)
func NewIMAPClient(cfg *config.MailboxConfig, logger *logrus.Logger) *IMAPClient {
	return &IMAPClient{
		config: cfg,
		logger: logger,
	}
}

// Connect establishes a connection to the IMAP server and selects the folder
func (c *IMAPClient) Connect(ctx context.Context) error {
	if c.client != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))
	dialer := &net.Dialer{Timeout: c.config.Timeout}
	tlsConfig := &tls.Config{
		ServerName: c.config.Host,
		MinVersion: tls.VersionTLS12,
	}

	var (
		cl  *client.Client
		err error
	)
	switch c.config.TLS {
	case config.TLSModeSSL:
		cl, err = client.DialWithDialerTLS(dialer, addr, tlsConfig)
	default:
		cl, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrConnection, addr, err)
	}
	cl.Timeout = c.config.Timeout

	if c.config.TLS == config.TLSModeSTARTTLS {
		if err := cl.StartTLS(tlsConfig); err != nil {
			cl.Logout() //nolint:errcheck
			return fmt.Errorf("%w: starttls: %w", ErrConnection, err)
		}
	}

	if err := cl.Login(c.config.Username, c.config.Password); err != nil {
		c.logger.WithError(err).Error("Failed to login to IMAP server")
		cl.Logout() //nolint:errcheck
		return fmt.Errorf("%w: login: %w", ErrConnection, err)
	}

	if _, err := cl.Select(c.config.Folder, false); err != nil {
		cl.Logout() //nolint:errcheck
		return fmt.Errorf("%w: select %s: %w", ErrConnection, c.config.Folder, err)
	}

	c.client = cl
	c.logger.WithFields(logrus.Fields{
		"host":   c.config.Host,
		"folder": c.config.Folder,
		"tls":    c.config.TLS,
	}).Info("Connected to IMAP server")
	return nil
}

// Close closes the IMAP connection
func (c *IMAPClient) Close() error {
	if c.client != nil {
		err := c.client.Logout()
		c.client = nil
		return err
	}
	return nil
}

// ListUnseen fetches envelope, structure and body text of every unseen
// message. Fetching the body sections marks the messages \Seen.
func (c *IMAPClient) ListUnseen(ctx context.Context) ([]*Message, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	ids, err := c.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrConnection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(ids...)

	textSection := &imap.BodySectionName{BodyPartName: imap.BodyPartName{Path: textPath}}
	fallbackSection := &imap.BodySectionName{BodyPartName: imap.BodyPartName{Path: fallbackPath}}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchBodyStructure,
		textSection.FetchItem(),
		fallbackSection.FetchItem(),
	}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.client.Fetch(seqSet, items, messages)
	}()

	var result []*Message
	for msg := range messages {
		result = append(result, c.toMessage(msg, textSection, fallbackSection))
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: fetch: %w", ErrConnection, err)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].SeqNum < result[j].SeqNum })

	c.logger.WithField("count", len(result)).Debug("Fetched unseen messages")
	return result, nil
}

// toMessage converts a fetched IMAP message into a Message
func (c *IMAPClient) toMessage(msg *imap.Message, textSection, fallbackSection *imap.BodySectionName) *Message {
	m := &Message{
		SeqNum:    msg.SeqNum,
		Structure: msg.BodyStructure,
	}

	if msg.Envelope != nil {
		m.Subject = msg.Envelope.Subject
		if len(msg.Envelope.From) > 0 {
			from := msg.Envelope.From[0]
			m.From = formatSender(from.PersonalName, from.Address())
		}
	}

	text := c.readLiteral(msg.GetBody(textSection))
	fallback := c.readLiteral(msg.GetBody(fallbackSection))
	if m.Structure != nil {
		m.Body = decodeBody(m.Structure, text, fallback)
	}

	return m
}

// FetchPart fetches one body section of a message
func (c *IMAPClient) FetchPart(ctx context.Context, seqNum uint32, path []int) ([]byte, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNum)

	section := &imap.BodySectionName{BodyPartName: imap.BodyPartName{Path: path}}
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.client.Fetch(seqSet, items, messages)
	}()

	var data []byte
	for msg := range messages {
		data = c.readLiteral(msg.GetBody(section))
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch section %v of message %d: %w", path, seqNum, err)
	}

	return data, nil
}

// readLiteral reads content from an IMAP literal and returns bytes
func (c *IMAPClient) readLiteral(literal imap.Literal) []byte {
	if literal == nil {
		return nil
	}
	data, err := io.ReadAll(literal)
	if err != nil {
		c.logger.WithError(err).Error("Error reading literal")
	}
	return data
}

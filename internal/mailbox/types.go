// Package mailbox lists unseen mail and fetches MIME sections from an IMAP
// server or an mbox file.
package mailbox

import (
	"context"
	"errors"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message/charset"
)

// ErrConnection marks failures to reach, authenticate with or list the mailbox
var ErrConnection = errors.New("mailbox connection failed")

func init() {
	// Decode non-UTF-8 encoded words in envelope subjects and names.
	imap.CharsetReader = charset.Reader
}

// Message is an unseen mail message
type Message struct {
	SeqNum    uint32
	From      string
	Subject   string
	Body      string
	Structure *imap.BodyStructure
}

// PartFetcher retrieves the raw, still transfer-encoded bytes of a MIME section
type PartFetcher interface {
	FetchPart(ctx context.Context, seqNum uint32, path []int) ([]byte, error)
}

// Source is a mailbox that can list unseen messages
type Source interface {
	PartFetcher
	ListUnseen(ctx context.Context) ([]*Message, error)
	Close() error
}

var (
	textPath     = []int{1, 1}
	fallbackPath = []int{1}
)

// formatSender renders an address as "Name <addr>" or the bare address
func formatSender(name, address string) string {
	if name == "" {
		return address
	}
	return name + " <" + address + ">"
}

package ingest

import (
	"fmt"
	"io"
)

// Reporter writes one status line per processed message
type Reporter struct {
	w io.Writer
}

// NewReporter creates a reporter writing to w
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

func (r *Reporter) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.w, format+"\n", args...)
}

func (r *Reporter) ConnectionFailed(err error) {
	r.printf("[ERROR] Cannot connect to IMAP: %v", err)
}

func (r *Reporter) ListFailed(err error) {
	r.printf("[ERROR] Cannot read mailbox: %v", err)
}

func (r *Reporter) NoNewMail() {
	r.printf("[INFO] No new emails.")
}

func (r *Reporter) SenderNotAllowed(from string) {
	r.printf("[SKIP] Sender not allowed: %s", from)
}

func (r *Reporter) AlreadyExists(title string) {
	r.printf("[SKIP] Already exists: %s", title)
}

func (r *Reporter) LookupFailed(err error) {
	r.printf("[ERROR] Failed to check title: %v", err)
}

func (r *Reporter) Posted(title string) {
	r.printf("[POSTED] %s", title)
}

func (r *Reporter) StoreFailed(err error) {
	r.printf("[ERROR] Failed to store: %v", err)
}

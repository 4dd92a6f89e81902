// Package ingest runs one sweep over the unseen messages of a mailbox and
// publishes each authorized, new message as an article.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/brandon/postbymail/internal/config"
	"github.com/brandon/postbymail/internal/imagestore"
	"github.com/brandon/postbymail/internal/mailbox"
	"github.com/brandon/postbymail/internal/transform"
	"github.com/brandon/postbymail/pkg/types"
)

// ContentStore persists articles
type ContentStore interface {
	TitleExists(ctx context.Context, title string) (bool, error)
	Publish(ctx context.Context, article *types.Article) (int64, error)
}

// ImageExtractor writes the first image of a message to a temp file
type ImageExtractor interface {
	ExtractFirstImage(ctx context.Context, fetcher mailbox.PartFetcher, seqNum uint32, structure *imap.BodyStructure) (string, error)
}

// ImageStorer moves a temp image into public storage
type ImageStorer interface {
	Store(tempPath string) (imagestore.Asset, error)
}

// Outcome is the terminal state of one message
type Outcome int

const (
	Published Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Published:
		return "published"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Summary counts the outcomes of a run
type Summary struct {
	Posted  int `json:"posted"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Total returns the number of processed messages
func (s Summary) Total() int {
	return s.Posted + s.Skipped + s.Failed
}

// Options wires the orchestrator's collaborators
type Options struct {
	Source    mailbox.Source
	Store     ContentStore
	Extractor ImageExtractor
	Images    ImageStorer
	Fs        afero.Fs
	Reporter  *Reporter
	AllowList AllowList
	Publish   config.PublishConfig
	Now       func() time.Time
	Logger    *logrus.Logger
}

// Orchestrator drives a single ingestion sweep
type Orchestrator struct {
	source    mailbox.Source
	store     ContentStore
	extractor ImageExtractor
	images    ImageStorer
	fs        afero.Fs
	reporter  *Reporter
	allow     AllowList
	publish   config.PublishConfig
	now       func() time.Time
	logger    *logrus.Logger
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		source:    opts.Source,
		store:     opts.Store,
		extractor: opts.Extractor,
		images:    opts.Images,
		fs:        opts.Fs,
		reporter:  opts.Reporter,
		allow:     opts.AllowList,
		publish:   opts.Publish,
		now:       now,
		logger:    opts.Logger,
	}
}

// Run processes every unseen message once. Only a failure to reach the
// mailbox or a cancelled context ends the run early.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	messages, err := o.source.ListUnseen(ctx)
	if err != nil {
		switch {
		case errors.Is(err, mailbox.ErrConnection):
			o.reporter.ConnectionFailed(err)
		case ctx.Err() != nil:
		default:
			o.reporter.ListFailed(err)
		}
		return summary, fmt.Errorf("failed to list unseen messages: %w", err)
	}

	if len(messages) == 0 {
		o.reporter.NoNewMail()
		return summary, nil
	}

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		switch o.process(ctx, msg) {
		case Published:
			summary.Posted++
		case Skipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	o.logger.WithFields(logrus.Fields{
		"posted":  summary.Posted,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	}).Info("Ingestion run complete")

	return summary, nil
}

func (o *Orchestrator) process(ctx context.Context, msg *mailbox.Message) Outcome {
	title := strings.TrimSpace(msg.Subject)
	if title == "" {
		title = DefaultTitle
	}
	log := o.logger.WithFields(logrus.Fields{
		"seq":   msg.SeqNum,
		"from":  msg.From,
		"title": title,
	})

	if !o.allow.Allowed(msg.From) {
		o.reporter.SenderNotAllowed(msg.From)
		log.Debug("Sender not allowed")
		return Skipped
	}

	exists, err := o.store.TitleExists(ctx, title)
	if err != nil {
		o.reporter.LookupFailed(err)
		log.WithError(err).Error("Duplicate check failed")
		return Failed
	}
	if exists {
		o.reporter.AlreadyExists(title)
		log.Debug("Article already exists")
		return Skipped
	}

	intro, full := transform.Transform(msg.Body)
	images := o.imageStage(ctx, msg, log)

	now := o.now().UTC()
	article := &types.Article{
		Title:     title,
		Alias:     Slug(title, now),
		IntroText: intro,
		FullText:  full,
		CatID:     o.publish.CategoryID,
		CreatedBy: o.publish.AuthorID,
		Created:   now,
		PublishUp: now,
		State:     o.publish.State,
		Language:  o.publish.Language,
		Access:    o.publish.Access,
		Images:    images,
		URLs:      EmptyJSON,
		Attribs:   EmptyJSON,
		Metadata:  EmptyJSON,
		Version:   1,
	}

	id, err := o.store.Publish(ctx, article)
	if err != nil {
		o.reporter.StoreFailed(err)
		log.WithError(err).Error("Failed to store article")
		return Failed
	}

	o.reporter.Posted(title)
	log.WithField("id", id).Info("Published article")
	return Published
}

// imageStage extracts and stores the lead image and returns the image
// payload. Failures only cost the image; the temp file never outlives it.
func (o *Orchestrator) imageStage(ctx context.Context, msg *mailbox.Message, log *logrus.Entry) string {
	tempPath, err := o.extractor.ExtractFirstImage(ctx, o.source, msg.SeqNum, msg.Structure)
	if err != nil {
		log.WithError(err).Warn("Image extraction failed")
		return EmptyJSON
	}
	if tempPath == "" {
		return EmptyJSON
	}
	defer o.removeTemp(tempPath, log)

	asset, err := o.images.Store(tempPath)
	if err != nil {
		log.WithError(err).Warn("Image storage failed")
		return EmptyJSON
	}

	payload, err := ImagePayload(asset)
	if err != nil {
		log.WithError(err).Warn("Image payload failed")
		return EmptyJSON
	}

	log.WithField("image", asset.RelPath).Debug("Stored lead image")
	return payload
}

func (o *Orchestrator) removeTemp(tempPath string, log *logrus.Entry) {
	if err := o.fs.Remove(tempPath); err != nil {
		log.WithError(err).WithField("path", tempPath).Warn("Failed to remove temp image")
	}
}

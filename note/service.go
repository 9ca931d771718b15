package note

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/voicenotes/errors"
	"github.com/kbukum/voicenotes/llm"
	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/observability"
	"github.com/kbukum/voicenotes/validation"
)

// TagCache stores generated tags keyed by content hash.
type TagCache interface {
	Load(ctx context.Context, key string) (*[]string, error)
	Save(ctx context.Context, key string, tags *[]string, ttl time.Duration) error
}

// ObjectStore receives exported notes.
type ObjectStore interface {
	Upload(ctx context.Context, path string, r io.Reader) error
	URL(ctx context.Context, path string) (string, error)
}

// Service is the entry point used by the HTTP API and the MCP tools.
type Service struct {
	repo   Repository
	llm    llm.Provider
	cache  TagCache
	ttl    time.Duration
	store  ObjectStore
	events Publisher
	log    *logger.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLLM enables tag generation and summaries.
func WithLLM(p llm.Provider) Option {
	return func(s *Service) { s.llm = p }
}

// WithTagCache caches generated tags for ttl.
func WithTagCache(c TagCache, ttl time.Duration) Option {
	return func(s *Service) { s.cache, s.ttl = c, ttl }
}

// WithObjectStore enables ExportNote.
func WithObjectStore(st ObjectStore) Option {
	return func(s *Service) { s.store = st }
}

// WithPublisher sends change events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		events: nopPublisher{},
		log:    logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("note")
	return s
}

func (s *Service) List(ctx context.Context, q Query) ([]Note, error) {
	return s.repo.List(ctx, q)
}

func (s *Service) Get(ctx context.Context, id string) (*Note, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (n *Note, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanNoteCreate)
	defer func() { observability.EndSpan(span, err) }()

	in = cleanInput(in)
	if err := validation.Validate(in); err != nil {
		return nil, err
	}
	n, err = s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String(observability.AttrNoteID, n.ID))
	s.log.WithContext(ctx).Info("Note created", logger.Fields("note_id", n.ID))
	s.publish(ctx, EventCreated, n.ID, n)
	return n, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (n *Note, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanNoteUpdate,
		attribute.String(observability.AttrNoteID, id))
	defer func() { observability.EndSpan(span, err) }()

	in = cleanInput(in)
	if err := validation.Validate(in); err != nil {
		return nil, err
	}
	n, err = s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Info("Note updated", logger.Fields("note_id", id))
	s.publish(ctx, EventUpdated, id, n)
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanNoteDelete,
		attribute.String(observability.AttrNoteID, id))
	defer func() { observability.EndSpan(span, err) }()

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NoteNotFound(id)
	}
	s.log.WithContext(ctx).Info("Note deleted", logger.Fields("note_id", id))
	s.publish(ctx, EventDeleted, id, nil)
	return nil
}

// GenerateTags asks the model for tags describing content.
func (s *Service) GenerateTags(ctx context.Context, content string) (tags []string, err error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.EmptyContent()
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanGenerateTags)
	defer func() { observability.EndSpan(span, err) }()

	key := contentKey(content)
	if cached := s.cachedTags(ctx, key); cached != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	if s.llm == nil {
		return nil, errors.TagGenerationFailed(errors.ServiceUnavailable("llm"))
	}

	out, _, err := llm.Generate[tagsOutput](ctx, s.llm, llm.UserPrompt(tagPrompt(content)))
	if err != nil {
		s.log.WithContext(ctx).Warn("Tag generation failed", logger.ErrorFields("generate_tags", err))
		return nil, errors.TagGenerationFailed(err)
	}
	tags = NormalizeTags(out.Tags)
	s.storeTags(ctx, key, tags)
	return tags, nil
}

// ApplyGeneratedTags merges generated tags into the stored note.
func (s *Service) ApplyGeneratedTags(ctx context.Context, id string) (*Note, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	generated, err := s.GenerateTags(ctx, n.Content)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, id, Input{
		Title:   n.Title,
		Content: n.Content,
		Tags:    MergeTags(n.Tags, generated),
	})
}

// Summarize summarizes the notes with the given ids, or every note when ids
// is empty.
func (s *Service) Summarize(ctx context.Context, ids []string) (summary string, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanSummarize,
		attribute.Int("note.count", len(ids)))
	defer func() { observability.EndSpan(span, err) }()

	notes, err := s.collect(ctx, ids)
	if err != nil {
		return "", err
	}
	if len(notes) == 0 {
		return "", errors.EmptyContent()
	}
	if s.llm == nil {
		return "", errors.SummaryFailed(errors.ServiceUnavailable("llm"))
	}

	out, _, err := llm.Generate[summaryOutput](ctx, s.llm, llm.UserPrompt(summaryPrompt(notes)))
	if err != nil {
		s.log.WithContext(ctx).Warn("Summary failed", logger.ErrorFields("summarize", err))
		return "", errors.SummaryFailed(err)
	}
	return strings.TrimSpace(out.Summary), nil
}

// ExportPath is the object key a note is exported to.
func ExportPath(id string) string { return "notes/" + id + ".md" }

// ExportNote uploads the note as Markdown and returns its URL.
func (s *Service) ExportNote(ctx context.Context, id string) (url string, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanExport,
		attribute.String(observability.AttrNoteID, id))
	defer func() { observability.EndSpan(span, err) }()

	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if s.store == nil {
		return "", errors.ExportFailed(errors.ServiceUnavailable("storage"))
	}
	path := ExportPath(id)
	if err := s.store.Upload(ctx, path, strings.NewReader(Markdown(n))); err != nil {
		return "", errors.ExportFailed(err)
	}
	url, err = s.store.URL(ctx, path)
	if err != nil {
		return "", errors.ExportFailed(err)
	}
	s.log.WithContext(ctx).Info("Note exported", logger.Fields("note_id", id, "path", path))
	return url, nil
}

func (s *Service) collect(ctx context.Context, ids []string) ([]Note, error) {
	if len(ids) == 0 {
		return s.repo.List(ctx, Query{})
	}
	notes := make([]Note, 0, len(ids))
	for _, id := range ids {
		n, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, nil
}

func (s *Service) cachedTags(ctx context.Context, key string) []string {
	if s.cache == nil {
		return nil
	}
	tags, err := s.cache.Load(ctx, key)
	if err != nil {
		s.log.WithContext(ctx).Warn("Tag cache read failed", logger.ErrorFields("tag_cache_load", err))
		return nil
	}
	if tags == nil {
		return nil
	}
	return *tags
}

func (s *Service) storeTags(ctx context.Context, key string, tags []string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, key, &tags, s.ttl); err != nil {
		s.log.WithContext(ctx).Warn("Tag cache write failed", logger.ErrorFields("tag_cache_save", err))
	}
}

func (s *Service) publish(ctx context.Context, typ EventType, id string, n *Note) {
	ev := ChangeEvent{Type: typ, NoteID: id, Note: n, OccurredAt: s.now()}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WithContext(ctx).Warn("Note event not delivered",
			logger.Fields("event", string(typ), "note_id", id, "error", err.Error()))
	}
}

func cleanInput(in Input) Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Tags = NormalizeTags(in.Tags)
	return in
}

func contentKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "tags:" + hex.EncodeToString(sum[:])
}

package note

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/voicenotes/errors"
)

// MemoryRepository keeps notes in process memory, newest insert first.
type MemoryRepository struct {
	mu    sync.RWMutex
	notes []*Note
	now   func() time.Time
	newID func() string
	seed  bool
}

var _ Repository = (*MemoryRepository)(nil)

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(r *MemoryRepository) { r.now = now }
}

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(gen func() string) MemoryOption {
	return func(r *MemoryRepository) { r.newID = gen }
}

// WithSeed loads the sample notes.
func WithSeed() MemoryOption {
	return func(r *MemoryRepository) { r.seed = true }
}

func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	r := &MemoryRepository{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.seed {
		r.notes = SampleNotes(r.now())
	}
	return r
}

// SampleNotes returns the three demo notes relative to now.
func SampleNotes(now time.Time) []*Note {
	twoDays := now.Add(-48 * time.Hour)
	oneDay := now.Add(-24 * time.Hour)
	return []*Note{
		{
			ID:    "1",
			Title: "Meeting Notes",
			Content: "Discussed Q3 goals and roadmap. Key takeaways: focus on user acquisition and improve " +
				"onboarding flow. Action items assigned to John and Jane.",
			Tags:      []string{"meeting", "q3", "roadmap"},
			CreatedAt: twoDays,
			UpdatedAt: twoDays,
		},
		{
			ID:    "2",
			Title: "Brainstorming Ideas",
			Content: "New feature ideas for the app: dark mode, collaborative editing, and voice commands for " +
				"navigation. Need to prioritize and create mockups.",
			Tags:      []string{"ideas", "features", "brainstorming"},
			CreatedAt: oneDay,
			UpdatedAt: oneDay,
		},
		{
			ID:        "3",
			Title:     "Grocery List",
			Content:   "Milk, bread, eggs, cheese, apples, bananas, chicken breast.",
			Tags:      []string{"personal", "shopping"},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (r *MemoryRepository) List(_ context.Context, q Query) ([]Note, error) {
	r.mu.RLock()
	out := make([]Note, 0, len(r.notes))
	for _, n := range r.notes {
		if n.Matches(q) {
			out = append(out, *n.Clone())
		}
	}
	r.mu.RUnlock()
	SortByUpdatedDesc(out)
	return out, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.index(id); i >= 0 {
		return r.notes[i].Clone(), nil
	}
	return nil, errors.NoteNotFound(id)
}

func (r *MemoryRepository) Create(_ context.Context, in Input) (*Note, error) {
	now := r.now()
	n := &Note{
		ID:        r.newID(),
		Title:     in.Title,
		Content:   in.Content,
		Tags:      NormalizeTags(in.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.mu.Lock()
	r.notes = slices.Insert(r.notes, 0, n)
	r.mu.Unlock()
	return n.Clone(), nil
}

func (r *MemoryRepository) Update(_ context.Context, id string, in Input) (*Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, errors.NoteNotFound(id)
	}
	n := r.notes[i]
	n.Title = in.Title
	n.Content = in.Content
	n.Tags = NormalizeTags(in.Tags)
	n.UpdatedAt = r.now()
	return n.Clone(), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return false, nil
	}
	r.notes = slices.Delete(r.notes, i, i+1)
	return true, nil
}

// index must be called with mu held.
func (r *MemoryRepository) index(id string) int {
	return slices.IndexFunc(r.notes, func(n *Note) bool { return n.ID == id })
}

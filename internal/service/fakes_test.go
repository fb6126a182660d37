package service

import (
	"context"
	"errors"
	"sync"

	"bottarot-be/internal/entity"
	"bottarot-be/internal/repository/specification"
	"bottarot-be/pkg/events"

	"github.com/google/uuid"
)

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]entity.Profile
	findErr  error
	created  int
	updated  int
}

func newFakeProfileRepo(profiles ...entity.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: map[uuid.UUID]entity.Profile{}}
	for _, p := range profiles {
		r.profiles[p.Id] = p
	}
	return r
}

func (r *fakeProfileRepo) Create(_ context.Context, p *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
	r.profiles[p.Id] = *p
	return nil
}

func (r *fakeProfileRepo) Update(_ context.Context, p *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated++
	r.profiles[p.Id] = *p
	return nil
}

func (r *fakeProfileRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			if p, ok := r.profiles[byID.ID]; ok {
				return &p, nil
			}
			return nil, nil
		}
	}
	return nil, errors.New("unsupported query")
}

func (r *fakeProfileRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.profiles[id]
	return ok, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type memLanguage struct {
	lang   string
	set    bool
	writes int
}

func (m *memLanguage) Language(context.Context) (string, bool) { return m.lang, m.set }

func (m *memLanguage) SetLanguage(_ context.Context, lang string) error {
	m.lang, m.set = lang, true
	m.writes++
	return nil
}

type markerFunc func(uuid.UUID)

func (f markerFunc) MarkRegistered(id uuid.UUID) { f(id) }

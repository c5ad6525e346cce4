package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pablosanchi/consultation-backend/internal/domain"
	"github.com/pablosanchi/consultation-backend/internal/domain/submission"
)

// fakeSubmissionRepo is an in-memory submission.Repository with the same
// conditional-update semantics as the real one, so the claim race and the
// doctor_id guards behave like they do against Postgres.
type fakeSubmissionRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*submission.Submission

	failSetPrescription   error
	failClearPrescription error
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{subs: make(map[uuid.UUID]*submission.Submission)}
}

func (r *fakeSubmissionRepo) clone(s *submission.Submission) *submission.Submission {
	cp := *s
	if s.DoctorID != nil {
		id := *s.DoctorID
		cp.DoctorID = &id
	}
	if s.Prescription != nil {
		k := *s.Prescription
		cp.Prescription = &k
	}
	return &cp
}

func (r *fakeSubmissionRepo) Create(_ context.Context, s *submission.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.State == "" {
		s.State = submission.StateInProgress
	}
	r.subs[s.ID] = r.clone(s)
	return nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id uuid.UUID) (*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, submission.ErrSubmissionNotFound
	}
	return r.clone(s), nil
}

func (r *fakeSubmissionRepo) Claim(_ context.Context, id, doctorID uuid.UUID) (*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, submission.ErrSubmissionNotFound
	}
	if s.DoctorID != nil || s.State != submission.StateInProgress {
		return nil, submission.ErrAlreadyClaimed
	}
	s.DoctorID = &doctorID
	s.State = submission.StateDone
	return r.clone(s), nil
}

func (r *fakeSubmissionRepo) SetPrescription(_ context.Context, id, doctorID uuid.UUID, key string) error {
	if r.failSetPrescription != nil {
		return r.failSetPrescription
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok || s.DoctorID == nil || *s.DoctorID != doctorID {
		return submission.ErrSubmissionNotFound
	}
	s.Prescription = &key
	s.State = submission.StateDone
	return nil
}

func (r *fakeSubmissionRepo) ClearPrescription(_ context.Context, id, doctorID uuid.UUID) error {
	if r.failClearPrescription != nil {
		return r.failClearPrescription
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok || s.DoctorID == nil || *s.DoctorID != doctorID {
		return submission.ErrSubmissionNotFound
	}
	s.Prescription = nil
	return nil
}

func (r *fakeSubmissionRepo) List(_ context.Context, q *submission.ListSubmissionsQuery) (*submission.PagedSubmissions, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var subs []*submission.Submission
	for _, s := range r.subs {
		if q.PatientID != nil && s.PatientID != *q.PatientID {
			continue
		}
		if q.DoctorID != nil && (s.DoctorID == nil || *s.DoctorID != *q.DoctorID) {
			continue
		}
		if q.Unclaimed && s.DoctorID != nil {
			continue
		}
		if q.State != nil && s.State != *q.State {
			continue
		}
		subs = append(subs, r.clone(s))
	}
	return &submission.PagedSubmissions{
		Submissions: subs,
		TotalCount:  int64(len(subs)),
		Page:        q.Page,
		PageSize:    q.PageSize,
		TotalPages:  1,
	}, nil
}

func (r *fakeSubmissionRepo) HasPatientSubmissionWithDoctor(_ context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.PatientID == patientID && s.DoctorID != nil && *s.DoctorID == doctorID {
			return true, nil
		}
	}
	return false, nil
}

// fakeUserRepo is an in-memory UserRepository keyed by email.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetDoctorInformation(_ context.Context, userID uuid.UUID) (*domain.DoctorInformation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || u.DoctorInformation == nil {
		return nil, domain.ErrDoctorNotFound
	}
	return u.DoctorInformation, nil
}

func (r *fakeUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// mockObjectStore records calls and can be told to fail.
type mockObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string

	putErr    error
	deleteErr error
	urlErr    error
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{objects: make(map[string][]byte)}
}

func (m *mockObjectStore) Put(_ context.Context, key string, data []byte, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *mockObjectStore) TemporaryURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if m.urlErr != nil {
		return "", m.urlErr
	}
	return "https://storage.example/" + key, nil
}

func (m *mockObjectStore) Delete(_ context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *mockObjectStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// mockOutbox records enqueued events.
type mockOutbox struct {
	mu     sync.Mutex
	events []*domain.OutboxEvent
	err    error
}

func (m *mockOutbox) Enqueue(_ context.Context, event *domain.OutboxEvent) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockOutbox) ofType(t domain.EventType) []*domain.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

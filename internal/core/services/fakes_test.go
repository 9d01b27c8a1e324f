package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/adapters/persistence/repositories"
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/pkg/pagination"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var errStoreDown = errors.New("store unavailable")

// ------------------------------------------------------------
// users
// ------------------------------------------------------------

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
	// createErrs are returned by successive Create calls before succeeding
	createErrs []error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[uint]*models.User{}}
}

func (r *fakeUserRepo) add(u *models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = r.nextID
	r.nextID++
	cp := *u
	r.users[u.ID] = &cp
	return u
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		r.mu.Unlock()
		return err
	}
	for _, u := range r.users {
		if u.Email == user.Email || u.LecturerID == user.LecturerID {
			r.mu.Unlock()
			return gorm.ErrDuplicatedKey
		}
	}
	r.mu.Unlock()
	r.add(user)
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Role != all[j].Role {
			return all[i].Role < all[j].Role
		}
		return all[i].LastName < all[j].LastName
	})
	total := int64(len(all))
	if offset >= len(all) {
		return []*models.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *fakeUserRepo) ExistsByLecturerID(ctx context.Context, lecturerID string) (bool, error) {
	_, err := r.find(func(u *models.User) bool { return u.LecturerID == lecturerID })
	return err == nil, nil
}

func (r *fakeUserRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

// ------------------------------------------------------------
// claims and events
// ------------------------------------------------------------

type fakeClaimRepo struct {
	mu        sync.Mutex
	nextID    uint
	claims    map[uint]*models.Claim
	events    []*models.ClaimEvent
	createErr error
	// beforeWrite runs inside Transition/DeleteInStatus before the
	// compare-and-set, to simulate a concurrent writer
	beforeWrite func(c *models.Claim)
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{nextID: 1, claims: map[uint]*models.Claim{}}
}

func (r *fakeClaimRepo) seed(c *models.Claim) *models.Claim {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.nextID
	r.nextID++
	cp := *c
	r.claims[c.ID] = &cp
	return c
}

func (r *fakeClaimRepo) Create(ctx context.Context, claim *models.Claim, event *models.ClaimEvent) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.seed(claim)
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ClaimID = claim.ID
	r.events = append(r.events, event)
	return nil
}

func (r *fakeClaimRepo) GetByID(ctx context.Context, id uint) (*models.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeClaimRepo) List(ctx context.Context, filter repositories.ClaimFilter, page *pagination.Params) ([]*models.Claim, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Claim
	for _, c := range r.claims {
		if filter.LecturerID != "" && c.LecturerID != filter.LecturerID {
			continue
		}
		if filter.Month != "" && c.Month != filter.Month {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, c.Status) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	if page != nil {
		if page.Offset >= len(out) {
			return []*models.Claim{}, total, nil
		}
		end := page.Offset + page.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[page.Offset:end]
	}
	return out, total, nil
}

func (r *fakeClaimRepo) Transition(ctx context.Context, id uint, from, to domain.ClaimStatus, actionBy string, at time.Time, event *models.ClaimEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if r.beforeWrite != nil {
		r.beforeWrite(c)
	}
	if c.Status != from {
		return repositories.ErrStatusChanged
	}
	c.Status = to
	c.ActionBy = actionBy
	c.ActionDate = &at
	event.ClaimID = id
	r.events = append(r.events, event)
	return nil
}

func (r *fakeClaimRepo) DeleteInStatus(ctx context.Context, id uint, status domain.ClaimStatus, event *models.ClaimEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if r.beforeWrite != nil {
		r.beforeWrite(c)
	}
	if c.Status != status {
		return repositories.ErrStatusChanged
	}
	delete(r.claims, id)
	event.ClaimID = id
	r.events = append(r.events, event)
	return nil
}

func (r *fakeClaimRepo) ListDocumentPaths(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.claims {
		if c.DocumentPath != "" {
			out = append(out, c.DocumentPath)
		}
	}
	return out, nil
}

func (r *fakeClaimRepo) ListByClaimID(ctx context.Context, claimID uint) ([]*models.ClaimEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ClaimEvent
	for _, e := range r.events {
		if e.ClaimID == claimID {
			out = append(out, e)
		}
	}
	return out, nil
}

func containsStatus(list []domain.ClaimStatus, s domain.ClaimStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ------------------------------------------------------------
// documents
// ------------------------------------------------------------

type fakeDocs struct {
	mu      sync.Mutex
	files   map[string][]byte
	mod     map[string]time.Time
	seq     int
	saveErr error
	removed []string
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{files: map[string][]byte{}, mod: map[string]time.Time{}}
}

func (d *fakeDocs) Save(ctx context.Context, originalName string, content io.Reader) (string, error) {
	if d.saveErr != nil {
		return "", d.saveErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	ref := fmt.Sprintf("doc%d_%s", d.seq, originalName)
	d.files[ref] = data
	d.mod[ref] = time.Now().Add(-48 * time.Hour)
	return ref, nil
}

func (d *fakeDocs) Open(ref string) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.files[ref]
	if !ok {
		return nil, errors.New("no such document")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (d *fakeDocs) Remove(ref string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, ref)
	d.removed = append(d.removed, ref)
	return nil
}

func (d *fakeDocs) List() ([]StoredDocument, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]StoredDocument, 0, len(d.files))
	for ref, data := range d.files {
		out = append(out, StoredDocument{Ref: ref, Size: int64(len(data)), ModTime: d.mod[ref]})
	}
	return out, nil
}

// ------------------------------------------------------------
// sessions
// ------------------------------------------------------------

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	touched  int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*domain.Session{}}
}

func (s *fakeSessions) Create(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *fakeSessions) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *fakeSessions) Touch(ctx context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched++
	return nil
}

func (s *fakeSessions) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// ------------------------------------------------------------
// fixtures
// ------------------------------------------------------------

func lecturer(first, last, id string, rate int64) *models.User {
	return &models.User{
		FirstName:  first,
		LastName:   last,
		Email:      strings.ToLower(fmt.Sprintf("%s.%s@uni.test", first, last)),
		Role:       domain.RoleLecturer,
		HourlyRate: decimal.NewFromInt(rate),
		LecturerID: id,
		IsActive:   true,
	}
}

func actorFor(u *models.User) Actor {
	return Actor{
		UserID:     u.ID,
		Name:       u.FullName(),
		Role:       u.Role,
		LecturerID: u.LecturerID,
		IPAddress:  "127.0.0.1",
	}
}

func staff(role domain.Role) Actor {
	return Actor{UserID: 900, Name: string(role) + " User", Role: role, LecturerID: "ST" + string(role)}
}

// Package memory implementa los repositorios de federación en memoria.
// Pensado para tests y desarrollo local; no persiste entre reinicios.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
)

type pairKey struct{ serviceID, userID string }

// Store guarda todo el estado bajo un único mutex.
type Store struct {
	mu sync.RWMutex

	services map[string]*repository.Service // por id
	users    map[string]*repository.User    // por id
	emails   map[string]string              // email → user id
	roles    map[string]string              // id → name
	apps     map[string]string              // id → name
	groups   map[string]string              // role id → group email
	userApps map[string]map[string]string   // user id → app id → role id
	svcRoles map[string]map[string]string   // service id → app id → role id
	tokens   map[pairKey]*repository.TokenMap
	heroku   map[string]string // heroku user id → user id
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		services: map[string]*repository.Service{},
		users:    map[string]*repository.User{},
		emails:   map[string]string{},
		roles:    map[string]string{},
		apps:     map[string]string{},
		groups:   map[string]string{},
		userApps: map[string]map[string]string{},
		svcRoles: map[string]map[string]string{},
		tokens:   map[pairKey]*repository.TokenMap{},
		heroku:   map[string]string{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) Services() repository.ServiceRepository  { return serviceRepo{s} }
func (s *Store) Users() repository.UserRepository        { return userRepo{s} }
func (s *Store) Roles() repository.RoleRepository        { return roleRepo{s} }
func (s *Store) Tokens() repository.TokenMapRepository   { return tokenRepo{s} }
func (s *Store) Heroku() repository.HerokuUserRepository { return herokuRepo{s} }

// ─── Services ───

type serviceRepo struct{ s *Store }

func (r serviceRepo) GetByName(_ context.Context, name string) (*repository.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, svc := range r.s.services {
		if svc.Name == name {
			cp := *svc
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r serviceRepo) GetByID(_ context.Context, id string) (*repository.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	svc, ok := r.s.services[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *svc
	return &cp, nil
}

func (r serviceRepo) List(context.Context) ([]repository.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]repository.Service, 0, len(r.s.services))
	for _, svc := range r.s.services {
		out = append(out, *svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r serviceRepo) UpsertByName(_ context.Context, in *repository.Service) (*repository.Service, error) {
	if in == nil || in.Name == "" || in.Provider == "" {
		return nil, repository.ErrInvalidInput
	}
	in.Normalize()
	if !in.Kind.IsValid() {
		return nil, repository.ErrInvalidInput
	}
	if in.SSOSecretType == "" {
		in.SSOSecretType = types.SecretString
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	cp := *in
	cp.UpdatedAt = now
	for id, existing := range r.s.services {
		if existing.Name == in.Name {
			cp.ID = id
			cp.CreatedAt = existing.CreatedAt
			r.s.services[id] = &cp
			out := cp
			return &out, nil
		}
	}
	cp.ID = uuid.NewString()
	cp.CreatedAt = now
	r.s.services[cp.ID] = &cp
	out := cp
	return &out, nil
}

// ─── Users ───

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id string) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emails[strings.TrimSpace(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r.s.users[id]
	return &cp, nil
}

func (r userRepo) Create(_ context.Context, u *repository.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.createUserLocked(u)
}

func (s *Store) createUserLocked(u *repository.User) error {
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return repository.ErrInvalidInput
	}
	if _, dup := s.emails[u.Email]; dup {
		return repository.ErrConflict
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Username == "" {
		u.Username = u.Email
	}
	u.CreatedAt = time.Now().UTC()
	cp := *u
	s.users[u.ID] = &cp
	s.emails[u.Email] = u.ID
	return nil
}

func (r userRepo) RecordLogin(_ context.Context, userID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	t := at.UTC()
	u.LastLoginDate = &t
	u.ConfirmCode = nil
	return nil
}

func (r userRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil
	}
	delete(r.s.emails, u.Email)
	delete(r.s.users, id)
	delete(r.s.userApps, id)
	for k := range r.s.tokens {
		if k.userID == id {
			delete(r.s.tokens, k)
		}
	}
	for hid, uid := range r.s.heroku {
		if uid == id {
			delete(r.s.heroku, hid)
		}
	}
	return nil
}

// ─── Roles ───

type roleRepo struct{ s *Store }

func (r roleRepo) FindRoleByGroup(_ context.Context, groupEmail string) (string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := strings.ToLower(strings.TrimSpace(groupEmail))
	var match []string
	for roleID, g := range r.s.groups {
		if strings.ToLower(g) == want {
			match = append(match, roleID)
		}
	}
	if len(match) == 0 {
		return "", repository.ErrNotFound
	}
	sort.Strings(match)
	return match[0], nil
}

func (r roleRepo) UpsertGroupMapping(_ context.Context, m repository.RoleGroupMapping) error {
	if m.RoleID == "" || strings.TrimSpace(m.GroupEmail) == "" {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.groups[m.RoleID] = strings.TrimSpace(m.GroupEmail)
	return nil
}

func (r roleRepo) ReplaceUserRoles(_ context.Context, userID, roleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.userApps[userID] = map[string]string{}
	r.s.assignAllLocked(userID, roleID)
	return nil
}

func (r roleRepo) AssignRoleAllApps(_ context.Context, userID, roleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.assignAllLocked(userID, roleID)
	return nil
}

func (s *Store) assignAllLocked(userID, roleID string) {
	m := s.userApps[userID]
	if m == nil {
		m = map[string]string{}
		s.userApps[userID] = m
	}
	for appID := range s.apps {
		m[appID] = roleID
	}
}

func (r roleRepo) ApplyServiceRoleMap(_ context.Context, userID, serviceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sm := r.s.svcRoles[serviceID]
	if len(sm) == 0 {
		return nil
	}
	m := make(map[string]string, len(sm))
	for appID, roleID := range sm {
		m[appID] = roleID
	}
	r.s.userApps[userID] = m
	return nil
}

func (r roleRepo) ListUserRoles(_ context.Context, userID string) ([]repository.AppRole, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.AppRole
	for appID, roleID := range r.s.userApps[userID] {
		out = append(out, repository.AppRole{UserID: userID, AppID: appID, RoleID: roleID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppID < out[j].AppID })
	return out, nil
}

func (r roleRepo) EnsureRole(_ context.Context, id, name string) error {
	if name == "" {
		name = id
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.roles[id] = name
	return nil
}

func (r roleRepo) EnsureApp(_ context.Context, id, name string) error {
	if name == "" {
		name = id
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.apps[id] = name
	return nil
}

func (r roleRepo) SetServiceRoleMap(_ context.Context, serviceID string, appToRole map[string]string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := make(map[string]string, len(appToRole))
	for k, v := range appToRole {
		m[k] = v
	}
	r.s.svcRoles[serviceID] = m
	return nil
}

// ─── Tokens ───

type tokenRepo struct{ s *Store }

func (r tokenRepo) Get(_ context.Context, serviceID, userID string) (*repository.TokenMap, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tokens[pairKey{serviceID, userID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r tokenRepo) Upsert(_ context.Context, t *repository.TokenMap) error {
	if t == nil || t.ServiceID == "" || t.UserID == "" {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := pairKey{t.ServiceID, t.UserID}
	if existing, ok := r.s.tokens[k]; ok {
		t.ID = existing.ID
	} else {
		t.ID = uuid.NewString()
	}
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	r.s.tokens[k] = &cp
	return nil
}

func (r tokenRepo) Delete(_ context.Context, serviceID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, pairKey{serviceID, userID})
	return nil
}

func (r tokenRepo) CountForPair(_ context.Context, serviceID, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if _, ok := r.s.tokens[pairKey{serviceID, userID}]; ok {
		return 1, nil
	}
	return 0, nil
}

// ─── Heroku ───

type herokuRepo struct{ s *Store }

func (r herokuRepo) GetOrCreateUser(_ context.Context, herokuUserID, email string) (*repository.User, bool, error) {
	if herokuUserID == "" || email == "" {
		return nil, false, repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if uid, ok := r.s.heroku[herokuUserID]; ok {
		if u, ok := r.s.users[uid]; ok {
			cp := *u
			return &cp, false, nil
		}
	}
	u := &repository.User{
		Email:      email,
		Username:   email,
		Name:       email,
		IsActive:   true,
		IsSysAdmin: true,
	}
	if err := r.s.createUserLocked(u); err != nil {
		return nil, false, err
	}
	r.s.heroku[herokuUserID] = u.ID
	return u, true, nil
}

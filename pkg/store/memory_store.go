package store

import (
	"sort"
	"sync"

	"gatebook/pkg/domain"
)

// MemoryStore keeps all collections in-process. It backs the local
// deployment mode and tests; the server mode uses GormStore.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[int64]domain.User
	usernames    map[string]int64
	visitors     map[int64]domain.Visitor
	visitorOrder []int64
	units        []domain.Unit
	company      *domain.CompanyInfo
	threads      map[int64]domain.ChatThread
	threadOrder  []int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[int64]domain.User),
		usernames: make(map[string]int64),
		visitors:  make(map[int64]domain.Visitor),
		threads:   make(map[int64]domain.ChatThread),
	}
}

// SaveUser registers or replaces a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.users[u.ID]; ok && prev.Username != u.Username {
		delete(m.usernames, prev.Username)
	}
	m.users[u.ID] = u
	m.usernames[u.Username] = u.ID
	return nil
}

// DeleteUser removes a user.
func (m *MemoryStore) DeleteUser(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		delete(m.usernames, u.Username)
		delete(m.users, id)
	}
	return nil
}

// HasUsername checks if a username exists.
func (m *MemoryStore) HasUsername(username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.usernames[username]
	return ok, nil
}

// GetUserByUsername looks up a user by exact username.
func (m *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.usernames[username]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// ListUsers returns all users in ascending id order.
func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// CountAdmins returns the number of admin users.
func (m *MemoryStore) CountAdmins() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, u := range m.users {
		if u.Role == domain.RoleAdmin {
			count++
		}
	}
	return count, nil
}

// SaveVisitor stores or replaces a visitor and tracks insertion order.
func (m *MemoryStore) SaveVisitor(v domain.Visitor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.visitors[v.ID]; !exists {
		m.visitorOrder = append(m.visitorOrder, v.ID)
	}
	m.visitors[v.ID] = v
	return nil
}

// GetVisitor retrieves a visitor by ID.
func (m *MemoryStore) GetVisitor(id int64) (domain.Visitor, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.visitors[id]
	return v, ok, nil
}

// ListVisitors returns visitors in registration order.
func (m *MemoryStore) ListVisitors() ([]domain.Visitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Visitor, 0, len(m.visitorOrder))
	for _, id := range m.visitorOrder {
		if v, ok := m.visitors[id]; ok {
			res = append(res, v)
		}
	}
	return res, nil
}

// ListVisitorsByUnit returns visitors registered for a "Block-HouseNo" unit.
func (m *MemoryStore) ListVisitorsByUnit(unit string) ([]domain.Visitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Visitor, 0)
	for _, id := range m.visitorOrder {
		if v, ok := m.visitors[id]; ok && v.Resident == unit {
			res = append(res, v)
		}
	}
	return res, nil
}

// SaveUnit appends a unit if the (block, houseNo) pair is new.
func (m *MemoryStore) SaveUnit(u domain.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.units {
		if existing.Block == u.Block && existing.HouseNo == u.HouseNo {
			return nil
		}
	}
	m.units = append(m.units, u)
	return nil
}

// DeleteUnit removes a matching unit if present.
func (m *MemoryStore) DeleteUnit(block, houseNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	filtered := m.units[:0]
	for _, u := range m.units {
		if u.Block == block && u.HouseNo == houseNo {
			continue
		}
		filtered = append(filtered, u)
	}
	m.units = filtered
	return nil
}

// HasUnit checks whether the (block, houseNo) pair exists.
func (m *MemoryStore) HasUnit(block, houseNo string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.units {
		if u.Block == block && u.HouseNo == houseNo {
			return true, nil
		}
	}
	return false, nil
}

// ListUnits returns all units.
func (m *MemoryStore) ListUnits() ([]domain.Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Unit, len(m.units))
	copy(res, m.units)
	return res, nil
}

// GetCompanyInfo returns the company profile singleton.
func (m *MemoryStore) GetCompanyInfo() (domain.CompanyInfo, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.company == nil {
		return domain.CompanyInfo{}, false, nil
	}
	return *m.company, true, nil
}

// SaveCompanyInfo replaces the company profile wholesale.
func (m *MemoryStore) SaveCompanyInfo(info domain.CompanyInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.company = &info
	return nil
}

// SaveThread stores or replaces a chat thread and tracks creation order.
func (m *MemoryStore) SaveThread(t domain.ChatThread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.threads[t.ID]; !exists {
		m.threadOrder = append(m.threadOrder, t.ID)
	}
	m.threads[t.ID] = cloneThread(t)
	return nil
}

// GetThread retrieves a chat thread by ID.
func (m *MemoryStore) GetThread(id int64) (domain.ChatThread, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.threads[id]
	if !ok {
		return domain.ChatThread{}, false, nil
	}
	return cloneThread(t), true, nil
}

// ListThreads returns threads in creation order.
func (m *MemoryStore) ListThreads() ([]domain.ChatThread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ChatThread, 0, len(m.threadOrder))
	for _, id := range m.threadOrder {
		if t, ok := m.threads[id]; ok {
			res = append(res, cloneThread(t))
		}
	}
	return res, nil
}

// ListThreadsByUser returns threads started by the given user.
func (m *MemoryStore) ListThreadsByUser(userID int64) ([]domain.ChatThread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ChatThread, 0)
	for _, id := range m.threadOrder {
		t, ok := m.threads[id]
		if !ok || t.UserID == nil || *t.UserID != userID {
			continue
		}
		res = append(res, cloneThread(t))
	}
	return res, nil
}

func cloneThread(t domain.ChatThread) domain.ChatThread {
	messages := make([]domain.ChatMessage, len(t.Messages))
	copy(messages, t.Messages)
	t.Messages = messages
	if t.UserID != nil {
		id := *t.UserID
		t.UserID = &id
	}
	return t
}

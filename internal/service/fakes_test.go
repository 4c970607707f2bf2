package service

import (
	"context"
	"sync"
	"time"

	"helpdesk/internal/answer"
	"helpdesk/internal/model"
	"helpdesk/internal/notify"
	"helpdesk/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// =============================================================================
// In-memory repositories
// =============================================================================

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (r *fakeUserRepo) add(name, code, email, mobile, role string) *model.User {
	u := &model.User{
		ID:           uuid.New(),
		Name:         name,
		EmployeeCode: code,
		Email:        email,
		Mobile:       mobile,
		Role:         role,
	}
	r.mu.Lock()
	r.users[u.ID.String()] = u
	r.mu.Unlock()
	return u
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email || u.Mobile == user.Mobile || u.EmployeeCode == user.EmployeeCode {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	cp := *user
	r.users[user.ID.String()] = &cp
	return nil
}

func (r *fakeUserRepo) find(match func(*model.User) bool) (*model.User, error) {
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

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID.String() == id })
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) GetByIdentifier(_ context.Context, identifier string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == identifier || u.Mobile == identifier })
}

func (r *fakeUserRepo) ExistsByEmailOrMobile(_ context.Context, email, mobile string) (bool, error) {
	_, err := r.find(func(u *model.User) bool { return u.Email == email || u.Mobile == mobile })
	return err == nil, nil
}

func (r *fakeUserRepo) UpdateRefreshToken(_ context.Context, id string, tokenHash *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.RefreshToken = tokenHash
	return nil
}

type fakeChannelRepo struct {
	mu       sync.Mutex
	users    *fakeUserRepo
	channels map[string]*model.Channel
}

func newFakeChannelRepo(users *fakeUserRepo) *fakeChannelRepo {
	return &fakeChannelRepo{users: users, channels: map[string]*model.Channel{}}
}

func (r *fakeChannelRepo) Create(_ context.Context, channel *model.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if channel.ID == uuid.Nil {
		channel.ID = uuid.New()
	}
	channel.CreatedAt = time.Now()
	channel.UpdatedAt = channel.CreatedAt
	cp := *channel
	cp.User = nil
	r.channels[channel.ID.String()] = &cp
	return nil
}

func (r *fakeChannelRepo) get(id string) (*model.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *ch
	if ch.Category != nil {
		c := *ch.Category
		cp.Category = &c
	}
	return &cp, nil
}

func (r *fakeChannelRepo) FindByID(ctx context.Context, id string) (*model.Channel, error) {
	ch, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if u, err := r.users.GetByID(ctx, ch.UserID.String()); err == nil {
		ch.User = u
	}
	return ch, nil
}

func (r *fakeChannelRepo) FindByIDForUpdate(_ context.Context, id string) (*model.Channel, error) {
	return r.get(id)
}

func (r *fakeChannelRepo) UpdateStatus(_ context.Context, id string, status model.ChannelStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	ch.Status = status
	ch.UpdatedAt = time.Now()
	return nil
}

func (r *fakeChannelRepo) SetCategoryIfEmpty(_ context.Context, id, category string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if !ok || ch.HasCategory() {
		return false, nil
	}
	ch.Category = &category
	return true, nil
}

func (r *fakeChannelRepo) Touch(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels[id]; ok {
		ch.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakeChannelRepo) List(_ context.Context, filter repository.ChannelFilter) ([]model.Channel, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Channel
	for _, ch := range r.channels {
		if filter.UserID != "" && ch.UserID.String() != filter.UserID {
			continue
		}
		if filter.Status != "" && ch.Status != filter.Status {
			continue
		}
		out = append(out, *ch)
	}
	return out, int64(len(out)), nil
}

func (r *fakeChannelRepo) status(id string) model.ChannelStatus {
	ch, _ := r.get(id)
	if ch == nil {
		return ""
	}
	return ch.Status
}

// fakeChatRepo enforces the (channel_id, sequence) uniqueness of the real index
type fakeChatRepo struct {
	mu    sync.Mutex
	chats []model.Chat
}

func (r *fakeChatRepo) Create(_ context.Context, chat *model.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chats {
		if c.ChannelID == chat.ChannelID && c.Sequence == chat.Sequence {
			return repository.ErrDuplicateSequence
		}
	}
	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}
	chat.CreatedAt = time.Now()
	r.chats = append(r.chats, *chat)
	return nil
}

func (r *fakeChatRepo) MaxSequence(_ context.Context, channelID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var max int64
	for _, c := range r.chats {
		if c.ChannelID.String() == channelID && c.Sequence > max {
			max = c.Sequence
		}
	}
	return max, nil
}

// ListByChannel returns insertion order on purpose
func (r *fakeChatRepo) ListByChannel(_ context.Context, channelID string) ([]model.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Chat
	for _, c := range r.chats {
		if c.ChannelID.String() == channelID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeChatRepo) forChannel(channelID string) []model.Chat {
	out, _ := r.ListByChannel(context.Background(), channelID)
	return out
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, channelID string, page, limit int) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AuditLog
	for _, e := range r.entries {
		if channelID == "" || e.ChannelID.String() == channelID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// =============================================================================
// Collaborators
// =============================================================================

type mockAsker struct {
	askFunc func(ctx context.Context, empID, question string) (*answer.Answer, error)
}

func (m *mockAsker) Ask(ctx context.Context, empID, question string) (*answer.Answer, error) {
	return m.askFunc(ctx, empID, question)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

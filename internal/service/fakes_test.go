package service

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vedran77/agora/internal/auth"
	"github.com/vedran77/agora/internal/domain"
	"github.com/vedran77/agora/internal/repository"
	"github.com/vedran77/agora/internal/storage"
)

// memDB is an in-memory stand-in for postgres. WithinTx restores a snapshot
// when fn fails, so rollback behaviour can be asserted.
type memDB struct {
	mu            sync.Mutex
	nextID        int64
	users         map[int64]domain.User
	histories     []domain.PasswordHistory
	notifications map[int64]domain.Notification
	posts         map[int64]domain.Post
	comments      map[int64]domain.Comment
	rooms         map[int64]domain.ChatRoom
	messages      []domain.Message
}

func newMemDB() *memDB {
	return &memDB{
		users:         map[int64]domain.User{},
		notifications: map[int64]domain.Notification{},
		posts:         map[int64]domain.Post{},
		comments:      map[int64]domain.Comment{},
		rooms:         map[int64]domain.ChatRoom{},
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) Repos() repository.Repos {
	return repository.Repos{
		Users:         memUsers{db},
		Passwords:     memPasswords{db},
		Notifications: memNotifications{db},
		Posts:         memPosts{db},
		Comments:      memComments{db},
		Chats:         memChats{db},
	}
}

func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) (err error) {
	snap := db.snapshot()
	defer func() {
		if p := recover(); p != nil {
			db.restore(snap)
			panic(p)
		}
		if err != nil {
			db.restore(snap)
		}
	}()
	return fn(ctx, db.Repos())
}

func (db *memDB) snapshot() *memDB {
	db.mu.Lock()
	defer db.mu.Unlock()
	return &memDB{
		nextID:        db.nextID,
		users:         maps.Clone(db.users),
		histories:     slices.Clone(db.histories),
		notifications: maps.Clone(db.notifications),
		posts:         maps.Clone(db.posts),
		comments:      maps.Clone(db.comments),
		rooms:         maps.Clone(db.rooms),
		messages:      slices.Clone(db.messages),
	}
}

func (db *memDB) restore(s *memDB) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextID = s.nextID
	db.users = s.users
	db.histories = s.histories
	db.notifications = s.notifications
	db.posts = s.posts
	db.comments = s.comments
	db.rooms = s.rooms
	db.messages = s.messages
}

func (db *memDB) notificationsFor(userID int64) []domain.Notification {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []domain.Notification
	for _, n := range db.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type memUsers struct{ db *memDB }

func (r memUsers) Create(_ context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u.ID = r.db.id()
	r.db.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r memUsers) find(match func(domain.User) bool) *domain.User {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if !u.IsDeleted && match(u) {
			return &u
		}
	}
	return nil
}

func (r memUsers) GetActiveByUserID(_ context.Context, userID string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.UserID == userID }), nil
}

func (r memUsers) GetActiveByNickname(_ context.Context, nickname string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Nickname == nickname }), nil
}

func (r memUsers) Update(_ context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.users[u.ID] = *u
	return nil
}

func (r memUsers) SoftDelete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u := r.db.users[id]
	now := time.Now()
	u.IsDeleted = true
	u.DeletedAt = &now
	r.db.users[id] = u
	return nil
}

func (r memUsers) ListActiveIDs(_ context.Context, afterID int64, limit int) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var ids []int64
	for id, u := range r.db.users {
		if !u.IsDeleted && id > afterID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type memPasswords struct{ db *memDB }

func (r memPasswords) Append(_ context.Context, h *domain.PasswordHistory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	h.ID = r.db.id()
	r.db.histories = append(r.db.histories, *h)
	return nil
}

func (r memPasswords) ListByUser(_ context.Context, userID int64) ([]domain.PasswordHistory, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.PasswordHistory
	for _, h := range r.db.histories {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

type memNotifications struct{ db *memDB }

func (r memNotifications) Create(_ context.Context, n *domain.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n.ID = r.db.id()
	r.db.notifications[n.ID] = *n
	return nil
}

func (r memNotifications) GetByID(_ context.Context, id int64) (*domain.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notifications[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (r memNotifications) ListByUser(_ context.Context, userID int64, limit int) ([]domain.Notification, error) {
	list := r.db.notificationsFor(userID)
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r memNotifications) ListUnread(_ context.Context, userID int64) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range r.db.notificationsFor(userID) {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memNotifications) MarkAsRead(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := r.db.notifications[id]
	n.IsRead = true
	r.db.notifications[id] = n
	return nil
}

type memPosts struct{ db *memDB }

func (r memPosts) Create(_ context.Context, p *domain.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.ID = r.db.id()
	r.db.posts[p.ID] = *p
	return nil
}

func (r memPosts) GetByID(_ context.Context, id int64) (*domain.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[id]
	if !ok || p.DeletedAt != nil {
		return nil, nil
	}
	p.ImageKeys = slices.Clone(p.ImageKeys)
	return &p, nil
}

func (r memPosts) Update(_ context.Context, p *domain.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored := *p
	stored.ImageKeys = slices.Clone(p.ImageKeys)
	r.db.posts[p.ID] = stored
	return nil
}

func (r memPosts) SoftDelete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p := r.db.posts[id]
	now := time.Now()
	p.DeletedAt = &now
	r.db.posts[id] = p
	return nil
}

func (r memPosts) page(match func(domain.Post) bool, offset, limit int) ([]domain.Post, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []domain.Post
	for _, p := range r.db.posts {
		if p.DeletedAt == nil && match(p) {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (r memPosts) ListByBoard(_ context.Context, board domain.BoardType, offset, limit int) ([]domain.Post, int64, error) {
	return r.page(func(p domain.Post) bool { return p.BoardType == board }, offset, limit)
}

func (r memPosts) Search(_ context.Context, keyword string, offset, limit int) ([]domain.Post, int64, error) {
	kw := strings.ToLower(keyword)
	return r.page(func(p domain.Post) bool {
		return strings.Contains(strings.ToLower(p.Title), kw) || strings.Contains(strings.ToLower(p.Content), kw)
	}, offset, limit)
}

type memComments struct{ db *memDB }

func (r memComments) Create(_ context.Context, c *domain.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = r.db.id()
	r.db.comments[c.ID] = *c
	return nil
}

func (r memComments) GetByID(_ context.Context, id int64) (*domain.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.comments[id]
	if !ok || c.DeletedAt != nil {
		return nil, nil
	}
	return &c, nil
}

func (r memComments) ListByPost(_ context.Context, postID int64) ([]domain.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Comment
	for _, c := range r.db.comments {
		if c.PostID == postID && c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memComments) Update(_ context.Context, c *domain.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.comments[c.ID] = *c
	return nil
}

func (r memComments) SoftDelete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := r.db.comments[id]
	now := time.Now()
	c.DeletedAt = &now
	r.db.comments[id] = c
	return nil
}

type memChats struct{ db *memDB }

func (r memChats) CreateRoom(_ context.Context, room *domain.ChatRoom) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	room.ID = r.db.id()
	r.db.rooms[room.ID] = *room
	return nil
}

func (r memChats) GetRoomByID(_ context.Context, id int64) (*domain.ChatRoom, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	room, ok := r.db.rooms[id]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (r memChats) GetRoom(_ context.Context, postID, hostID, guestID int64) (*domain.ChatRoom, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, room := range r.db.rooms {
		if room.PostID == postID && room.HostID == hostID && room.GuestID == guestID {
			return &room, nil
		}
	}
	return nil, nil
}

func (r memChats) ListRoomSummaries(_ context.Context, userID int64) ([]domain.RoomSummary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.RoomSummary
	for _, room := range r.db.rooms {
		if !room.HasParticipant(userID) {
			continue
		}
		s := domain.RoomSummary{RoomID: room.ID, PostID: room.PostID, CreatedAt: room.CreatedAt}
		for _, m := range r.db.messages {
			if m.RoomID != room.ID {
				continue
			}
			if m.RecipientID == userID && !m.IsRead {
				s.UnreadCount++
			}
			s.Content, s.SenderID, s.CreatedAt = m.Content, m.SenderID, m.CreatedAt
			s.SenderNickname = r.db.users[m.SenderID].Nickname
		}
		out = append(out, s)
	}
	return out, nil
}

func (r memChats) CreateMessage(_ context.Context, m *domain.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m.ID = r.db.id()
	r.db.messages = append(r.db.messages, *m)
	return nil
}

func (r memChats) ListMessages(_ context.Context, roomID int64) ([]domain.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Message
	for _, m := range r.db.messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memChats) MarkRead(_ context.Context, roomID, recipientID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, m := range r.db.messages {
		if m.RoomID == roomID && m.RecipientID == recipientID {
			r.db.messages[i].IsRead = true
		}
	}
	return nil
}

type staticWords []string

func (w staticWords) ForbiddenWords(context.Context) ([]string, error) {
	return w, nil
}

type fakeTokens struct {
	mu      sync.Mutex
	issued  []int64
	revoked []int64
}

func (f *fakeTokens) Issue(_ context.Context, userID int64) (*auth.Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = append(f.issued, userID)
	return &auth.Tokens{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (f *fakeTokens) Refresh(context.Context, string) (*auth.Tokens, error) {
	return nil, domain.ErrInvalidToken
}

func (f *fakeTokens) Revoke(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, userID)
	return nil
}

var errStorageDown = errors.New("storage down")

type fakeImages struct {
	mu       sync.Mutex
	uploads  []string
	failNext bool
}

func (f *fakeImages) UploadProfile(_ context.Context, userID int64, file *storage.File, existingKey string) (string, error) {
	if file == nil {
		if existingKey != "" {
			return existingKey, nil
		}
		return f.DefaultProfileKey(), nil
	}
	ext, err := storage.ValidateExtension(file.Filename)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return "", errStorageDown
	}
	key := "profileImg/" + itoa(userID) + ext
	f.uploads = append(f.uploads, key)
	return key, nil
}

func (f *fakeImages) UploadBoard(_ context.Context, postID int64, first int, files []storage.File) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for n, file := range files {
		ext, err := storage.ValidateExtension(file.Filename)
		if err != nil {
			return nil, err
		}
		keys = append(keys, "board/"+itoa(postID)+"/"+itoa(int64(first+n))+ext)
	}
	f.uploads = append(f.uploads, keys...)
	return keys, nil
}

func (f *fakeImages) URL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return "https://signed/" + key, nil
}

func (f *fakeImages) URLs(ctx context.Context, keys []string) ([]string, error) {
	out := []string{}
	for _, k := range keys {
		u, _ := f.URL(ctx, k)
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeImages) DefaultProfileKey() string {
	return "profileImg/default.png"
}

func (f *fakeImages) PresetProfileKey(n int) (string, error) {
	if n < 1 || n > 6 {
		return "", domain.ErrProfilePreset
	}
	return "profileImg/" + strconv.Itoa(n) + ".png", nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []*domain.Message
}

func (n *recordingNotifier) NotifyNewMessage(msg *domain.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

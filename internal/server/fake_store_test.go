package server

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"sharebox/internal/store"
)

// fakeStore is an in-memory Store with the same error contract as the
// PostgreSQL implementation.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	clock  time.Time

	users  map[int64]fakeUser
	files  map[int64]fakeFile
	shares map[[2]int64]time.Time

	health    map[string]store.ComponentCheck
	failWith  error
}

type fakeUser struct {
	username string
	password string
}

type fakeFile struct {
	owner    int64
	filename string
	content  string
	uploaded time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		users:  map[int64]fakeUser{},
		files:  map[int64]fakeFile{},
		shares: map[[2]int64]time.Time{},
	}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) CreateUser(_ context.Context, username, password string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return 0, f.failWith
	}
	if len(password) > 72 {
		return 0, store.ErrPasswordTooLong
	}
	for _, u := range f.users {
		if u.username == username {
			return 0, store.ErrDuplicateUsername
		}
	}
	id := f.id()
	f.users[id] = fakeUser{username: username, password: password}
	return id, nil
}

func (f *fakeStore) LoginUser(_ context.Context, username, password string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if u.username == username && u.password == password {
			return store.User{ID: id, Username: username}, nil
		}
	}
	return store.User{}, store.ErrInvalidCredentials
}

func (f *fakeStore) CheckUserExists(_ context.Context, username string) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, 0, f.failWith
	}
	for id, u := range f.users {
		if u.username == username {
			return true, id, nil
		}
	}
	return false, 0, nil
}

func (f *fakeStore) UploadFile(_ context.Context, userID int64, filename, content string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return 0, f.failWith
	}
	if _, ok := f.users[userID]; !ok {
		return 0, store.ErrUserNotFound
	}
	id := f.id()
	f.files[id] = fakeFile{owner: userID, filename: filename, content: content, uploaded: f.tick()}
	return id, nil
}

func (f *fakeStore) GetUserFiles(_ context.Context, userID int64) ([]store.FileSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []store.FileSummary{}
	for id, file := range f.files {
		if file.owner == userID {
			out = append(out, store.FileSummary{
				ID:         id,
				Filename:   file.filename,
				UploadDate: file.uploaded,
				SizeBytes:  int64(len(file.content)),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadDate.After(out[j].UploadDate) })
	return out, nil
}

func (f *fakeStore) GetSharedFiles(_ context.Context, userID int64) ([]store.SharedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.SharedFile{}
	for key, when := range f.shares {
		if key[1] != userID {
			continue
		}
		file := f.files[key[0]]
		out = append(out, store.SharedFile{
			ID:         key[0],
			Filename:   file.filename,
			UploadDate: file.uploaded,
			Owner:      f.users[file.owner].username,
			SharedDate: when,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SharedDate.After(out[j].SharedDate) })
	return out, nil
}

func (f *fakeStore) GetFile(_ context.Context, fileID int64) (store.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[fileID]
	if !ok {
		return store.File{}, store.ErrFileNotFound
	}
	return store.File{Filename: file.filename, Content: file.content}, nil
}

func (f *fakeStore) ShareFile(_ context.Context, fileID, ownerID, sharedWithUserID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ownerID == sharedWithUserID {
		return store.ErrShareWithSelf
	}
	file, ok := f.files[fileID]
	if !ok || file.owner != ownerID {
		return store.ErrFileNotFound
	}
	if _, ok := f.users[sharedWithUserID]; !ok {
		return store.ErrUserNotFound
	}
	key := [2]int64{fileID, sharedWithUserID}
	if _, ok := f.shares[key]; ok {
		return store.ErrAlreadyShared
	}
	f.shares[key] = f.tick()
	return nil
}

func (f *fakeStore) DeleteFile(_ context.Context, fileID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	file, ok := f.files[fileID]
	if !ok || file.owner != userID {
		return store.ErrFileNotFound
	}
	delete(f.files, fileID)
	for key := range f.shares {
		if key[0] == fileID {
			delete(f.shares, key)
		}
	}
	return nil
}

func (f *fakeStore) Health(context.Context) map[string]store.ComponentCheck {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.health != nil {
		return f.health
	}
	return map[string]store.ComponentCheck{"database": {}}
}

var errBackend = errors.New("connection reset by peer")

func jsonUnmarshal(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}

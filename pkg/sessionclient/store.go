package sessionclient

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Store 本地持久化，只作为恢复界面的提示，不代表服务端状态
type Store interface {
	Load() (*CurrentSession, error)
	Save(session *CurrentSession) error
	Clear() error
}

type storedState struct {
	CurrentSession *CurrentSession `json:"currentSession"`
}

// FileStore 以 JSON 文件保存当前会话
type FileStore struct {
	Path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load 文件不存在时返回 nil
func (s *FileStore) Load() (*CurrentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var st storedState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	if st.CurrentSession == nil || st.CurrentSession.ID == "" {
		return nil, nil
	}
	return st.CurrentSession, nil
}

func (s *FileStore) Save(session *CurrentSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(storedState{CurrentSession: session})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}

	// 先写临时文件再替换
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

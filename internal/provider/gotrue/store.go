package gotrue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/skorenev/ticketflow/internal/model"
)

// sessionFile is the on-disk persisted session.
type sessionFile struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "ticketflow")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ticketflow")
}

func sessionPath() string { return filepath.Join(cfgDir(), "session.json") }

func saveSession(s *model.Session) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.Create(sessionPath())
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(sessionFile{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		UserID:       s.User.ID.String(),
		Email:        s.User.Email,
		FullName:     s.User.FullName,
	})
}

func loadSession() (*model.Session, error) {
	b, err := os.ReadFile(sessionPath())
	if err != nil {
		return nil, err
	}
	var sf sessionFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return nil, err
	}
	if sf.AccessToken == "" {
		return nil, os.ErrNotExist
	}
	return &model.Session{
		AccessToken:  sf.AccessToken,
		RefreshToken: sf.RefreshToken,
		ExpiresAt:    sf.ExpiresAt,
		User: model.User{
			ID:       uuid.FromStringOrNil(sf.UserID),
			Email:    sf.Email,
			FullName: sf.FullName,
		},
	}, nil
}

func removeSession() { _ = os.Remove(sessionPath()) }

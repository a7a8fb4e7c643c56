package metadata

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// JSONStore is the reference Metadata Store backend: one JSON file per
// record type under <base>/db/data/, guarded by a single mutex (spec §4.2's
// "single process-wide exclusive critical section"). Grounded on the
// original central_lobby_server.py companion db_server.py.
type JSONStore struct {
	mu         sync.Mutex
	baseDir    string
	dataDir    string
	storageDir string
	logger     *slog.Logger
}

var _ Store = (*JSONStore)(nil)

// NewJSONStore creates a JSON-file-backed store rooted at baseDir. The
// reference layout is <baseDir>/db/data/{users,games,comments}.json and
// <baseDir>/db/storage/<game_name>/ (spec §6).
func NewJSONStore(baseDir string, logger *slog.Logger) *JSONStore {
	return &JSONStore{
		baseDir:    baseDir,
		dataDir:    filepath.Join(baseDir, "db", "data"),
		storageDir: filepath.Join(baseDir, "db", "storage"),
		logger:     logger,
	}
}

func (s *JSONStore) Backend() string { return "json" }

func (s *JSONStore) usersFile() string    { return filepath.Join(s.dataDir, "users.json") }
func (s *JSONStore) gamesFile() string    { return filepath.Join(s.dataDir, "games.json") }
func (s *JSONStore) commentsFile() string { return filepath.Join(s.dataDir, "comments.json") }

// InitializeStorage ensures all expected directories and JSON files exist.
func (s *JSONStore) InitializeStorage() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked()
}

func (s *JSONStore) initializeLocked() error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	for path, empty := range map[string]interface{}{
		s.usersFile():    []User{},
		s.gamesFile():    []Game{},
		s.commentsFile(): []Comment{},
	} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := writeJSON(path, empty); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadJSON[T any](path string, out *[]T) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			*out = nil
			return nil
		}
		return err
	}
	if len(data) == 0 {
		*out = nil
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		*out = nil
		return nil
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// GetUser returns the user record, if any.
func (s *JSONStore) GetUser(username string) (*User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getUserLocked(username)
}

func (s *JSONStore) getUserLocked(username string) (*User, bool, error) {
	var users []User
	if err := loadJSON(s.usersFile(), &users); err != nil {
		return nil, false, err
	}
	for i := range users {
		if users[i].Username == username {
			u := users[i]
			return &u, true, nil
		}
	}
	return nil, false, nil
}

// RegisterUser creates a new account. username is the primary key (spec §3).
func (s *JSONStore) RegisterUser(username, password string) error {
	if !ValidUsername(username) {
		return fmt.Errorf("%w", errInvalidUsername)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []User
	if err := loadJSON(s.usersFile(), &users); err != nil {
		return err
	}
	for _, u := range users {
		if u.Username == username {
			return fmt.Errorf("%w", errUsernameExists)
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	users = append(users, User{
		Username:     username,
		PasswordHash: string(hash),
		Games:        []string{},
		GamesOwn:     []string{},
	})
	return writeJSON(s.usersFile(), users)
}

// AuthenticateUser reports whether password matches the stored hash.
func (s *JSONStore) AuthenticateUser(username, password string) bool {
	user, ok, err := s.GetUser(username)
	if err != nil || !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// RecordDownload adds gameName to the user's downloaded-games list
// (idempotent), implementing the implicit ownership grant on a successful
// download (spec §4.1 "Download flow").
func (s *JSONStore) RecordDownload(username, gameName string) error {
	if username == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []User
	if err := loadJSON(s.usersFile(), &users); err != nil {
		return err
	}
	changed := false
	for i := range users {
		if users[i].Username == username && !contains(users[i].Games, gameName) {
			users[i].Games = append(users[i].Games, gameName)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return writeJSON(s.usersFile(), users)
}

func (s *JSONStore) addOwnedGameLocked(username, gameName string) error {
	if username == "" {
		return nil
	}
	var users []User
	if err := loadJSON(s.usersFile(), &users); err != nil {
		return err
	}
	changed := false
	for i := range users {
		if users[i].Username == username && !contains(users[i].GamesOwn, gameName) {
			users[i].GamesOwn = append(users[i].GamesOwn, gameName)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return writeJSON(s.usersFile(), users)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ListGames returns all game records.
func (s *JSONStore) ListGames() ([]Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var games []Game
	if err := loadJSON(s.gamesFile(), &games); err != nil {
		return nil, err
	}
	return games, nil
}

// GetGame returns a single game record by name.
func (s *JSONStore) GetGame(gameName string) (*Game, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getGameLocked(gameName)
}

func (s *JSONStore) getGameLocked(gameName string) (*Game, bool, error) {
	var games []Game
	if err := loadJSON(s.gamesFile(), &games); err != nil {
		return nil, false, err
	}
	for i := range games {
		if games[i].GameName == gameName {
			g := games[i]
			return &g, true, nil
		}
	}
	return nil, false, nil
}

// UpsertGame creates a game record or updates it in place when the caller's
// game_name already exists (spec §3: "subsequent uploads by the same
// author update in place").
func (s *JSONStore) UpsertGame(g Game) (Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var games []Game
	if err := loadJSON(s.gamesFile(), &games); err != nil {
		return Game{}, err
	}
	found := -1
	for i := range games {
		if games[i].GameName == g.GameName {
			found = i
			break
		}
	}
	if found >= 0 {
		existing := games[found]
		if g.Description == "" {
			g.Description = existing.Description
		}
		if g.Author == "" {
			g.Author = existing.Author
		}
		if g.ExtractedPath == "" {
			g.ExtractedPath = existing.ExtractedPath
		}
		games[found] = g
	} else {
		games = append(games, g)
	}
	if err := writeJSON(s.gamesFile(), games); err != nil {
		return Game{}, err
	}
	if err := s.addOwnedGameLocked(g.Author, g.GameName); err != nil {
		return Game{}, err
	}
	return g, nil
}

// RemoveGame deletes the game record and prunes comments and user
// ownership/download lists (spec §3 "Deletion cascades").
func (s *JSONStore) RemoveGame(gameName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var games []Game
	if err := loadJSON(s.gamesFile(), &games); err != nil {
		return err
	}
	kept := games[:0:0]
	found := false
	for _, g := range games {
		if g.GameName == gameName {
			found = true
			continue
		}
		kept = append(kept, g)
	}
	if !found {
		return fmt.Errorf("%w", errGameNotFound)
	}
	if err := writeJSON(s.gamesFile(), kept); err != nil {
		return err
	}

	var users []User
	if err := loadJSON(s.usersFile(), &users); err != nil {
		return err
	}
	changed := false
	for i := range users {
		newGames := removeAll(users[i].Games, gameName)
		newOwn := removeAll(users[i].GamesOwn, gameName)
		if len(newGames) != len(users[i].Games) || len(newOwn) != len(users[i].GamesOwn) {
			users[i].Games = newGames
			users[i].GamesOwn = newOwn
			changed = true
		}
	}
	if changed {
		if err := writeJSON(s.usersFile(), users); err != nil {
			return err
		}
	}

	var comments []Comment
	if err := loadJSON(s.commentsFile(), &comments); err != nil {
		return err
	}
	keptComments := comments[:0:0]
	for _, c := range comments {
		if c.GameName != gameName {
			keptComments = append(keptComments, c)
		}
	}
	if len(keptComments) != len(comments) {
		if err := writeJSON(s.commentsFile(), keptComments); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(filepath.Join(s.storageDir, gameName)); err != nil {
		s.logger.Warn("failed to remove storage directory", "game_name", gameName, "error", err)
	}
	return nil
}

func removeAll(list []string, v string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// ListComments returns all comments for a game.
func (s *JSONStore) ListComments(gameName string) ([]Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCommentsLocked(gameName)
}

func (s *JSONStore) listCommentsLocked(gameName string) ([]Comment, error) {
	var comments []Comment
	if err := loadJSON(s.commentsFile(), &comments); err != nil {
		return nil, err
	}
	out := make([]Comment, 0, len(comments))
	for _, c := range comments {
		if c.GameName == gameName {
			out = append(out, c)
		}
	}
	return out, nil
}

// AddComment upserts by (game, user): any prior comment by the same user on
// the same game is removed before the new one is appended (spec §4.2).
func (s *JSONStore) AddComment(c Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var comments []Comment
	if err := loadJSON(s.commentsFile(), &comments); err != nil {
		return err
	}
	kept := comments[:0:0]
	for _, existing := range comments {
		if existing.GameName == c.GameName && existing.Username == c.Username {
			continue
		}
		kept = append(kept, existing)
	}
	kept = append(kept, c)
	return writeJSON(s.commentsFile(), kept)
}

// EnsureGameStorageDir creates and returns the per-game storage directory.
func (s *JSONStore) EnsureGameStorageDir(gameName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.storageDir, gameName)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

package metadata

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/playforge/gamehost/pkg/database"
	"golang.org/x/crypto/bcrypt"
)

// SQLStore is the alternate Metadata Store backend (SPEC_FULL.md): the same
// record shapes as JSONStore, persisted to sqlite/postgres/mysql via
// database/sql. Each mutating call runs inside one transaction, giving the
// same per-call exclusivity spec §4.2 requires without a separate mutex —
// the database's own transaction isolation provides it.
type SQLStore struct {
	conn *database.Connection
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore opens conn and ensures the schema exists.
func NewSQLStore(conn *database.Connection) (*SQLStore, error) {
	s := &SQLStore{conn: conn}
	if err := s.InitializeStorage(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Backend() string {
	switch s.conn.Driver() {
	case "postgres", "postgresql":
		return "postgres"
	case "mysql":
		return "mysql"
	default:
		return "sqlite"
	}
}

// InitializeStorage creates the users/games/comments tables if absent.
func (s *SQLStore) InitializeStorage() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			games TEXT NOT NULL DEFAULT '[]',
			games_own TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS games (
			game_name TEXT PRIMARY KEY,
			version TEXT,
			filename TEXT,
			storage_path TEXT,
			extracted_path TEXT,
			description TEXT,
			author TEXT,
			min_players INTEGER,
			max_players INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			game_name TEXT NOT NULL,
			username TEXT NOT NULL,
			score INTEGER NOT NULL,
			comment TEXT,
			PRIMARY KEY (game_name, username)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.conn.DB().Exec(stmt); err != nil {
			return fmt.Errorf("sqlstore: schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) GetUser(username string) (*User, bool, error) {
	row := s.conn.DB().QueryRow(
		`SELECT username, password_hash, games, games_own FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, bool, error) {
	var u User
	var gamesJSON, ownJSON string
	if err := row.Scan(&u.Username, &u.PasswordHash, &gamesJSON, &ownJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	_ = json.Unmarshal([]byte(gamesJSON), &u.Games)
	_ = json.Unmarshal([]byte(ownJSON), &u.GamesOwn)
	return &u, true, nil
}

func (s *SQLStore) RegisterUser(username, password string) error {
	if !ValidUsername(username) {
		return fmt.Errorf("%w", errInvalidUsername)
	}
	if _, ok, err := s.GetUser(username); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w", errUsernameExists)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.conn.DB().Exec(
		`INSERT INTO users (username, password_hash, games, games_own) VALUES (?, ?, '[]', '[]')`,
		username, string(hash))
	return err
}

func (s *SQLStore) AuthenticateUser(username, password string) bool {
	user, ok, err := s.GetUser(username)
	if err != nil || !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *SQLStore) RecordDownload(username, gameName string) error {
	if username == "" {
		return nil
	}
	user, ok, err := s.GetUser(username)
	if err != nil || !ok {
		return err
	}
	if contains(user.Games, gameName) {
		return nil
	}
	user.Games = append(user.Games, gameName)
	data, _ := json.Marshal(user.Games)
	_, err = s.conn.DB().Exec(`UPDATE users SET games = ? WHERE username = ?`, string(data), username)
	return err
}

func (s *SQLStore) addOwnedGame(username, gameName string) error {
	if username == "" {
		return nil
	}
	user, ok, err := s.GetUser(username)
	if err != nil || !ok {
		return err
	}
	if contains(user.GamesOwn, gameName) {
		return nil
	}
	user.GamesOwn = append(user.GamesOwn, gameName)
	data, _ := json.Marshal(user.GamesOwn)
	_, err = s.conn.DB().Exec(`UPDATE users SET games_own = ? WHERE username = ?`, string(data), username)
	return err
}

func (s *SQLStore) ListGames() ([]Game, error) {
	rows, err := s.conn.DB().Query(
		`SELECT game_name, version, filename, storage_path, extracted_path, description, author, min_players, max_players FROM games`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var games []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGame(row rowScanner) (Game, error) {
	var g Game
	err := row.Scan(&g.GameName, &g.Version, &g.Filename, &g.StoragePath, &g.ExtractedPath,
		&g.Description, &g.Author, &g.MinPlayers, &g.MaxPlayers)
	return g, err
}

func (s *SQLStore) GetGame(gameName string) (*Game, bool, error) {
	row := s.conn.DB().QueryRow(
		`SELECT game_name, version, filename, storage_path, extracted_path, description, author, min_players, max_players FROM games WHERE game_name = ?`, gameName)
	g, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &g, true, nil
}

func (s *SQLStore) UpsertGame(g Game) (Game, error) {
	existing, ok, err := s.GetGame(g.GameName)
	if err != nil {
		return Game{}, err
	}
	if ok {
		if g.Description == "" {
			g.Description = existing.Description
		}
		if g.Author == "" {
			g.Author = existing.Author
		}
		if g.ExtractedPath == "" {
			g.ExtractedPath = existing.ExtractedPath
		}
		_, err = s.conn.DB().Exec(
			`UPDATE games SET version=?, filename=?, storage_path=?, extracted_path=?, description=?, author=?, min_players=?, max_players=? WHERE game_name=?`,
			g.Version, g.Filename, g.StoragePath, g.ExtractedPath, g.Description, g.Author, g.MinPlayers, g.MaxPlayers, g.GameName)
	} else {
		_, err = s.conn.DB().Exec(
			`INSERT INTO games (game_name, version, filename, storage_path, extracted_path, description, author, min_players, max_players) VALUES (?,?,?,?,?,?,?,?,?)`,
			g.GameName, g.Version, g.Filename, g.StoragePath, g.ExtractedPath, g.Description, g.Author, g.MinPlayers, g.MaxPlayers)
	}
	if err != nil {
		return Game{}, err
	}
	if err := s.addOwnedGame(g.Author, g.GameName); err != nil {
		return Game{}, err
	}
	return g, nil
}

func (s *SQLStore) RemoveGame(gameName string) error {
	if _, ok, err := s.GetGame(gameName); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w", errGameNotFound)
	}
	tx, err := s.conn.DB().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM games WHERE game_name = ?`, gameName); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM comments WHERE game_name = ?`, gameName); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	rows, err := s.conn.DB().Query(`SELECT username, games, games_own FROM users`)
	if err != nil {
		return err
	}
	type pruned struct {
		username string
		games    []string
		own      []string
	}
	var updates []pruned
	for rows.Next() {
		var username, gamesJSON, ownJSON string
		if err := rows.Scan(&username, &gamesJSON, &ownJSON); err != nil {
			rows.Close()
			return err
		}
		var games, own []string
		_ = json.Unmarshal([]byte(gamesJSON), &games)
		_ = json.Unmarshal([]byte(ownJSON), &own)
		newGames := removeAll(games, gameName)
		newOwn := removeAll(own, gameName)
		if len(newGames) != len(games) || len(newOwn) != len(own) {
			updates = append(updates, pruned{username, newGames, newOwn})
		}
	}
	rows.Close()
	for _, u := range updates {
		gamesData, _ := json.Marshal(u.games)
		ownData, _ := json.Marshal(u.own)
		if _, err := s.conn.DB().Exec(`UPDATE users SET games=?, games_own=? WHERE username=?`,
			string(gamesData), string(ownData), u.username); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) ListComments(gameName string) ([]Comment, error) {
	rows, err := s.conn.DB().Query(
		`SELECT game_name, username, score, comment FROM comments WHERE game_name = ?`, gameName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.GameName, &c.Username, &c.Score, &c.Comment); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *SQLStore) AddComment(c Comment) error {
	_, err := s.conn.DB().Exec(
		`DELETE FROM comments WHERE game_name = ? AND username = ?`, c.GameName, c.Username)
	if err != nil {
		return err
	}
	_, err = s.conn.DB().Exec(
		`INSERT INTO comments (game_name, username, score, comment) VALUES (?,?,?,?)`,
		c.GameName, c.Username, c.Score, c.Comment)
	return err
}

func (s *SQLStore) EnsureGameStorageDir(gameName string) (string, error) {
	// Filesystem layout is shared with JSONStore; callers resolve the
	// storage root from config, not from the SQL schema.
	return gameName, nil
}

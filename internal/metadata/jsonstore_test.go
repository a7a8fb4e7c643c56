package metadata

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *JSONStore {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewJSONStore(dir, logger)
	if err := s.InitializeStorage(); err != nil {
		t.Fatalf("InitializeStorage: %v", err)
	}
	return s
}

func TestJSONStoreRegisterAndAuthenticate(t *testing.T) {
	s := newTestStore(t)

	if err := s.RegisterUser("alice", "hunter2"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if err := s.RegisterUser("alice", "hunter2"); !IsUsernameExists(err) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}
	if !s.AuthenticateUser("alice", "hunter2") {
		t.Fatalf("expected authentication to succeed")
	}
	if s.AuthenticateUser("alice", "wrong") {
		t.Fatalf("expected authentication to fail with wrong password")
	}

	cases := []string{"bad/name", "bad:name", "bad*name"}
	for _, name := range cases {
		if err := s.RegisterUser(name, "x"); !IsInvalidUsername(err) {
			t.Errorf("RegisterUser(%q): expected invalid username error, got %v", name, err)
		}
	}
}

func TestJSONStoreUpsertGamePreservesFields(t *testing.T) {
	s := newTestStore(t)

	if err := s.RegisterUser("alice", "pw"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	g := Game{GameName: "ttt", Version: "1.0", Description: "tic tac toe", Author: "alice", MaxPlayers: 2}
	if _, err := s.UpsertGame(g); err != nil {
		t.Fatalf("UpsertGame: %v", err)
	}

	updated := Game{GameName: "ttt", Version: "1.1", Author: "alice", MaxPlayers: 2}
	got, err := s.UpsertGame(updated)
	if err != nil {
		t.Fatalf("UpsertGame (update): %v", err)
	}
	if got.Description != "tic tac toe" {
		t.Errorf("expected description to be preserved, got %q", got.Description)
	}
	if got.Version != "1.1" {
		t.Errorf("expected version to be updated, got %q", got.Version)
	}

	user, ok, err := s.GetUser("alice")
	if err != nil || !ok {
		t.Fatalf("GetUser: %v, ok=%v", err, ok)
	}
	if !contains(user.GamesOwn, "ttt") {
		t.Errorf("expected alice to own ttt, got %v", user.GamesOwn)
	}
}

func TestJSONStoreRemoveGameCascades(t *testing.T) {
	s := newTestStore(t)

	if err := s.RegisterUser("bob", "pw"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if _, err := s.UpsertGame(Game{GameName: "ttt", Author: "bob"}); err != nil {
		t.Fatalf("UpsertGame: %v", err)
	}
	if err := s.RecordDownload("bob", "ttt"); err != nil {
		t.Fatalf("RecordDownload: %v", err)
	}
	if err := s.AddComment(Comment{GameName: "ttt", Username: "bob", Score: 5}); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	if err := s.RemoveGame("ttt"); err != nil {
		t.Fatalf("RemoveGame: %v", err)
	}
	if err := s.RemoveGame("ttt"); !IsGameNotFound(err) {
		t.Fatalf("expected game-not-found on second removal, got %v", err)
	}

	user, _, err := s.GetUser("bob")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if contains(user.Games, "ttt") || contains(user.GamesOwn, "ttt") {
		t.Errorf("expected ttt pruned from bob's lists, got games=%v own=%v", user.Games, user.GamesOwn)
	}

	comments, err := s.ListComments("ttt")
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("expected comments to be cascaded away, got %v", comments)
	}
}

func TestJSONStoreAddCommentUpsertsPerUser(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddComment(Comment{GameName: "ttt", Username: "carol", Score: 3, Comment: "meh"}); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if err := s.AddComment(Comment{GameName: "ttt", Username: "carol", Score: 5, Comment: "great"}); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	comments, err := s.ListComments("ttt")
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 1 || comments[0].Score != 5 {
		t.Fatalf("expected single updated comment, got %+v", comments)
	}

	if _, ok := Rating(comments); !ok {
		t.Errorf("expected Rating to report ok for non-empty comments")
	}
	if value, _ := Rating(comments); value != 5 {
		t.Errorf("expected rating 5, got %v", value)
	}
}

func TestJSONStoreEnsureGameStorageDir(t *testing.T) {
	s := newTestStore(t)
	path, err := s.EnsureGameStorageDir("ttt")
	if err != nil {
		t.Fatalf("EnsureGameStorageDir: %v", err)
	}
	if filepath.Base(path) != "ttt" {
		t.Errorf("expected path to end in game name, got %q", path)
	}
}

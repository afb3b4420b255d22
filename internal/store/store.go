package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
)

// Collections names the Firestore collections the store reads and writes.
type Collections struct {
	Users      string
	Interviews string
}

// Store is the Firestore-backed document store for users and interviews.
type Store struct {
	client *firestore.Client
	cols   Collections
}

func New(ctx context.Context, app *firebase.App, cols Collections) (*Store, error) {
	if cols.Users == "" {
		cols.Users = "users"
	}
	if cols.Interviews == "" {
		cols.Interviews = "interviews"
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening firestore: %w", err)
	}
	return &Store{client: client, cols: cols}, nil
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

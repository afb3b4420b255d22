package store

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type User struct {
	ID    string `firestore:"-" json:"id"`
	Name  string `firestore:"name" json:"name"`
	Email string `firestore:"email" json:"email"`
}

// GetUser loads the user document with the given id.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	snap, err := s.client.Collection(s.cols.Users).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}

	var u User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", id, err)
	}
	u.ID = snap.Ref.ID
	return &u, nil
}

// CreateUser writes a new user document. It fails with ErrAlreadyExists if
// the id is taken.
func (s *Store) CreateUser(ctx context.Context, id, name, email string) error {
	_, err := s.client.Collection(s.cols.Users).Doc(id).Create(ctx, User{Name: name, Email: email})
	if status.Code(err) == codes.AlreadyExists {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("creating user %s: %w", id, err)
	}
	return nil
}

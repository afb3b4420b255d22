package store

import (
	"context"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

const DefaultLatestLimit = 20

type Interview struct {
	ID         string   `firestore:"-" json:"id"`
	UserID     string   `firestore:"userId" json:"userId"`
	Role       string   `firestore:"role" json:"role"`
	Level      string   `firestore:"level" json:"level"`
	Type       string   `firestore:"type" json:"type"`
	Techstack  []string `firestore:"techstack" json:"techstack"`
	Questions  []string `firestore:"questions" json:"questions"`
	Finalized  bool     `firestore:"finalized" json:"finalized"`
	CoverImage string   `firestore:"coverImage,omitempty" json:"coverImage,omitempty"`
	// CreatedAt is an RFC 3339 timestamp; it sorts lexically.
	CreatedAt string `firestore:"createdAt" json:"createdAt"`
}

type LatestParams struct {
	UserID string
	Limit  int
}

// InterviewsByUser returns userID's interviews, newest first.
func (s *Store) InterviewsByUser(ctx context.Context, userID string) ([]Interview, error) {
	it := s.client.Collection(s.cols.Interviews).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer it.Stop()

	return collectInterviews(interviewsFrom(it), "", 0)
}

// LatestInterviews returns the newest finalized interviews that do not belong
// to p.UserID, at most p.Limit of them (DefaultLatestLimit when unset). The
// user exclusion is applied while iterating so the query only orders and
// filters on fields that need no composite inequality index.
func (s *Store) LatestInterviews(ctx context.Context, p LatestParams) ([]Interview, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLatestLimit
	}

	it := s.client.Collection(s.cols.Interviews).
		Where("finalized", "==", true).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer it.Stop()

	return collectInterviews(interviewsFrom(it), p.UserID, limit)
}

// interviewsFrom adapts a document iterator to a decoded interview stream,
// skipping documents that do not decode.
func interviewsFrom(it *firestore.DocumentIterator) func() (Interview, error) {
	return func() (Interview, error) {
		for {
			doc, err := it.Next()
			if err != nil {
				return Interview{}, err
			}
			var iv Interview
			if err := doc.DataTo(&iv); err != nil {
				log.Printf("[Store] Error parsing interview document %s: %v", doc.Ref.ID, err)
				continue
			}
			iv.ID = doc.Ref.ID
			return iv, nil
		}
	}
}

// collectInterviews drains next until iterator.Done or limit results
// (limit <= 0 means no limit), dropping interviews owned by excludeUserID.
func collectInterviews(next func() (Interview, error), excludeUserID string, limit int) ([]Interview, error) {
	out := []Interview{}
	for limit <= 0 || len(out) < limit {
		iv, err := next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		if excludeUserID != "" && iv.UserID == excludeUserID {
			continue
		}
		out = append(out, iv)
	}
	return out, nil
}

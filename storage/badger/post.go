package badger

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/probeworks/threadscout/core"
	"github.com/probeworks/threadscout/storage"
)

// PostRepository implements storage.PostRepository for BadgerDB.
type PostRepository struct {
	backend *Backend
}

var _ storage.PostRepository = (*PostRepository)(nil)

// NewPostRepository creates a new PostRepository.
func NewPostRepository(backend *Backend) *PostRepository {
	return &PostRepository{backend: backend}
}

// Close releases repository resources.
func (r *PostRepository) Close() error {
	return nil
}

// SimilaritySearch delegates to the backend.
func (r *PostRepository) SimilaritySearch(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredPost, error) {
	return r.backend.SimilaritySearch(ctx, vector, minSimilarity, limit)
}

// UpsertPost inserts or replaces a post keyed by its source ID.
func (r *PostRepository) UpsertPost(ctx context.Context, post *core.Post) error {
	if err := core.ValidatePost(post); err != nil {
		return err
	}

	key := makePostKey(core.IDFromContent(post.ID))

	return r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := r.readPost(tx, key)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if old != nil {
			post.InsertedAt = old.InsertedAt
		} else if post.InsertedAt.IsZero() {
			post.InsertedAt = now
		}
		post.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalPost(post)); err != nil {
			return err
		}

		id := core.IDFromContent(post.ID)
		newIndexKey := makePostChanDateKey(post.Channel, post.CreatedAt, id)

		// Drop the old index entry if the indexed fields moved.
		if old != nil {
			oldIndexKey := makePostChanDateKey(old.Channel, old.CreatedAt, id)
			if !bytes.Equal(oldIndexKey, newIndexKey) {
				if err := tx.Delete(oldIndexKey); err != nil {
					return err
				}
			}
		}
		if err := tx.Set(newIndexKey, storage.MarshalID(id)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// UpdateAnalysis sets the analysis text of an existing post.
func (r *PostRepository) UpdateAnalysis(ctx context.Context, id string, analysis string) error {
	key := makePostKey(core.IDFromContent(id))

	return r.backend.WithTx(func(tx *badger.Txn) error {
		post, err := r.readPost(tx, key)
		if err != nil {
			return err
		}
		if post == nil {
			return storage.ErrNotFound
		}

		post.Analysis = analysis
		post.UpdatedAt = time.Now().UTC()
		if err := core.ValidatePost(post); err != nil {
			return err
		}

		if err := tx.Set(key, storage.MarshalPost(post)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetPost retrieves a post by its source ID.
func (r *PostRepository) GetPost(ctx context.Context, id string) (*core.Post, error) {
	var post *core.Post

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		post, err = r.readPost(tx, makePostKey(core.IDFromContent(id)))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, storage.ErrNotFound
	}
	return post, nil
}

// QueryAnalyzedSince returns analyzed posts in the channel created at or
// after since, ordered by score descending.
func (r *PostRepository) QueryAnalyzedSince(ctx context.Context, channel string, since time.Time) ([]*core.Post, error) {
	var ids []core.ID

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChannelPrefix(channel)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		start := makePartialPostChanDateKey(channel, since)
		for iter.Seek(start); iter.Valid(); iter.Next() {
			var err error
			err = iter.Item().Value(func(val []byte) error {
				id, err := storage.UnmarshalID(val)
				if err != nil {
					return err
				}
				ids = append(ids, id)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	var posts []*core.Post
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			post, err := r.readPost(tx, makePostKey(id))
			if err != nil {
				return err
			}
			if post != nil && post.Analyzed() {
				posts = append(posts, post)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(posts, func(a, b *core.Post) int {
		return b.Score - a.Score
	})
	return posts, nil
}

// EachPost iterates over every stored post.
func (r *PostRepository) EachPost(ctx context.Context, fn func(post *core.Post) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(postRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var post *core.Post
			err := iter.Item().Value(func(val []byte) error {
				var err error
				post, err = storage.UnmarshalPost(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(post); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// readPost reads and decodes a post by key, returning nil if absent.
func (r *PostRepository) readPost(tx *badger.Txn, key []byte) (*core.Post, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var post *core.Post
	err = item.Value(func(val []byte) error {
		var err error
		post, err = storage.UnmarshalPost(val)
		return err
	})
	return post, err
}

// Package store keeps caller-side conversation transcripts in a bbolt file.
// The chat engine itself is stateless; the HTTP layer uses this store to
// supply history when a request names a conversation.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentchat/internal/model"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var conversationsBucket = []byte("conversations")

// ErrNotFound is returned for unknown conversation IDs.
var ErrNotFound = errors.New("conversation not found")

const defaultMaxMessages = 50

// ConversationStore persists conversation transcripts.
type ConversationStore interface {
	Create() (*model.Conversation, error)
	Get(id string) (*model.Conversation, error)
	Append(id string, messages ...model.Message) (*model.Conversation, error)
	Delete(id string) error
	Close() error
}

// BoltStore is a ConversationStore backed by a single bbolt file.
type BoltStore struct {
	db          *bolt.DB
	maxMessages int
	now         func() time.Time
}

// NewBoltStore opens (or creates) the database at path. Transcripts are
// trimmed to the newest maxMessages entries on every append.
func NewBoltStore(path string, maxMessages int) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(conversationsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating conversations bucket: %w", err)
	}

	if maxMessages <= 0 {
		maxMessages = defaultMaxMessages
	}

	return &BoltStore{db: db, maxMessages: maxMessages, now: time.Now}, nil
}

// Create starts an empty conversation with a fresh id.
func (s *BoltStore) Create() (*model.Conversation, error) {
	now := s.now().UTC()
	conv := &model.Conversation{
		ID:        uuid.NewString(),
		Messages:  []model.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, conv)
	})
	if err != nil {
		return nil, fmt.Errorf("saving conversation: %w", err)
	}
	return conv, nil
}

// Get returns the conversation, or ErrNotFound.
func (s *BoltStore) Get(id string) (*model.Conversation, error) {
	var conv *model.Conversation
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		conv, err = get(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Append adds messages to a stored conversation and returns it updated.
func (s *BoltStore) Append(id string, messages ...model.Message) (*model.Conversation, error) {
	var conv *model.Conversation
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		conv, err = get(tx, id)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		for _, m := range messages {
			if m.Timestamp.IsZero() {
				m.Timestamp = now
			}
			conv.Messages = append(conv.Messages, m)
		}
		if len(conv.Messages) > s.maxMessages {
			conv.Messages = conv.Messages[len(conv.Messages)-s.maxMessages:]
		}
		conv.UpdatedAt = now

		return put(tx, conv)
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Delete removes the conversation, or returns ErrNotFound if it does not exist.
func (s *BoltStore) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(conversationsBucket)
		if b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func get(tx *bolt.Tx, id string) (*model.Conversation, error) {
	v := tx.Bucket(conversationsBucket).Get([]byte(id))
	if v == nil {
		return nil, ErrNotFound
	}
	var conv model.Conversation
	if err := json.Unmarshal(v, &conv); err != nil {
		return nil, fmt.Errorf("decoding conversation %s: %w", id, err)
	}
	return &conv, nil
}

func put(tx *bolt.Tx, conv *model.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return tx.Bucket(conversationsBucket).Put([]byte(conv.ID), data)
}

package portal

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Publication records one catalog shipped to a vault.
type Publication struct {
	Vault       string    `json:"vault"`
	Name        string    `json:"name"`
	Version     int64     `json:"version"`
	Size        int64     `json:"size"`
	PublishedAt time.Time `json:"publishedAt"`
}

// PublicationLog keeps the publish history of a profile.
type PublicationLog interface {
	RecordPublication(p Publication) error
	// ListPublications returns the history, newest first.
	ListPublications() ([]Publication, error)
}

// KeyPublications holds the publish history for storages without a native log.
const KeyPublications = "edusphere.publications"

// NewPublicationLog returns storage itself when it keeps its own history,
// otherwise a log stored as a JSON document under KeyPublications.
func NewPublicationLog(storage Storage) PublicationLog {
	if log, ok := storage.(PublicationLog); ok {
		return log
	}
	return &storedPublicationLog{storage: storage}
}

type storedPublicationLog struct {
	storage Storage
}

func (l *storedPublicationLog) RecordPublication(p Publication) error {
	list, err := l.ListPublications()
	if err != nil {
		return err
	}
	list = append(list, p)
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding publications: %w", err)
	}
	if err := l.storage.Put(KeyPublications, data); err != nil {
		return fmt.Errorf("writing publications: %w", err)
	}
	return nil
}

func (l *storedPublicationLog) ListPublications() ([]Publication, error) {
	data, err := l.storage.Get(KeyPublications)
	if err != nil {
		return nil, fmt.Errorf("reading publications: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var list []Publication
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decoding publications: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].PublishedAt.After(list[j].PublishedAt)
	})
	return list, nil
}

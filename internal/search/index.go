// Package search feeds document previews and tags to an external
// Meilisearch instance. The index is a convenience projection: it is rebuilt
// from saves and repairs and is never an authority on anything.
package search

import (
	"sync/atomic"
	"time"

	"notarium/internal/note"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog"
)

const idxNotes = "notarium_notes"

// Record is the indexed projection of a note.
type Record struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Parent  string   `json:"parent"`
	Preview string   `json:"preview"`
	Tags    []string `json:"tags"`
	Deleted bool     `json:"deleted"`
}

// Index wraps the Meilisearch client. A nil *Index is valid and does
// nothing, so callers without a configured search backend pass nil through.
type Index struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	log     zerolog.Logger
}

// New creates the index client and configures the notes index. The initial
// health state is probed once; a background loop re-probes so an instance
// that comes up later is picked up.
func New(url, apiKey string, log zerolog.Logger) *Index {
	client := meili.New(url, meili.WithAPIKey(apiKey))
	idx := &Index{
		client: client,
		done:   make(chan struct{}),
		log:    log,
	}
	if _, err := client.Health(); err != nil {
		log.Warn().Str("url", url).Err(err).Msg("search: meilisearch unavailable")
		idx.healthy.Store(false)
	} else {
		idx.healthy.Store(true)
		idx.configure()
	}
	go idx.healthLoop()
	return idx
}

func (i *Index) configure() {
	if _, err := i.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxNotes,
		PrimaryKey: "id",
	}); err != nil {
		i.log.Debug().Err(err).Msg("search: create index (may already exist)")
	}
	index := i.client.Index(idxNotes)
	filterable := []interface{}{"parent", "tags", "deleted"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		i.log.Warn().Err(err).Msg("search: update filterable attrs")
	}
	searchable := []string{"name", "preview", "tags"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		i.log.Warn().Err(err).Msg("search: update searchable attrs")
	}
}

func (i *Index) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-i.done:
			return
		case <-ticker.C:
			_, err := i.client.Health()
			wasHealthy := i.healthy.Load()
			i.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				i.log.Info().Msg("search: meilisearch recovered, reconfiguring index")
				i.configure()
			}
		}
	}
}

// Healthy reports whether the backend answered the last probe.
func (i *Index) Healthy() bool {
	return i != nil && i.healthy.Load()
}

// Close stops the health monitor.
func (i *Index) Close() {
	if i != nil {
		close(i.done)
	}
}

// IndexNote pushes a note's projection to the index, fire-and-forget. Only
// notes are indexed; other kinds are removed so a kind change cannot leave a
// stale record behind.
func (i *Index) IndexNote(d *note.Document) {
	if !i.Healthy() {
		return
	}
	if d.Kind != note.KindNote {
		i.Remove(d.ID)
		return
	}
	rec := Record{
		ID:      d.ID,
		Name:    d.Name,
		Parent:  d.Parent,
		Preview: d.Meta.Preview,
		Tags:    d.Meta.Tags,
		Deleted: d.Deleted,
	}
	go func() {
		if _, err := i.client.Index(idxNotes).AddDocuments([]Record{rec}, nil); err != nil {
			i.log.Warn().Str("doc", rec.ID).Err(err).Msg("search: index note")
		}
	}()
}

// Remove drops a document from the index, fire-and-forget.
func (i *Index) Remove(id string) {
	if !i.Healthy() {
		return
	}
	go func() {
		if _, err := i.client.Index(idxNotes).DeleteDocument(id, nil); err != nil {
			i.log.Warn().Str("doc", id).Err(err).Msg("search: remove note")
		}
	}()
}

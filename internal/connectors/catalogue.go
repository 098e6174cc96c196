package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// HyperCat catalogue wire format constants.
const (
	relIsContentType       = "urn:X-hypercat:rels:isContentType"
	relContainsContentType = "urn:X-hypercat:rels:containsContentType"
	catalogueContentType   = "application/vnd.hypercat.catalogue+json"
)

// Catalogue speaks the HyperCat catalogue format: one listing document
// describing child items keyed by href, each child being either a terminal
// dataset or a nested catalogue discriminated by its declared content type.
type Catalogue struct {
	cfg Config
}

// NewCatalogue constructs a connector for a HyperCat catalogue endpoint.
func NewCatalogue(cfg Config) (Connector, error) {
	if err := validateHTTPLocator(cfg.Locator); err != nil {
		return nil, err
	}
	return &Catalogue{cfg: cfg}, nil
}

func (c *Catalogue) Locator() string { return c.cfg.Locator }

func (c *Catalogue) Capabilities() Capabilities {
	return Capabilities{Metadata: true, Datasets: true, Catalogue: true}
}

// FetchData is unsupported: catalogues contain only metadata, a dataset
// must be selected first.
func (c *Catalogue) FetchData(ctx context.Context, params url.Values) (*Payload, error) {
	return nil, unsupported("data")
}

func (c *Catalogue) FetchMetadata(ctx context.Context, params url.Values) (*Payload, error) {
	listing, err := c.fetchListing(ctx, params)
	if err != nil {
		return nil, err
	}
	return jsonPayload(listing.CatalogueMetadata)
}

func (c *Catalogue) ListDatasets(ctx context.Context, params url.Values) ([]string, error) {
	listing, err := c.fetchListing(ctx, params)
	if err != nil {
		return nil, err
	}
	return listing.hrefs(), nil
}

// Descend resolves the child item whose href equals id and returns a
// connector scoped to it: a nested Catalogue when the item declares the
// catalogue content type, otherwise a terminal dataset connector carrying
// the metadata already present in the listing.
func (c *Catalogue) Descend(ctx context.Context, id string) (Connector, error) {
	listing, err := c.fetchListing(ctx, url.Values{"href": {id}})
	if err != nil {
		return nil, err
	}
	return c.connectorFor(listing, id)
}

// ScopedNavigator is implemented by connectors whose child navigation can
// run against a single listing snapshot instead of refetching per call.
type ScopedNavigator interface {
	Open(ctx context.Context) (*CatalogueScope, error)
}

// Open fetches the listing once and returns a scope whose snapshot backs
// every subsequent navigation call until the scope is discarded. Outside a
// scope each capability call performs its own fresh fetch.
func (c *Catalogue) Open(ctx context.Context) (*CatalogueScope, error) {
	listing, err := c.fetchListing(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &CatalogueScope{cat: c, listing: listing}, nil
}

func (c *Catalogue) fetchListing(ctx context.Context, params url.Values) (*catalogueListing, error) {
	payload, err := c.cfg.fetch(ctx, c.cfg.Locator, params)
	if err != nil {
		return nil, err
	}

	var listing catalogueListing
	if err := payload.JSON(&listing); err != nil {
		return nil, fmt.Errorf("connectors: parse catalogue listing: %w", err)
	}
	return &listing, nil
}

func (c *Catalogue) connectorFor(listing *catalogueListing, href string) (Connector, error) {
	item, err := listing.item(href)
	if err != nil {
		return nil, err
	}

	childCfg := c.cfg
	childCfg.Locator = href
	childCfg.Metadata = item.ItemMetadata

	if item.isCatalogue() {
		childCfg.Metadata = nil
		return NewCatalogue(childCfg)
	}
	return NewDataset(childCfg)
}

// CatalogueScope is a bounded navigation session over one immutable listing
// snapshot. The snapshot is never consulted outside the scope that owns it.
type CatalogueScope struct {
	cat     *Catalogue
	listing *catalogueListing
}

// Datasets returns the child identifiers in listing order.
func (s *CatalogueScope) Datasets() []string {
	return s.listing.hrefs()
}

// Metadata returns the catalogue's own metadata from the snapshot.
func (s *CatalogueScope) Metadata() (*Payload, error) {
	return jsonPayload(s.listing.CatalogueMetadata)
}

// Descend resolves a child connector from the snapshot without a fresh fetch.
func (s *CatalogueScope) Descend(id string) (Connector, error) {
	return s.cat.connectorFor(s.listing, id)
}

// Entries returns the scope's children as lazily-constructed connectors:
// the sequence is restartable and each connector is built only when its
// Open function is called, bounding memory use for large catalogues.
func (s *CatalogueScope) Entries() []CatalogueEntry {
	entries := make([]CatalogueEntry, 0, len(s.listing.Items))
	for _, item := range s.listing.Items {
		href := item.Href
		entries = append(entries, CatalogueEntry{
			ID:   href,
			Open: func() (Connector, error) { return s.cat.connectorFor(s.listing, href) },
		})
	}
	return entries
}

// CatalogueEntry pairs a child identifier with a lazy connector constructor.
type CatalogueEntry struct {
	ID   string
	Open func() (Connector, error)
}

type catalogueListing struct {
	CatalogueMetadata json.RawMessage `json:"catalogue-metadata"`
	Items             []catalogueItem `json:"items"`
}

func (l *catalogueListing) hrefs() []string {
	hrefs := make([]string, 0, len(l.Items))
	for _, item := range l.Items {
		hrefs = append(hrefs, item.Href)
	}
	return hrefs
}

// item selects the single entry keyed by href. Zero matches is a missing
// dataset; several matches is an upstream integrity problem that must not
// be silently resolved by picking one.
func (l *catalogueListing) item(href string) (*catalogueItem, error) {
	var found *catalogueItem
	for i := range l.Items {
		if l.Items[i].Href != href {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %q", ErrAmbiguousItem, href)
		}
		found = &l.Items[i]
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q", ErrDatasetNotFound, href)
	}
	return found, nil
}

type catalogueItem struct {
	Href         string          `json:"href"`
	ItemMetadata json.RawMessage `json:"item-metadata"`
}

type itemRelation struct {
	Rel string          `json:"rel"`
	Val json.RawMessage `json:"val"`
}

// isCatalogue inspects the item's declared content type. An item with no
// content-type relation, or several conflicting ones, is treated as a
// dataset.
func (i *catalogueItem) isCatalogue() bool {
	var relations []itemRelation
	if err := json.Unmarshal(i.ItemMetadata, &relations); err != nil {
		return false
	}

	contentType, ok := singleRelation(relations, relIsContentType)
	if !ok {
		contentType, ok = singleRelation(relations, relContainsContentType)
	}
	if !ok {
		return false
	}

	var value string
	if err := json.Unmarshal(contentType, &value); err != nil {
		return false
	}
	return value == catalogueContentType
}

func singleRelation(relations []itemRelation, rel string) (json.RawMessage, bool) {
	var match json.RawMessage
	count := 0
	for _, relation := range relations {
		if relation.Rel == rel {
			match = relation.Val
			count++
		}
	}
	if count != 1 {
		return nil, false
	}
	return match, true
}

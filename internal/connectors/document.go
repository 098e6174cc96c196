package connectors

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// documentConnector adapts an external MongoDB collection. The locator is
// mongodb://host:port/database/collection; data requests filter documents
// by exact field value.
type documentConnector struct {
	cfg        Config
	client     *mongo.Client
	database   string
	collection string
}

// NewDocument constructs a connector for an external MongoDB collection.
func NewDocument(cfg Config) (Connector, error) {
	uri, database, collection, err := splitDocumentLocator(cfg.Locator)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connectors: connect document store: %w", err)
	}

	return &documentConnector{
		cfg:        cfg,
		client:     client,
		database:   database,
		collection: collection,
	}, nil
}

func (d *documentConnector) Locator() string { return d.cfg.Locator }

func (d *documentConnector) Capabilities() Capabilities { return Capabilities{} }

func (d *documentConnector) FetchData(ctx context.Context, params url.Values) (*Payload, error) {
	filter := bson.M{}
	for key, values := range params {
		if len(values) == 1 {
			filter[key] = convertScalar(values[0])
			continue
		}
		converted := make([]any, 0, len(values))
		for _, value := range values {
			converted = append(converted, convertScalar(value))
		}
		filter[key] = bson.M{"$in": converted}
	}

	d.cfg.record()

	coll := d.client.Database(d.database).Collection(d.collection)
	cursor, err := coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer cursor.Close(ctx)

	rows := make([]bson.M, 0)
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, &UpstreamError{Err: err}
	}

	return jsonPayload(rows)
}

func (d *documentConnector) FetchMetadata(ctx context.Context, params url.Values) (*Payload, error) {
	return nil, unsupported("metadata")
}

func (d *documentConnector) ListDatasets(ctx context.Context, params url.Values) ([]string, error) {
	return nil, unsupported("datasets")
}

func (d *documentConnector) Descend(ctx context.Context, id string) (Connector, error) {
	return nil, unsupported("catalogue")
}

// Close disconnects from the document store.
func (d *documentConnector) Close() error {
	return d.client.Disconnect(context.Background())
}

func splitDocumentLocator(locator string) (uri, database, collection string, err error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", "", "", fmt.Errorf("connectors: invalid document locator: %w", err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return "", "", "", fmt.Errorf("connectors: document locator %q must be mongodb://host/<database>/<collection>", locator)
	}

	base := *u
	base.Path = ""
	return base.String(), segments[0], segments[1], nil
}

// convertScalar attempts numeric interpretation of a query value so filters
// match numerically-typed document fields.
func convertScalar(value string) any {
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

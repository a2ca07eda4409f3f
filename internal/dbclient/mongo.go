package dbclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"linkbio/internal/config"
	"linkbio/internal/domain"
)

// mongoStore keeps one record per path: {_id: path, doc: {...}}.
type mongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// buildMongoURI returns the connection URI and database name for cfg.
func buildMongoURI(cfg config.StoreConfig, password string) (uri, dbName string) {
	switch {
	case cfg.DSN != "":
		uri = cfg.DSN
	// A host that is already a full connection string (Atlas mongodb+srv://
	// or mongodb://) is used as is.
	case strings.HasPrefix(cfg.Host, "mongodb+srv://") || strings.HasPrefix(cfg.Host, "mongodb://"):
		uri = cfg.Host
	default:
		port := cfg.Port
		if port == 0 {
			port = 27017
		}
		if cfg.Username != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Username, password, cfg.Host, port)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d", cfg.Host, port)
		}
		if cfg.SSLMode == "require" {
			uri += "?tls=true"
		}
	}
	// Replace <password> placeholder commonly found in Atlas connection strings
	if password != "" {
		uri = strings.ReplaceAll(uri, "<password>", password)
		uri = strings.ReplaceAll(uri, "<db_password>", password)
	}

	dbName = cfg.Database
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}
	if dbName == "" {
		dbName = "linkbio"
	}
	return uri, dbName
}

// databaseFromURI extracts the path segment of user:pass@host/DB_NAME?params.
func databaseFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		if strings.HasPrefix(rest, prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	if at := strings.Index(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	slash := strings.Index(rest, "/")
	if slash == -1 {
		return ""
	}
	name := rest[slash+1:]
	if q := strings.Index(name, "?"); q != -1 {
		name = name[:q]
	}
	return name
}

func openMongoStore(ctx context.Context, cfg config.StoreConfig, password string, logger *zap.Logger) (*mongoStore, error) {
	uri, dbName := buildMongoURI(cfg, password)

	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	logger.Info("connecting to mongodb", zap.String("uri", logURI), zap.String("database", dbName))

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "documents"
	}
	return &mongoStore{client: client, coll: client.Database(dbName).Collection(collection)}, nil
}

func (m *mongoStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	raw, err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: path}}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	doc, ok := raw.Lookup("doc").DocumentOK()
	if !ok {
		return json.RawMessage("{}"), nil
	}
	out, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("get %s: encode: %w", path, err)
	}
	return json.RawMessage(out), nil
}

func (m *mongoStore) Set(ctx context.Context, path string, value any) error {
	doc, err := toBSON(value)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	_, err = m.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: path}},
		bson.D{{Key: "_id", Value: path}, {Key: "doc", Value: doc}},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Update sets doc.<field> for every field, creating the record if absent.
func (m *mongoStore) Update(ctx context.Context, path string, fields map[string]any) error {
	values, err := toBSON(fields)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	set := bson.D{}
	for _, e := range values {
		set = append(set, bson.E{Key: "doc." + e.Key, Value: e.Value})
	}
	_, err = m.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: path}},
		bson.D{{Key: "$set", Value: set}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

func (m *mongoStore) Increment(ctx context.Context, path, field string, delta int64) error {
	_, err := m.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: path}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "doc." + field, Value: delta}}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("increment %s: %w", path, err)
	}
	return nil
}

func (m *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// toBSON converts any JSON-encodable value to a BSON document through
// relaxed Extended JSON so that json tags decide field names.
func toBSON(v any) (bson.D, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("convert to bson: %w", err)
	}
	return doc, nil
}

package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tepuyroraima/roster/app/roster"
)

// MongoParams defines connection parameters of the remote document store
type MongoParams struct {
	URI             string        // mongodb://host:port connection string
	Database        string        // database name
	Collection      string        // collection of student documents
	Timeout         time.Duration // per-operation timeout, 0 means 10s
	ConnectAttempts int           // ping attempts on connect, 0 means 3
}

// MongoStore implements persistence with one MongoDB document per student
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

// NewMongoStore connects to MongoDB and verifies the connection with ping, retried with backoff
func NewMongoStore(ctx context.Context, p MongoParams) (*MongoStore, error) {
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}
	if p.ConnectAttempts <= 0 {
		p.ConnectAttempts = 3
	}

	opts := options.Client().ApplyURI(p.URI).SetConnectTimeout(p.Timeout).SetServerSelectionTimeout(p.Timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	rpt := repeater.New(&strategy.Backoff{Repeats: p.ConnectAttempts, Duration: 500 * time.Millisecond, Factor: 2, Jitter: true})
	err = rpt.Do(ctx, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()
		if pingErr := client.Ping(pingCtx, readpref.Primary()); pingErr != nil {
			log.Printf("[WARN] mongo ping failed: %v", pingErr)
			return pingErr
		}
		return nil
	})
	if err != nil {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if dErr := client.Disconnect(disconnectCtx); dErr != nil {
			return nil, fmt.Errorf("failed to ping mongo: %w (also failed to disconnect: %v)", err, dErr)
		}
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	log.Printf("[INFO] connected to mongo, db=%s, collection=%s", p.Database, p.Collection)
	return &MongoStore{
		client:  client,
		coll:    client.Database(p.Database).Collection(p.Collection),
		timeout: p.Timeout,
	}, nil
}

// List returns students ordered by enrollment date, newest first.
// Documents without a valid enrollment date are skipped.
func (m *MongoStore) List(ctx context.Context) ([]roster.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	cursor, err := m.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "fechaInscripcion", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer func() {
		if closeErr := cursor.Close(ctx); closeErr != nil {
			log.Printf("[WARN] failed to close cursor: %v", closeErr)
		}
	}()

	students := []roster.Student{}
	for cursor.Next(ctx) {
		st, err := decodeStudentDoc(cursor.Current)
		if err != nil {
			log.Printf("[WARN] skipping student document: %v", err)
			continue
		}
		students = append(students, st)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating students: %w", err)
	}
	return students, nil
}

// Get returns a single student by id
func (m *MongoStore) Get(ctx context.Context, id string) (roster.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	raw, err := m.coll.FindOne(ctx, idFilter(id)).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return roster.Student{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return roster.Student{}, fmt.Errorf("failed to get student %s: %w", id, err)
	}
	return decodeStudentDoc(raw)
}

// Add inserts a new document, the enrollment date is assigned by the server
func (m *MongoStore) Add(ctx context.Context, d roster.Draft) (roster.Student, error) {
	id := primitive.NewObjectID()
	update := bson.M{
		"$set":         draftFields(d.Normalize()),
		"$currentDate": bson.M{"fechaInscripcion": bson.M{"$type": "date"}},
	}

	opCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if _, err := m.coll.UpdateOne(opCtx, bson.M{"_id": id}, update, options.Update().SetUpsert(true)); err != nil {
		return roster.Student{}, fmt.Errorf("failed to add student: %w", err)
	}

	st, err := m.Get(ctx, id.Hex())
	if err != nil {
		return roster.Student{}, fmt.Errorf("failed to read added student: %w", err)
	}
	log.Printf("[DEBUG] added student %s", st)
	return st, nil
}

// Update replaces editable fields of the document, enrollment date is kept
func (m *MongoStore) Update(ctx context.Context, id string, d roster.Draft) (roster.Student, error) {
	opCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	res, err := m.coll.UpdateOne(opCtx, idFilter(id), bson.M{"$set": draftFields(d.Normalize())})
	if err != nil {
		return roster.Student{}, fmt.Errorf("failed to update student %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return roster.Student{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	return m.Get(ctx, id)
}

// Delete removes the document, deleting an unknown id is a no-op
func (m *MongoStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	res, err := m.coll.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return fmt.Errorf("failed to delete student %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		log.Printf("[DEBUG] delete of unknown student %s ignored", id)
	}
	return nil
}

// Close disconnects from MongoDB
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// idFilter matches ObjectID keys for hex ids and falls back to plain string keys
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"_id": id}
}

func draftFields(d roster.Draft) bson.M {
	return bson.M{
		"nombre":          d.Nombre,
		"apellido":        d.Apellido,
		"cedula":          d.Cedula,
		"telefono":        d.Telefono,
		"fechaNacimiento": d.FechaNacimiento,
		"direccion":       d.Direccion,
		"instrumento":     d.Instrumento,
	}
}

// decodeStudentDoc converts a raw document to a student. The enrollment date must be a date,
// birth date may be a date or an ISO-8601 string, missing telefono gets the sentinel.
func decodeStudentDoc(raw bson.Raw) (roster.Student, error) {
	var st roster.Student

	idVal := raw.Lookup("_id")
	if oid, ok := idVal.ObjectIDOK(); ok {
		st.ID = oid.Hex()
	} else if sid, ok := idVal.StringValueOK(); ok && sid != "" {
		st.ID = sid
	} else {
		return roster.Student{}, errors.New("document without usable _id")
	}

	enrolled, ok := raw.Lookup("fechaInscripcion").TimeOK()
	if !ok {
		return roster.Student{}, fmt.Errorf("document %s: missing or malformed fechaInscripcion", st.ID)
	}
	st.FechaInscripcion = enrolled.UTC()

	str := func(key string) string {
		v, _ := raw.Lookup(key).StringValueOK()
		return v
	}
	st.Nombre = str("nombre")
	st.Apellido = str("apellido")
	st.Cedula = str("cedula")
	st.Telefono = str("telefono")
	st.Direccion = str("direccion")
	st.Instrumento = str("instrumento")
	if st.Telefono == "" {
		st.Telefono = roster.NoPhone
	}

	birth := raw.Lookup("fechaNacimiento")
	if t, ok := birth.TimeOK(); ok {
		st.FechaNacimiento = t.UTC()
	} else if s, ok := birth.StringValueOK(); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			st.FechaNacimiento = t.UTC()
		}
	}
	return st, nil
}

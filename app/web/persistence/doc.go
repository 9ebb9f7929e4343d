// Package persistence provides storage adapters for the student roster.
// SQLiteStore keeps the whole roster as a single JSON array entry of a local
// key-value table (WAL mode), seeded with sample data on first use.
// MongoStore keeps one document per student in a remote collection.
// Both implement the web.Persistence interface.
package persistence

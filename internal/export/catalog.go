package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/FocuswithJustin/digitalsee/core/corpus"
	"github.com/FocuswithJustin/digitalsee/core/sqlite"
	"github.com/FocuswithJustin/digitalsee/core/tei"
)

var catalogSchema = []string{
	`CREATE TABLE documents (
		name      TEXT PRIMARY KEY,
		blake3    TEXT NOT NULL,
		size      INTEGER NOT NULL,
		title     TEXT,
		author    TEXT,
		publisher TEXT,
		date      TEXT
	)`,
	`CREATE TABLE document_authors (document TEXT NOT NULL REFERENCES documents(name), author TEXT NOT NULL, PRIMARY KEY (document, author))`,
	`CREATE TABLE document_places (document TEXT NOT NULL REFERENCES documents(name), place TEXT NOT NULL, PRIMARY KEY (document, place))`,
	`CREATE TABLE document_keywords (document TEXT NOT NULL REFERENCES documents(name), keyword TEXT NOT NULL, PRIMARY KEY (document, keyword))`,
	`CREATE TABLE author_places (author TEXT NOT NULL, place TEXT NOT NULL, PRIMARY KEY (author, place))`,
	`CREATE TABLE author_keywords (author TEXT NOT NULL, keyword TEXT NOT NULL, PRIMARY KEY (author, keyword))`,
}

// CreateCatalog writes docs, their extracted values and the author index
// built from them to a new SQLite database at dst. dst must not exist. On
// failure the partly written file is removed.
func CreateCatalog(ctx context.Context, dst string, docs []*corpus.Document) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("catalog %s already exists", dst)
	}

	db, err := sqlite.Open(dst)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	err = writeCatalog(ctx, db, docs)
	if cerr := db.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close catalog: %w", cerr)
	}
	if err != nil {
		os.Remove(dst)
		os.Remove(dst + "-journal")
		return err
	}
	return nil
}

func writeCatalog(ctx context.Context, db *sql.DB, docs []*corpus.Document) error {
	if err := sqlite.Exec(ctx, db, catalogSchema...); err != nil {
		return err
	}

	ix := corpus.BuildIndex(docs)
	return sqlite.WithTx(ctx, db, func(tx *sql.Tx) error {
		for _, doc := range docs {
			if err := insertDocument(ctx, tx, doc); err != nil {
				return fmt.Errorf("catalog %s: %w", doc.Name, err)
			}
		}
		if err := insertPairs(ctx, tx, `INSERT INTO author_places (author, place) VALUES (?, ?)`, ix.AuthorPlaces); err != nil {
			return err
		}
		return insertPairs(ctx, tx, `INSERT INTO author_keywords (author, keyword) VALUES (?, ?)`, ix.AuthorKeywords)
	})
}

func insertDocument(ctx context.Context, tx *sql.Tx, doc *corpus.Document) error {
	meta := doc.Meta
	if meta == nil {
		meta = tei.Extract(doc.Tree)
	}
	h := meta.Header
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (name, blake3, size, title, author, publisher, date) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.Name, doc.Hash, doc.Size, nullable(h.Title), nullable(h.Author), nullable(h.Publisher), nullable(h.Date),
	); err != nil {
		return err
	}

	for _, rel := range []struct {
		stmt string
		set  tei.Set
	}{
		{`INSERT INTO document_authors (document, author) VALUES (?, ?)`, meta.Authors},
		{`INSERT INTO document_places (document, place) VALUES (?, ?)`, meta.Places},
		{`INSERT INTO document_keywords (document, keyword) VALUES (?, ?)`, meta.Keywords},
	} {
		for _, v := range rel.set.Sorted() {
			if _, err := tx.ExecContext(ctx, rel.stmt, doc.Name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertPairs(ctx context.Context, tx *sql.Tx, stmt string, m map[string]tei.Set) error {
	for _, author := range tei.NewSet(keys(m)...).Sorted() {
		for _, v := range m[author].Sorted() {
			if _, err := tx.ExecContext(ctx, stmt, author, v); err != nil {
				return fmt.Errorf("catalog index %s: %w", author, err)
			}
		}
	}
	return nil
}

func keys(m map[string]tei.Set) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

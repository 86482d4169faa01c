package psxtim

import (
	"crypto/sha1"
	"database/sql"
	"errors"
	"fmt"
	"io/ioutil"

	"github.com/bodgit/psxtim/tim"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
	"github.com/segmentio/ksuid"
)

// Catalog is a database of scanned files and the records found in them.
type Catalog struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Source is a scanned file.
type Source struct {
	ID      string
	Path    string
	SHA1    string
	Size    int64
	Records int
}

// Entry describes a record in a Source.
type Entry struct {
	Index         int
	Offset        int
	Length        int
	Mode          tim.Mode
	Width, Height int
	SHA1          string
	Valid         bool
}

// NewCatalog opens the catalog in file, creating it if necessary.
func NewCatalog(file string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	c, err := newCatalog(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func newCatalog(db *sql.DB) (*Catalog, error) {
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS source (id TEXT PRIMARY KEY NOT NULL, path TEXT NOT NULL, sha1 TEXT NOT NULL UNIQUE, size INTEGER NOT NULL)"); err != nil {
		return nil, err
	}

	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS record (source_id TEXT NOT NULL, idx INTEGER NOT NULL, pos INTEGER NOT NULL, length INTEGER NOT NULL, mode INTEGER NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, valid INTEGER NOT NULL, sha1 TEXT NOT NULL, data BLOB NOT NULL, PRIMARY KEY(source_id, idx), FOREIGN KEY(source_id) REFERENCES source(id) ON DELETE CASCADE)"); err != nil {
		return nil, err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}

	return &Catalog{
		db:  db,
		enc: enc,
		dec: dec,
	}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	c.dec.Close()
	if err := c.enc.Close(); err != nil {
		return err
	}
	return c.db.Close()
}

func digest(b []byte) string {
	return fmt.Sprintf("%X", sha1.Sum(b))
}

// Add records the records found in b, read from path. Adding the same
// content again replaces the earlier entry. It returns the id of the
// source.
func (c *Catalog) Add(path string, b []byte, records []*tim.Record) (string, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	sha := digest(b)
	if _, err := tx.Exec("DELETE FROM source WHERE sha1 = ?", sha); err != nil {
		return "", err
	}

	id := ksuid.New().String()
	if _, err := tx.Exec("INSERT INTO source (id, path, sha1, size) VALUES (?, ?, ?, ?)", id, path, sha, len(b)); err != nil {
		return "", err
	}

	stmt, err := tx.Prepare("INSERT INTO record (source_id, idx, pos, length, mode, width, height, valid, sha1, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, r := range records {
		bounds := r.Bounds()
		valid := r.Validate() == nil
		if _, err := stmt.Exec(id, i, r.Offset, r.Len(), int(r.Header.Mode), bounds.Dx(), bounds.Dy(), valid, digest(r.Raw), c.enc.EncodeAll(r.Raw, nil)); err != nil {
			return "", err
		}
	}

	return id, tx.Commit()
}

// Sources returns every scanned file, oldest first.
func (c *Catalog) Sources() ([]Source, error) {
	rows, err := c.db.Query("SELECT s.id, s.path, s.sha1, s.size, COUNT(r.idx) FROM source AS s LEFT JOIN record AS r ON r.source_id = s.id GROUP BY s.id ORDER BY s.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.SHA1, &s.Size, &s.Records); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// Entries returns the records of the source with the given id or sha1.
func (c *Catalog) Entries(source string) ([]Entry, error) {
	rows, err := c.db.Query("SELECT r.idx, r.pos, r.length, r.mode, r.width, r.height, r.valid, r.sha1 FROM record AS r JOIN source AS s ON r.source_id = s.id WHERE s.id = ? OR s.sha1 = ? ORDER BY r.idx", source, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Index, &e.Offset, &e.Length, &e.Mode, &e.Width, &e.Height, &e.Valid, &e.SHA1); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Record returns the bytes of the record at index i of the source with the
// given id or sha1, or nil if there is no such record.
func (c *Catalog) Record(source string, i int) ([]byte, error) {
	var data []byte
	switch err := c.db.QueryRow("SELECT r.data FROM record AS r JOIN source AS s ON r.source_id = s.id WHERE (s.id = ? OR s.sha1 = ?) AND r.idx = ?", source, source, i).Scan(&data); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return c.dec.DecodeAll(data, nil)
	default:
		return nil, err
	}
}

var errNoCatalog = errors.New("no catalog")

// Index scans file and adds what was found to the catalog.
func (t *Tool) Index(file string) (string, int, error) {
	if t.db == nil {
		return "", 0, errNoCatalog
	}

	b, err := t.Load(file)
	if err != nil {
		return "", 0, err
	}

	records := tim.Scan(b)
	t.logger.Printf("Found %d records in \"%s\"\n", len(records), file)

	id, err := t.db.Add(file, b, records)
	if err != nil {
		return "", 0, err
	}
	return id, len(records), nil
}

// Fetch writes record i of the given catalogued source to dst.
func (t *Tool) Fetch(source string, i int, dst string) error {
	if t.db == nil {
		return errNoCatalog
	}

	b, err := t.db.Record(source, i)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("no record %d in %s", i, source)
	}

	return ioutil.WriteFile(dst, b, 0644)
}

package backends

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/uploader/internal/uploader"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs   []execCall
	tag     string
	execErr error
	names   []string
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag(f.tag), nil
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return &fakeRows{values: f.names, pos: -1}, nil
}

// fakeRows yields one text column per row.
type fakeRows struct {
	values []string
	pos    int
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.closed {
		return false
	}
	r.pos++
	return r.pos < len(r.values)
}

func (r *fakeRows) Scan(dest ...any) error {
	*(dest[0].(*string)) = r.values[r.pos]
	return nil
}

func (r *fakeRows) Values() ([]any, error) {
	return []any{r.values[r.pos]}, nil
}

func TestPostgres_Upload(t *testing.T) {
	db := &fakeDB{tag: "INSERT 0 1"}
	p := NewPostgres(db, 0)

	msg, err := p.Upload(context.Background(), uploader.NewBytesFile("doc.pdf", "application/pdf", []byte("%PDF")))
	require.NoError(t, err)
	assert.Equal(t, "Success: doc.pdf saved", msg)

	require.Len(t, db.execs, 1)
	call := db.execs[0]
	assert.True(t, strings.Contains(call.sql, "ON CONFLICT (name)"))
	assert.Equal(t, []any{"doc.pdf", "application/pdf", int64(4), []byte("%PDF")}, call.args)
}

func TestPostgres_UploadFailures(t *testing.T) {
	f := uploader.NewBytesFile("doc.pdf", "application/pdf", nil)

	p := NewPostgres(&fakeDB{tag: "INSERT 0 0"}, 0)
	_, err := p.Upload(context.Background(), f)
	require.EqualError(t, err, "Error: doc.pdf not saved")

	p = NewPostgres(&fakeDB{execErr: errors.New("dial tcp: connection refused")}, 0)
	_, err = p.Upload(context.Background(), f)
	require.Error(t, err)
	assert.Equal(t, "STO001", uploader.MapError(err).Code)

	p = NewPostgres(&fakeDB{tag: "INSERT 0 1"}, 2)
	_, err = p.Upload(context.Background(), uploader.NewBytesFile("big.bin", "", []byte("123")))
	require.Error(t, err)
	assert.Equal(t, "FILE001", uploader.MapError(err).Code)
}

func TestPostgres_Delete(t *testing.T) {
	db := &fakeDB{tag: "DELETE 1"}
	p := NewPostgres(db, 0)

	require.NoError(t, p.Delete(context.Background(), uploader.NewBytesFile("doc.pdf", "", nil)))
	require.Len(t, db.execs, 1)
	assert.Equal(t, deleteFile, db.execs[0].sql)
	assert.Equal(t, []any{"doc.pdf"}, db.execs[0].args)
}

func TestPostgres_List(t *testing.T) {
	p := NewPostgres(&fakeDB{names: []string{"a.png", "b.png"}}, 0)

	names, err := p.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png"}, names)
	require.NoError(t, p.Close())
}

func TestMigrationsEmbedded(t *testing.T) {
	data, err := migrations.ReadFile("migrations/00001_uploaded_files.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS uploaded_files")
}

package sqlkit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestRows_TypedExtraction(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	users := NewTable("users")
	id := BigInt(users, "id")
	name := VarChar(users, "name", 64)
	bio := NullText(users, "bio")

	tmpl, err := Select(users)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	mock.ExpectQuery(tmpl.SQL()).WillReturnRows(
		sqlmock.NewRows([]string{"users.id", "users.name", "users.bio"}).
			AddRow(int64(1), "Alice", "hello").
			AddRow(int64(2), "Bob", nil),
	)

	rows, err := tmpl.Query(context.Background(), db)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		t.Fatal("Expected first row")
	}

	gotID, err := id.Get(rows)
	if err != nil {
		t.Fatalf("Get id failed: %v", err)
	}
	if gotID != 1 {
		t.Errorf("Expected id 1, got %d", gotID)
	}

	gotName, err := name.Get(rows)
	if err != nil {
		t.Fatalf("Get name failed: %v", err)
	}
	if gotName != "Alice" {
		t.Errorf("Expected name Alice, got %s", gotName)
	}

	gotBio, err := bio.Get(rows)
	if err != nil {
		t.Fatalf("Get bio failed: %v", err)
	}
	if !gotBio.Valid || gotBio.V != "hello" {
		t.Errorf("Expected valid bio hello, got %+v", gotBio)
	}

	if !rows.Next() {
		t.Fatal("Expected second row")
	}

	gotBio, err = bio.Get(rows)
	if err != nil {
		t.Fatalf("Get bio failed: %v", err)
	}
	if gotBio.Valid {
		t.Errorf("Expected NULL bio, got %+v", gotBio)
	}

	if rows.Next() {
		t.Error("Expected exhausted result set")
	}
	if err := rows.Err(); err != nil {
		t.Errorf("Expected no iteration error, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestRows_NullInNonNullColumn(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	users := NewTable("users")
	name := VarChar(users, "name", 64)

	tmpl, err := Select(users)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	mock.ExpectQuery(tmpl.SQL()).WillReturnRows(
		sqlmock.NewRows([]string{"users.name"}).AddRow(nil),
	)

	rows, err := tmpl.Query(context.Background(), db)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		t.Fatal("Expected a row")
	}

	_, err = name.Get(rows)
	if !IsNotNullViolation(err) {
		t.Errorf("Expected not-null violation, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestRows_MissingColumn(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	users := NewTable("users")
	BigInt(users, "id")
	name := VarChar(users, "name", 64)

	// The result set only carries id; asking for name must fail, never
	// default.
	mock.ExpectQuery(`SELECT users.id AS "users.id" FROM users`).WillReturnRows(
		sqlmock.NewRows([]string{"users.id"}).AddRow(int64(1)),
	)

	rows, err := db.Query(context.Background(), `SELECT users.id AS "users.id" FROM users`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		t.Fatal("Expected a row")
	}

	_, err = name.Get(rows)
	if !IsColumnMissing(err) {
		t.Errorf("Expected column-missing error, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestRows_UnqualifiedLabelDoesNotMatch(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	users := NewTable("users")
	id := BigInt(users, "id")

	// The caller dropped the qualified alias, so table identity is lost.
	mock.ExpectQuery("SELECT id FROM users").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(int64(1)),
	)

	rows, err := db.Query(context.Background(), "SELECT id FROM users")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		t.Fatal("Expected a row")
	}

	if _, err := id.Get(rows); !IsColumnMissing(err) {
		t.Errorf("Expected column-missing error for unqualified label, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestRows_LabelLookupIsCaseInsensitive(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	users := NewTable("Users")
	id := BigInt(users, "ID")

	mock.ExpectQuery("SELECT 1").WillReturnRows(
		sqlmock.NewRows([]string{"users.id"}).AddRow(int64(5)),
	)

	rows, err := db.Query(context.Background(), "SELECT 1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		t.Fatal("Expected a row")
	}

	got, err := id.Get(rows)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != 5 {
		t.Errorf("Expected 5, got %d", got)
	}

	expectationsMet(t, mock)
}

func TestRows_EphemeralColumn(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	agg := Ephemeral()
	cnt := BigInt(agg, "cnt")

	mock.ExpectQuery(`SELECT count(*) AS "cnt" FROM users`).WillReturnRows(
		sqlmock.NewRows([]string{"cnt"}).AddRow(int64(42)),
	)

	rows, err := db.Query(context.Background(), `SELECT count(*) AS "cnt" FROM users`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		t.Fatal("Expected a row")
	}

	got, err := cnt.Get(rows)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}

	expectationsMet(t, mock)
}

func TestRows_KindRoundTrips(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	kinds := NewTable("kinds")
	b := Bool(kinds, "b")
	f := Float(kinds, "f")
	ts := Timestamp(kinds, "ts")
	raw := Bytes(kinds, "raw")
	uid := UUID(kinds, "uid")

	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	theID := uuid.MustParse("4f5c1c1e-9d28-4a49-b06a-7a1aa17f6c1d")

	tmpl, err := Select(kinds)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	mock.ExpectQuery(tmpl.SQL()).WillReturnRows(
		sqlmock.NewRows([]string{"kinds.b", "kinds.f", "kinds.ts", "kinds.raw", "kinds.uid"}).
			AddRow(true, 3.5, when, []byte{0x01, 0x02}, theID.String()),
	)

	rows, err := tmpl.Query(context.Background(), db)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		t.Fatal("Expected a row")
	}

	if got, err := b.Get(rows); err != nil || got != true {
		t.Errorf("Expected true, got %v (%v)", got, err)
	}
	if got, err := f.Get(rows); err != nil || got != 3.5 {
		t.Errorf("Expected 3.5, got %v (%v)", got, err)
	}
	if got, err := ts.Get(rows); err != nil || !got.Equal(when) {
		t.Errorf("Expected %v, got %v (%v)", when, got, err)
	}
	if got, err := raw.Get(rows); err != nil || len(got) != 2 || got[0] != 0x01 {
		t.Errorf("Expected bytes 0102, got %v (%v)", got, err)
	}
	if got, err := uid.Get(rows); err != nil || got != theID {
		t.Errorf("Expected %v, got %v (%v)", theID, got, err)
	}

	expectationsMet(t, mock)
}

func TestRows_DecodeMismatch(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	users := NewTable("users")
	id := BigInt(users, "id")

	mock.ExpectQuery("SELECT 1").WillReturnRows(
		sqlmock.NewRows([]string{"users.id"}).AddRow("definitely not an int"),
	)

	rows, err := db.Query(context.Background(), "SELECT 1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		t.Fatal("Expected a row")
	}

	if _, err := id.Get(rows); !IsTypeMismatch(err) {
		t.Errorf("Expected type mismatch on decode, got %v", err)
	}

	expectationsMet(t, mock)
}

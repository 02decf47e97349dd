package sqlkit

import (
	"errors"
	"strings"
	"testing"
)

func TestCompile_BindingOrderFollowsText(t *testing.T) {
	users := NewTable("users")
	id := BigInt(users, "id")
	name := VarChar(users, "name", 64)

	// name's placeholder occurs before id's, so it must bind position 1.
	tmpl, err := Compile(
		"UPDATE users SET name = "+name.Placeholder()+" WHERE id = "+id.Placeholder(),
		users,
	)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	want := "UPDATE users SET name = $1 WHERE id = $2"
	if tmpl.SQL() != want {
		t.Errorf("Expected %q, got %q", want, tmpl.SQL())
	}

	if tmpl.bindings[0].col != AnyColumn(name) || tmpl.bindings[1].col != AnyColumn(id) {
		t.Error("Expected binding order to follow text offsets, not declaration order")
	}
}

func TestCompile_RepeatedPlaceholder(t *testing.T) {
	users := NewTable("users")
	name := VarChar(users, "name", 64)

	tmpl, err := Compile(
		"SELECT * FROM users WHERE first = "+name.Placeholder()+" OR last = "+name.Placeholder(),
		users,
	)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if tmpl.NumParams() != 2 {
		t.Errorf("Expected one binding per occurrence, got %d", tmpl.NumParams())
	}
	if !strings.Contains(tmpl.SQL(), "$1") || !strings.Contains(tmpl.SQL(), "$2") {
		t.Errorf("Expected two positional markers, got %q", tmpl.SQL())
	}
	for _, b := range tmpl.bindings {
		if b.col != AnyColumn(name) {
			t.Error("Expected every occurrence to bind the same column")
		}
	}
}

func TestCompile_UnusedColumnsAreFine(t *testing.T) {
	users := NewTable("users")
	id := BigInt(users, "id")
	VarChar(users, "name", 64)

	// name never appears; only id binds.
	tmpl, err := Compile("DELETE FROM users WHERE id = "+id.Placeholder(), users)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if tmpl.NumParams() != 1 {
		t.Errorf("Expected 1 param, got %d", tmpl.NumParams())
	}
}

func TestCompile_NoPlaceholders(t *testing.T) {
	users := NewTable("users")
	BigInt(users, "id")

	tmpl, err := Compile("SELECT count(*) FROM users", users)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if tmpl.NumParams() != 0 {
		t.Errorf("Expected no params, got %d", tmpl.NumParams())
	}
	if tmpl.SQL() != "SELECT count(*) FROM users" {
		t.Errorf("Expected text unchanged, got %q", tmpl.SQL())
	}
}

func TestCompile_MultipleTables(t *testing.T) {
	users := NewTable("users")
	uid := BigInt(users, "id")
	orders := NewTable("orders")
	ouser := BigInt(orders, "user_id")

	tmpl, err := Compile(
		"SELECT "+users.Selection()+" FROM users JOIN orders ON orders.user_id = "+ouser.Placeholder()+
			" WHERE users.id = "+uid.Placeholder(),
		users, orders,
	)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if tmpl.NumParams() != 2 {
		t.Errorf("Expected 2 params, got %d", tmpl.NumParams())
	}
	if tmpl.bindings[0].col != AnyColumn(ouser) || tmpl.bindings[1].col != AnyColumn(uid) {
		t.Error("Expected cross-table bindings in text order")
	}
}

func TestCompile_NamedParameters(t *testing.T) {
	users := NewTable("users")
	id := BigInt(users, "id")

	tmpl, err := Compile(
		"UPDATE users SET id = "+id.Placeholder()+" WHERE id = "+id.Placeholder("old"),
		users,
	)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if tmpl.NumParams() != 2 {
		t.Fatalf("Expected 2 params, got %d", tmpl.NumParams())
	}
	if tmpl.bindings[0].param != "" || tmpl.bindings[1].param != "old" {
		t.Errorf("Expected default then named binding, got %q and %q",
			tmpl.bindings[0].param, tmpl.bindings[1].param)
	}
}

func TestCompile_DuplicateTableConflict(t *testing.T) {
	users := NewTable("users")
	id := BigInt(users, "id")

	// Passing the same table twice scans the same placeholder twice and must
	// be rejected rather than silently doubling the binding list.
	_, err := Compile("DELETE FROM users WHERE id = "+id.Placeholder(), users, users)
	if err == nil {
		t.Fatal("Expected error for duplicate table")
	}
	if !errors.Is(err, ErrPlaceholderConflict) {
		t.Errorf("Expected placeholder conflict, got %v", err)
	}
}

func TestMustCompile_Panics(t *testing.T) {
	users := NewTable("users")
	id := BigInt(users, "id")

	defer func() {
		if recover() == nil {
			t.Error("Expected panic from MustCompile")
		}
	}()
	MustCompile("x = "+id.Placeholder(), users, users)
}

func TestInsert_EndToEnd(t *testing.T) {
	pairs := NewTable("pairs")
	Integer(pairs, "id")
	VarChar(pairs, "name", 32)

	tmpl, err := Insert(pairs)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	want := "INSERT INTO pairs (id, name) VALUES ($1, $2)"
	if tmpl.SQL() != want {
		t.Errorf("Expected %q, got %q", want, tmpl.SQL())
	}
}

func TestSelectBy(t *testing.T) {
	users := NewTable("users")
	id := BigInt(users, "id")
	VarChar(users, "name", 64)

	tmpl, err := SelectBy(users, id)
	if err != nil {
		t.Fatalf("SelectBy failed: %v", err)
	}

	want := `SELECT users.id AS "users.id", users.name AS "users.name" FROM users WHERE users.id = $1`
	if tmpl.SQL() != want {
		t.Errorf("Expected %q, got %q", want, tmpl.SQL())
	}
}

func TestUpdateBy(t *testing.T) {
	users := NewTable("users")
	id := BigInt(users, "id")
	VarChar(users, "name", 64)

	tmpl, err := UpdateBy(users, id)
	if err != nil {
		t.Fatalf("UpdateBy failed: %v", err)
	}

	want := "UPDATE users SET id = $1, name = $2 WHERE id = $3"
	if tmpl.SQL() != want {
		t.Errorf("Expected %q, got %q", want, tmpl.SQL())
	}
	if tmpl.bindings[2].param != "key" {
		t.Errorf("Expected WHERE binding on the key parameter, got %q", tmpl.bindings[2].param)
	}
}

func TestDeleteBy(t *testing.T) {
	users := NewTable("users")
	id := BigInt(users, "id")

	tmpl, err := DeleteBy(users, id)
	if err != nil {
		t.Fatalf("DeleteBy failed: %v", err)
	}

	want := "DELETE FROM users WHERE id = $1"
	if tmpl.SQL() != want {
		t.Errorf("Expected %q, got %q", want, tmpl.SQL())
	}
}

func TestInsertReturning(t *testing.T) {
	users := NewTable("users")
	BigInt(users, "id")
	VarChar(users, "name", 64)

	tmpl, err := InsertReturning(users)
	if err != nil {
		t.Fatalf("InsertReturning failed: %v", err)
	}

	want := `INSERT INTO users (id, name) VALUES ($1, $2) RETURNING id AS "users.id", name AS "users.name"`
	if tmpl.SQL() != want {
		t.Errorf("Expected %q, got %q", want, tmpl.SQL())
	}
}

package jsonx

import (
	"errors"
	"io"
	"reflect"
	"testing"
)

func TestDecode_KeepsMemberOrder(t *testing.T) {
	v, err := Decode([]byte(`{"title":"A","id":1,"nested":{"z":true,"a":null},"list":[{"b":1,"a":2}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"title":"A","id":1,"nested":{"z":true,"a":null},"list":[{"b":1,"a":2}]}`
	if string(got) != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestDecode_Scalars(t *testing.T) {
	tests := map[string]any{
		`3.5`:     3.5,
		` "x" `:   "x",
		`true`:    true,
		`null`:    nil,
		`[1,"a"]`: []any{float64(1), "a"},
		`[]`:      []any{},
	}
	for in, want := range tests {
		got, err := Decode([]byte(in))
		if err != nil {
			t.Errorf("%q: %v", in, err)
			continue
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%q: got %#v, want %#v", in, got, want)
		}
	}
}

func TestDecode_Rejects(t *testing.T) {
	for _, in := range []string{``, `   `, `{`, `{"a":}`, `{"a":1,}`, `[1 2]`, `{} {}`, `1 2`, `}`, `{1:2}`} {
		if _, err := Decode([]byte(in)); err == nil {
			t.Errorf("%q: accepted", in)
		}
	}
	if _, err := Decode(nil); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("empty: err=%v", err)
	}
	if _, err := Decode([]byte(`{} []`)); !errors.Is(err, ErrTrailingData) {
		t.Errorf("trailing: err=%v", err)
	}
}

func TestDecode_DuplicateKeyKeepsFirstPositionLastValue(t *testing.T) {
	v, err := Decode([]byte(`{"a":1,"b":2,"a":3}`))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := Marshal(v)
	if string(got) != `{"a":3,"b":2}` {
		t.Fatalf("got %s", got)
	}
}

func TestObject_IndexKeysComeFirst(t *testing.T) {
	o := NewObject()
	o.Set("name", "x")
	o.Set("10", "ten")
	o.Set("2", "two")
	o.Set("01", "padded")
	o.Set("0", "zero")
	want := []string{"0", "2", "10", "name", "01"}
	if got := o.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys=%v, want %v", got, want)
	}
}

func TestObject_SetKeepsPosition(t *testing.T) {
	o := NewObject()
	o.Set("a", 1)
	o.Set("b", 2)
	o.Set("a", "again")
	b, _ := Marshal(o)
	if string(b) != `{"a":"again","b":2}` {
		t.Fatalf("got %s", b)
	}
	c := o.Clone()
	c.Set("c", 3)
	if len(o.Keys()) != 2 || len(c.Keys()) != 3 {
		t.Fatalf("clone shares keys: %v %v", o.Keys(), c.Keys())
	}
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	o := NewObject()
	o.Set("<k>", "a & b")
	b, err := Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"<k>":"a & b"}` {
		t.Fatalf("got %s", b)
	}
}

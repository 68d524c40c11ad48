package restx

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"dqx0.com/go/rawrest/internal/jsonx"
)

func TestPending_FragmentsInOrder(t *testing.T) {
	p := NewPending(Match{Kind: RoutePostCollection, Collection: "a"})
	for _, frag := range []string{`{"na`, `me":"`, `x"}`} {
		if _, err := p.Write([]byte(frag)); err != nil {
			t.Fatal(err)
		}
	}
	if p.Fragments() != 3 || p.Len() != len(`{"name":"x"}`) {
		t.Fatalf("fragments=%d len=%d", p.Fragments(), p.Len())
	}
	v, err := p.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	obj, ok := v.(*jsonx.Object)
	if !ok {
		t.Fatalf("v=%#v", v)
	}
	if name, _ := obj.Get("name"); len(obj.Keys()) != 1 || name != "x" {
		t.Fatalf("v=%#v", v)
	}
}

func TestPending_FinalizeOnce(t *testing.T) {
	p := NewPending(Match{})
	p.Write([]byte(`1`))
	if _, err := p.Finalize(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Finalize(); !errors.Is(err, ErrFinalized) {
		t.Fatalf("second Finalize err=%v", err)
	}
	if _, err := p.Write([]byte(`2`)); !errors.Is(err, ErrFinalized) {
		t.Fatalf("Write after Finalize err=%v", err)
	}
	if _, err := p.Accumulate(strings.NewReader("3")); !errors.Is(err, ErrFinalized) {
		t.Fatalf("Accumulate after Finalize err=%v", err)
	}
}

func TestPending_MultiByteSplitAcrossReads(t *testing.T) {
	p := NewPending(Match{})
	v, err := p.Accumulate(iotest.OneByteReader(strings.NewReader(`{"t":"añadido €"}`)))
	if err != nil {
		t.Fatal(err)
	}
	if txt, _ := v.(*jsonx.Object).Get("t"); txt != "añadido €" {
		t.Fatalf("v=%#v", v)
	}
	if p.Fragments() != len(`{"t":"añadido €"}`) {
		t.Fatalf("fragments=%d", p.Fragments())
	}
}

func TestPending_InvalidJSON(t *testing.T) {
	for _, body := range []string{"", "{", "{'a':1}", "1 2"} {
		_, err := NewPending(Match{}).Accumulate(strings.NewReader(body))
		if !errors.Is(err, ErrInvalidJSON) {
			t.Fatalf("%q: err=%v", body, err)
		}
	}
}

func TestPending_CountsSurviveAFailedParse(t *testing.T) {
	p := NewPending(Match{})
	if _, err := p.Accumulate(strings.NewReader(`{"a":`)); !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("err=%v", err)
	}
	if p.Len() != 5 || p.Fragments() != 1 {
		t.Fatalf("len=%d fragments=%d", p.Len(), p.Fragments())
	}
}

func TestPending_ReadErrorIsInvalidInput(t *testing.T) {
	r := iotest.DataErrReader(iotest.TimeoutReader(strings.NewReader(`{"a":1}`)))
	p := NewPending(Match{})
	if _, err := p.Accumulate(r); !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("err=%v", err)
	}
	if _, err := p.Finalize(); !errors.Is(err, ErrFinalized) {
		t.Fatalf("state should be discarded, err=%v", err)
	}
}

func TestPending_NilBody(t *testing.T) {
	if _, err := NewPending(Match{}).Accumulate(nil); !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("err=%v", err)
	}
}

func TestPending_OversizedBodyIsInvalidInput(t *testing.T) {
	p := NewPending(Match{Kind: RoutePostCollection, Collection: "a"})
	_, err := p.Accumulate(tooLargeBody{})
	if !errors.Is(err, ErrInvalidJSON) || !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("err=%v", err)
	}
	if p.Len() != 0 || p.Fragments() != 0 {
		t.Fatalf("len=%d fragments=%d", p.Len(), p.Fragments())
	}
}

package domain

import (
	"encoding/json"
	"testing"
)

func TestRecordKeepsInsertionOrder(t *testing.T) {
	rec := NewRecord()
	rec.Set("b", "1")
	rec.Set("a", "2")
	rec.Set("b", "3")

	keys := rec.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("unexpected key order %v", keys)
	}
	if rec.Value("b") != "3" {
		t.Fatalf("expected overwrite to keep position and update value")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"b":"3","a":"2"}` {
		t.Fatalf("unexpected json %s", data)
	}
}

func TestRecordUnmarshalCoercesScalars(t *testing.T) {
	var rec Record
	if err := json.Unmarshal([]byte(`{"수량":10,"상품명":"사과","메모":null}`), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.Value("수량") != "10" || rec.Value("상품명") != "사과" {
		t.Fatalf("unexpected values %v", rec.Map())
	}
	if !rec.Has("메모") || rec.Value("메모") != "" {
		t.Fatalf("null should decode to empty string")
	}
	if keys := rec.Keys(); keys[0] != "수량" {
		t.Fatalf("expected source key order, got %v", keys)
	}
}

func TestRecordIsBlank(t *testing.T) {
	rec := NewRecord()
	rec.Set("a", "")
	if !rec.IsBlank() {
		t.Fatalf("expected blank record")
	}
	rec.Set("b", "x")
	if rec.IsBlank() {
		t.Fatalf("expected non-blank record")
	}
}

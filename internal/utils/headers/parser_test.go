package headers

import (
	"reflect"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	in := []string{
		"Referer: https://maps.example.com/place/x",
		"Cookie: session=abc",
		"no-separator",
		": value without a name",
	}
	out := ParseHeaders(in)
	expected := map[string]string{
		"Referer": "https://maps.example.com/place/x",
		"Cookie":  "session=abc",
	}
	if !reflect.DeepEqual(out, expected) {
		t.Fatalf("unexpected parse result: %#v", out)
	}
}

func TestParseHeaders_Empty(t *testing.T) {
	if out := ParseHeaders(nil); len(out) != 0 {
		t.Fatalf("expected empty map, got %#v", out)
	}
}

// internal/engine/snapshot/snapshot_test.go
package snapshot

import (
	"strings"
	"testing"
)

func TestSalvage_CollectsScriptGlobals(t *testing.T) {
	html := `
<html>
<head>
<script>
var reviewBatch = JSON.stringify({count: 3, next: "token-77"});
var loadedPages = 4;
</script>
<script src="https://cdn.example.com/app.js"></script>
</head>
<body><div>content</div></body>
</html>`

	got := Salvage(html)

	if !strings.Contains(got["reviewBatch"], "token-77") {
		t.Errorf("Expected reviewBatch to be salvaged, got %q", got["reviewBatch"])
	}
	if got["loadedPages"] != "4" {
		t.Errorf("Expected loadedPages '4', got %q", got["loadedPages"])
	}
}

func TestSalvage_IgnoresScriptErrors(t *testing.T) {
	html := `
<html><script>
document.querySelector(".missing").textContent = "boom";
</script>
<script>var survivor = "still here";</script>
</html>`

	got := Salvage(html)

	if got["survivor"] != "still here" {
		t.Errorf("A failing script must not stop later scripts, got %v", got)
	}
}

func TestSalvage_ExcludesStandardGlobals(t *testing.T) {
	got := Salvage(`<html><script>var only = 1;</script></html>`)

	for _, std := range []string{"window", "document", "JSON", "Object"} {
		if _, ok := got[std]; ok {
			t.Errorf("Standard global %q must not be salvaged", std)
		}
	}
	if got["only"] != "1" {
		t.Errorf("Expected user global salvaged, got %v", got)
	}
}

func TestSalvage_UnparseableInput(t *testing.T) {
	if got := Salvage(""); len(got) != 0 {
		t.Errorf("Expected nothing salvaged from empty input, got %v", got)
	}
}

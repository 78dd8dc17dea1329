// internal/export/html_test.go
package export

import (
	"strings"
	"testing"
)

func TestCleanHTML_StripsScriptsAndTracking(t *testing.T) {
	in := `<div class="jftiEf" data-review-id="r1" jslog="127691">` +
		`<script>track();</script><style>.x{}</style>` +
		`<span class="kvMYJc" aria-label="5 stars"></span>` +
		`<a href="https://x.test/profile" onclick="spy()" data-ved="abc">profile</a>` +
		`<img src="photo.jpg" alt="Photo" width="300">` +
		`</div>`

	out, err := CleanHTML(in)
	if err != nil {
		t.Fatalf("CleanHTML failed: %v", err)
	}

	for _, gone := range []string{"<script", "<style", "onclick", "data-ved", "jslog", "data-review-id", `class="kvMYJc"`, `width=`} {
		if strings.Contains(out, gone) {
			t.Errorf("Expected %q to be stripped:\n%s", gone, out)
		}
	}
	for _, kept := range []string{`aria-label="5 stars"`, `href="https://x.test/profile"`, `src="photo.jpg"`, `alt="Photo"`} {
		if !strings.Contains(out, kept) {
			t.Errorf("Expected %q to survive:\n%s", kept, out)
		}
	}
}

func TestCleanHTML_PlainTextSurvives(t *testing.T) {
	out, err := CleanHTML(`<div><span>Excellent coffee</span></div>`)
	if err != nil {
		t.Fatalf("CleanHTML failed: %v", err)
	}
	if !strings.Contains(out, "Excellent coffee") {
		t.Errorf("Text content lost:\n%s", out)
	}
}

// internal/engine/snapshot/snapshot.go
package snapshot

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
)

// Salvage executes the inline scripts of a dead surface's last HTML snapshot
// in a minimal JS environment and returns whatever non-standard globals they
// left behind. Listing pages often stash review payloads in script globals, so
// this gives the trace something to show when the browser died before the
// markup rendered.
//
// Best effort by nature: script errors are expected (there is no real DOM) and
// ignored.
func Salvage(html string) map[string]string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to parse snapshot HTML for salvage")
		return nil
	}

	vm := goja.New()

	// Mock just enough browser environment to let data-assignment scripts run.
	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("document", map[string]interface{}{})
	vm.Set("navigator", map[string]interface{}{"userAgent": ""})
	vm.Set("console", map[string]interface{}{
		"log":   func(call goja.FunctionCall) goja.Value { return nil },
		"warn":  func(call goja.FunctionCall) goja.Value { return nil },
		"error": func(call goja.FunctionCall) goja.Value { return nil },
	})

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if _, external := sel.Attr("src"); external {
			return
		}
		src := sel.Text()
		if src == "" {
			return
		}
		// Most scripts fail on the missing DOM; that is fine.
		_, _ = vm.RunString(src)
	})

	salvaged := make(map[string]string)
	for _, key := range vm.GlobalObject().Keys() {
		if isStandardGlobal(key) {
			continue
		}
		val := vm.Get(key)
		if val == nil {
			continue
		}
		exported := val.Export()
		if exported == nil {
			continue
		}
		s := fmt.Sprintf("%v", exported)
		if s == "" || len(s) > 4096 {
			continue
		}
		salvaged[key] = s
	}

	if len(salvaged) > 0 {
		log.Debug().Int("globals", len(salvaged)).Msg("Salvaged script globals from snapshot")
	}
	return salvaged
}

func isStandardGlobal(key string) bool {
	standards := map[string]bool{
		"window": true, "self": true, "document": true, "navigator": true, "console": true,
		"Object": true, "Array": true, "String": true, "Number": true, "Boolean": true,
		"Date": true, "Math": true, "JSON": true, "RegExp": true, "Error": true,
		"Function": true, "parseInt": true, "parseFloat": true, "isNaN": true,
		"isFinite": true, "encodeURI": true, "decodeURI": true, "encodeURIComponent": true,
		"decodeURIComponent": true, "undefined": true, "NaN": true, "Infinity": true,
		"globalThis": true,
	}
	return standards[key]
}

package matching

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// normalizeBrowser title-cases the client-reported browser name so "chrome"
// and "Chrome" persist identically. Unknown names pass through title-cased;
// an empty name stays empty.
func normalizeBrowser(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return cases.Title(language.Und).String(name)
}

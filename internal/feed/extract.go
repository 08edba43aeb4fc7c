package feed

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Tolerant fragment extraction over loosely structured feed XML. Real-world
// feeds are frequently malformed, so this deliberately scans text instead
// of rejecting input through a strict parser.

var (
	tagRegexMu    sync.Mutex
	tagRegexCache = map[string]*regexp.Regexp{}

	cdataRegex  = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	stripRegex  = regexp.MustCompile(`<[^>]*>`)
	entityPairs = strings.NewReplacer(
		"&quot;", `"`,
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&nbsp;", " ",
	)
)

func tagRegex(key, pattern string) *regexp.Regexp {
	tagRegexMu.Lock()
	defer tagRegexMu.Unlock()
	re, ok := tagRegexCache[key]
	if !ok {
		re = regexp.MustCompile(pattern)
		tagRegexCache[key] = re
	}
	return re
}

// ExtractTag returns the text between the first matching open/close pair of
// tag inside fragment, with any CDATA section unwrapped and surrounding
// whitespace trimmed. Returns the empty string when the tag is absent.
func ExtractTag(fragment, tag string) string {
	re := tagRegex("tag:"+tag, fmt.Sprintf(`(?is)<%s[^>]*>(.*?)</%s>`, regexp.QuoteMeta(tag), regexp.QuoteMeta(tag)))
	m := re.FindStringSubmatch(fragment)
	if m == nil {
		return ""
	}
	content := strings.TrimSpace(m[1])
	if cm := cdataRegex.FindStringSubmatch(content); cm != nil {
		content = strings.TrimSpace(cm[1])
	}
	return content
}

// ExtractAttr returns the value of attr on the first matching tag inside
// fragment, or the empty string when absent.
func ExtractAttr(fragment, tag, attr string) string {
	re := tagRegex("attr:"+tag+":"+attr,
		fmt.Sprintf(`(?i)<%s[^>]*\s%s=["']([^"']*)["'][^>]*>`, regexp.QuoteMeta(tag), regexp.QuoteMeta(attr)))
	m := re.FindStringSubmatch(fragment)
	if m == nil {
		return ""
	}
	return m[1]
}

// CleanText strips all markup tags and decodes the common HTML entities
// (&quot; &amp; &lt; &gt; &nbsp;), trimming surrounding whitespace.
func CleanText(input string) string {
	out := stripRegex.ReplaceAllString(input, "")
	out = entityPairs.Replace(out)
	return strings.TrimSpace(out)
}

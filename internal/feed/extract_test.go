package feed

import (
	"testing"
)

func TestExtractTag(t *testing.T) {
	testCases := []struct {
		name     string
		fragment string
		tag      string
		want     string
	}{
		{
			name:     "plain text",
			fragment: "<item><title>Match Report</title></item>",
			tag:      "title",
			want:     "Match Report",
		},
		{
			name:     "cdata unwrapped",
			fragment: "<item><title><![CDATA[A & B]]></title></item>",
			tag:      "title",
			want:     "A & B",
		},
		{
			name:     "surrounding whitespace trimmed",
			fragment: "<item><title>\n  Late Winner  \n</title></item>",
			tag:      "title",
			want:     "Late Winner",
		},
		{
			name:     "tag with attributes",
			fragment: `<entry><content type="html">body</content></entry>`,
			tag:      "content",
			want:     "body",
		},
		{
			name:     "case insensitive",
			fragment: "<item><PubDate>Mon, 02 Jan 2006 15:04:05 -0700</PubDate></item>",
			tag:      "pubDate",
			want:     "Mon, 02 Jan 2006 15:04:05 -0700",
		},
		{
			name:     "namespaced tag",
			fragment: "<item><dc:creator>Jo Bloggs</dc:creator></item>",
			tag:      "dc:creator",
			want:     "Jo Bloggs",
		},
		{
			name:     "absent tag",
			fragment: "<item><title>x</title></item>",
			tag:      "link",
			want:     "",
		},
		{
			name:     "first of several",
			fragment: "<item><category>one</category><category>two</category></item>",
			tag:      "category",
			want:     "one",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractTag(tc.fragment, tc.tag)
			if got != tc.want {
				t.Errorf("ExtractTag(%q) = %q, want %q", tc.tag, got, tc.want)
			}
		})
	}
}

func TestExtractAttr(t *testing.T) {
	testCases := []struct {
		name     string
		fragment string
		tag      string
		attr     string
		want     string
	}{
		{
			name:     "double quoted",
			fragment: `<enclosure url="https://cdn.example.com/a.jpg" type="image/jpeg"/>`,
			tag:      "enclosure",
			attr:     "url",
			want:     "https://cdn.example.com/a.jpg",
		},
		{
			name:     "single quoted",
			fragment: `<link rel='alternate' href='https://example.com/post'/>`,
			tag:      "link",
			attr:     "href",
			want:     "https://example.com/post",
		},
		{
			name:     "absent attribute",
			fragment: `<enclosure type="audio/mpeg"/>`,
			tag:      "enclosure",
			attr:     "url",
			want:     "",
		},
		{
			name:     "absent tag",
			fragment: `<item/>`,
			tag:      "enclosure",
			attr:     "url",
			want:     "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractAttr(tc.fragment, tc.tag, tc.attr)
			if got != tc.want {
				t.Errorf("ExtractAttr(%q, %q) = %q, want %q", tc.tag, tc.attr, got, tc.want)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips markup",
			input: `<p>Big <strong>win</strong> away</p>`,
			want:  "Big win away",
		},
		{
			name:  "decodes entities",
			input: "Smith &amp; Jones said &quot;no&quot;",
			want:  `Smith & Jones said "no"`,
		},
		{
			name:  "nbsp becomes space",
			input: "one&nbsp;two",
			want:  "one two",
		},
		{
			name:  "angle bracket entities",
			input: "1 &lt; 2 &gt; 0",
			want:  "1 < 2 > 0",
		},
		{
			name:  "trims whitespace",
			input: "  <div> padded </div>  ",
			want:  "padded",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanText(tc.input)
			if got != tc.want {
				t.Errorf("CleanText(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

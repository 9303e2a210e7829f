package textnorm

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// markupPattern matches the start of an HTML tag, comment or doctype.
var markupPattern = regexp.MustCompile(`<[a-zA-Z/!]`)

// stripPolicy removes every element and attribute, keeping text only.
var stripPolicy = bluemonday.StrictPolicy()

// voidElements never have an end tag.
var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Param: true, atom.Source: true,
	atom.Track: true, atom.Wbr: true,
}

// lower builds a fresh Caser per call; a cases.Caser is not safe for
// concurrent use.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Normalize returns the canonical form of raw text.
//
// The steps are, in order: strip leftover markup, NFKC normalization, lower
// casing, replacement of every rune that is not a letter, digit, space or
// sentence terminator with a space, and whitespace collapsing. Apostrophes
// between two letters are dropped so that "don't" becomes "dont".
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	text := raw
	if markupPattern.MatchString(text) {
		text = stripMarkup(text)
	}

	text = norm.NFKC.String(text)
	text = lower(text)

	runes := []rune(text)
	var sb strings.Builder
	sb.Grow(len(text))

	space := true // suppresses leading and repeated spaces
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || IsTerminator(r):
			sb.WriteRune(r)
			space = false
		case isApostrophe(r) && i > 0 && i < len(runes)-1 &&
			unicode.IsLetter(runes[i-1]) && unicode.IsLetter(runes[i+1]):
			// dropped: joins the word
		default:
			if !space {
				sb.WriteByte(' ')
				space = true
			}
		}
	}

	return strings.TrimRight(sb.String(), " ")
}

type markupToken struct {
	tt   xhtml.TokenType
	raw  string
	name atom.Atom
}

// stripMarkup removes HTML elements, comments and doctypes and unescapes
// entities. A tag counts as markup only when it names a known element and is
// a void element or has a matching end tag in text; anything else, such as
// the "<b and c>" in "a<b and c>d", is kept as literal text.
func stripMarkup(text string) string {
	z := xhtml.NewTokenizer(strings.NewReader(text))

	var tokens []markupToken
	closed := make(map[atom.Atom]bool)
	consumed := 0
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			break
		}
		tok := markupToken{tt: tt, raw: string(z.Raw())}
		consumed += len(tok.raw)

		switch tt {
		case xhtml.TextToken:
			tok.raw = html.EscapeString(string(z.Text()))
		case xhtml.StartTagToken, xhtml.EndTagToken, xhtml.SelfClosingTagToken:
			name, _ := z.TagName()
			tok.name = atom.Lookup(name)
			if tt == xhtml.EndTagToken && tok.name != 0 {
				closed[tok.name] = true
			}
		}
		tokens = append(tokens, tok)
	}

	var sb strings.Builder
	sb.Grow(len(text))
	for _, tok := range tokens {
		switch tok.tt {
		case xhtml.TextToken:
			sb.WriteString(tok.raw)
		case xhtml.CommentToken, xhtml.DoctypeToken:
			sb.WriteByte(' ')
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			if voidElements[tok.name] {
				sb.WriteByte(' ')
				sb.WriteString(tok.raw)
			} else if tok.name != 0 && closed[tok.name] {
				sb.WriteString(tok.raw)
			} else {
				sb.WriteString(html.EscapeString(tok.raw))
			}
		case xhtml.EndTagToken:
			if tok.name != 0 {
				sb.WriteString(tok.raw)
			} else {
				sb.WriteString(html.EscapeString(tok.raw))
			}
		}
	}
	// An unterminated "tag" at the end of the input is plain text.
	if consumed < len(text) {
		sb.WriteString(html.EscapeString(text[consumed:]))
	}

	return html.UnescapeString(stripPolicy.Sanitize(sb.String()))
}

// IsTerminator reports whether r ends a sentence.
func IsTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’' || r == 'ʼ'
}

// Sentences splits normalized text into sentences.
// Runs of terminators end one sentence; empty sentences are dropped.
func Sentences(normalized string) []string {
	parts := strings.FieldsFunc(normalized, IsTerminator)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

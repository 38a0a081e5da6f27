package views

import (
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supported = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.German,
	language.French,
	language.Spanish,
	language.BrazilianPortuguese,
}

var matcher = language.NewMatcher(supported)

// dateLayouts holds the long date format per base language.
var dateLayouts = map[string]string{
	"en-US": "January 2, 2006",
	"en-GB": "2 January 2006",
	"de":    "2.1.2006",
	"fr":    "02/01/2006",
	"es":    "02/01/2006",
	"pt":    "02/01/2006",
}

// Locale formats numbers and dates for one language.
type Locale struct {
	Tag     language.Tag
	printer *message.Printer
}

// NewLocale returns a Locale for tag.
func NewLocale(tag language.Tag) Locale {
	return Locale{Tag: tag, printer: message.NewPrinter(tag)}
}

// DefaultLocale is American English.
func DefaultLocale() Locale {
	return NewLocale(language.AmericanEnglish)
}

// LocaleFromRequest picks the best supported language from the
// Accept-Language header.
func LocaleFromRequest(r *http.Request) Locale {
	if r == nil {
		return DefaultLocale()
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return DefaultLocale()
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLocale()
	}
	return NewLocale(supported[idx])
}

// Number formats n with the locale's digit grouping.
func (l Locale) Number(n int) string {
	return l.p().Sprintf("%d", n)
}

// Count renders "1 comment" or "1,204 comments".
func (l Locale) Count(n int, singular, plural string) string {
	word := plural
	if n == 1 {
		word = singular
	}
	return l.Number(n) + " " + word
}

// Date formats t as a long date.
func (l Locale) Date(t time.Time) string {
	layout, ok := dateLayouts[l.Tag.String()]
	if !ok {
		base, _ := l.Tag.Base()
		layout, ok = dateLayouts[base.String()]
	}
	if !ok {
		layout = dateLayouts["en-US"]
	}
	return t.Format(layout)
}

func (l Locale) p() *message.Printer {
	if l.printer == nil {
		return message.NewPrinter(language.AmericanEnglish)
	}
	return l.printer
}

// Package i18n formats user-facing text from keyed message catalogs.
package i18n

import (
	"fmt"
	"regexp"
	"time"

	"golang.org/x/text/language"
)

// DefaultLocale is used when no requested locale matches a catalog.
const DefaultLocale = "en-US"

// TimeLayout is how time.Time arguments are rendered.
const TimeLayout = "Mon Jan 2 2006 15:04:05 MST"

var (
	supported = []language.Tag{language.AmericanEnglish}
	matcher   = language.NewMatcher(supported)
	catalogs  = map[language.Tag]map[string]string{
		language.AmericanEnglish: enUS,
	}
)

var placeholder = regexp.MustCompile(`\{[^{}]*\}`)

// Translator looks up messages for one locale.
type Translator struct {
	tag      language.Tag
	messages map[string]string
}

// New returns a Translator for the best catalog matching locale.
func New(locale string) *Translator {
	tag := language.AmericanEnglish
	if locale != "" {
		if req, err := language.Parse(locale); err == nil {
			_, idx, conf := matcher.Match(req)
			if conf != language.No {
				tag = supported[idx]
			}
		}
	}
	return &Translator{tag: tag, messages: catalogs[tag]}
}

// Locale returns the BCP 47 tag of the selected catalog.
func (t *Translator) Locale() string {
	return t.tag.String()
}

// T formats the message for key. Placeholders such as {name} are filled
// positionally from args; extra placeholders are left as they are. An
// unknown key is returned unchanged.
func (t *Translator) T(key string, args ...any) string {
	msg, ok := t.messages[key]
	if !ok {
		return key
	}
	i := 0
	return placeholder.ReplaceAllStringFunc(msg, func(m string) string {
		if i >= len(args) {
			return m
		}
		v := args[i]
		i++
		return format(v)
	})
}

func format(v any) string {
	switch x := v.(type) {
	case time.Time:
		return x.Format(TimeLayout)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

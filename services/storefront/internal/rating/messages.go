package rating

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"golang.org/x/text/language"
)

//go:embed locales.json
var localesJSON []byte

const (
	LangEnglish = "en"
	LangArabic  = "ar"

	DirLTR = "ltr"
	DirRTL = "rtl"
)

const (
	MsgTitle            = "rating.title"
	MsgSelectStar       = "rating.select_star"
	MsgThanks           = "rating.thanks"
	MsgAllDone          = "rating.all_done"
	MsgAlreadyRated     = "rating.already_rated"
	MsgYourOrder        = "rating.your_order"
	MsgErrorGeneric     = "rating.error_generic"
	MsgErrorRateLimited = "rating.error_rate_limited"
	MsgErrorSubmit      = "rating.error_submit"
)

// Translator resolves a message key in the tab's current language.
type Translator interface {
	T(key string) string
}

// Locale is a Translator for one language.
type Locale struct {
	Lang     string
	messages map[string]string
	fallback map[string]string
}

var (
	dictionaries map[string]map[string]string
	matcher      = language.NewMatcher([]language.Tag{language.Arabic, language.English})
)

func init() {
	if err := json.Unmarshal(localesJSON, &dictionaries); err != nil {
		panic(fmt.Sprintf("invalid embedded locales: %v", err))
	}
}

// LocaleFor negotiates a locale from a language preference such as "en",
// "ar-SA" or a full Accept-Language header. Arabic is the default.
func LocaleFor(pref string) *Locale {
	lang := LangArabic
	if pref != "" {
		tags, _, err := language.ParseAcceptLanguage(pref)
		if err == nil && len(tags) > 0 {
			_, idx, conf := matcher.Match(tags...)
			if conf != language.No && idx == 1 {
				lang = LangEnglish
			}
		}
	}

	return &Locale{
		Lang:     lang,
		messages: dictionaries[lang],
		fallback: dictionaries[LangEnglish],
	}
}

func (l *Locale) T(key string) string {
	if l == nil {
		return key
	}
	if msg, ok := l.messages[key]; ok {
		return msg
	}
	if msg, ok := l.fallback[key]; ok {
		return msg
	}
	return key
}

// Direction returns the text direction for the locale.
func (l *Locale) Direction() string {
	return Direction(l.Lang)
}

func Direction(lang string) string {
	if lang == LangArabic {
		return DirRTL
	}
	return DirLTR
}

package rating

import "testing"

func TestLocaleFor(t *testing.T) {
	tests := []struct {
		name     string
		pref     string
		wantLang string
		wantDir  string
	}{
		{name: "empty", pref: "", wantLang: LangArabic, wantDir: DirRTL},
		{name: "english", pref: "en", wantLang: LangEnglish, wantDir: DirLTR},
		{name: "englishRegion", pref: "en-GB", wantLang: LangEnglish, wantDir: DirLTR},
		{name: "arabicRegion", pref: "ar-SA", wantLang: LangArabic, wantDir: DirRTL},
		{name: "acceptLanguage", pref: "fr-FR,en;q=0.8,ar;q=0.5", wantLang: LangEnglish, wantDir: DirLTR},
		{name: "garbage", pref: "!!!", wantLang: LangArabic, wantDir: DirRTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := LocaleFor(tt.pref)
			if loc.Lang != tt.wantLang {
				t.Errorf("Lang = %q, want %q", loc.Lang, tt.wantLang)
			}
			if loc.Direction() != tt.wantDir {
				t.Errorf("Direction() = %q, want %q", loc.Direction(), tt.wantDir)
			}
		})
	}
}

func TestLocaleT(t *testing.T) {
	en := LocaleFor("en")
	ar := LocaleFor("ar")

	if got := en.T(MsgYourOrder); got != "Your order" {
		t.Errorf("en T(your_order) = %q", got)
	}
	if got := ar.T(MsgYourOrder); got != "طلبك" {
		t.Errorf("ar T(your_order) = %q", got)
	}
	if got := en.T("rating.unknown"); got != "rating.unknown" {
		t.Errorf("unknown key = %q, want key itself", got)
	}

	var nilLocale *Locale
	if got := nilLocale.T(MsgTitle); got != MsgTitle {
		t.Errorf("nil locale T() = %q", got)
	}
}

func TestDictionariesHaveSameKeys(t *testing.T) {
	en := dictionaries[LangEnglish]
	ar := dictionaries[LangArabic]
	if len(en) == 0 {
		t.Fatal("english dictionary is empty")
	}
	for key := range en {
		if _, ok := ar[key]; !ok {
			t.Errorf("arabic dictionary missing %q", key)
		}
	}
	for key := range ar {
		if _, ok := en[key]; !ok {
			t.Errorf("english dictionary missing %q", key)
		}
	}
}

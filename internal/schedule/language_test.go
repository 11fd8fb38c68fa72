package schedule

import "testing"

func TestDetectLanguage_Empty(t *testing.T) {
	lang, conf := DetectLanguage("")
	if lang != "zh" || conf != 0.5 {
		t.Errorf("expected (zh, 0.5) for empty input, got (%s, %v)", lang, conf)
	}
}

func TestDetectLanguage_PredominantlyChinese(t *testing.T) {
	lang, conf := DetectLanguage("这个用户的项目经验如何？")
	if lang != "zh" {
		t.Errorf("expected zh, got %s", lang)
	}
	if conf <= 0.5 || conf > 0.9 {
		t.Errorf("expected confidence in (0.5, 0.9], got %v", conf)
	}
}

func TestDetectLanguage_PredominantlyEnglish(t *testing.T) {
	lang, conf := DetectLanguage("find me a student who's interested in mobile development")
	if lang != "en" {
		t.Errorf("expected en, got %s", lang)
	}
	if conf <= 0.5 || conf > 0.9 {
		t.Errorf("expected confidence in (0.5, 0.9], got %v", conf)
	}
}

func TestDetectLanguage_Idempotent(t *testing.T) {
	samples := []string{"hello", "你好世界", "mixed 你好 text", ""}
	for _, s := range samples {
		l1, c1 := DetectLanguage(s)
		l2, c2 := DetectLanguage(s)
		if l1 != l2 || c1 != c2 {
			t.Errorf("expected deterministic output for %q, got (%s,%v) then (%s,%v)", s, l1, c1, l2, c2)
		}
	}
}

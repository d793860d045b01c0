package kitabi

import "testing"

func TestQualityValidatorIgnoresConfidence(t *testing.T) {
	var q QualityValidator
	for _, conf := range []float64{0, 0.5, 0.55, 0.99, 1} {
		for _, code := range []string{"fr", "fa", "ur", "", "xx"} {
			v := LanguageVerdict{Language: English, Confidence: conf, RawCode: code}
			if !q.Validate(v) {
				t.Errorf("Validate(code=%q, conf=%v) = false, want suspect", code, conf)
			}
			got, suspect := q.Apply(v)
			if !suspect || got.Confidence != 0 {
				t.Errorf("Apply(code=%q, conf=%v) = (%+v, %v)", code, conf, got, suspect)
			}
		}
	}
}

func TestQualityValidatorAcceptsSupported(t *testing.T) {
	var q QualityValidator
	for _, code := range []string{"ar", "en"} {
		v := LanguageVerdict{Confidence: 0.42, RawCode: code}
		got, suspect := q.Apply(v)
		if suspect || got.Confidence != 0.42 {
			t.Errorf("Apply(%q) = (%+v, %v), want untouched", code, got, suspect)
		}
	}
}

func TestIsGibberish(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", false},
		{"The history of the region is long and full of remarkable events.", false},
		{"كان الناس في ذلك الزمان يعيشون حياة بسيطة", false},
		{"%$# @@! 12 ^^& *** 999 ###", true},
		{"a b c d e f g h", true},
		{"qwertyuiopasdfghjklzx cvbnmqwertyuiopasdfg", true},
	}
	for _, tt := range tests {
		if got := IsGibberish(tt.text); got != tt.want {
			t.Errorf("IsGibberish(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

package content

import "testing"

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "english prose",
			text: "The survey recorded every crossing in the northern valley, with notes on depth and approach on both banks.",
			want: "en",
		},
		{
			name: "spanish prose",
			text: "El estudio registró todos los cruces del valle norte, con notas sobre la profundidad del agua y las condiciones de la orilla.",
			want: "es",
		},
		{
			name: "german prose",
			text: "Die Untersuchung erfasste alle Übergänge im nördlichen Tal, mit Angaben zur Wassertiefe und zum Zustand der Ufer.",
			want: "de",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, confidence := DetectLanguage(tt.text)
			if code != tt.want {
				t.Errorf("DetectLanguage() = %q (conf %v), want %q", code, confidence, tt.want)
			}
			if confidence < languageConfidenceFloor {
				t.Errorf("confidence = %v, want >= %v", confidence, languageConfidenceFloor)
			}
		})
	}
}

func TestDetectLanguage_TooShort(t *testing.T) {
	for _, text := range []string{"", "ok", "deux mots"} {
		code, confidence := DetectLanguage(text)
		if code != "" || confidence != 0 {
			t.Errorf("DetectLanguage(%q) = %q/%v, want empty", text, code, confidence)
		}
	}
}

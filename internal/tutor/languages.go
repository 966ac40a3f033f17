package tutor

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Language is an explanation language offered to students.
type Language struct {
	Value string
	Label string
}

// DefaultLanguage is the language that needs no extra instruction.
const DefaultLanguage = "english"

// Languages holds English and the 22 languages of the Eighth Schedule.
var Languages = []Language{
	{"english", "English"},
	{"assamese", "Assamese"},
	{"bengali", "Bengali"},
	{"bodo", "Bodo"},
	{"dogri", "Dogri"},
	{"gujarati", "Gujarati"},
	{"hindi", "Hindi"},
	{"kannada", "Kannada"},
	{"kashmiri", "Kashmiri"},
	{"konkani", "Konkani"},
	{"maithili", "Maithili"},
	{"malayalam", "Malayalam"},
	{"manipuri", "Manipuri (Meitei)"},
	{"marathi", "Marathi"},
	{"nepali", "Nepali"},
	{"odia", "Odia"},
	{"punjabi", "Punjabi"},
	{"sanskrit", "Sanskrit"},
	{"santali", "Santali"},
	{"sindhi", "Sindhi"},
	{"tamil", "Tamil"},
	{"telugu", "Telugu"},
	{"urdu", "Urdu"},
}

// IsLanguage reports whether value is one of Languages.
func IsLanguage(value string) bool {
	for _, l := range Languages {
		if l.Value == value {
			return true
		}
	}
	return false
}

var titleCaser = cases.Title(language.English)

// promptLabel is the name used in the "Respond in" instruction.
func promptLabel(value string) string {
	return titleCaser.String(value)
}

package manifest

import "strings"

// Book is a canonical Bible book with its USFM file number.
type Book struct {
	Code   string // lower-case three-character code
	Name   string
	Number string // "01".."39" for OT, "41".."67" for NT
}

var books = []Book{
	{"gen", "Genesis", "01"}, {"exo", "Exodus", "02"}, {"lev", "Leviticus", "03"},
	{"num", "Numbers", "04"}, {"deu", "Deuteronomy", "05"}, {"jos", "Joshua", "06"},
	{"jdg", "Judges", "07"}, {"rut", "Ruth", "08"}, {"1sa", "1 Samuel", "09"},
	{"2sa", "2 Samuel", "10"}, {"1ki", "1 Kings", "11"}, {"2ki", "2 Kings", "12"},
	{"1ch", "1 Chronicles", "13"}, {"2ch", "2 Chronicles", "14"}, {"ezr", "Ezra", "15"},
	{"neh", "Nehemiah", "16"}, {"est", "Esther", "17"}, {"job", "Job", "18"},
	{"psa", "Psalms", "19"}, {"pro", "Proverbs", "20"}, {"ecc", "Ecclesiastes", "21"},
	{"sng", "Song of Solomon", "22"}, {"isa", "Isaiah", "23"}, {"jer", "Jeremiah", "24"},
	{"lam", "Lamentations", "25"}, {"ezk", "Ezekiel", "26"}, {"dan", "Daniel", "27"},
	{"hos", "Hosea", "28"}, {"jol", "Joel", "29"}, {"amo", "Amos", "30"},
	{"oba", "Obadiah", "31"}, {"jon", "Jonah", "32"}, {"mic", "Micah", "33"},
	{"nam", "Nahum", "34"}, {"hab", "Habakkuk", "35"}, {"zep", "Zephaniah", "36"},
	{"hag", "Haggai", "37"}, {"zec", "Zechariah", "38"}, {"mal", "Malachi", "39"},
	{"mat", "Matthew", "41"}, {"mrk", "Mark", "42"}, {"luk", "Luke", "43"},
	{"jhn", "John", "44"}, {"act", "Acts", "45"}, {"rom", "Romans", "46"},
	{"1co", "1 Corinthians", "47"}, {"2co", "2 Corinthians", "48"}, {"gal", "Galatians", "49"},
	{"eph", "Ephesians", "50"}, {"php", "Philippians", "51"}, {"col", "Colossians", "52"},
	{"1th", "1 Thessalonians", "53"}, {"2th", "2 Thessalonians", "54"}, {"1ti", "1 Timothy", "55"},
	{"2ti", "2 Timothy", "56"}, {"tit", "Titus", "57"}, {"phm", "Philemon", "58"},
	{"heb", "Hebrews", "59"}, {"jas", "James", "60"}, {"1pe", "1 Peter", "61"},
	{"2pe", "2 Peter", "62"}, {"1jn", "1 John", "63"}, {"2jn", "2 John", "64"},
	{"3jn", "3 John", "65"}, {"jud", "Jude", "66"}, {"rev", "Revelation", "67"},
}

var booksByCode = func() map[string]Book {
	m := make(map[string]Book, len(books))
	for _, b := range books {
		m[b.Code] = b
	}
	return m
}()

// LookupBook finds a book by code, case-insensitively.
func LookupBook(code string) (Book, bool) {
	b, ok := booksByCode[strings.ToLower(strings.TrimSpace(code))]
	return b, ok
}

// IsBook reports whether code is a canonical book code.
func IsBook(code string) bool {
	_, ok := LookupBook(code)
	return ok
}

// FileName returns the conventional USFM file name, e.g. "41-MAT.usfm".
func (b Book) FileName() string {
	return b.Number + "-" + strings.ToUpper(b.Code) + ".usfm"
}

package transcribe

import "strings"

// SupportedFormats is the set of media formats Amazon Transcribe accepts,
// keyed by lower-case file extension.
var SupportedFormats = map[string]struct{}{
	"mp3":  {},
	"mp4":  {},
	"wav":  {},
	"flac": {},
	"mov":  {},
	"mpg":  {},
	"mpeg": {},
	"m4a":  {},
}

// Extension returns the lower-cased text after the last dot of key.
// A key without a dot is returned whole, and a key ending in a dot yields "".
func Extension(key string) string {
	return strings.ToLower(key[strings.LastIndex(key, ".")+1:])
}

// BaseName returns the part of key before its first dot.
func BaseName(key string) string {
	if i := strings.Index(key, "."); i >= 0 {
		return key[:i]
	}
	return key
}

func IsSupported(ext string) bool {
	_, ok := SupportedFormats[ext]
	return ok
}

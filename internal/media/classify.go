package media

import (
	"io/fs"
	"os"
	"strings"
)

var videoExtensions = []string{
	"mpeg", "mpg", "mpe", "m1s", "mpa", "mp2", "m2a", "mp2v", "m2v", "m2s",
	"avi", "mov", "qt", "asf", "asx", "wmv", "wma", "wmx", "rm", "ra", "ram", "rmvb",
	"mp4", "3gp", "ogm", "mkv",
}

var subtitleExtensions = []string{
	"aqt", "jss", "sub", "ttxt", "pjs", "psb", "rt", "smi", "ssf", "srt", "gsub",
	"ssa", "ass", "usf", "idx", "stl",
}

// VideoExtensions returns a copy of the recognised video extensions.
func VideoExtensions() []string {
	return append([]string(nil), videoExtensions...)
}

// SubtitleExtensions returns a copy of the recognised subtitle extensions.
func SubtitleExtensions() []string {
	return append([]string(nil), subtitleExtensions...)
}

// IsSubtitleFormat reports whether format is one of the recognised subtitle
// extensions. Only these are seen by HasSubtitle.
func IsSubtitleFormat(format string) bool {
	for _, ext := range subtitleExtensions {
		if format == ext {
			return true
		}
	}
	return false
}

// StatFunc matches os.Stat.
type StatFunc func(name string) (fs.FileInfo, error)

// Classifier answers media questions against a filesystem. The zero value
// uses os.Stat.
type Classifier struct {
	Stat StatFunc
}

// IsMedia reports whether path names a video file.
func IsMedia(path string) bool {
	for _, ext := range videoExtensions {
		if strings.HasSuffix(path, "."+ext) {
			return true
		}
	}
	return false
}

// HasSubtitle reports whether a subtitle sibling exists for path in lang.
func HasSubtitle(path, lang string) bool {
	return Classifier{}.HasSubtitle(path, lang)
}

// HasSubtitle reports whether a subtitle sibling exists for path in lang.
// Stat errors other than "not exist" are treated as absence.
func (c Classifier) HasSubtitle(path, lang string) bool {
	_, ok := c.ExistingSubtitle(path, lang)
	return ok
}

// ExistingSubtitle returns the first subtitle sibling found for path.
func (c Classifier) ExistingSubtitle(path, lang string) (string, bool) {
	stat := c.Stat
	if stat == nil {
		stat = os.Stat
	}
	for _, ext := range subtitleExtensions {
		candidate := SubtitlePath(path, lang, ext)
		info, err := stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		return candidate, true
	}
	return "", false
}

// SubtitlePath derives the sibling subtitle path for a video. The format is
// used verbatim as the final extension.
func SubtitlePath(mediaPath, lang, format string) string {
	return mediaPath + "." + lang + "." + format
}

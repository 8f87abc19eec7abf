// Package media classifies library paths: which files are videos, which
// videos already have a subtitle sibling in the target language, and where
// a downloaded subtitle belongs.
//
// Extension lists are fixed and case-sensitive. A file counts as a video when
// its name ends in "." followed by a listed extension; the subtitle check
// looks for "<video>.<lang>.<ext>" next to the video for every listed
// subtitle extension.
package media

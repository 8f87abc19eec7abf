// Command subwatch keeps a media tree stocked with subtitles. It walks the
// configured directory on a schedule and downloads an OpenSubtitles subtitle
// for every video that has none in the target language.
//
// Subcommands:
//
//	run               poll loop until SIGINT/SIGTERM
//	scan [--dry-run]  a single pass
//	check             preflight checks
//	history           recent fetch attempts
//	config init       write a sample configuration
//	config validate   load and validate the configuration
package main

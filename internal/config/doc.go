// Package config loads, normalizes, and validates subwatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as OPENSUBTITLES_PASSWORD. The TOML layout keeps
// the historical property names (search.directory, opensubtitles.login,
// ignored.folders, ...) as dotted keys so existing property files translate
// line for line.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, normalized language codes, and clear validation errors.
package config

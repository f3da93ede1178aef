// Package config loads the runtime settings shared by the CLI and the draft
// file manager. Sources are layered as defaults, a YAML file, a dotenv file
// and finally FILEPICKER_* environment variables.
package config

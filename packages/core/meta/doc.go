// Package meta holds per-block configuration parsed from front matter.
//
// Reserved keys (id/name, description, needs, ignore, only, import, host,
// timeout, display, command, schema) are decoded into typed fields. Every
// other key is kept in User and is visible to templates. Meta values cascade:
// global defaults are merged under block values with Merge.
package meta

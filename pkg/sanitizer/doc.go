// Package sanitizer normalizes untrusted input before validation and
// storage so lookups and uniqueness checks compare like with like.
package sanitizer

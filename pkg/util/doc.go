// Package util provides shared helpers for safe file-path validation and
// log-body truncation used across stubd packages.
//
//   - SafeFilePath: reject path-traversal attempts in body file names
//   - TruncateBody: cap response bodies for diagnostic output
package util

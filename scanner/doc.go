// Package scanner discovers executable tools in a single directory.
//
// A scan classifies every direct child of the directory as an executable
// candidate or not, and resolves where each candidate's metadata lives:
//   - Sidecar: a readable "<stem>.yaml" file next to the executable
//   - Embedded: no usable sidecar, metadata is expected inside the executable
//
// The scanner never reads metadata content. Problems with individual entries
// are collected in the scanner's error log instead of failing the scan.
package scanner

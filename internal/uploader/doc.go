// Package uploader replays daily journal files into the tickstore and
// prunes journal directories past their retention window. It backs the
// nightly batch jobs; the recorder itself never touches the tickstore.
package uploader

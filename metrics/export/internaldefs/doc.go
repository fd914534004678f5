// Package internaldefs holds the metric names and bucket layout shared by the
// exporters.
//
// Both the Prometheus and OTel exporters read these definitions so they publish
// identical names. Changing a definition here changes every exporter.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
